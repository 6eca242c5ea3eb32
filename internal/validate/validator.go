// Package validate runs the pre-flight checks an order must pass before it
// is encoded and sent.
package validate

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sabarim/starmf/internal/errs"
	"github.com/sabarim/starmf/internal/order"
)

// Limits are the configurable business bounds applied on top of the field
// rules.
type Limits struct {
	MinLumpsumAmount   decimal.Decimal
	MinSIPAmount       decimal.Decimal
	MaxSIPInstallments int
}

// DefaultLimits returns the exchange's published minimums.
func DefaultLimits() Limits {
	return Limits{
		MinLumpsumAmount:   decimal.NewFromInt(5000),
		MinSIPAmount:       decimal.NewFromInt(500),
		MaxSIPInstallments: 999,
	}
}

// Validator is stateless and safe for concurrent use.
type Validator struct {
	limits Limits
}

func New(limits Limits) *Validator {
	return &Validator{limits: limits}
}

// Validate returns a ValidationError listing every violation found, or nil.
func (v *Validator) Validate(req order.Request) error {
	spec, ok := order.Lookup(req.Type())
	if !ok {
		return errs.Newf(errs.KindIntegration, "[validate] - no catalog entry for %s", req.Type())
	}
	values := spec.WithDefaults(req.Values())

	var violations []errs.Violation
	for _, f := range spec.Fields {
		if f.Source != order.SourceRequest && f.Source != order.SourceTransNo {
			continue
		}
		value := values.Get(f.Name)
		if value == "" {
			if f.Required {
				violations = append(violations, errs.Violation{Field: f.Name, Message: "is required"})
			}
			continue
		}
		if f.Rule != nil {
			if msg := f.Rule(value); msg != "" {
				violations = append(violations, errs.Violation{Field: f.Name, Message: msg})
			}
		}
	}
	// cross-field checks and limits run only on well formed fields
	if len(violations) == 0 {
		for _, check := range spec.Checks {
			violations = append(violations, check(values)...)
		}
	}
	if len(violations) == 0 {
		violations = v.checkLimits(spec.Type, values)
	}
	if len(violations) > 0 {
		return errs.Validation(violations...)
	}
	return nil
}

func (v *Validator) checkLimits(t order.Type, values order.Values) []errs.Violation {
	var out []errs.Violation
	switch t {
	case order.TypeLumpsum:
		if values.Get("BuySell") == "P" && values.Get("TransCode") == "NEW" {
			out = append(out, v.minimum("OrderVal", values, v.limits.MinLumpsumAmount)...)
		}
	case order.TypeSIPNew, order.TypeXSIPNew:
		out = append(out, v.minimum("InstallmentAmount", values, v.limits.MinSIPAmount)...)
		out = append(out, v.installments(values)...)
	case order.TypeSIPModify, order.TypeXSIPModify:
		out = append(out, v.minimum("Amount", values, v.limits.MinSIPAmount)...)
		out = append(out, v.installments(values)...)
	}
	return out
}

func (v *Validator) minimum(field string, values order.Values, min decimal.Decimal) []errs.Violation {
	raw := values.Get(field)
	if raw == "" || min.IsZero() {
		return nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return []errs.Violation{{Field: field, Message: "must be numeric"}}
	}
	if amount.LessThan(min) {
		return []errs.Violation{{Field: field, Message: fmt.Sprintf("must be at least %s", min.String())}}
	}
	return nil
}

func (v *Validator) installments(values order.Values) []errs.Violation {
	raw := values.Get("NoOfInstallment")
	if raw == "" || v.limits.MaxSIPInstallments <= 0 {
		return nil
	}
	if msg := order.IntRange(1, v.limits.MaxSIPInstallments)(raw); msg != "" {
		return []errs.Violation{{Field: "NoOfInstallment", Message: msg}}
	}
	return nil
}
