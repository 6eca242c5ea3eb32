package schemes

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sabarim/starmf/internal/errs"
	"github.com/sabarim/starmf/internal/order"
)

// purchaseFields names, per operation, the scheme slot and amount slot of a
// purchase.
var purchaseFields = map[order.Type][2]string{
	order.TypeLumpsum: {"SchemeCd", "OrderVal"},
	order.TypeSIPNew:  {"SchemeCode", "InstallmentAmount"},
	order.TypeXSIPNew: {"SchemeCode", "InstallmentAmount"},
	order.TypeSpread:  {"SchemeCd", "PurchaseAmount"},
	order.TypeSwitch:  {"ToSchemeCode", ""},
}

// Check rejects purchases into schemes the master marks as closed for
// purchase or below the scheme's minimum amount. Schemes missing from the
// master are let through.
func (m *Manager) Check(req order.Request) error {
	fields, ok := purchaseFields[req.Type()]
	if !ok {
		return nil
	}
	values := req.Values()
	if req.Type() == order.TypeLumpsum && values.Get("BuySell") != "P" {
		return nil
	}

	schemeField, amountField := fields[0], fields[1]
	scheme, ok := m.Lookup(values.Get(schemeField))
	if !ok {
		return nil
	}
	if !scheme.PurchaseAllowed {
		return errs.Field(schemeField, fmt.Sprintf("scheme %s is not open for purchase", scheme.Code))
	}
	if amountField == "" || scheme.MinPurchase.IsZero() {
		return nil
	}
	amount, err := decimal.NewFromString(values.Get(amountField))
	if err != nil {
		return nil
	}
	if amount.LessThan(scheme.MinPurchase) {
		return errs.Field(amountField, fmt.Sprintf("must be at least %s for scheme %s", scheme.MinPurchase, scheme.Code))
	}
	return nil
}
