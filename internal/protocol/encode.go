// Package protocol converts typed order requests into the positional pipe
// format the order-entry service expects, and decodes its replies.
package protocol

import (
	"strings"
	"time"

	"github.com/sabarim/starmf/internal/errs"
	"github.com/sabarim/starmf/internal/order"
)

// Separator joins positional fields on the wire.
const Separator = "|"

const mask = "****"

// Call is a fully encoded request, ready for the transport.
type Call struct {
	Type     order.Type
	Method   string
	Action   string
	Endpoint string
	Layout   order.Layout
	Names    []string
	Fields   []string
	Payload  string
	Body     []byte
}

// Value returns the encoded value of the named slot.
func (c Call) Value(name string) string {
	for i, n := range c.Names {
		if n == name {
			return c.Fields[i]
		}
	}
	return ""
}

// Masked returns the payload with the password and pass key slots hidden.
func (c Call) Masked() string {
	out := make([]string, len(c.Fields))
	for i, v := range c.Fields {
		if v != "" && (c.Names[i] == "Password" || c.Names[i] == "PassKey") {
			v = mask
		}
		out[i] = v
	}
	return strings.Join(out, Separator)
}

// Encoder is stateless apart from its account and clock.
type Encoder struct {
	account  order.Account
	endpoint string
	now      func() time.Time
}

type EncoderOption func(*Encoder)

// WithEncoderClock overrides the clock used for generated slots.
func WithEncoderClock(now func() time.Time) EncoderOption {
	return func(e *Encoder) { e.now = now }
}

func NewEncoder(account order.Account, endpoint string, opts ...EncoderOption) *Encoder {
	e := &Encoder{account: account, endpoint: endpoint, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode lays out every catalog slot for req in order and wraps the result
// in an envelope. password fills the password slot: the session credential
// for orders, the account password for authentication.
func (e *Encoder) Encode(req order.Request, password string) (Call, error) {
	spec, ok := order.Lookup(req.Type())
	if !ok {
		return Call{}, errs.Newf(errs.KindIntegration, "[protocol] - no catalog entry for %s", req.Type())
	}
	values := spec.WithDefaults(req.Values())
	now := e.now()

	fields := make([]string, len(spec.Fields))
	for i, f := range spec.Fields {
		var v string
		switch f.Source {
		case order.SourceRequest, order.SourceDerived, order.SourceConstant:
			v = values.Get(f.Name)
		case order.SourceUserID:
			v = e.account.UserID
		case order.SourceMemberID:
			v = e.account.MemberID
		case order.SourcePassword:
			v = password
		case order.SourceTransNo:
			v = values.Get(f.Name)
			if v == "" {
				v = order.TransNo(f.Value, now)
			}
		case order.SourceToday:
			v = now.Format(order.DateLayout)
		case order.SourceBlank:
		}
		if strings.Contains(v, Separator) {
			return Call{}, errs.Field(f.Name, "must not contain "+Separator)
		}
		fields[i] = v
	}

	c := Call{
		Type:     spec.Type,
		Method:   spec.Method,
		Action:   Action(spec.Method),
		Endpoint: e.endpoint,
		Layout:   spec.Layout,
		Names:    spec.Names(),
		Fields:   fields,
		Payload:  strings.Join(fields, Separator),
	}
	body, err := Envelope(c.Method, c.Endpoint, c.Payload, password, values.Get("PassKey"))
	if err != nil {
		return Call{}, errs.Integration(err, "[protocol] - envelope")
	}
	c.Body = body
	return c, nil
}
