package protocol

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sabarim/starmf/internal/errs"
	"github.com/sabarim/starmf/internal/order"
)

var (
	orderNoPattern      = regexp.MustCompile(`ORDER NO:\s*(\d+)`)
	confirmationPattern = regexp.MustCompile(`CONFIRMATION TIME:\s+(.*?)\s+ENTRY BY`)
)

const (
	confirmedPhrase = "ORD CONF"
	// AuthSuccessCode is the status code of a successful authentication.
	AuthSuccessCode = "100"
	// QuerySuccessCode marks a status query or statement reply with data.
	QuerySuccessCode = "100"
)

func split(text string, layout order.Layout) ([]string, error) {
	parts := strings.Split(text, Separator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < layout.MinFields() {
		return nil, errs.Protocol(fmt.Sprintf("[protocol] - %s reply has %d fields, need at least %d",
			layout, len(parts), layout.MinFields()))
	}
	return parts, nil
}

// LayoutFor selects the reply layout by remote method name.
func LayoutFor(method string) (order.Layout, error) {
	spec, ok := order.ForMethod(method)
	if !ok {
		return 0, errs.Newf(errs.KindIntegration, "[protocol] - unknown method %s", method)
	}
	return spec.Layout, nil
}

// DecodeMethod decodes text using the layout registered for method.
func DecodeMethod(method, text string) (order.Result, error) {
	layout, err := LayoutFor(method)
	if err != nil {
		return order.Result{}, err
	}
	return Decode(layout, text)
}

// Decode turns a reply into a Result. A ProtocolFault is returned only when
// the text cannot be read in the layout; business outcomes are reported
// through Result.Success.
func Decode(layout order.Layout, text string) (order.Result, error) {
	switch layout {
	case order.LayoutOrder:
		return decodeOrder(text)
	case order.LayoutStatus:
		return decodeStatus(text)
	case order.LayoutStatusRecord:
		rec, err := DecodeStatusRecord(text)
		if err != nil {
			return order.Result{}, err
		}
		return order.Result{
			Success:    order.StatusOK(rec.StatusCode),
			OrderID:    rec.OrderNo,
			StatusCode: rec.StatusCode,
			Message:    rec.BSERemarks,
			Extra: map[string]string{
				order.ExtraMemberID:    rec.MemberCode,
				order.ExtraClientCode:  rec.ClientCode,
				order.ExtraRemarks:     rec.OrderRemarks,
				order.ExtraRawResponse: text,
			},
			Record: &rec,
		}, nil
	case order.LayoutAuth:
		reply, err := DecodeAuth(text)
		if err != nil {
			return order.Result{}, err
		}
		return order.Result{
			Success:    reply.OK(),
			StatusCode: reply.Code,
			Message:    reply.Message,
			Extra:      map[string]string{order.ExtraRawResponse: text},
		}, nil
	}
	return order.Result{}, errs.Newf(errs.KindIntegration, "[protocol] - unsupported layout %d", layout)
}

func decodeOrder(text string) (order.Result, error) {
	parts, err := split(text, order.LayoutOrder)
	if err != nil {
		return order.Result{}, err
	}
	message := parts[6]
	orderID := parts[2]
	if orderID == "" {
		if m := orderNoPattern.FindStringSubmatch(message); m != nil {
			orderID = m[1]
		}
	}

	status := "N"
	upper := strings.ToUpper(message)
	if strings.Contains(upper, confirmedPhrase) {
		status = "Y"
	}
	if status == "N" && strings.Contains(upper, "CONFIRMATION TIME") && strings.Contains(upper, "ORDER NO") {
		status = "Y"
	}

	res := order.Result{
		Success:    status == "Y" && orderID != "" && orderID != "0",
		OrderID:    orderID,
		StatusCode: status,
		Message:    message,
		Extra: map[string]string{
			order.ExtraTransactionCode: parts[0],
			order.ExtraUniqueRefNo:     parts[1],
			order.ExtraUserID:          parts[3],
			order.ExtraMemberID:        parts[4],
			order.ExtraClientCode:      parts[5],
			order.ExtraRawResponse:     text,
		},
	}
	if m := confirmationPattern.FindStringSubmatch(message); m != nil {
		res.Extra[order.ExtraConfirmation] = m[1]
	}
	if len(parts) > 7 && parts[7] != "" {
		res.Extra[order.ExtraRemarks] = strings.Join(parts[7:], Separator)
	}
	return res, nil
}

func decodeStatus(text string) (order.Result, error) {
	parts, err := split(text, order.LayoutStatus)
	if err != nil {
		return order.Result{}, err
	}
	res := order.Result{
		Success:    parts[0] == QuerySuccessCode,
		StatusCode: parts[0],
		Message:    parts[1],
		Extra:      map[string]string{order.ExtraRawResponse: text},
	}
	if len(parts) > 2 {
		res.Extra[order.ExtraPayload] = strings.Join(parts[2:], Separator)
	}
	return res, nil
}

// AuthReply is the two field authentication reply.
type AuthReply struct {
	Code string
	// Credential is set on success.
	Credential string
	// Message is set on failure.
	Message string
}

func (r AuthReply) OK() bool { return r.Code == AuthSuccessCode && r.Credential != "" }

// DecodeAuth reads statusCode|credential or statusCode|errorMessage.
func DecodeAuth(text string) (AuthReply, error) {
	parts, err := split(text, order.LayoutAuth)
	if err != nil {
		return AuthReply{}, err
	}
	// the credential itself never contains the separator; messages might
	rest := strings.Join(parts[1:], Separator)
	if parts[0] == AuthSuccessCode {
		return AuthReply{Code: parts[0], Credential: rest}, nil
	}
	return AuthReply{Code: parts[0], Message: rest}, nil
}

// DecodeStatusRecord reads the positional order status detail reply.
// Trailing fields may be absent.
func DecodeStatusRecord(text string) (order.StatusRecord, error) {
	parts, err := split(text, order.LayoutStatusRecord)
	if err != nil {
		return order.StatusRecord{}, err
	}
	at := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}
	num := func(i int) (decimal.NullDecimal, error) {
		s := at(i)
		if s == "" {
			return decimal.NullDecimal{}, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.NullDecimal{}, errs.Protocol(fmt.Sprintf("[protocol] - status field %d is not numeric: %q", i, s))
		}
		return decimal.NewNullDecimal(d), nil
	}

	rec := order.StatusRecord{
		StatusCode:       at(0),
		MemberCode:       at(1),
		ClientCode:       at(2),
		OrderNo:          at(3),
		BSERemarks:       at(4),
		OrderStatus:      at(5),
		OrderRemarks:     at(6),
		SchemeCode:       at(7),
		SchemeName:       at(8),
		ISIN:             at(9),
		BuySell:          at(10),
		AllotmentDate:    at(15),
		ValidFlag:        at(16),
		InternalRefNo:    at(17),
		DPTxn:            at(18),
		SettlementType:   at(19),
		OrderType:        at(20),
		SubOrderType:     at(21),
		EUIN:             at(22),
		EUINFlag:         at(23),
		SubBrokerARN:     at(24),
		PaymentStatus:    at(25),
		SettlementStatus: at(26),
		SIPRegID:         at(27),
		SubBrokerCode:    at(28),
		KYCFlag:          at(29),
		MinRedeemFlag:    at(30),
	}
	for i, dst := range map[int]*decimal.NullDecimal{
		11: &rec.Amount,
		12: &rec.Quantity,
		13: &rec.AllottedNAV,
		14: &rec.AllottedUnits,
	} {
		v, err := num(i)
		if err != nil {
			return order.StatusRecord{}, err
		}
		*dst = v
	}
	return rec, nil
}
