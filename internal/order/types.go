package order

// Type names an operation the order-entry service accepts.
type Type string

const (
	TypeLumpsum             Type = "LUMPSUM"
	TypeSIPNew              Type = "SIP_NEW"
	TypeSIPModify           Type = "SIP_MODIFY"
	TypeSIPCancel           Type = "SIP_CANCEL"
	TypeXSIPNew             Type = "XSIP_NEW"
	TypeXSIPModify          Type = "XSIP_MODIFY"
	TypeXSIPCancel          Type = "XSIP_CANCEL"
	TypeSwitch              Type = "SWITCH"
	TypeSpread              Type = "SPREAD"
	TypeCancel              Type = "CANCEL"
	TypeOrderStatus         Type = "ORDER_STATUS"
	TypeStatusQuery         Type = "STATUS_QUERY"
	TypeAllotmentStatement  Type = "ALLOTMENT_STATEMENT"
	TypeRedemptionStatement Type = "REDEMPTION_STATEMENT"
	TypeAuthenticate        Type = "AUTHENTICATE"
)

// Layout selects how a reply to an operation is decoded.
type Layout int

const (
	// LayoutOrder is transCode|uniqueRef|orderId|userId|memberId|clientCode|message|...
	LayoutOrder Layout = iota
	// LayoutAuth is statusCode|credential or statusCode|errorMessage.
	LayoutAuth
	// LayoutStatus is status|remarks|payload...
	LayoutStatus
	// LayoutStatusRecord is the positional order status detail record.
	LayoutStatusRecord
)

func (l Layout) String() string {
	switch l {
	case LayoutOrder:
		return "order"
	case LayoutAuth:
		return "auth"
	case LayoutStatus:
		return "status"
	case LayoutStatusRecord:
		return "status-record"
	}
	return "unknown"
}

// MinFields is the smallest number of pipe separated parts a reply in this
// layout may have.
func (l Layout) MinFields() int {
	switch l {
	case LayoutOrder, LayoutStatusRecord:
		return 7
	default:
		return 2
	}
}

// Account carries the static identifiers injected into every request.
type Account struct {
	UserID   string
	MemberID string
}

// Values is the flat set of logical field values a request supplies,
// keyed by catalog field name. Absent and empty are the same.
type Values map[string]string

// Get returns the value for name, or "".
func (v Values) Get(name string) string { return v[name] }

// Request is implemented by every typed order record.
type Request interface {
	Type() Type
	Values() Values
}
