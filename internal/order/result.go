package order

import "github.com/shopspring/decimal"

// Keys used in Result.Extra.
const (
	ExtraTransactionCode = "transaction_code"
	ExtraUniqueRefNo     = "unique_ref_no"
	ExtraUserID          = "user_id"
	ExtraMemberID        = "member_id"
	ExtraClientCode      = "client_code"
	ExtraConfirmation    = "confirmation_time"
	ExtraRemarks         = "remarks"
	ExtraPayload         = "payload"
	ExtraRawResponse     = "raw_response"
	ExtraExchangeID      = "exchange_id"
)

// Result is the decoded outcome of one operation.
type Result struct {
	Success    bool
	OrderID    string
	StatusCode string
	Message    string
	Extra      map[string]string
	// Record is set for order status detail replies.
	Record *StatusRecord
}

// StatusRecord is the positional detail reply to an order status request.
type StatusRecord struct {
	StatusCode       string
	MemberCode       string
	ClientCode       string
	OrderNo          string
	BSERemarks       string
	OrderStatus      string
	OrderRemarks     string
	SchemeCode       string
	SchemeName       string
	ISIN             string
	BuySell          string
	Amount           decimal.NullDecimal
	Quantity         decimal.NullDecimal
	AllottedNAV      decimal.NullDecimal
	AllottedUnits    decimal.NullDecimal
	AllotmentDate    string
	ValidFlag        string
	InternalRefNo    string
	DPTxn            string
	SettlementType   string
	OrderType        string
	SubOrderType     string
	EUIN             string
	EUINFlag         string
	SubBrokerARN     string
	PaymentStatus    string
	SettlementStatus string
	SIPRegID         string
	SubBrokerCode    string
	KYCFlag          string
	MinRedeemFlag    string
}

// StatusOK reports whether the remote status code marks a usable record.
func StatusOK(code string) bool { return code == "100" || code == "101" }
