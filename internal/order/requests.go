package order

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func formatInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// Common carries fields shared by most purchase and redemption records.
// Flag fields are "Y", "N" or empty for the catalog default.
type Common struct {
	ClientCode   string
	FolioNo      string
	Remarks      string
	KYCStatus    string
	SubBrokerARN string
	EUIN         string
	DPC          string
	IPAddress    string
	// PassKey is the order pass key, independent of the login pass key.
	PassKey string
}

// Lumpsum is a one time purchase or redemption.
type Lumpsum struct {
	Common
	TransCode   string
	TransNo     string
	OrderID     string
	SchemeCode  string
	BuySell     string
	BuySellType string
	DPTxn       string
	Amount      decimal.Decimal
	Quantity    decimal.Decimal
	AllRedeem   string
	RefNo       string
	MinRedeem   string
	MobileNo    string
	Email       string
	MandateID   string
}

func (Lumpsum) Type() Type { return TypeLumpsum }

func (r Lumpsum) Values() Values {
	return Values{
		"TransCode":   r.TransCode,
		"TransNo":     r.TransNo,
		"OrderId":     r.OrderID,
		"ClientCode":  r.ClientCode,
		"SchemeCd":    r.SchemeCode,
		"BuySell":     r.BuySell,
		"BuySellType": r.BuySellType,
		"DPTxn":       r.DPTxn,
		"OrderVal":    FormatAmount(r.Amount),
		"Qty":         FormatAmount(r.Quantity),
		"AllRedeem":   r.AllRedeem,
		"FolioNo":     r.FolioNo,
		"Remarks":     r.Remarks,
		"KYCStatus":   r.KYCStatus,
		"RefNo":       r.RefNo,
		"SubBrCode":   r.SubBrokerARN,
		"EUIN":        r.EUIN,
		"MinRedeem":   r.MinRedeem,
		"DPC":         r.DPC,
		"IPAdd":       r.IPAddress,
		"PassKey":     r.PassKey,
		"MobileNo":    r.MobileNo,
		"EmailID":     r.Email,
		"MandateID":   r.MandateID,
	}
}

// SIP registers a systematic investment plan.
type SIP struct {
	Common
	TransNo           string
	SchemeCode        string
	InternalRefNo     string
	TransMode         string
	DPTxn             string
	StartDate         time.Time
	Frequency         string
	FrequencyAllowed  string
	InstallmentAmount decimal.Decimal
	Installments      int
	FirstOrderToday   string
}

func (SIP) Type() Type { return TypeSIPNew }

func (r SIP) Values() Values {
	return Values{
		"UniqueRefNo":       r.TransNo,
		"SchemeCode":        r.SchemeCode,
		"ClientCode":        r.ClientCode,
		"InternalRefNo":     r.InternalRefNo,
		"TransMode":         r.TransMode,
		"DpTxnMode":         r.DPTxn,
		"StartDate":         formatDate(r.StartDate),
		"FrequencyType":     r.Frequency,
		"FrequencyAllowed":  r.FrequencyAllowed,
		"InstallmentAmount": FormatAmount(r.InstallmentAmount),
		"NoOfInstallment":   formatInt(r.Installments),
		"Remarks":           r.Remarks,
		"FolioNo":           r.FolioNo,
		"FirstOrderFlag":    r.FirstOrderToday,
		"SubberCode":        r.SubBrokerARN,
		"Euin":              r.EUIN,
		"DPC":               r.DPC,
		"IPAdd":             r.IPAddress,
		"PassKey":           r.PassKey,
	}
}

// XSIP registers an extended SIP backed by a mandate.
type XSIP struct {
	SIP
	MandateID string
	Brokerage decimal.Decimal
	XSIPRegID string
}

func (XSIP) Type() Type { return TypeXSIPNew }

func (r XSIP) Values() Values {
	return Values{
		"TransNo":           r.TransNo,
		"SchemeCode":        r.SchemeCode,
		"ClientCode":        r.ClientCode,
		"InternalRefNo":     r.InternalRefNo,
		"TransMode":         r.TransMode,
		"DpTxnMode":         r.DPTxn,
		"StartDate":         formatDate(r.StartDate),
		"FrequencyType":     r.Frequency,
		"FrequencyAllowed":  r.FrequencyAllowed,
		"InstallmentAmount": FormatAmount(r.InstallmentAmount),
		"NoOfInstallment":   formatInt(r.Installments),
		"FolioNo":           r.FolioNo,
		"FirstOrderFlag":    r.FirstOrderToday,
		"SubBrCode":         r.SubBrokerARN,
		"EUIN":              r.EUIN,
		"DPC":               r.DPC,
		"IPAdd":             r.IPAddress,
		"PassKey":           r.PassKey,
		"MandateID":         r.MandateID,
		"Brokerage":         FormatAmount(r.Brokerage),
		"Remarks":           r.Remarks,
		"KYCStatus":         r.KYCStatus,
		"XsipRegID":         r.XSIPRegID,
	}
}

// SIPModify changes the amount or installment count of a registration.
type SIPModify struct {
	TransNo      string
	RegID        string
	ClientCode   string
	Amount       decimal.Decimal
	Installments int
}

func (SIPModify) Type() Type { return TypeSIPModify }

func (r SIPModify) Values() Values {
	return Values{
		"TransNo":         r.TransNo,
		"RegId":           r.RegID,
		"ClientCode":      r.ClientCode,
		"Amount":          FormatAmount(r.Amount),
		"NoOfInstallment": formatInt(r.Installments),
	}
}

// XSIPModify is SIPModify for extended SIP registrations.
type XSIPModify SIPModify

func (XSIPModify) Type() Type { return TypeXSIPModify }

func (r XSIPModify) Values() Values {
	return Values{
		"TransNo":         r.TransNo,
		"XsipRegId":       r.RegID,
		"ClientCode":      r.ClientCode,
		"Amount":          FormatAmount(r.Amount),
		"NoOfInstallment": formatInt(r.Installments),
	}
}

// SIPCancel cancels a registration. TransNo is generated when empty.
type SIPCancel struct {
	TransNo    string
	RegID      string
	ClientCode string
}

func (SIPCancel) Type() Type { return TypeSIPCancel }

func (r SIPCancel) Values() Values {
	return Values{"TransNo": r.TransNo, "RegId": r.RegID, "ClientCode": r.ClientCode}
}

// XSIPCancel cancels an extended SIP registration.
type XSIPCancel struct {
	TransNo    string
	RegID      string
	ClientCode string
}

func (XSIPCancel) Type() Type { return TypeXSIPCancel }

func (r XSIPCancel) Values() Values {
	return Values{"TransNo": r.TransNo, "OrderId": r.RegID, "ClientCode": r.ClientCode}
}

// Switch moves holdings between two schemes of the same AMC.
type Switch struct {
	Common
	TransNo        string
	FromSchemeCode string
	ToSchemeCode   string
	BuySellType    string
	DPTxn          string
	Amount         decimal.Decimal
	Units          decimal.Decimal
}

func (Switch) Type() Type { return TypeSwitch }

func (r Switch) Values() Values {
	return Values{
		"UniqueRefNo":    r.TransNo,
		"FromSchemeCode": r.FromSchemeCode,
		"ToSchemeCode":   r.ToSchemeCode,
		"ClientCode":     r.ClientCode,
		"Amount":         FormatAmount(r.Amount),
		"Units":          FormatAmount(r.Units),
		"FolioNo":        r.FolioNo,
		"BuySellType":    r.BuySellType,
		"DpTxnMode":      r.DPTxn,
		"SubberCode":     r.SubBrokerARN,
		"Euin":           r.EUIN,
		"KYCStatus":      r.KYCStatus,
		"Remarks":        r.Remarks,
		"IPAdd":          r.IPAddress,
	}
}

// Spread is a purchase with a pre-scheduled redemption.
type Spread struct {
	Common
	TransNo          string
	OrderID          string
	SchemeCode       string
	BuySell          string
	BuySellType      string
	DPTxn            string
	PurchaseAmount   decimal.Decimal
	RedemptionAmount decimal.Decimal
	AllUnits         string
	RedeemDate       time.Time
	MinRedeem        string
}

func (Spread) Type() Type { return TypeSpread }

func (r Spread) Values() Values {
	return Values{
		"TransNo":          r.TransNo,
		"OrderId":          r.OrderID,
		"ClientCode":       r.ClientCode,
		"SchemeCd":         r.SchemeCode,
		"BuySell":          r.BuySell,
		"BuySellType":      r.BuySellType,
		"DPTxn":            r.DPTxn,
		"PurchaseAmount":   FormatAmount(r.PurchaseAmount),
		"RedemptionAmount": FormatAmount(r.RedemptionAmount),
		"AllUnitsFlag":     r.AllUnits,
		"RedeemDate":       formatDate(r.RedeemDate),
		"FolioNo":          r.FolioNo,
		"Remarks":          r.Remarks,
		"KYCStatus":        r.KYCStatus,
		"SubBrCode":        r.SubBrokerARN,
		"EUIN":             r.EUIN,
		"MinRedeem":        r.MinRedeem,
		"DPC":              r.DPC,
		"IPAdd":            r.IPAddress,
		"PassKey":          r.PassKey,
	}
}

// Cancel withdraws a previously placed order.
type Cancel struct {
	TransNo    string
	OrderID    string
	ClientCode string
}

func (Cancel) Type() Type { return TypeCancel }

func (r Cancel) Values() Values {
	return Values{"TransNo": r.TransNo, "OrderId": r.OrderID, "ClientCode": r.ClientCode}
}

// OrderStatus asks for the detail record of a single order.
type OrderStatus struct {
	TransNo string
	OrderID string
}

func (OrderStatus) Type() Type { return TypeOrderStatus }

func (r OrderStatus) Values() Values {
	return Values{"TransNo": r.TransNo, "OrderId": r.OrderID}
}

// StatusQuery selects orders by date range and classification.
type StatusQuery struct {
	From            time.Time
	To              time.Time
	ClientCode      string
	TransactionType string
	OrderType       string
	SubOrderType    string
	SettlementType  string
	OrderNo         string
}

func (StatusQuery) Type() Type { return TypeStatusQuery }

func (q StatusQuery) Values() Values {
	return Values{
		"FromDate":        formatDate(q.From),
		"ToDate":          formatDate(q.To),
		"ClientCode":      q.ClientCode,
		"TransactionType": q.TransactionType,
		"OrderType":       q.OrderType,
		"SubOrderType":    q.SubOrderType,
		"SettlementType":  q.SettlementType,
		"OrderNo":         q.OrderNo,
	}
}

// Statement selects allotment or redemption statement rows.
type Statement struct {
	Redemption     bool
	From           time.Time
	To             time.Time
	ClientCode     string
	OrderType      string
	SubOrderType   string
	SettlementType string
	OrderNo        string
}

func (s Statement) Type() Type {
	if s.Redemption {
		return TypeRedemptionStatement
	}
	return TypeAllotmentStatement
}

func (s Statement) Values() Values {
	return Values{
		"FromDate":       formatDate(s.From),
		"ToDate":         formatDate(s.To),
		"ClientCode":     s.ClientCode,
		"OrderType":      s.OrderType,
		"SubOrderType":   s.SubOrderType,
		"SettlementType": s.SettlementType,
		"OrderNo":        s.OrderNo,
	}
}

// Login is the authentication request; it is encoded like any order.
type Login struct {
	PassKey string
}

func (Login) Type() Type { return TypeAuthenticate }

func (l Login) Values() Values { return Values{"PassKey": l.PassKey} }
