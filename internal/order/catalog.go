package order

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sabarim/starmf/internal/errs"
)

// Source says where the encoder takes a positional slot's value from.
type Source int

const (
	// SourceRequest reads the value from the request, falling back to Default.
	SourceRequest Source = iota
	SourceUserID
	SourceMemberID
	// SourcePassword is the session credential for orders and the account
	// password for authentication.
	SourcePassword
	SourceConstant
	// SourceDerived computes the value from the other request values.
	SourceDerived
	// SourceTransNo reads the request value, or generates Value followed by
	// a YYYYMMDDHHMMSS timestamp.
	SourceTransNo
	// SourceToday is the current date in DateLayout.
	SourceToday
	// SourceBlank is a reserved slot that is always empty.
	SourceBlank
)

// Field is one positional slot.
type Field struct {
	Name     string
	Source   Source
	Default  string
	Value    string
	Required bool
	Rule     Rule
	Derive   func(Values) string
}

// Check is a rule spanning several fields. It sees values with defaults applied.
type Check func(Values) []errs.Violation

// Spec is the catalog entry for one operation.
type Spec struct {
	Type      Type
	Method    string
	TransCode string
	Layout    Layout
	Fields    []Field
	Checks    []Check
}

// Names returns the slot names in wire order.
func (s Spec) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Field returns the slot named name.
func (s Spec) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// WithDefaults returns a copy of v with catalog defaults and derived values
// filled in for request-sourced slots.
func (s Spec) WithDefaults(v Values) Values {
	out := make(Values, len(v)+len(s.Fields))
	for k, val := range v {
		out[k] = val
	}
	for _, f := range s.Fields {
		switch f.Source {
		case SourceRequest:
			if out[f.Name] == "" {
				out[f.Name] = f.Default
			}
		case SourceConstant:
			out[f.Name] = f.Value
		}
	}
	for _, f := range s.Fields {
		if f.Source == SourceDerived {
			out[f.Name] = f.Derive(out)
		}
	}
	return out
}

// TransNo builds a generated transaction number.
func TransNo(prefix string, now time.Time) string {
	return prefix + now.Format("20060102150405")
}

func req(name string, rule Rule) Field {
	return Field{Name: name, Source: SourceRequest, Rule: rule}
}

func must(name string, rule Rule) Field {
	return Field{Name: name, Source: SourceRequest, Required: true, Rule: rule}
}

func def(name, value string, rule Rule) Field {
	return Field{Name: name, Source: SourceRequest, Default: value, Rule: rule}
}

func fixed(name, value string) Field {
	return Field{Name: name, Source: SourceConstant, Value: value}
}

func blank(names ...string) []Field {
	out := make([]Field, len(names))
	for i, n := range names {
		out[i] = Field{Name: n, Source: SourceBlank}
	}
	return out
}

func userID(name string) Field   { return Field{Name: name, Source: SourceUserID} }
func memberID(name string) Field { return Field{Name: name, Source: SourceMemberID} }
func password(name string) Field { return Field{Name: name, Source: SourcePassword} }
func today(name string) Field    { return Field{Name: name, Source: SourceToday} }

func generatedTransNo(name, prefix string) Field {
	return Field{Name: name, Source: SourceTransNo, Value: prefix, Rule: RefNo}
}

// euinDeclared derives the EUIN declaration flag from the EUIN slot.
func euinDeclared(name, euinField string) Field {
	return Field{Name: name, Source: SourceDerived, Derive: func(v Values) string {
		if v.Get(euinField) != "" {
			return "Y"
		}
		return "N"
	}}
}

func fields(groups ...interface{}) []Field {
	var out []Field
	for _, g := range groups {
		switch t := g.(type) {
		case Field:
			out = append(out, t)
		case []Field:
			out = append(out, t...)
		default:
			panic(fmt.Sprintf("order: unexpected catalog entry %T", g))
		}
	}
	return out
}

func fillers(n int) []Field {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("Filler%d", i+1)
	}
	return blank(names...)
}

var catalog = map[Type]Spec{
	TypeAuthenticate: {
		Type:   TypeAuthenticate,
		Method: "getPassword",
		Layout: LayoutAuth,
		Fields: fields(
			userID("UserId"),
			memberID("MemberId"),
			password("Password"),
			must("PassKey", Alnum),
		),
	},
	TypeLumpsum: {
		Type:      TypeLumpsum,
		Method:    "orderEntryParam",
		TransCode: "NEW",
		Layout:    LayoutOrder,
		Fields: fields(
			def("TransCode", "NEW", OneOf("NEW", "MOD")),
			must("TransNo", RefNo),
			req("OrderId", Code),
			userID("UserID"),
			memberID("MemberId"),
			must("ClientCode", Code),
			must("SchemeCd", Code),
			must("BuySell", BuySell),
			def("BuySellType", "FRESH", OneOf("FRESH", "ADDITIONAL")),
			must("DPTxn", DPTxn),
			req("OrderVal", Positive),
			req("Qty", Positive),
			def("AllRedeem", "N", YesNo),
			req("FolioNo", Code),
			req("Remarks", MaxLen(255)),
			def("KYCStatus", "Y", YesNo),
			req("RefNo", Code),
			req("SubBrCode", ARN),
			req("EUIN", EUIN),
			euinDeclared("EUINVal", "EUIN"),
			def("MinRedeem", "N", YesNo),
			def("DPC", "N", YesNo),
			req("IPAdd", IPv4),
			password("Password"),
			req("PassKey", Alnum),
			blank("Parma1", "Param2", "Param3"),
			req("MobileNo", Mobile),
			req("EmailID", MaxLen(50)),
			req("MandateID", Code),
			fillers(6),
		),
		Checks: []Check{
			requiredWhen("OrderId", "TransCode", "MOD"),
			requiredWhen("FolioNo", "BuySell", "R"),
			amountOrQuantity("BuySell", "OrderVal", "Qty", "AllRedeem"),
		},
	},
	TypeSIPNew: {
		Type:      TypeSIPNew,
		Method:    "sipOrderEntryParam",
		TransCode: "NEW",
		Layout:    LayoutOrder,
		Fields: fields(
			def("TransactionCode", "NEW", OneOf("NEW")),
			must("UniqueRefNo", RefNo),
			must("SchemeCode", Code),
			memberID("MemberCode"),
			must("ClientCode", Code),
			userID("UserID"),
			req("InternalRefNo", Code),
			def("TransMode", "P", OneOf("D", "P")),
			must("DpTxnMode", DPTxn),
			must("StartDate", Date),
			must("FrequencyType", Frequency),
			def("FrequencyAllowed", "1", OneOf("0", "1")),
			must("InstallmentAmount", Positive),
			must("NoOfInstallment", IntRange(1, 9999)),
			req("Remarks", MaxLen(255)),
			req("FolioNo", Code),
			def("FirstOrderFlag", "N", YesNo),
			req("SubberCode", ARN),
			req("Euin", EUIN),
			euinDeclared("EuinVal", "Euin"),
			def("DPC", "N", YesNo),
			blank("RegId"),
			req("IPAdd", IPv4),
			password("Password"),
			req("PassKey", Alnum),
			blank("Param1", "Param2", "Param3"),
			fillers(6),
		),
	},
	TypeXSIPNew: {
		Type:      TypeXSIPNew,
		Method:    "xsipOrderEntryParam",
		TransCode: "XSIP",
		Layout:    LayoutOrder,
		Fields: fields(
			fixed("TransCode", "XSIP"),
			must("TransNo", RefNo),
			must("SchemeCode", Code),
			memberID("MemberCode"),
			must("ClientCode", Code),
			userID("UserID"),
			req("InternalRefNo", Code),
			def("TransMode", "P", OneOf("D", "P")),
			must("DpTxnMode", DPTxn),
			must("StartDate", Date),
			must("FrequencyType", Frequency),
			def("FrequencyAllowed", "1", OneOf("0", "1")),
			must("InstallmentAmount", Positive),
			must("NoOfInstallment", IntRange(1, 9999)),
			req("FolioNo", Code),
			def("FirstOrderFlag", "N", YesNo),
			req("SubBrCode", ARN),
			req("EUIN", EUIN),
			euinDeclared("EUINVal", "EUIN"),
			def("DPC", "N", YesNo),
			today("RegDate"),
			req("IPAdd", IPv4),
			password("Password"),
			req("PassKey", Alnum),
			must("MandateID", Code),
			req("Brokerage", Positive),
			req("Remarks", MaxLen(255)),
			def("KYCStatus", "Y", YesNo),
			req("XsipRegID", Code),
			blank("Param1", "Param2", "Param3"),
		),
	},
	TypeSIPModify: {
		Type:      TypeSIPModify,
		Method:    "modifySipOrderParam",
		TransCode: "MODSIP",
		Layout:    LayoutOrder,
		Fields: fields(
			fixed("TransCode", "MODSIP"),
			must("TransNo", RefNo),
			must("RegId", Code),
			memberID("MemberCode"),
			must("ClientCode", Code),
			userID("UserID"),
			req("Amount", Positive),
			req("NoOfInstallment", IntRange(1, 9999)),
			password("Password"),
		),
		Checks: []Check{atLeastOne("Amount", "NoOfInstallment")},
	},
	TypeXSIPModify: {
		Type:      TypeXSIPModify,
		Method:    "modifyXsipOrderParam",
		TransCode: "MODXSIP",
		Layout:    LayoutOrder,
		Fields: fields(
			fixed("TransCode", "MODXSIP"),
			must("TransNo", RefNo),
			must("XsipRegId", Code),
			memberID("MemberCode"),
			must("ClientCode", Code),
			userID("UserID"),
			req("Amount", Positive),
			req("NoOfInstallment", IntRange(1, 9999)),
			password("Password"),
		),
		Checks: []Check{atLeastOne("Amount", "NoOfInstallment")},
	},
	TypeSIPCancel: {
		Type:      TypeSIPCancel,
		Method:    "cancelSipOrderParam",
		TransCode: "CXLSIP",
		Layout:    LayoutOrder,
		Fields: fields(
			fixed("TransCode", "CXLSIP"),
			generatedTransNo("TransNo", "CXLSIP"),
			must("RegId", Code),
			memberID("MemberCode"),
			must("ClientCode", Code),
			userID("UserID"),
			password("Password"),
		),
	},
	TypeXSIPCancel: {
		Type:      TypeXSIPCancel,
		Method:    "cancelXSIPOrderParam",
		TransCode: "XCXL",
		Layout:    LayoutOrder,
		Fields: fields(
			fixed("TransCode", "XCXL"),
			generatedTransNo("TransNo", "XCXL"),
			must("OrderId", Code),
			userID("UserID"),
			memberID("MemberId"),
			must("ClientCode", Code),
			password("Password"),
		),
	},
	TypeSwitch: {
		Type:      TypeSwitch,
		Method:    "switchOrderParam",
		TransCode: "SWITCH",
		Layout:    LayoutOrder,
		Fields: fields(
			fixed("TransactionCode", "SWITCH"),
			must("UniqueRefNo", RefNo),
			must("FromSchemeCode", Code),
			must("ToSchemeCode", Code),
			userID("UserID"),
			memberID("MemberCode"),
			must("ClientCode", Code),
			req("Amount", Positive),
			req("Units", Positive),
			must("FolioNo", Code),
			def("BuySellType", "FRESH", OneOf("FRESH", "ADDITIONAL")),
			must("DpTxnMode", DPTxn),
			req("SubberCode", ARN),
			req("Euin", EUIN),
			euinDeclared("EuinVal", "Euin"),
			def("KYCStatus", "Y", YesNo),
			password("Password"),
			req("Remarks", MaxLen(255)),
			req("IPAdd", IPv4),
			blank("Param1", "Param2", "Param3"),
			fillers(3),
		),
		Checks: []Check{
			exactlyOne("Amount", "Units"),
			distinct("FromSchemeCode", "ToSchemeCode"),
		},
	},
	TypeSpread: {
		Type:      TypeSpread,
		Method:    "spreadOrderEntryParam",
		TransCode: "NEW",
		Layout:    LayoutOrder,
		Fields: fields(
			def("TransCode", "NEW", OneOf("NEW")),
			must("TransNo", RefNo),
			req("OrderId", Code),
			userID("UserID"),
			memberID("MemberId"),
			must("ClientCode", Code),
			must("SchemeCd", Code),
			must("BuySell", BuySell),
			def("BuySellType", "FRESH", OneOf("FRESH", "ADDITIONAL")),
			must("DPTxn", DPTxn),
			must("PurchaseAmount", Positive),
			req("RedemptionAmount", Positive),
			def("AllUnitsFlag", "N", YesNo),
			must("RedeemDate", Date),
			req("FolioNo", Code),
			req("Remarks", MaxLen(255)),
			def("KYCStatus", "Y", YesNo),
			req("SubBrCode", ARN),
			req("EUIN", EUIN),
			euinDeclared("EUINVal", "EUIN"),
			def("MinRedeem", "N", YesNo),
			def("DPC", "N", YesNo),
			req("IPAdd", IPv4),
			password("Password"),
			req("PassKey", Alnum),
			blank("Param1", "Param2", "Param3"),
		),
		Checks: []Check{amountOrAllUnits("RedemptionAmount", "AllUnitsFlag")},
	},
	TypeCancel: {
		Type:      TypeCancel,
		Method:    "cancelOrderParam",
		TransCode: "CXL",
		Layout:    LayoutOrder,
		Fields: fields(
			fixed("TransCode", "CXL"),
			generatedTransNo("TransNo", "CXL"),
			must("OrderId", Code),
			userID("UserID"),
			memberID("MemberId"),
			must("ClientCode", Code),
			password("Password"),
		),
	},
	TypeOrderStatus: {
		Type:      TypeOrderStatus,
		Method:    "orderStatusParam",
		TransCode: "ORDSTS",
		Layout:    LayoutStatusRecord,
		Fields: fields(
			fixed("TransCode", "ORDSTS"),
			generatedTransNo("TransNo", "ORDSTS"),
			must("OrderId", Code),
			userID("UserID"),
			memberID("MemberId"),
			password("Password"),
		),
	},
	TypeStatusQuery: {
		Type:   TypeStatusQuery,
		Method: "getOrderStatus",
		Layout: LayoutStatus,
		Fields: fields(
			must("FromDate", Date),
			must("ToDate", Date),
			userID("UserID"),
			memberID("MemberId"),
			req("ClientCode", Code),
			req("TransactionType", BuySell),
			def("OrderType", "ALL", orderTypes),
			def("SubOrderType", "ALL", subOrderTypes),
			def("SettlementType", "ALL", settlementTypes),
			password("Password"),
			req("OrderNo", Code),
		),
		Checks: []Check{dateOrder("FromDate", "ToDate")},
	},
	TypeAllotmentStatement:  statement(TypeAllotmentStatement, "getAllotmentStatement"),
	TypeRedemptionStatement: statement(TypeRedemptionStatement, "getRedemptionStatement"),
}

var (
	orderTypes      = OneOf("ALL", "MFD", "SIP", "XSIP", "STP", "SWP")
	subOrderTypes   = OneOf("ALL", "NFO", "SPOR", "SWITCH")
	settlementTypes = OneOf("ALL", "L0", "L1", "OTHERS")
)

func statement(t Type, method string) Spec {
	return Spec{
		Type:   t,
		Method: method,
		Layout: LayoutStatus,
		Fields: fields(
			must("FromDate", Date),
			must("ToDate", Date),
			userID("UserID"),
			memberID("MemberId"),
			req("ClientCode", Code),
			def("OrderType", "ALL", orderTypes),
			def("SubOrderType", "ALL", subOrderTypes),
			def("SettlementType", "ALL", settlementTypes),
			password("Password"),
			req("OrderNo", Code),
		),
		Checks: []Check{dateOrder("FromDate", "ToDate")},
	}
}

// Lookup returns the catalog entry for t.
func Lookup(t Type) (Spec, bool) {
	s, ok := catalog[t]
	return s, ok
}

// ForMethod returns the catalog entry whose remote method is method.
func ForMethod(method string) (Spec, bool) {
	for _, s := range catalog {
		if s.Method == method {
			return s, true
		}
	}
	return Spec{}, false
}

// Types lists every catalogued operation, sorted.
func Types() []Type {
	out := make([]Type, 0, len(catalog))
	for t := range catalog {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func requiredWhen(field, when, equals string) Check {
	return func(v Values) []errs.Violation {
		if v.Get(when) == equals && v.Get(field) == "" {
			return []errs.Violation{{Field: field, Message: fmt.Sprintf("is required when %s is %s", when, equals)}}
		}
		return nil
	}
}

// amountOrQuantity: purchases carry an amount only; redemptions carry exactly
// one of amount or quantity unless every unit is redeemed.
func amountOrQuantity(side, amount, qty, allUnits string) Check {
	return func(v Values) []errs.Violation {
		hasAmount, hasQty := v.Get(amount) != "", v.Get(qty) != ""
		switch {
		case hasAmount && hasQty:
			return []errs.Violation{{Field: amount, Message: fmt.Sprintf("cannot be combined with %s", qty)}}
		case v.Get(side) == "P" && !hasAmount:
			return []errs.Violation{{Field: amount, Message: "is required for purchases"}}
		case v.Get(side) == "P" && hasQty:
			return []errs.Violation{{Field: qty, Message: "is not allowed for purchases"}}
		case v.Get(side) == "R" && v.Get(allUnits) == "Y" && (hasAmount || hasQty):
			return []errs.Violation{{Field: allUnits, Message: fmt.Sprintf("cannot be combined with %s or %s", amount, qty)}}
		case v.Get(side) == "R" && v.Get(allUnits) != "Y" && !hasAmount && !hasQty:
			return []errs.Violation{{Field: amount, Message: fmt.Sprintf("either %s or %s is required for redemptions", amount, qty)}}
		}
		return nil
	}
}

func amountOrAllUnits(amount, allUnits string) Check {
	return func(v Values) []errs.Violation {
		hasAmount, all := v.Get(amount) != "", v.Get(allUnits) == "Y"
		if hasAmount == all {
			return []errs.Violation{{Field: amount, Message: fmt.Sprintf("exactly one of %s or %s=Y is required", amount, allUnits)}}
		}
		return nil
	}
}

func exactlyOne(a, b string) Check {
	return func(v Values) []errs.Violation {
		if (v.Get(a) != "") == (v.Get(b) != "") {
			return []errs.Violation{{Field: a, Message: fmt.Sprintf("exactly one of %s or %s is required", a, b)}}
		}
		return nil
	}
}

func atLeastOne(a, b string) Check {
	return func(v Values) []errs.Violation {
		if v.Get(a) == "" && v.Get(b) == "" {
			return []errs.Violation{{Field: a, Message: fmt.Sprintf("at least one of %s or %s is required", a, b)}}
		}
		return nil
	}
}

func distinct(a, b string) Check {
	return func(v Values) []errs.Violation {
		if v.Get(a) != "" && v.Get(a) == v.Get(b) {
			return []errs.Violation{{Field: b, Message: fmt.Sprintf("must differ from %s", a)}}
		}
		return nil
	}
}

func dateOrder(from, to string) Check {
	return func(v Values) []errs.Violation {
		f, ferr := time.Parse(DateLayout, v.Get(from))
		t, terr := time.Parse(DateLayout, v.Get(to))
		if ferr == nil && terr == nil && f.After(t) {
			return []errs.Violation{{Field: from, Message: fmt.Sprintf("must not be after %s", to)}}
		}
		return nil
	}
}

// FormatAmount renders a decimal for the wire; zero is absent.
func FormatAmount(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}
