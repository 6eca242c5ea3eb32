package order_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/sabarim/starmf/internal/order"
)

var _ = Describe("Catalog", func() {
	DescribeTable("Should declare every slot of each remote method",
		func(t order.Type, method string, slots int, layout order.Layout) {
			spec, ok := order.Lookup(t)
			Expect(ok).To(BeTrue())
			Expect(spec.Method).To(Equal(method))
			Expect(spec.Fields).To(HaveLen(slots))
			Expect(spec.Layout).To(Equal(layout))
		},
		Entry("authentication", order.TypeAuthenticate, "getPassword", 4, order.LayoutAuth),
		Entry("lumpsum", order.TypeLumpsum, "orderEntryParam", 37, order.LayoutOrder),
		Entry("sip", order.TypeSIPNew, "sipOrderEntryParam", 34, order.LayoutOrder),
		Entry("xsip", order.TypeXSIPNew, "xsipOrderEntryParam", 32, order.LayoutOrder),
		Entry("sip modify", order.TypeSIPModify, "modifySipOrderParam", 9, order.LayoutOrder),
		Entry("xsip modify", order.TypeXSIPModify, "modifyXsipOrderParam", 9, order.LayoutOrder),
		Entry("sip cancel", order.TypeSIPCancel, "cancelSipOrderParam", 7, order.LayoutOrder),
		Entry("xsip cancel", order.TypeXSIPCancel, "cancelXSIPOrderParam", 7, order.LayoutOrder),
		Entry("switch", order.TypeSwitch, "switchOrderParam", 25, order.LayoutOrder),
		Entry("spread", order.TypeSpread, "spreadOrderEntryParam", 28, order.LayoutOrder),
		Entry("cancel", order.TypeCancel, "cancelOrderParam", 7, order.LayoutOrder),
		Entry("order status", order.TypeOrderStatus, "orderStatusParam", 6, order.LayoutStatusRecord),
		Entry("status query", order.TypeStatusQuery, "getOrderStatus", 11, order.LayoutStatus),
		Entry("allotment statement", order.TypeAllotmentStatement, "getAllotmentStatement", 10, order.LayoutStatus),
		Entry("redemption statement", order.TypeRedemptionStatement, "getRedemptionStatement", 10, order.LayoutStatus),
	)

	It("Should not repeat a slot name within a method", func() {
		for _, t := range order.Types() {
			spec, _ := order.Lookup(t)
			seen := map[string]bool{}
			for _, name := range spec.Names() {
				Expect(seen).ToNot(HaveKey(name), "%s repeats %s", t, name)
				seen[name] = true
			}
		}
	})

	It("Should start the lumpsum layout with the transaction code and reference", func() {
		spec, _ := order.Lookup(order.TypeLumpsum)
		Expect(spec.Names()[:6]).To(Equal([]string{"TransCode", "TransNo", "OrderId", "UserID", "MemberId", "ClientCode"}))
	})

	It("Should resolve a method back to its entry", func() {
		spec, ok := order.ForMethod("switchOrderParam")
		Expect(ok).To(BeTrue())
		Expect(spec.Type).To(Equal(order.TypeSwitch))
		_, ok = order.ForMethod("nope")
		Expect(ok).To(BeFalse())
	})

	Describe("WithDefaults", func() {
		It("Should fill catalog defaults for absent values", func() {
			spec, _ := order.Lookup(order.TypeLumpsum)
			v := spec.WithDefaults(order.Lumpsum{}.Values())
			Expect(v.Get("DPC")).To(Equal("N"))
			Expect(v.Get("KYCStatus")).To(Equal("Y"))
			Expect(v.Get("AllRedeem")).To(Equal("N"))
			Expect(v.Get("MinRedeem")).To(Equal("N"))
			Expect(v.Get("BuySellType")).To(Equal("FRESH"))
			Expect(v.Get("TransCode")).To(Equal("NEW"))
		})
		It("Should keep caller values over defaults", func() {
			spec, _ := order.Lookup(order.TypeLumpsum)
			v := spec.WithDefaults(order.Lumpsum{Common: order.Common{KYCStatus: "N"}}.Values())
			Expect(v.Get("KYCStatus")).To(Equal("N"))
		})
		It("Should derive the EUIN declaration from the EUIN", func() {
			spec, _ := order.Lookup(order.TypeLumpsum)
			Expect(spec.WithDefaults(order.Lumpsum{}.Values()).Get("EUINVal")).To(Equal("N"))
			with := order.Lumpsum{Common: order.Common{EUIN: "E123456"}}
			Expect(spec.WithDefaults(with.Values()).Get("EUINVal")).To(Equal("Y"))
		})
		It("Should pin constant slots regardless of input", func() {
			spec, _ := order.Lookup(order.TypeSwitch)
			Expect(spec.WithDefaults(order.Values{"TransactionCode": "NEW"}).Get("TransactionCode")).To(Equal("SWITCH"))
		})
	})

	Describe("TransNo", func() {
		It("Should append a second resolution timestamp to the prefix", func() {
			at := time.Date(2024, 3, 5, 9, 7, 1, 0, time.UTC)
			Expect(order.TransNo("CXL", at)).To(Equal("CXL20240305090701"))
		})
	})

	Describe("FormatAmount", func() {
		It("Should leave zero amounts absent", func() {
			Expect(order.FormatAmount(decimal.Zero)).To(BeEmpty())
			Expect(order.FormatAmount(decimal.RequireFromString("5000.50"))).To(Equal("5000.5"))
		})
	})
})
