package schemes_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/sabarim/starmf/internal/errs"
	"github.com/sabarim/starmf/internal/order"
	"github.com/sabarim/starmf/internal/schemes"
)

var _ = Describe("Check", func() {
	var m *schemes.Manager
	BeforeEach(func() {
		m, _ = newManager()
		Expect(m.LoadFrom(strings.NewReader(pipeMaster))).To(Succeed())
	})

	purchase := func(scheme string, amount int64) order.Lumpsum {
		return order.Lumpsum{SchemeCode: scheme, BuySell: "P", Amount: decimal.NewFromInt(amount)}
	}

	It("Should pass schemes missing from the master", func() {
		Expect(m.Check(purchase("UNKNOWN", 1))).To(Succeed())
	})

	It("Should pass an open scheme at its minimum", func() {
		Expect(m.Check(purchase("ABC-GR", 5000))).To(Succeed())
	})

	It("Should reject a scheme closed for purchase", func() {
		err := m.Check(purchase("XYZ-DV", 5000))
		Expect(errs.KindOf(err)).To(Equal(errs.KindValidation))
		Expect(err.Error()).To(ContainSubstring("not open for purchase"))
	})

	It("Should reject amounts below the scheme minimum", func() {
		err := m.Check(purchase("ABC-GR", 4999))
		Expect(errs.KindOf(err)).To(Equal(errs.KindValidation))
		Expect(err.Error()).To(ContainSubstring("OrderVal"))
	})

	It("Should skip redemptions", func() {
		req := purchase("XYZ-DV", 1)
		req.BuySell = "R"
		Expect(m.Check(req)).To(Succeed())
	})

	It("Should check SIP installments", func() {
		sip := order.SIP{
			SchemeCode:        "ABC-GR",
			StartDate:         time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			InstallmentAmount: decimal.NewFromInt(1000),
			Installments:      12,
		}
		err := m.Check(sip)
		Expect(errs.KindOf(err)).To(Equal(errs.KindValidation))
		Expect(err.Error()).To(ContainSubstring("InstallmentAmount"))
	})

	It("Should ignore operations that do not buy", func() {
		Expect(m.Check(order.Cancel{OrderID: "1", ClientCode: "C1"})).To(Succeed())
	})
})
