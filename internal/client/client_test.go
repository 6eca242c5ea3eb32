package client_test

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sabarim/starmf/internal/audit"
	"github.com/sabarim/starmf/internal/client"
	"github.com/sabarim/starmf/internal/errs"
	"github.com/sabarim/starmf/internal/order"
	"github.com/sabarim/starmf/internal/protocol"
)

type fakeAuth struct {
	credential string
	err        error
	gets       int
}

func (f *fakeAuth) Authenticate(context.Context, string) error { return f.err }

func (f *fakeAuth) GetCredential(context.Context) (string, error) {
	f.gets++
	return f.credential, f.err
}

func (f *fakeAuth) IsValid() bool { return f.err == nil }
func (f *fakeAuth) Logout()       {}

type fakeDoer struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []protocol.Call
}

func (d *fakeDoer) Do(_ context.Context, call protocol.Call) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
	return []byte(d.reply), d.err
}

type memorySink struct {
	exchanges []audit.Exchange
}

func (s *memorySink) Record(e audit.Exchange) error {
	s.exchanges = append(s.exchanges, e)
	return nil
}

type rejectAll struct{}

func (rejectAll) Check(order.Request) error { return errs.Field("SchemeCd", "scheme closed") }

func purchase() order.Lumpsum {
	return order.Lumpsum{
		Common:     order.Common{ClientCode: "C1"},
		TransNo:    "REF1",
		SchemeCode: "S1",
		BuySell:    "P",
		DPTxn:      "P",
		Amount:     decimal.NewFromInt(5000),
	}
}

const confirmed = "NEW|REF1|900001|1234501|12345|C1|ORD CONF: Your Request for FRESH PURCHASE ORDER NO: 900001 CONFIRMATION TIME: 10:15:00 ENTRY BY: 1234501"

var _ = Describe("Client", func() {
	var (
		ctx  context.Context
		auth *fakeAuth
		doer *fakeDoer
		c    *client.Client
	)
	BeforeEach(func() {
		ctx = context.Background()
		auth = &fakeAuth{credential: "session-cred"}
		doer = &fakeDoer{reply: confirmed}
		c = client.New(order.Account{UserID: "1234501", MemberID: "12345"}, "https://example.test", auth, doer,
			client.WithLogger(zap.NewNop()))
	})

	It("Should place a confirmed order", func() {
		res, err := c.PlaceLumpsum(ctx, purchase())
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Success).To(BeTrue())
		Expect(res.OrderID).To(Equal("900001"))
		Expect(res.Extra[order.ExtraConfirmation]).To(Equal("10:15:00"))
		Expect(res.Extra[order.ExtraExchangeID]).ToNot(BeEmpty())
		Expect(doer.calls).To(HaveLen(1))
		Expect(doer.calls[0].Value("Password")).To(Equal("session-cred"))
	})

	It("Should not touch the network or the session for invalid orders", func() {
		r := purchase()
		r.ClientCode = ""
		_, err := c.PlaceLumpsum(ctx, r)
		Expect(errors.Is(err, errs.ErrValidation)).To(BeTrue())
		Expect(doer.calls).To(BeEmpty())
		Expect(auth.gets).To(BeZero())
	})

	It("Should run additional checkers before sending", func() {
		c = client.New(order.Account{UserID: "1234501", MemberID: "12345"}, "https://example.test", auth, doer,
			client.WithChecker(rejectAll{}))
		_, err := c.PlaceLumpsum(ctx, purchase())
		Expect(errs.IsKind(err, errs.KindValidation)).To(BeTrue())
		Expect(doer.calls).To(BeEmpty())
	})

	It("Should apply configured limits", func() {
		c = client.New(order.Account{UserID: "1234501", MemberID: "12345"}, "https://example.test", auth, doer,
			client.WithLimits(validateLimits(10000)))
		_, err := c.PlaceLumpsum(ctx, purchase())
		Expect(errs.IsKind(err, errs.KindValidation)).To(BeTrue())
	})

	It("Should report remote rejections", func() {
		doer.reply = "NEW|REF1|0|1234501|12345|C1|FAILED: SCHEME NOT AVAILABLE FOR PURCHASE|1"
		_, err := c.PlaceLumpsum(ctx, purchase())
		e, ok := errs.As(err)
		Expect(ok).To(BeTrue())
		Expect(e.Kind).To(Equal(errs.KindOrderRejected))
		Expect(e.Message).To(Equal("FAILED: SCHEME NOT AVAILABLE FOR PURCHASE"))
	})

	It("Should send duplicate submissions twice", func() {
		_, err := c.PlaceLumpsum(ctx, purchase())
		Expect(err).ToNot(HaveOccurred())
		_, err = c.PlaceLumpsum(ctx, purchase())
		Expect(err).ToNot(HaveOccurred())
		Expect(doer.calls).To(HaveLen(2))
		Expect(doer.calls[0].Payload).To(Equal(doer.calls[1].Payload))
	})

	It("Should pass authentication failures through", func() {
		auth.err = errs.New(errs.KindSessionExpired, "expired")
		_, err := c.Cancel(ctx, "900001", "C1")
		Expect(errs.IsKind(err, errs.KindSessionExpired)).To(BeTrue())
		Expect(doer.calls).To(BeEmpty())
	})

	It("Should log integration failures raised while logging in", func() {
		core, logs := observer.New(zap.ErrorLevel)
		c = client.New(order.Account{UserID: "1234501", MemberID: "12345"}, "https://example.test", auth, doer,
			client.WithLogger(zap.New(core)))
		auth.err = io.ErrClosedPipe

		err := c.Authenticate(ctx, "abc123")
		Expect(errs.IsKind(err, errs.KindIntegration)).To(BeTrue())
		Expect(errors.Is(err, io.ErrClosedPipe)).To(BeTrue())
		entries := logs.FilterMessage("integration failure").All()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].ContextMap()["type"]).To(Equal(string(order.TypeAuthenticate)))
	})

	It("Should return authentication failures from login unchanged", func() {
		core, logs := observer.New(zap.ErrorLevel)
		c = client.New(order.Account{UserID: "1234501", MemberID: "12345"}, "https://example.test", auth, doer,
			client.WithLogger(zap.New(core)))
		auth.err = errs.Auth(errs.KindInvalidAccount, "101", "FAILED: INVALID ACCOUNT")

		err := c.Authenticate(ctx, "abc123")
		Expect(errs.IsKind(err, errs.KindInvalidAccount)).To(BeTrue())
		Expect(logs.Len()).To(BeZero())
	})

	It("Should pass transport failures through", func() {
		doer.err = errs.Transport(io.EOF, true, "failed after 4 attempts")
		_, err := c.PlaceLumpsum(ctx, purchase())
		Expect(errs.IsKind(err, errs.KindTransport)).To(BeTrue())
	})

	It("Should wrap unexpected failures as integration errors", func() {
		doer.err = io.ErrClosedPipe
		_, err := c.PlaceLumpsum(ctx, purchase())
		Expect(errs.IsKind(err, errs.KindIntegration)).To(BeTrue())
		Expect(errors.Is(err, io.ErrClosedPipe)).To(BeTrue())
	})

	It("Should fault on unreadable replies", func() {
		doer.reply = "garbage"
		_, err := c.PlaceLumpsum(ctx, purchase())
		Expect(errs.IsKind(err, errs.KindProtocol)).To(BeTrue())
	})

	It("Should unwrap SOAP replies", func() {
		doer.reply = `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><cancelOrderParamResponse>` +
			`<cancelOrderParamResult>CXL|X|900001|1234501|12345|C1|ORD CONF: CANCELLED</cancelOrderParamResult>` +
			`</cancelOrderParamResponse></s:Body></s:Envelope>`
		res, err := c.Cancel(ctx, "900001", "C1")
		Expect(err).ToNot(HaveOccurred())
		Expect(res.OrderID).To(Equal("900001"))
		Expect(doer.calls[0].Method).To(Equal("cancelOrderParam"))
		Expect(doer.calls[0].Value("TransNo")).To(HavePrefix("CXL"))
	})

	It("Should decode order status records", func() {
		fields := make([]string, 31)
		fields[0], fields[2], fields[3], fields[4], fields[5] = "100", "C1", "900001", "OK", "ALLOTMENT DONE"
		doer.reply = strings.Join(fields, "|")
		res, err := c.OrderStatus(ctx, "900001")
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Record.OrderStatus).To(Equal("ALLOTMENT DONE"))
	})

	It("Should report failed status queries as rejections", func() {
		doer.reply = "101|NO DATA FOUND"
		day := purchaseDay()
		_, err := c.QueryStatus(ctx, order.StatusQuery{From: day, To: day})
		Expect(errs.IsKind(err, errs.KindOrderRejected)).To(BeTrue())
	})

	It("Should route statements by kind", func() {
		doer.reply = "100|OK|row"
		day := purchaseDay()
		_, err := c.RedemptionStatement(ctx, order.Statement{From: day, To: day})
		Expect(err).ToNot(HaveOccurred())
		_, err = c.AllotmentStatement(ctx, order.Statement{Redemption: true, From: day, To: day})
		Expect(err).ToNot(HaveOccurred())
		Expect(doer.calls[0].Method).To(Equal("getRedemptionStatement"))
		Expect(doer.calls[1].Method).To(Equal("getAllotmentStatement"))
	})

	It("Should submit with an explicit credential", func() {
		_, err := c.Submit(ctx, purchase(), "explicit")
		Expect(err).ToNot(HaveOccurred())
		Expect(doer.calls[0].Value("Password")).To(Equal("explicit"))
		Expect(auth.gets).To(BeZero())
	})

	It("Should record exchanges under the id returned in the result", func() {
		sink := &memorySink{}
		recorder := audit.NewRecorder(doer, sink, zap.NewNop())
		c = client.New(order.Account{UserID: "1234501", MemberID: "12345"}, "https://example.test", auth, recorder)
		res, err := c.PlaceLumpsum(ctx, purchase())
		Expect(err).ToNot(HaveOccurred())
		Expect(sink.exchanges).To(HaveLen(1))
		Expect(sink.exchanges[0].ID).To(Equal(res.Extra[order.ExtraExchangeID]))
		Expect(sink.exchanges[0].Request).ToNot(ContainSubstring("session-cred"))
		Expect(sink.exchanges[0].RefNo).To(Equal("REF1"))
	})
})
