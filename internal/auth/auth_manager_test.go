package auth_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabarim/starmf/internal/auth"
	"github.com/sabarim/starmf/internal/errs"
	"github.com/sabarim/starmf/internal/protocol"
)

var creds = auth.Credentials{UserID: "1234501", MemberID: "12345", Password: "secret"}

var _ = Describe("Authenticator", func() {
	var (
		ctx   context.Context
		login *fakeLogin
		clk   *clock
		a     *auth.Authenticator
	)
	newAuthenticator := func(opts ...auth.Option) *auth.Authenticator {
		opts = append([]auth.Option{auth.WithClock(clk.Now), auth.WithValidity(time.Hour)}, opts...)
		au, err := auth.NewAuthenticator(creds, login, opts...)
		Expect(err).ToNot(HaveOccurred())
		return au
	}
	BeforeEach(func() {
		ctx = context.Background()
		login = &fakeLogin{replies: []protocol.AuthReply{ok("cred-1"), ok("cred-2")}}
		clk = &clock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
		a = newAuthenticator()
	})

	Describe("NewAuthenticator", func() {
		It("Should reject blank static credentials", func() {
			_, err := auth.NewAuthenticator(auth.Credentials{UserID: "u", MemberID: " "}, login)
			Expect(errors.Is(err, errs.ErrBlankCredential)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("member id, password"))
		})
		It("Should start unauthenticated", func() {
			Expect(a.State()).To(Equal(auth.StateUnauthenticated))
			Expect(a.IsValid()).To(BeFalse())
		})
	})

	Describe("Authenticate", func() {
		It("Should cache the credential on success", func() {
			Expect(a.Authenticate(ctx, "abc123")).To(Succeed())
			Expect(a.State()).To(Equal(auth.StateAuthenticated))
			Expect(a.IsValid()).To(BeTrue())
			cred, err := a.GetCredential(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(cred).To(Equal("cred-1"))
			Expect(login.Calls()).To(Equal(1))
		})
		It("Should reject a blank pass key without a remote call", func() {
			err := a.Authenticate(ctx, "  ")
			Expect(errors.Is(err, errs.ErrBlankPassKey)).To(BeTrue())
			Expect(login.Calls()).To(BeZero())
		})
		It("Should reject a pass key with symbols", func() {
			err := a.Authenticate(ctx, "abc-123")
			Expect(errors.Is(err, errs.ErrValidation)).To(BeTrue())
			Expect(login.Calls()).To(BeZero())
		})
		It("Should map remote failures to kinds", func() {
			login.replies = []protocol.AuthReply{fail("FAILED: LOGIN PASSWORD EXPIRED")}
			err := a.Authenticate(ctx, "abc123")
			e, ok := errs.As(err)
			Expect(ok).To(BeTrue())
			Expect(e.Kind).To(Equal(errs.KindPasswordExpired))
			Expect(e.Code).To(Equal("101"))
			Expect(e.Message).To(Equal("FAILED: LOGIN PASSWORD EXPIRED"))
			Expect(a.State()).To(Equal(auth.StateUnauthenticated))
		})
		It("Should fall back to a generic authentication error", func() {
			login.replies = []protocol.AuthReply{fail("SOMETHING ELSE")}
			Expect(errs.IsKind(a.Authenticate(ctx, "abc123"), errs.KindAuthentication)).To(BeTrue())
		})
		It("Should leave the state alone when the call itself fails", func() {
			Expect(a.Authenticate(ctx, "abc123")).To(Succeed())
			login.err = errs.Transport(io.EOF, true, "reset")
			err := a.Authenticate(ctx, "abc123")
			Expect(errs.IsKind(err, errs.KindTransport)).To(BeTrue())
			Expect(a.State()).To(Equal(auth.StateAuthenticated))
		})
	})

	Describe("Lockout", func() {
		BeforeEach(func() {
			login.replies = []protocol.AuthReply{fail("FAILED: INVALID ACCOUNT")}
		})
		It("Should lock after the maximum invalid account attempts", func() {
			for i := 0; i < 4; i++ {
				Expect(errs.IsKind(a.Authenticate(ctx, "abc123"), errs.KindInvalidAccount)).To(BeTrue())
			}
			Expect(a.Snapshot().LoginAttempts).To(Equal(4))
			Expect(errs.IsKind(a.Authenticate(ctx, "abc123"), errs.KindMaxLoginAttempts)).To(BeTrue())
			Expect(a.State()).To(Equal(auth.StateLocked))
		})
		It("Should refuse further logins once locked", func() {
			a = newAuthenticator(auth.WithMaxAttempts(1))
			Expect(errs.IsKind(a.Authenticate(ctx, "abc123"), errs.KindMaxLoginAttempts)).To(BeTrue())
			login.replies = []protocol.AuthReply{ok("cred")}
			Expect(errs.IsKind(a.Authenticate(ctx, "abc123"), errs.KindMaxLoginAttempts)).To(BeTrue())
			Expect(login.Calls()).To(Equal(1))
		})
		It("Should stay locked after logout", func() {
			a = newAuthenticator(auth.WithMaxAttempts(1))
			Expect(a.Authenticate(ctx, "abc123")).ToNot(Succeed())
			a.Logout()
			Expect(a.State()).To(Equal(auth.StateLocked))
			_, err := a.GetCredential(ctx)
			Expect(errs.IsKind(err, errs.KindMaxLoginAttempts)).To(BeTrue())
		})
		It("Should lock immediately when the remote side reports the limit", func() {
			login.replies = []protocol.AuthReply{fail("FAILED: YOU HAVE EXCEEDED MAXIMUM LOGIN ATTEMPTS")}
			Expect(errs.IsKind(a.Authenticate(ctx, "abc123"), errs.KindMaxLoginAttempts)).To(BeTrue())
			Expect(a.State()).To(Equal(auth.StateLocked))
		})
		It("Should not count other failures", func() {
			login.replies = []protocol.AuthReply{fail("FAILED: USER NOT EXISTS")}
			for i := 0; i < 6; i++ {
				Expect(errs.IsKind(a.Authenticate(ctx, "abc123"), errs.KindUserNotFound)).To(BeTrue())
			}
			Expect(a.State()).To(Equal(auth.StateUnauthenticated))
			Expect(a.Snapshot().LoginAttempts).To(BeZero())
		})
	})

	Describe("Expiry", func() {
		BeforeEach(func() {
			Expect(a.Authenticate(ctx, "abc123")).To(Succeed())
		})
		It("Should expire after the validity window", func() {
			clk.Advance(59 * time.Minute)
			Expect(a.IsValid()).To(BeTrue())
			clk.Advance(time.Minute)
			Expect(a.IsValid()).To(BeFalse())
			Expect(a.State()).To(Equal(auth.StateExpired))
		})
		It("Should re-authenticate with the last pass key", func() {
			clk.Advance(2 * time.Hour)
			cred, err := a.GetCredential(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(cred).To(Equal("cred-2"))
			Expect(login.Calls()).To(Equal(2))
			Expect(a.State()).To(Equal(auth.StateAuthenticated))
		})
		It("Should share one refresh between concurrent callers", func() {
			clk.Advance(2 * time.Hour)
			login.delay = 50 * time.Millisecond
			var (
				wg  sync.WaitGroup
				mu  sync.Mutex
				got []string
			)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					cred, err := a.GetCredential(ctx)
					Expect(err).ToNot(HaveOccurred())
					mu.Lock()
					got = append(got, cred)
					mu.Unlock()
				}()
			}
			wg.Wait()
			Expect(login.Calls()).To(Equal(2))
			Expect(got).To(HaveLen(10))
			for _, c := range got {
				Expect(c).To(Equal("cred-2"))
			}
		})
		It("Should report an expired session when re-authentication is off", func() {
			a = newAuthenticator(auth.WithAutoReauth(false))
			Expect(a.Authenticate(ctx, "abc123")).To(Succeed())
			clk.Advance(2 * time.Hour)
			_, err := a.GetCredential(ctx)
			Expect(errors.Is(err, errs.ErrSessionExpired)).To(BeTrue())
		})
		It("Should not wait past the caller's deadline", func() {
			clk.Advance(2 * time.Hour)
			login.delay = 200 * time.Millisecond
			cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()
			_, err := a.GetCredential(cctx)
			Expect(errs.IsKind(err, errs.KindTransport)).To(BeTrue())
			Eventually(a.IsValid).Should(BeTrue())
		})
	})

	Describe("Logout", func() {
		It("Should forget the session", func() {
			Expect(a.Authenticate(ctx, "abc123")).To(Succeed())
			a.Logout()
			Expect(a.IsValid()).To(BeFalse())
			Expect(a.State()).To(Equal(auth.StateUnauthenticated))
			_, err := a.GetCredential(ctx)
			Expect(errs.IsKind(err, errs.KindSessionExpired)).To(BeTrue())
			Expect(a.Snapshot().HasPassKey).To(BeFalse())
		})
	})
})
