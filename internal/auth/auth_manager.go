package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sabarim/starmf/internal/errs"
	"github.com/sabarim/starmf/internal/order"
	"github.com/sabarim/starmf/internal/protocol"
)

const refreshKey = "session"

// Login performs one remote authentication call.
type Login interface {
	Login(ctx context.Context, passKey string) (protocol.AuthReply, error)
}

// Authenticator owns the session credential of one member account. It is
// safe for concurrent use; at most one remote login is in flight at a time.
type Authenticator struct {
	login       Login
	validity    time.Duration
	maxAttempts int
	autoReauth  bool
	now         func() time.Time
	logger      *zap.Logger

	// authMu serializes remote logins.
	authMu sync.Mutex
	flight singleflight.Group

	mu      sync.Mutex
	state   State
	session session
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithValidity sets how long a credential is trusted after login.
func WithValidity(d time.Duration) Option {
	return func(a *Authenticator) { a.validity = d }
}

// WithMaxAttempts sets how many invalid-account rejections lock the account.
func WithMaxAttempts(n int) Option {
	return func(a *Authenticator) { a.maxAttempts = n }
}

// WithAutoReauth toggles re-authentication with the last pass key on expiry.
func WithAutoReauth(enabled bool) Option {
	return func(a *Authenticator) { a.autoReauth = enabled }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Authenticator) { a.logger = logger }
}

// NewAuthenticator creates an authenticator on top of a remote login. It
// fails with BlankCredentialError when any static credential is blank.
func NewAuthenticator(creds Credentials, login Login, opts ...Option) (*Authenticator, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}
	a := &Authenticator{
		login:       login,
		validity:    DefaultValidity(FamilyOrderEntry),
		maxAttempts: 5,
		autoReauth:  true,
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("auth")
	return a, nil
}

// Authenticate logs in with passKey and caches the returned credential.
func (a *Authenticator) Authenticate(ctx context.Context, passKey string) error {
	passKey = strings.TrimSpace(passKey)
	if passKey == "" {
		return errs.New(errs.KindBlankPassKey, "[auth] - pass key is blank")
	}
	if !order.IsAlnum(passKey) {
		return errs.Field("PassKey", "must be alphanumeric")
	}
	a.authMu.Lock()
	defer a.authMu.Unlock()
	return a.authenticate(ctx, passKey)
}

// authenticate must be called with authMu held.
func (a *Authenticator) authenticate(ctx context.Context, passKey string) error {
	a.mu.Lock()
	if a.state == StateLocked {
		attempts := a.session.loginAttempts
		a.mu.Unlock()
		return errs.Newf(errs.KindMaxLoginAttempts, "[auth] - account locked after %d failed logins", attempts)
	}
	previous := a.state
	a.state = StateAuthenticating
	a.mu.Unlock()

	reply, err := a.login.Login(ctx, passKey)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		// the remote side never answered, the session is unchanged
		a.state = previous
		a.logger.Warn("login call failed", zap.Error(err))
		return err
	}

	if reply.OK() {
		a.session = session{
			credential:  reply.Credential,
			validUntil:  a.now().Add(a.validity),
			lastPassKey: passKey,
		}
		a.state = StateAuthenticated
		a.logger.Info("authenticated", zap.Time("valid_until", a.session.validUntil))
		return nil
	}

	kind, mapped := Classify(reply.Message)
	if !mapped {
		a.logger.Warn("unmapped authentication failure",
			zap.String("code", reply.Code),
			zap.String("message", reply.Message),
		)
	}

	attempts := a.session.loginAttempts
	a.session = session{loginAttempts: attempts}
	a.state = StateUnauthenticated

	switch kind {
	case errs.KindInvalidAccount:
		a.session.loginAttempts++
		if a.maxAttempts > 0 && a.session.loginAttempts >= a.maxAttempts {
			a.state = StateLocked
			a.logger.Error("account locked", zap.Int("attempts", a.session.loginAttempts))
			return errs.Auth(errs.KindMaxLoginAttempts, reply.Code, reply.Message)
		}
	case errs.KindMaxLoginAttempts:
		a.state = StateLocked
		a.logger.Error("account locked by remote side", zap.String("message", reply.Message))
	}
	return errs.Auth(kind, reply.Code, reply.Message)
}

// IsValid reports whether a credential is cached and unexpired.
func (a *Authenticator) IsValid() bool {
	_, ok := a.current()
	return ok
}

// current returns the cached credential, dropping it once it has expired.
func (a *Authenticator) current() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session.credential == "" {
		return "", false
	}
	if !a.now().Before(a.session.validUntil) {
		a.session.credential = ""
		a.session.validUntil = time.Time{}
		if a.state == StateAuthenticated {
			a.state = StateExpired
		}
		return "", false
	}
	return a.session.credential, true
}

// GetCredential returns the cached credential, re-authenticating with the
// last pass key when it has expired. Concurrent callers share one refresh.
func (a *Authenticator) GetCredential(ctx context.Context) (string, error) {
	if cred, ok := a.current(); ok {
		return cred, nil
	}
	if err := a.canRefresh(); err != nil {
		return "", err
	}

	ch := a.flight.DoChan(refreshKey, func() (interface{}, error) {
		a.authMu.Lock()
		defer a.authMu.Unlock()
		if cred, ok := a.current(); ok {
			return cred, nil
		}
		if err := a.canRefresh(); err != nil {
			return "", err
		}
		a.mu.Lock()
		passKey := a.session.lastPassKey
		a.mu.Unlock()

		a.logger.Info("session expired, re-authenticating")
		// detached: waiters other than the first caller share this login
		if err := a.authenticate(context.WithoutCancel(ctx), passKey); err != nil {
			return "", err
		}
		cred, _ := a.current()
		return cred, nil
	})

	select {
	case <-ctx.Done():
		return "", errs.Transport(ctx.Err(), false, "[auth] - gave up waiting for re-authentication")
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (a *Authenticator) canRefresh() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.state == StateLocked:
		return errs.Newf(errs.KindMaxLoginAttempts, "[auth] - account locked after %d failed logins", a.session.loginAttempts)
	case !a.autoReauth || a.session.lastPassKey == "":
		return errs.New(errs.KindSessionExpired, "[auth] - session expired, cannot reauthenticate")
	}
	return nil
}

// Logout forgets the session. A locked account stays locked.
func (a *Authenticator) Logout() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = session{}
	if a.state != StateLocked {
		a.state = StateUnauthenticated
	}
	a.logger.Info("logged out")
}

// State reports the lifecycle state.
func (a *Authenticator) State() State {
	a.current()
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Snapshot returns a copy of the session bookkeeping without the credential.
func (a *Authenticator) Snapshot() Snapshot {
	state := a.State()
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		State:         state,
		ValidUntil:    a.session.validUntil,
		LoginAttempts: a.session.loginAttempts,
		HasPassKey:    a.session.lastPassKey != "",
	}
}
