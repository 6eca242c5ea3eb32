package auth

import (
	"strings"
	"time"

	"github.com/sabarim/starmf/internal/errs"
	"github.com/sabarim/starmf/internal/order"
)

// Credentials are the static login details of one member account.
type Credentials struct {
	UserID   string
	MemberID string
	Password string
}

// Account returns the identifiers placed in every request.
func (c Credentials) Account() order.Account {
	return order.Account{UserID: c.UserID, MemberID: c.MemberID}
}

func (c Credentials) validate() error {
	var missing []string
	if strings.TrimSpace(c.UserID) == "" {
		missing = append(missing, "user id")
	}
	if strings.TrimSpace(c.MemberID) == "" {
		missing = append(missing, "member id")
	}
	if strings.TrimSpace(c.Password) == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return errs.Newf(errs.KindBlankCredential, "[auth] - blank %s", strings.Join(missing, ", "))
	}
	return nil
}

// State is the authenticator's position in the session lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
	StateExpired
	StateLocked
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateExpired:
		return "EXPIRED"
	case StateLocked:
		return "LOCKED"
	}
	return "UNKNOWN"
}

// session is the cached remote credential. credential is non-empty only
// while validUntil is in the future.
type session struct {
	credential    string
	validUntil    time.Time
	lastPassKey   string
	loginAttempts int
}

// Snapshot is a read-only view of the cached session for diagnostics.
type Snapshot struct {
	State         State
	ValidUntil    time.Time
	LoginAttempts int
	HasPassKey    bool
}

// Family is a group of remote endpoints sharing a session lifetime.
type Family string

const (
	FamilyOrderEntry Family = "order_entry"
	FamilyUpload     Family = "upload"
)

// DefaultValidity is the session lifetime the remote side grants per family.
func DefaultValidity(f Family) time.Duration {
	if f == FamilyOrderEntry {
		return time.Hour
	}
	return 15 * time.Minute
}
