package auth

import (
	"strings"

	"github.com/sabarim/starmf/internal/errs"
)

// authMessages maps remote failure text to a taxonomy kind. Entries are
// matched in order against the upper-cased message.
var authMessages = []struct {
	substr string
	kind   errs.Kind
}{
	{"MAX_LOGIN_ATTEMPTS", errs.KindMaxLoginAttempts},
	{"EXCEEDED MAXIMUM LOGIN", errs.KindMaxLoginAttempts},
	{"USER_DISABLED", errs.KindUserDisabled},
	{"USER DISABLED", errs.KindUserDisabled},
	{"USER IS DISABLED", errs.KindUserDisabled},
	{"PASSWORD_EXPIRED", errs.KindPasswordExpired},
	{"PASSWORD EXPIRED", errs.KindPasswordExpired},
	{"USER_NOT_EXISTS", errs.KindUserNotFound},
	{"USER NOT EXISTS", errs.KindUserNotFound},
	{"BRANCH_SUSPENDED", errs.KindAccessSuspended},
	{"MEMBER_SUSPENDED", errs.KindAccessSuspended},
	{"MEMBER IS SUSPENDED", errs.KindAccessSuspended},
	{"ACCESS_SUSPENDED", errs.KindAccessSuspended},
	{"ACCESS TEMPORARILY SUSPENDED", errs.KindAccessSuspended},
	{"INVALID_ACCOUNT", errs.KindInvalidAccount},
	{"INVALID ACCOUNT", errs.KindInvalidAccount},
	{"INVALID USER ID OR PASSWORD", errs.KindInvalidAccount},
}

// Classify maps a remote authentication failure message to a kind. The
// second result is false when nothing matched and the generic
// AuthenticationError kind was returned.
func Classify(message string) (errs.Kind, bool) {
	upper := strings.ToUpper(message)
	for _, m := range authMessages {
		if strings.Contains(upper, m.substr) {
			return m.kind, true
		}
	}
	return errs.KindAuthentication, false
}
