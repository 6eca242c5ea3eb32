package order

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Rule checks a single non-empty field value and returns a violation
// message, or "" when the value is acceptable.
type Rule func(value string) string

// DateLayout is the wire format of every date field.
const DateLayout = "02/01/2006"

var (
	refNoPattern  = regexp.MustCompile(`^[A-Za-z0-9]{1,19}$`)
	euinPattern   = regexp.MustCompile(`^[A-Z0-9]{1,20}$`)
	arnPattern    = regexp.MustCompile(`^[A-Z0-9]{1,15}$`)
	alnumPattern  = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

// All combines rules, reporting the first violation.
func All(rules ...Rule) Rule {
	return func(value string) string {
		for _, r := range rules {
			if msg := r(value); msg != "" {
				return msg
			}
		}
		return ""
	}
}

func MaxLen(n int) Rule {
	return func(value string) string {
		if len(value) > n {
			return fmt.Sprintf("must be at most %d characters", n)
		}
		return ""
	}
}

func Pattern(re *regexp.Regexp, what string) Rule {
	return func(value string) string {
		if !re.MatchString(value) {
			return "must be " + what
		}
		return ""
	}
}

func OneOf(allowed ...string) Rule {
	return func(value string) string {
		for _, a := range allowed {
			if value == a {
				return ""
			}
		}
		return "must be one of " + strings.Join(allowed, ", ")
	}
}

func Date(value string) string {
	if _, err := time.Parse(DateLayout, value); err != nil {
		return "must be a date in DD/MM/YYYY format"
	}
	return ""
}

func Positive(value string) string {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return "must be numeric"
	}
	if !d.IsPositive() {
		return "must be greater than zero"
	}
	return ""
}

func IntRange(min, max int) Rule {
	return func(value string) string {
		n, err := strconv.Atoi(value)
		if err != nil {
			return "must be a whole number"
		}
		if n < min || n > max {
			return fmt.Sprintf("must be between %d and %d", min, max)
		}
		return ""
	}
}

func IPv4(value string) string {
	ip := net.ParseIP(value)
	if ip == nil || ip.To4() == nil || !strings.Contains(value, ".") {
		return "must be an IPv4 address"
	}
	return ""
}

var (
	YesNo     = OneOf("Y", "N")
	Code      = MaxLen(20)
	RefNo     = Pattern(refNoPattern, "1 to 19 letters or digits")
	EUIN      = Pattern(euinPattern, "1 to 20 upper case letters or digits")
	ARN       = Pattern(arnPattern, "1 to 15 upper case letters or digits")
	Alnum     = Pattern(alnumPattern, "alphanumeric")
	Mobile    = Pattern(mobilePattern, "a 10 digit number")
	BuySell   = OneOf("P", "R")
	DPTxn     = OneOf("C", "N", "P")
	Frequency = OneOf("MONTHLY", "QUARTERLY", "WEEKLY", "DAILY")
)

// IsAlnum reports whether s is a non-empty run of ASCII letters and digits.
func IsAlnum(s string) bool { return alnumPattern.MatchString(s) }
