package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

var (
	angleBrackets = strings.NewReplacer("<", "", ">", "")
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// Sanitize strips angle brackets and surrounding whitespace.
func Sanitize(s string) string {
	return strings.TrimSpace(angleBrackets.Replace(s))
}

// NormalizeEmail sanitizes and lower-cases an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(Sanitize(s))
}

// Email reports whether an already-normalized address is acceptable.
func Email(email string) bool {
	if email == "" || !emailPattern.MatchString(email) {
		return false
	}
	return v.Var(email, "required,email,max=254") == nil
}

// Domain returns the part after the last '@', or "" when absent.
func Domain(email string) string {
	i := strings.LastIndexByte(email, '@')
	if i < 0 || i == len(email)-1 {
		return ""
	}
	return email[i+1:]
}
