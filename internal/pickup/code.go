// Package pickup issues and validates the short codes customers present at the
// counter. A code is a one-letter prefix naming the payment path followed by six
// digits: C for cash orders, P for orders pre-paid in the app.
package pickup

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"leaf-kart/internal/model"
)

const (
	// CodeDigits is the number of random digits after the prefix.
	CodeDigits = 6

	PrefixCash    = 'C'
	PrefixPrepaid = 'P'
)

// Path identifies which staff lookup screen a code is presented on.
type Path string

const (
	PathAny     Path = "any"
	PathCash    Path = "cash"
	PathPrepaid Path = "prepaid"
)

var codePattern = regexp.MustCompile(`^[CP][0-9]{6}$`)

var digitSpace = big.NewInt(1_000_000)

// PrefixFor returns the code prefix for a payment method.
func PrefixFor(method model.PaymentMethod) (byte, error) {
	switch method {
	case model.PaymentMethodCash:
		return PrefixCash, nil
	case model.PaymentMethodInAppCard:
		return PrefixPrepaid, nil
	default:
		return 0, model.ErrInvalidPaymentMethod
	}
}

// Generate returns a fresh random code for the payment method.
func Generate(method model.PaymentMethod) (string, error) {
	prefix, err := PrefixFor(method)
	if err != nil {
		return "", err
	}

	n, err := rand.Int(rand.Reader, digitSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate pickup code: %w", err)
	}

	return fmt.Sprintf("%c%0*d", prefix, CodeDigits, n.Int64()), nil
}

// Normalize trims whitespace and upper-cases code so lookups are
// case-insensitive.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks that a normalized code has the issued shape.
func Validate(code string) error {
	if !codePattern.MatchString(code) {
		return model.ErrInvalidPickupCode
	}
	return nil
}

// PathOf returns the lookup path a valid code belongs to.
func PathOf(code string) Path {
	if len(code) > 0 && code[0] == PrefixCash {
		return PathCash
	}
	return PathPrepaid
}

// ParsePath parses a lookup screen name. Empty means PathAny.
func ParsePath(s string) (Path, error) {
	switch Path(strings.ToLower(s)) {
	case "", PathAny:
		return PathAny, nil
	case PathCash:
		return PathCash, nil
	case PathPrepaid:
		return PathPrepaid, nil
	default:
		return "", model.NewValidationError(fmt.Sprintf("unknown lookup path %q", s))
	}
}

// CheckPath normalizes and validates code and verifies it belongs to path.
// A well-formed code presented on the other screen yields
// model.ErrWrongLookupPath, never a not-found.
func CheckPath(code string, path Path) (string, error) {
	code = Normalize(code)
	if err := Validate(code); err != nil {
		return "", err
	}
	if path != PathAny && PathOf(code) != path {
		return "", model.ErrWrongLookupPath
	}
	return code, nil
}
