package onboarding

import (
	"crypto/rand"
	"errors"
	"math/big"
	"unicode"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the floor for supplied passwords.
const MinPasswordLength = 8

// GeneratedPasswordLength is used when the platform creates a
// password on behalf of an organization account.
const GeneratedPasswordLength = 16

const bcryptCost = 14

// HashPassword generates a bcrypt hash for the given password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", goerrors.New("password must not be empty", goerrors.CategoryValidation).
			WithTextCode(TextCodeWeakPassword)
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}
	return string(h), nil
}

// ComparePasswordAndHash validates the cleartext password against the
// stored hash.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compare password hash")
	}
	return nil
}

// ValidatePasswordStrength enforces the composition policy: minimum
// length plus at least one upper, lower, digit, and symbol rune.
func ValidatePasswordStrength(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		return ErrWeakPassword
	}
	return nil
}

const (
	passwordUpper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	passwordLower   = "abcdefghijkmnopqrstuvwxyz"
	passwordDigits  = "23456789"
	passwordSymbols = "!@#$%^&*-_=+?"
)

// GeneratePassword creates a random password that satisfies
// ValidatePasswordStrength. Used for organization accounts registered
// without a password.
func GeneratePassword(length int) string {
	if length < MinPasswordLength {
		length = MinPasswordLength
	}

	alphabet := passwordUpper + passwordLower + passwordDigits + passwordSymbols
	buf := make([]byte, length)

	// one rune from each class keeps the composition guarantee
	buf[0] = randomByte(passwordUpper)
	buf[1] = randomByte(passwordLower)
	buf[2] = randomByte(passwordDigits)
	buf[3] = randomByte(passwordSymbols)
	for i := 4; i < length; i++ {
		buf[i] = randomByte(alphabet)
	}

	for i := len(buf) - 1; i > 0; i-- {
		j := randomInt(i + 1)
		buf[i], buf[j] = buf[j], buf[i]
	}

	return string(buf)
}

func randomByte(alphabet string) byte {
	return alphabet[randomInt(len(alphabet))]
}

func randomInt(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		// crypto/rand only fails when the platform source is broken
		panic(err)
	}
	return int(n.Int64())
}
