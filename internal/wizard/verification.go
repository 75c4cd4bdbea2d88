package wizard

import (
	"net/mail"
	"strings"
)

// CodeLength is the number of digits in a one-time code.
const CodeLength = 6

// Stage of the verification gate.
type Stage int

const (
	// StageDetails asks for the email address.
	StageDetails Stage = iota
	// StageCodeSent asks for the code that was emailed.
	StageCodeSent
)

// Verification is the state of the email verification gate in front of the analysis. Errors keep the gate
// open with an inline message.
type Verification struct {
	Open  bool
	Stage Stage
	Email string
	Error string
}

// NormalizeCode strips everything but digits from a typed code.
func NormalizeCode(code string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, code)
}

// ValidCode reports whether code consists of exactly [CodeLength] ASCII digits.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeEmail trims the address and reports whether it looks deliverable.
func NormalizeEmail(email string) (string, bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return email, false
	}
	return email, true
}
