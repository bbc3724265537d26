package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"time"
)

// ReservationCodeLength is the length of the numeric access code handed
// to the guest once at reservation time.
const ReservationCodeLength = 6

// ReservationWindow is how long a reservation holds a gift before it is
// considered stale.
const ReservationWindow = 48 * time.Hour

// GenerateReservationCode produces a 6-digit numeric code via
// crypto/rand. Uniqueness across the gift tables is the caller's job.
func GenerateReservationCode() (string, error) {
	var sb strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < ReservationCodeLength; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}

// IsValidReservationCode checks the 6-digit format without touching the
// database.
func IsValidReservationCode(code string) bool {
	if len(code) != ReservationCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// NormalizePhone strips everything but digits.
func NormalizePhone(phone string) string {
	var sb strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// HashPhone returns the SHA-256 hex digest of the normalized phone.
// One-way; only the masked display form is ever shown again.
func HashPhone(phone string) string {
	sum := sha256.Sum256([]byte(NormalizePhone(phone)))
	return hex.EncodeToString(sum[:])
}

// MaskPhoneForDisplay masks a Brazilian phone for public display.
// (11) 98765-4321 -> (11) ****-4321
func MaskPhoneForDisplay(phone string) string {
	digits := NormalizePhone(phone)
	switch len(digits) {
	case 11:
		return "(" + digits[:2] + ") ****-" + digits[7:]
	case 10:
		return "(" + digits[:2] + ") ****-" + digits[6:]
	}
	if len(digits) < 4 {
		return "****-" + digits
	}
	return "****-" + digits[len(digits)-4:]
}

// ReservationExpiry returns the instant a reservation made now goes
// stale.
func ReservationExpiry(now time.Time) time.Time {
	return now.Add(ReservationWindow)
}

// IsReservationExpired reports whether reserved_until has passed. A nil
// expiry never expires.
func IsReservationExpired(reservedUntil *time.Time, now time.Time) bool {
	if reservedUntil == nil {
		return false
	}
	return now.After(*reservedUntil)
}

// ErrCodeExhausted is returned when the unique-code retry loop gives up.
var ErrCodeExhausted = errors.New("could not generate a unique reservation code")
