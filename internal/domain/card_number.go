package domain

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const cardNumberLength = 16

// GenerateCardNumber returns a random 16-digit card number starting with bin
// and ending with a Luhn check digit. Uniqueness is enforced by the store.
func GenerateCardNumber(bin string) (string, error) {
	if bin == "" || !isDigits(bin) {
		return "", fmt.Errorf("bin must contain digits only")
	}
	fill := cardNumberLength - 1 - len(bin)
	if fill <= 0 {
		return "", fmt.Errorf("bin too long: %d digits", len(bin))
	}

	digits, err := randomDigits(fill)
	if err != nil {
		return "", fmt.Errorf("failed to read random digits: %w", err)
	}

	body := bin + digits
	return body + string(luhnCheckDigit(body)), nil
}

// ValidateCardNumber checks length (13..19), digits and the Luhn check digit.
func ValidateCardNumber(number string) error {
	if !isDigits(number) {
		return ErrCardNumberInvalid
	}
	if l := len(number); l < 13 || l > 19 {
		return ErrCardNumberInvalid
	}
	if number[len(number)-1] != luhnCheckDigit(number[:len(number)-1]) {
		return ErrCardNumberInvalid
	}
	return nil
}

// MaskCardNumber keeps the first six and last four digits.
func MaskCardNumber(number string) string {
	n := len(number)
	switch {
	case n == 0:
		return ""
	case n <= 4:
		return strings.Repeat("*", n)
	case n < 10:
		return strings.Repeat("*", n-4) + number[n-4:]
	default:
		return number[:6] + strings.Repeat("*", n-10) + number[n-4:]
	}
}

// randomDigits uses rejection sampling so every digit is equally likely.
func randomDigits(count int) (string, error) {
	const threshold = 250
	var sb strings.Builder
	sb.Grow(count)
	buf := make([]byte, 32)
	for sb.Len() < count {
		n, err := rand.Read(buf)
		if err != nil {
			return "", err
		}
		for i := 0; i < n && sb.Len() < count; i++ {
			if buf[i] < threshold {
				sb.WriteByte('0' + buf[i]%10)
			}
		}
	}
	return sb.String(), nil
}

func luhnCheckDigit(body string) byte {
	sum, double := 0, true
	for i := len(body) - 1; i >= 0; i-- {
		d := int(body[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return byte('0' + (10-sum%10)%10)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
