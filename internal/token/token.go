// Package token generates opaque invitation tokens.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

// tokenBytes gives 256 bits of entropy, comfortably above the minimum an
// emailed single-use credential needs.
const tokenBytes = 32

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// New returns a hex-encoded random token suitable for invitation links.
func New() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// IsValid reports whether s has the shape of a token issued by New.
// It says nothing about whether the token exists.
func IsValid(s string) bool {
	return tokenPattern.MatchString(s)
}
