package secret

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"inigma/internal/domain"
)

// Identifiers and client uids share one URL-safe alphabet.
var idRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func validID(id string) bool   { return idRe.MatchString(id) }
func validUID(uid string) bool { return idRe.MatchString(uid) }

// validatePayload checks the opaque client blobs on create and claim. The
// engine only enforces presence and size; the contents are ciphertext it
// never interprets.
func validatePayload(ciphertext, iv, salt string) error {
	if ciphertext == "" || iv == "" || salt == "" {
		return fmt.Errorf("%w: encrypted_message, iv and salt are required", domain.ErrInvalidInput)
	}
	if len(ciphertext) > domain.MaxCiphertextSize {
		return fmt.Errorf("%w: encrypted_message exceeds %d bytes", domain.ErrInvalidInput, domain.MaxCiphertextSize)
	}
	if len(iv) > domain.MaxIVSize {
		return fmt.Errorf("%w: iv exceeds %d bytes", domain.ErrInvalidInput, domain.MaxIVSize)
	}
	if len(salt) > domain.MaxSaltSize {
		return fmt.Errorf("%w: salt exceeds %d bytes", domain.ErrInvalidInput, domain.MaxSaltSize)
	}
	return nil
}

// sanitizeLabel strips control characters and HTML-significant runes from a
// display name and trims surrounding space. Length is checked after
// sanitization.
func sanitizeLabel(label string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return -1
		case r == '<' || r == '>' || r == '&' || r == '"' || r == '\'':
			return -1
		default:
			return r
		}
	}, label)
	cleaned = strings.TrimSpace(cleaned)
	if utf8.RuneCountInString(cleaned) > domain.MaxLabelLength {
		return "", fmt.Errorf("%w: custom_name exceeds %d characters", domain.ErrInvalidInput, domain.MaxLabelLength)
	}
	return cleaned, nil
}
