package utility

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltLen  = 16
	nonceLen = 12 // GCM standard
	keyLen   = 32 // AES-256

	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
)

// Sealed carries an encrypted payload in the shape the API expects: three
// independent base64 fields. The server never sees the passphrase or the
// derived key.
type Sealed struct {
	Ciphertext string
	IV         string
	Salt       string
}

// GeneratePassphrase returns three random words joined by dashes.
func GeneratePassphrase() (string, error) {
	var words []string
	for i := 0; i < 3; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(wordlist))))
		if err != nil {
			return "", err
		}
		words = append(words, wordlist[n.Int64()])
	}
	return strings.Join(words, "-"), nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, keyLen)
}

// Seal encrypts plaintext with AES-256-GCM under a key derived from the
// passphrase with argon2id. Each call draws a fresh salt and nonce.
func Seal(plaintext []byte, passphrase string) (Sealed, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return Sealed{}, fmt.Errorf("salt: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return Sealed{}, fmt.Errorf("cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return Sealed{}, fmt.Errorf("gcm: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Sealed{}, fmt.Errorf("nonce: %w", err)
	}

	ct := gcm.Seal(nil, nonce, plaintext, nil)

	return Sealed{
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
		IV:         base64.StdEncoding.EncodeToString(nonce),
		Salt:       base64.StdEncoding.EncodeToString(salt),
	}, nil
}

// Open reverses Seal. A wrong passphrase fails authentication and returns
// an error rather than garbage.
func Open(sealed Sealed, passphrase string) ([]byte, error) {
	ct, err := base64.StdEncoding.DecodeString(sealed.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("ciphertext: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(sealed.IV)
	if err != nil {
		return nil, fmt.Errorf("iv: %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(sealed.Salt)
	if err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	if len(nonce) != nonceLen || len(salt) != saltLen {
		return nil, errors.New("malformed sealed payload")
	}

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}

	pt, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, errors.New("decryption failed")
	}
	return pt, nil
}
