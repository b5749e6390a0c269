package domain

const (
	// PermanentTTL marks a secret that never expires.
	PermanentTTL = 9999999999

	// MaxCiphertextSize is the maximum allowed ciphertext size (2 MiB).
	MaxCiphertextSize = 2 * 1024 * 1024

	// MaxIVSize and MaxSaltSize bound the client-supplied key material blobs.
	MaxIVSize   = 256
	MaxSaltSize = 256

	// MaxLabelLength bounds the user-supplied display name after sanitization.
	MaxLabelLength = 100

	// MaxTTLDays is the longest expiry a creator may request. 0 means permanent.
	MaxTTLDays = 365

	// IDLength is the length of generated secret identifiers.
	IDLength = 25

	// MaxIDLength is the longest identifier accepted on the wire.
	MaxIDLength = 64

	// DefaultPageSize and MaxPageSize bound listing pagination.
	DefaultPageSize = 10
	MaxPageSize     = 50

	// MaxRequestBodySize is the maximum allowed request body size.
	// Slightly larger than MaxCiphertextSize to account for JSON overhead
	// and the remaining fields.
	MaxRequestBodySize = MaxCiphertextSize + 4096
)
