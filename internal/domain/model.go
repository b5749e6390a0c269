package domain

// Secret is the sole persistent entity: an opaque client-encrypted payload
// plus the metadata the lifecycle engine manages. The engine never sees a
// plaintext key; Ciphertext, IV and Salt are blobs produced by the client.
type Secret struct {
	ID         string
	Ciphertext string
	IV         string
	Salt       string
	TTL        int64 // unix seconds, or PermanentTTL
	OwnerID    string
	CreatorID  string
	Label      string
	CreatedAt  int64 // unix seconds
}

// Unclaimed reports whether ownership has not yet transferred.
func (s Secret) Unclaimed() bool { return s.OwnerID == "" }

// Permanent reports whether the secret carries the never-expire sentinel.
func (s Secret) Permanent() bool { return s.TTL == PermanentTTL }

// Expired reports whether the secret is logically dead at the given time.
// Permanent secrets never expire.
func (s Secret) Expired(now int64) bool {
	return !s.Permanent() && s.TTL < now
}
