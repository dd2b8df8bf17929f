package rawdata

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Payload is one archived provider response body.
type Payload struct {
	RunID       string
	ProviderID  string
	Sport       string
	Kind        string
	SourceURL   string
	PayloadJSON string
	PayloadHash string
	FetchedAt   time.Time
}

// Hash returns the hex SHA-256 of a payload body.
func Hash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
