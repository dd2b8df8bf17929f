package rawdata

import "context"

// Repository stores archived payloads. Rows are keyed by provider, sport
// and payload hash, so re-archiving an identical body is a no-op.
type Repository interface {
	UpsertMany(ctx context.Context, items []Payload) error
	ListRecent(ctx context.Context, providerID, sport string, limit int) ([]Payload, error)
}
