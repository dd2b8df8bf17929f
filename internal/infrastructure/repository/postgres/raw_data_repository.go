package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/propboard/internal/domain/rawdata"
)

const upsertRawPayloadQuery = `
INSERT INTO raw_provider_payloads (
    run_id, provider_id, sport, kind, source_url, payload, payload_hash, fetched_at
) VALUES (
    :run_id, :provider_id, :sport, :kind, :source_url, :payload, :payload_hash, :fetched_at
)
ON CONFLICT (provider_id, sport, payload_hash)
DO UPDATE SET
    run_id = EXCLUDED.run_id,
    kind = EXCLUDED.kind,
    source_url = EXCLUDED.source_url,
    fetched_at = EXCLUDED.fetched_at,
    ingested_at = NOW()`

const listRecentRawPayloadsQuery = `
SELECT run_id, provider_id, sport, kind, source_url, payload, payload_hash, fetched_at
FROM raw_provider_payloads
WHERE provider_id = $1 AND sport = $2
ORDER BY fetched_at DESC, payload_hash
LIMIT $3`

type RawDataRepository struct {
	db *sqlx.DB
}

func NewRawDataRepository(db *sqlx.DB) *RawDataRepository {
	return &RawDataRepository{db: db}
}

func (r *RawDataRepository) UpsertMany(ctx context.Context, items []rawdata.Payload) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert raw payloads: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		row := rawPayloadRow{
			RunID:       nullableString(item.RunID),
			ProviderID:  item.ProviderID,
			Sport:       item.Sport,
			Kind:        item.Kind,
			SourceURL:   nullableString(item.SourceURL),
			Payload:     item.PayloadJSON,
			PayloadHash: item.PayloadHash,
			FetchedAt:   item.FetchedAt.UTC(),
		}
		if _, err := tx.NamedExecContext(ctx, upsertRawPayloadQuery, row); err != nil {
			return fmt.Errorf("upsert raw payload provider=%s sport=%s: %w", item.ProviderID, item.Sport, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert raw payloads tx: %w", err)
	}

	return nil
}

func (r *RawDataRepository) ListRecent(ctx context.Context, providerID, sport string, limit int) ([]rawdata.Payload, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []rawPayloadRow
	if err := r.db.SelectContext(ctx, &rows, listRecentRawPayloadsQuery, providerID, sport, limit); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list raw payloads provider=%s sport=%s: %w", providerID, sport, err)
	}

	out := make([]rawdata.Payload, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

type rawPayloadRow struct {
	RunID       *string   `db:"run_id"`
	ProviderID  string    `db:"provider_id"`
	Sport       string    `db:"sport"`
	Kind        string    `db:"kind"`
	SourceURL   *string   `db:"source_url"`
	Payload     string    `db:"payload"`
	PayloadHash string    `db:"payload_hash"`
	FetchedAt   time.Time `db:"fetched_at"`
}

func (r rawPayloadRow) toDomain() rawdata.Payload {
	return rawdata.Payload{
		RunID:       derefString(r.RunID),
		ProviderID:  r.ProviderID,
		Sport:       r.Sport,
		Kind:        r.Kind,
		SourceURL:   derefString(r.SourceURL),
		PayloadJSON: r.Payload,
		PayloadHash: r.PayloadHash,
		FetchedAt:   r.FetchedAt,
	}
}
