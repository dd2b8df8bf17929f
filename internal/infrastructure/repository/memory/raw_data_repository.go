package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/propboard/internal/domain/rawdata"
)

type rawDataKey struct {
	providerID string
	sport      string
	hash       string
}

// RawDataRepository keeps archived payloads in process memory, bounded per
// provider and sport.
type RawDataRepository struct {
	mu       sync.RWMutex
	maxItems int
	items    map[rawDataKey]rawdata.Payload
}

func NewRawDataRepository(maxItemsPerStream int) *RawDataRepository {
	if maxItemsPerStream <= 0 {
		maxItemsPerStream = 50
	}
	return &RawDataRepository{
		maxItems: maxItemsPerStream,
		items:    make(map[rawDataKey]rawdata.Payload),
	}
}

func (r *RawDataRepository) UpsertMany(_ context.Context, items []rawdata.Payload) error {
	if len(items) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	touched := make(map[[2]string]struct{}, len(items))
	for _, item := range items {
		key := rawDataKey{providerID: item.ProviderID, sport: item.Sport, hash: item.PayloadHash}
		r.items[key] = item
		touched[[2]string{item.ProviderID, item.Sport}] = struct{}{}
	}
	for stream := range touched {
		r.evictLocked(stream[0], stream[1])
	}
	return nil
}

func (r *RawDataRepository) ListRecent(_ context.Context, providerID, sport string, limit int) ([]rawdata.Payload, error) {
	r.mu.RLock()
	out := r.streamLocked(providerID, sport)
	r.mu.RUnlock()

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// streamLocked returns one stream newest first.
func (r *RawDataRepository) streamLocked(providerID, sport string) []rawdata.Payload {
	out := make([]rawdata.Payload, 0)
	for key, item := range r.items {
		if key.providerID == providerID && key.sport == sport {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FetchedAt.Equal(out[j].FetchedAt) {
			return out[i].PayloadHash < out[j].PayloadHash
		}
		return out[i].FetchedAt.After(out[j].FetchedAt)
	})
	return out
}

func (r *RawDataRepository) evictLocked(providerID, sport string) {
	stream := r.streamLocked(providerID, sport)
	for _, item := range stream[min(len(stream), r.maxItems):] {
		delete(r.items, rawDataKey{providerID: providerID, sport: sport, hash: item.PayloadHash})
	}
}
