package usecase

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// SourceRegistry holds the sources enabled per sport. Registration order is
// the order results are merged in.
type SourceRegistry struct {
	mu      sync.RWMutex
	bySport map[string][]Source
}

func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{bySport: make(map[string][]Source)}
}

// Register enables src for each sport. A provider id can appear once per sport.
func (r *SourceRegistry) Register(src Source, sports ...string) error {
	if src == nil || strings.TrimSpace(src.ID()) == "" {
		return fmt.Errorf("%w: source id is required", ErrInvalidInput)
	}
	if len(sports) == 0 {
		return fmt.Errorf("%w: source %s has no sports", ErrInvalidInput, src.ID())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, raw := range sports {
		sport := NormalizeSport(raw)
		if sport == "" {
			return fmt.Errorf("%w: blank sport for source %s", ErrInvalidInput, src.ID())
		}
		for _, existing := range r.bySport[sport] {
			if existing.ID() == src.ID() {
				return fmt.Errorf("%w: source %s already registered for %s", ErrInvalidInput, src.ID(), sport)
			}
		}
		r.bySport[sport] = append(r.bySport[sport], src)
	}
	return nil
}

func (r *SourceRegistry) Sources(sport string) []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.bySport[NormalizeSport(sport)]
	out := make([]Source, len(items))
	copy(out, items)
	return out
}

func (r *SourceRegistry) Sports() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.bySport))
	for sport := range r.bySport {
		out = append(out, sport)
	}
	r.mu.RUnlock()

	sort.Strings(out)
	return out
}

// ProviderIDs lists every registered provider once, sorted.
func (r *SourceRegistry) ProviderIDs() []string {
	r.mu.RLock()
	seen := make(map[string]struct{})
	for _, items := range r.bySport {
		for _, src := range items {
			seen[src.ID()] = struct{}{}
		}
	}
	r.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func NormalizeSport(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
