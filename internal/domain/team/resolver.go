package team

import (
	"bytes"
	_ "embed"
	"io"
	"sort"
	"sync"

	crerr "github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var defaultTable []byte

type tableFile struct {
	Sports    map[string]sportFile                    `yaml:"sports"`
	Providers map[string]map[string]map[string]string `yaml:"providers"`
}

type sportFile struct {
	Teams []teamFile `yaml:"teams"`
}

type teamFile struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Nickname string   `yaml:"nickname"`
	Aliases  []string `yaml:"aliases"`
}

type sportTable struct {
	teams     map[ID]Team
	order     []ID
	byAlias   map[string]ID
	byName    map[string]ID
	providers map[string]map[string]ID
}

// Resolver maps provider-specific team strings to canonical IDs. It is
// immutable after construction and safe for concurrent use.
type Resolver struct {
	sports map[string]*sportTable
}

var (
	defaultOnce     sync.Once
	defaultResolver *Resolver
)

// Default returns the resolver built from the embedded table.
func Default() *Resolver {
	defaultOnce.Do(func() {
		r, err := Load(defaultTable)
		if err != nil {
			panic(crerr.Wrap(err, "load embedded team table"))
		}
		defaultResolver = r
	})
	return defaultResolver
}

// LoadWithOverrides extends the embedded table with extra YAML documents.
func LoadWithOverrides(overrides ...[]byte) (*Resolver, error) {
	docs := make([][]byte, 0, len(overrides)+1)
	docs = append(docs, defaultTable)
	docs = append(docs, overrides...)
	return Load(docs...)
}

// Load builds a resolver from one or more YAML documents. Later documents
// add teams, aliases and provider entries on top of earlier ones. Loading
// fails when a single string would map to two different franchises.
func Load(docs ...[]byte) (*Resolver, error) {
	merged := tableFile{
		Sports:    map[string]sportFile{},
		Providers: map[string]map[string]map[string]string{},
	}
	for i, doc := range docs {
		var file tableFile
		dec := yaml.NewDecoder(bytes.NewReader(doc))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil && !crerr.Is(err, io.EOF) {
			return nil, crerr.Wrapf(err, "decode team table document %d", i)
		}
		mergeTable(&merged, file)
	}

	r := &Resolver{sports: make(map[string]*sportTable, len(merged.Sports))}
	for rawSport, sf := range merged.Sports {
		sport := normalizeSport(rawSport)
		table, err := buildSport(sport, sf)
		if err != nil {
			return nil, err
		}
		r.sports[sport] = table
	}

	for rawProvider, bySport := range merged.Providers {
		provider := normalizeSport(rawProvider)
		for rawSport, entries := range bySport {
			sport := normalizeSport(rawSport)
			table, ok := r.sports[sport]
			if !ok {
				return nil, crerr.Newf("provider %q overrides unknown sport %q", provider, sport)
			}
			if table.providers[provider] == nil {
				table.providers[provider] = make(map[string]ID, len(entries))
			}
			for raw, target := range entries {
				id := ID(normalizeKey(target))
				if _, ok := table.teams[id]; !ok {
					return nil, crerr.Newf("provider %q maps %q to unknown %s team %q", provider, raw, sport, target)
				}
				key := normalizeKey(raw)
				if existing, ok := table.providers[provider][key]; ok && existing != id {
					return nil, crerr.Newf("provider %q maps %q to both %s and %s", provider, raw, existing, id)
				}
				table.providers[provider][key] = id
			}
		}
	}

	return r, nil
}

func mergeTable(dst *tableFile, src tableFile) {
	for sport, sf := range src.Sports {
		existing := dst.Sports[sport]
		existing.Teams = append(existing.Teams, sf.Teams...)
		dst.Sports[sport] = existing
	}
	for provider, bySport := range src.Providers {
		if dst.Providers[provider] == nil {
			dst.Providers[provider] = map[string]map[string]string{}
		}
		for sport, entries := range bySport {
			if dst.Providers[provider][sport] == nil {
				dst.Providers[provider][sport] = map[string]string{}
			}
			for raw, target := range entries {
				dst.Providers[provider][sport][raw] = target
			}
		}
	}
}

func buildSport(sport string, sf sportFile) (*sportTable, error) {
	table := &sportTable{
		teams:     map[ID]Team{},
		byAlias:   map[string]ID{},
		byName:    map[string]ID{},
		providers: map[string]map[string]ID{},
	}

	addAlias := func(raw string, id ID) error {
		key := normalizeKey(raw)
		if key == "" {
			return nil
		}
		if existing, ok := table.byAlias[key]; ok && existing != id {
			return crerr.Newf("%s alias %q maps to both %s and %s", sport, raw, existing, id)
		}
		table.byAlias[key] = id
		return nil
	}
	addName := func(raw string, id ID) error {
		key := normalizeName(raw)
		if key == "" {
			return nil
		}
		if existing, ok := table.byName[key]; ok && existing != id {
			return crerr.Newf("%s name %q maps to both %s and %s", sport, raw, existing, id)
		}
		table.byName[key] = id
		return nil
	}

	for _, tf := range sf.Teams {
		id := ID(normalizeKey(tf.ID))
		if id == "" {
			return nil, crerr.Newf("%s team %q has no id", sport, tf.Name)
		}

		t, seen := table.teams[id]
		if !seen {
			t = Team{ID: id, Sport: sport}
			table.order = append(table.order, id)
		}
		if tf.Name != "" {
			t.Name = tf.Name
		}
		if tf.Nickname != "" {
			t.Nickname = tf.Nickname
		}
		t.Aliases = append(t.Aliases, tf.Aliases...)
		table.teams[id] = t

		if err := addAlias(string(id), id); err != nil {
			return nil, err
		}
		for _, alias := range tf.Aliases {
			if err := addAlias(alias, id); err != nil {
				return nil, err
			}
		}
		if err := addName(tf.Name, id); err != nil {
			return nil, err
		}
		if err := addName(tf.Nickname, id); err != nil {
			return nil, err
		}
	}

	return table, nil
}

// Resolve maps a provider abbreviation to a canonical ID. Provider-specific
// entries win over the sport-wide alias table.
func (r *Resolver) Resolve(providerID, rawAbbr, sport string) (ID, error) {
	table := r.table(sport)
	key := normalizeKey(rawAbbr)
	if table != nil && key != "" {
		if overrides, ok := table.providers[normalizeSport(providerID)]; ok {
			if id, ok := overrides[key]; ok {
				return id, nil
			}
		}
		if id, ok := table.byAlias[key]; ok {
			return id, nil
		}
	}
	return "", &UnknownTeamError{Sport: normalizeSport(sport), Provider: providerID, Value: rawAbbr}
}

// Canonicalize maps a full or short team name to a canonical ID. Names fall
// back to the alias table so "Lakers", "Los Angeles Lakers" and "LAL" agree.
func (r *Resolver) Canonicalize(name, sport string) (ID, error) {
	table := r.table(sport)
	if table != nil {
		if id, ok := table.byName[normalizeName(name)]; ok {
			return id, nil
		}
		if id, ok := table.byAlias[normalizeKey(name)]; ok {
			return id, nil
		}
	}
	return "", &UnknownTeamError{Sport: normalizeSport(sport), Value: name}
}

// CanonicalizeFor is Canonicalize for a provider that reports names. The
// provider's own entries are checked first, the same way Resolve does.
func (r *Resolver) CanonicalizeFor(providerID, name, sport string) (ID, error) {
	table := r.table(sport)
	if table != nil {
		if overrides, ok := table.providers[normalizeSport(providerID)]; ok {
			if id, ok := overrides[normalizeKey(name)]; ok {
				return id, nil
			}
		}
	}
	id, err := r.Canonicalize(name, sport)
	if err != nil {
		var unknown *UnknownTeamError
		if crerr.As(err, &unknown) {
			unknown.Provider = providerID
		}
		return "", err
	}
	return id, nil
}

// Supports reports whether the table knows the sport.
func (r *Resolver) Supports(sport string) bool {
	return r.table(sport) != nil
}

func (r *Resolver) Sports() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.sports))
	for sport := range r.sports {
		out = append(out, sport)
	}
	sort.Strings(out)
	return out
}

// Teams lists a sport's teams in table order.
func (r *Resolver) Teams(sport string) []Team {
	table := r.table(sport)
	if table == nil {
		return nil
	}
	out := make([]Team, 0, len(table.order))
	for _, id := range table.order {
		out = append(out, table.teams[id])
	}
	return out
}

func (r *Resolver) table(sport string) *sportTable {
	if r == nil {
		return nil
	}
	return r.sports[normalizeSport(sport)]
}
