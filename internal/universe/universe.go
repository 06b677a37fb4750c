// Package universe holds the list of symbols a screening run iterates over,
// with the static profile data known for each.
package universe

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bobmcallan/surge/internal/models"
)

//go:embed default.yaml
var defaultYAML []byte

// Universe is an ordered, de-duplicated list of symbol profiles
type Universe struct {
	profiles []models.SymbolProfile
	index    map[string]int
}

type document struct {
	Symbols []models.SymbolProfile `yaml:"symbols"`
}

// Default returns the built-in universe
func Default() (*Universe, error) {
	return Parse(defaultYAML)
}

// Load reads a universe from a YAML file. An empty path returns the default.
func Load(path string) (*Universe, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file %s: %w", path, err)
	}
	u, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("universe file %s: %w", path, err)
	}
	return u, nil
}

// Parse decodes a universe document. Symbols are upper-cased; blanks and
// duplicates are rejected.
func Parse(data []byte) (*Universe, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse universe: %w", err)
	}
	if len(doc.Symbols) == 0 {
		return nil, fmt.Errorf("universe has no symbols")
	}

	u := &Universe{index: make(map[string]int, len(doc.Symbols))}
	for i, p := range doc.Symbols {
		p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
		if p.Symbol == "" {
			return nil, fmt.Errorf("universe entry %d has no symbol", i)
		}
		if _, dup := u.index[p.Symbol]; dup {
			return nil, fmt.Errorf("duplicate symbol %s in universe", p.Symbol)
		}
		u.index[p.Symbol] = len(u.profiles)
		u.profiles = append(u.profiles, p)
	}
	return u, nil
}

// Symbols returns the universe symbols in order
func (u *Universe) Symbols() []string {
	out := make([]string, len(u.profiles))
	for i, p := range u.profiles {
		out[i] = p.Symbol
	}
	return out
}

// Len returns the number of symbols
func (u *Universe) Len() int {
	return len(u.profiles)
}

// Profile returns the static profile for a symbol. Unknown symbols return a
// profile holding only the symbol.
func (u *Universe) Profile(symbol string) (models.SymbolProfile, bool) {
	symbol = strings.ToUpper(symbol)
	if i, ok := u.index[symbol]; ok {
		return u.profiles[i], true
	}
	return models.SymbolProfile{Symbol: symbol}, false
}

// Normalize upper-cases and de-duplicates a requested symbol list, keeping
// the first occurrence order. Symbols outside the universe are allowed.
func Normalize(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
