// Package catalog holds the fixed candidate pools the concierge samples
// introductions from.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/openstars/pkg/domain"
	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var defaultProfiles []byte

// ErrEmptyPool is returned when a catalog file leaves a pool without profiles.
var ErrEmptyPool = errors.New("catalog pool is empty")

// file represents the structure of profiles.yaml.
type file struct {
	Investors []domain.Profile `yaml:"investors" json:"investors"`
	Startups  []domain.Profile `yaml:"startups" json:"startups"`
	Talent    []domain.Profile `yaml:"talent" json:"talent"`
}

// Catalog is an immutable set of candidate pools keyed by profile kind.
type Catalog struct {
	pools map[domain.ProfileKind][]domain.Profile
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultProfiles, "profiles.yaml")
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded profiles are invalid: %v", err))
	}
	return c
}

// Load reads a catalog file (YAML or JSON).
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes catalog data. The extension of name selects the format.
func Parse(data []byte, name string) (*Catalog, error) {
	var f file
	if strings.ToLower(filepath.Ext(name)) == ".json" {
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
	} else if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	c := &Catalog{pools: make(map[domain.ProfileKind][]domain.Profile)}
	for kind, profiles := range map[domain.ProfileKind][]domain.Profile{
		domain.ProfileInvestor: f.Investors,
		domain.ProfileStartup:  f.Startups,
		domain.ProfileTalent:   f.Talent,
	} {
		if len(profiles) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyPool, kind)
		}
		seen := make(map[string]bool, len(profiles))
		pool := make([]domain.Profile, 0, len(profiles))
		for _, p := range profiles {
			if p.ID == "" || seen[p.ID] {
				return nil, fmt.Errorf("catalog %s: missing or duplicate id %q", kind, p.ID)
			}
			seen[p.ID] = true
			p.Kind = kind
			pool = append(pool, p)
		}
		c.pools[kind] = pool
	}
	return c, nil
}

// Pool returns a copy of the profiles of the given kind.
func (c *Catalog) Pool(kind domain.ProfileKind) []domain.Profile {
	src := c.pools[kind]
	out := make([]domain.Profile, len(src))
	for i, p := range src {
		out[i] = p.Clone()
	}
	return out
}

// Size returns the number of profiles of the given kind.
func (c *Catalog) Size(kind domain.ProfileKind) int {
	return len(c.pools[kind])
}
