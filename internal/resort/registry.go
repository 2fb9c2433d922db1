package resort

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed resorts.yaml
var defaultResorts []byte

// Resort is a ski area with fixed coordinates.
type Resort struct {
	ID    string  `json:"id" yaml:"id"`
	Lat   float64 `json:"lat" yaml:"lat"`
	Lon   float64 `json:"lon" yaml:"lon"`
	Image string  `json:"image,omitempty" yaml:"image,omitempty"`
}

// Registry is the read-only set of known resorts, in declaration order.
type Registry struct {
	resorts []Resort
	byKey   map[string]int
}

type registryFile struct {
	Resorts []Resort `yaml:"resorts"`
}

// Default returns the registry compiled into the binary.
func Default() (*Registry, error) {
	return Parse(defaultResorts)
}

// Load reads a registry from a YAML file. An empty path yields the default registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resorts file: %w", err)
	}
	return Parse(b)
}

// Parse builds a registry from a YAML document with a top-level "resorts" list.
func Parse(b []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("unmarshal resorts: %w", err)
	}
	return New(f.Resorts)
}

// New validates resorts and indexes them by normalized identifier.
func New(resorts []Resort) (*Registry, error) {
	if len(resorts) == 0 {
		return nil, errors.New("resort registry is empty")
	}

	r := &Registry{
		resorts: make([]Resort, 0, len(resorts)),
		byKey:   make(map[string]int, len(resorts)),
	}
	for _, res := range resorts {
		key := normalizeID(res.ID)
		if key == "" {
			return nil, errors.New("resort with empty id")
		}
		if math.Abs(res.Lat) > 90 || math.Abs(res.Lon) > 180 {
			return nil, fmt.Errorf("resort %s: coordinates out of range (%f, %f)", res.ID, res.Lat, res.Lon)
		}
		if _, dup := r.byKey[key]; dup {
			return nil, fmt.Errorf("duplicate resort id %q", res.ID)
		}
		r.byKey[key] = len(r.resorts)
		r.resorts = append(r.resorts, res)
	}
	return r, nil
}

// Lookup finds a resort by identifier. "St Anton", "st-anton" and "StAnton" match the same entry.
func (r *Registry) Lookup(id string) (Resort, bool) {
	i, ok := r.byKey[normalizeID(id)]
	if !ok {
		return Resort{}, false
	}
	return r.resorts[i], true
}

// All returns a copy of every resort in declaration order.
func (r *Registry) All() []Resort {
	out := make([]Resort, len(r.resorts))
	copy(out, r.resorts)
	return out
}

// Len returns the number of resorts.
func (r *Registry) Len() int {
	return len(r.resorts)
}

func normalizeID(id string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(id) {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}
