package batch

import (
	"errors"
	"fmt"
)

// ErrInvalidLimits is returned when a capacity limit is not positive.
var ErrInvalidLimits = errors.New("batch: invalid limits")

// Limits are the fixed per-batch capacities shared by every batch in a Context.
// Vertex counts are in vertex records, not float lanes.
type Limits struct {
	MaxVertices     int `toml:"max_vertices" yaml:"max_vertices"`
	MaxIndices      int `toml:"max_indices" yaml:"max_indices"`
	MaxObjects      int `toml:"max_objects" yaml:"max_objects"`
	MaxTextureSlots int `toml:"max_texture_slots" yaml:"max_texture_slots"`
	MaxLights       int `toml:"max_lights" yaml:"max_lights"`
}

// DefaultLimits returns the capacities the shaders are written against.
func DefaultLimits() Limits {
	return Limits{
		MaxVertices:     300000,
		MaxIndices:      300000,
		MaxObjects:      32,
		MaxTextureSlots: 32,
		MaxLights:       32,
	}
}

// Validate reports the first non-positive limit.
func (l Limits) Validate() error {
	checks := []struct {
		name  string
		value int
	}{
		{"max_vertices", l.MaxVertices},
		{"max_indices", l.MaxIndices},
		{"max_objects", l.MaxObjects},
		{"max_texture_slots", l.MaxTextureSlots},
		{"max_lights", l.MaxLights},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return fmt.Errorf("%w: %s must be > 0, got %d", ErrInvalidLimits, c.name, c.value)
		}
	}
	return nil
}
