package cache

import (
	"fmt"

	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
)

// A Store holds the lines of a cache, grouped into sets.
type Store struct {
	geometry Geometry
	tags     tagging.TagArray
}

// NewStore creates a store whose lines are all invalid.
func NewStore(g Geometry) *Store {
	return &Store{
		geometry: g,
		tags: tagging.NewTagArray(
			g.NumSets(),
			g.Associativity(),
			tagging.NewLRUVictimFinder(),
		),
	}
}

// Geometry returns the geometry the store is built with.
func (s *Store) Geometry() Geometry {
	return s.geometry
}

func (s *Store) set(index int) *tagging.Set {
	if index < 0 || index >= s.geometry.NumSets() {
		panic(fmt.Sprintf("set index %d out of range [0, %d)",
			index, s.geometry.NumSets()))
	}

	return s.tags.GetSet(index)
}

// LineState is a copy of the state of one line.
type LineState struct {
	Way   int    `json:"way"`
	Valid bool   `json:"valid"`
	Tag   uint64 `json:"tag"`
	Dirty bool   `json:"dirty"`
	Age   uint64 `json:"age"`
}

// Lines returns a copy of the lines in the set with the given index.
func (s *Store) Lines(index int) ([]LineState, error) {
	if index < 0 || index >= s.geometry.NumSets() {
		return nil, fmt.Errorf("set index %d out of range [0, %d)",
			index, s.geometry.NumSets())
	}

	set := s.tags.GetSet(index)
	lines := make([]LineState, 0, len(set.Blocks))

	for _, b := range set.Blocks {
		lines = append(lines, LineState{
			Way:   b.WayID,
			Valid: b.IsValid,
			Tag:   b.Tag,
			Dirty: b.IsDirty,
			Age:   b.Age,
		})
	}

	return lines, nil
}

// DirtyLines counts the valid lines whose data has not reached memory yet.
func (s *Store) DirtyLines() int {
	n := 0

	for i := 0; i < s.tags.NumSets(); i++ {
		for _, b := range s.tags.GetSet(i).Blocks {
			if b.IsValid && b.IsDirty {
				n++
			}
		}
	}

	return n
}

// Reset invalidates every line.
func (s *Store) Reset() {
	s.tags.Reset()
}
