package cache

import (
	"math/bits"
	"strconv"
)

// Geometry describes the shape of a set-associative cache.
type Geometry struct {
	numSets       int
	associativity int
	lineSize      int

	offsetBits uint
	indexBits  uint
}

// NewGeometry validates the set count, the associativity, and the line size
// and returns the geometry they form. Both the set count and the line size
// must be powers of two.
func NewGeometry(numSets, associativity, lineSize int) (Geometry, error) {
	if err := mustBePositive("set count", numSets); err != nil {
		return Geometry{}, err
	}

	if err := mustBePowerOfTwo("set count", numSets); err != nil {
		return Geometry{}, err
	}

	if err := mustBePositive("associativity", associativity); err != nil {
		return Geometry{}, err
	}

	if err := mustBePositive("line size", lineSize); err != nil {
		return Geometry{}, err
	}

	if err := mustBePowerOfTwo("line size", lineSize); err != nil {
		return Geometry{}, err
	}

	g := Geometry{
		numSets:       numSets,
		associativity: associativity,
		lineSize:      lineSize,
		offsetBits:    uint(bits.TrailingZeros(uint(lineSize))),
		indexBits:     uint(bits.TrailingZeros(uint(numSets))),
	}

	return g, nil
}

func mustBePositive(field string, v int) error {
	if v <= 0 {
		return &ConfigError{
			Field:  field,
			Value:  strconv.Itoa(v),
			Reason: "must be a positive integer",
		}
	}

	return nil
}

func mustBePowerOfTwo(field string, v int) error {
	if v&(v-1) != 0 {
		return &ConfigError{
			Field:  field,
			Value:  strconv.Itoa(v),
			Reason: "must be a power of two",
		}
	}

	return nil
}

// NumSets returns the number of sets.
func (g Geometry) NumSets() int {
	return g.numSets
}

// Associativity returns the number of lines per set.
func (g Geometry) Associativity() int {
	return g.associativity
}

// LineSize returns the number of bytes in a line.
func (g Geometry) LineSize() int {
	return g.lineSize
}

// OffsetBits returns log2 of the line size.
func (g Geometry) OffsetBits() uint {
	return g.offsetBits
}

// IndexBits returns log2 of the set count.
func (g Geometry) IndexBits() uint {
	return g.indexBits
}

// TotalSize returns the maximum number of bytes can be stored in the cache
func (g Geometry) TotalSize() uint64 {
	return uint64(g.numSets) * uint64(g.associativity) * uint64(g.lineSize)
}

// Decode splits an address into the tag, the set index, and the byte offset
// within the line.
func (g Geometry) Decode(addr uint64) (tag uint64, index int, offset uint64) {
	offset = addr & (uint64(g.lineSize) - 1)
	index = int((addr >> g.offsetBits) & (uint64(g.numSets) - 1))
	tag = addr >> (g.offsetBits + g.indexBits)

	return tag, index, offset
}

// Compose is the inverse of Decode.
func (g Geometry) Compose(tag uint64, index int, offset uint64) uint64 {
	return tag<<(g.offsetBits+g.indexBits) |
		uint64(index)<<g.offsetBits |
		offset
}
