package tagging

// A TagArray holds the tag state of every set in the cache.
type TagArray interface {
	NumSets() int
	NumWays() int
	GetSet(setID int) *Set
	Reset()
}

// NewTagArray creates a tag array with all blocks invalid.
func NewTagArray(
	numSets int,
	numWays int,
	victimFinder VictimFinder,
) TagArray {
	t := &tagArrayImpl{
		numSets:      numSets,
		numWays:      numWays,
		victimFinder: victimFinder,
	}

	t.Reset()

	return t
}

// A Block of a cache is the information that is associated with a cache line
type Block struct {
	Tag     uint64
	SetID   int
	WayID   int
	IsValid bool
	IsDirty bool

	// Age is 0 for the most recently touched block in the set and grows by
	// one every time another block in the same set is touched.
	Age uint64
}

// Eviction describes what an install displaced.
type Eviction struct {
	WayID    int
	Evicted  bool
	WasDirty bool
	OldTag   uint64
}

// A Set is a list of blocks where a certain piece memory can be stored at.
type Set struct {
	Blocks []Block

	victimFinder VictimFinder
}

// Lookup returns the valid block that holds the tag.
func (s *Set) Lookup(tag uint64) (*Block, bool) {
	for i := range s.Blocks {
		block := &s.Blocks[i]
		if block.IsValid && block.Tag == tag {
			return block, true
		}
	}

	return nil, false
}

// Touch marks the block as the most recently used one in the set.
func (s *Set) Touch(block *Block) {
	s.mustOwn(block)

	for i := range s.Blocks {
		if i == block.WayID {
			continue
		}

		s.Blocks[i].Age++
	}

	block.Age = 0
}

// Install places a new tag into the set, evicting a block if no way is free.
func (s *Set) Install(tag uint64, dirty bool) Eviction {
	victim := s.victimFinder.FindVictim(s)

	eviction := Eviction{
		WayID:    victim.WayID,
		Evicted:  victim.IsValid,
		WasDirty: victim.IsValid && victim.IsDirty,
		OldTag:   victim.Tag,
	}

	victim.IsValid = true
	victim.Tag = tag
	victim.IsDirty = dirty

	s.Touch(victim)

	return eviction
}

func (s *Set) mustOwn(block *Block) {
	if block.WayID < 0 || block.WayID >= len(s.Blocks) ||
		&s.Blocks[block.WayID] != block {
		panic("block does not belong to this set")
	}
}

type tagArrayImpl struct {
	numSets      int
	numWays      int
	victimFinder VictimFinder
	sets         []Set
}

func (d *tagArrayImpl) NumSets() int {
	return d.numSets
}

func (d *tagArrayImpl) NumWays() int {
	return d.numWays
}

// GetSet returns the set with the given index. It panics if the index is out
// of range.
func (d *tagArrayImpl) GetSet(setID int) *Set {
	return &d.sets[setID]
}

// Reset will mark all the blocks in the directory invalid
func (d *tagArrayImpl) Reset() {
	d.sets = make([]Set, d.numSets)
	for i := 0; i < d.numSets; i++ {
		d.sets[i].victimFinder = d.victimFinder
		d.sets[i].Blocks = make([]Block, d.numWays)

		for j := 0; j < d.numWays; j++ {
			d.sets[i].Blocks[j] = Block{
				SetID: i,
				WayID: j,
			}
		}
	}
}
