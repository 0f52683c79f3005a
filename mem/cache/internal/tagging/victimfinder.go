package tagging

// A VictimFinder decides with block should be evicted
type VictimFinder interface {
	FindVictim(set *Set) *Block
}

// LRUVictimFinder evicts the least recently used block to evict
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	e := new(LRUVictimFinder)
	return e
}

// FindVictim returns the first invalid block of the set. If all the blocks are
// valid, it returns the oldest one. Among blocks of equal age, the one with
// the lowest way index wins.
func (e *LRUVictimFinder) FindVictim(set *Set) *Block {
	for i := range set.Blocks {
		if !set.Blocks[i].IsValid {
			return &set.Blocks[i]
		}
	}

	victim := &set.Blocks[0]
	for i := 1; i < len(set.Blocks); i++ {
		if set.Blocks[i].Age > victim.Age {
			victim = &set.Blocks[i]
		}
	}

	return victim
}
