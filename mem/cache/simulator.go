// Package cache simulates a set-associative data cache with LRU replacement.
package cache

import (
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// Hook positions the Simulator invokes. HookPosAccess carries an Outcome as
// the item; HookPosReject carries a *RecordError.
var (
	HookPosAccess = &hooking.HookPos{Name: "CacheAccess"}
	HookPosReject = &hooking.HookPos{Name: "CacheReject"}
)

// A Simulator drives accesses through a Store under a write policy.
//
// A Simulator must be owned by a single goroutine. Accesses are applied in
// the order Access is called, which the LRU state depends on.
type Simulator struct {
	hooking.HookableBase

	store           *Store
	writePolicy     WritePolicy
	writeMissPolicy WriteMissPolicy
}

// Store returns the store the simulator mutates.
func (s *Simulator) Store() *Store {
	return s.store
}

// Geometry returns the geometry of the simulated cache.
func (s *Simulator) Geometry() Geometry {
	return s.store.Geometry()
}

// WritePolicy returns the write policy of the simulated cache.
func (s *Simulator) WritePolicy() WritePolicy {
	return s.writePolicy
}

// WriteMissPolicy returns the resolved write-miss policy.
func (s *Simulator) WriteMissPolicy() WriteMissPolicy {
	return s.writeMissPolicy
}

// Access simulates one record. A record that fails validation is returned as
// a *RecordError and leaves the store untouched.
func (s *Simulator) Access(rec Record) (Outcome, error) {
	if err := rec.Validate(); err != nil {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosReject,
			Item:   err,
			Detail: rec,
		})

		return Outcome{}, err
	}

	out := Outcome{Record: rec, Way: -1}
	out.Tag, out.Index, out.Offset = s.store.Geometry().Decode(rec.Address)

	switch rec.Op {
	case OpRead:
		s.read(&out)
	case OpWrite:
		s.write(&out)
	default:
		err := &RecordError{Seq: rec.Seq, Line: rec.Line, Err: ErrMalformedRecord}
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosReject,
			Item:   err,
			Detail: rec,
		})

		return Outcome{}, err
	}

	out.MemoryTransfers = out.MemoryReads + out.MemoryWrites

	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    HookPosAccess,
		Item:   out,
	})

	return out, nil
}

func (s *Simulator) read(out *Outcome) {
	set := s.store.set(out.Index)

	block, hit := set.Lookup(out.Tag)
	if hit {
		set.Touch(block)
		out.Hit = true
		out.Way = block.WayID

		return
	}

	s.install(out, false)
}

func (s *Simulator) write(out *Outcome) {
	if s.writePolicy == WriteThrough {
		s.writeThrough(out)
		return
	}

	s.writeBack(out)
}

func (s *Simulator) writeThrough(out *Outcome) {
	set := s.store.set(out.Index)

	block, hit := set.Lookup(out.Tag)
	if hit {
		set.Touch(block)
		block.IsDirty = false
		out.Hit = true
		out.Way = block.WayID
		out.MemoryWrites = 1

		return
	}

	if s.writeMissPolicy == WriteAllocate {
		eviction := set.Install(out.Tag, false)
		s.recordEviction(out, eviction)
	}

	out.MemoryWrites = 1
}

func (s *Simulator) writeBack(out *Outcome) {
	set := s.store.set(out.Index)

	block, hit := set.Lookup(out.Tag)
	if hit {
		set.Touch(block)
		block.IsDirty = true
		out.Hit = true
		out.Way = block.WayID

		return
	}

	if s.writeMissPolicy == WriteAround {
		out.MemoryWrites = 1
		return
	}

	s.install(out, true)
}

// install fetches the line from memory, writing the victim back first if it
// is dirty.
func (s *Simulator) install(out *Outcome, dirty bool) {
	eviction := s.store.set(out.Index).Install(out.Tag, dirty)
	s.recordEviction(out, eviction)

	out.MemoryReads = 1
	if eviction.WasDirty {
		out.MemoryWrites++
	}
}

func (s *Simulator) recordEviction(out *Outcome, eviction tagging.Eviction) {
	out.Installed = true
	out.Way = eviction.WayID
	out.Evicted = eviction.Evicted
	out.Writeback = eviction.WasDirty

	if eviction.Evicted {
		out.EvictedTag = eviction.OldTag
	}
}
