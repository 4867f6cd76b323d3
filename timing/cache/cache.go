// Package cache implements one core's private, direct-mapped MESI cache:
// 64 lines of 8 words each, with a parallel tag array and a parallel MESI
// state array, matching the 20-bit address split into an 11-bit tag, a
// 6-bit index and a 3-bit offset.
//
// Local hit/miss lookup and fill/eviction bookkeeping reuse Akita's cache
// directory (the teacher's own domain dependency) configured as a 64-set,
// 1-way directory — a direct-mapped cache is simply the 1-way degenerate
// case of the associative structure the teacher already drives with a real
// LRU victim finder. The MESI state itself (S vs E vs M — "not-Invalid" is
// exactly the directory's own IsValid bit) is tracked in a side array
// because Akita's generic Block has no coherence-state field to hold it.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// NumLines is the number of cache lines (sets; the directory is 1-way).
const NumLines = 64

// WordsPerLine is the block size in words (8 words = 32 bytes).
const WordsPerLine = 8

// NumWords is the total data capacity of one cache (512 words).
const NumWords = NumLines * WordsPerLine

// State is a MESI coherence state.
type State uint8

// MESI states, matching spec's numeric encoding for trace/tsram output.
const (
	StateI State = 0
	StateS State = 1
	StateE State = 2
	StateM State = 3
)

// Command identifies the bus request a snoop is reacting to.
type Command uint8

// Snoop-relevant bus commands.
const (
	CmdRD Command = iota + 1
	CmdRDX
)

// Cache is one core's private direct-mapped MESI cache.
type Cache struct {
	id int

	directory *akitacache.DirectoryImpl

	// state[i] holds the MESI state of line i whenever the directory's
	// block at SetID==i is valid; State itself doubles as "not valid" (I)
	// is never stored for a valid block, so a snoop invalidation only
	// needs to flip the directory's IsValid bit.
	state [NumLines]State
	data  [NumLines][WordsPerLine]uint32
}

// New creates an empty cache (all lines Invalid).
func New(id int) *Cache {
	return &Cache{
		id: id,
		directory: akitacache.NewDirectory(
			NumLines,
			1,
			WordsPerLine,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// blockBase clears the 3 offset bits, returning the block-aligned address.
func blockBase(addr uint32) uint32 {
	return addr &^ (WordsPerLine - 1)
}

func (c *Cache) lookup(addr uint32) *akitacache.Block {
	return c.directory.Lookup(0, uint64(blockBase(addr)))
}

// Probe reports the current MESI state of addr's line without any side
// effect. State I covers both a genuine miss and a tag mismatch.
func (c *Cache) Probe(addr uint32) State {
	block := c.lookup(addr)
	if block == nil || !block.IsValid {
		return StateI
	}
	return c.state[block.SetID]
}

// ReadWord returns the word at addr. The caller must have already
// established a hit (Probe != StateI).
func (c *Cache) ReadWord(addr uint32) uint32 {
	block := c.lookup(addr)
	offset := addr & (WordsPerLine - 1)
	return c.data[block.SetID][offset]
}

// WriteWord stores value at addr. The caller must have already established
// a hit in E or M (spec forbids a direct write to a line in S — the MEM
// stage requests RDX first). A write to a line in E transitions it to M.
func (c *Cache) WriteWord(addr uint32, value uint32) {
	block := c.lookup(addr)
	offset := addr & (WordsPerLine - 1)
	idx := block.SetID

	c.data[idx][offset] = value
	if c.state[idx] == StateE {
		c.state[idx] = StateM
	}
	c.directory.Visit(block)
}

// Fill installs a freshly-fetched block at addr with newState, evicting
// whatever currently occupies that line. If the evicted line was Modified,
// evictDirty is true and evictedAddr/evictedBlock hold the data the caller
// must write back to main memory before (or as part of) installing the new
// line.
func (c *Cache) Fill(addr uint32, block [WordsPerLine]uint32, newState State) (evictDirty bool, evictedAddr uint32, evictedBlock [WordsPerLine]uint32) {
	ba := blockBase(addr)
	victim := c.directory.FindVictim(uint64(ba))
	idx := victim.SetID

	if victim.IsValid && c.state[idx] == StateM {
		evictDirty = true
		evictedAddr = uint32(victim.Tag)
		evictedBlock = c.data[idx]
	}

	victim.Tag = uint64(ba)
	victim.IsValid = true
	c.directory.Visit(victim)

	c.data[idx] = block
	c.state[idx] = newState
	return
}

// Snoop applies the MESI snoop-time transition this cache, as a bus peer,
// makes when it observes cmd issued for addr. hadLine reports whether the
// line was resident (state != I) before the transition; wasModified
// reports whether this cache is the transaction's data provider, in which
// case block holds the dirty data to source onto the bus.
func (c *Cache) Snoop(addr uint32, cmd Command) (hadLine bool, wasModified bool, block [WordsPerLine]uint32) {
	b := c.lookup(addr)
	if b == nil || !b.IsValid {
		return false, false, [WordsPerLine]uint32{}
	}

	idx := b.SetID
	hadLine = true

	switch c.state[idx] {
	case StateM:
		wasModified = true
		block = c.data[idx]
		if cmd == CmdRD {
			c.state[idx] = StateS
		} else {
			b.IsValid = false
		}
	case StateE:
		if cmd == CmdRD {
			c.state[idx] = StateS
		} else {
			b.IsValid = false
		}
	case StateS:
		if cmd == CmdRDX {
			b.IsValid = false
		}
	}

	return hadLine, wasModified, block
}

// DumpData returns all 512 data words, ordered line*8+offset, matching the
// dsram{i} file format.
func (c *Cache) DumpData() [NumWords]uint32 {
	var out [NumWords]uint32
	for i := 0; i < NumLines; i++ {
		copy(out[i*WordsPerLine:(i+1)*WordsPerLine], c.data[i][:])
	}
	return out
}

// DumpTagState returns all 64 lines encoded as (state<<12)|(tag&0xFFF),
// matching the tsram{i} file format. An Invalid line dumps state 0 with
// whatever tag it last held, so a never-filled line dumps as 0.
func (c *Cache) DumpTagState() [NumLines]uint32 {
	var out [NumLines]uint32
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			idx := block.SetID
			state := StateI
			if block.IsValid {
				state = c.state[idx]
			}
			tag := (uint32(block.Tag) >> 9) & 0xFFF
			out[idx] = uint32(state)<<12 | tag
		}
	}
	return out
}
