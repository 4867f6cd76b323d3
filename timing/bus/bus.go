// Package bus implements the shared snooping bus: round-robin arbitration
// over four per-core request slots, a single in-flight transaction's
// idle/wait/flush phase machine, cross-cache snoop at transaction start,
// and the 8-cycle flush stream that commits a block to main memory and
// fills the requesting core's cache.
//
// Exactly one transaction is ever in flight; there is no pipelining of bus
// transactions, matching the core's "arbitrate one transaction per cycle"
// contract.
package bus

import (
	"github.com/quadcore/mesisim/memory"
	"github.com/quadcore/mesisim/timing/cache"
)

// NumCores is the number of cores sharing the bus.
const NumCores = 4

// MemProvider is the provider sentinel meaning "sourced from main memory"
// rather than from one of the four caches.
const MemProvider = 4

// MemLatency is the fixed number of wait-phase cycles charged when no peer
// cache can provide the block.
const MemLatency = 16

// Phase is the bus transaction's current phase.
type Phase uint8

// Bus transaction phases.
const (
	PhaseIdle Phase = iota
	PhaseWait
	PhaseFlush
)

// Trace command codes, matching the bustrace file format (1=RD, 2=RDX, 3=FLUSH).
const (
	TraceRD    uint8 = 1
	TraceRDX   uint8 = 2
	TraceFlush uint8 = 3
)

// Line is what the bus drove during one cycle, for the bus trace emitter.
// Active is false on a cycle where no command was driven (phase idle with
// nothing to arbitrate) — such cycles emit no bustrace line.
type Line struct {
	Active bool
	Origin uint8
	Cmd    uint8
	Addr   uint32
	Data   uint32
	Shared bool
}

type requestSlot struct {
	active bool
	cmd    cache.Command
	addr   uint32
}

// Bus is the shared arbiter and transaction engine.
type Bus struct {
	slots  [NumCores]requestSlot
	rrNext int

	phase     Phase
	cmd       cache.Command
	origin    int
	reqAddr   uint32
	blockAddr uint32
	shared    bool
	provider  int
	block     [cache.WordsPerLine]uint32
	delay     int
	streamIdx int
}

// New creates an idle bus.
func New() *Bus {
	return &Bus{}
}

// Request enqueues a miss (RD) or upgrade (RDX) request for origin, unless
// that core already has one outstanding. Only one pending request per core
// is ever held, matching a fully-stalled pipeline behind its own miss.
func (b *Bus) Request(origin int, cmd cache.Command, addr uint32) {
	if b.slots[origin].active {
		return
	}
	b.slots[origin] = requestSlot{active: true, cmd: cmd, addr: addr}
}

// Idle reports whether the bus has no in-flight transaction.
func (b *Bus) Idle() bool {
	return b.phase == PhaseIdle
}

// HasPendingRequest reports whether origin still has a queued (not yet
// arbitrated) or in-flight request.
func (b *Bus) HasPendingRequest(origin int) bool {
	return b.slots[origin].active || (b.phase != PhaseIdle && b.origin == origin)
}

func (b *Bus) arbitrate() (origin int, ok bool) {
	for i := 0; i < NumCores; i++ {
		c := (b.rrNext + i) % NumCores
		if b.slots[c].active {
			b.rrNext = (c + 1) % NumCores
			return c, true
		}
	}
	return 0, false
}

// Advance runs one cycle of the bus: if idle, attempts arbitration and
// (on a win) performs the atomic transaction-start snoop; then drives the
// current phase's bus line. It returns the line driven this cycle (if any)
// and, on the cycle a transaction's 8th flush word completes, the origin
// core whose request was just satisfied so the caller can un-stall that
// core's MEM stage.
func (b *Bus) Advance(caches [NumCores]*cache.Cache, mem *memory.Memory) (line Line, completedOrigin int, completed bool) {
	if b.phase == PhaseIdle {
		origin, ok := b.arbitrate()
		if !ok {
			return Line{}, 0, false
		}
		b.startTransaction(origin, caches, mem)
	}

	switch b.phase {
	case PhaseWait:
		line = Line{
			Active: true,
			Origin: uint8(b.origin),
			Cmd:    cmdTraceCode(b.cmd),
			Addr:   b.reqAddr,
			Shared: b.shared,
		}
		if b.delay > 0 {
			b.delay--
		}
		if b.delay == 0 {
			b.phase = PhaseFlush
			b.streamIdx = 0
		}
		return line, 0, false

	case PhaseFlush:
		idx := b.streamIdx
		line = Line{
			Active: true,
			Origin: uint8(b.provider),
			Cmd:    TraceFlush,
			Addr:   b.blockAddr + uint32(idx),
			Data:   b.block[idx],
			Shared: b.shared,
		}
		b.streamIdx++
		if b.streamIdx == cache.WordsPerLine {
			b.completeTransaction(caches, mem)
			completedOrigin = b.origin
			completed = true
			b.phase = PhaseIdle
		}
		return line, completedOrigin, completed
	}

	return Line{}, 0, false
}

// startTransaction performs the atomic snoop-and-source step at the cycle
// a request wins arbitration (spec.md §4.4 "Transaction start").
func (b *Bus) startTransaction(origin int, caches [NumCores]*cache.Cache, mem *memory.Memory) {
	slot := b.slots[origin]
	b.slots[origin].active = false

	addr := slot.addr
	ba := memory.BlockBase(addr)

	shared := false
	providerFound := false
	providerID := MemProvider
	var block [cache.WordsPerLine]uint32

	for i := 0; i < NumCores; i++ {
		if i == origin {
			continue
		}
		hadLine, wasModified, data := caches[i].Snoop(addr, slot.cmd)
		if hadLine {
			shared = true
		}
		if wasModified {
			providerFound = true
			providerID = i
			block = data
		}
	}

	b.cmd = slot.cmd
	b.origin = origin
	b.reqAddr = addr
	b.blockAddr = ba
	b.shared = shared

	if providerFound {
		b.provider = providerID
		b.block = block
		b.delay = 0
	} else {
		b.provider = MemProvider
		b.block = mem.ReadBlock(ba)
		b.delay = MemLatency
	}

	b.phase = PhaseWait
}

// completeTransaction applies the spec.md §4.4 "after the 8th flush cycle"
// rule: commit the block to memory, fill the originator's cache, and write
// back any evicted dirty victim.
func (b *Bus) completeTransaction(caches [NumCores]*cache.Cache, mem *memory.Memory) {
	mem.WriteBlock(b.blockAddr, b.block)

	var newState cache.State
	if b.cmd == cache.CmdRD {
		if b.shared {
			newState = cache.StateS
		} else {
			newState = cache.StateE
		}
	} else {
		newState = cache.StateM
	}

	evictDirty, evictedAddr, evictedBlock := caches[b.origin].Fill(b.reqAddr, b.block, newState)
	if evictDirty {
		mem.WriteBlock(evictedAddr, evictedBlock)
	}
}

func cmdTraceCode(cmd cache.Command) uint8 {
	if cmd == cache.CmdRDX {
		return TraceRDX
	}
	return TraceRD
}
