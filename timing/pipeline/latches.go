package pipeline

import "github.com/quadcore/mesisim/insts"

// FLatch holds the instruction currently in the fetch stage.
type FLatch struct {
	Valid bool
	Inst  insts.Instruction
}

// DLatch holds the instruction currently in the decode stage.
type DLatch struct {
	Valid bool
	Inst  insts.Instruction
}

// ELatch holds the instruction currently in the execute stage, with the
// operand values snapshotted at the decode-to-execute handoff.
type ELatch struct {
	Valid bool
	Inst  insts.Instruction
	RsVal uint32
	RtVal uint32
	RdVal uint32
}

// MLatch holds the instruction currently in the memory stage.
type MLatch struct {
	Valid bool
	Inst  insts.Instruction

	// Addr is the computed memory address (low 20 bits), valid for LW/SW.
	Addr uint32
	// StoreData is the value to store, valid for SW.
	StoreData uint32
	// ALUResult is the computed result for non-memory instructions.
	ALUResult uint32
	// LoadedValue is not set by the MEM stage: a satisfied LW passes the
	// word read from the cache straight to the W latch's Value.
	LoadedValue uint32

	// Waiting is true while this occupancy is stalled behind an
	// outstanding bus request.
	Waiting bool
	// RequestQueued guards against re-enqueuing a bus request every cycle
	// this occupancy remains Waiting.
	RequestQueued bool
	// MissCounted guards against accounting this occupancy's hit/miss more
	// than once across a stall-and-retry.
	MissCounted bool
}

// WLatch holds the instruction currently in the writeback stage.
type WLatch struct {
	Valid bool
	Inst  insts.Instruction
	Value uint32
}

// StageSnapshot is one stage's trace-visible state.
type StageSnapshot struct {
	Valid bool
	PC    uint32
}

// Snapshot is a point-in-time view of all five latches plus the writable
// register file, suitable for a coretrace line.
type Snapshot struct {
	F, D, E, M, W StageSnapshot
	Regs          [14]uint32
}
