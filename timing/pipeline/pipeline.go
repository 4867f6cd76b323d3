// Package pipeline implements one core's five-stage in-order pipeline:
// Fetch, Decode, Execute, Memory, Writeback, each holding its own latch
// (rather than the conventional boundary-register naming), with decode-time
// hazard interlock, no forwarding, and branches resolved in decode with a
// delay slot.
//
// A cycle advances in five ordered steps, matching the teacher's
// current-latches-in/next-latches-out discipline generalized from a single
// pipeline to one sharing a bus with three peers:
//  1. Snapshot (trace emission — see Snapshot)
//  2. CommitWriteback
//  3. ComputeNext (stages run in reverse order: MEM, EXEC, DECODE, FETCH)
//  4. the bus is arbitrated and advanced by the caller
//  5. Latch (commit next into current)
package pipeline

import (
	"github.com/quadcore/mesisim/insts"
	"github.com/quadcore/mesisim/regfile"
	"github.com/quadcore/mesisim/timing/bus"
	"github.com/quadcore/mesisim/timing/cache"
)

// AddrMask20 masks a computed address to the 20 bits main memory and the
// caches address with.
const AddrMask20 = 1<<20 - 1

// Stats holds one core's per-cycle accounting, matching the stats{i} file.
type Stats struct {
	Cycles       uint64
	Instructions uint64
	ReadHit      uint64
	WriteHit     uint64
	ReadMiss     uint64
	WriteMiss    uint64
	DecodeStall  uint64
	MemStall     uint64
}

// Pipeline is one core's five-stage pipeline, cache, and bus request slot.
type Pipeline struct {
	id int

	regs    *regfile.File
	imem    *InstrMem
	cache   *cache.Cache
	bus     *bus.Bus
	decoder *insts.Decoder

	pc              uint32
	stopFetch       bool
	redirectPending bool
	redirectPC      uint32

	f FLatch
	d DLatch
	e ELatch
	m MLatch
	w WLatch

	nextF FLatch
	nextD DLatch
	nextE ELatch
	nextM MLatch
	nextW WLatch

	halted bool
	stats  Stats

	lastBranch BranchEvent
}

// BranchEvent records whether the instruction that just passed through
// DECODE redirected fetch, for optional diagnostic logging.
type BranchEvent struct {
	Taken  bool
	PC     uint32
	Target uint32
}

// NewPipeline creates a pipeline for core id, sharing the given bus.
func NewPipeline(id int, regs *regfile.File, imem *InstrMem, c *cache.Cache, b *bus.Bus) *Pipeline {
	p := &Pipeline{
		id:      id,
		regs:    regs,
		imem:    imem,
		cache:   c,
		bus:     b,
		decoder: insts.NewDecoder(),
	}
	word := imem.Read(0)
	p.f = FLatch{Valid: true, Inst: p.decoder.Decode(word, 0)}
	p.pc = 1
	if p.f.Inst.Op == insts.OpHALT {
		p.stopFetch = true
	}
	return p
}

// ID returns this pipeline's core index.
func (p *Pipeline) ID() int { return p.id }

// Stats returns a copy of the current accounting counters.
func (p *Pipeline) Stats() Stats { return p.stats }

// Done reports whether the core has retired HALT and fully drained.
func (p *Pipeline) Done() bool {
	return p.halted && !p.f.Valid && !p.d.Valid && !p.e.Valid && !p.m.Valid && !p.w.Valid
}

// Snapshot captures the current (pre-cycle) latch state for tracing.
func (p *Pipeline) Snapshot() Snapshot {
	s := Snapshot{
		F: StageSnapshot{Valid: p.f.Valid, PC: p.f.Inst.PC},
		D: StageSnapshot{Valid: p.d.Valid, PC: p.d.Inst.PC},
		E: StageSnapshot{Valid: p.e.Valid, PC: p.e.Inst.PC},
		M: StageSnapshot{Valid: p.m.Valid, PC: p.m.Inst.PC},
		W: StageSnapshot{Valid: p.w.Valid, PC: p.w.Inst.PC},
	}
	s.Regs = p.regs.Dump()
	return s
}

// Active reports whether this cycle should count against Stats.Cycles —
// true whenever the core has not yet finished (spec.md invariant: cycles
// counts only the cycles a core was not done).
func (p *Pipeline) Active() bool {
	return !p.Done()
}

// CommitWriteback is step 2 of the cycle: write the W latch's result to the
// register file and account the cycle, before any next-latch computation.
func (p *Pipeline) CommitWriteback() {
	p.stats.Cycles++

	if p.w.Valid {
		p.stats.Instructions++
		if reg, writes := p.w.Inst.DestReg(); writes {
			p.regs.Write(reg, p.w.Value)
		}
		if p.w.Inst.Op == insts.OpHALT {
			p.halted = true
		}
	}
}

// ComputeNext is step 3: compute next latches for M, E, D, F in that order,
// each reading only the current (pre-cycle) latches.
func (p *Pipeline) ComputeNext() {
	p.lastBranch = BranchEvent{}
	holdMem := p.computeMem()
	holdExec := p.computeExec(holdMem)
	decodeFree := p.computeDecode(holdExec)
	p.computeFetch(decodeFree)
}

// computeMem implements the MEM stage. It returns holdMem, true when the
// MEM occupancy must remain in place next cycle (stalled behind a bus
// request), which propagates as a structural hazard to EXEC.
func (p *Pipeline) computeMem() (holdMem bool) {
	p.nextW = WLatch{}

	if !p.m.Valid {
		p.nextM = MLatch{}
		return false
	}

	if p.m.Waiting {
		p.stats.MemStall++
		p.nextM = p.m
		return true
	}

	if !p.m.Inst.IsMemOp() {
		p.nextW = WLatch{Valid: true, Inst: p.m.Inst, Value: p.m.ALUResult}
		p.nextM = MLatch{}
		return false
	}

	state := p.cache.Probe(p.m.Addr)
	localHit := state != cache.StateI
	if p.m.Inst.Op == insts.OpSW {
		localHit = state == cache.StateE || state == cache.StateM
	}

	if !p.m.MissCounted {
		if p.m.Inst.Op == insts.OpSW {
			if localHit {
				p.stats.WriteHit++
			} else {
				p.stats.WriteMiss++
			}
		} else {
			if localHit {
				p.stats.ReadHit++
			} else {
				p.stats.ReadMiss++
			}
		}
	}

	if localHit {
		next := p.m
		next.MissCounted = true
		if p.m.Inst.Op == insts.OpSW {
			p.cache.WriteWord(p.m.Addr, p.m.StoreData)
			p.nextW = WLatch{Valid: true, Inst: p.m.Inst}
		} else {
			value := p.cache.ReadWord(p.m.Addr)
			p.nextW = WLatch{Valid: true, Inst: p.m.Inst, Value: value}
		}
		p.nextM = MLatch{}
		return false
	}

	next := p.m
	next.MissCounted = true
	next.Waiting = true
	if !next.RequestQueued {
		cmd := cache.CmdRD
		if p.m.Inst.Op == insts.OpSW {
			cmd = cache.CmdRDX
		}
		p.bus.Request(p.id, cmd, p.m.Addr)
		next.RequestQueued = true
	}
	p.stats.MemStall++
	p.nextM = next
	return true
}

// computeExec implements the EXEC stage. holdMem true means MEM is not free
// next cycle, so E must hold its instruction rather than advance into M.
func (p *Pipeline) computeExec(holdMem bool) (holdExec bool) {
	if !p.e.Valid {
		return false
	}

	if holdMem {
		p.nextE = p.e
		return true
	}

	inst := p.e.Inst
	var aluResult, storeData, addr uint32

	switch {
	case inst.IsMemOp():
		addr = (p.e.RsVal + p.e.RtVal) & AddrMask20
		storeData = p.e.RdVal
	case inst.Op == insts.OpJAL:
		aluResult = (inst.PC + 1) & PCMask
	default:
		aluResult = execALU(inst.Op, p.e.RsVal, p.e.RtVal)
	}

	p.nextM = MLatch{
		Valid:     true,
		Inst:      inst,
		Addr:      addr,
		StoreData: storeData,
		ALUResult: aluResult,
	}
	p.nextE = ELatch{}
	return false
}

// execALU evaluates the ALU/shift/multiply ops. An unrecognized op (any
// opcode with no case below, including branches and HALT which carry no
// result) yields zero, matching spec.md's "unknown opcodes behave as a
// zero-result ALU" rule.
func execALU(op insts.Op, rs, rt uint32) uint32 {
	switch op {
	case insts.OpADD:
		return rs + rt
	case insts.OpSUB:
		return rs - rt
	case insts.OpAND:
		return rs & rt
	case insts.OpOR:
		return rs | rt
	case insts.OpXOR:
		return rs ^ rt
	case insts.OpMUL:
		return rs * rt
	case insts.OpSLL:
		return rs << (rt & 0x1F)
	case insts.OpSRL:
		return rs >> (rt & 0x1F)
	case insts.OpSRA:
		return uint32(int32(rs) >> (rt & 0x1F))
	default:
		return 0
	}
}

// computeDecode implements the DECODE stage. holdExec true means EXEC is
// not free next cycle, which alone forces a stall regardless of hazards.
func (p *Pipeline) computeDecode(holdExec bool) (decodeFree bool) {
	if !p.d.Valid {
		return true
	}

	p.regs.SetImmediate(uint32(p.d.Inst.Imm))

	hazard := p.hasRAWHazard(p.d.Inst)
	if hazard || holdExec {
		p.stats.DecodeStall++
		p.nextD = p.d
		return false
	}

	rsVal := p.regs.Read(p.d.Inst.Rs)
	rtVal := p.regs.Read(p.d.Inst.Rt)
	rdVal := p.regs.Read(p.d.Inst.Rd)

	if p.d.Inst.Op.IsBranch() {
		if branchTaken(p.d.Inst.Op, rsVal, rtVal) {
			p.redirectPending = true
			p.redirectPC = rdVal & PCMask
			p.lastBranch = BranchEvent{Taken: true, PC: p.d.Inst.PC, Target: p.redirectPC}
		}
	} else if p.d.Inst.Op == insts.OpJAL {
		p.redirectPending = true
		p.redirectPC = rdVal & PCMask
		p.lastBranch = BranchEvent{Taken: true, PC: p.d.Inst.PC, Target: p.redirectPC}
	}

	p.nextE = ELatch{Valid: true, Inst: p.d.Inst, RsVal: rsVal, RtVal: rtVal, RdVal: rdVal}
	return true
}

// hasRAWHazard reports whether inst's non-reserved source registers collide
// with the destination of any currently in-flight (E, M, or W) instruction.
func (p *Pipeline) hasRAWHazard(inst insts.Instruction) bool {
	srcs, n := inst.Sources()
	for i := 0; i < n; i++ {
		s := srcs[i]
		if s <= 1 {
			continue
		}
		if dest, writes := p.e.Inst.DestReg(); p.e.Valid && writes && dest == s {
			return true
		}
		if dest, writes := p.m.Inst.DestReg(); p.m.Valid && writes && dest == s {
			return true
		}
		if dest, writes := p.w.Inst.DestReg(); p.w.Valid && writes && dest == s {
			return true
		}
	}
	return false
}

// branchTaken evaluates a signed comparison of rs, rt for op.
func branchTaken(op insts.Op, rs, rt uint32) bool {
	a, b := int32(rs), int32(rt)
	switch op {
	case insts.OpBEQ:
		return a == b
	case insts.OpBNE:
		return a != b
	case insts.OpBLT:
		return a < b
	case insts.OpBGT:
		return a > b
	case insts.OpBLE:
		return a <= b
	case insts.OpBGE:
		return a >= b
	default:
		return false
	}
}

// computeFetch implements the FETCH stage. decodeFree reports whether D
// will accept F's current content this cycle.
func (p *Pipeline) computeFetch(decodeFree bool) {
	if !decodeFree {
		p.nextD = p.d
		p.nextF = p.f
		return
	}

	p.nextD = DLatch{Valid: p.f.Valid, Inst: p.f.Inst}

	if p.stopFetch {
		p.nextF = FLatch{}
		return
	}

	var pc uint32
	if p.redirectPending {
		pc = p.redirectPC
		p.pc = (p.redirectPC + 1) & PCMask
		p.redirectPending = false
	} else {
		pc = p.pc
		p.pc = (p.pc + 1) & PCMask
	}

	word := p.imem.Read(pc)
	inst := p.decoder.Decode(word, pc)
	p.nextF = FLatch{Valid: true, Inst: inst}

	if inst.Op == insts.OpHALT {
		p.stopFetch = true
	}
}

// LastBranchEvent reports the branch/JAL redirect decision made by this
// cycle's DECODE stage, if any. Used only for optional diagnostic logging.
func (p *Pipeline) LastBranchEvent() BranchEvent { return p.lastBranch }

// CompleteMemRequest un-stalls this core's MEM occupancy after the bus
// signals its request satisfied, so the stage retries (and drains) next
// cycle without re-accounting the already-counted miss.
func (p *Pipeline) CompleteMemRequest() {
	p.nextM.Waiting = false
}

// Latch is step 5: commit next latches into current, ending the cycle.
func (p *Pipeline) Latch() {
	p.f = p.nextF
	p.d = p.nextD
	p.e = p.nextE
	p.m = p.nextM
	p.w = p.nextW
}
