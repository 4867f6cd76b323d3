// Package sim owns the top-level simulation aggregate: four cores, the
// shared bus, and main memory, driven by one global cycle loop. It replaces
// the teacher's single-pipeline "construct, run to halt, report" wiring
// (cmd/m2sim/main.go's runTiming) with an aggregate that ticks four
// pipelines in lockstep against one bus and one memory, exactly as
// spec.md §4.2's five-step cycle ordering and §5's synchronous scheduling
// model require.
package sim

import (
	"fmt"
	"io"

	"github.com/quadcore/mesisim/memory"
	"github.com/quadcore/mesisim/timing/bus"
	"github.com/quadcore/mesisim/timing/cache"
	"github.com/quadcore/mesisim/timing/core"
	"github.com/quadcore/mesisim/timing/pipeline"
	"github.com/quadcore/mesisim/trace"
)

// Sim is the four-core, one-bus, one-memory simulation aggregate.
type Sim struct {
	cores [bus.NumCores]*core.Core
	bus   *bus.Bus
	mem   *memory.Memory

	coreTrace [bus.NumCores]*trace.CoreWriter
	busTrace  *trace.BusWriter

	cycle uint64

	// DebugBranch enables per-cycle branch/JAL redirect logging to Debug.
	DebugBranch bool
	Debug       io.Writer
}

// New creates the four-core aggregate. imems holds each core's preloaded
// instruction memory; mem is main memory, already loaded from memin.
// coreTraceW and busTraceW back the trace emitters; a nil entry disables
// that trace stream.
func New(imems [bus.NumCores]*pipeline.InstrMem, mem *memory.Memory,
	coreTraceW [bus.NumCores]io.Writer, busTraceW io.Writer) *Sim {
	s := &Sim{bus: bus.New(), mem: mem}

	for i := 0; i < bus.NumCores; i++ {
		s.cores[i] = core.NewCore(i, imems[i], s.bus)
		if coreTraceW[i] != nil {
			s.coreTrace[i] = trace.NewCoreWriter(coreTraceW[i])
		}
	}
	if busTraceW != nil {
		s.busTrace = trace.NewBusWriter(busTraceW)
	}

	return s
}

// Core returns core i (0-3), for dumping final register/cache state.
func (s *Sim) Core(i int) *core.Core { return s.cores[i] }

// Memory returns main memory, for dumping the final memout image.
func (s *Sim) Memory() *memory.Memory { return s.mem }

// Cycle returns the number of cycles advanced so far.
func (s *Sim) Cycle() uint64 { return s.cycle }

// Quiescent reports whether the simulation has reached its halt condition:
// all four cores done and the bus idle.
func (s *Sim) Quiescent() bool {
	if !s.bus.Idle() {
		return false
	}
	for _, c := range s.cores {
		if !c.Done() {
			return false
		}
	}
	return true
}

// Tick advances the global clock by one cycle, implementing spec.md
// §4.2's five ordered steps across all four cores and the shared bus.
func (s *Sim) Tick() {
	s.cycle++

	var active [bus.NumCores]bool
	for i, c := range s.cores {
		active[i] = !c.Done()
		if active[i] && s.coreTrace[i] != nil {
			_ = s.coreTrace[i].Emit(s.cycle, c.Pipeline.Snapshot())
		}
	}

	for i, c := range s.cores {
		if active[i] {
			c.Pipeline.CommitWriteback()
		}
	}

	for i, c := range s.cores {
		if active[i] {
			c.Pipeline.ComputeNext()
			if s.DebugBranch && s.Debug != nil {
				if ev := c.Pipeline.LastBranchEvent(); ev.Taken {
					_, _ = io.WriteString(s.Debug,
						debugBranchLine(s.cycle, i, ev))
				}
			}
		}
	}

	var caches [bus.NumCores]*cache.Cache
	for i, c := range s.cores {
		caches[i] = c.Cache
	}
	line, completedOrigin, completed := s.bus.Advance(caches, s.mem)
	if s.busTrace != nil {
		_ = s.busTrace.Emit(s.cycle, line)
	}
	if completed {
		s.cores[completedOrigin].Pipeline.CompleteMemRequest()
	}

	for i, c := range s.cores {
		if active[i] {
			c.Pipeline.Latch()
		}
	}
}

// Run ticks until quiescence or, if maxCycles is non-zero, until the cycle
// cap is reached (completing the in-flight cycle, never stopping mid-cycle).
// It reports the final cycle count and whether the cap was hit.
func (s *Sim) Run(maxCycles uint64) (cycles uint64, hitCap bool) {
	for !s.Quiescent() {
		if maxCycles != 0 && s.cycle >= maxCycles {
			return s.cycle, true
		}
		s.Tick()
	}
	return s.cycle, false
}

// Flush flushes any buffered trace writers. Safe to call whether or not a
// given stream was enabled.
func (s *Sim) Flush() error {
	for _, w := range s.coreTrace {
		if w == nil {
			continue
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	if s.busTrace != nil {
		return s.busTrace.Flush()
	}
	return nil
}

func debugBranchLine(cycle uint64, coreID int, ev pipeline.BranchEvent) string {
	return fmt.Sprintf("branch cycle=%d core=%d pc=%03X target=%03X\n",
		cycle, coreID, ev.PC, ev.Target)
}
