// Package trace emits the per-cycle coretrace and bustrace text streams.
// Both are line-oriented, written incrementally as the simulation advances
// cycle by cycle, so each writer buffers through a bufio.Writer and must be
// Flush()-ed once the run ends (naturally or via the cycle cap) to make
// sure the last buffered lines reach disk.
package trace

import (
	"bufio"
	"fmt"
	"io"

	"github.com/quadcore/mesisim/timing/bus"
	"github.com/quadcore/mesisim/timing/pipeline"
)

// CoreWriter emits one coretrace line per cycle in which any of a core's
// five pipeline latches is valid.
type CoreWriter struct {
	w *bufio.Writer
}

// NewCoreWriter wraps w for buffered, line-oriented coretrace output.
func NewCoreWriter(w io.Writer) *CoreWriter {
	return &CoreWriter{w: bufio.NewWriter(w)}
}

// Emit writes one line for cycle if at least one latch in snap is valid.
// Format: "<cycle> <F> <D> <E> <M> <W> <R2> ... <R15>", each stage field
// either "---" or the instruction's three-hex-digit PC, registers as
// 8-hex words.
func (c *CoreWriter) Emit(cycle uint64, snap pipeline.Snapshot) error {
	if !snap.F.Valid && !snap.D.Valid && !snap.E.Valid && !snap.M.Valid && !snap.W.Valid {
		return nil
	}

	fmt.Fprintf(c.w, "%d %s %s %s %s %s", cycle,
		stageField(snap.F), stageField(snap.D), stageField(snap.E),
		stageField(snap.M), stageField(snap.W))
	for _, r := range snap.Regs {
		fmt.Fprintf(c.w, " %08X", r)
	}
	_, err := fmt.Fprintln(c.w)
	return err
}

// Flush flushes any buffered lines to the underlying writer.
func (c *CoreWriter) Flush() error {
	return c.w.Flush()
}

func stageField(s pipeline.StageSnapshot) string {
	if !s.Valid {
		return "---"
	}
	return fmt.Sprintf("%03X", s.PC&0xFFF)
}

// BusWriter emits one bustrace line per cycle in which a bus command is
// driven (idle cycles are skipped).
type BusWriter struct {
	w *bufio.Writer
}

// NewBusWriter wraps w for buffered, line-oriented bustrace output.
func NewBusWriter(w io.Writer) *BusWriter {
	return &BusWriter{w: bufio.NewWriter(w)}
}

// Emit writes one line for cycle if line.Active, in the format
// "<cycle> <origid:1hex> <cmd:1hex> <addr:5hex> <data:8hex> <shared:1hex>".
func (b *BusWriter) Emit(cycle uint64, line bus.Line) error {
	if !line.Active {
		return nil
	}

	shared := uint8(0)
	if line.Shared {
		shared = 1
	}
	_, err := fmt.Fprintf(b.w, "%d %01X %01X %05X %08X %01X\n",
		cycle, line.Origin, line.Cmd, line.Addr&0xFFFFF, line.Data, shared)
	return err
}

// Flush flushes any buffered lines to the underlying writer.
func (b *BusWriter) Flush() error {
	return b.w.Flush()
}
