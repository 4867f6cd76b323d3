// Package core provides the cycle-accurate CPU core model: it wraps the
// pipeline, its private cache, and its register file behind one per-core
// handle the top-level simulator drives.
package core

import (
	"github.com/quadcore/mesisim/regfile"
	"github.com/quadcore/mesisim/timing/bus"
	"github.com/quadcore/mesisim/timing/cache"
	"github.com/quadcore/mesisim/timing/pipeline"
)

// Core is one core's pipeline, cache, and register file.
type Core struct {
	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	// Cache is this core's private MESI cache, also referenced directly by
	// the bus for snoop and fill.
	Cache *cache.Cache

	id   int
	regs *regfile.File
}

// NewCore creates core id, sharing the given bus with its peers.
func NewCore(id int, imem *pipeline.InstrMem, b *bus.Bus) *Core {
	regs := regfile.New()
	c := cache.New(id)
	return &Core{
		Pipeline: pipeline.NewPipeline(id, regs, imem, c, b),
		Cache:    c,
		id:       id,
		regs:     regs,
	}
}

// ID returns this core's index (0-3).
func (c *Core) ID() int { return c.id }

// Done reports whether the core has retired HALT and fully drained.
func (c *Core) Done() bool {
	return c.Pipeline.Done()
}

// Stats returns this core's accounting counters.
func (c *Core) Stats() pipeline.Stats {
	return c.Pipeline.Stats()
}

// RegDump returns R2..R15, matching the regout{i} file.
func (c *Core) RegDump() [regfile.NumRegs - 2]uint32 {
	return c.regs.Dump()
}
