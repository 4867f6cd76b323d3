// Command sim is the primary driver: it wires four cores, a shared bus,
// and main memory together, takes the 27 external file names, loads the
// five input files (imem0..3, memin), runs to quiescence (or an optional
// cycle cap), and writes every output file.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/quadcore/mesisim/ioformat"
	"github.com/quadcore/mesisim/memory"
	"github.com/quadcore/mesisim/sim"
	"github.com/quadcore/mesisim/timing/bus"
	"github.com/quadcore/mesisim/timing/pipeline"
)

// defaultFiles are the well-known filenames used when sim is invoked with
// no arguments, in the positional order spec.md §6 defines: imem0..3,
// memin, memout, regout0..3, coretrace0..3, bustrace, dsram0..3,
// tsram0..3, stats0..3.
var defaultFiles = []string{
	"imem0", "imem1", "imem2", "imem3",
	"memin", "memout",
	"regout0", "regout1", "regout2", "regout3",
	"coretrace0", "coretrace1", "coretrace2", "coretrace3",
	"bustrace",
	"dsram0", "dsram1", "dsram2", "dsram3",
	"tsram0", "tsram1", "tsram2", "tsram3",
	"stats0", "stats1", "stats2", "stats3",
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: sim [imem0 imem1 imem2 imem3 memin memout "+
		"regout0..3 coretrace0..3 bustrace dsram0..3 tsram0..3 stats0..3]")
	fmt.Fprintln(os.Stderr, "  (zero arguments uses well-known default filenames)")
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var files []string
	switch len(args) {
	case 0:
		files = defaultFiles
	case 27:
		files = args
	default:
		usage()
		return 1
	}

	imem := files[0:4]
	memin := files[4]
	memout := files[5]
	regout := files[6:10]
	coretrace := files[10:14]
	bustraceFile := files[14]
	dsram := files[15:19]
	tsram := files[19:23]
	stats := files[23:27]

	var imems [bus.NumCores]*pipeline.InstrMem
	for i := 0; i < bus.NumCores; i++ {
		words, err := ioformat.ReadHexWords(imem[i])
		if err != nil {
			fmt.Fprintf(os.Stderr, "sim: %v\n", err)
			return 1
		}
		imems[i] = pipeline.NewInstrMem()
		imems[i].LoadWords(words)
	}

	meminWords, err := ioformat.ReadHexWords(memin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sim: %v\n", err)
		return 1
	}
	mem := memory.New()
	mem.LoadWords(meminWords)

	var coreTraceFiles [bus.NumCores]io.WriteCloser
	var coreTraceW [bus.NumCores]io.Writer
	for i := 0; i < bus.NumCores; i++ {
		f, err := ioformat.OpenAppendWriter(coretrace[i])
		if err != nil {
			fmt.Fprintf(os.Stderr, "sim: %v\n", err)
			return 1
		}
		coreTraceFiles[i] = f
		coreTraceW[i] = f
	}
	busTraceFile, err := ioformat.OpenAppendWriter(bustraceFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sim: %v\n", err)
		return 1
	}
	defer func() {
		for _, f := range coreTraceFiles {
			_ = f.Close()
		}
		_ = busTraceFile.Close()
	}()

	s := sim.New(imems, mem, coreTraceW, busTraceFile)
	s.DebugBranch = os.Getenv("SIM_DEBUG_BRANCH") != ""
	s.Debug = os.Stderr

	var maxCycles uint64
	if v := os.Getenv("SIM_MAX_CYCLES"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sim: invalid SIM_MAX_CYCLES %q: %v\n", v, err)
			return 1
		}
		maxCycles = n
	}

	s.Run(maxCycles)
	if err := s.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "sim: %v\n", err)
		return 1
	}

	if err := ioformat.WriteHexWords(memout, s.Memory().Dump()); err != nil {
		fmt.Fprintf(os.Stderr, "sim: %v\n", err)
		return 1
	}

	for i := 0; i < bus.NumCores; i++ {
		regs := s.Core(i).RegDump()
		if err := ioformat.WriteHexWords(regout[i], regs[:]); err != nil {
			fmt.Fprintf(os.Stderr, "sim: %v\n", err)
			return 1
		}

		data := s.Core(i).Cache.DumpData()
		if err := ioformat.WriteHexWords(dsram[i], data[:]); err != nil {
			fmt.Fprintf(os.Stderr, "sim: %v\n", err)
			return 1
		}

		tagState := s.Core(i).Cache.DumpTagState()
		if err := ioformat.WriteHexWords(tsram[i], tagState[:]); err != nil {
			fmt.Fprintf(os.Stderr, "sim: %v\n", err)
			return 1
		}

		if err := ioformat.WriteStats(stats[i], s.Core(i).Stats()); err != nil {
			fmt.Fprintf(os.Stderr, "sim: %v\n", err)
			return 1
		}
	}

	return 0
}
