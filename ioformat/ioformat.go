// Package ioformat reads and writes the hex text file formats of the
// simulator's external interfaces: one 8-hex-digit word per line for
// instruction/memory images, register and cache dumps, and an eight-line
// "name N" format for per-core statistics.
package ioformat

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/quadcore/mesisim/timing/pipeline"
)

// ReadHexWords reads path as a text file of one 8-hex-digit word per line
// and returns the words in file order. A missing file is reported as an
// error; a blank line is skipped. Lines beyond what the file contains are
// the caller's responsibility to treat as zero (imem and main memory do
// this via their own LoadWords).
func ReadHexWords(path string) ([]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ioformat: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var words []uint32
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseUint(line, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("ioformat: parse %s: %w", path, err)
		}
		words = append(words, uint32(v))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ioformat: read %s: %w", path, err)
	}
	return words, nil
}

// WriteHexWords writes words to path, one uppercase 8-hex-digit word per
// line.
func WriteHexWords(path string, words []uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ioformat: create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	for _, word := range words {
		if _, err := fmt.Fprintf(w, "%08X\n", word); err != nil {
			return fmt.Errorf("ioformat: write %s: %w", path, err)
		}
	}
	return w.Flush()
}

// WriteStats writes s to path as the eight-line stats{i} format.
func WriteStats(path string, s pipeline.Stats) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ioformat: create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	lines := []struct {
		name  string
		value uint64
	}{
		{"cycles", s.Cycles},
		{"instructions", s.Instructions},
		{"read_hit", s.ReadHit},
		{"write_hit", s.WriteHit},
		{"read_miss", s.ReadMiss},
		{"write_miss", s.WriteMiss},
		{"decode_stall", s.DecodeStall},
		{"mem_stall", s.MemStall},
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%s %d\n", l.name, l.value); err != nil {
			return fmt.Errorf("ioformat: write %s: %w", path, err)
		}
	}
	return w.Flush()
}

// OpenAppendWriter opens path for the long-lived, line-at-a-time writes the
// trace emitters perform across an entire simulation run.
func OpenAppendWriter(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("ioformat: create %s: %w", path, err)
	}
	return f, nil
}
