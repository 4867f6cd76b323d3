// Package regfile implements the per-core architectural register file:
// 16 general-purpose registers where R0 is hardwired to zero and R1 is a
// live window onto the decode-stage instruction's immediate rather than a
// general write target.
package regfile

// NumRegs is the number of architectural registers per core.
const NumRegs = 16

// File is one core's 16-word register file.
type File struct {
	regs [NumRegs]uint32
}

// New creates a register file with all registers (including R1) zeroed.
func New() *File {
	return &File{}
}

// Read returns the value of register idx. R0 always reads as zero.
func (f *File) Read(idx uint8) uint32 {
	if idx == 0 {
		return 0
	}
	return f.regs[idx]
}

// Write sets register idx to value. Writes to R0 and R1 are silently
// dropped: R0 is constant zero and R1 is only ever set via SetImmediate.
func (f *File) Write(idx uint8, value uint32) {
	if idx <= 1 {
		return
	}
	f.regs[idx] = value
}

// SetImmediate overwrites R1 with the current decode-stage instruction's
// sign-extended immediate. Called once per cycle whenever the decode latch
// holds a valid instruction, independent of Write's R0/R1 guard.
func (f *File) SetImmediate(imm uint32) {
	f.regs[1] = imm
}

// Dump returns R2..R15 in order, matching the regout{i} file format.
func (f *File) Dump() [NumRegs - 2]uint32 {
	var out [NumRegs - 2]uint32
	copy(out[:], f.regs[2:])
	return out
}
