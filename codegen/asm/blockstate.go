package asm

import "github.com/gogpu/naga/spirv"

// Options configures how Lower treats a template's trailing control flow,
// mirroring the options(...) clause rustc_codegen_spirv's asm! accepts.
type Options struct {
	// NoReturn declares that this template's block never falls through to
	// the caller's next instruction: its last line must be a terminator
	// (OpBranch, OpBranchConditional, OpSwitch, OpUnreachable or OpKill;
	// OpReturn/OpReturnValue are never allowed inside an asm block
	// regardless of this option), and that terminator is accepted only
	// because NoReturn says so.
	NoReturn bool
}

// BlockState tracks whether the basic block an asm template is building is
// still open for more instructions or has been sealed by a terminator,
// mirroring AsmBlock::{Open, End(Op)}. A template that ends with an open
// block falls through to the host's next instruction; one that ends with a
// terminator must not emit anything else into that block.
type BlockState struct {
	terminated bool
	by         spirv.OpCode
}

// Open is the state before any terminator has been seen.
func Open() BlockState { return BlockState{} }

// End marks the block sealed by the given terminator opcode.
func End(op spirv.OpCode) BlockState { return BlockState{terminated: true, by: op} }

// IsOpen reports whether more instructions may still be appended.
func (s BlockState) IsOpen() bool { return !s.terminated }

// TerminatedBy returns the terminator opcode and true if the block is
// sealed.
func (s BlockState) TerminatedBy() (spirv.OpCode, bool) { return s.by, s.terminated }

func isTerminator(op spirv.OpCode) bool {
	switch op {
	case spirv.OpBranch, spirv.OpBranchConditional, spirv.OpSwitch,
		spirv.OpReturn, spirv.OpReturnValue, spirv.OpUnreachable, spirv.OpKill:
		return true
	default:
		return false
	}
}

// isReturnTerminator reports whether op is OpReturn/OpReturnValue: Lower
// rejects both unconditionally, terminator or not, since returning from
// inside an inline asm block would bypass whatever epilogue the
// surrounding function builder still owes the caller.
func isReturnTerminator(op spirv.OpCode) bool {
	return op == spirv.OpReturn || op == spirv.OpReturnValue
}
