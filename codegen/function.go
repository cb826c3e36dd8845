package codegen

import (
	"github.com/gogpu/naga/codegen/builder"
	"github.com/gogpu/naga/diag"
	"github.com/gogpu/naga/hostir"
	"github.com/gogpu/naga/spirv"
)

// Builder lowers one function body's instructions into an open
// builder.Module function/block cursor, mirroring rustc_codegen_spirv's
// Builder<'a, 'tcx>: a thin, span-tracking wrapper around the shared
// Context plus the function/block currently being emitted into.
type Builder struct {
	cx          *Context
	currentSpan hostir.Span
}

// NewBuilder creates a function builder over cx. The caller must have
// already opened a function and block via cx.Module().BeginFunction /
// BeginBlock before emitting instructions.
func NewBuilder(cx *Context) *Builder {
	return &Builder{cx: cx, currentSpan: hostir.DummySpan()}
}

// SetSpan updates the span attached to subsequent Err/Fatal/Zombie calls,
// mirroring Builder::current_span being threaded through from the MIR
// statement currently being lowered.
func (b *Builder) SetSpan(span hostir.Span) { b.currentSpan = span }

// Span returns the currently tracked span.
func (b *Builder) Span() hostir.Span { return b.currentSpan }

// Err records a steady-state diagnostic at the current span, mirroring
// Builder::err.
func (b *Builder) Err(format string, args ...any) {
	b.cx.diagSink.Report(b.currentSpan, format, args...)
}

// Fatal aborts codegen with a FatalError at the current span, mirroring
// Builder::fatal.
func (b *Builder) Fatal(format string, args ...any) {
	diag.Fatal(b.currentSpan, format, args...)
}

// Zombie allocates a result of type resultType and marks it a zombie with
// reason at the current span, mirroring Builder::zombie (itself
// undef_zombie_with_span specialized to the current span).
func (b *Builder) Zombie(resultType Word, reason string) Word {
	id := b.emitUndef(resultType)
	b.cx.ZombieWithSpan(id, b.currentSpan, reason)
	return id
}

func (b *Builder) emitUndef(resultType Word) Word {
	mod := b.cx.Module()
	id := mod.AllocID()
	var ib builder.InstructionBuilder
	ib.AddWord(resultType).AddWord(id)
	mod.AddInst(ib.Build(spirv.OpUndef))
	return id
}

func (b *Builder) emitBinary(op spirv.OpCode, resultType, lhs, rhs Word) Word {
	mod := b.cx.Module()
	id := mod.AllocID()
	var ib builder.InstructionBuilder
	ib.AddWord(resultType).AddWord(id).AddWord(lhs).AddWord(rhs)
	mod.AddInst(ib.Build(op))
	return id
}

// GetParam returns the result ID of fn's index'th OpFunctionParameter,
// mirroring AbiBuilderMethods::get_param's read of
// module_ref().functions[current].parameters[index]. It is a compiler bug
// (Bug-tier fatal) to ask for an out-of-range parameter: query hooks on the
// host side should have already ruled that out.
func (b *Builder) GetParam(fn *builder.Function, index int) Word {
	// Header holds [OpFunction, OpFunctionParameter*]; parameter i is at
	// offset i+1.
	paramIdx := index + 1
	if paramIdx < 0 || paramIdx >= len(fn.Header) {
		diag.Bug(b.currentSpan, "get_param: index %d out of range for function with %d parameters", index, len(fn.Header)-1)
	}
	words := fn.Header[paramIdx].Words
	// OpFunctionParameter operands are (result type, result id); the id
	// is the second word.
	return words[1]
}

// StoreFnArg lowers one argument according to its PassMode, mirroring
// ArgAbiBuilderMethods::store_fn_arg's exact match. dst is the already-
// allocated local slot (an OpVariable pointer) the argument is stored
// into; next yields the next incoming parameter value each time it is
// called (once for Direct, twice for Pair).
func (b *Builder) StoreFnArg(arg hostir.ArgAbi, next func() Word, dst Word) {
	switch arg.Mode.Kind {
	case hostir.PassIgnore:
		return
	case hostir.PassDirect:
		val := next()
		b.storeArg(arg, val, dst)
	case hostir.PassPair:
		lo := next()
		hi := next()
		b.storePair(arg, lo, hi, dst)
	case hostir.PassCast, hostir.PassIndirect:
		diag.Bug(b.currentSpan, "store_fn_arg: PassMode %v should have been made impossible by host-side query hooks", arg.Mode.Kind)
	}
}

func (b *Builder) storeArg(arg hostir.ArgAbi, val, dst Word) {
	if arg.Layout.IsZST() {
		return
	}
	mod := b.cx.Module()
	var ib builder.InstructionBuilder
	ib.AddWord(dst).AddWord(val)
	mod.AddInst(ib.Build(spirv.OpStore))
}

func (b *Builder) storePair(arg hostir.ArgAbi, lo, hi, dst Word) {
	if arg.Layout.IsZST() {
		return
	}
	mod := b.cx.Module()
	var ib builder.InstructionBuilder
	ib.AddWord(dst).AddWord(lo)
	mod.AddInst(ib.Build(spirv.OpStore))
	var ib2 builder.InstructionBuilder
	ib2.AddWord(dst).AddWord(hi)
	mod.AddInst(ib2.Build(spirv.OpStore))
}

// ValidateAtomic guards an atomic operation on an 8- or 16-bit scalar: such
// atomics require a capability most runtimes don't expose. When disallowed,
// it zombies result (if non-zero) with the exact reason string the real
// backend uses and reports false; otherwise it returns true and the caller
// proceeds to emit the real atomic instruction, mirroring
// Builder::validate_atomic.
func (b *Builder) ValidateAtomic(scalarWidthBits uint32, result Word) bool {
	if scalarWidthBits != 8 && scalarWidthBits != 16 {
		return true
	}
	if b.cx.i8I16AtomicsAllowed {
		return true
	}
	if result != 0 {
		b.cx.ZombieWithSpan(result, b.currentSpan, "atomic on i8 or i16 when disallowed by runtime")
	}
	return false
}

// Rotate lowers a bitwise rotate (no native SPIR-V opcode) into
// shift+mask+or+select, exactly mirroring Builder::rotate's algorithm: it
// works for any shift amount, including one equal to the type's full
// width, where a naive shift pair would be undefined behavior.
//
//   mask      = width - 1
//   maskShift = shift & mask
//   sub       = width - maskShift
//   left:  or = (value << maskShift) | (value >>logical sub)
//   right: or = (value >>logical maskShift) | (value << sub)
//   result    = maskShift == 0 ? value : or
//
// intType must be the integer type of value and shift (both operands share
// width); boolType is the bool type used for the is-zero select guard.
func (b *Builder) Rotate(value, shift, intType, boolType Word, width uint32, isLeft bool) Word {
	mod := b.cx.Module()

	maskConst := b.constU32(intType, width-1)
	maskShift := b.emitBinary(spirv.OpBitwiseAnd, intType, shift, maskConst)

	widthConst := b.constU32(intType, width)
	sub := b.emitBinary(spirv.OpISub, intType, widthConst, maskShift)

	var lhs, rhs Word
	if isLeft {
		lhs = b.emitBinary(spirv.OpShiftLeftLogical, intType, value, maskShift)
		rhs = b.emitBinary(spirv.OpShiftRightLogical, intType, value, sub)
	} else {
		lhs = b.emitBinary(spirv.OpShiftRightLogical, intType, value, maskShift)
		rhs = b.emitBinary(spirv.OpShiftLeftLogical, intType, value, sub)
	}
	or := b.emitBinary(spirv.OpBitwiseOr, intType, lhs, rhs)

	zeroConst := b.constU32(intType, 0)
	maskIsZero := b.emitBinary(spirv.OpIEqual, boolType, maskShift, zeroConst)

	resultID := mod.AllocID()
	var ib builder.InstructionBuilder
	ib.AddWord(intType).AddWord(resultID).AddWord(maskIsZero).AddWord(value).AddWord(or)
	mod.AddInst(ib.Build(spirv.OpSelect))
	return resultID
}

// constU32 emits a fresh OpConstant of value v typed as intType on every
// call; constants are not interned, so repeated calls declare duplicate
// constants. Rotate only needs a handful of small constants per call site,
// so it emits them directly here rather than threading a constant-cache
// dependency through every Builder call.
func (b *Builder) constU32(intType Word, v uint32) Word {
	mod := b.cx.Module()
	id := mod.AllocID()
	var ib builder.InstructionBuilder
	ib.AddWord(intType).AddWord(id).AddWord(v)
	mod.AddGlobalInst(ib.Build(spirv.OpConstant))
	return id
}
