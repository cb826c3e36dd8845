package codegen

import (
	"testing"

	"github.com/gogpu/naga/codegen/builder"
	"github.com/gogpu/naga/hostir"
	"github.com/gogpu/naga/spirv"
)

func openTestFunction(cx *Context) *Builder {
	mod := cx.Module()
	fnID := mod.AllocID()
	mod.BeginFunction(fnID, cx.TypeVoid())
	mod.BeginBlock()
	return NewBuilder(cx)
}

func TestBuilder_RotateEmitsSelectTerminatedChain(t *testing.T) {
	cx := newTestContext(t)
	b := openTestFunction(cx)

	i32 := cx.TypeI32()
	boolTy := cx.TypeBool()
	mod := cx.Module()
	value := mod.AllocID()
	shift := mod.AllocID()

	result := b.Rotate(value, shift, i32, boolTy, 32, true)
	if result == 0 {
		t.Fatal("expected a non-zero result id")
	}

	blk := mod.CurrentBlock()
	if len(blk.Instructions) == 0 {
		t.Fatal("expected instructions to be emitted")
	}
	last := blk.Instructions[len(blk.Instructions)-1]
	if last.Opcode != spirv.OpSelect {
		t.Errorf("expected the chain to end in OpSelect, got opcode %d", last.Opcode)
	}
}

func TestBuilder_RotateRightUsesOppositeShiftOrder(t *testing.T) {
	cx := newTestContext(t)
	b := openTestFunction(cx)

	i32 := cx.TypeI32()
	boolTy := cx.TypeBool()
	mod := cx.Module()
	value := mod.AllocID()
	shift := mod.AllocID()

	b.Rotate(value, shift, i32, boolTy, 32, false)

	blk := mod.CurrentBlock()
	var sawShr, sawShl bool
	shrBeforeShl := false
	for _, inst := range blk.Instructions {
		if inst.Opcode == spirv.OpShiftRightLogical && !sawShl {
			sawShr = true
		}
		if inst.Opcode == spirv.OpShiftLeftLogical {
			sawShl = true
			shrBeforeShl = sawShr
		}
	}
	if !shrBeforeShl {
		t.Error("expected rotate-right to shift-right by the masked amount before shifting left by the complement")
	}
}

func TestBuilder_ValidateAtomicAllowsWideScalars(t *testing.T) {
	cx := newTestContext(t)
	b := openTestFunction(cx)

	if !b.ValidateAtomic(32, 0) {
		t.Error("expected 32-bit atomics to always be allowed")
	}
}

func TestBuilder_ValidateAtomicZombiesNarrowScalarsByDefault(t *testing.T) {
	cx := newTestContext(t)
	b := openTestFunction(cx)

	result := b.emitUndef(cx.TypeI8())
	if b.ValidateAtomic(8, result) {
		t.Error("expected 8-bit atomics to be disallowed by default")
	}

	zs := cx.Zombies()
	z, ok := zs[result]
	if !ok {
		t.Fatal("expected the result to be zombied")
	}
	if z.Reason != "atomic on i8 or i16 when disallowed by runtime" {
		t.Errorf("unexpected zombie reason: %q", z.Reason)
	}
}

func TestBuilder_ValidateAtomicAllowedWhenRuntimeOptsIn(t *testing.T) {
	cx := newTestContext(t)
	cx.i8I16AtomicsAllowed = true
	b := openTestFunction(cx)

	if !b.ValidateAtomic(16, 0) {
		t.Error("expected 16-bit atomics to be allowed once the runtime opts in")
	}
}

func TestBuilder_GetParamReadsFunctionHeader(t *testing.T) {
	cx := newTestContext(t)
	mod := cx.Module()
	i32 := cx.TypeI32()

	fnID := mod.AllocID()
	var opFn builder.InstructionBuilder
	opFn.AddWord(i32).AddWord(0).AddWord(fnID)
	fn := mod.BeginFunction(fnID, i32, opFn.Build(spirv.OpFunction))
	p0 := mod.AddFunctionParameter(i32)
	p1 := mod.AddFunctionParameter(i32)
	mod.BeginBlock()

	b := NewBuilder(cx)
	if got := b.GetParam(fn, 0); got != p0 {
		t.Errorf("expected param 0 to be %d, got %d", p0, got)
	}
	if got := b.GetParam(fn, 1); got != p1 {
		t.Errorf("expected param 1 to be %d, got %d", p1, got)
	}
}

func TestBuilder_StoreFnArgIgnoreIsNoOp(t *testing.T) {
	cx := newTestContext(t)
	b := openTestFunction(cx)
	calls := 0
	next := func() Word { calls++; return 0 }

	arg := hostir.ArgAbi{Mode: hostir.PassMode{Kind: hostir.PassIgnore}}
	b.StoreFnArg(arg, next, 0)

	if calls != 0 {
		t.Errorf("expected PassIgnore to never pull a value, got %d calls", calls)
	}
}

func TestBuilder_StoreFnArgDirectPullsOnce(t *testing.T) {
	cx := newTestContext(t)
	b := openTestFunction(cx)
	mod := cx.Module()
	dst := mod.AllocID()
	calls := 0
	next := func() Word { calls++; return mod.AllocID() }

	arg := hostir.ArgAbi{Mode: hostir.PassMode{Kind: hostir.PassDirect}}
	b.StoreFnArg(arg, next, dst)

	if calls != 1 {
		t.Errorf("expected PassDirect to pull exactly once, got %d calls", calls)
	}
}

func TestBuilder_StoreFnArgPairPullsTwice(t *testing.T) {
	cx := newTestContext(t)
	b := openTestFunction(cx)
	mod := cx.Module()
	dst := mod.AllocID()
	calls := 0
	next := func() Word { calls++; return mod.AllocID() }

	arg := hostir.ArgAbi{Mode: hostir.PassMode{Kind: hostir.PassPair}}
	b.StoreFnArg(arg, next, dst)

	if calls != 2 {
		t.Errorf("expected PassPair to pull exactly twice, got %d calls", calls)
	}
}

func TestBuilder_StoreFnArgCastIsBug(t *testing.T) {
	cx := newTestContext(t)
	b := openTestFunction(cx)
	defer func() {
		if recover() == nil {
			t.Fatal("expected PassCast to be an unreachable compiler bug")
		}
	}()
	arg := hostir.ArgAbi{Mode: hostir.PassMode{Kind: hostir.PassCast}}
	b.StoreFnArg(arg, func() Word { return 0 }, 0)
}
