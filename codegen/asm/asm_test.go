package asm

import (
	"strings"
	"testing"

	"github.com/gogpu/naga/codegen"
	"github.com/gogpu/naga/spirv"
)

func newTestContext(t *testing.T) *codegen.Context {
	t.Helper()
	return codegen.New("spirv-unknown-vulkan1.2", spirv.Version1_3)
}

func openBlock(cx *codegen.Context) {
	mod := cx.Module()
	fnID := mod.AllocID()
	mod.BeginFunction(fnID, cx.TypeVoid())
	mod.BeginBlock()
}

func TestLower_InferredArithmeticResultType(t *testing.T) {
	cx := newTestContext(t)
	openBlock(cx)

	i32 := cx.TypeI32()
	x := cx.Module().AllocID()
	y := cx.Module().AllocID()
	valueTypes := map[Word]Word{x: i32, y: i32}
	operands := []Operand{{Name: "x", Value: x}, {Name: "y", Value: y}}

	res, err := Lower(cx, []string{"%sum = OpIAdd _ %x %y"}, operands, valueTypes, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sum, ok := res.Results["sum"]
	if !ok {
		t.Fatal("expected a 'sum' result binding")
	}
	if valueTypes[sum] != i32 {
		t.Errorf("expected inferred result type i32, got %d", valueTypes[sum])
	}
	if !res.Block.IsOpen() {
		t.Error("expected block to remain open after a non-terminator")
	}
}

func TestLower_ComparisonInfersBool(t *testing.T) {
	cx := newTestContext(t)
	openBlock(cx)

	i32 := cx.TypeI32()
	x := cx.Module().AllocID()
	y := cx.Module().AllocID()
	valueTypes := map[Word]Word{x: i32, y: i32}

	res, err := Lower(cx, []string{"%cmp = OpIEqual _ %x %y"}, []Operand{{Name: "x", Value: x}, {Name: "y", Value: y}}, valueTypes, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cmp := res.Results["cmp"]
	if valueTypes[cmp] != cx.TypeBool() {
		t.Error("expected comparison result type to be bool")
	}
}

func TestLower_ExplicitResultType(t *testing.T) {
	cx := newTestContext(t)
	openBlock(cx)

	boolTy := cx.TypeBool()
	a := cx.Module().AllocID()
	b := cx.Module().AllocID()
	c := cx.Module().AllocID()
	operands := []Operand{{Name: "a", Value: a}, {Name: "b", Value: b}, {Name: "c", Value: c}, {Name: "boolty", Value: boolTy}}
	valueTypes := map[Word]Word{}

	res, err := Lower(cx, []string{"%sel = OpSelect %boolty %a %b %c"}, operands, valueTypes, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := res.Results["sel"]; !ok {
		t.Fatal("expected a 'sel' result binding")
	}
}

func TestLower_TerminatorRequiresNoreturn(t *testing.T) {
	cx := newTestContext(t)
	openBlock(cx)

	_, err := Lower(cx, []string{"OpUnreachable"}, nil, map[Word]Word{}, Options{})
	if err == nil {
		t.Fatal("expected an error for a trailing terminator without options(noreturn)")
	}
	want := "trailing terminator `OpUnreachable` requires `options(noreturn)`"
	if err.Error() != want {
		t.Errorf("unexpected error text: got %q, want %q", err.Error(), want)
	}
}

func TestLower_NoreturnSealsBlockAndAppendsLabel(t *testing.T) {
	cx := newTestContext(t)
	openBlock(cx)

	fn := cx.Module().CurrentFunction()
	blocksBefore := len(fn.Blocks)

	res, err := Lower(cx, []string{"OpUnreachable"}, nil, map[Word]Word{}, Options{NoReturn: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Block.IsOpen() {
		t.Error("expected OpUnreachable to seal the block")
	}
	if by, ok := res.Block.TerminatedBy(); !ok || by != spirv.OpUnreachable {
		t.Error("expected TerminatedBy to report OpUnreachable")
	}
	if len(fn.Blocks) != blocksBefore+1 {
		t.Errorf("expected a post-terminator label block to be appended, got %d blocks (started with %d)", len(fn.Blocks), blocksBefore)
	}
}

func TestLower_NoreturnWithoutTerminatorErrors(t *testing.T) {
	cx := newTestContext(t)
	openBlock(cx)

	x := cx.Module().AllocID()
	y := cx.Module().AllocID()
	i32 := cx.TypeI32()
	valueTypes := map[Word]Word{x: i32, y: i32}

	_, err := Lower(cx, []string{"%sum = OpIAdd _ %x %y"}, []Operand{{Name: "x", Value: x}, {Name: "y", Value: y}}, valueTypes, Options{NoReturn: true})
	if err == nil {
		t.Fatal("expected an error when options(noreturn) is set but no terminator is emitted")
	}
}

func TestLower_ReturnInsideAsmIsDisallowed(t *testing.T) {
	cx := newTestContext(t)
	openBlock(cx)

	_, err := Lower(cx, []string{"OpReturn"}, nil, map[Word]Word{}, Options{NoReturn: true})
	if err == nil {
		t.Fatal("expected OpReturn inside an asm block to be rejected even under options(noreturn)")
	}
}

func TestLower_InstructionAfterTerminatorErrors(t *testing.T) {
	cx := newTestContext(t)
	openBlock(cx)

	_, err := Lower(cx, []string{"OpUnreachable", "OpUnreachable"}, nil, map[Word]Word{}, Options{NoReturn: true})
	if err == nil {
		t.Error("expected an error for an instruction following a terminator")
	}
}

func TestLower_UndefinedOperandErrors(t *testing.T) {
	cx := newTestContext(t)
	openBlock(cx)

	_, err := Lower(cx, []string{"%r = OpIAdd _ %missing %alsomissing"}, nil, map[Word]Word{}, Options{})
	if err == nil {
		t.Error("expected an error for an undefined operand id")
	}
}

func TestLower_UnknownMnemonicErrors(t *testing.T) {
	cx := newTestContext(t)
	openBlock(cx)

	_, err := Lower(cx, []string{"OpThisDoesNotExist"}, nil, map[Word]Word{}, Options{})
	if err == nil {
		t.Error("expected an error for an unknown mnemonic")
	}
}

func TestLower_StringLiteralOperand(t *testing.T) {
	cx := newTestContext(t)
	openBlock(cx)

	// OpStore takes no string operands, but the lexer must still tolerate
	// a quoted string appearing as an (ill-typed) operand without panicking:
	// the string is lexed and then rejected with an error.
	ptr := cx.Module().AllocID()
	val := cx.Module().AllocID()
	_, err := Lower(cx, []string{"OpStore %p %v"}, []Operand{{Name: "p", Value: ptr}, {Name: "v", Value: val}}, map[Word]Word{}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = Lower(cx, []string{`OpStore %p %v "hello \"world\""`}, []Operand{{Name: "p", Value: ptr}, {Name: "v", Value: val}}, map[Word]Word{}, Options{})
	if err == nil {
		t.Error("expected a quoted string in OpStore's MemoryAccess position to be rejected with an error")
	}
}

func TestLower_PositionalPlaceholderOperand(t *testing.T) {
	cx := newTestContext(t)
	openBlock(cx)

	i32 := cx.TypeI32()
	ptrTy := cx.TypePtr(i32)
	ptr := cx.Module().AllocID()
	n := cx.Module().AllocID()
	valueTypes := map[Word]Word{ptr: ptrTy, n: i32}

	res, err := Lower(cx,
		[]string{"%result = OpIAdd typeof*{0} {0} {1}"},
		[]Operand{{Value: ptr}, {Value: n}},
		valueTypes,
		Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, ok := res.Results["result"]
	if !ok {
		t.Fatal("expected a 'result' binding")
	}
	if valueTypes[result] != i32 {
		t.Errorf("expected typeof*{0} to sharpen the result type to i32, got %d", valueTypes[result])
	}
}

func TestLower_BitflagOperand(t *testing.T) {
	cx := newTestContext(t)
	openBlock(cx)

	i32 := cx.TypeI32()
	ptr := cx.Module().AllocID()
	valueTypes := map[Word]Word{ptr: cx.TypePtr(i32)}

	_, err := Lower(cx, []string{"%v = OpLoad _ %ptr Aligned|Volatile"}, []Operand{{Name: "ptr", Value: ptr}}, valueTypes, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLower_UnknownBitflagErrors(t *testing.T) {
	cx := newTestContext(t)
	openBlock(cx)

	i32 := cx.TypeI32()
	ptr := cx.Module().AllocID()
	valueTypes := map[Word]Word{ptr: cx.TypePtr(i32)}

	_, err := Lower(cx, []string{"%v = OpLoad _ %ptr NotARealFlag"}, []Operand{{Name: "ptr", Value: ptr}}, valueTypes, Options{})
	if err == nil {
		t.Fatal("expected an error for an unrecognized bitflag word")
	}
}

func TestLower_EnumerantOperand(t *testing.T) {
	cx := newTestContext(t)
	openBlock(cx)

	i32 := cx.TypeI32()
	ptr := cx.Module().AllocID()
	val := cx.Module().AllocID()
	valueTypes := map[Word]Word{ptr: cx.TypePtr(i32), val: i32}

	_, err := Lower(cx,
		[]string{"%old = OpAtomicIAdd _ %ptr Device None %val"},
		[]Operand{{Name: "ptr", Value: ptr}, {Name: "val", Value: val}},
		valueTypes, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLower_UnknownEnumerantErrors(t *testing.T) {
	cx := newTestContext(t)
	openBlock(cx)

	i32 := cx.TypeI32()
	ptr := cx.Module().AllocID()
	val := cx.Module().AllocID()
	valueTypes := map[Word]Word{ptr: cx.TypePtr(i32), val: i32}

	_, err := Lower(cx,
		[]string{"%old = OpAtomicIAdd _ %ptr NotAScope None %val"},
		[]Operand{{Name: "ptr", Value: ptr}, {Name: "val", Value: val}},
		valueTypes, Options{})
	if err == nil {
		t.Fatal("expected an error for an unrecognized enumerant word")
	}
	if !strings.Contains(err.Error(), "NotAScope") {
		t.Errorf("expected error to name the bad enumerant, got %v", err)
	}
}
