package codegen

import (
	"testing"

	"github.com/gogpu/naga/diag"
	"github.com/gogpu/naga/hostir"
	"github.com/gogpu/naga/spirv"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	return New("spirv-unknown-vulkan1.2", spirv.Version1_3)
}

func TestContext_ScalarTypesDeduplicate(t *testing.T) {
	cx := newTestContext(t)
	a := cx.TypeI32()
	b := cx.TypeI32()
	if a != b {
		t.Errorf("expected i32 to dedupe, got %d and %d", a, b)
	}
	if cx.TypeU32() == a {
		t.Error("expected i32 and u32 to be distinct types")
	}
}

func TestContext_RejectsNonSpirvTarget(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic for a non-SPIR-V target")
		}
		if _, ok := r.(*diag.FatalError); !ok {
			t.Fatalf("expected a *diag.FatalError panic, got %T", r)
		}
	}()
	New("x86_64-unknown-linux-gnu", spirv.Version1_3)
}

func TestContext_TypeKindClassification(t *testing.T) {
	cx := newTestContext(t)
	if got := cx.TypeKind(cx.TypeVoid()); got != hostir.TypeKindVoid {
		t.Errorf("expected TypeKindVoid, got %v", got)
	}
	if got := cx.TypeKind(cx.TypeF64()); got != hostir.TypeKindDouble {
		t.Errorf("expected TypeKindDouble, got %v", got)
	}
	if got := cx.TypeKind(cx.TypeF16()); got != hostir.TypeKindHalf {
		t.Errorf("expected TypeKindHalf, got %v", got)
	}
}

func TestContext_ElementTypeOfPointer(t *testing.T) {
	cx := newTestContext(t)
	i32 := cx.TypeI32()
	ptr := cx.TypePtr(i32)
	if got := cx.ElementType(ptr); got != i32 {
		t.Errorf("expected element_type(ptr) == i32, got %d want %d", got, i32)
	}
}

func TestContext_IsBackendImmediate(t *testing.T) {
	cx := newTestContext(t)
	scalar := hostir.TyAndLayout{BackendRepr: hostir.BackendRepr{Kind: hostir.ReprScalar}}
	if !cx.IsBackendImmediate(scalar) {
		t.Error("expected scalar layout to be backend-immediate")
	}
	pair := hostir.TyAndLayout{BackendRepr: hostir.BackendRepr{Kind: hostir.ReprScalarPair}}
	if cx.IsBackendImmediate(pair) {
		t.Error("expected scalar-pair layout to not be backend-immediate")
	}
	if !cx.IsBackendScalarPair(pair) {
		t.Error("expected scalar-pair layout to report IsBackendScalarPair")
	}
}

func TestContext_HandleLayoutErrSizeOverflowReportsNotFatal(t *testing.T) {
	cx := newTestContext(t)
	span := hostir.DummySpan()
	err := hostir.LayoutError{Kind: hostir.LayoutErrorSizeOverflow, Ty: hostir.NewTy(1, "huge"), Message: "too big"}

	cx.HandleLayoutErr(span, err)

	if !cx.Diagnostics().HasErrors() {
		t.Fatal("expected a size-overflow layout error to be reported, not panic")
	}
}

func TestContext_HandleLayoutErrOtherIsFatal(t *testing.T) {
	cx := newTestContext(t)
	defer func() {
		if recover() == nil {
			t.Fatal("expected a non-size-overflow layout error to panic")
		}
	}()
	cx.HandleLayoutErr(hostir.DummySpan(), hostir.LayoutError{Kind: hostir.LayoutErrorOther, Message: "bug"})
}

func TestContext_ZombieRoundTrips(t *testing.T) {
	cx := newTestContext(t)
	id := cx.mod.AllocID()
	cx.ZombieWithSpan(id, hostir.DummySpan(), "inline asm result type mismatch")

	zs := cx.Zombies()
	z, ok := zs[id]
	if !ok {
		t.Fatal("expected zombie to be recorded")
	}
	if z.Reason != "inline asm result type mismatch" {
		t.Errorf("unexpected reason: %q", z.Reason)
	}
}

func TestContext_GetOrDeclareFunctionDeduplicates(t *testing.T) {
	cx := newTestContext(t)
	inst := hostir.Instance{Symbol: "foo"}
	a := cx.GetOrDeclareFunction(inst)
	b := cx.GetOrDeclareFunction(inst)
	if a != b {
		t.Errorf("expected same function id, got %d and %d", a, b)
	}
}

func TestContext_GetOrDeclareStaticDeduplicates(t *testing.T) {
	cx := newTestContext(t)
	a := cx.GetOrDeclareStatic("MY_GLOBAL")
	b := cx.GetOrDeclareStatic("MY_GLOBAL")
	if a != b {
		t.Errorf("expected same static id, got %d and %d", a, b)
	}
	if cx.GetOrDeclareStatic("OTHER_GLOBAL") == a {
		t.Error("expected distinct statics to get distinct ids")
	}
}

func TestContext_GetExtInstImportDeduplicates(t *testing.T) {
	cx := newTestContext(t)
	a := cx.GetExtInstImport("GLSL.std.450")
	b := cx.GetExtInstImport("GLSL.std.450")
	if a != b {
		t.Errorf("expected same ext-inst-import id, got %d and %d", a, b)
	}
}
