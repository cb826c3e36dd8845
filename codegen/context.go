// Package codegen implements the SPIR-V backend's per-unit codegen context
// and function builder: the Go counterpart of rustc_codegen_spirv's
// CodegenCx and Builder. One Context owns exactly one in-progress module;
// it is not safe to drive from more than one goroutine at a time (see
// Context's doc comment for the concurrency contract).
package codegen

import (
	"fmt"
	"sync"

	"github.com/gogpu/naga/codegen/builder"
	"github.com/gogpu/naga/codegen/typecache"
	"github.com/gogpu/naga/diag"
	"github.com/gogpu/naga/hostir"
	"github.com/gogpu/naga/spirv"
	"github.com/gogpu/naga/target"
)

// Word is a module-wide SPIR-V result ID.
type Word = builder.Word

// ZombieDecoration records why a result ID stands in for a construct the
// backend could not lower: a syntactically valid placeholder (usually
// OpUndef) was emitted in its place, and the reason is carried here until
// the linker's reachability walk decides whether it ever becomes a hard
// error (see linker/zombies).
type ZombieDecoration struct {
	Reason string
	Span   hostir.Span
}

// Context is one codegen unit's backend state: its module builder, type
// cache, and the various per-unit caches (function instances, statics,
// extended-instruction imports, zombie decorations) that rustc_codegen_spirv
// keeps behind RefCell. It does not carry a vtable cache or an intrinsic
// dispatch map: this backend has no dyn-dispatch lowering and no intrinsic
// call surface yet, so there is nothing for either cache to key on (see
// SPEC_FULL.md §2).
//
// Go has no borrow checker, so each cache that CodegenCx mutates through a
// shared &self reference is instead guarded by its own sync.Mutex. A single
// Context must still only be driven by one in-progress lowering at a time;
// the mutexes exist to make concurrent *read* access from finalized,
// read-only passes (the linker's zombie-reachability walk) safe, not to
// make concurrent *mutation* of one module safe.
type Context struct {
	Triple target.Triple

	Types *typecache.Cache
	mod   *builder.Module

	diagSink diag.Sink

	fnMu        sync.Mutex
	fnInstances map[hostir.Instance]Word

	staticsMu sync.Mutex
	statics   map[string]Word

	extInstMu   sync.Mutex
	extInstSets map[string]Word

	zombieMu  sync.Mutex
	zombies   map[Word]ZombieDecoration

	i8I16AtomicsAllowed bool
}

// New constructs a Context for the given target triple. A malformed or
// non-SPIR-V triple is a construction-time fatal, mirroring CodegenCx::new's
// target_tuple.parse() failure path.
func New(tupleStr string, version spirv.Version) *Context {
	tr, err := target.ParseTriple(tupleStr)
	if err != nil {
		diag.Fatal(hostir.DummySpan(), "%s", err)
	}
	mod := builder.NewModule(version.Major, version.Minor)
	return &Context{
		Triple:      tr,
		Types:       typecache.New(mod),
		mod:         mod,
		fnInstances: make(map[hostir.Instance]Word),
		statics:     make(map[string]Word),
		extInstSets: make(map[string]Word),
		zombies:     make(map[Word]ZombieDecoration),
	}
}

// Module exposes the underlying module builder for the function builder and
// for the final Encode/FinalizeModule step.
func (c *Context) Module() *builder.Module { return c.mod }

// Diagnostics exposes the Error-tier sink so callers can check HasErrors
// once lowering finishes.
func (c *Context) Diagnostics() *diag.Sink { return &c.diagSink }

// --- BaseTypeCodegenMethods-equivalent scalar constructors ---

func (c *Context) integer(width uint32, signed bool) Word {
	return c.Types.Def(typecache.SpirvType{Kind: typecache.KindInteger, IntWidth: width, IntSigned: signed})
}

// TypeI8, TypeI16, TypeI32, TypeI64 and TypeI128 return the signed integer
// type of the given width, interned.
func (c *Context) TypeI8() Word   { return c.integer(8, true) }
func (c *Context) TypeI16() Word  { return c.integer(16, true) }
func (c *Context) TypeI32() Word  { return c.integer(32, true) }
func (c *Context) TypeI64() Word  { return c.integer(64, true) }
func (c *Context) TypeI128() Word { return c.integer(128, true) }

// TypeU8 through TypeU128 return the unsigned integer type of the given
// width, interned.
func (c *Context) TypeU8() Word   { return c.integer(8, false) }
func (c *Context) TypeU16() Word  { return c.integer(16, false) }
func (c *Context) TypeU32() Word  { return c.integer(32, false) }
func (c *Context) TypeU64() Word  { return c.integer(64, false) }
func (c *Context) TypeU128() Word { return c.integer(128, false) }

// TypeUsize and TypeIsize return the pointer-sized integer type; this
// backend always targets a 32-bit logical address space, mirroring
// rust-gpu's fixed usize=u32 convention.
func (c *Context) TypeUsize() Word { return c.TypeU32() }
func (c *Context) TypeIsize() Word { return c.TypeI32() }

// TypeF16, TypeF32, TypeF64 and TypeF128 return the float type of the given
// width, interned.
func (c *Context) TypeF16() Word  { return c.Types.Def(typecache.SpirvType{Kind: typecache.KindFloat, FloatWidth: 16}) }
func (c *Context) TypeF32() Word  { return c.Types.Def(typecache.SpirvType{Kind: typecache.KindFloat, FloatWidth: 32}) }
func (c *Context) TypeF64() Word  { return c.Types.Def(typecache.SpirvType{Kind: typecache.KindFloat, FloatWidth: 64}) }
func (c *Context) TypeF128() Word { return c.Types.Def(typecache.SpirvType{Kind: typecache.KindFloat, FloatWidth: 128}) }

// TypeBool returns the interned bool type.
func (c *Context) TypeBool() Word { return c.Types.Def(typecache.SpirvType{Kind: typecache.KindBool}) }

// TypeVoid returns the interned void type.
func (c *Context) TypeVoid() Word { return c.Types.Def(typecache.SpirvType{Kind: typecache.KindVoid}) }

// TypeArray returns the interned fixed-length array type of element over
// length (an OpConstant id for the element count).
func (c *Context) TypeArray(element, length Word) Word {
	return c.Types.Def(typecache.SpirvType{Kind: typecache.KindArray, ArrayElement: element, ArrayLength: length})
}

// TypeRuntimeArray returns the interned unbounded array type of element.
func (c *Context) TypeRuntimeArray(element Word) Word {
	return c.Types.Def(typecache.SpirvType{Kind: typecache.KindRuntimeArray, ArrayElement: element})
}

// TypeVector returns the interned vector type of count components of
// element, interned the same way the scalar constructors are.
func (c *Context) TypeVector(element Word, count uint32) Word {
	return c.Types.Def(typecache.SpirvType{Kind: typecache.KindVector, VectorElement: element, VectorCount: count})
}

// TypeFunc returns the interned function-type signature for the given
// parameter types and return type.
func (c *Context) TypeFunc(params []Word, ret Word) Word {
	return c.Types.Def(typecache.SpirvType{Kind: typecache.KindFunction, FunctionParams: params, FunctionReturn: ret})
}

// TypePtr returns the interned logical pointer to pointee in the Function
// storage class, the default this backend uses absent an explicit address
// space (see TypePtrExt).
func (c *Context) TypePtr(pointee Word) Word {
	return c.TypePtrExt(pointee, spirv.StorageClassFunction)
}

// TypePtrExt returns the interned pointer to pointee in the given storage
// class, mirroring type_ptr_ext's address-space-to-storage-class mapping.
func (c *Context) TypePtrExt(pointee Word, sc spirv.StorageClass) Word {
	return c.Types.Def(typecache.SpirvType{Kind: typecache.KindPointer, PointeeType: pointee, PointerStorageClass: sc})
}

// ElementType returns the pointee/element type of a pointer, array, vector
// or runtime-array type, mirroring BaseTypeCodegenMethods::element_type.
// It panics (a compiler bug, not a user error) if id does not name a
// composite type with a single element type.
func (c *Context) ElementType(id Word) Word {
	t, ok := c.Types.Lookup(id)
	if !ok {
		diag.Bug(hostir.DummySpan(), "element_type: %d is not a known type", id)
	}
	switch t.Kind {
	case typecache.KindPointer:
		return t.PointeeType
	case typecache.KindVector:
		return t.VectorElement
	case typecache.KindArray, typecache.KindRuntimeArray:
		return t.ArrayElement
	default:
		diag.Bug(hostir.DummySpan(), "element_type: %d has no single element type", id)
		return 0
	}
}

// VectorLength returns a vector type's component count, mirroring
// BaseTypeCodegenMethods::vector_length.
func (c *Context) VectorLength(id Word) uint32 {
	t, ok := c.Types.Lookup(id)
	if !ok || t.Kind != typecache.KindVector {
		diag.Bug(hostir.DummySpan(), "vector_length: %d is not a vector type", id)
	}
	return t.VectorCount
}

// FloatWidth returns a float type's bit width, mirroring
// BaseTypeCodegenMethods::float_width.
func (c *Context) FloatWidth(id Word) uint32 {
	t, ok := c.Types.Lookup(id)
	if !ok || t.Kind != typecache.KindFloat {
		diag.Bug(hostir.DummySpan(), "float_width: %d is not a float type", id)
	}
	return t.FloatWidth
}

// IntWidth returns an integer type's bit width, mirroring
// BaseTypeCodegenMethods::int_width.
func (c *Context) IntWidth(id Word) uint64 {
	t, ok := c.Types.Lookup(id)
	if !ok || t.Kind != typecache.KindInteger {
		diag.Bug(hostir.DummySpan(), "int_width: %d is not an integer type", id)
	}
	return uint64(t.IntWidth)
}

// TypeKind classifies a SpirvType as the host's abstract TypeKind, mirroring
// BaseTypeCodegenMethods::type_kind's exhaustive switch.
func (c *Context) TypeKind(id Word) hostir.TypeKind {
	t, ok := c.Types.Lookup(id)
	if !ok {
		diag.Bug(hostir.DummySpan(), "type_kind: %d is not a known type", id)
	}
	switch t.Kind {
	case typecache.KindVoid:
		return hostir.TypeKindVoid
	case typecache.KindInteger:
		return hostir.TypeKindInteger
	case typecache.KindFloat:
		switch t.FloatWidth {
		case 16:
			return hostir.TypeKindHalf
		case 64:
			return hostir.TypeKindDouble
		case 128:
			return hostir.TypeKindFP128
		default:
			return hostir.TypeKindFloat
		}
	case typecache.KindStruct:
		return hostir.TypeKindStruct
	case typecache.KindVector:
		return hostir.TypeKindVector
	case typecache.KindArray, typecache.KindRuntimeArray:
		return hostir.TypeKindArray
	case typecache.KindPointer:
		return hostir.TypeKindPointer
	case typecache.KindFunction:
		return hostir.TypeKindFunction
	default:
		return hostir.TypeKindToken
	}
}

// --- LayoutTypeCodegenMethods-equivalent layout classification ---

// IsBackendImmediate reports whether a layout is passed as a single
// register-sized immediate, mirroring LayoutTypeCodegenMethods's
// is_backend_immediate.
func (c *Context) IsBackendImmediate(l hostir.TyAndLayout) bool {
	switch l.BackendRepr.Kind {
	case hostir.ReprScalar:
		return true
	case hostir.ReprSimdVector:
		return true
	default:
		return false
	}
}

// IsBackendScalarPair reports whether a layout is passed as a pair of
// registers, mirroring is_backend_scalar_pair.
func (c *Context) IsBackendScalarPair(l hostir.TyAndLayout) bool {
	return l.BackendRepr.Kind == hostir.ReprScalarPair
}

// HandleLayoutErr classifies a layout computation failure into the Error
// tier (size overflow: a user-facing, reportable diagnostic) or the Fatal
// tier (anything else: a compiler bug), mirroring LayoutOfHelpers's split.
func (c *Context) HandleLayoutErr(span hostir.Span, err hostir.LayoutError) {
	if err.Kind == hostir.LayoutErrorSizeOverflow {
		c.diagSink.Report(span, "values of type %v are too big for the current architecture", err.Ty)
		return
	}
	diag.Bug(span, "failed to get layout for %v: %s", err.Ty, err.Message)
}

// --- zombie system ---

// ZombieWithSpan records that result carries a deferred error at span: it
// was emitted as a syntactically valid placeholder (typically OpUndef)
// because reason could not be lowered for real.
func (c *Context) ZombieWithSpan(result Word, span hostir.Span, reason string) {
	c.zombieMu.Lock()
	defer c.zombieMu.Unlock()
	c.zombies[result] = ZombieDecoration{Reason: reason, Span: span}
}

// ZombieNoSpan is ZombieWithSpan without a source location, used where no
// span is available (e.g. during module finalization).
func (c *Context) ZombieNoSpan(result Word, reason string) {
	c.ZombieWithSpan(result, hostir.DummySpan(), reason)
}

// Zombies returns a snapshot of every recorded zombie decoration, for the
// linker's reachability walk (linker/zombies). Safe to call concurrently
// with other read-only snapshotting, never with in-progress mutation.
func (c *Context) Zombies() map[Word]ZombieDecoration {
	c.zombieMu.Lock()
	defer c.zombieMu.Unlock()
	out := make(map[Word]ZombieDecoration, len(c.zombies))
	for k, v := range c.zombies {
		out[k] = v
	}
	return out
}

// --- linkage ---

// SetLinkage decorates target as an exported or imported linkage symbol
// named name, mirroring CodegenCx::set_linkage's OpDecorate
// LinkageAttributes emission.
func (c *Context) SetLinkage(target Word, name string, kind spirv.LinkageType) {
	c.mod.AddDecorateString(target, spirv.DecorationLinkageAttributes, name, Word(kind))
}

// --- function instance cache ---

// GetOrDeclareFunction returns the result ID previously allocated for inst,
// allocating and recording one if this is the first reference, mirroring
// CodegenCx's fn_instances RefCell<FxHashMap<Instance, _>> cache.
func (c *Context) GetOrDeclareFunction(inst hostir.Instance) Word {
	c.fnMu.Lock()
	defer c.fnMu.Unlock()
	if id, ok := c.fnInstances[inst]; ok {
		return id
	}
	id := c.mod.AllocID()
	c.fnInstances[inst] = id
	return id
}

// GetOrDeclareStatic returns the result ID previously allocated for the
// static variable named name, allocating and recording an OpVariable
// placeholder id if this is the first reference, mirroring CodegenCx's
// statics RefCell<FxHashMap<String, Word>> cache the same way
// GetOrDeclareFunction mirrors fn_instances.
func (c *Context) GetOrDeclareStatic(name string) Word {
	c.staticsMu.Lock()
	defer c.staticsMu.Unlock()
	if id, ok := c.statics[name]; ok {
		return id
	}
	id := c.mod.AllocID()
	c.statics[name] = id
	return id
}

// GetExtInstImport returns the result ID for the named extended
// instruction set, importing it (OpExtInstImport) the first time it is
// requested.
func (c *Context) GetExtInstImport(name string) Word {
	c.extInstMu.Lock()
	defer c.extInstMu.Unlock()
	if id, ok := c.extInstSets[name]; ok {
		return id
	}
	id := c.mod.AddExtInstImport(name)
	c.extInstSets[name] = id
	return id
}

// --- finalization ---

// FinalizeModule appends every recorded zombie's decoration payload to the
// module's debug-name section (as an OpName whose string carries the
// zombie marker) so the linker can recover which IDs are zombies after
// this Context's in-memory state is gone, mirroring CodegenCx's
// finalize_module. It must be called exactly once, after all functions are
// sealed.
func (c *Context) FinalizeModule() *builder.Module {
	c.zombieMu.Lock()
	defer c.zombieMu.Unlock()
	for id, z := range c.zombies {
		c.mod.AddName(id, fmt.Sprintf("zombie:%s", z.Reason))
	}
	return c.mod
}
