// Package typecache interns SPIR-V types: SPIR-V requires every distinct
// type to be declared exactly once (OpTypeInt 32 0 must appear once per
// module, not once per use site), so every type constructor in
// codegen.Context routes through a structural cache here before touching
// the module builder.
//
// This generalizes gogpu-naga's ir.TypeRegistry (dedup over WGSL's small,
// fixed TypeInner sum) to the much larger SPIR-V type lattice (scalar,
// vector, matrix, array, struct, pointer, function, image, sampler,
// acceleration-structure and ray-query types), using the same
// string-structural-key strategy.
package typecache

import (
	"fmt"
	"strconv"

	"github.com/gogpu/naga/codegen/builder"
	"github.com/gogpu/naga/spirv"
)

// Word is a module-wide SPIR-V result ID.
type Word = builder.Word

// SpirvTypeKind tags which SpirvType variant is populated.
type SpirvTypeKind uint8

const (
	KindVoid SpirvTypeKind = iota
	KindBool
	KindInteger
	KindFloat
	KindPointer
	KindVector
	KindMatrix
	KindArray
	KindRuntimeArray
	KindStruct
	KindFunction
	KindImage
	KindSampledImage
	KindSampler
	KindAccelerationStructureKHR
	KindRayQueryKHR
)

// StructMember is one field of a KindStruct type: its member type and byte
// offset, used to emit the matching OpMemberDecorate Offset annotation.
type StructMember struct {
	Type   Word
	Offset uint32
}

// SpirvType is the sum of every type shape the backend can declare. Only the
// fields matching Kind are meaningful; this mirrors the Inner-interface sum
// type gogpu-naga's ir.Type uses, collapsed to one struct since SPIR-V's
// type lattice has a fixed, closed set of shapes (no user extension).
type SpirvType struct {
	Kind SpirvTypeKind

	IntWidth    uint32 // KindInteger
	IntSigned   bool   // KindInteger
	FloatWidth  uint32 // KindFloat

	PointerStorageClass spirv.StorageClass // KindPointer
	PointeeType         Word               // KindPointer

	VectorElement Word   // KindVector
	VectorCount   uint32 // KindVector

	MatrixColumnType Word   // KindMatrix: a KindVector type
	MatrixColumns    uint32 // KindMatrix

	ArrayElement Word // KindArray, KindRuntimeArray
	ArrayLength  Word // KindArray: an OpConstant id for the element count

	StructMembers []StructMember // KindStruct

	FunctionReturn Word   // KindFunction
	FunctionParams []Word // KindFunction

	ImageSampledType Word              // KindImage
	ImageDim         uint32            // KindImage
	ImageDepth       uint32            // KindImage
	ImageArrayed     uint32            // KindImage
	ImageMultisample uint32            // KindImage
	ImageSampled     uint32            // KindImage
	ImageFormat      spirv.ImageFormat // KindImage

	SampledImageType Word // KindSampledImage
}

// Cache interns SpirvType values against the words their OpType*
// declarations already occupy in a builder.Module, so repeated requests for
// structurally-equal types return the same ID instead of re-declaring it.
type Cache struct {
	module *builder.Module

	byKey map[string]Word
	byID  map[Word]SpirvType
}

// New creates a type cache that emits its OpType* declarations into module.
func New(module *builder.Module) *Cache {
	return &Cache{
		module: module,
		byKey:  make(map[string]Word, 32),
		byID:   make(map[Word]SpirvType, 32),
	}
}

// Def interns t, emitting its OpType* declaration the first time a
// structurally-equal type is requested, and returns the (possibly reused)
// result ID.
func (c *Cache) Def(t SpirvType) Word {
	key := structuralKey(t)
	if id, ok := c.byKey[key]; ok {
		return id
	}
	id := c.emit(t)
	c.byKey[key] = id
	c.byID[id] = t
	return id
}

// Lookup returns the SpirvType previously interned under id, if any.
func (c *Cache) Lookup(id Word) (SpirvType, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// Count returns the number of distinct types interned so far.
func (c *Cache) Count() int { return len(c.byID) }

func structuralKey(t SpirvType) string {
	switch t.Kind {
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInteger:
		return "int:" + strconv.FormatUint(uint64(t.IntWidth), 10) + ":" + strconv.FormatBool(t.IntSigned)
	case KindFloat:
		return "float:" + strconv.FormatUint(uint64(t.FloatWidth), 10)
	case KindPointer:
		return "ptr:" + strconv.FormatUint(uint64(t.PointerStorageClass), 10) + ":" + strconv.FormatUint(uint64(t.PointeeType), 10)
	case KindVector:
		return "vec:" + strconv.FormatUint(uint64(t.VectorCount), 10) + ":" + strconv.FormatUint(uint64(t.VectorElement), 10)
	case KindMatrix:
		return "mat:" + strconv.FormatUint(uint64(t.MatrixColumns), 10) + ":" + strconv.FormatUint(uint64(t.MatrixColumnType), 10)
	case KindArray:
		return "array:" + strconv.FormatUint(uint64(t.ArrayElement), 10) + ":" + strconv.FormatUint(uint64(t.ArrayLength), 10)
	case KindRuntimeArray:
		return "rtarray:" + strconv.FormatUint(uint64(t.ArrayElement), 10)
	case KindStruct:
		key := fmt.Sprintf("struct:%d", len(t.StructMembers))
		for _, m := range t.StructMembers {
			key += fmt.Sprintf(":m(%d,%d)", m.Type, m.Offset)
		}
		return key
	case KindFunction:
		key := fmt.Sprintf("func:%d", t.FunctionReturn)
		for _, p := range t.FunctionParams {
			key += fmt.Sprintf(":%d", p)
		}
		return key
	case KindImage:
		return fmt.Sprintf("image:%d:%d:%d:%d:%d:%d:%d", t.ImageSampledType, t.ImageDim, t.ImageDepth, t.ImageArrayed, t.ImageMultisample, t.ImageSampled, t.ImageFormat)
	case KindSampledImage:
		return "sampledimage:" + strconv.FormatUint(uint64(t.SampledImageType), 10)
	case KindSampler:
		return "sampler"
	case KindAccelerationStructureKHR:
		return "accelstruct"
	case KindRayQueryKHR:
		return "rayquery"
	default:
		return fmt.Sprintf("unknown:%d", t.Kind)
	}
}

func (c *Cache) emit(t SpirvType) Word {
	switch t.Kind {
	case KindVoid:
		id := c.module.AllocID()
		var ib builder.InstructionBuilder
		ib.AddWord(id)
		c.module.AddGlobalInst(ib.Build(spirv.OpTypeVoid))
		return id
	case KindBool:
		id := c.module.AllocID()
		var ib builder.InstructionBuilder
		ib.AddWord(id)
		c.module.AddGlobalInst(ib.Build(spirv.OpTypeBool))
		return id
	case KindInteger:
		id := c.module.AllocID()
		signedness := Word(0)
		if t.IntSigned {
			signedness = 1
		}
		var ib builder.InstructionBuilder
		ib.AddWord(id).AddWord(t.IntWidth).AddWord(signedness)
		c.module.AddGlobalInst(ib.Build(spirv.OpTypeInt))
		return id
	case KindFloat:
		id := c.module.AllocID()
		var ib builder.InstructionBuilder
		ib.AddWord(id).AddWord(t.FloatWidth)
		c.module.AddGlobalInst(ib.Build(spirv.OpTypeFloat))
		return id
	case KindPointer:
		id := c.module.AllocID()
		var ib builder.InstructionBuilder
		ib.AddWord(id).AddWord(Word(t.PointerStorageClass)).AddWord(t.PointeeType)
		c.module.AddGlobalInst(ib.Build(spirv.OpTypePointer))
		return id
	case KindVector:
		id := c.module.AllocID()
		var ib builder.InstructionBuilder
		ib.AddWord(id).AddWord(t.VectorElement).AddWord(t.VectorCount)
		c.module.AddGlobalInst(ib.Build(spirv.OpTypeVector))
		return id
	case KindMatrix:
		id := c.module.AllocID()
		var ib builder.InstructionBuilder
		ib.AddWord(id).AddWord(t.MatrixColumnType).AddWord(t.MatrixColumns)
		c.module.AddGlobalInst(ib.Build(spirv.OpTypeMatrix))
		return id
	case KindArray:
		id := c.module.AllocID()
		var ib builder.InstructionBuilder
		ib.AddWord(id).AddWord(t.ArrayElement).AddWord(t.ArrayLength)
		c.module.AddGlobalInst(ib.Build(spirv.OpTypeArray))
		return id
	case KindRuntimeArray:
		id := c.module.AllocID()
		var ib builder.InstructionBuilder
		ib.AddWord(id).AddWord(t.ArrayElement)
		c.module.AddGlobalInst(ib.Build(spirv.OpTypeRuntimeArray))
		return id
	case KindStruct:
		id := c.module.AllocID()
		var ib builder.InstructionBuilder
		ib.AddWord(id)
		for _, m := range t.StructMembers {
			ib.AddWord(m.Type)
		}
		c.module.AddGlobalInst(ib.Build(spirv.OpTypeStruct))
		for i, m := range t.StructMembers {
			c.module.AddMemberDecorate(id, Word(i), spirv.DecorationOffset, m.Offset)
		}
		return id
	case KindFunction:
		id := c.module.AllocID()
		var ib builder.InstructionBuilder
		ib.AddWord(id).AddWord(t.FunctionReturn).AddWords(t.FunctionParams...)
		c.module.AddGlobalInst(ib.Build(spirv.OpTypeFunction))
		return id
	case KindImage:
		id := c.module.AllocID()
		var ib builder.InstructionBuilder
		ib.AddWord(id).AddWord(t.ImageSampledType).
			AddWord(t.ImageDim).AddWord(t.ImageDepth).AddWord(t.ImageArrayed).
			AddWord(t.ImageMultisample).AddWord(t.ImageSampled).AddWord(Word(t.ImageFormat))
		c.module.AddGlobalInst(ib.Build(spirv.OpTypeImage))
		return id
	case KindSampledImage:
		id := c.module.AllocID()
		var ib builder.InstructionBuilder
		ib.AddWord(id).AddWord(t.SampledImageType)
		c.module.AddGlobalInst(ib.Build(spirv.OpTypeSampledImage))
		return id
	case KindSampler:
		id := c.module.AllocID()
		var ib builder.InstructionBuilder
		ib.AddWord(id)
		c.module.AddGlobalInst(ib.Build(spirv.OpTypeSampler))
		return id
	default:
		// AccelerationStructureKHR and RayQueryKHR are ray-tracing
		// extension types; emitted as opaque forward-declared structs
		// until the ray-tracing capability path gains a dedicated
		// opcode pair here.
		id := c.module.AllocID()
		var ib builder.InstructionBuilder
		ib.AddWord(id)
		c.module.AddGlobalInst(ib.Build(spirv.OpTypeStruct))
		return id
	}
}
