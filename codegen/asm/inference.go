package asm

import (
	"fmt"

	"github.com/gogpu/naga/codegen"
	"github.com/gogpu/naga/codegen/typecache"
	"github.com/gogpu/naga/spirv"
)

// TyPatKind tags which TyPat shape is populated, mirroring the
// TyPat/TyListPat sum type rustc_codegen_spirv's asm! dialect matches an
// instruction's operands against to recover a "_" result type.
type TyPatKind uint8

const (
	// TyPatExplicit means the mnemonic always requires an explicit result
	// type; "_" is a hard error for this opcode.
	TyPatExplicit TyPatKind = iota
	// TyPatSameAsFirstOperand copies the type of the instruction's first
	// ID operand.
	TyPatSameAsFirstOperand
	// TyPatBool forces the bool type (comparison ops).
	TyPatBool
	// TyPatPointeeOfFirstOperand infers the pointee type of the first ID
	// operand, which must be a pointer (OpLoad).
	TyPatPointeeOfFirstOperand
	// TyPatVoid forces the void type (instructions with no real result,
	// declared with a result id only for uniformity).
	TyPatVoid
	// TyPatVar is T(i): every operand index listed in VarOperands must
	// share one consistent type (checked pairwise against the first),
	// and that shared type is the result, mirroring a named type variable
	// bound across a pattern (T(0), T(1), ...).
	TyPatVar
	// TyPatAny accepts the first operand's type with no further
	// consistency requirement across other operands, mirroring a
	// terminator or passthrough pattern ("Any") that doesn't care what
	// shape the value has.
	TyPatAny
	// TyPatPointer builds a pointer result type from a storage-class
	// literal operand and the type of an initializer ID operand (required:
	// without an initializer the type cannot be inferred), mirroring PointerPat{StorageClass, Inner} specialized to
	// the one instruction that needs it (OpVariable): Inner is always
	// "whatever the initializer's type is" here, not an arbitrary nested
	// pattern, since no other opcode in this table needs deeper recursion.
	TyPatPointer
	// TyPatVector infers a vector type from two or more same-typed scalar
	// operands, mirroring VectorPat{Inner} used for composite
	// construction when the dialect can't be told the vector type any
	// other way.
	TyPatVector
	// TyPatVector4 is TyPatVector with an arity assertion, mirroring
	// Vector4Pat (the common RGBA/XYZW construction shape).
	TyPatVector4
	// TyPatImage resolves an Image-typed operand's sampled (texel
	// component) type, mirroring ImagePat.
	TyPatImage
	// TyPatSampledImage resolves a SampledImage-typed operand's
	// underlying Image type, mirroring SampledImagePat.
	TyPatSampledImage
	// TyPatEither tries Left, then Right if Left's precondition isn't
	// met, mirroring EitherPat's alternation.
	TyPatEither
	// TyPatIndexComposite walks a composite operand's type through a
	// sequence of literal-integer index operands (Vector/Array/RuntimeArray
	// element, or Struct member by member index), mirroring IndexCompositePat.
	TyPatIndexComposite
)

// TyPat describes how to recover an instruction's result type when the asm
// source spells it as "_" instead of an explicit type operand.
type TyPat struct {
	Kind TyPatKind

	// VarOperands: TyPatVar's list of idOperand indices that must share a
	// type.
	VarOperands []int

	// Indirect: TyPatImage, when true, first unwraps operand 0 through
	// TyPatSampledImage before applying the Image pattern (used by
	// EitherPat's fallback branch, where operand 0 might itself already
	// be the sampled-image handle rather than a raw image).
	Indirect bool

	// Left, Right: TyPatEither's two alternatives, tried in order.
	Left, Right *TyPat

	// BaseOperand: TyPatIndexComposite's base composite operand index.
	BaseOperand int
}

// tyPatFor returns the inference pattern for a mnemonic, defaulting to
// TyPatExplicit (matching the original's "not all instructions support
// inference" stance) for anything not explicitly listed.
func tyPatFor(mnemonic string) TyPat {
	switch mnemonic {
	case "OpIAdd", "OpISub", "OpIMul", "OpSDiv", "OpUDiv", "OpSMod", "OpUMod",
		"OpBitwiseAnd", "OpBitwiseOr", "OpBitwiseXor",
		"OpShiftLeftLogical", "OpShiftRightLogical", "OpShiftRightArithmetic",
		"OpFAdd", "OpFSub", "OpFMul", "OpFDiv", "OpFMod":
		return TyPat{Kind: TyPatVar, VarOperands: []int{0, 1}}
	case "OpNot", "OpFNegate", "OpSNegate", "OpBitCount":
		return TyPat{Kind: TyPatSameAsFirstOperand}
	case "OpSelect":
		return TyPat{Kind: TyPatVar, VarOperands: []int{1, 2}}
	case "OpCopyObject":
		return TyPat{Kind: TyPatAny}
	case "OpIEqual", "OpINotEqual",
		"OpSLessThan", "OpSLessThanEqual", "OpSGreaterThan", "OpSGreaterThanEqual",
		"OpULessThan", "OpULessThanEqual", "OpUGreaterThan", "OpUGreaterThanEqual",
		"OpFOrdEqual", "OpFOrdNotEqual", "OpFOrdLessThan", "OpFOrdGreaterThan",
		"OpFOrdLessThanEqual", "OpFOrdGreaterThanEqual",
		"OpLogicalEqual", "OpLogicalNotEqual", "OpLogicalAnd", "OpLogicalOr", "OpLogicalNot":
		return TyPat{Kind: TyPatBool}
	case "OpLoad":
		return TyPat{Kind: TyPatPointeeOfFirstOperand}
	case "OpAtomicIAdd":
		return TyPat{Kind: TyPatPointeeOfFirstOperand}
	case "OpVariable":
		return TyPat{Kind: TyPatPointer}
	case "OpCompositeConstruct":
		return TyPat{Kind: TyPatVector}
	case "OpCompositeExtract":
		return TyPat{Kind: TyPatIndexComposite, BaseOperand: 0}
	case "OpImageRead":
		return TyPat{
			Kind: TyPatEither,
			Left: &TyPat{Kind: TyPatImage},
			Right: &TyPat{Kind: TyPatImage, Indirect: true},
		}
	case "OpImage":
		return TyPat{Kind: TyPatSampledImage}
	case "OpStore", "OpReturn", "OpReturnValue", "OpBranch", "OpBranchConditional",
		"OpUnreachable", "OpControlBarrier", "OpMemoryBarrier":
		return TyPat{Kind: TyPatVoid}
	default:
		return TyPat{Kind: TyPatExplicit}
	}
}

// inferResultType resolves a "_" result-type marker for mnemonic, given the
// already-resolved ID and literal operands (each list in source order) and
// each ID operand's type as tracked by valueTypes.
func inferResultType(cx *codegen.Context, mnemonic string, idOperands []codegen.Word, literalOperands []codegen.Word, valueTypes map[codegen.Word]codegen.Word) (codegen.Word, error) {
	return resolvePattern(cx, mnemonic, tyPatFor(mnemonic), idOperands, literalOperands, valueTypes)
}

func resolvePattern(cx *codegen.Context, mnemonic string, pat TyPat, idOperands []codegen.Word, literalOperands []codegen.Word, valueTypes map[codegen.Word]codegen.Word) (codegen.Word, error) {
	switch pat.Kind {
	case TyPatBool:
		return cx.TypeBool(), nil
	case TyPatVoid:
		return cx.TypeVoid(), nil
	case TyPatSameAsFirstOperand, TyPatAny:
		return typeOfOperand(mnemonic, idOperands, valueTypes, 0)
	case TyPatPointeeOfFirstOperand:
		t, err := typeOfOperand(mnemonic, idOperands, valueTypes, 0)
		if err != nil {
			return 0, err
		}
		return cx.ElementType(t), nil

	case TyPatVar:
		varOperands := pat.VarOperands
		if len(varOperands) == 0 {
			varOperands = []int{0}
		}
		var shared codegen.Word
		for i, opIdx := range varOperands {
			t, err := typeOfOperand(mnemonic, idOperands, valueTypes, opIdx)
			if err != nil {
				return 0, err
			}
			if i == 0 {
				shared = t
				continue
			}
			if t != shared {
				return 0, fmt.Errorf("%s: operand %d's type does not match T(0)", mnemonic, opIdx)
			}
		}
		return shared, nil

	case TyPatPointer:
		if len(literalOperands) == 0 {
			return 0, fmt.Errorf("%s: a pointer result type needs a storage class operand to infer from", mnemonic)
		}
		sc := spirv.StorageClass(literalOperands[0])
		if len(idOperands) == 0 {
			return 0, fmt.Errorf("%s: result type cannot be inferred without an initializer operand; spell it out explicitly", mnemonic)
		}
		pointee, err := typeOfOperand(mnemonic, idOperands, valueTypes, 0)
		if err != nil {
			return 0, err
		}
		return cx.TypePtrExt(pointee, sc), nil

	case TyPatVector, TyPatVector4:
		want := 0
		if pat.Kind == TyPatVector4 {
			want = 4
		}
		if len(idOperands) == 0 {
			return 0, errNoOperandsForInference(mnemonic)
		}
		if want != 0 && len(idOperands) != want {
			return 0, fmt.Errorf("%s: expected exactly %d components, got %d", mnemonic, want, len(idOperands))
		}
		elem, err := typeOfOperand(mnemonic, idOperands, valueTypes, 0)
		if err != nil {
			return 0, err
		}
		for i := 1; i < len(idOperands); i++ {
			t, err := typeOfOperand(mnemonic, idOperands, valueTypes, i)
			if err != nil {
				return 0, err
			}
			if t != elem {
				return 0, fmt.Errorf("%s: every component of a vector construction must share a type", mnemonic)
			}
		}
		return cx.TypeVector(elem, uint32(len(idOperands))), nil

	case TyPatImage:
		t, err := typeOfOperand(mnemonic, idOperands, valueTypes, 0)
		if err != nil {
			return 0, err
		}
		if pat.Indirect {
			imgTy, ok := cx.Types.Lookup(t)
			if !ok || imgTy.Kind != typecache.KindSampledImage {
				return 0, fmt.Errorf("%s: expected a sampled-image operand", mnemonic)
			}
			t = imgTy.SampledImageType
		}
		imgTy, ok := cx.Types.Lookup(t)
		if !ok || imgTy.Kind != typecache.KindImage {
			return 0, fmt.Errorf("%s: expected an image operand", mnemonic)
		}
		return imgTy.ImageSampledType, nil

	case TyPatSampledImage:
		t, err := typeOfOperand(mnemonic, idOperands, valueTypes, 0)
		if err != nil {
			return 0, err
		}
		imgTy, ok := cx.Types.Lookup(t)
		if !ok || imgTy.Kind != typecache.KindSampledImage {
			return 0, fmt.Errorf("%s: expected a sampled-image operand", mnemonic)
		}
		return imgTy.SampledImageType, nil

	case TyPatEither:
		if t, err := resolvePattern(cx, mnemonic, *pat.Left, idOperands, literalOperands, valueTypes); err == nil {
			return t, nil
		}
		return resolvePattern(cx, mnemonic, *pat.Right, idOperands, literalOperands, valueTypes)

	case TyPatIndexComposite:
		base, err := typeOfOperand(mnemonic, idOperands, valueTypes, pat.BaseOperand)
		if err != nil {
			return 0, err
		}
		cur := base
		for _, idx := range literalOperands {
			t, ok := cx.Types.Lookup(cur)
			if !ok {
				return 0, fmt.Errorf("%s: %d is not a known type while walking a composite index", mnemonic, cur)
			}
			switch t.Kind {
			case typecache.KindArray, typecache.KindRuntimeArray:
				cur = t.ArrayElement
			case typecache.KindVector:
				cur = t.VectorElement
			case typecache.KindStruct:
				if int(idx) >= len(t.StructMembers) {
					return 0, fmt.Errorf("%s: member index %d out of range for a %d-member struct", mnemonic, idx, len(t.StructMembers))
				}
				cur = t.StructMembers[idx].Type
			default:
				return 0, fmt.Errorf("%s: cannot index into a non-composite type", mnemonic)
			}
		}
		return cur, nil

	default:
		return 0, errExplicitTypeRequired(mnemonic)
	}
}

func typeOfOperand(mnemonic string, idOperands []codegen.Word, valueTypes map[codegen.Word]codegen.Word, idx int) (codegen.Word, error) {
	if idx >= len(idOperands) {
		return 0, errNoOperandsForInference(mnemonic)
	}
	t, ok := valueTypes[idOperands[idx]]
	if !ok {
		return 0, errUnknownOperandType(mnemonic, idOperands[idx])
	}
	return t, nil
}
