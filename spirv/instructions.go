package spirv

import "strings"

// OperandKind tags what kind of value a textual asm operand encodes, driving
// both its parse and its re-serialization in the module builder.
type OperandKind uint8

const (
	OperandKindID OperandKind = iota
	OperandKindLiteralInt
	OperandKindLiteralFloat
	OperandKindLiteralString
	OperandKindEnumerant
	OperandKindBitflags
	OperandKindPairedID // e.g. the (image-operand, operand-id) pairs in OpImageSample*
)

// Quantifier mirrors the SPIR-V grammar's operand quantifiers: a logical
// operand appears exactly once, zero-or-once, or zero-or-more times.
type Quantifier uint8

const (
	QuantifierOne Quantifier = iota
	QuantifierOptional
	QuantifierVariadic
)

// LogicalOperand is one entry in an instruction's operand grammar: its kind,
// how many times it may appear, and (for Enumerant/Bitflags kinds) the name
// of the bitflag/enumerant group to resolve it against.
type LogicalOperand struct {
	Kind       OperandKind
	Quantifier Quantifier
	GroupName  string // non-empty for OperandKindEnumerant/OperandKindBitflags
}

// InstructionInfo describes one opcode's result-producing shape and operand
// grammar, enough to drive the asm lexer's result-type inference and operand
// parsing without needing the full upstream SPIR-V grammar JSON.
type InstructionInfo struct {
	Op           OpCode
	HasResultType bool
	HasResultID   bool
	Operands      []LogicalOperand
}

// CoreInstructionTable indexes InstructionInfo by mnemonic, standing in for
// rspirv::grammar::CoreInstructionTable: a name-to-grammar lookup the asm
// parser consults once per source line.
type CoreInstructionTable struct {
	byName map[string]InstructionInfo
}

// NewCoreInstructionTable builds the table of instructions the asm dialect
// accepts inline. It is not the full SPIR-V grammar (1000+ opcodes): it is
// the subset exercised by the codegen/asm lowering, matching the table
// inline-asm lowering actually needs to dispatch result-type inference on.
func NewCoreInstructionTable() *CoreInstructionTable {
	t := &CoreInstructionTable{byName: make(map[string]InstructionInfo, 64)}
	add := func(name string, info InstructionInfo) { t.byName[name] = info }

	add("OpUndef", InstructionInfo{Op: OpUndef, HasResultType: true, HasResultID: true})
	add("OpLoad", InstructionInfo{
		Op: OpLoad, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindBitflags, Quantifier: QuantifierOptional, GroupName: "MemoryAccess"},
		},
	})
	add("OpStore", InstructionInfo{
		Op: OpStore,
		Operands: []LogicalOperand{
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindBitflags, Quantifier: QuantifierOptional, GroupName: "MemoryAccess"},
		},
	})
	add("OpAccessChain", InstructionInfo{
		Op: OpAccessChain, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindID, Quantifier: QuantifierVariadic},
		},
	})
	add("OpBitCount", InstructionInfo{Op: OpBitCount, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{{Kind: OperandKindID, Quantifier: QuantifierOne}}})
	add("OpIAdd", InstructionInfo{Op: OpIAdd, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindID, Quantifier: QuantifierOne},
		}})
	add("OpIEqual", InstructionInfo{Op: OpIEqual, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindID, Quantifier: QuantifierOne},
		}})
	add("OpSelect", InstructionInfo{Op: OpSelect, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindID, Quantifier: QuantifierOne},
		}})
	add("OpShiftLeftLogical", InstructionInfo{Op: OpShiftLeftLogical, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindID, Quantifier: QuantifierOne},
		}})
	add("OpShiftRightLogical", InstructionInfo{Op: OpShiftRightLogical, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindID, Quantifier: QuantifierOne},
		}})
	add("OpBitwiseOr", InstructionInfo{Op: OpBitwiseOr, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindID, Quantifier: QuantifierOne},
		}})
	add("OpBitwiseAnd", InstructionInfo{Op: OpBitwiseAnd, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindID, Quantifier: QuantifierOne},
		}})
	add("OpISub", InstructionInfo{Op: OpISub, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindID, Quantifier: QuantifierOne},
		}})
	add("OpFunctionCall", InstructionInfo{Op: OpCode(57), HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindID, Quantifier: QuantifierVariadic},
		}})
	add("OpAtomicIAdd", InstructionInfo{Op: OpAtomicIAdd, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindEnumerant, Quantifier: QuantifierOne, GroupName: "Scope"},
			{Kind: OperandKindBitflags, Quantifier: QuantifierOne, GroupName: "MemorySemantics"},
			{Kind: OperandKindID, Quantifier: QuantifierOne},
		}})
	add("OpControlBarrier", InstructionInfo{Op: OpControlBarrier,
		Operands: []LogicalOperand{
			{Kind: OperandKindEnumerant, Quantifier: QuantifierOne, GroupName: "Scope"},
			{Kind: OperandKindEnumerant, Quantifier: QuantifierOne, GroupName: "Scope"},
			{Kind: OperandKindBitflags, Quantifier: QuantifierOne, GroupName: "MemorySemantics"},
		}})
	add("OpReturn", InstructionInfo{Op: OpReturn})
	add("OpReturnValue", InstructionInfo{Op: OpReturnValue,
		Operands: []LogicalOperand{{Kind: OperandKindID, Quantifier: QuantifierOne}}})
	add("OpBranch", InstructionInfo{Op: OpBranch,
		Operands: []LogicalOperand{{Kind: OperandKindID, Quantifier: QuantifierOne}}})
	add("OpBranchConditional", InstructionInfo{Op: OpBranchConditional,
		Operands: []LogicalOperand{
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindLiteralInt, Quantifier: QuantifierVariadic},
		}})
	add("OpUnreachable", InstructionInfo{Op: OpUnreachable})
	add("OpVariable", InstructionInfo{
		Op: OpVariable, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{
			{Kind: OperandKindEnumerant, Quantifier: QuantifierOne, GroupName: "StorageClass"},
			{Kind: OperandKindID, Quantifier: QuantifierOptional},
		}})
	add("OpCopyObject", InstructionInfo{Op: OpCopyObject, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{{Kind: OperandKindID, Quantifier: QuantifierOne}}})
	add("OpCompositeConstruct", InstructionInfo{Op: OpCompositeConstruct, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{{Kind: OperandKindID, Quantifier: QuantifierVariadic}}})
	add("OpCompositeExtract", InstructionInfo{Op: OpCompositeExtract, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindLiteralInt, Quantifier: QuantifierVariadic},
		}})
	add("OpImageRead", InstructionInfo{Op: OpImageRead, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindID, Quantifier: QuantifierOne},
			{Kind: OperandKindBitflags, Quantifier: QuantifierOptional, GroupName: "ImageOperands"},
		}})
	add("OpImage", InstructionInfo{Op: OpImage, HasResultType: true, HasResultID: true,
		Operands: []LogicalOperand{{Kind: OperandKindID, Quantifier: QuantifierOne}}})

	return t
}

// Lookup returns the grammar entry for a mnemonic (without the leading "Op"
// implied stripped; callers pass the full "OpFoo" spelling as it appears in
// asm source), and whether it was found.
func (t *CoreInstructionTable) Lookup(name string) (InstructionInfo, bool) {
	info, ok := t.byName[name]
	return info, ok
}

// bitflagEntry is one (name, bit-value) pair in a bitflag group table.
type bitflagEntry struct {
	Name  string
	Value uint32
}

// ParseBitflags resolves a `|`-separated textual operand like
// "Aligned|Volatile" against a named group, mirroring
// parse_bitflags_operand's fold-over-table behavior: unknown component names
// make the whole operand fail to parse.
func ParseBitflags(group []bitflagEntry, word string) (uint32, bool) {
	var result uint32
	matchedAny := false
	for _, item := range strings.Split(word, "|") {
		found := false
		for _, entry := range group {
			if entry.Name == item {
				result |= entry.Value
				found = true
				matchedAny = true
				break
			}
		}
		if !found {
			return 0, false
		}
	}
	return result, matchedAny
}

// BitflagGroups collects every named bitflag table the asm dialect resolves
// Bitflags operands against, mirroring spirv_asm.rs's IMAGE_OPERANDS,
// FP_FAST_MATH_MODE, SELECTION_CONTROL, LOOP_CONTROL, FUNCTION_CONTROL,
// MEMORY_SEMANTICS, MEMORY_ACCESS, KERNEL_PROFILING_INFO, RAY_FLAGS,
// FRAGMENT_SHADING_RATE and COOPERATIVE_MATRIX_OPERANDS tables.
var BitflagGroups = map[string][]bitflagEntry{
	"ImageOperands": {
		{"None", 0x0}, {"Bias", 0x1}, {"Lod", 0x2}, {"Grad", 0x4},
		{"ConstOffset", 0x8}, {"Offset", 0x10}, {"ConstOffsets", 0x20},
		{"Sample", 0x40}, {"MinLod", 0x80},
		{"MakeTexelAvailable", 0x100}, {"MakeTexelAvailableKHR", 0x100},
		{"MakeTexelVisible", 0x200}, {"MakeTexelVisibleKHR", 0x200},
		{"NonPrivateTexel", 0x400}, {"NonPrivateTexelKHR", 0x400},
		{"VolatileTexel", 0x800}, {"VolatileTexelKHR", 0x800},
		{"SignExtend", 0x1000}, {"ZeroExtend", 0x2000},
	},
	"FPFastMathMode": {
		{"None", 0x0}, {"NotNan", 0x1}, {"NotInf", 0x2}, {"Nsz", 0x4},
		{"AllowRecip", 0x8}, {"Fast", 0x10},
	},
	"SelectionControl": {
		{"None", uint32(SelectionControlNone)},
		{"Flatten", uint32(SelectionControlFlatten)},
		{"DontFlatten", uint32(SelectionControlDontFlatten)},
	},
	"LoopControl": {
		{"None", 0x0}, {"Unroll", 0x1}, {"DontUnroll", 0x2},
		{"DependencyInfinite", 0x4}, {"DependencyLength", 0x8},
		{"MinIterations", 0x10}, {"MaxIterations", 0x20},
		{"IterationMultiple", 0x40}, {"PeelCount", 0x80}, {"PartialCount", 0x100},
	},
	"FunctionControl": {
		{"None", uint32(FunctionControlNone)},
		{"Inline", uint32(FunctionControlInline)},
		{"DontInline", uint32(FunctionControlDontInline)},
		{"Pure", uint32(FunctionControlPure)},
		{"Const", uint32(FunctionControlConst)},
	},
	"MemorySemantics": {
		{"Relaxed", 0x0}, {"None", MemorySemanticsNone},
		{"Acquire", MemorySemanticsAcquire}, {"Release", MemorySemanticsRelease},
		{"AcquireRelease", MemorySemanticsAcquireRelease},
		{"SequentiallyConsistent", 0x10},
		{"UniformMemory", MemorySemanticsUniformMemory},
		{"SubgroupMemory", 0x80},
		{"WorkgroupMemory", MemorySemanticsWorkgroupMemory},
		{"CrossWorkgroupMemory", 0x200},
		{"AtomicCounterMemory", MemorySemanticsAtomicCounterMemory},
		{"ImageMemory", MemorySemanticsImageMemory},
		{"OutputMemory", 0x1000}, {"OutputMemoryKHR", 0x1000},
		{"MakeAvailable", 0x2000}, {"MakeAvailableKHR", 0x2000},
		{"MakeVisible", 0x4000}, {"MakeVisibleKHR", 0x4000},
		{"Volatile", 0x8000},
	},
	"MemoryAccess": {
		{"None", 0x0}, {"Volatile", 0x1}, {"Aligned", 0x2}, {"Nontemporal", 0x4},
		{"MakePointerAvailable", 0x8}, {"MakePointerAvailableKHR", 0x8},
		{"MakePointerVisible", 0x10}, {"MakePointerVisibleKHR", 0x10},
		{"NonPrivatePointer", 0x20}, {"NonPrivatePointerKHR", 0x20},
	},
	"KernelProfilingInfo": {
		{"None", 0x0}, {"CmdExecTime", 0x1},
	},
	"RayFlags": {
		{"NoneKHR", 0x0}, {"OpaqueKHR", 0x1}, {"NoOpaqueKHR", 0x2},
		{"TerminateOnFirstHitKHR", 0x4}, {"SkipClosestHitShaderKHR", 0x8},
		{"CullBackFacingTrianglesKHR", 0x10}, {"CullFrontFacingTrianglesKHR", 0x20},
		{"CullOpaqueKHR", 0x40}, {"CullNoOpaqueKHR", 0x80},
		{"SkipTrianglesKHR", 0x100}, {"SkipAabBsKHR", 0x200},
	},
	"FragmentShadingRate": {
		{"Vertical2Pixels", 0x1}, {"Vertical4Pixels", 0x2},
		{"Horizontal2Pixels", 0x4}, {"Horizontal4Pixels", 0x8},
	},
	"CooperativeMatrixOperands": {
		{"NoneKHR", 0x0},
		{"MatrixASignedComponentsKHR", 0x1},
		{"MatrixBSignedComponentsKHR", 0x2},
		{"MatrixCSignedComponentsKHR", 0x4},
		{"MatrixResultSignedComponentsKHR", 0x8},
		{"SaturatingAccumulationKHR", 0x10},
	},
}

// ResolveBitflags looks up a group by name and parses word against it,
// the entry point codegen/asm uses for OperandKindBitflags operands.
func ResolveBitflags(groupName, word string) (uint32, bool) {
	group, ok := BitflagGroups[groupName]
	if !ok {
		return 0, false
	}
	return ParseBitflags(group, word)
}

// EnumerantGroups collects every named single-value enumerant table the asm
// dialect resolves OperandKindEnumerant operands against: unlike
// BitflagGroups these are mutually exclusive named constants (a Scope or a
// StorageClass is exactly one of its members, never a `|`-combination).
var EnumerantGroups = map[string]map[string]uint32{
	"Scope": {
		"CrossDevice": 0, "Device": uint32(ScopeDevice), "Workgroup": uint32(ScopeWorkgroup),
		"Subgroup": 3, "Invocation": 4, "QueueFamily": 5, "ShaderCallKHR": 6,
	},
	"StorageClass": {
		"UniformConstant": uint32(StorageClassUniformConstant),
		"Input":           uint32(StorageClassInput),
		"Uniform":         uint32(StorageClassUniform),
		"Output":          uint32(StorageClassOutput),
		"Workgroup":       uint32(StorageClassWorkgroup),
		"CrossWorkgroup":  uint32(StorageClassCrossWorkgroup),
		"Private":         uint32(StorageClassPrivate),
		"Function":        uint32(StorageClassFunction),
		"Generic":         uint32(StorageClassGeneric),
		"PushConstant":    uint32(StorageClassPushConstant),
		"AtomicCounter":   uint32(StorageClassAtomicCounter),
		"Image":           uint32(StorageClassImage),
		"StorageBuffer":   uint32(StorageClassStorageBuffer),
	},
	"Decoration": {
		"Block":               uint32(DecorationBlock),
		"ColMajor":            uint32(DecorationColMajor),
		"RowMajor":            uint32(DecorationRowMajor),
		"ArrayStride":         uint32(DecorationArrayStride),
		"MatrixStride":        uint32(DecorationMatrixStride),
		"BuiltIn":             uint32(DecorationBuiltIn),
		"Location":            uint32(DecorationLocation),
		"Binding":             uint32(DecorationBinding),
		"DescriptorSet":       uint32(DecorationDescriptorSet),
		"Offset":              uint32(DecorationOffset),
		"LinkageAttributes":   uint32(DecorationLinkageAttributes),
		"NonWritable":         uint32(DecorationNonWritable),
		"NonReadable":         uint32(DecorationNonReadable),
	},
	"BuiltIn": {
		"Position": uint32(BuiltInPosition), "PointSize": uint32(BuiltInPointSize),
		"ClipDistance": uint32(BuiltInClipDistance), "CullDistance": uint32(BuiltInCullDistance),
		"VertexId": uint32(BuiltInVertexID), "InstanceId": uint32(BuiltInInstanceID),
		"PrimitiveId": uint32(BuiltInPrimitiveID), "InvocationId": uint32(BuiltInInvocationID),
		"Layer": uint32(BuiltInLayer), "ViewportIndex": uint32(BuiltInViewportIndex),
		"TessLevelOuter": uint32(BuiltInTessLevelOuter), "TessLevelInner": uint32(BuiltInTessLevelInner),
		"TessCoord": uint32(BuiltInTessCoord), "PatchVertices": uint32(BuiltInPatchVertices),
		"FragCoord": uint32(BuiltInFragCoord), "PointCoord": uint32(BuiltInPointCoord),
		"FrontFacing": uint32(BuiltInFrontFacing), "SampleId": uint32(BuiltInSampleID),
		"SamplePosition": uint32(BuiltInSamplePosition), "SampleMask": uint32(BuiltInSampleMask),
		"FragDepth": uint32(BuiltInFragDepth), "HelperInvocation": uint32(BuiltInHelperInvocation),
		"NumWorkgroups": uint32(BuiltInNumWorkgroups), "WorkgroupSize": uint32(BuiltInWorkgroupSize),
		"WorkgroupId": uint32(BuiltInWorkgroupID), "LocalInvocationId": uint32(BuiltInLocalInvocationID),
		"GlobalInvocationId": uint32(BuiltInGlobalInvocationID), "LocalInvocationIndex": uint32(BuiltInLocalInvocationIndex),
		"VertexIndex": uint32(BuiltInVertexIndex), "InstanceIndex": uint32(BuiltInInstanceIndex),
	},
	"ExecutionModel": {
		"Vertex": uint32(ExecutionModelVertex), "TessellationControl": uint32(ExecutionModelTessellationControl),
		"TessellationEvaluation": uint32(ExecutionModelTessellationEvaluation), "Geometry": uint32(ExecutionModelGeometry),
		"Fragment": uint32(ExecutionModelFragment), "GLCompute": uint32(ExecutionModelGLCompute),
		"Kernel": uint32(ExecutionModelKernel),
	},
}

// ResolveEnumerant looks up a named single-value enumerant (Scope,
// StorageClass, Decoration, BuiltIn, ExecutionModel, ...) against the given
// group, the entry point codegen/asm uses for OperandKindEnumerant
// operands. Unlike ResolveBitflags it never folds multiple words together:
// an enumerant operand is always exactly one name.
func ResolveEnumerant(groupName, word string) (uint32, bool) {
	group, ok := EnumerantGroups[groupName]
	if !ok {
		return 0, false
	}
	v, ok := group[word]
	return v, ok
}
