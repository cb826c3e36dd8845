// Package spirv holds the wire-level facts about the SPIR-V binary format:
// the opcode, capability, decoration, storage-class, and execution-mode
// enumerations, the module version/header constants, and the structural
// grammar table (CoreInstructionTable) describing each opcode's logical
// operands. It has no notion of a host compiler's MIR or of any higher-level
// IR; codegen/builder turns these facts into an actual module, and
// codegen/asm's instruction lowering consults CoreInstructionTable to know
// how many operands a mnemonic expects and whether it produces a result.
package spirv
