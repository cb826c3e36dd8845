// Package builder implements the low-level SPIR-V module builder: word and
// instruction encoding, monotonic ID allocation, and the ordered module
// sections SPIR-V's binary layout requires. It knows nothing about SpirvType
// or SpirvValue semantics — those live in codegen/typecache and codegen —
// it only knows how to hold and serialize words in the right order.
//
// This generalizes gogpu-naga's spirv.ModuleBuilder (a single flat function
// list) with explicit cursors over multiple functions and their basic
// blocks, per codegen's need to build many functions across one module.
package builder

import (
	"encoding/binary"

	"github.com/gogpu/naga/spirv"
)

// Word is a 32-bit value inside a SPIR-V module: an opcode word, an ID, or
// a literal operand.
type Word = uint32

// Instruction is one decoded SPIR-V instruction: an opcode plus its operand
// words (the word-count-prefixed opcode word is computed at Encode time).
type Instruction struct {
	Opcode spirv.OpCode
	Words  []Word
}

// Encode returns the instruction's wire words: the packed
// (word-count<<16)|opcode header word followed by the operand words.
func (i Instruction) Encode() []Word {
	out := make([]Word, 0, len(i.Words)+1)
	header := (Word(len(i.Words)+1) << 16) | Word(i.Opcode)
	out = append(out, header)
	out = append(out, i.Words...)
	return out
}

// InstructionBuilder assembles one instruction's operand words.
type InstructionBuilder struct {
	words []Word
}

// AddWord appends a single raw operand word.
func (b *InstructionBuilder) AddWord(w Word) *InstructionBuilder {
	b.words = append(b.words, w)
	return b
}

// AddWords appends several raw operand words in order.
func (b *InstructionBuilder) AddWords(ws ...Word) *InstructionBuilder {
	b.words = append(b.words, ws...)
	return b
}

// AddString appends a SPIR-V literal string: UTF-8 bytes, NUL-terminated,
// then zero-padded to a whole number of words, packed little-endian four
// bytes per word.
func (b *InstructionBuilder) AddString(s string) *InstructionBuilder {
	buf := append([]byte(s), 0)
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	for i := 0; i < len(buf); i += 4 {
		w := Word(buf[i]) | Word(buf[i+1])<<8 | Word(buf[i+2])<<16 | Word(buf[i+3])<<24
		b.words = append(b.words, w)
	}
	return b
}

// EncodeLiteralString packs s the same way AddString does, standalone: for
// callers (codegen/asm's literal-string operand resolution) that need the
// encoded words without building a whole instruction around them.
func EncodeLiteralString(s string) []Word {
	var b InstructionBuilder
	b.AddString(s)
	return b.words
}

// Build finalizes the instruction with the given opcode.
func (b *InstructionBuilder) Build(opcode spirv.OpCode) Instruction {
	return Instruction{Opcode: opcode, Words: b.words}
}

// Block is a basic block: an ordered instruction list sealed by a
// terminator (OpReturn, OpBranch, OpSwitch, OpUnreachable, ...).
type Block struct {
	Label        Word
	Instructions []Instruction
	Sealed       bool
}

// Function is one function body: its header instructions (OpFunction,
// OpFunctionParameter...) plus an ordered list of basic blocks.
type Function struct {
	ID         Word
	Header     []Instruction // OpFunction, OpFunctionParameter*
	Blocks     []*Block
	FuncEnd    Instruction
	IsSealed   bool
	ResultType Word
}

// CurrentBlock returns the function's currently open (last) block, or nil
// if none has been started yet.
func (f *Function) CurrentBlock() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[len(f.Blocks)-1]
}

// Module is the growing SPIR-V module: header fields plus the ordered
// global sections and the ordered function list, matching the binary
// layout SPIR-V mandates (§4.C).
type Module struct {
	VersionMajor, VersionMinor uint8
	Generator                  Word
	Schema                     Word

	nextID Word

	Capabilities    []Instruction
	Extensions      []Instruction
	ExtInstImports  []Instruction
	MemoryModel     *Instruction
	EntryPoints     []Instruction
	ExecutionModes  []Instruction
	DebugStrings    []Instruction
	DebugNames      []Instruction
	Annotations     []Instruction
	TypesConstants  []Instruction // OpType*, OpConstant*, OpVariable (global)
	Functions       []*Function

	// currently open cursors
	curFunc  *Function
	curBlock *Block
}

// NewModule creates an empty module targeting the given SPIR-V version.
func NewModule(major, minor uint8) *Module {
	return &Module{
		VersionMajor: major,
		VersionMinor: minor,
		Generator:    0,
		nextID:       1,
	}
}

// AllocID draws a fresh, never-reused module-wide ID.
func (m *Module) AllocID() Word {
	id := m.nextID
	m.nextID++
	return id
}

// Bound returns the current ID bound (one past the highest allocated ID).
func (m *Module) Bound() Word { return m.nextID }

// --- global cursor ---

// AddCapability appends an OpCapability instruction.
func (m *Module) AddCapability(cap spirv.Capability) {
	var ib InstructionBuilder
	ib.AddWord(Word(cap))
	m.Capabilities = append(m.Capabilities, ib.Build(spirv.OpCapability))
}

// AddExtension appends an OpExtension instruction.
func (m *Module) AddExtension(name string) {
	var ib InstructionBuilder
	ib.AddString(name)
	m.Extensions = append(m.Extensions, ib.Build(spirv.OpExtension))
}

// AddExtInstImport appends an OpExtInstImport instruction and returns the
// allocated import-ID.
func (m *Module) AddExtInstImport(name string) Word {
	id := m.AllocID()
	var ib InstructionBuilder
	ib.AddWord(id).AddString(name)
	m.ExtInstImports = append(m.ExtInstImports, ib.Build(spirv.OpExtInstImport))
	return id
}

// SetMemoryModel sets the (singular) OpMemoryModel instruction.
func (m *Module) SetMemoryModel(addressing spirv.AddressingModel, memory spirv.MemoryModel) {
	var ib InstructionBuilder
	ib.AddWord(Word(addressing)).AddWord(Word(memory))
	inst := ib.Build(spirv.OpMemoryModel)
	m.MemoryModel = &inst
}

// AddEntryPoint appends an OpEntryPoint instruction.
func (m *Module) AddEntryPoint(model spirv.ExecutionModel, fn Word, name string, interfaceVars []Word) {
	var ib InstructionBuilder
	ib.AddWord(Word(model)).AddWord(fn).AddString(name)
	ib.AddWords(interfaceVars...)
	m.EntryPoints = append(m.EntryPoints, ib.Build(spirv.OpEntryPoint))
}

// AddExecutionMode appends an OpExecutionMode instruction.
func (m *Module) AddExecutionMode(fn Word, mode spirv.ExecutionMode, extra ...Word) {
	var ib InstructionBuilder
	ib.AddWord(fn).AddWord(Word(mode)).AddWords(extra...)
	m.ExecutionModes = append(m.ExecutionModes, ib.Build(spirv.OpExecutionMode))
}

// AddName appends an OpName debug instruction.
func (m *Module) AddName(target Word, name string) {
	var ib InstructionBuilder
	ib.AddWord(target).AddString(name)
	m.DebugNames = append(m.DebugNames, ib.Build(spirv.OpName))
}

// AddMemberName appends an OpMemberName debug instruction.
func (m *Module) AddMemberName(target Word, member Word, name string) {
	var ib InstructionBuilder
	ib.AddWord(target).AddWord(member).AddString(name)
	m.DebugNames = append(m.DebugNames, ib.Build(spirv.OpMemberName))
}

// AddDecorate appends an OpDecorate annotation with raw extra operand
// words (the decoration's parameters, if any).
func (m *Module) AddDecorate(target Word, decoration spirv.Decoration, extra ...Word) {
	var ib InstructionBuilder
	ib.AddWord(target).AddWord(Word(decoration)).AddWords(extra...)
	m.Annotations = append(m.Annotations, ib.Build(spirv.OpDecorate))
}

// AddDecorateString appends an OpDecorate whose parameters are a literal
// string followed by any extra words (used for LinkageAttributes).
func (m *Module) AddDecorateString(target Word, decoration spirv.Decoration, name string, extra ...Word) {
	var ib InstructionBuilder
	ib.AddWord(target).AddWord(Word(decoration)).AddString(name).AddWords(extra...)
	m.Annotations = append(m.Annotations, ib.Build(spirv.OpDecorate))
}

// AddMemberDecorate appends an OpMemberDecorate annotation.
func (m *Module) AddMemberDecorate(target Word, member Word, decoration spirv.Decoration, extra ...Word) {
	var ib InstructionBuilder
	ib.AddWord(target).AddWord(member).AddWord(Word(decoration)).AddWords(extra...)
	m.Annotations = append(m.Annotations, ib.Build(spirv.OpMemberDecorate))
}

// AddGlobalInst inserts a fully-built instruction into the
// types/constants/globals section (used by the type cache and constant
// cache, which compute their own operand words).
func (m *Module) AddGlobalInst(inst Instruction) {
	m.TypesConstants = append(m.TypesConstants, inst)
}

// --- function cursor ---

// BeginFunction opens a new function, making it the current function
// cursor. header should already contain the OpFunction instruction
// (and, for entry-point style functions, no OpFunctionParameter yet).
func (m *Module) BeginFunction(id, resultType Word, header ...Instruction) *Function {
	fn := &Function{ID: id, ResultType: resultType, Header: header}
	m.Functions = append(m.Functions, fn)
	m.curFunc = fn
	m.curBlock = nil
	return fn
}

// AddFunctionParameter appends an OpFunctionParameter to the open
// function's header and returns its allocated ID.
func (m *Module) AddFunctionParameter(paramType Word) Word {
	id := m.AllocID()
	var ib InstructionBuilder
	ib.AddWord(paramType).AddWord(id)
	m.curFunc.Header = append(m.curFunc.Header, ib.Build(spirv.OpFunctionParameter))
	return id
}

// EndFunction seals the open function with OpFunctionEnd and clears the
// function/block cursors.
func (m *Module) EndFunction() {
	m.curFunc.FuncEnd = Instruction{Opcode: spirv.OpFunctionEnd}
	m.curFunc.IsSealed = true
	m.curFunc = nil
	m.curBlock = nil
}

// CurrentFunction returns the function cursor, or nil if none is open.
func (m *Module) CurrentFunction() *Function { return m.curFunc }

// --- block cursor ---

// BeginBlock opens a new basic block in the current function, with a
// fresh OpLabel, and makes it the block cursor.
func (m *Module) BeginBlock() *Block {
	label := m.AllocID()
	blk := &Block{Label: label}
	m.curFunc.Blocks = append(m.curFunc.Blocks, blk)
	m.curBlock = blk
	return blk
}

// CurrentBlock returns the block cursor, or nil if none is open.
func (m *Module) CurrentBlock() *Block { return m.curBlock }

// AddInst appends an instruction to the open block. Callers must not
// append after a terminator has sealed the block.
func (m *Module) AddInst(inst Instruction) {
	m.curBlock.Instructions = append(m.curBlock.Instructions, inst)
}

// Seal marks the current block sealed (its last instruction must be a
// block terminator); the block cursor is cleared.
func (m *Module) Seal() {
	m.curBlock.Sealed = true
	m.curBlock = nil
}

// --- serialization ---

func countWords(insts []Instruction) int {
	n := 0
	for _, i := range insts {
		n += len(i.Words) + 1
	}
	return n
}

// Encode serializes the module to the SPIR-V binary wire format: a 5-word
// header followed by every section in SPIR-V's mandated order.
func (m *Module) Encode() []byte {
	total := 5
	total += countWords(m.Capabilities)
	total += countWords(m.Extensions)
	total += countWords(m.ExtInstImports)
	if m.MemoryModel != nil {
		total += len(m.MemoryModel.Words) + 1
	}
	total += countWords(m.EntryPoints)
	total += countWords(m.ExecutionModes)
	total += countWords(m.DebugStrings)
	total += countWords(m.DebugNames)
	total += countWords(m.Annotations)
	total += countWords(m.TypesConstants)
	for _, fn := range m.Functions {
		total += countWords(fn.Header) + 1 // +1 for OpFunctionEnd
		for _, blk := range fn.Blocks {
			total += 2 // OpLabel: opcode word plus the label id
			total += countWords(blk.Instructions)
		}
	}

	buf := make([]byte, total*4)
	off := 0
	putWord := func(w Word) {
		binary.LittleEndian.PutUint32(buf[off:], w)
		off += 4
	}
	writeInsts := func(insts []Instruction) {
		for _, inst := range insts {
			for _, w := range inst.Encode() {
				putWord(w)
			}
		}
	}

	putWord(spirv.MagicNumber)
	putWord((Word(m.VersionMajor) << 16) | (Word(m.VersionMinor) << 8))
	putWord(m.Generator)
	putWord(m.nextID)
	putWord(m.Schema)

	writeInsts(m.Capabilities)
	writeInsts(m.Extensions)
	writeInsts(m.ExtInstImports)
	if m.MemoryModel != nil {
		for _, w := range m.MemoryModel.Encode() {
			putWord(w)
		}
	}
	writeInsts(m.EntryPoints)
	writeInsts(m.ExecutionModes)
	writeInsts(m.DebugStrings)
	writeInsts(m.DebugNames)
	writeInsts(m.Annotations)
	writeInsts(m.TypesConstants)
	for _, fn := range m.Functions {
		writeInsts(fn.Header)
		for _, blk := range fn.Blocks {
			labelInst := Instruction{Opcode: spirv.OpLabel, Words: []Word{blk.Label}}
			for _, w := range labelInst.Encode() {
				putWord(w)
			}
			writeInsts(blk.Instructions)
		}
		for _, w := range fn.FuncEnd.Encode() {
			putWord(w)
		}
	}

	return buf
}
