package asm

import (
	"fmt"
	"strings"

	"github.com/gogpu/naga/codegen"
	"github.com/gogpu/naga/codegen/builder"
	"github.com/gogpu/naga/spirv"
)

// Word is a module-wide SPIR-V result ID.
type Word = codegen.Word

// Operand is one value a template can reference: by name (a %foo token
// anywhere in the template resolves through idMap) and/or by position (a
// {N}/typeof{N}/typeof*{N} token resolves against index N here), mirroring
// the operand list rustc_codegen_spirv's asm! threads through from its
// in(reg)/out(reg) clauses. Name may be empty for an operand that is only
// ever referenced positionally.
type Operand struct {
	Name  string
	Value Word
}

// Result is what Lower returns once a template has been fully lowered: the
// final block state (open or sealed by a terminator) and every named
// result binding the template produced, so the caller can wire them into
// its own SSA bookkeeping.
type Result struct {
	Block   BlockState
	Results map[string]Word
}

// Lower lowers a multi-line asm template into instructions appended to the
// currently open block of cx.Module(), mirroring
// Builder::codegen_inline_asm's per-line loop: lex, parse, resolve operand
// IDs against a two-namespace lookup (this template's own "%name ="
// bindings first, the caller-supplied external operand bindings second,
// reachable either by name or by {N} position), infer a "_" result type
// where the dialect allows it, and emit.
//
// valueTypes supplies the result type of every operand Word Lower doesn't
// already know about (the block's live-in values), so TyPat inference and
// typeof{N} resolution can recover a type from a value. Lower adds each of
// its own new result bindings to valueTypes as it goes, so later lines in
// the same template can refer back to earlier ones.
//
// opts.NoReturn governs the template's trailing control flow: a template
// whose last instruction is a terminator other than OpReturn/OpReturnValue
// (which Lower never allows, regardless of opts) must set NoReturn, or
// lowering fails. A NoReturn template's terminator is followed by a fresh
// OpLabel so the block remains well-formed for whatever, if anything,
// comes after it in the surrounding function.
func Lower(cx *codegen.Context, template []string, operands []Operand, valueTypes map[Word]Word, opts Options) (Result, error) {
	table := spirv.NewCoreInstructionTable()
	idMap := make(map[string]Word, len(operands))
	positional := make([]Word, len(operands))
	for i, op := range operands {
		positional[i] = op.Value
		if op.Name != "" {
			idMap[op.Name] = op.Value
		}
	}
	results := make(map[string]Word)

	var parser LineParser
	state := Open()
	terminatorMnemonic := ""

	for lineNo, line := range template {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !state.IsOpen() {
			return Result{}, fmt.Errorf("line %d: instruction %q after a block terminator", lineNo+1, line)
		}

		pl, ok, err := parser.Parse(line)
		if err != nil {
			return Result{}, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
		if !ok {
			continue
		}

		info, known := table.Lookup(pl.Mnemonic)
		if !known {
			return Result{}, fmt.Errorf("line %d: unknown or unsupported instruction %q in asm block", lineNo+1, pl.Mnemonic)
		}
		if isReturnTerminator(info.Op) {
			return Result{}, fmt.Errorf("line %d: %w", lineNo+1, errReturnDisallowedInAsm(pl.Mnemonic))
		}

		resultType, idOperands, literalOperands, err := resolveOperands(cx, idMap, positional, valueTypes, info, pl)
		if err != nil {
			return Result{}, fmt.Errorf("line %d: %w", lineNo+1, err)
		}

		var resultID Word
		mod := cx.Module()
		var ib builder.InstructionBuilder
		if info.HasResultType {
			ib.AddWord(resultType)
		}
		if info.HasResultID {
			resultID = mod.AllocID()
			ib.AddWord(resultID)
		}
		ib.AddWords(idOperands...)
		ib.AddWords(literalOperands...)
		mod.AddInst(ib.Build(info.Op))

		if info.HasResultID {
			if pl.HasResult {
				idMap[pl.ResultName] = resultID
				results[pl.ResultName] = resultID
			}
			if info.HasResultType {
				valueTypes[resultID] = resultType
			}
		}

		if isTerminator(info.Op) {
			state = End(info.Op)
			terminatorMnemonic = pl.Mnemonic
		}
	}

	if state.IsOpen() {
		if opts.NoReturn {
			return Result{}, errNoreturnWithoutTerminator()
		}
		return Result{Block: state, Results: results}, nil
	}

	if !opts.NoReturn {
		return Result{}, errTrailingTerminatorNeedsNoreturn(terminatorMnemonic)
	}
	mod := cx.Module()
	mod.Seal()
	mod.BeginBlock()

	return Result{Block: state, Results: results}, nil
}

// resolveOperands walks pl.Operands positionally against info's declared
// grammar (info.Operands), dispatching each logical operand's parse by its
// declared OperandKind instead of guessing from the token's shape. The
// result-type operand (when info.HasResultType) is resolved separately,
// ahead of the grammar walk, since it is never itself part of
// info.Operands.
func resolveOperands(cx *codegen.Context, idMap map[string]Word, positional []Word, valueTypes map[Word]Word, info spirv.InstructionInfo, pl ParsedLine) (resultType Word, idOperands []Word, literalOperands []Word, err error) {
	operands := pl.Operands
	i := 0

	needsInference := false
	if info.HasResultType {
		if i >= len(operands) {
			return 0, nil, nil, fmt.Errorf("%s: missing result type operand", pl.Mnemonic)
		}
		tok := operands[i]
		i++
		if IsInferredType(tok) {
			needsInference = true
		} else {
			resultType, err = resolveTypeToken(cx, idMap, positional, valueTypes, pl.Mnemonic, tok)
			if err != nil {
				return 0, nil, nil, err
			}
		}
	}

	opIdx := i
	for _, logOp := range info.Operands {
		switch logOp.Quantifier {
		case spirv.QuantifierOne:
			if opIdx >= len(operands) {
				return 0, nil, nil, fmt.Errorf("%s: missing operand", pl.Mnemonic)
			}
			words, isID, e := resolveGrammarOperand(idMap, positional, logOp, operands[opIdx], pl.Mnemonic)
			opIdx++
			if e != nil {
				return 0, nil, nil, e
			}
			if isID {
				idOperands = append(idOperands, words...)
			} else {
				literalOperands = append(literalOperands, words...)
			}
		case spirv.QuantifierOptional:
			if opIdx < len(operands) {
				words, isID, e := resolveGrammarOperand(idMap, positional, logOp, operands[opIdx], pl.Mnemonic)
				opIdx++
				if e != nil {
					return 0, nil, nil, e
				}
				if isID {
					idOperands = append(idOperands, words...)
				} else {
					literalOperands = append(literalOperands, words...)
				}
			}
		case spirv.QuantifierVariadic:
			for opIdx < len(operands) {
				words, isID, e := resolveGrammarOperand(idMap, positional, logOp, operands[opIdx], pl.Mnemonic)
				opIdx++
				if e != nil {
					return 0, nil, nil, e
				}
				if isID {
					idOperands = append(idOperands, words...)
				} else {
					literalOperands = append(literalOperands, words...)
				}
			}
		}
	}
	if opIdx < len(operands) {
		return 0, nil, nil, fmt.Errorf("%s: too many operands", pl.Mnemonic)
	}

	if needsInference {
		resultType, err = inferResultType(cx, pl.Mnemonic, idOperands, literalOperands, valueTypes)
		if err != nil {
			return 0, nil, nil, err
		}
	}

	return resultType, idOperands, literalOperands, nil
}

// resolveGrammarOperand resolves one token against the grammar logOp
// declares for its position, returning the word(s) it encodes and whether
// they belong in the ID-operand stream (true) or the literal-operand
// stream (false). A LiteralString operand can expand to more than one word
// once packed; everything else resolves to exactly one.
func resolveGrammarOperand(idMap map[string]Word, positional []Word, logOp spirv.LogicalOperand, tok Token, mnemonic string) ([]Word, bool, error) {
	switch logOp.Kind {
	case spirv.OperandKindID:
		if !IsIDOperand(tok) {
			return nil, false, fmt.Errorf("%s: expected an id operand, found %q", mnemonic, tok.Word)
		}
		id, err := resolveIDToken(idMap, positional, mnemonic, tok)
		if err != nil {
			return nil, false, err
		}
		return []Word{id}, true, nil

	case spirv.OperandKindLiteralInt:
		v, err := ParseLiteralInt(tok)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", mnemonic, err)
		}
		return []Word{v}, false, nil

	case spirv.OperandKindLiteralFloat:
		v, err := ParseLiteralFloat(tok)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", mnemonic, err)
		}
		return []Word{v}, false, nil

	case spirv.OperandKindLiteralString:
		if tok.Kind != TokenString {
			return nil, false, fmt.Errorf("%s: expected a string literal operand", mnemonic)
		}
		return builder.EncodeLiteralString(tok.String), false, nil

	case spirv.OperandKindBitflags:
		if tok.Kind != TokenWord {
			return nil, false, fmt.Errorf("%s: expected a %s bitflag operand", mnemonic, logOp.GroupName)
		}
		v, ok := spirv.ResolveBitflags(logOp.GroupName, tok.Word)
		if !ok {
			return nil, false, errUnknownBitflag(mnemonic, logOp.GroupName, tok.Word)
		}
		return []Word{v}, false, nil

	case spirv.OperandKindEnumerant:
		if tok.Kind != TokenWord {
			return nil, false, fmt.Errorf("%s: expected a %s enumerant operand", mnemonic, logOp.GroupName)
		}
		v, ok := spirv.ResolveEnumerant(logOp.GroupName, tok.Word)
		if !ok {
			return nil, false, errUnknownEnumerant(mnemonic, logOp.GroupName, tok.Word)
		}
		return []Word{v}, false, nil

	case spirv.OperandKindPairedID:
		// No instruction in the core table currently declares a paired-id
		// operand (the (image-operand, id) pairs OpImageSample* variadic
		// tails use); nothing exercises this branch yet.
		return nil, false, fmt.Errorf("%s: paired-id operands are not supported by this assembler", mnemonic)

	default:
		return nil, false, fmt.Errorf("%s: unknown operand kind", mnemonic)
	}
}

// resolveIDToken resolves an ID-operand token, either a %name reference
// into idMap or a {N} placeholder reaching positionally into the operand
// list Lower was given.
func resolveIDToken(idMap map[string]Word, positional []Word, mnemonic string, tok Token) (Word, error) {
	switch tok.Kind {
	case TokenPlaceholder:
		if tok.PlaceholderIdx < 0 || tok.PlaceholderIdx >= len(positional) {
			return 0, errPlaceholderOutOfRange(mnemonic, tok.PlaceholderIdx)
		}
		return positional[tok.PlaceholderIdx], nil
	case TokenWord:
		name := OperandName(tok)
		id, ok := idMap[name]
		if !ok {
			return 0, fmt.Errorf("%s: undefined id %%%s", mnemonic, name)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("%s: expected an id operand", mnemonic)
	}
}

// resolveTypeToken resolves the leading result-type operand a HasResultType
// instruction expects, which (unlike other ID operands) also accepts a
// typeof{N}/typeof*{N} form that recovers the type from a live value
// instead of naming a type operand directly.
func resolveTypeToken(cx *codegen.Context, idMap map[string]Word, positional []Word, valueTypes map[Word]Word, mnemonic string, tok Token) (Word, error) {
	switch tok.Kind {
	case TokenPlaceholder:
		if tok.PlaceholderIdx < 0 || tok.PlaceholderIdx >= len(positional) {
			return 0, errPlaceholderOutOfRange(mnemonic, tok.PlaceholderIdx)
		}
		return positional[tok.PlaceholderIdx], nil
	case TokenTypeof:
		if tok.PlaceholderIdx < 0 || tok.PlaceholderIdx >= len(positional) {
			return 0, errPlaceholderOutOfRange(mnemonic, tok.PlaceholderIdx)
		}
		val := positional[tok.PlaceholderIdx]
		ty, ok := valueTypes[val]
		if !ok {
			return 0, errUnknownOperandType(mnemonic, val)
		}
		if tok.TypeofKind == TypeofDereference {
			return cx.ElementType(ty), nil
		}
		return ty, nil
	case TokenWord:
		if strings.HasPrefix(tok.Word, "%") {
			name := OperandName(tok)
			id, ok := idMap[name]
			if !ok {
				return 0, fmt.Errorf("%s: undefined id %%%s used as result type", mnemonic, name)
			}
			return id, nil
		}
		return 0, fmt.Errorf("%s: expected a type operand (%%name, _, {N} or typeof{N}), found %q", mnemonic, tok.Word)
	default:
		return 0, fmt.Errorf("%s: expected a type operand, found a string literal", mnemonic)
	}
}
