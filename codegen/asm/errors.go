package asm

import "fmt"

type lexError string

func (e lexError) Error() string { return string(e) }

var errUnterminatedString = lexError("unterminated string in instruction")
var errMalformedPlaceholder = lexError("malformed placeholder; expected {N}, typeof{N} or typeof*{N}")
var errUnterminatedPlaceholder = lexError("unterminated placeholder; expected a closing '}'")

func errInvalidEscape(ch rune) error {
	return fmt.Errorf("invalid escape '\\%c'", ch)
}

func errNoOperandsForInference(mnemonic string) error {
	return fmt.Errorf("%s: result type inference needs at least one operand", mnemonic)
}

func errUnknownOperandType(mnemonic string, operand uint32) error {
	return fmt.Errorf("%s: type of operand %%%d is not known to this asm block", mnemonic, operand)
}

func errExplicitTypeRequired(mnemonic string) error {
	return fmt.Errorf("%s: result type cannot be inferred; spell it out explicitly", mnemonic)
}

func errPlaceholderOutOfRange(mnemonic string, idx int) error {
	return fmt.Errorf("%s: placeholder {%d} has no matching operand", mnemonic, idx)
}

func errUnknownBitflag(mnemonic, group, word string) error {
	return fmt.Errorf("%s: %q is not a valid %s bitflag operand", mnemonic, word, group)
}

func errUnknownEnumerant(mnemonic, group, word string) error {
	return fmt.Errorf("%s: %q is not a valid %s enumerant", mnemonic, word, group)
}

// errTrailingTerminatorNeedsNoreturn is S4's named testable property: a
// template whose last instruction is a terminator other than a return must
// be marked options(noreturn), or lowering fails with exactly this text.
func errTrailingTerminatorNeedsNoreturn(mnemonic string) error {
	return fmt.Errorf("trailing terminator `%s` requires `options(noreturn)`", mnemonic)
}

func errNoreturnWithoutTerminator() error {
	return fmt.Errorf("options(noreturn) requires the template to end with a terminator instruction")
}

func errReturnDisallowedInAsm(mnemonic string) error {
	return fmt.Errorf("%s: returning from inline asm is not allowed; fall through and let the caller return", mnemonic)
}
