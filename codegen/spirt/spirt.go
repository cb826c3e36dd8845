// Package spirt implements a small structured-IR representation for
// post-codegen function bodies and the fuse-selects rewrite that runs over
// it, generalizing rustc_codegen_spirv's SPIR-T fuse_selects.rs pass to the
// Go backend's needs. It models only the slice of SPIR-T this backend
// actually exercises: nested Regions of Nodes, with NodeSelect restricted to
// the two-case boolean form (the "BoolCond" selection kind).
package spirt

import "github.com/gogpu/naga/codegen"

// Word is a module-wide SPIR-V result ID.
type Word = codegen.Word

// Value is a SPIR-T-style reference: either a module constant (an ID that
// never changes under substitution) or a region-local variable produced by
// some node's output.
type Value struct {
	IsConst bool
	Const   Word // valid when IsConst
	Var     Word // valid when !IsConst; an output id of some earlier node
}

// ConstValue wraps a constant id as a Value.
func ConstValue(id Word) Value { return Value{IsConst: true, Const: id} }

// VarValue wraps a node-output id as a Value.
func VarValue(id Word) Value { return Value{Var: id} }

// NodeKind distinguishes the two node shapes this package models.
type NodeKind uint8

const (
	// NodeKindOp is an ordinary instruction-producing node: its identity
	// doesn't matter to fuse-selects beyond "not a select", so its payload
	// is left to the caller (tracked only via Opaque).
	NodeKindOp NodeKind = iota
	// NodeKindSelect is a two-case boolean selection.
	NodeKindSelect
)

// Node is one structured-IR statement inside a Region.
type Node struct {
	Kind NodeKind

	// Select-only fields, valid when Kind == NodeKindSelect.
	Cond    Value
	Cases   []*Region // exactly two, [then, else], for the boolean form
	Outputs []Word    // this select's own result ids, one per case's matching output

	// Opaque carries caller data for NodeKindOp nodes (e.g. a codegen/asm
	// Result or a single Instruction); fuse-selects never inspects it.
	Opaque any
}

// Region is an ordered list of nodes with an ordered list of per-case
// "output" values: the value each case contributes for each of its
// enclosing select's Outputs slots.
type Region struct {
	Children []*Node
	Outputs  []Value
}

// NewRegion returns an empty region.
func NewRegion() *Region { return &Region{} }

// replaceValueWith substitutes every Var value in node (recursively, into
// nested case regions) for which sub returns a replacement, mirroring
// ReplaceValueWith's "Const is never touched" rule.
func replaceValueWith(n *Node, sub map[Word]Value) {
	replace := func(v Value) Value {
		if v.IsConst {
			return v
		}
		if rv, ok := sub[v.Var]; ok {
			return rv
		}
		return v
	}

	if n.Kind == NodeKindSelect {
		n.Cond = replace(n.Cond)
	}
	for _, case_ := range n.Cases {
		for i, out := range case_.Outputs {
			case_.Outputs[i] = replace(out)
		}
		for _, child := range case_.Children {
			replaceValueWith(child, sub)
		}
	}
}

// FuseSelectsInRegion combines consecutive NodeSelect children of region
// that share the same condition, reparenting each fusion candidate's cases
// into the base select's matching cases and substituting references to the
// base select's outputs with the base case's own output values, mirroring
// fuse_selects_in_func's single forward scan per region.
//
// The scan is not applied recursively to nested case regions by this
// function; callers that want the rewrite applied throughout a function
// body should walk every region themselves and call this once per region,
// in any order (the rewrite is local to each region's own child list).
func FuseSelectsInRegion(region *Region) {
	children := region.Children
	kept := make([]*Node, 0, len(children))

	i := 0
	for i < len(children) {
		base := children[i]
		if base.Kind != NodeKindSelect {
			kept = append(kept, base)
			i++
			continue
		}

		j := i + 1
		for j < len(children) {
			candidate := children[j]
			if candidate.Kind != NodeKindSelect || !sameCond(candidate.Cond, base.Cond) {
				break
			}
			// FIXME: outputs from the fused-away candidate are dropped;
			// only a candidate with no outputs of its own may be fused.
			if len(candidate.Outputs) != 0 {
				break
			}

			for k := range base.Cases {
				if k >= len(candidate.Cases) {
					break
				}
				baseCase := base.Cases[k]
				candidateCase := candidate.Cases[k]

				sub := make(map[Word]Value, len(base.Outputs))
				for idx, out := range base.Outputs {
					if idx < len(baseCase.Outputs) {
						sub[out] = baseCase.Outputs[idx]
					}
				}
				for _, child := range candidateCase.Children {
					replaceValueWith(child, sub)
				}

				baseCase.Children = append(baseCase.Children, candidateCase.Children...)
			}

			j++
		}

		kept = append(kept, base)
		i = j
	}

	region.Children = kept
}

func sameCond(a, b Value) bool {
	if a.IsConst != b.IsConst {
		return false
	}
	if a.IsConst {
		return a.Const == b.Const
	}
	return a.Var == b.Var
}
