package spirt

import "testing"

// selectNode builds a two-case boolean select with the given condition and
// base outputs, with each case initially empty.
func selectNode(cond Word, outputs ...Word) *Node {
	return &Node{
		Kind:    NodeKindSelect,
		Cond:    VarValue(cond),
		Cases:   []*Region{NewRegion(), NewRegion()},
		Outputs: outputs,
	}
}

func opNode(id Word) *Node {
	return &Node{Kind: NodeKindOp, Opaque: id}
}

func TestFuseSelectsInRegion_CombinesMatchingCondition(t *testing.T) {
	const cond Word = 1
	base := selectNode(cond, 100)
	base.Cases[0].Outputs = []Value{VarValue(10)} // "then" yields 10
	base.Cases[1].Outputs = []Value{VarValue(20)} // "else" yields 20

	candidate := selectNode(cond)
	candidate.Cases[0].Children = append(candidate.Cases[0].Children, opNode(200))
	candidate.Cases[1].Children = append(candidate.Cases[1].Children, opNode(201))

	region := &Region{Children: []*Node{base, candidate}}
	FuseSelectsInRegion(region)

	if len(region.Children) != 1 {
		t.Fatalf("expected the candidate to be absorbed into the base, got %d children", len(region.Children))
	}
	if region.Children[0] != base {
		t.Fatal("expected the surviving node to be the base select")
	}
	if len(base.Cases[0].Children) != 1 || base.Cases[0].Children[0].Opaque != Word(200) {
		t.Error("expected the candidate's 'then' case to be appended to the base's 'then' case")
	}
	if len(base.Cases[1].Children) != 1 || base.Cases[1].Children[0].Opaque != Word(201) {
		t.Error("expected the candidate's 'else' case to be appended to the base's 'else' case")
	}
}

func TestFuseSelectsInRegion_SubstitutesBaseOutputReferences(t *testing.T) {
	const cond Word = 1
	base := selectNode(cond, 100)
	base.Cases[0].Outputs = []Value{VarValue(10)}
	base.Cases[1].Outputs = []Value{VarValue(20)}

	// The candidate's "then" case contains a nested select whose own
	// condition references the base select's output (100); after fusion it
	// must reference the base case's own value (10) instead. A nested
	// select is used (rather than a plain op node) because Value
	// references only live in fields the generic substitution walks —
	// here, a node's Cond.
	candidate := selectNode(cond)
	user := selectNode(100)
	candidate.Cases[0].Children = append(candidate.Cases[0].Children, user)

	region := &Region{Children: []*Node{base, candidate}}
	FuseSelectsInRegion(region)

	if user.Cond.Var != 10 {
		t.Errorf("expected reference to base output 100 to be replaced with base case value 10, got %d", user.Cond.Var)
	}
}

func TestFuseSelectsInRegion_StopsAtDifferentCondition(t *testing.T) {
	base := selectNode(1)
	base.Cases[0].Outputs = []Value{}
	base.Cases[1].Outputs = []Value{}
	other := selectNode(2)

	region := &Region{Children: []*Node{base, other}}
	FuseSelectsInRegion(region)

	if len(region.Children) != 2 {
		t.Error("expected selects with different conditions not to be fused")
	}
}

func TestFuseSelectsInRegion_CandidateWithOutputsNotFusedButCanStillBeABase(t *testing.T) {
	base := selectNode(1)
	candidateWithOutputs := selectNode(1, 999)
	trailing := selectNode(1)

	region := &Region{Children: []*Node{base, candidateWithOutputs, trailing}}
	FuseSelectsInRegion(region)

	if len(region.Children) != 2 {
		t.Fatalf("expected base to stay unfused and candidateWithOutputs to absorb trailing, got %d children", len(region.Children))
	}
	if region.Children[0] != base || region.Children[1] != candidateWithOutputs {
		t.Error("expected base and candidateWithOutputs to be the two surviving nodes")
	}
}

func TestFuseSelectsInRegion_NonSelectNodesPassThroughUnchanged(t *testing.T) {
	a := opNode(1)
	b := opNode(2)
	region := &Region{Children: []*Node{a, b}}

	FuseSelectsInRegion(region)

	if len(region.Children) != 2 || region.Children[0] != a || region.Children[1] != b {
		t.Error("expected non-select nodes to be left untouched")
	}
}

func TestFuseSelectsInRegion_IdempotentAfterOnePass(t *testing.T) {
	const cond Word = 1
	base := selectNode(cond, 100)
	base.Cases[0].Outputs = []Value{VarValue(10)}
	base.Cases[1].Outputs = []Value{VarValue(20)}
	candidate := selectNode(cond)

	region := &Region{Children: []*Node{base, candidate}}
	FuseSelectsInRegion(region)
	after := append([]*Node(nil), region.Children...)

	FuseSelectsInRegion(region)
	if len(region.Children) != len(after) {
		t.Error("expected a second pass over an already-fused region to be a no-op")
	}
}

func TestFuseSelectsInRegion_ThreeInARowFuseIntoOne(t *testing.T) {
	const cond Word = 1
	base := selectNode(cond)
	mid := selectNode(cond)
	last := selectNode(cond)

	region := &Region{Children: []*Node{base, mid, last}}
	FuseSelectsInRegion(region)

	if len(region.Children) != 1 {
		t.Errorf("expected three selects sharing a condition to fuse into one, got %d", len(region.Children))
	}
}
