package zombies

import (
	"context"
	"testing"

	"github.com/gogpu/naga/codegen"
	"github.com/gogpu/naga/codegen/spirt"
	"github.com/gogpu/naga/hostir"
	"github.com/gogpu/naga/spirv"
)

func newTestContext(t *testing.T) *codegen.Context {
	t.Helper()
	return codegen.New("spirv-unknown-vulkan1.2", spirv.Version1_3)
}

func TestResolve_NoZombiesIsNoOp(t *testing.T) {
	cx := newTestContext(t)
	mod := cx.Module()
	fnID := mod.AllocID()
	mod.BeginFunction(fnID, cx.TypeVoid())
	mod.BeginBlock()
	mod.EndFunction()

	errs, err := Resolve(context.Background(), cx, []EntryPoint{{Name: "main", Function: fnID}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(errs) != 0 {
		t.Errorf("expected no reachable zombies, got %d", len(errs))
	}
}

func TestResolve_ReachableZombiePromotedToError(t *testing.T) {
	cx := newTestContext(t)
	mod := cx.Module()
	fnID := mod.AllocID()
	mod.BeginFunction(fnID, cx.TypeVoid())
	blk := mod.BeginBlock()

	b := codegen.NewBuilder(cx)
	zombieID := b.Zombie(cx.TypeI32(), "unsupported construct")
	_ = blk

	mod.EndFunction()

	errs, err := Resolve(context.Background(), cx, []EntryPoint{{Name: "main", Function: fnID}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("expected exactly 1 reachable zombie, got %d", len(errs))
	}
	if errs[0].ID != zombieID {
		t.Errorf("expected zombie id %d, got %d", zombieID, errs[0].ID)
	}
	if errs[0].EntryPoint != "main" {
		t.Errorf("expected entry point main, got %q", errs[0].EntryPoint)
	}
}

func TestApplySpirtPasses_RunsFuseSelectsWhenNamed(t *testing.T) {
	base := &spirt.Node{Kind: spirt.NodeKindSelect, Cond: spirt.VarValue(1), Cases: []*spirt.Region{spirt.NewRegion(), spirt.NewRegion()}}
	candidate := &spirt.Node{Kind: spirt.NodeKindSelect, Cond: spirt.VarValue(1), Cases: []*spirt.Region{spirt.NewRegion(), spirt.NewRegion()}}
	region := &spirt.Region{Children: []*spirt.Node{base, candidate}}

	ApplySpirtPasses([]string{"fuse-selects"}, []*spirt.Region{region})

	if len(region.Children) != 1 {
		t.Errorf("expected fuse-selects to run and merge the candidate, got %d children", len(region.Children))
	}
}

func TestApplySpirtPasses_IgnoresUnlistedPass(t *testing.T) {
	base := &spirt.Node{Kind: spirt.NodeKindSelect, Cond: spirt.VarValue(1), Cases: []*spirt.Region{spirt.NewRegion(), spirt.NewRegion()}}
	candidate := &spirt.Node{Kind: spirt.NodeKindSelect, Cond: spirt.VarValue(1), Cases: []*spirt.Region{spirt.NewRegion(), spirt.NewRegion()}}
	region := &spirt.Region{Children: []*spirt.Node{base, candidate}}

	ApplySpirtPasses([]string{"some-other-pass"}, []*spirt.Region{region})

	if len(region.Children) != 2 {
		t.Error("expected an unnamed pass list not to run fuse-selects")
	}
}

func TestResolve_UnreachableZombieDropped(t *testing.T) {
	cx := newTestContext(t)
	mod := cx.Module()

	// A zombie recorded on a free-standing id never referenced by any
	// function or entry point: dead code, should be silently dropped.
	danglingID := mod.AllocID()
	cx.ZombieWithSpan(danglingID, hostir.DummySpan(), "dead code path")

	fnID := mod.AllocID()
	mod.BeginFunction(fnID, cx.TypeVoid())
	mod.BeginBlock()
	mod.EndFunction()

	errs, err := Resolve(context.Background(), cx, []EntryPoint{{Name: "main", Function: fnID}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(errs) != 0 {
		t.Errorf("expected unreachable zombie to be dropped, got %d errors", len(errs))
	}
}
