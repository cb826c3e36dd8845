// Package zombies implements the linker-facing half of the backend's
// deferred-error system: given a finalized module and its zombie
// decorations, walk reachability from each entry point and promote every
// zombie an entry point can still reach into a hard link error. Zombies no
// entry point reaches are not reported, and the module itself is left
// unchanged: their defining instructions stay in it. This mirrors the "zombie" pass rust-gpu's linker runs after
// codegen, before writing the final binary.
package zombies

import (
	"context"
	"fmt"
	"slices"

	"github.com/gogpu/naga/codegen"
	"github.com/gogpu/naga/codegen/builder"
	"github.com/gogpu/naga/codegen/spirt"
	"golang.org/x/sync/errgroup"
)

// Word is a module-wide SPIR-V result ID.
type Word = builder.Word

// EntryPoint is one root the reachability walk starts from: an entry
// function plus its interface variable IDs (as declared by OpEntryPoint).
type EntryPoint struct {
	Name     string
	Function Word
	Interface []Word
}

// ReachableZombieError reports that a zombie decoration is reachable from a
// real entry point: the construct it stands in for must actually be
// lowered, so this is a hard compilation failure.
type ReachableZombieError struct {
	EntryPoint string
	ID         Word
	Reason     string
}

func (e *ReachableZombieError) Error() string {
	return fmt.Sprintf("entry point %q reaches an unlowerable construct (id %d): %s", e.EntryPoint, e.ID, e.Reason)
}

// buildReferenceGraph maps every ID to the set of IDs its instructions'
// operand words mention, across every module section. SPIR-V packs
// literals and ID operands into the same word stream, so this
// over-approximates true references (a literal that happens to equal a
// live ID looks like an edge); that only ever makes the walk too
// conservative, promoting a handful of truly-dead zombies instead of
// dropping a live one, never the reverse.
func buildReferenceGraph(mod *builder.Module) map[Word][]Word {
	graph := make(map[Word][]Word)

	addEdges := func(owner Word, words []Word) {
		graph[owner] = append(graph[owner], words...)
	}

	walkInsts := func(insts []builder.Instruction, owner Word) {
		for _, inst := range insts {
			if owner != 0 {
				addEdges(owner, inst.Words)
			}
		}
	}

	// Global sections reference each other structurally (a type referring
	// to another type's ID, a decoration referring to its target); treat
	// every instruction's first word as an approximate "owner" so the
	// remaining words become its dependencies. This is good enough for a
	// coarse liveness walk: it never needs per-operand-kind precision,
	// only "does any edge exist".
	for _, sections := range [][]builder.Instruction{mod.Capabilities, mod.Extensions, mod.ExtInstImports, mod.EntryPoints, mod.ExecutionModes, mod.DebugStrings, mod.DebugNames, mod.Annotations, mod.TypesConstants} {
		for _, inst := range sections {
			if len(inst.Words) == 0 {
				continue
			}
			owner := inst.Words[0]
			addEdges(owner, inst.Words[1:])
		}
	}
	for _, fn := range mod.Functions {
		walkInsts(fn.Header, fn.ID)
		for _, blk := range fn.Blocks {
			for _, inst := range blk.Instructions {
				if len(inst.Words) == 0 {
					continue
				}
				// The block label owns every word of every instruction in
				// the block, so a block reaches everything its instructions
				// mention (including a one-word OpBranch's target label).
				addEdges(blk.Label, inst.Words)
			}
		}
		// A function's entry block is reachable once the function itself is.
		if len(fn.Blocks) > 0 {
			addEdges(fn.ID, []Word{fn.Blocks[0].Label})
		}
	}
	return graph
}

func reachableFrom(graph map[Word][]Word, roots []Word) map[Word]bool {
	seen := make(map[Word]bool, len(roots)*4)
	queue := append([]Word(nil), roots...)
	for _, r := range roots {
		seen[r] = true
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range graph[cur] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

// ApplySpirtPasses runs the named SPIR-T passes, in order, over every region
// a caller has already lifted from its finalized functions. Only
// "fuse-selects" is recognized today; unknown names are ignored, matching
// the zombie pass's own tolerance for linker options it doesn't act on.
// Resolve itself takes no opinion on structured-IR lifting: callers that
// want G exercised ahead of the reachability walk lift their own regions
// (codegen/spirt models only the Region/Node shape, not a general
// CFG-to-structured-IR conversion) and call this first.
func ApplySpirtPasses(passes []string, regions []*spirt.Region) {
	if !slices.Contains(passes, "fuse-selects") {
		return
	}
	for _, r := range regions {
		spirt.FuseSelectsInRegion(r)
	}
}

// Resolve runs the reachability walk for every entry point concurrently
// (each walk only reads the already-finalized module and zombie map, so
// there is no shared mutable state to race on) and returns every zombie
// that at least one entry point can still reach.
func Resolve(ctx context.Context, cx *codegen.Context, entryPoints []EntryPoint) ([]*ReachableZombieError, error) {
	mod := cx.Module()
	graph := buildReferenceGraph(mod)
	zombieMap := cx.Zombies()

	if len(zombieMap) == 0 || len(entryPoints) == 0 {
		return nil, nil
	}

	results := make([][]*ReachableZombieError, len(entryPoints))
	g, _ := errgroup.WithContext(ctx)
	for i, ep := range entryPoints {
		i, ep := i, ep
		g.Go(func() error {
			roots := append([]Word{ep.Function}, ep.Interface...)
			reachable := reachableFrom(graph, roots)
			var found []*ReachableZombieError
			for id, z := range zombieMap {
				if reachable[id] {
					found = append(found, &ReachableZombieError{EntryPoint: ep.Name, ID: id, Reason: z.Reason})
				}
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []*ReachableZombieError
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}
