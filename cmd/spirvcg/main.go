// Command spirvcg drives the SPIR-V backend end to end: it builds a small
// demonstration kernel directly against the codegen/hostir APIs (there is no
// real host compiler attached here), runs it through the function builder,
// an inline asm block, module finalization, and the linker-facing zombie
// pass, and writes the resulting SPIR-V binary to a file or stdout.
//
// Usage:
//
//	spirvcg [options] [-- codegen-arg-flags...]
//
// Examples:
//
//	spirvcg -o out.spv
//	spirvcg -target spirv-unknown-vulkan1.2 -o out.spv -- -disassemble
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/gogpu/naga/codegen"
	"github.com/gogpu/naga/codegen/asm"
	"github.com/gogpu/naga/codegen/builder"
	"github.com/gogpu/naga/codegen/spirt"
	"github.com/gogpu/naga/codegenargs"
	"github.com/gogpu/naga/diag"
	"github.com/gogpu/naga/hostir"
	"github.com/gogpu/naga/linker/zombies"
	"github.com/gogpu/naga/spirv"
)

var (
	target = flag.String("target", "spirv-unknown-vulkan1.2", "SPIR-V target triple")
	output = flag.String("o", "", "output file (default: stdout)")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	args, err := codegenargs.Parse(flag.Args())
	if err != nil {
		if err == codegenargs.ErrHelpRequested {
			usage()
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "spirvcg: %v\n", err)
		os.Exit(1)
	}

	exitCode := run(args)
	os.Exit(exitCode)
}

// run drives the pipeline and returns the process exit code, recovering a
// diag.FatalError the way the backend's Fatal tier expects its single
// process boundary to, mirroring the original's top-level panic catch.
func run(args codegenargs.Args) (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*diag.FatalError); ok {
				fmt.Fprintf(os.Stderr, "spirvcg: %v\n", fe)
				exitCode = 1
				return
			}
			panic(r)
		}
	}()

	cx := codegen.New(*target, spirv.Version1_3)
	cx.Module().AddCapability(spirv.CapabilityShader)
	cx.Module().SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)

	entryFn, region := buildDemoKernel(cx)

	cx.Module().AddEntryPoint(spirv.ExecutionModelGLCompute, entryFn, "main_kernel", nil)
	cx.Module().AddExecutionMode(entryFn, spirv.ExecutionModeLocalSize, 1, 1, 1)

	if len(args.LinkerOpts.SpirtPasses) > 0 {
		zombies.ApplySpirtPasses(args.LinkerOpts.SpirtPasses, []*spirt.Region{region})
	}

	mod := cx.FinalizeModule()

	entryPoints := []zombies.EntryPoint{{Name: "main_kernel", Function: entryFn}}
	zombieErrs, err := zombies.Resolve(context.Background(), cx, entryPoints)
	if err != nil {
		fmt.Fprintf(os.Stderr, "spirvcg: zombie resolution failed: %v\n", err)
		return 1
	}
	for _, ze := range zombieErrs {
		fmt.Fprintf(os.Stderr, "spirvcg: %v\n", ze)
	}
	if len(zombieErrs) > 0 || cx.Diagnostics().HasErrors() {
		for _, e := range cx.Diagnostics().Errors() {
			fmt.Fprintf(os.Stderr, "spirvcg: %v\n", e)
		}
		return 1
	}

	if args.Disassemble {
		fmt.Fprintf(os.Stderr, "spirvcg: module bound %d, %d functions\n", mod.Bound(), len(mod.Functions))
	}

	out := mod.Encode()
	if *output != "" {
		if err := os.WriteFile(*output, out, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "spirvcg: error writing output: %v\n", err)
			return 1
		}
		fmt.Printf("wrote %s (%d bytes)\n", *output, len(out))
		return 0
	}
	if _, err := os.Stdout.Write(out); err != nil {
		fmt.Fprintf(os.Stderr, "spirvcg: error writing output: %v\n", err)
		return 1
	}
	return 0
}

// buildDemoKernel emits a small compute kernel exercising the function
// builder, the integer-rotate algorithm, and an inline asm block: a single
// basic block that rotates a constant left by another constant, emits two
// zombie placeholders, compares the rotated value with zero through an asm
// OpIEqual, and returns. It returns the function's result ID and a
// structured-IR Region (a select on the rotated value whose output is the
// first zombie), for ApplySpirtPasses to exercise.
func buildDemoKernel(cx *codegen.Context) (codegen.Word, *spirt.Region) {
	i32 := cx.TypeI32()
	boolTy := cx.TypeBool()
	voidTy := cx.TypeVoid()
	fnTy := cx.TypeFunc(nil, voidTy)

	mod := cx.Module()
	fnID := mod.AllocID()

	var opFn builder.InstructionBuilder
	opFn.AddWord(voidTy).AddWord(fnID).AddWord(0).AddWord(fnTy)

	mod.BeginFunction(fnID, voidTy, opFn.Build(spirv.OpFunction))
	mod.BeginBlock()

	b := codegen.NewBuilder(cx)
	b.SetSpan(hostir.DummySpan())

	value := constI32(cx, 0xAA)
	shift := constI32(cx, 3)
	rotated := b.Rotate(value, shift, i32, boolTy, 32, true)

	zombieA := b.Zombie(i32, "unsupported intrinsic: device_specific_shuffle")
	_ = b.Zombie(i32, "unsupported intrinsic: device_specific_reduce")

	zero := constI32(cx, 0)
	if _, err := asm.Lower(cx,
		[]string{"%cond = OpIEqual _ %rotated %zero"},
		[]asm.Operand{{Name: "rotated", Value: rotated}, {Name: "zero", Value: zero}},
		map[codegen.Word]codegen.Word{rotated: i32, zero: i32},
		asm.Options{},
	); err != nil {
		diag.Bug(hostir.DummySpan(), "demo kernel asm block failed: %v", err)
	}

	var opRet builder.InstructionBuilder
	mod.AddInst(opRet.Build(spirv.OpReturn))
	mod.Seal()
	mod.EndFunction()

	region := &spirt.Region{
		Children: []*spirt.Node{{
			Kind:    spirt.NodeKindSelect,
			Cond:    spirt.VarValue(rotated),
			Cases:   []*spirt.Region{spirt.NewRegion(), spirt.NewRegion()},
			Outputs: []codegen.Word{zombieA},
		}},
	}
	return fnID, region
}

func constI32(cx *codegen.Context, v uint32) codegen.Word {
	mod := cx.Module()
	id := mod.AllocID()
	var ib builder.InstructionBuilder
	ib.AddWord(cx.TypeI32()).AddWord(id).AddWord(v)
	mod.AddGlobalInst(ib.Build(spirv.OpConstant))
	return id
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: spirvcg [options] [-- codegen-arg-flags...]\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}
