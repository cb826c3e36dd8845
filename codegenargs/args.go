// Package codegenargs parses the SPIR-V backend's codegen-arg surface: the
// flags a host compiler invocation passes through to configure disassembly,
// validation, layout relaxation, and dump behavior, mirroring
// codegen_cx/mod.rs's CodegenArgs::parse.
//
// gogpu-naga's CLI tools (cmd/nagac) use the stdlib flag package directly
// rather than a getopts-style library; this package keeps that idiom rather
// than introducing a CLI framework dependency the rest of the pack doesn't
// use for backend-internal argument parsing.
package codegenargs

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

// ErrHelpRequested is returned by Parse when -h/--help was passed, mirroring
// CodegenArgs::parse's special-cased early exit.
var ErrHelpRequested = errors.New("codegenargs: help requested")

// SpirvMetadata selects how much debug-name metadata the backend emits,
// mirroring codegen_cx::SpirvMetadata.
type SpirvMetadata uint8

const (
	SpirvMetadataNone SpirvMetadata = iota
	SpirvMetadataNameVariables
	SpirvMetadataFull
)

func parseSpirvMetadata(s string) (SpirvMetadata, error) {
	switch s {
	case "", "none":
		return SpirvMetadataNone, nil
	case "name-variables":
		return SpirvMetadataNameVariables, nil
	case "full":
		return SpirvMetadataFull, nil
	default:
		return 0, fmt.Errorf("invalid --spirv-metadata value %q: expected none, name-variables, or full", s)
	}
}

// ModuleOutputType selects whether the backend emits one module per entry
// point or a single combined module, mirroring ModuleOutputType.
type ModuleOutputType uint8

const (
	ModuleOutputMultiple ModuleOutputType = iota
	ModuleOutputSingle
)

func (t ModuleOutputType) String() string {
	if t == ModuleOutputSingle {
		return "single"
	}
	return "multiple"
}

func parseModuleOutputType(s string) (ModuleOutputType, error) {
	switch s {
	case "", "multiple":
		return ModuleOutputMultiple, nil
	case "single":
		return ModuleOutputSingle, nil
	default:
		return 0, fmt.Errorf("invalid --module-output value %q: expected single or multiple", s)
	}
}

// LinkerOptions mirrors the subset of crate::linker::Options the codegen
// args surface configures directly.
type LinkerOptions struct {
	CompactIDs bool
	DCE        bool
	// SpirtPasses names the SPIR-T passes to run during linking, in order.
	// linker/zombies.ApplySpirtPasses runs the codegen/spirt fuse-selects
	// pass when this list contains "fuse-selects"; callers invoke it before
	// the reachability walk in linker/zombies.Resolve.
	SpirtPasses []string
}

// Args is the fully parsed codegen-arg surface for one compilation,
// mirroring CodegenArgs.
type Args struct {
	Disassemble         bool
	DisassembleFn        string
	DisassembleEntry     string
	DisassembleGlobals   bool

	SpirvMetadata SpirvMetadata

	RunSpirvVal bool

	RelaxStructStore           bool
	RelaxLogicalPointer        bool
	RelaxBlockLayout           *bool
	UniformBufferStandardLayout bool
	ScalarBlockLayout          bool
	SkipBlockLayout            bool

	RunSpirvOpt bool

	PreserveBindings bool

	ModuleOutputType ModuleOutputType
	LinkerOpts       LinkerOptions

	EarlyReportZombies  bool
	InferStorageClasses bool
	Structurize         bool
	AbortStrategy       AbortStrategy

	DumpMIR           string
	DumpModuleOnPanic string
	DumpPreLink       string
	DumpPostLink      string
	DumpPostMerge     string
	DumpPreInline     string
	DumpPostInline    string
	DumpPostSplit     string
	DumpSpirtPasses   string
}

// AbortStrategy selects how the backend behaves when it hits a fatal codegen
// error it would otherwise panic on, mirroring CodegenArgs::abort_strategy.
type AbortStrategy uint8

const (
	// AbortStrategyExit terminates the process immediately, matching the
	// original's default panic-unwind-to-process-exit behavior.
	AbortStrategyExit AbortStrategy = iota
	// AbortStrategyUnwind propagates the error up through Go's error
	// returns instead of exiting, for callers embedding the backend as a
	// library rather than invoking it as its own process.
	AbortStrategyUnwind
)

func (s AbortStrategy) String() string {
	if s == AbortStrategyUnwind {
		return "unwind"
	}
	return "exit"
}

func parseAbortStrategy(s string) (AbortStrategy, error) {
	switch s {
	case "", "exit":
		return AbortStrategyExit, nil
	case "unwind":
		return AbortStrategyUnwind, nil
	default:
		return 0, fmt.Errorf("invalid --abort-strategy value %q: expected exit or unwind", s)
	}
}

// Parse parses argv (excluding the program name) into Args, mirroring
// CodegenArgs::parse's getopts-based option table. It returns
// ErrHelpRequested, not an error wrapping flag.ErrHelp, when -h/--help is
// given, so callers can special-case it exactly like the original does.
func Parse(argv []string) (Args, error) {
	fs := flag.NewFlagSet("codegen-args", flag.ContinueOnError)
	fs.Usage = func() {} // suppress flag's default usage text; caller decides

	a := Args{RunSpirvVal: true, RunSpirvOpt: true, EarlyReportZombies: true, InferStorageClasses: true, Structurize: true}

	fs.BoolVar(&a.Disassemble, "disassemble", false, "print module to stderr")
	fs.StringVar(&a.DisassembleFn, "disassemble-fn", "", "print function to stderr")
	fs.StringVar(&a.DisassembleEntry, "disassemble-entry", "", "print entry point to stderr")
	fs.BoolVar(&a.DisassembleGlobals, "disassemble-globals", false, "print globals to stderr")

	var spirvMetadata string
	fs.StringVar(&spirvMetadata, "spirv-metadata", "none", "none, name-variables, or full")

	var noSpirvVal bool
	fs.BoolVar(&noSpirvVal, "no-spirv-val", false, "disable running spirv-val on the output")

	fs.BoolVar(&a.RelaxStructStore, "relax-struct-store", false, "allow store of a struct to a pointer of a different struct")
	fs.BoolVar(&a.RelaxLogicalPointer, "relax-logical-pointer", false, "allow store/load of a pointer to a pointer")
	var relaxBlockLayout bool
	fs.BoolVar(&relaxBlockLayout, "relax-block-layout", false, "don't enforce strict block layout rules")
	fs.BoolVar(&a.UniformBufferStandardLayout, "uniform-buffer-standard-layout", false, "enable VK_KHR_uniform_buffer_standard_layout")
	fs.BoolVar(&a.ScalarBlockLayout, "scalar-block-layout", false, "enable VK_EXT_scalar_block_layout")
	fs.BoolVar(&a.SkipBlockLayout, "skip-block-layout", false, "skip checking block layout rules entirely")

	var noSpirvOpt bool
	fs.BoolVar(&noSpirvOpt, "no-spirv-opt", false, "disable running spirv-opt on the output")

	fs.BoolVar(&a.PreserveBindings, "preserve-bindings", false, "preserve all bindings in the resulting module, even if they are unused")

	var moduleOutput string
	fs.StringVar(&moduleOutput, "module-output", "multiple", "single or multiple")

	var noCompactIDs, noDCE bool
	fs.BoolVar(&noCompactIDs, "no-compact-ids", false, "disable compacting IDs in the output module")
	fs.BoolVar(&noDCE, "no-dce", false, "disable dead-code elimination in the output module")
	var spirtPasses string
	fs.StringVar(&spirtPasses, "spirt-passes", "", "comma-separated list of SPIR-T passes to run while linking")

	var noEarlyReportZombies, noInferStorageClasses, noStructurize bool
	fs.BoolVar(&noEarlyReportZombies, "no-early-report-zombies", false, "defer zombie reporting to the final reachability walk instead of reporting as each block is lowered")
	fs.BoolVar(&noInferStorageClasses, "no-infer-storage-classes", false, "require every pointer's storage class to be given explicitly rather than inferred from its use")
	fs.BoolVar(&noStructurize, "no-structurize", false, "emit raw branchy control flow instead of running the structurizer pass")
	var abortStrategy string
	fs.StringVar(&abortStrategy, "abort-strategy", "exit", "exit or unwind: how to surface a fatal codegen error")

	fs.StringVar(&a.DumpMIR, "dump-mir", "", "directory to dump lowered MIR to")
	fs.StringVar(&a.DumpModuleOnPanic, "dump-module-on-panic", "", "directory to dump the partial module to if codegen panics")
	fs.StringVar(&a.DumpPreLink, "dump-pre-link", "", "directory to dump the pre-link module(s) to")
	fs.StringVar(&a.DumpPostLink, "dump-post-link", "", "directory to dump the post-link module to")
	fs.StringVar(&a.DumpPostMerge, "dump-post-merge", "", "directory to dump the module to after function merging")
	fs.StringVar(&a.DumpPreInline, "dump-pre-inline", "", "directory to dump the module to before inlining")
	fs.StringVar(&a.DumpPostInline, "dump-post-inline", "", "directory to dump the module to after inlining")
	fs.StringVar(&a.DumpPostSplit, "dump-post-split", "", "directory to dump the module to after block splitting")
	fs.StringVar(&a.DumpSpirtPasses, "dump-spirt-passes", "", "directory to dump the module to after each SPIR-T pass")

	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Args{}, ErrHelpRequested
		}
		return Args{}, err
	}

	var err error
	if a.SpirvMetadata, err = parseSpirvMetadata(strings.ToLower(spirvMetadata)); err != nil {
		return Args{}, err
	}
	if a.ModuleOutputType, err = parseModuleOutputType(strings.ToLower(moduleOutput)); err != nil {
		return Args{}, err
	}

	a.RunSpirvVal = !noSpirvVal
	a.RunSpirvOpt = !noSpirvOpt
	a.EarlyReportZombies = !noEarlyReportZombies
	a.InferStorageClasses = !noInferStorageClasses
	a.Structurize = !noStructurize
	if a.AbortStrategy, err = parseAbortStrategy(strings.ToLower(abortStrategy)); err != nil {
		return Args{}, err
	}
	if relaxBlockLayout {
		v := true
		a.RelaxBlockLayout = &v
	}
	// scalar-block-layout effectively overrides relax-block-layout, since
	// scalar layout rules are already more permissive.
	if a.ScalarBlockLayout {
		a.RelaxBlockLayout = nil
	}
	var spirtPassList []string
	if spirtPasses != "" {
		spirtPassList = strings.Split(spirtPasses, ",")
	}
	a.LinkerOpts = LinkerOptions{CompactIDs: !noCompactIDs, DCE: !noDCE, SpirtPasses: spirtPassList}

	return a, nil
}
