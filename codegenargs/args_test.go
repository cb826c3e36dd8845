package codegenargs

import (
	"errors"
	"testing"
)

func TestParse_Defaults(t *testing.T) {
	a, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.RunSpirvVal {
		t.Error("expected spirv-val to run by default")
	}
	if !a.RunSpirvOpt {
		t.Error("expected spirv-opt to run by default")
	}
	if a.SpirvMetadata != SpirvMetadataNone {
		t.Errorf("expected default spirv-metadata None, got %v", a.SpirvMetadata)
	}
	if a.ModuleOutputType != ModuleOutputMultiple {
		t.Errorf("expected default module-output multiple, got %v", a.ModuleOutputType)
	}
}

func TestParse_NoSpirvValDisables(t *testing.T) {
	a, err := Parse([]string{"-no-spirv-val"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.RunSpirvVal {
		t.Error("expected -no-spirv-val to disable validation")
	}
}

func TestParse_SpirvMetadataFull(t *testing.T) {
	a, err := Parse([]string{"-spirv-metadata=full"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.SpirvMetadata != SpirvMetadataFull {
		t.Errorf("expected Full, got %v", a.SpirvMetadata)
	}
}

func TestParse_InvalidSpirvMetadataErrors(t *testing.T) {
	if _, err := Parse([]string{"-spirv-metadata=bogus"}); err == nil {
		t.Error("expected an error for an invalid --spirv-metadata value")
	}
}

func TestParse_ScalarBlockLayoutOverridesRelax(t *testing.T) {
	a, err := Parse([]string{"-relax-block-layout", "-scalar-block-layout"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.RelaxBlockLayout != nil {
		t.Error("expected scalar-block-layout to override relax-block-layout")
	}
	if !a.ScalarBlockLayout {
		t.Error("expected scalar-block-layout to be set")
	}
}

func TestParse_RelaxBlockLayoutAlone(t *testing.T) {
	a, err := Parse([]string{"-relax-block-layout"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.RelaxBlockLayout == nil || !*a.RelaxBlockLayout {
		t.Error("expected relax-block-layout to be Some(true)")
	}
}

func TestParse_HelpRequested(t *testing.T) {
	_, err := Parse([]string{"-h"})
	if !errors.Is(err, ErrHelpRequested) {
		t.Errorf("expected ErrHelpRequested, got %v", err)
	}
}

func TestParse_ModuleOutputSingle(t *testing.T) {
	a, err := Parse([]string{"-module-output=single"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ModuleOutputType != ModuleOutputSingle {
		t.Errorf("expected single, got %v", a.ModuleOutputType)
	}
}

func TestParse_InvalidModuleOutputErrors(t *testing.T) {
	if _, err := Parse([]string{"-module-output=bogus"}); err == nil {
		t.Error("expected an error for an invalid --module-output value")
	}
}

func TestParse_SpirtPassesSplitsOnComma(t *testing.T) {
	a, err := Parse([]string{"-spirt-passes=fuse-selects,other"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"fuse-selects", "other"}
	if len(a.LinkerOpts.SpirtPasses) != len(want) {
		t.Fatalf("got %v, want %v", a.LinkerOpts.SpirtPasses, want)
	}
	for i, p := range want {
		if a.LinkerOpts.SpirtPasses[i] != p {
			t.Errorf("got %v, want %v", a.LinkerOpts.SpirtPasses, want)
		}
	}
}

func TestParse_SpirtPassesDefaultsEmpty(t *testing.T) {
	a, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.LinkerOpts.SpirtPasses) != 0 {
		t.Errorf("expected no spirt passes by default, got %v", a.LinkerOpts.SpirtPasses)
	}
}

func TestParse_DisassembleFlags(t *testing.T) {
	a, err := Parse([]string{"-disassemble", "-disassemble-fn=main", "-disassemble-globals"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Disassemble || a.DisassembleFn != "main" || !a.DisassembleGlobals {
		t.Errorf("got %+v", a)
	}
}

func TestParse_EarlyReportZombiesDefaultsOn(t *testing.T) {
	a, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.EarlyReportZombies || !a.InferStorageClasses || !a.Structurize {
		t.Errorf("expected these passes to default to enabled, got %+v", a)
	}
}

func TestParse_NoFlagsDisablePasses(t *testing.T) {
	a, err := Parse([]string{"-no-early-report-zombies", "-no-infer-storage-classes", "-no-structurize"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.EarlyReportZombies || a.InferStorageClasses || a.Structurize {
		t.Errorf("expected the no- flags to disable their passes, got %+v", a)
	}
}

func TestParse_AbortStrategyDefaultsExit(t *testing.T) {
	a, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.AbortStrategy != AbortStrategyExit {
		t.Errorf("expected default abort strategy exit, got %v", a.AbortStrategy)
	}
}

func TestParse_AbortStrategyUnwind(t *testing.T) {
	a, err := Parse([]string{"-abort-strategy=unwind"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.AbortStrategy != AbortStrategyUnwind {
		t.Errorf("expected unwind, got %v", a.AbortStrategy)
	}
}

func TestParse_InvalidAbortStrategyErrors(t *testing.T) {
	if _, err := Parse([]string{"-abort-strategy=bogus"}); err == nil {
		t.Error("expected an error for an invalid --abort-strategy value")
	}
}

func TestParse_DumpFlags(t *testing.T) {
	a, err := Parse([]string{
		"-dump-post-merge=out/merge",
		"-dump-pre-inline=out/pre-inline",
		"-dump-post-inline=out/post-inline",
		"-dump-post-split=out/post-split",
		"-dump-spirt-passes=out/passes",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.DumpPostMerge != "out/merge" || a.DumpPreInline != "out/pre-inline" ||
		a.DumpPostInline != "out/post-inline" || a.DumpPostSplit != "out/post-split" ||
		a.DumpSpirtPasses != "out/passes" {
		t.Errorf("got %+v", a)
	}
}
