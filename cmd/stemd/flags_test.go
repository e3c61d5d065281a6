package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"stemd/pkg/types"
)

func newFlagCommand(t *testing.T, args ...string) (*cobra.Command, *overrideFlags, *optionFlags) {
	t.Helper()
	cmd := &cobra.Command{Use: "run"}
	var of overrideFlags
	var pf optionFlags
	of.register(cmd)
	pf.register(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return cmd, &of, &pf
}

func TestOverrideFlags_OnlySetFlagsApply(t *testing.T) {
	cmd, of, _ := newFlagCommand(t, "--param", "4band_v2", "--primary-stem", "Instrumental", "--nout", "48", "--nout-lstm", "128", "--dim-f", "2048")
	got := of.overrides(cmd)
	want := types.Overrides{
		DimF:          ptr(2048),
		PrimaryStem:   ptr("Instrumental"),
		VRParamPreset: ptr("4band_v2"),
		Nout:          ptr(48),
		NoutLSTM:      ptr(128),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("overrides (-want +got):\n%s", diff)
	}

	cmd, of, _ = newFlagCommand(t)
	if diff := cmp.Diff(types.Overrides{}, of.overrides(cmd)); diff != "" {
		t.Fatalf("unset flags must not override (-want +got):\n%s", diff)
	}
}

func TestOptionFlags(t *testing.T) {
	cmd, _, pf := newFlagCommand(t, "--segment", "512", "--overlap", "0.5", "--window-size", "1024",
		"--aggression", "0", "--tta", "--post-process", "--wav-type", "FLOAT", "--shifts", "4", "--format", "flac")
	got := pf.options(cmd)
	want := types.ProcessingOptions{
		Segment:      "512",
		Overlap:      0.5,
		WindowSize:   1024,
		Aggression:   ptr(0),
		TTA:          true,
		PostProcess:  true,
		Shifts:       4,
		WavType:      "FLOAT",
		OutputFormat: "flac",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("options (-want +got):\n%s", diff)
	}

	cmd, _, pf = newFlagCommand(t)
	if got := pf.options(cmd); got.Aggression != nil {
		t.Fatalf("aggression must stay unset, got %d", *got.Aggression)
	}
}

func TestRunAndResolveExposeOverrideFlags(t *testing.T) {
	for _, c := range []*cobra.Command{runCmd, resolveCmd} {
		for _, name := range []string{"param", "primary-stem", "nout", "nout-lstm", "dim-f", "dim-t", "n-fft", "compensate"} {
			if c.Flags().Lookup(name) == nil {
				t.Fatalf("%s: missing --%s", c.Name(), name)
			}
		}
	}
	for _, name := range []string{"segment", "overlap", "aggression", "window-size", "tta", "post-process", "wav-type"} {
		if runCmd.Flags().Lookup(name) == nil {
			t.Fatalf("run: missing --%s", name)
		}
	}
}
