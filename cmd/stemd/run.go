package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stemd/internal/classify"
	"stemd/internal/hasher"
	"stemd/internal/orchestrator"
	"stemd/pkg/types"
)

var (
	runArch          string
	runModel         string
	runOutputDir     string
	runDevice        string
	runConfigPath    string
	runStem          string
	runPrimaryOnly   bool
	runSecondaryOnly bool
	runOverrides     overrideFlags
	runOptions       optionFlags

	runCmd = &cobra.Command{
		Use:   "run <input>",
		Short: "Separate one audio file and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runSeparate,
	}

	resolveCmd = &cobra.Command{
		Use:   "resolve <model>",
		Short: "Print the resolved configuration of a model as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runResolve,
	}

	hashCmd = &cobra.Command{
		Use:   "hash <file>...",
		Short: "Print the content fingerprint of model files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runHash,
	}
)

func init() {
	for _, c := range []*cobra.Command{runCmd, resolveCmd} {
		c.Flags().StringVarP(&runArch, "arch", "a", "mdx", "Architecture family: mdx, mdxc, vr, demucs")
		c.Flags().StringVar(&runConfigPath, "model-config", "", "Explicit model config document (JSON or YAML)")
	}
	runCmd.Flags().StringVarP(&runModel, "model", "m", "", "Model path or identifier")
	runCmd.Flags().StringVarP(&runOutputDir, "output-dir", "o", ".", "Directory for separated stems")
	runCmd.Flags().StringVarP(&runDevice, "device", "d", "", "Device preference: auto, gpu, cpu")
	runCmd.Flags().StringVar(&runStem, "stem", "", "Stem to keep (e.g. vocals) or all")
	runCmd.Flags().BoolVar(&runPrimaryOnly, "primary-only", false, "Write only the primary stem")
	runCmd.Flags().BoolVar(&runSecondaryOnly, "secondary-only", false, "Write only the secondary stem")
	runOverrides.register(runCmd)
	runOverrides.register(resolveCmd)
	runOptions.register(runCmd)
	_ = runCmd.MarkFlagRequired("model")
}

func runSeparate(cmd *cobra.Command, args []string) error {
	orch, err := buildOrchestrator(cfg, log)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := orch.Run(ctx, types.SeparateRequest{
		Arch:          runArch,
		Model:         runModel,
		Input:         args[0],
		OutputDir:     runOutputDir,
		Device:        runDevice,
		ConfigPath:    runConfigPath,
		Stem:          runStem,
		PrimaryOnly:   runPrimaryOnly,
		SecondaryOnly: runSecondaryOnly,
		Overrides:     runOverrides.overrides(cmd),
		Options:       runOptions.options(cmd),
	})
	if err != nil {
		return describe(err)
	}
	return printJSON(orchestrator.SeparateResponse(res))
}

func runResolve(cmd *cobra.Command, args []string) error {
	orch, err := buildOrchestrator(cfg, log)
	if err != nil {
		return err
	}
	resp, err := orch.Resolve(cmd.Context(), types.ResolveRequest{
		Arch:       runArch,
		Model:      args[0],
		ConfigPath: runConfigPath,
		Overrides:  runOverrides.overrides(cmd),
	})
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runHash(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		sum, err := hasher.Fingerprint(path)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", sum, path)
	}
	return nil
}

// describe renders classified failures with their suggestion; technical
// details only with --verbose.
func describe(err error) error {
	var ce *classify.ClassifiedError
	if errors.As(err, &ce) {
		return errors.New(classify.Format(ce.Classification, cfg.Verbose))
	}
	if errors.Is(err, context.Canceled) {
		return errors.New("interrupted")
	}
	return err
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
