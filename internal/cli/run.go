package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dkotenko/clipcut/internal/config"
	"github.com/dkotenko/clipcut/internal/logging"
	"github.com/dkotenko/clipcut/internal/pipeline"
)

func run(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	log := logging.New(verbose)

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Flags win over config, config over defaults.
	if outDir, _ := cmd.Flags().GetString("output-dir"); outDir != "" {
		cfg.Output.Dir = outDir
	}
	if rs, _ := cmd.Flags().GetBool("remove-silence"); rs {
		cfg.Output.RemoveSilence = true
	}

	manual, err := parseManualFlag(cmd)
	if err != nil {
		return err
	}

	provider := ""
	if manual == nil {
		provider, err = resolveProvider(cmd, cfg)
		if err != nil {
			return err
		}
	}

	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = cfg.AI.Model
	}
	if model == "" && provider != "" {
		model = config.ModelDefaults[provider]
	}

	absIn, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	srtPath := ""
	if len(args) > 1 {
		srtPath = args[1]
	}
	transcribe, _ := cmd.Flags().GetBool("transcribe")

	p := pipeline.Params{
		InputVideo: absIn,
		SRTPath:    srtPath,
		Provider:   provider,
		Model:      model,
		Manual:     manual,
		Transcribe: transcribe,
		Cfg:        cfg,
		Log:        log,
	}
	if err := p.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	info, err := pipeline.Run(ctx, p)
	if err != nil {
		return err
	}

	printSummary(cmd, info)
	if info.Failed == len(info.Manifest.Clips) {
		return errors.New("all clips failed")
	}
	return nil
}

// parseManualFlag reads the repeated --manual values: START, END and any
// remaining values joined as the title.
func parseManualFlag(cmd *cobra.Command) (*pipeline.ManualClip, error) {
	vals, _ := cmd.Flags().GetStringArray("manual")
	if len(vals) == 0 {
		return nil, nil
	}
	if len(vals) < 2 {
		return nil, errors.New("--manual requires at least START and END times")
	}
	title := "clip"
	if len(vals) > 2 {
		title = strings.Join(vals[2:], " ")
	}
	return &pipeline.ManualClip{Start: vals[0], End: vals[1], Title: title}, nil
}

func resolveProvider(cmd *cobra.Command, cfg config.Config) (string, error) {
	for _, name := range []string{"openai", "gemini", "ollama"} {
		if on, _ := cmd.Flags().GetBool(name); on {
			return name, nil
		}
	}
	if cfg.AI.Provider != "" {
		return cfg.AI.Provider, nil
	}
	return "", errors.New("no AI provider specified: use -o/--openai, -g/--gemini, -l/--ollama, or set ai.provider in config.toml")
}

func printSummary(cmd *cobra.Command, info pipeline.RunInfo) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintln(out, "RESULTS:")
	fmt.Fprintln(out, strings.Repeat("=", 50))

	ok := 0
	for _, c := range info.Manifest.Clips {
		icon := "x"
		size := ""
		if c.Status == "ok" {
			icon = "+"
			ok++
			if fi, err := os.Stat(filepath.Join(info.OutDir, filepath.FromSlash(c.File))); err == nil {
				size = fmt.Sprintf(" (%.1f MB)", float64(fi.Size())/(1024*1024))
			}
		}
		fmt.Fprintf(out, "  %s %s%s\n", icon, c.Title, size)
		fmt.Fprintf(out, "    -> %s\n", filepath.Join(info.OutDir, filepath.FromSlash(c.File)))
	}
	fmt.Fprintf(out, "\n%d/%d clips created in %s\n", ok, len(info.Manifest.Clips), info.OutDir)
}
