package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "clipcut <video> [srt]",
		Short:        "Cut vertical short clips from a long video",
		Long:         "clipcut ranks a transcript with an AI provider, picks the most engaging spans and renders face-tracked 9:16 clips with burned subtitles.",
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args)
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.Flags().BoolP("openai", "o", false, "Use OpenAI")
	root.Flags().BoolP("gemini", "g", false, "Use Google Gemini")
	root.Flags().BoolP("ollama", "l", false, "Use Ollama (local)")
	root.Flags().StringArrayP("manual", "m", nil, "Manual mode: repeat for START, END and an optional TITLE; skips AI")
	root.MarkFlagsMutuallyExclusive("openai", "gemini", "ollama", "manual")

	root.Flags().StringP("output-dir", "d", "", "Output directory")
	root.Flags().String("model", "", "Override AI model name")
	root.Flags().String("config", "", "Path to config TOML file")
	root.Flags().Bool("remove-silence", false, "Remove silent moments from clips")
	root.Flags().Bool("transcribe", false, "Auto-transcribe the video when no SRT exists")
	root.Flags().BoolP("verbose", "v", false, "Debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
