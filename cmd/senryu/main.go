package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/igolaizola/senryu/internal/mora"
	"github.com/igolaizola/senryu/internal/reading"
	"github.com/igolaizola/senryu/internal/recovery"
	"github.com/igolaizola/senryu/internal/report"
	"github.com/igolaizola/senryu/internal/run"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "senryu",
		Short:         "Generate senryu in the style of a corpus of originals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand(), newMoraCommand(), newExtractCommand())
	return root
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		return cfg.Build()
	}
	return zap.NewProduction()
}

// runFlags holds the raw flag values of the run command. cfg only carries
// flag values; resolve layers them over the file and the environment.
type runFlags struct {
	configPath string
	judge      bool
	noJudge    bool
	cfg        run.Config
}

func newRunCommand() *cobra.Command {
	rf := &runFlags{cfg: run.DefaultConfig()}
	return rf.command()
}

func (rf *runFlags) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract the style profile, generate, score and write the ranked results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rf.resolve(cmd, os.Getenv)
			if err != nil {
				return err
			}
			abs, err := filepath.Abs(cfg.Output.Dir)
			if err != nil {
				return fmt.Errorf("resolve output dir: %w", err)
			}
			cfg.Output.Dir = abs

			logger, err := newLogger(cfg.Verbose)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			res, err := run.NewRunner(cfg, run.WithLogger(logger)).Execute(cmd.Context())
			if err != nil {
				return fmt.Errorf("run failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run id: %s\n", res.RunID)
			fmt.Fprintf(out, "generated: %d\n", res.Generated)
			fmt.Fprintf(out, "survivors: %d\n", res.Survivors)
			if res.Empty {
				fmt.Fprintln(out, "no candidate passed the 5-7-5 filter, try:")
				for _, g := range run.Guidance {
					fmt.Fprintf(out, "  - %s\n", g)
				}
				return nil
			}
			fmt.Fprintf(out, "kept: %d\n", len(res.Ranked))
			fmt.Fprintf(out, "results: %s\n", filepath.Join(res.OutDir, report.ResultsMD))
			if cfg.Output.Show {
				rendered, err := report.Render(res.Markdown, 0)
				if err != nil {
					return err
				}
				fmt.Fprint(out, rendered)
			}
			return nil
		},
	}

	f := cmd.Flags()
	fc := &rf.cfg
	f.StringVar(&rf.configPath, "config", "", "YAML config file")
	f.StringVar(&fc.Originals, "originals", fc.Originals, "Originals file, one senryu per line")
	f.StringVar(&fc.Output.Dir, "out", fc.Output.Dir, "Output directory")
	f.StringVar(&fc.LLM.Provider, "provider", fc.LLM.Provider, "LLM backend: ollama, openai or copilot")
	f.StringVar(&fc.LLM.Model, "model", "", "Model name (backend default when empty)")
	f.StringVar(&fc.LLM.BaseURL, "base-url", "", "Backend server URL")
	f.Float64Var(&fc.LLM.Temperature, "temperature", fc.LLM.Temperature, "Sampling temperature")
	f.IntVar(&fc.Generation.N, "n-generate", fc.Generation.N, "Number of candidates to generate")
	f.IntVar(&fc.Generation.BatchSize, "batch-size", fc.Generation.BatchSize, "Candidates requested per model call")
	f.IntVar(&fc.Scoring.Keep, "n-keep", fc.Scoring.Keep, "Number of ranked candidates to keep")
	f.StringVar(&fc.Reading.Dict, "dict", fc.Reading.Dict, "Reading dictionary: ipa or uni")
	f.BoolVar(&fc.Reading.Enabled, "reading", fc.Reading.Enabled, "Use morphological readings for mora counting")
	f.BoolVar(&rf.judge, "judge", true, "Score survivors with the LLM judge")
	f.BoolVar(&rf.noJudge, "no-judge", false, "Disable the LLM judge")
	f.BoolVar(&fc.Output.Show, "show", false, "Render the results in the terminal")
	f.BoolVarP(&fc.Verbose, "verbose", "v", false, "Enable debug logs")
	cmd.MarkFlagsMutuallyExclusive("judge", "no-judge")
	return cmd
}

// resolve layers defaults, the config file, the environment and the flags
// set on cmd. The provider is settled first so that backend specific
// environment variables follow the provider actually used.
func (rf *runFlags) resolve(cmd *cobra.Command, getenv func(string) string) (run.Config, error) {
	cfg := run.DefaultConfig()
	if rf.configPath != "" {
		if err := cfg.LoadFile(rf.configPath); err != nil {
			return cfg, err
		}
	}
	provider := ""
	if cmd.Flags().Changed("provider") {
		provider = rf.cfg.LLM.Provider
	}
	if err := cfg.ApplyEnvFor(getenv, provider); err != nil {
		return cfg, fmt.Errorf("invalid environment: %w", err)
	}
	applyFlags(cmd, &cfg, rf.cfg)
	if cmd.Flags().Changed("judge") {
		cfg.Scoring.Judge = rf.judge
	}
	if rf.noJudge {
		cfg.Scoring.Judge = false
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyFlags copies the explicitly set flags from src onto cfg, so flags win
// over the config file and the environment.
func applyFlags(cmd *cobra.Command, cfg *run.Config, src run.Config) {
	set := cmd.Flags().Changed
	if set("originals") {
		cfg.Originals = src.Originals
	}
	if set("out") {
		cfg.Output.Dir = src.Output.Dir
	}
	if set("provider") {
		cfg.LLM.Provider = src.LLM.Provider
	}
	if set("model") {
		cfg.LLM.Model = src.LLM.Model
	}
	if set("base-url") {
		cfg.LLM.BaseURL = src.LLM.BaseURL
	}
	if set("temperature") {
		cfg.LLM.Temperature = src.LLM.Temperature
	}
	if set("n-generate") {
		cfg.Generation.N = src.Generation.N
	}
	if set("batch-size") {
		cfg.Generation.BatchSize = src.Generation.BatchSize
	}
	if set("n-keep") {
		cfg.Scoring.Keep = src.Scoring.Keep
	}
	if set("dict") {
		cfg.Reading.Dict = src.Reading.Dict
	}
	if set("reading") {
		cfg.Reading.Enabled = src.Reading.Enabled
	}
	if set("show") {
		cfg.Output.Show = src.Output.Show
	}
	if set("verbose") {
		cfg.Verbose = src.Verbose
	}
}

func newMoraCommand() *cobra.Command {
	var (
		dict      string
		noReading bool
	)
	cmd := &cobra.Command{
		Use:   "mora PHRASE...",
		Short: "Print the mora count of each phrase and whether they form 5-7-5",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []mora.Option
			if !noReading {
				p, err := reading.New(dict)
				if err != nil {
					return err
				}
				opts = append(opts, mora.WithPhonetizer(p))
			}
			counter := mora.NewCounter(opts...)
			if len(args) == 1 {
				if parts := strings.Fields(strings.ReplaceAll(args[0], "　", " ")); len(parts) > 1 {
					args = parts
				}
			}
			out := cmd.OutOrStdout()
			for i, n := range counter.Pattern(args) {
				fmt.Fprintf(out, "%s\t%d\n", args[i], n)
			}
			fmt.Fprintf(out, "5-7-5: %t\n", counter.IsFiveSevenFive(args))
			return nil
		},
	}
	cmd.Flags().StringVar(&dict, "dict", reading.DictIPA, "Reading dictionary: ipa or uni")
	cmd.Flags().BoolVar(&noReading, "no-reading", false, "Count only the kana present in the text")
	return cmd
}

func newExtractCommand() *cobra.Command {
	var (
		expected int
		attempts int
	)
	cmd := &cobra.Command{
		Use:   "extract [FILE]",
		Short: "Recover candidates from a raw model reply read from FILE or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 && args[0] != "-" {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			r := recovery.New(recovery.WithMaxAttempts(attempts))
			cands, rep, err := r.ExtractArray(string(data), expected)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Candidates any             `json:"candidates"`
				Report     recovery.Report `json:"report"`
			}{cands, rep})
		},
	}
	cmd.Flags().IntVar(&expected, "expected", 0, "Number of candidates requested from the model")
	cmd.Flags().IntVar(&attempts, "attempts", recovery.MaxAttempts, "Maximum parse attempts")
	return cmd
}
