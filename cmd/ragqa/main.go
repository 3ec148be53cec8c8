package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ragqa/internal/app"
	"ragqa/internal/config"
	"ragqa/internal/tui"
)

type options struct {
	configPath string
	corpus     string
	corpusDir  string
	indexDir   string
	format     string
	topK       int
	rebuild    bool
	trust      bool
	output     string
	verbose    bool
	plain      bool
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ragqa:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:   "ragqa [question]",
		Short: "Answer one question about a text corpus using retrieval-augmented generation",
		Long: "ragqa indexes <corpus>.txt (reusing a saved snapshot when it is current), " +
			"reads one question from the arguments or stdin and prints the answer.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, opts, args)
		},
	}

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Build or refresh the index snapshot without asking a question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file path (default ./config.yaml or ~/.config/ragqa/config.yaml)")
	pf.StringVar(&opts.corpus, "corpus", "", "Corpus name, read from <corpus-dir>/<name>.txt")
	pf.StringVar(&opts.corpusDir, "corpus-dir", "", "Directory holding the corpus file")
	pf.StringVar(&opts.indexDir, "index-dir", "", "Directory for index snapshots")
	pf.StringVar(&opts.format, "format", "", "Snapshot format: gob or sqlite")
	pf.IntVar(&opts.topK, "top-k", 0, "Number of chunks passed to the model")
	pf.BoolVar(&opts.rebuild, "rebuild", false, "Ignore any existing snapshot and rebuild the index")
	pf.BoolVar(&opts.trust, "trust-snapshot", false, "Load an existing snapshot without checking the corpus")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")
	root.Flags().StringVarP(&opts.output, "output", "o", "text", "Answer output: text or json")
	root.Flags().BoolVar(&opts.plain, "plain", false, "Read the question as a plain line even on a terminal")

	root.AddCommand(indexCmd)
	return root
}

func setup(opts options) (*app.App, *config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if opts.configPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(opts.configPath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if opts.corpus != "" {
		cfg.Corpus.Name = opts.corpus
	}
	if opts.corpusDir != "" {
		cfg.Corpus.Dir = opts.corpusDir
	}
	if opts.indexDir != "" {
		cfg.Index.Dir = opts.indexDir
	}
	if opts.format != "" {
		cfg.Index.Format = opts.format
	}
	if opts.topK > 0 {
		cfg.Retrieval.TopK = opts.topK
	}
	if opts.trust {
		cfg.Index.TrustSnapshot = true
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	cfg.ResolveSecrets()

	logger := app.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, cfg, nil
}

func runIndex(cmd *cobra.Command, opts options) error {
	a, _, err := setup(opts)
	if err != nil {
		return err
	}
	res, err := a.Index(cmd.Context(), opts.rebuild)
	if err != nil {
		return err
	}
	if res.SaveErr != nil {
		return res.SaveErr
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d chunks (%s), embedder %s\n",
		res.Manifest.Corpus, res.Storage.Len(), res.Source, res.Manifest.Embedder)
	return nil
}

func runAsk(cmd *cobra.Command, opts options, args []string) error {
	switch opts.output {
	case "text", "json":
	default:
		return fmt.Errorf("unknown output %q: want text or json", opts.output)
	}
	a, cfg, err := setup(opts)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	res, err := a.Index(ctx, opts.rebuild)
	if err != nil {
		return err
	}
	if res.SaveErr != nil {
		fmt.Fprintln(os.Stderr, "warning:", res.SaveErr)
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		if opts.plain || !tui.IsTerminal(os.Stdin) {
			question, err = tui.ReadLine(cmd.InOrStdin())
		} else {
			question, err = tui.Prompt("Ask "+cfg.Corpus.Name, os.Stdin, os.Stderr)
		}
		if err != nil {
			return err
		}
	}

	ans, err := a.Ask(ctx, question)
	if err != nil {
		return err
	}
	if opts.output == "json" {
		return tui.RenderJSON(cmd.OutOrStdout(), ans)
	}
	return tui.RenderAnswer(cmd.OutOrStdout(), ans)
}
