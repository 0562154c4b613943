package main

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xhad/paperchat/pkg/pipeline"
)

var indexAll bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Extract, embed and store source PDFs",
	Long: `Reads PDFs from the configured source, splits their text into chunks,
embeds each chunk and stores it in the index. By default only the first
document is processed; --all processes every document.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexAll, "all", false, "process every document in the source")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var pages int32
	feed, err := newSource(ctx, cfg, logger, func(string) { atomic.AddInt32(&pages, 1) })
	if err != nil {
		return err
	}
	defer feed.Close()

	emb, err := newEmbedder(cfg, logger)
	if err != nil {
		return err
	}
	st, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	orch, err := newOrchestrator(feed, emb, st, cfg, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !indexAll {
		spinner := getSpinner("📄 Processing first document...")
		outcome := orch.ProcessFirst(ctx)
		spinner.Finish()
		fmt.Fprintln(out)
		printOutcome(out, outcome)
		fmt.Fprintln(out, outcome.Message())
		return nil
	}

	color.Blue("\nStarting indexing run from %s source\n", cfg.Source.Kind)
	bar := getProgressBar(-1, "🔄 Indexing documents...")
	var outcomes []pipeline.Outcome
	report := orch.WithProgress(func(o pipeline.Outcome) {
		outcomes = append(outcomes, o)
		bar.Add(1)
	}).ProcessAll(ctx)
	bar.Finish()
	fmt.Fprintln(out)

	for _, o := range outcomes {
		printOutcome(out, o)
	}
	if report.Err != nil {
		color.Red("Error reading source: %v\n", report.Err)
	}
	fmt.Fprintf(out, "\n%s\n", report.Message())
	fmt.Fprintf(out, "run %s: %d succeeded, %d skipped, %d failed in %s\n",
		report.RunID, report.Succeeded(), report.Skipped(), report.Failed(), report.Duration().Round(time.Millisecond))
	if cfg.Source.Kind == "web" {
		fmt.Fprintf(out, "crawled %d pages\n", atomic.LoadInt32(&pages))
	}
	return nil
}
