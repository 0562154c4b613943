package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xhad/paperchat/pkg/llm"
)

var (
	queryTopK   int
	queryAnswer bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Find the stored chunks most similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryAnswer, "answer", false, "generate an answer from the results")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	emb, err := newEmbedder(cfg, logger)
	if err != nil {
		return err
	}
	st, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	retriever, err := newRetriever(emb, st, cfg, logger)
	if err != nil {
		return err
	}

	results, err := retriever.Retrieve(ctx, query, queryTopK)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	out := cmd.OutOrStdout()
	printResults(out, results)

	if !queryAnswer {
		return nil
	}
	engine, err := newChatEngine(cfg, logger)
	if err != nil {
		return err
	}
	answer, err := engine.GenerateResponse(ctx, query, results)
	fmt.Fprintf(out, "Answer: %s\n", answer)
	if err != nil {
		return err
	}
	if sources := llm.FormatSources(results); sources != "" {
		fmt.Fprintln(out, sources)
	}
	return nil
}
