package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xhad/paperchat/pkg/pipeline"
	"github.com/xhad/paperchat/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve queries and index runs over a websocket",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
	chatEngine, err := newChatEngine(cfg, logger)
	if err != nil {
		return err
	}

	index := func(ctx context.Context, onProgress func(pipeline.Outcome)) *pipeline.BatchReport {
		feed, err := newSource(ctx, cfg, logger, nil)
		if err != nil {
			now := time.Now()
			return &pipeline.BatchReport{Started: now, Finished: now, Err: err}
		}
		defer feed.Close()

		orch, err := newOrchestrator(feed, emb, st, cfg, logger)
		if err != nil {
			now := time.Now()
			return &pipeline.BatchReport{Started: now, Finished: now, Err: err}
		}
		return orch.WithProgress(onProgress).ProcessAll(ctx)
	}

	srv, err := server.NewWSServer(server.Config{
		Retriever: retriever,
		Responder: chatEngine,
		Index:     index,
		Streaming: cfg.UI.Streaming,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	return srv.ListenAndServe(ctx, addr)
}
