package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgPkg "github.com/xhad/paperchat/pkg/config"
	"github.com/xhad/paperchat/pkg/logging"
)

var (
	configPath string
	logLevel   string

	cfg    *cfgPkg.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "paperchat",
	Short: "Index PDFs into a vector store and ask questions about them",
	Long: `paperchat extracts text from PDF documents, stores chunk embeddings in
PostgreSQL (pgvector) or SQLite, and answers questions from the most
similar chunks.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if err := c.Check(); err != nil {
		return err
	}

	l, err := logging.New(logging.LogConfig{
		Level:   c.Log.Level,
		File:    c.Log.File,
		Console: c.Log.Console,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, logger = c, l
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
