package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xhad/paperchat/pkg/llm"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about the indexed documents interactively",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

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

	// Interactive chat loop with colored output
	color.Cyan("\nChat with your papers (type 'exit' to quit)")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if strings.ToLower(query) == "exit" {
			break
		}
		if query == "" {
			continue
		}

		querySpinner := getSpinner("🔍 Searching papers...")
		results, err := retriever.Retrieve(ctx, query, 0)
		querySpinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error querying documents: %v\n", err)
			continue
		}

		if cfg.UI.Streaming {
			stream, err := chatEngine.ChatStream(ctx, query, results)
			if err != nil {
				color.Red("Error: %v\n", err)
				continue
			}

			fmt.Print("\n")
			assistantPrompt("Assistant: ")
			for chunk := range stream {
				assistantPrompt("%s", chunk)
			}
			fmt.Print("\n")
		} else {
			responseSpinner := getSpinner("🤖 Generating response...")
			response, err := chatEngine.GenerateResponse(ctx, query, results)
			responseSpinner.Finish()
			fmt.Print("\r")

			if err != nil {
				color.Red("Error: %v\n", err)
				continue
			}
			assistantPrompt("Assistant: %s\n", response)
		}

		if sources := llm.FormatSources(results); sources != "" {
			color.White(sources)
		}
	}

	return scanner.Err()
}
