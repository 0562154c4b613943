package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/xhad/paperchat/internal/models"
	"github.com/xhad/paperchat/pkg/pipeline"
)

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func printResults(w io.Writer, results []models.QueryResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}
	for i, r := range results {
		fmt.Fprintf(w, "  [%d] %s (%.4f)\n", i+1, r.Description, r.Score)
		fmt.Fprintf(w, "      %s\n\n", snippet(r.Context, 200))
	}
}

func printOutcome(w io.Writer, out pipeline.Outcome) {
	name := out.FileName
	if name == "" {
		name = out.DocumentID
	}
	switch out.State {
	case pipeline.StateDone:
		line := fmt.Sprintf("✓ %s: %d chunks inserted", name, out.Inserted)
		if out.FailedInserts > 0 {
			line += fmt.Sprintf(", %d failed", out.FailedInserts)
		}
		fmt.Fprintln(w, color.GreenString(line))
	case pipeline.StateSkipped:
		fmt.Fprintln(w, color.YellowString("- %s: %s", name, out.Message()))
	case pipeline.StateFailed:
		fmt.Fprintln(w, color.RedString("✗ %s: %s", name, out.Message()))
	default:
		fmt.Fprintln(w, out.Message())
	}
}

func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
