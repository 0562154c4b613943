// Package extractor turns raw PDF bytes into plain text.
//
// The PDF parser works on files, so every call writes the document to its
// own temporary file and removes it before returning, whatever the outcome.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/xhad/paperchat/pkg/errs"
	"github.com/xhad/paperchat/pkg/logging"
)

var (
	ErrEmptyContent    = errors.New("empty pdf content")
	ErrNoPages         = errors.New("pdf has no pages")
	ErrNoReadablePages = errors.New("no readable pages in pdf")
)

type ExtractorConfig struct {
	// ScratchDir holds the temporary copies of documents being parsed.
	// Empty means os.TempDir().
	ScratchDir string
	Logger     *zap.Logger
}

type PDFExtractor struct {
	config ExtractorConfig
	logger *zap.Logger
}

func NewWithConfig(config ExtractorConfig) *PDFExtractor {
	return &PDFExtractor{
		config: config,
		logger: logging.OrNop(config.Logger),
	}
}

func New() *PDFExtractor {
	return NewWithConfig(ExtractorConfig{})
}

// Extract returns the text of every readable page, in page order.
func (e *PDFExtractor) Extract(ctx context.Context, content []byte) (text string, err error) {
	if len(content) == 0 {
		return "", errs.Extraction(ErrEmptyContent)
	}

	e.logger.Info("starting pdf text extraction", zap.Int("bytes", len(content)))

	scratch, err := os.CreateTemp(e.config.ScratchDir, "paperchat-*.pdf")
	if err != nil {
		return "", errs.Extraction(fmt.Errorf("failed to create scratch file: %w", err))
	}
	path := scratch.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			e.logger.Warn("failed to remove scratch file", zap.String("path", path), zap.Error(rmErr))
		}
	}()

	if _, err := scratch.Write(content); err != nil {
		scratch.Close()
		return "", errs.Extraction(fmt.Errorf("failed to write scratch file: %w", err))
	}
	if err := scratch.Close(); err != nil {
		return "", errs.Extraction(fmt.Errorf("failed to close scratch file: %w", err))
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = errs.Extraction(fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	text, err = e.readPages(ctx, path)
	if err != nil {
		return "", err
	}

	e.logger.Info("text extraction complete", zap.Int("chars", len(text)))
	return text, nil
}

func (e *PDFExtractor) readPages(ctx context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", errs.Extraction(fmt.Errorf("failed to open pdf: %w", err))
	}
	defer f.Close()

	total := r.NumPage()
	if total == 0 {
		return "", errs.Extraction(ErrNoPages)
	}

	var buf bytes.Buffer
	readable := 0
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("skipping unreadable page", zap.Int("page", i), zap.Error(err))
			continue
		}
		readable++
		buf.WriteString(pageText)
	}

	if readable == 0 {
		return "", errs.Extraction(ErrNoReadablePages)
	}

	return buf.String(), nil
}
