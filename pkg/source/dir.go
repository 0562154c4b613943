package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/xhad/paperchat/internal/models"
	"github.com/xhad/paperchat/pkg/errs"
	"github.com/xhad/paperchat/pkg/logging"
)

const DefaultPattern = "**/*.pdf"

type DirConfig struct {
	Root    string
	Pattern string
	Logger  *zap.Logger
}

// DirFeed reads PDFs from a local directory tree.
type DirFeed struct {
	root    string
	fsys    fs.FS
	pattern string
	logger  *zap.Logger
}

func NewDir(config DirConfig) (*DirFeed, error) {
	if config.Root == "" {
		return nil, errs.Configuration(fmt.Errorf("source directory is required"))
	}
	if config.Pattern == "" {
		config.Pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(config.Pattern) {
		return nil, errs.Configuration(fmt.Errorf("invalid glob pattern %q", config.Pattern))
	}
	info, err := os.Stat(config.Root)
	if err != nil {
		return nil, errs.Configuration(fmt.Errorf("source directory: %w", err))
	}
	if !info.IsDir() {
		return nil, errs.Configuration(fmt.Errorf("source directory %s is not a directory", config.Root))
	}

	return &DirFeed{
		root:    config.Root,
		fsys:    os.DirFS(config.Root),
		pattern: config.Pattern,
		logger:  logging.OrNop(config.Logger),
	}, nil
}

func (f *DirFeed) Fetch(ctx context.Context, limit int) ([]models.Document, error) {
	matches, err := doublestar.Glob(f.fsys, f.pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob %s: %w", f.pattern, err)
	}
	sort.Strings(matches)

	var docs []models.Document
	for _, match := range matches {
		if limit > 0 && len(docs) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if info, err := fs.Stat(f.fsys, match); err != nil || info.IsDir() {
			continue
		}
		content, err := fs.ReadFile(f.fsys, match)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", match, err)
		}
		docs = append(docs, models.Document{
			ID:       match,
			FileName: path.Base(match),
			Content:  content,
		})
	}

	f.logger.Info("fetched files", zap.String("root", f.root), zap.Int("count", len(docs)))
	return docs, nil
}

func (f *DirFeed) Close() {}
