package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xhad/paperchat/internal/models"
	"github.com/xhad/paperchat/pkg/errs"
	"github.com/xhad/paperchat/pkg/logging"
)

type WebConfig struct {
	BaseURL        string
	MaxDepth       int
	RateLimit      float64 // requests per second
	IgnorePatterns []string
	Timeout        time.Duration
	MaxFileSize    int64
	OnProgress     func(url string)
	Logger         *zap.Logger
}

// WebFeed crawls same-host HTML pages from a base URL and downloads every
// linked PDF.
type WebFeed struct {
	config   WebConfig
	client   *http.Client
	limiter  *rate.Limiter
	baseHost string
	logger   *zap.Logger
}

type crawl struct {
	visited map[string]bool
	seen    map[string]bool
	docs    []models.Document
	limit   int
}

func (c *crawl) full() bool {
	return c.limit > 0 && len(c.docs) >= c.limit
}

func NewWeb(config WebConfig) (*WebFeed, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxDepth == 0 {
		config.MaxDepth = 3
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.MaxFileSize == 0 {
		config.MaxFileSize = 64 << 20
	}

	parsedURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, errs.Configuration(fmt.Errorf("invalid base url: %w", err))
	}
	if parsedURL.Host == "" {
		return nil, errs.Configuration(fmt.Errorf("base url %q has no host", config.BaseURL))
	}

	return &WebFeed{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		baseHost: parsedURL.Host,
		logger:   logging.OrNop(config.Logger),
	}, nil
}

func (f *WebFeed) shouldCrawl(u *url.URL) bool {
	if u.Host != f.baseHost {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	for _, pattern := range f.config.IgnorePatterns {
		if strings.Contains(u.String(), pattern) {
			return false
		}
	}
	return true
}

func (f *WebFeed) Fetch(ctx context.Context, limit int) ([]models.Document, error) {
	c := &crawl{
		visited: make(map[string]bool),
		seen:    make(map[string]bool),
		limit:   limit,
	}
	if err := f.crawlPage(ctx, f.config.BaseURL, 0, c); err != nil {
		return nil, err
	}
	return c.docs, nil
}

func (f *WebFeed) get(ctx context.Context, urlStr string) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr)
	}
	return resp, nil
}

func (f *WebFeed) crawlPage(ctx context.Context, urlStr string, depth int, c *crawl) error {
	if depth > f.config.MaxDepth || c.visited[urlStr] || c.full() {
		return nil
	}
	c.visited[urlStr] = true
	if f.config.OnProgress != nil {
		f.config.OnProgress(urlStr)
	}

	resp, err := f.get(ctx, urlStr)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}

	var pages []string
	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, _ := selection.Attr("href")
		link, err := resolve(urlStr, href)
		if err != nil {
			f.logger.Debug("skipping link", zap.String("href", href), zap.Error(err))
			return
		}
		if isPDF(link.Path) {
			if !c.seen[link.String()] {
				c.seen[link.String()] = true
				f.downloadInto(ctx, link, c)
			}
			return
		}
		if f.shouldCrawl(link) {
			pages = append(pages, link.String())
		}
	})

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f.crawlPage(ctx, page, depth+1, c); err != nil {
			f.logger.Warn("error crawling page", zap.String("url", page), zap.Error(err))
		}
	}
	return nil
}

func (f *WebFeed) downloadInto(ctx context.Context, link *url.URL, c *crawl) {
	if c.full() {
		return
	}
	content, err := f.download(ctx, link.String())
	if err != nil {
		f.logger.Warn("failed to download pdf", zap.String("url", link.String()), zap.Error(err))
		return
	}
	c.docs = append(c.docs, models.Document{
		ID:       link.String(),
		FileName: path.Base(link.Path),
		Content:  content,
	})
}

func (f *WebFeed) download(ctx context.Context, urlStr string) ([]byte, error) {
	resp, err := f.get(ctx, urlStr)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > f.config.MaxFileSize {
		return nil, fmt.Errorf("file exceeds %d bytes", f.config.MaxFileSize)
	}
	return content, nil
}

func (f *WebFeed) Close() {}

func resolve(base, href string) (*url.URL, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return nil, err
	}
	u := ref
	if !ref.IsAbs() {
		b, err := url.Parse(base)
		if err != nil {
			return nil, err
		}
		u = b.ResolveReference(ref)
	}
	u.Fragment = ""
	return u, nil
}
