package fetch

import (
	"context"
	"log/slog"
	"time"
)

// Pipeline composes the fetcher and converter: url in, Markdown out.
type Pipeline struct {
	fetcher   *Fetcher
	converter *Converter
	logger    *slog.Logger
}

// NewPipeline constructs a pipeline with the given fetch timeout.
func NewPipeline(timeout time.Duration, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher:   NewFetcher(timeout, logger),
		converter: NewConverter(),
		logger:    logger,
	}
}

// FetchMarkdown downloads the page at url and renders it to Markdown.
func (p *Pipeline) FetchMarkdown(ctx context.Context, url string) (string, error) {
	htmlContent, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	markdown, err := p.converter.Convert(htmlContent)
	if err != nil {
		return "", err
	}
	p.logger.Info("converted html to markdown", "url", url, "chars", len(markdown))
	return markdown, nil
}
