package metadata

import (
	"context"
	"log/slog"
	"strings"
)

// Crawler walks the metadata tree rooted at a base URI and accumulates raw
// URI→content pairs. A Crawler is single-use: one crawl owns the raw table
// exclusively and hands it off to normalization afterwards.
type Crawler struct {
	client  *Client
	baseURI string
	logger  *slog.Logger
	raw     map[string]string
}

// NewCrawler creates a Crawler for one crawl of the tree under baseURI.
func NewCrawler(client *Client, baseURI string, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		client:  client,
		baseURI: baseURI,
		logger:  logger,
		raw:     make(map[string]string),
	}
}

// Crawl fetches the complete tree and returns the raw table. Per-node fetch
// failures are absorbed: the corresponding key is simply absent. An
// unreachable endpoint yields an empty table, never an error. Only context
// cancellation stops the walk early.
func (c *Crawler) Crawl(ctx context.Context) map[string]string {
	c.fetch(ctx, c.baseURI, true)
	return c.raw
}

// fetch retrieves uri as a newline-delimited listing and records every leaf
// child. Children ending in "/" denote sub-trees and are recursed into when
// recurse is true. A child URI already present in the raw table is never
// fetched again, which also protects against cyclic listings.
func (c *Crawler) fetch(ctx context.Context, uri string, recurse bool) {
	if ctx.Err() != nil {
		return
	}
	listing, ok := c.client.Get(ctx, uri)
	if !ok {
		c.logger.Debug("metadata: node unavailable", slog.String("uri", uri))
		return
	}
	for _, field := range strings.Split(listing, "\n") {
		if field == "" {
			continue
		}
		if strings.HasSuffix(field, "/") && recurse {
			c.fetch(ctx, joinURI(uri, field), true)
		}
		child := joinURI(uri, field)
		if strings.HasSuffix(child, "/") {
			continue
		}
		if _, seen := c.raw[child]; seen {
			continue
		}
		content, ok := c.client.Get(ctx, child)
		if !ok {
			continue
		}
		if field == "security-groups" {
			// Group membership is a set; flatten to a scalar so the
			// fact value stays single-line.
			content = strings.Join(strings.Split(content, "\n"), ",")
		}
		c.raw[child] = content
	}
}

// joinURI concatenates parent and child with exactly one separator.
func joinURI(parent, child string) string {
	if strings.HasSuffix(parent, "/") {
		return parent + child
	}
	return parent + "/" + child
}
