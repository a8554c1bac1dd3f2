// Package feed ingests new uploads from YouTube channel RSS feeds.
//
// Polling is forward-only: each channel carries a baseline (the newest
// entry seen so far) and only entries published after it are processed.
// The baseline is seeded on the first poll without processing anything,
// so subscribing to a channel never backfills its history by accident.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Service bundles the poller and the resolver into the single ingestion
// surface the HTTP API consumes.
type Service struct {
	*Poller
	*Resolver
}

// Entry is one feed item, newest-first in the slices returned by Fetcher.
type Entry struct {
	VideoID     string
	Title       string
	PublishedAt *time.Time
}

// Fetcher reads a channel feed and returns its entries newest-first.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]Entry, error)
}

// FeedURL returns the RSS feed for a YouTube channel id.
func FeedURL(channelID string) string {
	return "https://www.youtube.com/feeds/videos.xml?channel_id=" + channelID
}

// GofeedFetcher parses YouTube RSS feeds with gofeed.
type GofeedFetcher struct {
	parser *gofeed.Parser
}

// NewGofeedFetcher creates a feed fetcher with the given HTTP timeout.
func NewGofeedFetcher(timeout time.Duration) *GofeedFetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = "autoclipper/1.0"
	parser.Client = &http.Client{Timeout: timeout}
	return &GofeedFetcher{parser: parser}
}

// Fetch downloads and parses the feed. Entries without a resolvable video
// id are dropped.
func (f *GofeedFetcher) Fetch(ctx context.Context, feedURL string) ([]Entry, error) {
	parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", feedURL, err)
	}
	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		id := itemVideoID(item)
		if id == "" {
			continue
		}
		entries = append(entries, Entry{
			VideoID:     id,
			Title:       item.Title,
			PublishedAt: item.PublishedParsed,
		})
	}
	return entries, nil
}

// itemVideoID pulls the video id from the yt:videoId extension, falling
// back to the "yt:video:<id>" GUID format.
func itemVideoID(item *gofeed.Item) string {
	if ext, ok := item.Extensions["yt"]; ok {
		if vals, ok := ext["videoId"]; ok && len(vals) > 0 {
			return vals[0].Value
		}
	}
	if id, ok := strings.CutPrefix(item.GUID, "yt:video:"); ok {
		return id
	}
	return ""
}

var (
	videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	watchPattern   = regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{11})`)
	shortPattern   = regexp.MustCompile(`(?:youtu\.be/|/shorts/|/live/|/embed/)([A-Za-z0-9_-]{11})`)
)

// ExtractVideoID resolves an operator-submitted URL or bare id to the
// 11-character YouTube video id.
func ExtractVideoID(urlOrID string) (string, error) {
	s := strings.TrimSpace(urlOrID)
	if videoIDPattern.MatchString(s) {
		return s, nil
	}
	if m := watchPattern.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}
	if m := shortPattern.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("could not extract a video id from %q", urlOrID)
}
