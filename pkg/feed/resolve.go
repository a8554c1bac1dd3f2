package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// resolveBodyLimit caps how much of a channel page is read while looking
// for the channel id.
const resolveBodyLimit = 4 << 20

var (
	channelIDPattern = regexp.MustCompile(`^UC[\w-]{22}$`)
	channelURLRe     = regexp.MustCompile(`youtube\.com/channel/(UC[\w-]{22})`)
	metaChannelRe    = regexp.MustCompile(`<meta\s+itemprop="channelId"\s+content="(UC[\w-]{22})"`)
	jsonChannelRe    = regexp.MustCompile(`"channelId":"(UC[\w-]{22})"`)
	canonicalRe      = regexp.MustCompile(`/channel/(UC[\w-]{22})`)
	authorRe         = regexp.MustCompile(`"author":"([^"]+)"`)
)

// Resolution is the result of resolving an operator-supplied channel
// reference to a canonical channel id.
type Resolution struct {
	ChannelID string
	Name      string
}

// Resolver turns YouTube URLs, handles and custom names into canonical
// UC channel ids by scanning the channel page.
type Resolver struct {
	httpClient *http.Client
}

// NewResolver creates a channel resolver with the given HTTP timeout.
func NewResolver(timeout time.Duration) *Resolver {
	return &Resolver{httpClient: &http.Client{Timeout: timeout}}
}

// Resolve accepts a bare UC id, a /channel/ URL, an @handle, a /watch URL
// or a /c//user custom URL and returns the canonical channel id. Forms
// without the id embedded require fetching the page.
func (r *Resolver) Resolve(ctx context.Context, urlOrID string) (*Resolution, error) {
	s := strings.TrimSpace(urlOrID)
	if channelIDPattern.MatchString(s) {
		return &Resolution{ChannelID: s}, nil
	}
	if m := channelURLRe.FindStringSubmatch(s); m != nil {
		return &Resolution{ChannelID: m[1]}, nil
	}
	return r.resolveFromPage(ctx, normalizeChannelURL(s))
}

func normalizeChannelURL(s string) string {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	return "https://www.youtube.com/" + strings.TrimPrefix(s, "/")
}

func (r *Resolver) resolveFromPage(ctx context.Context, url string) (*Resolution, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid channel URL %q: %w", url, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("channel page returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, resolveBodyLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to read channel page: %w", err)
	}
	html := string(body)

	for _, re := range []*regexp.Regexp{metaChannelRe, jsonChannelRe, canonicalRe} {
		if m := re.FindStringSubmatch(html); m != nil {
			res := &Resolution{ChannelID: m[1]}
			if name := authorRe.FindStringSubmatch(html); name != nil {
				res.Name = name[1]
			}
			return res, nil
		}
	}
	return nil, fmt.Errorf("could not find a channel id in %s", url)
}
