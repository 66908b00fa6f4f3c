package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Input describes where exported pages come from.
type Input struct {
	// URL, if provided, is fetched via HTTP GET.
	URL string

	// Stdin is used when URL is empty. If nil, stdin reads as empty.
	Stdin io.Reader
}

// Loader fetches or reads page exports.
type Loader struct {
	client  *http.Client
	timeout time.Duration
}

// NewLoader creates a Loader. If client is nil, http.DefaultClient is used.
// A zero timeout leaves the client's own policy in place.
func NewLoader(client *http.Client, timeout time.Duration) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{client: client, timeout: timeout}
}

// Load returns the pages of input: a single page object or an array.
//
// On non-2xx HTTP responses, Load returns an error that includes the status
// code and up to 4KB of the response body.
func (l *Loader) Load(ctx context.Context, input Input) ([]*Page, error) {
	b, err := l.read(ctx, input)
	if err != nil {
		return nil, err
	}
	return DecodePages(b)
}

func (l *Loader) read(ctx context.Context, input Input) ([]byte, error) {
	if strings.TrimSpace(input.URL) == "" {
		if input.Stdin == nil {
			return nil, nil
		}
		b, err := io.ReadAll(input.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pagetransform/1.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}

// DecodePages decodes one page object or an array of pages. Empty input
// yields no pages.
func DecodePages(b []byte) ([]*Page, error) {
	t := bytes.TrimSpace(b)
	if len(t) == 0 {
		return nil, nil
	}
	if t[0] == '[' {
		var pages []*Page
		if err := json.Unmarshal(t, &pages); err != nil {
			return nil, fmt.Errorf("decode pages: %w", err)
		}
		out := pages[:0]
		for _, p := range pages {
			if p != nil {
				out = append(out, p)
			}
		}
		return out, nil
	}
	var p Page
	if err := json.Unmarshal(t, &p); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return []*Page{&p}, nil
}
