package taxonomy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// LegacyClient talks to the legacy term discovery service over HTTP.
//
//	GET {base}/termsets/{termSetID}?group={groupID}
//	GET {base}/termsets/{termSetID}/terms/{termID}/children?group={groupID}&path={path}
//
// Both return a JSON array of LegacyTerm. Requests carry no timeout of
// their own; the client's transport defaults apply.
type LegacyClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewLegacyClient(baseURL string, client *http.Client) *LegacyClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &LegacyClient{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: client}
}

func (c *LegacyClient) FindTermSet(ctx context.Context, groupID, termSetID string) ([]LegacyTerm, error) {
	q := url.Values{"group": {groupID}}
	return c.get(ctx, "/termsets/"+url.PathEscape(termSetID), q)
}

func (c *LegacyClient) FindChildTerms(ctx context.Context, groupID, termSetID, termID, path string) ([]LegacyTerm, error) {
	q := url.Values{"group": {groupID}, "path": {path}}
	return c.get(ctx, "/termsets/"+url.PathEscape(termSetID)+"/terms/"+url.PathEscape(termID)+"/children", q)
}

func (c *LegacyClient) get(ctx context.Context, p string, q url.Values) ([]LegacyTerm, error) {
	u := c.BaseURL + p + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pagetransform/1.0")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var terms []LegacyTerm
	if err := json.NewDecoder(resp.Body).Decode(&terms); err != nil {
		return nil, fmt.Errorf("decode terms: %w", err)
	}
	return terms, nil
}

var _ LegacyTermService = (*LegacyClient)(nil)
