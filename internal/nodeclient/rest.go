package nodeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
)

// RestClient supplements Client with the read-only REST surface
// (`rest.kaspa_rest_base_url`) that exposes the one field the node's
// JSON-RPC does not: the fee actually paid by a confirmed transaction.
// The indexer only checks this value against an opcode's minimum
// (spec §4.4); it never originates or signs anything over this surface.
type RestClient struct {
	httpClient *retryablehttp.Client
	baseURL    string
}

// NewRestClient builds a RestClient against baseURL (no trailing slash
// required).
func NewRestClient(baseURL string) *RestClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 1 * time.Second
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil

	return &RestClient{httpClient: rc, baseURL: strings.TrimRight(baseURL, "/")}
}

// TransactionFee fetches the fee (in sompi) paid by txID.
func (r *RestClient) TransactionFee(ctx context.Context, txID string) (uint64, error) {
	url := fmt.Sprintf("%s/transactions/%s", r.baseURL, txID)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("nodeclient: build fee request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: fee lookup %s: %v", kerrors.ErrNodeUnavailable, txID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return 0, fmt.Errorf("%w: fee lookup %s returned %d: %s", kerrors.ErrNodeUnavailable, txID, resp.StatusCode, string(b))
	}

	var body struct {
		Fee uint64 `json:"fee"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("nodeclient: decode fee response for %s: %w", txID, err)
	}
	return body.Fee, nil
}
