// Package nodeclient is the external collaborator that fetches VSPC
// windows and transaction bodies from the Kaspa node, through the
// JSON-RPC surface the ingestor depends on (spec §4.8). Its internal
// shape is not specified; only the two calls it exposes are.
package nodeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
	"github.com/AvatoLabs/kasplex-indexer/internal/metrics"
)

// VSPCEntry is one accepted block on the virtual selected parent chain.
type VSPCEntry struct {
	DaaScore      uint64
	BlockHash     string
	AcceptedTxIDs []string
}

// TxOutpoint identifies the transaction an input spends from.
type TxOutpoint struct {
	TransactionID string
}

// TxInput is one signed input of a transaction, carrying the redeem
// script the decoder inspects.
type TxInput struct {
	SignatureScript  string
	PreviousOutpoint TxOutpoint
}

// TxOutput is one output of a transaction.
type TxOutput struct {
	Amount                 uint64
	ScriptPublicKeyAddress string
}

// TxBody is the subset of a node's verbose transaction record the core
// depends on (spec §4.8).
type TxBody struct {
	TxID    string
	Inputs  []TxInput
	Outputs []TxOutput
}

// Client talks JSON-RPC to a single Kaspa node endpoint, retrying
// transient failures the way the teacher's storage client retries
// gateway calls, but with hashicorp/go-retryablehttp backing the policy
// instead of a bare *http.Client.
type Client struct {
	httpClient *retryablehttp.Client
	nodeURL    string
	logger     *logrus.Entry
}

// New builds a Client against nodeURL. logger may be nil, in which case
// a silent logger is used.
func New(nodeURL string, logger *logrus.Entry) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 4
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.Logger = nil

	return &Client{httpClient: rc, nodeURL: nodeURL, logger: logger}
}

// UseMetrics wires m.NodeRetryTotal into the client's retry policy: every
// resend past the first attempt increments the counter.
func (c *Client) UseMetrics(m *metrics.Metrics) {
	if m == nil {
		return
	}
	c.httpClient.RequestLogHook = func(_ retryablehttp.Logger, _ *http.Request, attempt int) {
		if attempt > 0 {
			m.NodeRetryTotal.Inc()
		}
	}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("nodeclient: encode request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.nodeURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("nodeclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", kerrors.ErrNodeUnavailable, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%w: %s returned %d: %s", kerrors.ErrNodeUnavailable, method, resp.StatusCode, string(b))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("nodeclient: decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%w: %s: %s", kerrors.ErrNodeUnavailable, method, rpcResp.Error.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("nodeclient: decode %s result: %w", method, err)
	}
	return nil
}

// GetVSPC fetches up to limit entries starting at or after
// startDaaScore (spec §4.8's get_vspc contract).
func (c *Client) GetVSPC(ctx context.Context, startDaaScore uint64, limit int) ([]VSPCEntry, error) {
	var raw struct {
		Blocks []struct {
			Hash                   string   `json:"hash"`
			DaaScore               uint64   `json:"daaScore"`
			AcceptedTransactionIDs []string `json:"acceptedTransactionIds"`
		} `json:"blocks"`
	}

	params := map[string]interface{}{
		"startDaaScore":                 startDaaScore,
		"includeAcceptedTransactionIds": true,
	}
	if err := c.call(ctx, "getVirtualSelectedParentChainFromBlock", params, &raw); err != nil {
		return nil, err
	}

	entries := make([]VSPCEntry, 0, len(raw.Blocks))
	for _, b := range raw.Blocks {
		if b.DaaScore < startDaaScore {
			continue
		}
		entries = append(entries, VSPCEntry{
			DaaScore:      b.DaaScore,
			BlockHash:     b.Hash,
			AcceptedTxIDs: b.AcceptedTransactionIDs,
		})
		if len(entries) >= limit {
			break
		}
	}
	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{"start": startDaaScore, "count": len(entries)}).Debug("nodeclient: fetched vspc window")
	}
	return entries, nil
}

// GetTransactions fetches the verbose body of each transaction in
// txIDs, one RPC call per id (spec §4.8's get_transactions contract).
// Ids the node cannot find are simply absent from the result map.
func (c *Client) GetTransactions(ctx context.Context, txIDs []string) (map[string]TxBody, error) {
	out := make(map[string]TxBody, len(txIDs))
	for _, txID := range txIDs {
		body, err := c.getTransaction(ctx, txID)
		if err != nil {
			if c.logger != nil {
				c.logger.WithError(err).WithField("tx_id", txID).Warn("nodeclient: transaction fetch failed")
			}
			continue
		}
		out[txID] = body
	}
	return out, nil
}

func (c *Client) getTransaction(ctx context.Context, txID string) (TxBody, error) {
	var raw struct {
		TransactionID string `json:"transactionId"`
		Inputs        []struct {
			SignatureScript  string `json:"signatureScript"`
			PreviousOutpoint struct {
				TransactionID string `json:"transactionId"`
			} `json:"previousOutpoint"`
		} `json:"inputs"`
		Outputs []struct {
			Amount    uint64 `json:"amount"`
			VerboseData struct {
				ScriptPublicKeyAddress string `json:"scriptPublicKeyAddress"`
			} `json:"verboseData"`
		} `json:"outputs"`
	}

	params := map[string]interface{}{
		"transactionId":                 txID,
		"includeTransactionVerboseData": true,
	}
	if err := c.call(ctx, "getTransaction", params, &raw); err != nil {
		return TxBody{}, err
	}

	body := TxBody{TxID: txID}
	for _, in := range raw.Inputs {
		body.Inputs = append(body.Inputs, TxInput{
			SignatureScript:  in.SignatureScript,
			PreviousOutpoint: TxOutpoint{TransactionID: in.PreviousOutpoint.TransactionID},
		})
	}
	for _, out := range raw.Outputs {
		body.Outputs = append(body.Outputs, TxOutput{
			Amount:                 out.Amount,
			ScriptPublicKeyAddress: out.VerboseData.ScriptPublicKeyAddress,
		})
	}
	return body, nil
}
