package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client calls a remote text-classification endpoint that returns one
// probability row per input text. Its Probabilities method satisfies
// the explainer's prediction-function contract.
type Client struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

type predictRequest struct {
	Texts []string `json:"texts"`
}

type predictResponse struct {
	Probabilities [][]float64 `json:"probabilities"`
	Error         string      `json:"error,omitempty"`
}

// Probabilities sends one batch of texts and returns the probability
// matrix in input order.
func (c *Client) Probabilities(ctx context.Context, texts []string) ([][]float64, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("classifier: base URL required")
	}

	reqBody, err := json.Marshal(predictRequest{Texts: texts})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier: unexpected status %s", resp.Status)
	}

	var payload predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("classifier error: %s", payload.Error)
	}
	return payload.Probabilities, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}
