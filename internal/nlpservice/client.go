// Package nlpservice talks to HTTP model servers: a spaCy-style analyzer
// that returns classified tokens, and text classifiers that return a label
// with per-label probabilities.
package nlpservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cognicore/newsdtm/pkg/newsdtm/lemma"
	"github.com/cognicore/newsdtm/pkg/newsdtm/sentiment"
)

// Client holds the connection settings shared by Analyzer and Classifier.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string

	HTTPClient *http.Client
}

type textRequest struct {
	Model string `json:"model,omitempty"`
	Text  string `json:"text"`
}

type apiError struct {
	Message string `json:"message"`
}

type analyzeResponse struct {
	Tokens []lemma.Token `json:"tokens"`
	Error  *apiError     `json:"error"`
}

type classifyResponse struct {
	Output string             `json:"output"`
	Probas map[string]float64 `json:"probas"`
	Error  *apiError          `json:"error"`
}

// Analyzer is a lemma.Model backed by an analyzer service.
type Analyzer struct{ Client }

// NewAnalyzer creates an analyzer client.
func NewAnalyzer(c Client) *Analyzer { return &Analyzer{Client: c} }

// Analyze posts text and returns the service's tokens.
func (a *Analyzer) Analyze(ctx context.Context, text string) ([]lemma.Token, error) {
	var payload analyzeResponse
	if err := a.send(ctx, text, &payload); err != nil {
		return nil, err
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("analyzer error: %s", payload.Error.Message)
	}
	return payload.Tokens, nil
}

// Classifier is a sentiment.Classifier backed by a classification service.
type Classifier struct{ Client }

// NewClassifier creates a classifier client.
func NewClassifier(c Client) *Classifier { return &Classifier{Client: c} }

// Predict posts text and returns the predicted label and probabilities.
func (c *Classifier) Predict(ctx context.Context, text string) (sentiment.Prediction, error) {
	var payload classifyResponse
	if err := c.send(ctx, text, &payload); err != nil {
		return sentiment.Prediction{}, err
	}
	if payload.Error != nil {
		return sentiment.Prediction{}, fmt.Errorf("classifier error: %s", payload.Error.Message)
	}
	if payload.Output == "" {
		return sentiment.Prediction{}, fmt.Errorf("classifier: empty output")
	}
	return sentiment.Prediction{Label: payload.Output, Probas: payload.Probas}, nil
}

var (
	_ lemma.Model          = (*Analyzer)(nil)
	_ sentiment.Classifier = (*Classifier)(nil)
)

func (c *Client) send(ctx context.Context, text string, out any) error {
	if c.BaseURL == "" {
		return fmt.Errorf("nlpservice: base URL required")
	}
	reqBody, err := json.Marshal(textRequest{Model: c.Model, Text: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("nlpservice: %s: %s", resp.Status, bytes.TrimSpace(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("nlpservice: decode response: %w", err)
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}
