package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultOllamaURL is the address of a local Ollama server.
const DefaultOllamaURL = "http://localhost:11434"

// Ollama drafts descriptions with a local vision model.
type Ollama struct {
	baseURL   string
	model     string
	maxTokens int
	http      *http.Client
}

func NewOllama(cfg Config) *Ollama {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultOllamaURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Ollama{baseURL: base, model: cfg.Model, maxTokens: cfg.MaxTokens, http: client}
}

func (p *Ollama) Name() string  { return "ollama" }
func (p *Ollama) Model() string { return p.model }

type ollamaRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images"`
	Stream  bool           `json:"stream"`
	Options map[string]int `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

func (p *Ollama) Describe(ctx context.Context, req Request) (Description, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:   p.model,
		System:  SystemPrompt,
		Prompt:  UserText(req),
		Images:  []string{base64.StdEncoding.EncodeToString(req.Image)},
		Options: map[string]int{"num_predict": p.maxTokens},
	})
	if err != nil {
		return Description{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return Description{}, classify(p.Name(), 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return Description{}, classify(p.Name(), 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Description{}, classify(p.Name(), 0, err)
	}
	var out ollamaResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && out.Error != "" {
			msg = out.Error
		}
		return Description{}, classify(p.Name(), resp.StatusCode, fmt.Errorf("ollama error (%d): %s", resp.StatusCode, msg))
	}
	if decodeErr != nil {
		return Description{}, &ProviderError{Provider: p.Name(), Kind: KindResponse, Err: decodeErr}
	}
	text := cleanDraft(out.Response)
	if text == "" {
		return Description{}, emptyResponse(p.Name())
	}
	return Description{Text: text, Provider: p.Name(), Model: p.model}, nil
}
