package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	systemPrompt = "You are an expert equipment management analyst. Provide concise, actionable insights."
	maxTokens    = 500
	temperature  = 0.7

	DefaultTimeout = 30 * time.Second
)

var (
	ErrEmptyAnswer   = errors.New("provider returned no text")
	ErrNotConfigured = errors.New("provider not configured")
)

// Provider turns a prompt into text. Available reports whether it has credentials.
type Provider interface {
	Name() string
	Available() bool
	Complete(ctx context.Context, prompt string) (string, error)
}

type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.Code, e.Body)
}

type httpProvider struct {
	name   string
	apiKey string
	url    string
	client *http.Client
}

func (p *httpProvider) Name() string    { return p.name }
func (p *httpProvider) Available() bool { return p.apiKey != "" }

// post sends body as JSON and decodes a 200 response into out.
func (p *httpProvider) post(ctx context.Context, url string, headers map[string]string, body, out any) error {
	if !p.Available() {
		return ErrNotConfigured
	}
	payload, err := jsoniter.ConfigFastest.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", p.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Provider: p.name, Code: resp.StatusCode, Body: truncate(string(raw), 200)}
	}
	if err := jsoniter.ConfigFastest.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode: %w", p.name, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func answer(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyAnswer
	}
	return s, nil
}

// Gemini

const geminiURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent"

type Gemini struct{ httpProvider }

func NewGemini(apiKey, url string, client *http.Client) *Gemini {
	if url == "" {
		url = geminiURL
	}
	return &Gemini{httpProvider{name: "gemini", apiKey: apiKey, url: url, client: client}}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	var req geminiRequest
	req.Contents = []geminiContent{{Parts: []geminiPart{{Text: systemPrompt + "\n\n" + prompt}}}}
	req.GenerationConfig.Temperature = temperature
	req.GenerationConfig.MaxOutputTokens = maxTokens

	var resp geminiResponse
	if err := g.post(ctx, g.url+"?key="+g.apiKey, nil, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyAnswer
	}
	return answer(resp.Candidates[0].Content.Parts[0].Text)
}

// OpenAI

const (
	openAIURL   = "https://api.openai.com/v1/chat/completions"
	openAIModel = "gpt-3.5-turbo"
)

type OpenAI struct{ httpProvider }

func NewOpenAI(apiKey, url string, client *http.Client) *OpenAI {
	if url == "" {
		url = openAIURL
	}
	return &OpenAI{httpProvider{name: "openai", apiKey: apiKey, url: url, client: client}}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model: openAIModel,
		Messages: []chatMessage{
			{Role: "system", Content: "You are an expert equipment management analyst. Provide concise, actionable insights based on data."},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	var resp chatResponse
	if err := o.post(ctx, o.url, map[string]string{"Authorization": "Bearer " + o.apiKey}, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyAnswer
	}
	return answer(resp.Choices[0].Message.Content)
}

// HuggingFace runs a summarization model, so the answer is a summary of the prompt.

const huggingFaceURL = "https://router.huggingface.co/models/facebook/bart-large-cnn"

type HuggingFace struct{ httpProvider }

func NewHuggingFace(apiKey, url string, client *http.Client) *HuggingFace {
	if url == "" {
		url = huggingFaceURL
	}
	return &HuggingFace{httpProvider{name: "huggingface", apiKey: apiKey, url: url, client: client}}
}

type hfRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		MaxLength int  `json:"max_length"`
		MinLength int  `json:"min_length"`
		DoSample  bool `json:"do_sample"`
	} `json:"parameters"`
}

type hfSummary struct {
	SummaryText string `json:"summary_text"`
}

func (h *HuggingFace) Complete(ctx context.Context, prompt string) (string, error) {
	var req hfRequest
	req.Inputs = prompt
	req.Parameters.MaxLength = maxTokens
	req.Parameters.MinLength = 100

	// the API answers either a list of summaries or a single object
	var raw jsoniter.RawMessage
	if err := h.post(ctx, h.url, map[string]string{"Authorization": "Bearer " + h.apiKey}, req, &raw); err != nil {
		return "", err
	}
	var list []hfSummary
	if err := jsoniter.ConfigFastest.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return "", ErrEmptyAnswer
		}
		return answer(list[0].SummaryText)
	}
	var one hfSummary
	if err := jsoniter.ConfigFastest.Unmarshal(raw, &one); err != nil {
		return "", fmt.Errorf("huggingface: decode: %w", err)
	}
	return answer(one.SummaryText)
}
