package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

// OpenAILLM streams chat completions from an OpenAI-compatible endpoint.
type OpenAILLM struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ core.LLMProvider = (*OpenAILLM)(nil)

func NewOpenAILLM(baseURL, apiKey string, timeout time.Duration) (*OpenAILLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set: %w", core.ErrConfiguration)
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	// timeout bounds the wait for response headers only; the body streams
	// until the provider finishes or ctx is cancelled.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return &OpenAILLM{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Transport: transport},
	}, nil
}

func (o *OpenAILLM) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// webSearchOptions is sent as {} to enable the provider's default search.
type webSearchOptions struct{}

type chatCompletionRequest struct {
	Model            string            `json:"model"`
	Messages         []chatMessage     `json:"messages"`
	Stream           bool              `json:"stream"`
	WebSearchOptions *webSearchOptions `json:"web_search_options,omitempty"`
}

type urlCitation struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

type annotation struct {
	Type        string      `json:"type"`
	URLCitation urlCitation `json:"url_citation"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content     string       `json:"content"`
			Annotations []annotation `json:"annotations"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (o *OpenAILLM) StreamCompletion(ctx context.Context, req *core.CompletionRequest) (core.CompletionStream, error) {
	body := chatCompletionRequest{
		Model:  req.Model,
		Stream: true,
	}
	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	if req.WebSearch {
		body.WebSearchOptions = &webSearchOptions{}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var errResp struct {
			Error *apiError `json:"error"`
		}
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return nil, fmt.Errorf("LLM API error [%d]: %s (type: %s)", resp.StatusCode, errResp.Error.Message, errResp.Error.Type)
		}
		return nil, fmt.Errorf("LLM API error [%d]: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	return &sseStream{body: resp.Body, scanner: scanner}, nil
}

// sseStream decodes "data:" lines until [DONE].
type sseStream struct {
	body     io.ReadCloser
	scanner  *bufio.Scanner
	finished bool
	done     bool
}

func (s *sseStream) Recv() (*core.Delta, error) {
	if s.done {
		return nil, io.EOF
	}
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			s.done = true
			return nil, io.EOF
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil, fmt.Errorf("decode stream chunk: %w", err)
		}
		if chunk.Error != nil {
			return nil, fmt.Errorf("LLM stream error: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			s.finished = true
		}
		delta := &core.Delta{Text: choice.Delta.Content}
		for _, a := range choice.Delta.Annotations {
			if a.Type != "url_citation" {
				continue
			}
			delta.Citations = append(delta.Citations, models.Citation{
				URL:        a.URLCitation.URL,
				Title:      a.URLCitation.Title,
				StartIndex: a.URLCitation.StartIndex,
				EndIndex:   a.URLCitation.EndIndex,
			})
		}
		if delta.Text == "" && len(delta.Citations) == 0 {
			continue
		}
		return delta, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	s.done = true
	if !s.finished {
		return nil, io.ErrUnexpectedEOF
	}
	return nil, io.EOF
}

func (s *sseStream) Close() error {
	s.done = true
	return s.body.Close()
}
