package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

type GeminiLLM struct {
	client *genai.Client
}

var _ core.LLMProvider = (*GeminiLLM)(nil)

func NewGeminiLLM(ctx context.Context, apiKey string) (*GeminiLLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set: %w", core.ErrConfiguration)
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiLLM{client: cl}, nil
}

func (g *GeminiLLM) Name() string { return "gemini" }

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// StreamCompletion replays prior turns as chat history and streams the reply
// to the last message.
func (g *GeminiLLM) StreamCompletion(ctx context.Context, req *core.CompletionRequest) (core.CompletionStream, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("gemini stream: no messages")
	}
	modelName := req.Model
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	m := g.client.GenerativeModel(modelName)
	if req.SystemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}

	cs := m.StartChat()
	prior, last := req.Messages[:len(req.Messages)-1], req.Messages[len(req.Messages)-1]
	for _, msg := range prior {
		role := "user"
		if msg.Role == core.RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	streamCtx, cancel := context.WithCancel(ctx)
	return &geminiStream{iter: cs.SendMessageStream(streamCtx, genai.Text(last.Content)), cancel: cancel}, nil
}

type geminiStream struct {
	iter   *genai.GenerateContentResponseIterator
	cancel context.CancelFunc
}

func (s *geminiStream) Recv() (*core.Delta, error) {
	for {
		resp, err := s.iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("gemini stream: %w", err)
		}
		if d := deltaFromResponse(resp); d != nil {
			return d, nil
		}
	}
}

func (s *geminiStream) Close() error {
	s.cancel()
	return nil
}

func deltaFromResponse(resp *genai.GenerateContentResponse) *core.Delta {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	cand := resp.Candidates[0]

	d := &core.Delta{}
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				d.Text += string(t)
			}
		}
	}
	if cand.CitationMetadata != nil {
		for _, src := range cand.CitationMetadata.CitationSources {
			if src == nil || src.URI == nil || *src.URI == "" {
				continue
			}
			c := models.Citation{URL: *src.URI, Title: *src.URI}
			if src.StartIndex != nil {
				c.StartIndex = int(*src.StartIndex)
			}
			if src.EndIndex != nil {
				c.EndIndex = int(*src.EndIndex)
			}
			d.Citations = append(d.Citations, c)
		}
	}
	if d.Text == "" && len(d.Citations) == 0 {
		return nil
	}
	return d
}
