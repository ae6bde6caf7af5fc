package llm

import (
	"context"
	"io"
	"strings"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

const mockChunkSize = 8

// MockLLM echoes the last message back in small chunks. Used for local runs
// without provider credentials (LLM_PROVIDER=mock).
type MockLLM struct{}

var _ core.LLMProvider = MockLLM{}

func (MockLLM) Name() string { return "mock" }

func (MockLLM) StreamCompletion(ctx context.Context, req *core.CompletionRequest) (core.CompletionStream, error) {
	var last string
	if n := len(req.Messages); n > 0 {
		last = req.Messages[n-1].Content
	}
	reply := "You said: " + last

	var deltas []*core.Delta
	runes := []rune(reply)
	for i := 0; i < len(runes); i += mockChunkSize {
		end := min(i+mockChunkSize, len(runes))
		deltas = append(deltas, &core.Delta{Text: string(runes[i:end])})
	}
	if req.WebSearch {
		deltas = append(deltas, &core.Delta{Citations: []models.Citation{{
			URL:        "https://example.com/search?q=" + strings.ReplaceAll(strings.TrimSpace(last), " ", "+"),
			Title:      "Example search",
			StartIndex: 0,
			EndIndex:   len(reply),
		}}})
	}
	return &SliceStream{ctx: ctx, deltas: deltas}, nil
}

// SliceStream replays a fixed list of deltas, then Err (or io.EOF).
type SliceStream struct {
	ctx    context.Context
	deltas []*core.Delta
	Err    error
	pos    int
	closed bool
}

func NewSliceStream(ctx context.Context, deltas []*core.Delta, err error) *SliceStream {
	return &SliceStream{ctx: ctx, deltas: deltas, Err: err}
}

func (s *SliceStream) Recv() (*core.Delta, error) {
	if s.closed {
		return nil, io.EOF
	}
	if s.ctx != nil {
		if err := s.ctx.Err(); err != nil {
			return nil, err
		}
	}
	if s.pos < len(s.deltas) {
		d := s.deltas[s.pos]
		s.pos++
		return d, nil
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return nil, io.EOF
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

func (s *SliceStream) Closed() bool { return s.closed }
