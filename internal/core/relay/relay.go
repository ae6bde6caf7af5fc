// Package relay drives one streaming completion and collects what it produced.
// It knows nothing about billing or storage; callers get a Result when the
// stream ends.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

// ErrStopped marks a stream closed by its consumer before the provider finished.
var ErrStopped = errors.New("stream stopped before completion")

type Request struct {
	Model          string
	WebSearch      bool
	SystemPreamble string
	Prior          []core.Message
	UserTurn       string
}

// Result is the summary of a finished stream. Text excludes the footer.
type Result struct {
	Text      string
	Citations []models.Citation
	Footer    string
	Partial   bool
	Err       error
	Chunks    int
}

type Relay struct {
	provider core.LLMProvider
}

func New(provider core.LLMProvider) *Relay {
	return &Relay{provider: provider}
}

// Open starts the upstream exchange and waits for the first text fragment.
// Failures up to that point are returned wrapped in core.ErrUpstream; after
// it, failures only mark the Result partial.
func (r *Relay) Open(ctx context.Context, req Request) (*Stream, error) {
	messages := make([]core.Message, 0, len(req.Prior)+1)
	messages = append(messages, req.Prior...)
	messages = append(messages, core.Message{Role: core.RoleUser, Content: req.UserTurn})

	upstream, err := r.provider.StreamCompletion(ctx, &core.CompletionRequest{
		Model:        req.Model,
		SystemPrompt: req.SystemPreamble,
		Messages:     messages,
		WebSearch:    req.WebSearch,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUpstream, err)
	}

	s := &Stream{upstream: upstream}
	for {
		d, err := upstream.Recv()
		if errors.Is(err, io.EOF) {
			s.finish(nil)
			return s, nil
		}
		if err != nil {
			_ = upstream.Close()
			return nil, fmt.Errorf("%w: %v", core.ErrUpstream, err)
		}
		s.citations = append(s.citations, d.Citations...)
		if d.Text != "" {
			s.pending = d.Text
			return s, nil
		}
	}
}

// Stream yields text fragments in arrival order. It has a single consumer.
type Stream struct {
	upstream  core.CompletionStream
	pending   string
	text      strings.Builder
	citations []models.Citation
	chunks    int
	done      bool
	partial   bool
	err       error
	closeOnce sync.Once
}

// Next returns the next text fragment. It returns false once the upstream is
// exhausted, has failed, or the stream was closed.
func (s *Stream) Next() (string, bool) {
	if s.pending != "" {
		chunk := s.pending
		s.pending = ""
		return s.emit(chunk), true
	}
	for !s.done {
		d, err := s.upstream.Recv()
		if errors.Is(err, io.EOF) {
			s.finish(nil)
			break
		}
		if err != nil {
			s.finish(err)
			break
		}
		s.citations = append(s.citations, d.Citations...)
		if d.Text != "" {
			return s.emit(d.Text), true
		}
	}
	return "", false
}

func (s *Stream) emit(chunk string) string {
	s.text.WriteString(chunk)
	s.chunks++
	return chunk
}

func (s *Stream) finish(err error) {
	if s.done {
		return
	}
	s.done = true
	if err != nil {
		s.partial = true
		s.err = err
	}
	s.release()
}

func (s *Stream) release() {
	s.closeOnce.Do(func() { _ = s.upstream.Close() })
}

// Close releases the upstream. Closing before exhaustion marks the result
// partial with ErrStopped.
func (s *Stream) Close() error {
	if !s.done {
		s.pending = ""
		s.finish(ErrStopped)
	}
	s.release()
	return nil
}

// Result summarizes what was forwarded so far.
func (s *Stream) Result() Result {
	return Result{
		Text:      s.text.String(),
		Citations: append([]models.Citation(nil), s.citations...),
		Footer:    Footer(s.citations),
		Partial:   s.partial,
		Err:       s.err,
		Chunks:    s.chunks,
	}
}
