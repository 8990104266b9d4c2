package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wildmind/studio-api/internal/client"
	"github.com/wildmind/studio-api/internal/model"
)

// fakeGenerator answers Flux requests from a per-call script
type fakeGenerator struct {
	mu       sync.Mutex
	requests []*client.FluxRequest
	// fail lists 1-based call numbers that return an error
	fail map[int]bool
	// onCall runs before each answer
	onCall func(n int)
}

func (g *fakeGenerator) Generate(ctx context.Context, req *client.FluxRequest) (*client.GenerationResult, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	n := len(g.requests)
	g.mu.Unlock()

	if g.onCall != nil {
		g.onCall(n)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.fail[n] {
		return nil, &client.APIError{Provider: "flux", StatusCode: 500, Body: "upstream exploded"}
	}
	u := fmt.Sprintf("https://delivery.bfl.ai/result-%d.png", n)
	return &client.GenerationResult{URL: u, URLs: []string{u}, Source: client.SourceResultSample}, nil
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// fakeRehoster maps a provider URL to an owned one
type fakeRehoster struct {
	mu    sync.Mutex
	fail  bool
	calls []string
}

func (r *fakeRehoster) Rehost(_ context.Context, srcURL, folder, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, srcURL)
	if r.fail {
		return "", errors.New("bucket unavailable")
	}
	return fmt.Sprintf("https://storage.local/o/%s%%2F%d_%s", folder, len(r.calls), name), nil
}

// fakeVideoProvider scripts status answers
type fakeVideoProvider struct {
	mu        sync.Mutex
	submitted []*client.VideoRequest
	statuses  []string
	queryErrs map[int]bool
	queries   int
	fileURL   string
}

func (p *fakeVideoProvider) SubmitVideo(_ context.Context, req *client.VideoRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitted = append(p.submitted, req)
	return "task-1", nil
}

func (p *fakeVideoProvider) QueryVideo(_ context.Context, taskID string) (*client.VideoTaskStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries++
	if p.queryErrs[p.queries] {
		return nil, &client.APIError{Provider: "minimax", StatusCode: 502, Body: "bad gateway"}
	}
	status := string(model.VideoStatusProcessing)
	if p.queries <= len(p.statuses) {
		status = p.statuses[p.queries-1]
	}
	st := &client.VideoTaskStatus{TaskID: taskID, Status: status}
	if status == string(model.VideoStatusSuccess) {
		st.FileID = "file-7"
	}
	return st, nil
}

func (p *fakeVideoProvider) RetrieveFile(_ context.Context, fileID string) (string, error) {
	if p.fileURL == "" {
		return "", client.ErrNoDownloadURL
	}
	return p.fileURL, nil
}

func (p *fakeVideoProvider) queryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries
}

// recordingSleep records waits without blocking
type recordingSleep struct {
	mu     sync.Mutex
	waits  []time.Duration
	cancel func(n int)
}

func (s *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	n := len(s.waits)
	s.mu.Unlock()
	if s.cancel != nil {
		s.cancel(n)
	}
	return ctx.Err()
}
