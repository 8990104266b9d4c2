package client

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// MockGenerator stands in for Flux when no API key is configured. It returns
// picsum placeholders, which library cleanup later removes.
type MockGenerator struct {
	delay time.Duration
	seq   atomic.Int64
}

func NewMockGenerator(delay time.Duration) *MockGenerator {
	return &MockGenerator{delay: delay}
}

func (m *MockGenerator) Generate(ctx context.Context, req *FluxRequest) (*GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := sleepCtx(ctx, m.delay); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("https://picsum.photos/seed/studio-%d/1024/1024", m.seq.Add(1))
	return &GenerationResult{URL: u, URLs: []string{u}, Source: SourceImageURL}, nil
}
