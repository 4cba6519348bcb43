package llm

import "context"

// MockClient is a scripted LLMClient for tests: each call to Chat returns
// the next entry in Responses (cycling the last entry once exhausted).
type MockClient struct {
	Responses []Response
	Errors    []error
	calls     int
	Requests  [][]Message
}

func (m *MockClient) Chat(_ context.Context, messages []Message, _ Options) (*Response, error) {
	m.Requests = append(m.Requests, messages)
	idx := m.calls
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.calls++

	if idx < len(m.Errors) && m.Errors[idx] != nil {
		return nil, m.Errors[idx]
	}
	if idx < 0 || idx >= len(m.Responses) {
		return &Response{FinishReason: FinishStop}, nil
	}
	resp := m.Responses[idx]
	return &resp, nil
}

func (m *MockClient) ChatStream(ctx context.Context, messages []Message, opts Options) (<-chan Chunk, error) {
	resp, err := m.Chat(ctx, messages, opts)
	ch := make(chan Chunk, 2)
	go func() {
		defer close(ch)
		if err != nil {
			ch <- Chunk{Type: ChunkError, Err: err}
			return
		}
		ch <- Chunk{Type: ChunkText, Content: resp.Content}
		ch <- Chunk{Type: ChunkDone}
	}()
	return ch, err
}

func (m *MockClient) CountTokens(text string) int { return ApproxCountTokens(text) }
