package mock

import "github.com/poiesic/datachat/ai"

// MockProvider is a test double for ai.Provider aggregating the mock
// services.
type MockProvider struct {
	MockEmbedder *MockEmbedder
	MockChatter  *MockChatter
}

// NewMockProvider creates a provider with default mock services.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		MockEmbedder: NewMockEmbedder(),
		MockChatter:  NewMockChatter(),
	}
}

// Embedder returns the mock embedding service.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.MockEmbedder
}

// Chatter returns the mock chat service.
func (p *MockProvider) Chatter() ai.Chatter {
	return p.MockChatter
}

// Close is a no-op.
func (p *MockProvider) Close() error {
	return nil
}
