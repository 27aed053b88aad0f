package llm

import (
	"context"
	"time"

	"github.com/ternarybob/todayvn/internal/interfaces"
)

// Generator adapts the provider factory to interfaces.TextGenerator for one model
type Generator struct {
	factory *ProviderFactory
	model   string
	timeout time.Duration
}

// NewGenerator returns a TextGenerator bound to model ("" = default provider's model).
// Every call is bounded by timeout when it is positive.
func NewGenerator(factory *ProviderFactory, model string, timeout time.Duration) *Generator {
	return &Generator{
		factory: factory,
		model:   model,
		timeout: timeout,
	}
}

var _ interfaces.TextGenerator = (*Generator)(nil)

// GenerateText sends prompt as a single user message and returns the response text
func (g *Generator) GenerateText(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.factory.GenerateContent(ctx, &ContentRequest{
		Model: g.model,
		Messages: []interfaces.Message{
			{Role: interfaces.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
