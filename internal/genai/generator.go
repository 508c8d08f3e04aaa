package genai

import "context"

// Generator turns the ordered stage context into the conversational answer.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

var (
	_ Generator = (*Client)(nil)
	_ Generator = (*TemplateGenerator)(nil)
)

// New returns the gateway client when it is configured, otherwise the
// template generator.
func New(mode string, client *Client) Generator {
	if mode != "template" && client != nil && client.Configured() {
		return client
	}
	return NewTemplateGenerator()
}
