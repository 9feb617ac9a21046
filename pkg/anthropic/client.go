// Package anthropic implements the Backend interface over the official
// anthropic-sdk-go client.
package anthropic

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/medscope/litsearch/pkg/backend"
)

const defaultMaxTokens = 4096

// sdkClient adapts the Anthropic SDK to the Backend interface.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates an Anthropic chat backend.
func NewClient(apiKey string) backend.Backend {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
	}
}

func (c *sdkClient) Name() string { return "anthropic" }

// Send creates a message and returns a blocks-style envelope of the typed
// content blocks the API produced.
func (c *sdkClient) Send(ctx context.Context, messages []backend.Message, modelID string, params backend.Params) (*backend.Envelope, error) {
	sdkMessages := make([]sdk.MessageParam, len(messages))
	for i, m := range messages {
		block := sdk.NewTextBlock(m.Content)
		switch m.Role {
		case "assistant":
			sdkMessages[i] = sdk.NewAssistantMessage(block)
		default:
			sdkMessages[i] = sdk.NewUserMessage(block)
		}
	}

	req := sdk.MessageNewParams{
		Model:     sdk.Model(modelID),
		MaxTokens: defaultMaxTokens,
		Messages:  sdkMessages,
	}
	if params.MaxTokens != nil {
		req.MaxTokens = int64(*params.MaxTokens)
	}
	if params.Temperature != nil {
		req.Temperature = sdk.Float(*params.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}

	env := &backend.Envelope{Kind: backend.KindBlocks}
	for _, b := range msg.Content {
		env.Blocks = append(env.Blocks, backend.Block{
			Type: b.Type,
			Text: b.Text,
		})
	}
	return env, nil
}
