package refine

import (
	"context"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

const correctionSystemPrompt = "You are a transcript editor. Fix grammar, " +
	"spelling, and punctuation in the transcript the user sends. Do not add, " +
	"remove, or reorder content, and do not translate. Reply with the " +
	"corrected transcript only."

// OpenAICorrector implements Corrector with a single chat completion under a
// fixed output-length budget.
type OpenAICorrector struct {
	client    oai.Client
	model     string
	maxTokens int
}

func NewOpenAICorrector(apiKey, model string, maxTokens int) *OpenAICorrector {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &OpenAICorrector{
		client:    oai.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (c *OpenAICorrector) Correct(ctx context.Context, text, contextTitle string) (string, error) {
	user := text
	if contextTitle != "" {
		user = "Video title: " + contextTitle + "\n\nTranscript:\n" + text
	}

	resp, err := c.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(correctionSystemPrompt),
			oai.UserMessage(user),
		},
		MaxCompletionTokens: param.NewOpt(int64(c.maxTokens)),
		Temperature:         param.NewOpt(0.0),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
