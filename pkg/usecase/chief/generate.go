package chief

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
	"google.golang.org/genai"
)

var ErrToolRoundsExceeded = goerr.New("tool call rounds exceeded")

// generate calls the model until it answers without function calls, running
// requested tools in between. It returns the final text and the conversation
// including model turns and function responses.
func (u *UseCase) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, []*genai.Content, error) {
	logger := logging.From(ctx)

	for round := 0; round < u.maxRounds; round++ {
		resp, err := u.gemini.GenerateContent(ctx, contents, config)
		if err != nil {
			return "", contents, goerr.Wrap(err, "failed to generate content", goerr.V("round", round))
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", contents, goerr.New("no response generated", goerr.V("round", round))
		}

		content := resp.Candidates[0].Content
		contents = append(contents, content)

		var text strings.Builder
		var responses []*genai.Part
		for _, part := range content.Parts {
			if part.Text != "" && !part.Thought {
				text.WriteString(part.Text)
			}
			if part.FunctionCall == nil {
				continue
			}

			logger.Debug("tool call", "name", part.FunctionCall.Name, "round", round)
			funcResp, err := u.executeTool(ctx, *part.FunctionCall)
			if err != nil {
				logger.Warn("tool call failed", "name", part.FunctionCall.Name, "error", err)
				funcResp = &genai.FunctionResponse{
					Name:     part.FunctionCall.Name,
					Response: map[string]any{"error": err.Error()},
				}
			}
			funcResp.ID = part.FunctionCall.ID
			responses = append(responses, &genai.Part{FunctionResponse: funcResp})
		}

		if len(responses) == 0 {
			return text.String(), contents, nil
		}
		contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: responses})
	}

	return "", contents, goerr.Wrap(ErrToolRoundsExceeded, "model kept calling tools", goerr.V("max_rounds", u.maxRounds))
}

func (u *UseCase) executeTool(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	if u.registry == nil {
		return nil, goerr.New("tool registry not available", goerr.V("name", fc.Name))
	}
	resp, err := u.registry.Execute(ctx, fc)
	if err != nil {
		return nil, goerr.Wrap(err, "tool execution failed", goerr.V("name", fc.Name))
	}
	return resp, nil
}
