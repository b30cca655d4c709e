package chief

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/adapter"
	"google.golang.org/genai"
)

// first 70% of history by byte size is summarized
const compressionRatio = 0.7

//go:embed prompt/summarize.md
var summarizePromptRaw string

// isTokenLimitError reports whether err is the Gemini input token limit error,
// e.g. "The input token count (2500030) exceeds the maximum number of tokens allowed (1048576)."
func isTokenLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	return apiErr.Code == 400 &&
		apiErr.Status == "INVALID_ARGUMENT" &&
		strings.HasPrefix(apiErr.Message, "The input token count (") &&
		strings.Contains(apiErr.Message, ") exceeds the maximum number of tokens allowed (")
}

func contentSize(content *genai.Content) int {
	data, err := json.Marshal(content)
	if err != nil {
		return 0
	}
	return len(data)
}

// compressHistory replaces the oldest part of contents with a summary
// generated by the model.
func compressHistory(ctx context.Context, gemini adapter.Gemini, contents []*genai.Content) ([]*genai.Content, error) {
	if len(contents) == 0 {
		return nil, goerr.New("history is empty")
	}

	total := 0
	sizes := make([]int, len(contents))
	for i, content := range contents {
		sizes[i] = contentSize(content)
		total += sizes[i]
	}

	threshold := int(float64(total) * compressionRatio)
	cut, cumulative := 0, 0
	for i, size := range sizes {
		cumulative += size
		if cumulative >= threshold {
			cut = i + 1
			break
		}
	}

	if cut == 0 || cut >= len(contents) {
		return nil, goerr.New("insufficient content to compress", goerr.V("contents", len(contents)))
	}

	summary, err := summarizeContents(ctx, gemini, contents[:cut])
	if err != nil {
		return nil, goerr.Wrap(err, "failed to summarize contents")
	}

	compressed := []*genai.Content{
		genai.NewContentFromText("=== Previous Conversation Summary ===\n\n"+summary, genai.RoleUser),
	}
	return append(compressed, contents[cut:]...), nil
}

func summarizeContents(ctx context.Context, gemini adapter.Gemini, contents []*genai.Content) (string, error) {
	request := make([]*genai.Content, 0, len(contents)+1)
	request = append(request, contents...)
	request = append(request, genai.NewContentFromText(summarizePromptRaw, genai.RoleUser))

	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText("You are an assistant for organizational communication analysis.", ""),
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	}

	resp, err := gemini.GenerateContent(ctx, request, config)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate summary")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", goerr.New("no summary generated")
	}

	var summary strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		summary.WriteString(part.Text)
	}
	if summary.Len() == 0 {
		return "", goerr.New("empty summary generated")
	}
	return summary.String(), nil
}
