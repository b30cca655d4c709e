package chief

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
	"google.golang.org/genai"
)

// Session is a multi turn conversation about the organization. The
// organization context is given once as part of the system instruction.
type Session struct {
	uc      *UseCase
	history []*genai.Content
}

// NewSession starts an empty conversation
func (u *UseCase) NewSession() *Session {
	return &Session{uc: u}
}

// History returns the conversation so far
func (s *Session) History() []*genai.Content {
	return s.history
}

// Send asks message in the conversation and returns the model's answer. When
// the history exceeds the model's input limit it is compressed and the
// request is retried once.
func (s *Session) Send(ctx context.Context, message string) (string, error) {
	config, err := s.config(ctx)
	if err != nil {
		return "", err
	}

	response, updated, err := s.uc.generate(ctx, s.withMessage(message), config)
	if err != nil && isTokenLimitError(err) {
		logging.From(ctx).Info("history exceeds token limit, compressing", "contents", len(s.history))

		compressed, cerr := compressHistory(ctx, s.uc.gemini, s.history)
		if cerr != nil {
			return "", goerr.Wrap(cerr, "failed to compress history", goerr.V("cause", err.Error()))
		}
		s.history = compressed

		response, updated, err = s.uc.generate(ctx, s.withMessage(message), config)
	}
	if err != nil {
		return "", err
	}

	s.history = updated
	return response, nil
}

func (s *Session) config(ctx context.Context) (*genai.GenerateContentConfig, error) {
	config, err := s.uc.config(ctx)
	if err != nil {
		return nil, err
	}

	orgContext, err := s.uc.OrganizationContext()
	if err != nil {
		return nil, err
	}

	system := config.SystemInstruction.Parts[0].Text + "\n\n" + orgContext
	config.SystemInstruction = genai.NewContentFromText(system, "")
	return config, nil
}

func (s *Session) withMessage(message string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(s.history)+1)
	contents = append(contents, s.history...)
	return append(contents, genai.NewContentFromText(message, genai.RoleUser))
}
