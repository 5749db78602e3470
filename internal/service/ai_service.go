package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"gigboard/internal/config"
	"gigboard/internal/featureflags"
	"gigboard/internal/models"
	"gigboard/internal/policy"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
)

// AI writing assistance kinds.
const (
	AIKindJobDescription = "job_description"
	AIKindCoverLetter    = "cover_letter"
	AIKindBio            = "bio"
)

var aiSystemPrompts = map[string]string{
	AIKindJobDescription: "You help employers write clear job postings for a freelance marketplace. " +
		"Write a concise description with scope, deliverables and required skills. Plain text only.",
	AIKindCoverLetter: "You help freelancers write short, specific cover letters for job proposals. " +
		"Address the client's needs directly and keep it under 250 words. Plain text only.",
	AIKindBio: "You help freelancers write a professional profile bio in the first person. " +
		"Keep it under 120 words. Plain text only.",
}

type GenerateInput struct {
	Kind   string `json:"kind" validate:"required,oneof=job_description cover_letter bio"`
	Prompt string `json:"prompt" validate:"required,min=10,max=2000"`
}

// AIService proxies writing prompts to an OpenAI-compatible API and streams
// the completion back.
type AIService struct {
	client *openai.Client
	model  string
	flags  *featureflags.Manager
}

// NewAIService builds the client. Without an API key every call reports
// the assistant as unavailable.
func NewAIService(cfg *config.Config, flags *featureflags.Manager) *AIService {
	s := &AIService{flags: flags, model: openai.GPT4oMini}
	if cfg == nil || cfg.AIAPIKey == "" {
		return s
	}
	clientConfig := openai.DefaultConfig(cfg.AIAPIKey)
	if cfg.AIBaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.AIBaseURL, "/")
	}
	if cfg.AIModel != "" {
		s.model = cfg.AIModel
	}
	s.client = openai.NewClientWithConfig(clientConfig)
	return s
}

// Enabled reports whether the assistant is on for this user.
func (s *AIService) Enabled(userID uint) bool {
	return s != nil && s.client != nil && s.flags.Enabled(featureflags.AIAssist, userID)
}

// Check runs every precondition of Generate. Callers that stream over HTTP
// use it to answer with a proper status before the body starts.
func (s *AIService) Check(actor *policy.Actor, in GenerateInput) error {
	if err := policy.RequireAuth(actor); err != nil {
		return err
	}
	if err := validate(in); err != nil {
		return err
	}
	if !s.Enabled(actor.UserID) {
		return &models.AppError{Code: models.CodeUnavailable, Message: "AI assistance is not available right now."}
	}
	return nil
}

// Generate streams the completion for in to w as it arrives.
func (s *AIService) Generate(ctx context.Context, actor *policy.Actor, in GenerateInput, w io.Writer) error {
	return track(ctx, "ai_generate", func(ctx context.Context) error {
		if err := s.Check(actor, in); err != nil {
			return err
		}

		stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:     s.model,
			MaxTokens: 800,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: aiSystemPrompts[in.Kind]},
				{Role: openai.ChatMessageRoleUser, Content: in.Prompt},
			},
			Stream: true,
		})
		if err != nil {
			return models.NewInternalError(err)
		}
		defer func() { _ = stream.Close() }()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return models.NewInternalError(err)
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if _, err := io.WriteString(w, resp.Choices[0].Delta.Content); err != nil {
				return models.NewInternalError(err)
			}
			if f, ok := w.(interface{ Flush() error }); ok {
				_ = f.Flush()
			}
		}
	}, attribute.String("ai.kind", in.Kind))
}
