package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gigboard/internal/config"
	"gigboard/internal/featureflags"
	"gigboard/internal/models"
	"gigboard/internal/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeCompletionServer(t *testing.T, chunks ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			_, _ = fmt.Fprintf(w, "data: {\"id\":\"x\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", c)
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestAIService_GenerateStreams(t *testing.T) {
	srv := fakeCompletionServer(t, "Build ", "a landing ", "page.")
	defer srv.Close()

	svc := NewAIService(&config.Config{AIAPIKey: "test-key", AIBaseURL: srv.URL, AIModel: "test-model"},
		featureflags.NewManager("ai_assist=on"))
	actor := &policy.Actor{UserID: 3, Role: models.RoleEmployer}

	var out strings.Builder
	err := svc.Generate(context.Background(), actor, GenerateInput{Kind: AIKindJobDescription, Prompt: "A landing page for a bakery"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Build a landing page.", out.String())
}

func TestAIService_Gating(t *testing.T) {
	actor := &policy.Actor{UserID: 3, Role: models.RoleFreelancer}
	in := GenerateInput{Kind: AIKindBio, Prompt: "Go developer with ten years of experience"}

	t.Run("no api key", func(t *testing.T) {
		svc := NewAIService(&config.Config{}, featureflags.NewManager("ai_assist=on"))
		err := svc.Generate(context.Background(), actor, in, &strings.Builder{})
		assert.Equal(t, models.CodeUnavailable, models.AsAppError(err).Code)
	})

	t.Run("flag off", func(t *testing.T) {
		svc := NewAIService(&config.Config{AIAPIKey: "k"}, featureflags.NewManager("ai_assist=off"))
		assert.False(t, svc.Enabled(actor.UserID))
		err := svc.Generate(context.Background(), actor, in, &strings.Builder{})
		assert.Equal(t, models.CodeUnavailable, models.AsAppError(err).Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		svc := NewAIService(&config.Config{AIAPIKey: "k"}, featureflags.NewManager("ai_assist=on"))
		err := svc.Generate(context.Background(), nil, in, &strings.Builder{})
		assert.Equal(t, models.CodeUnauthorized, models.AsAppError(err).Code)
	})

	t.Run("bad kind", func(t *testing.T) {
		svc := NewAIService(&config.Config{AIAPIKey: "k"}, featureflags.NewManager("ai_assist=on"))
		err := svc.Generate(context.Background(), actor, GenerateInput{Kind: "poem", Prompt: in.Prompt}, &strings.Builder{})
		assert.Equal(t, models.CodeValidation, models.AsAppError(err).Code)
	})
}
