package service

import (
	"context"
	"testing"

	"github.com/declanh/threadcast/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveContentPassthrough(t *testing.T) {
	s := &aiService{model: "gemini-1.5-flash"}

	tests := []struct {
		name string
		post models.Post
		want string
	}{
		{"content already present", models.Post{Content: "hi", Topic: "go"}, "hi"},
		{"skip_ai set", models.Post{Content: "", SkipAI: true}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ResolveContent(context.Background(), &tt.post)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveContentRequiresTopic(t *testing.T) {
	s := &aiService{model: "gemini-1.5-flash"}

	_, err := s.ResolveContent(context.Background(), &models.Post{})
	assert.Error(t, err)
}

func TestResolveContentWithoutClient(t *testing.T) {
	s := &aiService{model: "gemini-1.5-flash"}

	_, err := s.ResolveContent(context.Background(), &models.Post{Topic: "go"})
	assert.ErrorContains(t, err, "not configured")
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(&models.Post{Topic: "go releases", PostType: models.PostTypeImage})
	assert.Contains(t, prompt, "go releases")
	assert.Contains(t, prompt, "image")

	prompt = buildPrompt(&models.Post{Topic: "go releases", PostType: models.PostTypeText})
	assert.NotContains(t, prompt, "media")
}
