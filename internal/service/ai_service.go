package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	config "github.com/declanh/threadcast/configs"
	"github.com/declanh/threadcast/internal/models"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type AIService interface {
	ResolveContent(ctx context.Context, post *models.Post) (string, error)
	Close() error
}

type aiService struct {
	model  string
	client *genai.Client
}

func NewAIService(ctx context.Context, cfg config.Config) (AIService, error) {
	if cfg.Gemini.APIKey == "" {
		// No key configured: posts with skip_ai=false and empty content will
		// fail at resolve time instead of at startup.
		return &aiService{model: cfg.Gemini.Model}, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Gemini.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &aiService{model: cfg.Gemini.Model, client: client}, nil
}

// ResolveContent returns the post content, generating it from the topic when
// the post asks for AI content. Passthrough when skip_ai is set or content is
// already present.
func (s *aiService) ResolveContent(ctx context.Context, post *models.Post) (string, error) {
	if !post.NeedsContent() {
		return post.Content, nil
	}

	if post.Topic == "" {
		return "", errors.New("post has no content and no topic to generate from")
	}
	if s.client == nil {
		return "", errors.New("gemini api key is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	content, err := s.generate(ctx, buildPrompt(post))
	if err != nil {
		return "", err
	}

	slog.Info("content generated", "post_id", post.ID, "topic", post.Topic)
	return content, nil
}

func (s *aiService) generate(ctx context.Context, prompt string) (string, error) {
	model := s.client.GenerativeModel(s.model)
	model.SetTemperature(0.7)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractText(resp)
}

func (s *aiService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func buildPrompt(post *models.Post) string {
	var b strings.Builder
	b.WriteString("Write a short, engaging Threads post about the following topic. ")
	b.WriteString("Plain text only, no hashtags unless they fit naturally, under 500 characters.\n\n")
	b.WriteString("Topic: ")
	b.WriteString(post.Topic)
	if post.PostType != models.PostTypeText {
		fmt.Fprintf(&b, "\n\nThe post will be published with attached %s media; the text should read as a caption.", post.PostType)
	}
	return b.String()
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", errors.New("no text parts in response")
	}

	return strings.TrimSpace(strings.Join(parts, "")), nil
}
