package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/declanh/threadcast/configs"
	"github.com/declanh/threadcast/internal/models"
	"github.com/declanh/threadcast/internal/pipeline"
	"github.com/declanh/threadcast/internal/repository"
	"github.com/declanh/threadcast/pkg/utils"
	"golang.org/x/oauth2"
)

type ThreadsService interface {
	AuthURL(state string) string
	Callback(ctx context.Context, code string) error
	Account(ctx context.Context) (*models.ThreadsAccount, error)
	Publish(ctx context.Context, post *models.Post, content string) (string, error)
	RefreshToken(ctx context.Context, acc *models.ThreadsAccount) error
}

type threadsService struct {
	cfg         config.Config
	ar          repository.AccountRepository
	oauth       *oauth2.Config
	client      *http.Client
	graphURL    string
	pollDelay   time.Duration
	maxPollTime time.Duration
}

func NewThreadsService(cfg config.Config, ar repository.AccountRepository) ThreadsService {
	return &threadsService{
		cfg: cfg,
		ar:  ar,
		oauth: &oauth2.Config{
			ClientID:     cfg.Threads.ClientID,
			ClientSecret: cfg.Threads.ClientSecret,
			RedirectURL:  cfg.Threads.RedirectURI,
			Scopes:       []string{"threads_basic", "threads_content_publish"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://threads.net/oauth/authorize",
				TokenURL: "https://graph.threads.net/oauth/access_token",
			},
		},
		client:      &http.Client{Timeout: cfg.Worker.PublishTimeout},
		graphURL:    "https://graph.threads.net",
		pollDelay:   3 * time.Second,
		maxPollTime: 90 * time.Second,
	}
}

func (s *threadsService) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

func (s *threadsService) Callback(ctx context.Context, code string) error {
	if code == "" {
		err := errors.New("authorization code is empty")
		slog.Info(err.Error())
		return err
	}

	shortLived, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("failed to exchange code: %w", err)
	}

	token, expiresAt, err := s.exchangeLongLivedToken(ctx, shortLived.AccessToken)
	if err != nil {
		return err
	}

	accountID, username, err := s.getProfile(ctx, token)
	if err != nil {
		return err
	}

	encryptedToken, err := utils.Encrypt([]byte(token), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	_, err = s.ar.Upsert(ctx, &models.ThreadsAccount{
		AccountID:       accountID,
		AccountUsername: username,
		AccessToken:     encryptedToken,
		TokenExpiresAt:  expiresAt,
	})
	return err
}

func (s *threadsService) Account(ctx context.Context) (*models.ThreadsAccount, error) {
	return s.ar.Get(ctx)
}

func (s *threadsService) exchangeLongLivedToken(ctx context.Context, shortLivedToken string) (string, time.Time, error) {
	reqURL := fmt.Sprintf(
		"%s/access_token?grant_type=th_exchange_token&client_secret=%s&access_token=%s",
		s.graphURL, s.cfg.Threads.ClientSecret, url.QueryEscape(shortLivedToken),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", time.Time{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", time.Time{}, fmt.Errorf("failed to get long-lived token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", time.Time{}, fmt.Errorf("error response from Threads: %s (status code: %d)", body, resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", time.Time{}, fmt.Errorf("failed to decode token response: %w", err)
	}

	return result.AccessToken, time.Now().Add(time.Second * time.Duration(result.ExpiresIn)), nil
}

func (s *threadsService) getProfile(ctx context.Context, accessToken string) (string, string, error) {
	reqURL := fmt.Sprintf("%s/v1.0/me?fields=id,username&access_token=%s", s.graphURL, url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", "", err
	}
	defer resp.Body.Close()

	var profile struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		slog.Info(err.Error())
		return "", "", err
	}
	if profile.ID == "" {
		return "", "", errors.New("no account id returned from Threads")
	}
	return profile.ID, profile.Username, nil
}

func (s *threadsService) RefreshToken(ctx context.Context, acc *models.ThreadsAccount) error {
	token, err := utils.Decrypt(acc.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	reqURL := fmt.Sprintf(
		"%s/refresh_access_token?grant_type=th_refresh_token&access_token=%s",
		s.graphURL, url.QueryEscape(token),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("error response from Threads: %s (status code: %d)", body, resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}

	encryptedToken, err := utils.Encrypt([]byte(result.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	return s.ar.SetToken(ctx, acc.ID, encryptedToken, time.Now().Add(time.Second*time.Duration(result.ExpiresIn)))
}

// Publish builds the platform payload for the post type, creates the media
// container, publishes it and returns the Threads post id. A follow-up
// comment, when present, is attempted after the main publish and can only
// produce a warning.
func (s *threadsService) Publish(ctx context.Context, post *models.Post, content string) (string, error) {
	acc, err := s.ar.Get(ctx)
	if err != nil {
		return "", &pipeline.TransientPublishError{Err: err}
	}
	if acc == nil {
		return "", &pipeline.PermanentPublishError{Err: errors.New("no Threads account connected")}
	}

	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", &pipeline.PermanentPublishError{Err: fmt.Errorf("cannot decrypt access token: %w", err)}
	}

	if err := post.ValidateMedia(); err != nil {
		return "", &pipeline.PermanentPublishError{Err: err}
	}

	text := content
	if post.MergeLinks != "" {
		text = content + "\n\n" + post.MergeLinks
	}

	var containerID string
	switch post.PostType {
	case models.PostTypeText:
		containerID, err = s.createContainer(ctx, acc.AccountID, accessToken, url.Values{
			"media_type": {"TEXT"},
			"text":       {text},
		})
	case models.PostTypeImage:
		containerID, err = s.createContainer(ctx, acc.AccountID, accessToken, url.Values{
			"media_type": {"IMAGE"},
			"image_url":  {post.ImageURLs[0]},
			"text":       {text},
		})
	case models.PostTypeCarousel:
		containerID, err = s.createCarousel(ctx, acc.AccountID, accessToken, post.ImageURLs, text)
	case models.PostTypeVideo:
		containerID, err = s.createContainer(ctx, acc.AccountID, accessToken, url.Values{
			"media_type": {"VIDEO"},
			"video_url":  {post.VideoURL},
			"text":       {text},
		})
		if err == nil {
			err = s.waitForContainer(ctx, containerID, accessToken)
		}
	default:
		err = &pipeline.PermanentPublishError{Err: fmt.Errorf("unknown post type: %s", post.PostType)}
	}
	if err != nil {
		return "", err
	}

	platformPostID, err := s.publishContainer(ctx, acc.AccountID, accessToken, containerID)
	if err != nil {
		return "", err
	}

	if post.CommentText != "" {
		if err := s.postComment(ctx, acc.AccountID, accessToken, platformPostID, post.CommentText); err != nil {
			warn := &pipeline.CommentPostError{Err: err}
			slog.Warn(warn.Error(), "post_id", post.ID, "platform_post_id", platformPostID)
		}
	}

	return platformPostID, nil
}

func (s *threadsService) createCarousel(ctx context.Context, accountID, accessToken string, imageURLs []string, text string) (string, error) {
	children := make([]string, 0, len(imageURLs))
	for _, imageURL := range imageURLs {
		childID, err := s.createContainer(ctx, accountID, accessToken, url.Values{
			"media_type":       {"IMAGE"},
			"image_url":        {imageURL},
			"is_carousel_item": {"true"},
		})
		if err != nil {
			return "", err
		}
		children = append(children, childID)
	}

	return s.createContainer(ctx, accountID, accessToken, url.Values{
		"media_type": {"CAROUSEL"},
		"children":   {strings.Join(children, ",")},
		"text":       {text},
	})
}

func (s *threadsService) postComment(ctx context.Context, accountID, accessToken, platformPostID, text string) error {
	containerID, err := s.createContainer(ctx, accountID, accessToken, url.Values{
		"media_type":  {"TEXT"},
		"text":        {text},
		"reply_to_id": {platformPostID},
	})
	if err != nil {
		return err
	}

	_, err = s.publishContainer(ctx, accountID, accessToken, containerID)
	return err
}

func (s *threadsService) createContainer(ctx context.Context, accountID, accessToken string, params url.Values) (string, error) {
	params.Set("access_token", accessToken)
	reqURL := fmt.Sprintf("%s/v1.0/%s/threads", s.graphURL, accountID)
	return s.postForID(ctx, reqURL, params)
}

func (s *threadsService) publishContainer(ctx context.Context, accountID, accessToken, containerID string) (string, error) {
	params := url.Values{
		"creation_id":  {containerID},
		"access_token": {accessToken},
	}
	reqURL := fmt.Sprintf("%s/v1.0/%s/threads_publish", s.graphURL, accountID)
	return s.postForID(ctx, reqURL, params)
}

func (s *threadsService) postForID(ctx context.Context, reqURL string, params url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(params.Encode()))
	if err != nil {
		return "", &pipeline.PermanentPublishError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		// Network failure or deadline; retryable.
		return "", &pipeline.TransientPublishError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &pipeline.TransientPublishError{Err: err}
	}

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return "", err
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &pipeline.TransientPublishError{Err: fmt.Errorf("error parsing response: %w", err)}
	}
	if result.ID == "" {
		return "", &pipeline.PermanentPublishError{Err: errors.New("no id returned from Threads")}
	}

	return result.ID, nil
}

// waitForContainer polls until a video container finishes server-side
// processing. Publishing before that returns an error from the platform.
func (s *threadsService) waitForContainer(ctx context.Context, containerID, accessToken string) error {
	deadline := time.Now().Add(s.maxPollTime)

	for {
		reqURL := fmt.Sprintf("%s/v1.0/%s?fields=status&access_token=%s", s.graphURL, containerID, url.QueryEscape(accessToken))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return &pipeline.PermanentPublishError{Err: err}
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return &pipeline.TransientPublishError{Err: err}
		}

		var result struct {
			Status string `json:"status"`
		}
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			return &pipeline.TransientPublishError{Err: err}
		}

		switch result.Status {
		case "FINISHED":
			return nil
		case "ERROR":
			return &pipeline.PermanentPublishError{Err: errors.New("video container processing failed")}
		}

		if time.Now().After(deadline) {
			return &pipeline.TransientPublishError{Err: errors.New("timed out waiting for video container")}
		}

		select {
		case <-ctx.Done():
			return &pipeline.TransientPublishError{Err: ctx.Err()}
		case <-time.After(s.pollDelay):
		}
	}
}

func classifyStatus(code int, body []byte) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests || code >= 500:
		return &pipeline.TransientPublishError{Err: fmt.Errorf("unexpected status code from Threads: %d (%s)", code, body)}
	default:
		return &pipeline.PermanentPublishError{Err: fmt.Errorf("unexpected status code from Threads: %d (%s)", code, body)}
	}
}
