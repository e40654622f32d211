package models

import (
	"fmt"
	"time"
)

type Post struct {
	ID               int64      `db:"id" json:"id"`
	ExternalSourceID string     `db:"external_source_id" json:"external_source_id,omitempty"`
	Topic            string     `db:"topic" json:"topic,omitempty"`
	Content          string     `db:"content" json:"content"`
	Status           string     `db:"status" json:"status"` // draft, scheduled, published, failed
	SkipAI           bool       `db:"skip_ai" json:"skip_ai"`
	PlatformPostID   string     `db:"platform_post_id" json:"platform_post_id,omitempty"`
	PostType         string     `db:"post_type" json:"post_type"` // text, image, carousel, video
	CommentText      string     `db:"comment_text" json:"comment_text,omitempty"`
	VideoURL         string     `db:"video_url" json:"video_url,omitempty"`
	ImageURLs        []string   `db:"image_urls" json:"image_urls,omitempty"`
	MergeLinks       string     `db:"merge_links" json:"merge_links,omitempty"`
	ScheduledAt      *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	PublishedAt      *time.Time `db:"published_at" json:"published_at,omitempty"`
	JobID            string     `db:"job_id" json:"-"`
	ClaimedAt        *time.Time `db:"claimed_at" json:"-"`
	AttemptCount     int        `db:"attempt_count" json:"attempt_count"`
	Error            string     `db:"error" json:"error,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

const (
	PostTypeText     = "text"
	PostTypeImage    = "image"
	PostTypeCarousel = "carousel"
	PostTypeVideo    = "video"
)

const MaxCarouselImages = 10

func ValidStatus(status string) bool {
	switch status {
	case PostStatusDraft, PostStatusScheduled, PostStatusPublished, PostStatusFailed:
		return true
	default:
		return false
	}
}

func ValidPostType(postType string) bool {
	switch postType {
	case PostTypeText, PostTypeImage, PostTypeCarousel, PostTypeVideo:
		return true
	default:
		return false
	}
}

// ValidTransition reports whether a status change is allowed. The only legal
// directions are draft→scheduled, scheduled→published, scheduled→failed and
// failed→scheduled (manual retry).
func ValidTransition(from, to string) bool {
	switch from {
	case PostStatusDraft:
		return to == PostStatusScheduled
	case PostStatusScheduled:
		return to == PostStatusPublished || to == PostStatusFailed
	case PostStatusFailed:
		return to == PostStatusScheduled
	case PostStatusPublished:
		return false
	default:
		return false
	}
}

// ValidateMedia checks the media fields required for the post type.
func (p *Post) ValidateMedia() error {
	switch p.PostType {
	case PostTypeText:
		return nil
	case PostTypeImage, PostTypeCarousel:
		if len(p.ImageURLs) < 1 || len(p.ImageURLs) > MaxCarouselImages {
			return fmt.Errorf("post type %s requires 1 to %d image urls, got %d", p.PostType, MaxCarouselImages, len(p.ImageURLs))
		}
		return nil
	case PostTypeVideo:
		if p.VideoURL == "" {
			return fmt.Errorf("post type %s requires a video url", PostTypeVideo)
		}
		return nil
	default:
		return fmt.Errorf("unknown post type: %s", p.PostType)
	}
}

// NeedsContent reports whether the content resolver should generate content
// before publishing. Empty content with skip_ai unset means the AI step owns it.
func (p *Post) NeedsContent() bool {
	return !p.SkipAI && p.Content == ""
}
