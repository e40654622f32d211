package transfer

type PostCreation struct {
	ExternalSourceID string   `json:"external_source_id"`
	Topic            string   `json:"topic"`
	Content          string   `json:"content"`
	SkipAI           bool     `json:"skip_ai"`
	PostType         string   `json:"post_type"`
	CommentText      string   `json:"comment_text"`
	VideoURL         string   `json:"video_url"`
	ImageURLs        []string `json:"image_urls"`
	MergeLinks       string   `json:"merge_links"`
	ScheduledAt      string   `json:"scheduled_at"` // RFC 3339; empty keeps the post a draft
	Draft            bool     `json:"draft"`
}

type PostUpdate struct {
	ID int64 `json:"id"`
	PostCreation
}

type ImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}
