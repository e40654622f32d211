package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to string
		allowed  bool
	}{
		{PostStatusDraft, PostStatusScheduled, true},
		{PostStatusScheduled, PostStatusPublished, true},
		{PostStatusScheduled, PostStatusFailed, true},
		{PostStatusFailed, PostStatusScheduled, true},
		{PostStatusDraft, PostStatusPublished, false},
		{PostStatusDraft, PostStatusFailed, false},
		{PostStatusScheduled, PostStatusDraft, false},
		{PostStatusPublished, PostStatusScheduled, false},
		{PostStatusPublished, PostStatusFailed, false},
		{PostStatusFailed, PostStatusPublished, false},
		{PostStatusFailed, PostStatusDraft, false},
		{"bogus", PostStatusScheduled, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.allowed, ValidTransition(tt.from, tt.to))
		})
	}
}

func TestValidateMedia(t *testing.T) {
	manyImages := make([]string, MaxCarouselImages+1)
	for i := range manyImages {
		manyImages[i] = "img.jpg"
	}

	tests := []struct {
		name    string
		post    Post
		wantErr bool
	}{
		{"text needs nothing", Post{PostType: PostTypeText}, false},
		{"image with one url", Post{PostType: PostTypeImage, ImageURLs: []string{"a.jpg"}}, false},
		{"image without urls", Post{PostType: PostTypeImage}, true},
		{"carousel with two urls", Post{PostType: PostTypeCarousel, ImageURLs: []string{"a.jpg", "b.jpg"}}, false},
		{"carousel above limit", Post{PostType: PostTypeCarousel, ImageURLs: manyImages}, true},
		{"video with url", Post{PostType: PostTypeVideo, VideoURL: "v.mp4"}, false},
		{"video without url", Post{PostType: PostTypeVideo}, true},
		{"unknown type", Post{PostType: "story"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.post.ValidateMedia()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNeedsContent(t *testing.T) {
	assert.True(t, (&Post{Topic: "go"}).NeedsContent())
	assert.False(t, (&Post{Topic: "go", SkipAI: true}).NeedsContent())
	assert.False(t, (&Post{Content: "hi"}).NeedsContent())
}

func TestValidStatusAndPostType(t *testing.T) {
	for _, s := range []string{PostStatusDraft, PostStatusScheduled, PostStatusPublished, PostStatusFailed} {
		assert.True(t, ValidStatus(s))
	}
	assert.False(t, ValidStatus("posted"))

	for _, pt := range []string{PostTypeText, PostTypeImage, PostTypeCarousel, PostTypeVideo} {
		assert.True(t, ValidPostType(pt))
	}
	assert.False(t, ValidPostType("single"))
}
