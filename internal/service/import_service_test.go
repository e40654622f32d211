package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/declanh/threadcast/internal/models"
	"github.com/declanh/threadcast/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const importHeader = "external_id,topic,content,post_type,image_urls,video_url,comment_text,merge_links,scheduled_at,skip_ai\n"

func TestImportCSVCreatesScheduledPosts(t *testing.T) {
	pr := repository.NewMemoryPostRepository()
	s := NewImportService(pr, NewPostService(pr))

	scheduledAt := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	csvData := importHeader +
		"row-1,go releases,Go 1.24 is out,text,,,,," + scheduledAt + ",true\n" +
		"row-2,,Check these shots,carousel,https://cdn/a.jpg|https://cdn/b.jpg,,,https://example.com," + scheduledAt + ",true\n"

	result, err := s.ImportCSV(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)

	posts, err := pr.List(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	for _, post := range posts {
		assert.Equal(t, models.PostStatusScheduled, post.Status)
	}
}

func TestImportCSVSkipsAlreadyImportedRows(t *testing.T) {
	pr := repository.NewMemoryPostRepository()
	s := NewImportService(pr, NewPostService(pr))

	scheduledAt := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	csvData := importHeader + "row-1,go,hello,text,,,,," + scheduledAt + ",true\n"

	result, err := s.ImportCSV(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	require.Equal(t, 1, result.Created)

	// Re-uploading the same sheet must not duplicate the post.
	result, err = s.ImportCSV(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Skipped)
}

func TestImportCSVCollectsRowErrors(t *testing.T) {
	pr := repository.NewMemoryPostRepository()
	s := NewImportService(pr, NewPostService(pr))

	scheduledAt := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	csvData := importHeader +
		"row-1,go,hello,text,,,,," + scheduledAt + ",true\n" +
		"row-2,go,broken,story,,,,," + scheduledAt + ",true\n" + // bad post type
		"row-3,go,no video,video,,,,," + scheduledAt + ",true\n" // missing video_url

	result, err := s.ImportCSV(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Len(t, result.Errors, 2)
}

func TestImportCSVRejectsMissingPostTypeColumn(t *testing.T) {
	pr := repository.NewMemoryPostRepository()
	s := NewImportService(pr, NewPostService(pr))

	_, err := s.ImportCSV(context.Background(), strings.NewReader("topic,content\na,b\n"))
	assert.Error(t, err)
}
