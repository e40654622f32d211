package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/declanh/threadcast/internal/repository"
	"github.com/declanh/threadcast/internal/transfer"
)

// ImportService turns spreadsheet-like CSV exports into scheduled posts.
// Expected header: external_id, topic, content, post_type, image_urls,
// video_url, comment_text, merge_links, scheduled_at, skip_ai. Multiple image
// urls are separated with "|". Rows whose external_id was imported before are
// skipped, so re-uploading the same sheet is safe.
type ImportService interface {
	ImportCSV(ctx context.Context, r io.Reader) (*transfer.ImportResult, error)
}

type importService struct {
	pr repository.PostRepository
	ps PostService
}

func NewImportService(pr repository.PostRepository, ps PostService) ImportService {
	return &importService{pr: pr, ps: ps}
}

func (s *importService) ImportCSV(ctx context.Context, r io.Reader) (*transfer.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["post_type"]; !ok {
		return nil, fmt.Errorf("csv is missing the post_type column")
	}

	result := &transfer.ImportResult{}
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		field := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		externalID := field("external_id")
		if externalID != "" {
			exists, err := s.pr.ExistsByExternalSourceID(ctx, externalID)
			if err != nil {
				return nil, err
			}
			if exists {
				result.Skipped++
				continue
			}
		}

		skipAI, _ := strconv.ParseBool(field("skip_ai"))

		pc := &transfer.PostCreation{
			ExternalSourceID: externalID,
			Topic:            field("topic"),
			Content:          field("content"),
			PostType:         field("post_type"),
			CommentText:      field("comment_text"),
			VideoURL:         field("video_url"),
			MergeLinks:       field("merge_links"),
			ScheduledAt:      field("scheduled_at"),
			SkipAI:           skipAI,
		}
		if urls := field("image_urls"); urls != "" {
			pc.ImageURLs = splitImageURLs(urls)
		}

		if _, err := s.ps.Create(ctx, pc); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		result.Created++
	}

	slog.Info("csv import finished", "created", result.Created, "skipped", result.Skipped, "errors", len(result.Errors))
	return result, nil
}

func splitImageURLs(raw string) []string {
	parts := strings.Split(raw, "|")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			urls = append(urls, p)
		}
	}
	return urls
}
