package handlers

import (
	"io"
	"log/slog"

	"github.com/declanh/threadcast/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type MediaHandler struct {
	r2 *service.R2Service
}

func NewMediaHandler(r2 *service.R2Service) *MediaHandler {
	return &MediaHandler{r2: r2}
}

var allowedMediaTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
}

// UploadMedia stores an image or video on R2 and returns the public URL to
// use in a post's image_urls or video_url.
func (h *MediaHandler) UploadMedia(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file provided",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to open uploaded file",
		})
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to read uploaded file",
		})
	}

	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unsupported file type",
		})
	}
	if _, ok := allowedMediaTypes[fileType.Extension]; !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File type " + fileType.Extension + " is not allowed",
		})
	}

	key, err := gonanoid.New()
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	url, err := h.r2.Upload(c.Context(), key, fileBytes, fileType.MIME.Value)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Upload failed",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"url": url,
	})
}
