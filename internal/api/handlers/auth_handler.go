package handlers

import (
	"log/slog"
	"time"

	config "github.com/declanh/threadcast/configs"
	"github.com/declanh/threadcast/internal/service"
	"github.com/declanh/threadcast/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	cfg config.Config
	th  service.ThreadsService
}

func NewAuthHandler(cfg config.Config, th service.ThreadsService) *AuthHandler {
	return &AuthHandler{cfg: cfg, th: th}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	if h.cfg.AdminPassword == "" || body.Password != h.cfg.AdminPassword {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid password",
		})
	}

	token, err := utils.GenerateToken(h.cfg.SecretKey, "operator", 7*24*time.Hour)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		MaxAge:   7 * 24 * 60 * 60,
	})

	return c.SendStatus(fiber.StatusOK)
}

// ConnectThreads starts the OAuth flow for connecting the Threads account.
func (h *AuthHandler) ConnectThreads(c *fiber.Ctx) error {
	state, err := utils.GenerateRandomKey(16)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	c.Cookie(&fiber.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HTTPOnly: true,
		MaxAge:   600,
	})

	return c.Redirect(h.th.AuthURL(state))
}

func (h *AuthHandler) ThreadsCallback(c *fiber.Ctx) error {
	if c.Query("state") == "" || c.Query("state") != c.Cookies("oauth_state") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid OAuth state",
		})
	}

	if err := h.th.Callback(c.Context(), c.Query("code")); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to connect Threads account",
		})
	}

	return c.Redirect(h.cfg.FrontendURL)
}

func (h *AuthHandler) AccountInfo(c *fiber.Ctx) error {
	account, err := h.th.Account(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to get account info",
		})
	}
	if account == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No Threads account connected",
		})
	}

	return c.Status(fiber.StatusOK).JSON(account)
}
