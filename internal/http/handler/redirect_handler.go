package handler

import (
	"context"
	"errors"
	"time"

	"github.com/evanlinks/shortlink/internal/app/repository"
	"github.com/evanlinks/shortlink/internal/app/service"
	httpUtil "github.com/evanlinks/shortlink/internal/http/util"
	"github.com/evanlinks/shortlink/internal/http/view"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RedirectDeps groups dependencies required by the resolution surface.
type RedirectDeps struct {
	Logger         *zap.Logger
	LinkService    service.LinkService
	ClickPublisher *service.ClickPublisher
	// InterstitialSeconds > 0 serves a brief "Redirecting..." page instead
	// of an immediate 302.
	InterstitialSeconds int
}

// RedirectHandler resolves short codes and issues redirects.
type RedirectHandler struct {
	logger              *zap.Logger
	links               service.LinkService
	clickPublisher      *service.ClickPublisher
	interstitialSeconds int
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:              logger,
		links:               deps.LinkService,
		clickPublisher:      deps.ClickPublisher,
		interstitialSeconds: deps.InterstitialSeconds,
	}
}

// Register wires redirect routes onto the provided router.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
	router.Get("/:code", h.Resolve)
}

// Health is a simple root endpoint so we know the service is running.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "shortlink",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Resolve handles GET /:code. Resolution is a mutating read: a hit records
// a click before the redirect goes out, and expired links still resolve.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	// An empty extraction on a matched route means the last segment was an
	// excluded token, never a short code.
	code := httpUtil.ExtractCode(c.OriginalURL())
	if code == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "short link not found",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	link, err := h.links.Resolve(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "short link not found",
			})
		}
		h.logger.Error("failed to resolve link", zap.Error(err), zap.String("code", code))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	if h.clickPublisher != nil {
		go h.publishClickEvent(code, c.IP(), c.Get("User-Agent"))
	}

	h.logger.Debug("redirecting short link", zap.String("code", code), zap.String("target", link.OriginalURL))

	if h.interstitialSeconds > 0 {
		html, err := view.RenderRedirectPage(view.RedirectPageData{
			TargetURL:    link.OriginalURL,
			DelaySeconds: h.interstitialSeconds,
		})
		if err != nil {
			h.logger.Error("failed to render redirect page", zap.Error(err))
			return c.Redirect(link.OriginalURL, fiber.StatusFound)
		}
		return c.Type("html", "utf-8").SendString(html)
	}

	return c.Redirect(link.OriginalURL, fiber.StatusFound)
}

func (h *RedirectHandler) publishClickEvent(code, ip, userAgent string) {
	if err := h.clickPublisher.Publish(code, ip, userAgent); err != nil {
		h.logger.Error("failed to publish click event", zap.Error(err), zap.String("code", code))
	}
}
