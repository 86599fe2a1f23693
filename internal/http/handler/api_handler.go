package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/evanlinks/shortlink/internal/app/model"
	"github.com/evanlinks/shortlink/internal/app/repository"
	"github.com/evanlinks/shortlink/internal/app/service"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
	Stats       *service.StatsService
	Prefs       repository.PrefStore
}

// APIHandler implements the management API endpoints.
type APIHandler struct {
	logger *zap.Logger
	links  service.LinkService
	stats  *service.StatsService
	prefs  repository.PrefStore
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger: logger,
		links:  deps.LinkService,
		stats:  deps.Stats,
		prefs:  deps.Prefs,
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api")
	{
		links := api.Group("/links")
		{
			links.Post("/", h.CreateLink)
			links.Get("/", h.ListLinks)
			links.Delete("/", h.ClearLinks)
			links.Get("/export", h.ExportLinks)
			links.Get("/:id", h.GetLink)
			links.Patch("/:id", h.UpdateLink)
			links.Delete("/:id", h.DeleteLink)
		}
		api.Get("/stats", h.Stats)
		api.Get("/theme", h.GetTheme)
		api.Put("/theme", h.SetTheme)
	}
}

// CreateLinkRequest represents the request body for creating a link. Field
// names follow the persisted record layout.
type CreateLinkRequest struct {
	URL        string     `json:"url"`
	CustomCode string     `json:"customDomain,omitempty"`
	Password   string     `json:"password,omitempty"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
	Category   string     `json:"category,omitempty"`
}

// LinkResponse is the outward shape of a link record. The password itself
// is never echoed back.
type LinkResponse struct {
	ID                string     `json:"id"`
	OriginalURL       string     `json:"originalUrl"`
	ShortCode         string     `json:"shortCode"`
	ShortURL          string     `json:"shortUrl"`
	CustomCode        string     `json:"customDomain,omitempty"`
	Category          string     `json:"category,omitempty"`
	ExpiryDate        *time.Time `json:"expiryDate,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	Clicks            int64      `json:"clicks"`
	Expired           bool       `json:"expired"`
	PasswordProtected bool       `json:"passwordProtected"`
}

func toLinkResponse(r model.LinkRecord) LinkResponse {
	return LinkResponse{
		ID:                r.ID,
		OriginalURL:       r.OriginalURL,
		ShortCode:         r.ShortCode,
		ShortURL:          r.ShortURL,
		CustomCode:        r.CustomCode,
		Category:          r.Category,
		ExpiryDate:        r.ExpiryDate,
		CreatedAt:         r.CreatedAt,
		Clicks:            r.Clicks,
		Expired:           service.IsExpired(r, time.Now()),
		PasswordProtected: r.Password != "",
	}
}

// CreateLink handles POST /api/links
func (h *APIHandler) CreateLink(c *fiber.Ctx) error {
	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "url is required",
		})
	}

	link, err := h.links.Create(h.ctx(c), service.CreateLinkInput{
		URL:        req.URL,
		CustomCode: req.CustomCode,
		Password:   req.Password,
		ExpiryDate: req.ExpiryDate,
		Category:   req.Category,
	})
	if err != nil {
		return h.fail(c, "failed to create link", err)
	}

	return c.Status(fiber.StatusCreated).JSON(toLinkResponse(*link))
}

// ListLinks handles GET /api/links
func (h *APIHandler) ListLinks(c *fiber.Ctx) error {
	links, err := h.links.Filtered(h.ctx(c), c.Query("category"))
	if err != nil {
		return h.fail(c, "failed to list links", err)
	}

	response := make([]LinkResponse, len(links))
	for i, link := range links {
		response[i] = toLinkResponse(link)
	}

	return c.JSON(fiber.Map{
		"links": response,
		"count": len(response),
	})
}

// GetLink handles GET /api/links/:id
func (h *APIHandler) GetLink(c *fiber.Ctx) error {
	link, err := h.links.Get(h.ctx(c), c.Params("id"))
	if err != nil {
		return h.fail(c, "failed to load link", err)
	}
	return c.JSON(toLinkResponse(*link))
}

// UpdateLinkRequest represents the request body for updating a link.
type UpdateLinkRequest struct {
	URL        *string    `json:"url,omitempty"`
	CustomCode *string    `json:"customDomain,omitempty"`
	Password   *string    `json:"password,omitempty"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
	Category   *string    `json:"category,omitempty"`
}

// UpdateLink handles PATCH /api/links/:id
func (h *APIHandler) UpdateLink(c *fiber.Ctx) error {
	var req UpdateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	link, err := h.links.Update(h.ctx(c), c.Params("id"), service.UpdateLinkInput{
		URL:        req.URL,
		CustomCode: req.CustomCode,
		Password:   req.Password,
		ExpiryDate: req.ExpiryDate,
		Category:   req.Category,
	})
	if err != nil {
		return h.fail(c, "failed to update link", err)
	}

	return c.JSON(toLinkResponse(*link))
}

// DeleteLink handles DELETE /api/links/:id
func (h *APIHandler) DeleteLink(c *fiber.Ctx) error {
	if err := h.links.Delete(h.ctx(c), c.Params("id")); err != nil {
		return h.fail(c, "failed to delete link", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ClearLinks handles DELETE /api/links
func (h *APIHandler) ClearLinks(c *fiber.Ctx) error {
	if err := h.links.ClearAll(h.ctx(c)); err != nil {
		return h.fail(c, "failed to clear links", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ExportLinks handles GET /api/links/export
func (h *APIHandler) ExportLinks(c *fiber.Ctx) error {
	records, err := h.links.Export(h.ctx(c))
	if err != nil {
		return h.fail(c, "failed to export links", err)
	}

	filename := fmt.Sprintf("shortlinks-%s.json", time.Now().UTC().Format("2006-01-02"))
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	return c.JSON(records)
}

// Stats handles GET /api/stats
func (h *APIHandler) Stats(c *fiber.Ctx) error {
	summary, err := h.stats.Summary(h.ctx(c), c.Query("category"))
	if err != nil {
		return h.fail(c, "failed to compute stats", err)
	}
	return c.JSON(summary)
}

// GetTheme handles GET /api/theme
func (h *APIHandler) GetTheme(c *fiber.Ctx) error {
	theme, err := h.prefs.Theme(h.ctx(c))
	if err != nil {
		return h.fail(c, "failed to load theme", err)
	}
	return c.JSON(fiber.Map{"theme": theme})
}

// SetTheme handles PUT /api/theme
func (h *APIHandler) SetTheme(c *fiber.Ctx) error {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Theme != model.ThemeLight && req.Theme != model.ThemeDark {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "theme must be light or dark",
		})
	}
	if err := h.prefs.SetTheme(h.ctx(c), req.Theme); err != nil {
		return h.fail(c, "failed to save theme", err)
	}
	return c.JSON(fiber.Map{"theme": req.Theme})
}

func (h *APIHandler) ctx(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// fail maps service errors onto HTTP statuses; validation failures surface
// as a single user-facing message.
func (h *APIHandler) fail(c *fiber.Ctx, msg string, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidURL),
		errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrCodeSpaceExhausted):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, repository.ErrLinkNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "link not found",
		})
	default:
		h.logger.Error(msg, zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": msg,
		})
	}
}
