package apihandlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"folio/internal/app"
	"folio/internal/blog"
	"folio/internal/costtracker"
	"folio/internal/models"
	"folio/internal/services"
)

// ProjectAPI is the part of services.ProjectService the HTTP API drives.
type ProjectAPI interface {
	Snapshot() models.State
	Subscribe() (<-chan models.State, func())
	LoadAsync(ctx context.Context) (<-chan struct{}, error)
	UpdateCategories(id string, categories []models.Category) error
	DismissBanner(kind models.BannerKind)
}

// MetadataScraper extracts blog post metadata.
type MetadataScraper interface {
	Scrape(ctx context.Context, url string) blog.Metadata
}

type APIHandler struct {
	Projects ProjectAPI
	Blog     MetadataScraper
	Costs    costtracker.CostTracker

	// Background cycles outlive the request that started them.
	baseCtx context.Context
}

func NewAPIHandler(app *app.App) *APIHandler {
	h := &APIHandler{Projects: app.ProjectService, Costs: app.CostTracker, baseCtx: context.Background()}
	if app.BlogScraper != nil {
		h.Blog = app.BlogScraper
	}
	return h
}

// WithBaseContext sets the context background cycles run under, so they stop
// with the server.
func (h *APIHandler) WithBaseContext(ctx context.Context) *APIHandler {
	h.baseCtx = ctx
	return h
}

// projectView is a catalog entry as served to clients. Documentation is never displayed.
type projectView struct {
	models.CatalogEntry
	DisplayCategories []models.Category `json:"displayCategories"`
}

func toViews(entries []models.CatalogEntry) []projectView {
	out := make([]projectView, 0, len(entries))
	for _, e := range entries {
		e = e.Clone()
		e.Documentation = nil
		out = append(out, projectView{CatalogEntry: e, DisplayCategories: e.DisplayCategories()})
	}
	return out
}

type stateView struct {
	models.State
	Collection []projectView `json:"collection"`
}

func toStateView(s models.State) stateView {
	return stateView{State: s, Collection: toViews(s.Collection)}
}

// HealthHandler reports liveness.
func (h *APIHandler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListProjectsHandler serves one category tab. The category defaults to Featured.
func (h *APIHandler) ListProjectsHandler(c *gin.Context) {
	category, err := models.ParseCategory(c.DefaultQuery("category", string(models.CategoryFeatured)))
	if err != nil {
		RespondError(c, err)
		return
	}

	collection := h.Projects.Snapshot().Collection
	switch c.DefaultQuery("sort", "catalog") {
	case "catalog":
	case "stars":
		collection = services.SortByStars(collection)
	default:
		BadRequest(c, fmt.Sprintf("Invalid query parameters: unknown sort %q (catalog, stars)", c.Query("sort")))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category": category.Label(),
		"items":    toViews(services.ByCategory(collection, category)),
	})
}

// StateHandler returns the full observable state.
func (h *APIHandler) StateHandler(c *gin.Context) {
	c.JSON(http.StatusOK, toStateView(h.Projects.Snapshot()))
}

// EventsHandler streams state changes as Server-Sent Events until the client leaves.
func (h *APIHandler) EventsHandler(c *gin.Context) {
	updates, cancel := h.Projects.Subscribe()
	defer cancel()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case state, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("state", toStateView(state))
			return true
		}
	})
}

// RefreshHandler starts a load cycle in the background.
func (h *APIHandler) RefreshHandler(c *gin.Context) {
	if _, err := h.Projects.LoadAsync(h.baseCtx); err != nil {
		RespondError(c, err)
		return
	}
	state := h.Projects.Snapshot()
	c.JSON(http.StatusAccepted, gin.H{"cycleId": state.CycleID, "phase": state.Phase})
}

// DismissBannerHandler removes one banner kind.
func (h *APIHandler) DismissBannerHandler(c *gin.Context) {
	kind, ok := models.ParseBannerKind(c.Param("kind"))
	if !ok {
		BadRequest(c, fmt.Sprintf("Unknown banner kind: %s", c.Param("kind")))
		return
	}
	h.Projects.DismissBanner(kind)
	c.Status(http.StatusNoContent)
}

type updateCategoriesRequest struct {
	Categories []string `json:"categories" binding:"required"`
}

// UpdateCategoriesHandler replaces the categories of one project. This is the
// manual curation path, so Featured is accepted here.
func (h *APIHandler) UpdateCategoriesHandler(c *gin.Context) {
	var req updateCategoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	categories := make([]models.Category, 0, len(req.Categories))
	for _, raw := range req.Categories {
		cat, err := models.ParseCategory(raw)
		if err != nil {
			RespondError(c, err)
			return
		}
		categories = append(categories, cat)
	}

	if err := h.Projects.UpdateCategories(c.Param("id"), categories); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type categoryView struct {
	ID    models.Category `json:"id"`
	Label string          `json:"label"`
	Count int             `json:"count"`
}

// CategoriesHandler lists the tabs in order with their current sizes.
func (h *APIHandler) CategoriesHandler(c *gin.Context) {
	counts := services.CategoryCounts(h.Projects.Snapshot().Collection)
	items := make([]categoryView, 0, len(models.AllCategories()))
	for _, cat := range models.AllCategories() {
		items = append(items, categoryView{ID: cat, Label: cat.Label(), Count: counts[cat]})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// BlogMetaHandler returns image and date metadata for a blog post URL.
func (h *APIHandler) BlogMetaHandler(c *gin.Context) {
	if h.Blog == nil {
		NotFound(c, "Blog metadata is not enabled")
		return
	}
	raw := c.Query("url")
	u, err := url.Parse(raw)
	if raw == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		BadRequest(c, "Invalid query parameters: url must be an absolute http(s) URL")
		return
	}
	c.JSON(http.StatusOK, h.Blog.Scrape(c.Request.Context(), u.String()))
}

// CostHandler reports classification spend for this process.
func (h *APIHandler) CostHandler(c *gin.Context) {
	if h.Costs == nil {
		c.JSON(http.StatusOK, costtracker.Summary{})
		return
	}
	summary, err := h.Costs.Summary(c.Request.Context())
	if err != nil {
		Internal(c, fmt.Sprintf("CostHandler: failed to read cost summary: %v", err))
		return
	}
	c.JSON(http.StatusOK, summary)
}
