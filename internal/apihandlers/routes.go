package apihandlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the API on router.
func RegisterRoutes(router *gin.Engine, h *APIHandler) {
	router.GET("/health", h.HealthHandler)

	v1 := router.Group("/api/v1")
	{
		projects := v1.Group("/projects")
		{
			projects.GET("", h.ListProjectsHandler)
			projects.GET("/state", h.StateHandler)
			projects.GET("/events", h.EventsHandler)
			projects.POST("/refresh", h.RefreshHandler)
			projects.PUT("/:id/categories", h.UpdateCategoriesHandler)
			projects.DELETE("/banners/:kind", h.DismissBannerHandler)
		}
		v1.GET("/categories", h.CategoriesHandler)
		v1.GET("/blog/meta", h.BlogMetaHandler)
		v1.GET("/cost", h.CostHandler)
	}
}
