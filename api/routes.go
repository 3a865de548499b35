package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spektr-org/myriad/engine"
)

// SetupRoutes registers every explorer route on router.
func SetupRoutes(router *gin.Engine, s *engine.Session) {
	router.GET("/health", HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api")
	{
		v1.GET("/dimensions", ListDimensions(s))
		v1.POST("/refresh", RefreshMetadata(s))
		v1.POST("/selections/:dimension", UpdateSelection(s))
		v1.POST("/selections/:dimension/propose", ProposeValue(s))
		v1.POST("/query", RunQuery(s))
		v1.GET("/results", GetResults(s))
		v1.GET("/results/:row/cluster", GetCluster(s))
		v1.POST("/results/:row/property", EditProperty(s))
		v1.GET("/events", DrainEvents(s))
	}
}

// NewRouter returns a gin engine with recovery and every route registered.
func NewRouter(s *engine.Session) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	SetupRoutes(router, s)
	return router
}
