package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/lumeshot/hero-optimizer/internal/api/handlers/hero"
	"github.com/lumeshot/hero-optimizer/internal/middleware"
)

func Setup(h *hero.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	api := r.Group("/api")

	api.POST("/hero", h.Upload) // uploading a new hero image
	api.GET("/hero", h.Current) // current hero manifest

	return r
}
