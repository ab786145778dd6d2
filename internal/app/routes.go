package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subsight/core/internal/middleware"
	"github.com/subsight/core/internal/modules/identity"
	"github.com/subsight/core/internal/modules/insight"
	"github.com/subsight/core/internal/modules/reddit"
	pkgredis "github.com/subsight/core/internal/pkg/redis"
	"github.com/subsight/core/internal/pkg/response"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(rc *pkgredis.Client) error {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Not found")
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":    "subsight",
		"version": "1.0.0",
	}

	// Duplicate-submit guard for clients that send an idempotence key
	// (requires Redis).
	r.Use(middleware.Idempotence(rc.Raw()))

	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth(db))
	api.Use(middleware.HTTPCache(rc.Raw(), middleware.HTTPCacheOptions{
		TTL:       15 * time.Second,
		Disable:   a.cfg.IsDev(),
		SkipPaths: httpCacheSkipPaths(apiPrefix),
	}))

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		uptimeMs := a.uptime().Milliseconds()
		c.JSON(http.StatusOK, gin.H{
			"timestamp": uptimeMs,
			"humanize":  (time.Duration(uptimeMs) * time.Millisecond).String(),
		})
	})

	generator, err := insight.NewGenerator(a.cfg.AI)
	if err != nil {
		return fmt.Errorf("ai generator: %w", err)
	}
	extractor := insight.NewExtractor(generator)

	fetcher := reddit.NewClient(a.cfg.Reddit, rc, &http.Client{
		Timeout: time.Duration(a.cfg.Reddit.TimeoutSecs) * time.Second,
	}, a.logger)

	idSvc := identity.NewService(db)
	identity.NewHandler(idSvc, db).RegisterRoutes(api, authMW)

	insightSvc := insight.NewService(db, idSvc)
	insight.NewHandler(fetcher, extractor, insightSvc, a.logger).RegisterRoutes(api, authMW)

	return nil
}

func httpCacheSkipPaths(prefix string) []string {
	return []string{
		prefix + "/uptime",
	}
}
