package api

import (
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/mkarlsen/signupd/internal/app"
	"github.com/mkarlsen/signupd/internal/handlers"
	"github.com/mkarlsen/signupd/internal/middleware"
	"github.com/mkarlsen/signupd/web"
)

// RouterOptions bundles the dependencies the router wires together.
type RouterOptions struct {
	Config *app.Config
	DB     *gorm.DB
	Auth   *handlers.AuthHandler
}

// NewRouter assembles the gin engine: middleware chain, auth endpoints,
// health and metrics, and the embedded signup form as the SPA fallback.
func NewRouter(opts RouterOptions) (*gin.Engine, error) {
	if opts.Config == nil {
		return nil, errors.New("router: config is required")
	}
	if opts.Auth == nil {
		return nil, errors.New("router: auth handler is required")
	}

	r := gin.New()
	r.Use(
		middleware.Recovery(),
		middleware.Logger(),
		middleware.Metrics(),
		middleware.SecurityHeaders(),
		middleware.CORS(),
	)

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", opts.Auth.Register)
		authGroup.POST("/google", opts.Auth.GoogleSignIn)
		authGroup.POST("/check-email", opts.Auth.CheckEmail)
		authGroup.POST("/send-verification", opts.Auth.SendVerificationCode)
		authGroup.POST("/verify-email", opts.Auth.VerifyEmail)
	}

	r.GET("/health", handlers.Health(opts.DB))

	if opts.Config.Monitoring.Prometheus.Enabled {
		endpoint := opts.Config.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	assets, err := web.Dist()
	if err != nil {
		return nil, err
	}
	registerSPA(r, assets)

	return r, nil
}

// registerSPA serves the embedded frontend for every non-API route, falling
// back to index.html so client-side routing keeps working on deep links.
func registerSPA(r *gin.Engine, assets fs.FS) {
	fileServer := http.FileServer(http.FS(assets))

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			middleware.NotFoundHandler(c)
			return
		}

		path := strings.TrimPrefix(c.Request.URL.Path, "/")
		if path != "" {
			if _, err := fs.Stat(assets, path); err == nil {
				fileServer.ServeHTTP(c.Writer, c.Request)
				return
			}
		}

		c.Request.URL.Path = "/"
		fileServer.ServeHTTP(c.Writer, c.Request)
	})
}
