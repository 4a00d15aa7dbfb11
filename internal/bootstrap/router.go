package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	httpapi "github.com/tasklane/tasklane-backend/internal/api/http"
	"github.com/tasklane/tasklane-backend/internal/api/http/middleware"
	authhttp "github.com/tasklane/tasklane-backend/internal/auth/http"
	authmw "github.com/tasklane/tasklane-backend/internal/auth/middleware"
	"github.com/tasklane/tasklane-backend/internal/metrics"
	"github.com/tasklane/tasklane-backend/internal/users"
	"github.com/tasklane/tasklane-backend/internal/workspace"
	workspacehttp "github.com/tasklane/tasklane-backend/internal/workspace/http"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	AllowedOrigins []string
	Store          httpapi.StoreCheck
	DB             *pgxpool.Pool
	Verifier       authmw.TokenVerifier
	Hub            *workspace.Hub
	Users          *users.Repo
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(metrics.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Store, dep.DB)
	healthHandler.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api/v1")
	api.Use(authmw.FirebaseAuthMiddleware(dep.Verifier))

	var directory authhttp.Directory
	if dep.Users != nil {
		directory = dep.Users
	}
	authhttp.New(dep.Hub, directory).Register(api)
	workspacehttp.New(dep.Hub).Register(api)

	return r
}
