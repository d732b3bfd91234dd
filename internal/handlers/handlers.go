package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Veein-web/AI-Background-Remover/internal/config"
	"github.com/Veein-web/AI-Background-Remover/internal/flash"
	"github.com/Veein-web/AI-Background-Remover/internal/middleware"
	"github.com/Veein-web/AI-Background-Remover/internal/models"
	"github.com/Veein-web/AI-Background-Remover/internal/oauth"
	"github.com/Veein-web/AI-Background-Remover/internal/service"
	"github.com/Veein-web/AI-Background-Remover/internal/staging"
)

type Authenticator interface {
	middleware.PrincipalResolver
	Signup(ctx context.Context, input service.SignupInput) (models.User, error)
	Login(ctx context.Context, input service.LoginInput) (models.User, error)
	FederatedLogin(ctx context.Context, identity oauth.Identity) (models.User, bool, error)
	StartSession(ctx context.Context, user models.User, meta service.SessionMeta) (service.SessionToken, error)
	Logout(ctx context.Context, sessionID string) error
}

type ImageProcessor interface {
	Process(ctx context.Context, owner models.User, filename string, data []byte) (service.ProcessResult, error)
	Recent(ctx context.Context, owner models.User, limit int) ([]models.Image, error)
}

type Downloader interface {
	Download(ctx context.Context, account models.User, processedName, tierKey string) (service.Delivery, error)
}

// HealthCheck reports on one backing dependency.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type Deps struct {
	Log      zerolog.Logger
	Config   *config.AppConfig
	Auth     Authenticator
	Images   ImageProcessor
	Delivery Downloader
	Area     staging.Area
	Google   oauth.Provider // nil disables federated login
	States   oauth.StateStore
	Checks   []HealthCheck
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     Authenticator
	images   ImageProcessor
	delivery Downloader
	area     staging.Area
	google   oauth.Provider
	states   oauth.StateStore
	checks   []HealthCheck
}

func NewHandlerSet(deps Deps) HandlerSet {
	return HandlerSet{
		log:      deps.Log,
		cfg:      deps.Config,
		auth:     deps.Auth,
		images:   deps.Images,
		delivery: deps.Delivery,
		area:     deps.Area,
		google:   deps.Google,
		states:   deps.States,
		checks:   deps.Checks,
	}
}

func (h HandlerSet) Register(engine *gin.Engine) {
	engine.GET("/healthz", h.Health)

	engine.Use(
		middleware.CSRF(h.cfg.Security.SessionSecret, h.cfg.Security.CookieSecure),
		middleware.Session(h.auth, h.log),
	)

	engine.GET("/", h.Index)
	engine.GET("/login", h.LoginPage)
	engine.POST("/login", h.Login)
	engine.GET("/signup", h.SignupPage)
	engine.POST("/signup", h.Signup)
	engine.GET("/login/google", h.GoogleLogin)
	engine.GET("/login/google/authorized", h.GoogleCallback)

	authed := engine.Group("/", middleware.RequireLogin())
	{
		authed.GET("/logout", h.Logout)
		authed.GET("/remove", h.RemovePage)
		authed.POST("/remove", h.Upload)
		authed.GET("/media/:namespace/:filename", h.Media)
		authed.GET("/download/:filename/:quality", h.Download)
		authed.GET("/pricing", h.Pricing)
	}
}

func (h HandlerSet) render(c *gin.Context, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if p, ok := middleware.CurrentPrincipal(c); ok {
		data["Principal"] = &p
	}
	data["Flashes"] = flash.Pop(c)
	data["CSRF"] = middleware.CSRFToken(c)
	data["GoogleEnabled"] = h.google != nil
	c.HTML(http.StatusOK, name, data)
}

// redirect answers a form post or failed action with a GET of location.
func redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusSeeOther, location)
}

func principal(c *gin.Context) service.Principal {
	p, _ := middleware.CurrentPrincipal(c)
	return p
}
