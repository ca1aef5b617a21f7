package router

import (
	"fmt"
	"log/slog"
	"net/http"

	"studybud/internal/config"
	"studybud/internal/handlers"
	"studybud/internal/logging"
	"studybud/internal/middleware"
	"studybud/internal/services"
	"studybud/internal/utils"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const sessionName = "studybud_session"

// Services bundles the application services the routes depend on.
type Services struct {
	Forum         *services.ForumService
	Votes         *services.VoteService
	Scores        *services.ScoreService
	Subscriptions *services.SubscriptionService
	Accounts      *services.AccountService
	Notifications *services.NotificationService
	Tokens        *services.TokenService
}

// NewServices wires the services on top of gdb. The caller runs
// Scores.Run.
func NewServices(gdb *gorm.DB, cfg config.Config, logger *slog.Logger) (*Services, error) {
	cache, err := utils.NewCache(500)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	notifications := services.NewNotificationService(gdb, logger)
	scores := services.NewScoreService(gdb, cfg.ScoreFlushInterval, logger)
	return &Services{
		Forum:         services.NewForumService(gdb, notifications, cache, logger),
		Votes:         services.NewVoteService(gdb, scores, logger),
		Scores:        scores,
		Subscriptions: services.NewSubscriptionService(gdb, logger),
		Accounts:      services.NewAccountService(gdb, logger),
		Notifications: notifications,
		Tokens:        services.NewTokenService(cfg.JWTSecret, cfg.JWTTTL),
	}, nil
}

// New builds the engine with sessions, compression, templates and all
// routes.
func New(cfg config.Config, gdb *gorm.DB, svc *Services, logger *slog.Logger) (*gin.Engine, error) {
	logger = logging.Resolve(logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	tmpl, err := LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	r.HTMLRender = tmpl

	r.Use(middleware.LoadUser(gdb))

	RegisterRoutes(r, cfg, gdb, svc)
	return r, nil
}

func RegisterRoutes(r *gin.Engine, cfg config.Config, gdb *gorm.DB, svc *Services) {
	authHandler := handlers.NewAuthHandler(svc.Accounts)
	roomHandler := handlers.NewRoomHandler(svc.Forum, svc.Votes)
	voteHandler := handlers.NewVoteHandler(svc.Votes)
	topicHandler := handlers.NewTopicHandler(svc.Forum)
	userHandler := handlers.NewUserHandler(svc.Forum, svc.Accounts, svc.Subscriptions)
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications)
	seoHandler := handlers.NewSEOHandler(svc.Forum, cfg.SiteURL)
	apiHandler := handlers.NewAPIHandler(svc.Forum, svc.Votes, svc.Subscriptions, svc.Accounts, svc.Tokens)

	// Public routes
	r.GET("/topics", topicHandler.List)
	r.GET("/activity", roomHandler.Activity)
	r.GET("/u/:id", userHandler.Profile)
	r.GET("/robots.txt", seoHandler.RobotsTxt)
	r.GET("/sitemap.xml", seoHandler.SitemapXML)
	r.GET("/feed.xml", seoHandler.RSSFeed)

	r.GET("/register", authHandler.ShowRegister)
	r.POST("/register", authHandler.Register)
	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)
	r.POST("/logout", authHandler.Logout)

	// Protected routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/", roomHandler.Home)
		authorized.GET("/room/:id", roomHandler.Detail)
		authorized.POST("/room/:id", roomHandler.PostMessage)
		authorized.POST("/room/:id/vote", voteHandler.Vote)
		authorized.GET("/room/:id/edit", roomHandler.ShowEdit)
		authorized.POST("/room/:id/edit", roomHandler.Update)
		authorized.POST("/room/:id/delete", roomHandler.Delete)
		authorized.GET("/create-room", roomHandler.ShowCreate)
		authorized.POST("/create-room", roomHandler.Create)
		authorized.POST("/message/:id/delete", roomHandler.DeleteMessage)

		authorized.POST("/demo/subscribe", userHandler.Subscribe)
		authorized.POST("/demo/unsubscribe", userHandler.Unsubscribe)
		authorized.GET("/settings", userHandler.ShowSettings)
		authorized.POST("/settings", userHandler.UpdateSettings)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.POST("/notifications/:id/delete", notificationHandler.Delete)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
	}

	// JSON API
	api := r.Group("/api")
	api.POST("/token", apiHandler.Token)
	protected := api.Group("")
	protected.Use(middleware.APIAuth(svc.Tokens, gdb))
	{
		protected.GET("", apiHandler.Routes)
		protected.GET("/", apiHandler.Routes)
		protected.GET("/topics", apiHandler.Topics)
		protected.GET("/rooms", apiHandler.Rooms)
		protected.GET("/rooms/:id", apiHandler.Room)
		protected.GET("/rooms/:id/messages", apiHandler.Messages)
		protected.POST("/rooms/:id/messages", apiHandler.PostMessage)
		protected.POST("/rooms/:id/vote", apiHandler.Vote)
		protected.POST("/subscription", apiHandler.Subscribe)
		protected.DELETE("/subscription", apiHandler.Unsubscribe)
	}
}
