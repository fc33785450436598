package web

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noahxzhu/contract-reminder/internal/credential"
	"github.com/noahxzhu/contract-reminder/internal/notify"
	"github.com/noahxzhu/contract-reminder/internal/reminder"
	"github.com/noahxzhu/contract-reminder/internal/storage"
)

const defaultWindowDays = 15

type Server struct {
	store      storage.Store
	engine     *reminder.Engine
	resolver   *credential.Resolver
	dispatcher *notify.Dispatcher
	router     *gin.Engine
	logger     *slog.Logger

	windowDays int
	apiToken   string
}

type Option func(*Server)

// WithWindowDays sets the window used when a request omits window_days.
func WithWindowDays(days int) Option {
	return func(s *Server) {
		s.windowDays = days
	}
}

// WithAPIToken protects every /api route except ping with a shared token.
func WithAPIToken(token string) Option {
	return func(s *Server) {
		s.apiToken = token
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(store storage.Store, engine *reminder.Engine, resolver *credential.Resolver, dispatcher *notify.Dispatcher, opts ...Option) *Server {
	s := &Server{
		store:      store,
		engine:     engine,
		resolver:   resolver,
		dispatcher: dispatcher,
		router:     gin.New(),
		logger:     slog.Default(),
		windowDays: defaultWindowDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(Recovery(s.logger), RequestID(), RequestLogger(s.logger), Metrics())

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	api.GET("/ping", s.handlePing)

	protected := api.Group("", APIToken(s.apiToken))

	vendors := protected.Group("/vendors")
	vendors.GET("", s.handleListVendors)
	vendors.POST("", s.handleCreateVendor)
	vendors.GET("/:id", s.handleGetVendor)
	vendors.PUT("/:id", s.handleUpdateVendor)
	vendors.DELETE("/:id", s.handleDeleteVendor)

	services := protected.Group("/services")
	services.GET("", s.handleListContracts)
	services.POST("", s.handleCreateContract)
	services.GET("/expiring-soon", s.handleDueSoon(reminder.FieldExpiry))
	services.GET("/payment-due", s.handleDueSoon(reminder.FieldPayment))
	services.GET("/reminders", s.handleReminders)
	services.GET("/reminders/report", s.handleReport)
	services.POST("/reminders/send-emails", s.handleSendEmails)
	services.GET("/reminders/email-logs", s.handleEmailLogs)
	services.GET("/:id", s.handleGetContract)
	services.PUT("/:id", s.handleUpdateContract)
	services.DELETE("/:id", s.handleDeleteContract)
	services.POST("/:id/update-status", s.handleUpdateContractStatus)

	creds := protected.Group("/email-credentials")
	creds.GET("", s.handleListCredentials)
	creds.POST("", s.handleCreateCredential)
	creds.GET("/active", s.handleActiveCredential)
	creds.GET("/:id", s.handleGetCredential)
	creds.PUT("/:id", s.handleUpdateCredential)
	creds.DELETE("/:id", s.handleDeleteCredential)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
