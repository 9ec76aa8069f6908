package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"vendibook/internal/infra/config"
	"vendibook/internal/infra/obs"
)

type AvailabilityHTTP interface {
	Calendar(c *gin.Context)
	Slots(c *gin.Context)
	Hours(c *gin.Context)
}

type ListingHTTP interface {
	Get(c *gin.Context)
	Quote(c *gin.Context)
}

type CheckoutHTTP interface {
	Start(c *gin.Context)
	Get(c *gin.Context)
	Business(c *gin.Context)
	Document(c *gin.Context)
	Selection(c *gin.Context)
	Fulfillment(c *gin.Context)
	Step(c *gin.Context)
	Submit(c *gin.Context)
}

type HostListingHTTP interface {
	Create(c *gin.Context)
	UpdateInventory(c *gin.Context)
	Activate(c *gin.Context)
	Suspend(c *gin.Context)
	Block(c *gin.Context)
	Release(c *gin.Context)
}

type HostBookingHTTP interface {
	Approve(c *gin.Context)
	Decline(c *gin.Context)
}

type ReservationHTTP interface {
	List(c *gin.Context)
	Cancel(c *gin.Context)
	RetryPayment(c *gin.Context)
}

type Handlers struct {
	Availability   AvailabilityHTTP
	Listing        ListingHTTP
	Checkout       CheckoutHTTP
	HostListing    HostListingHTTP
	HostBooking    HostBookingHTTP
	Reservation    ReservationHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine with every configured route group.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", IdempotencyKeyHeader, obs.RequestIDHeader, obs.TraceParentHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Listing != nil {
		api.GET("/listings/:id", h.Listing.Get)
		api.GET("/listings/:id/quote", h.Listing.Quote)
	}
	if h.Availability != nil {
		api.GET("/listings/:id/calendar", h.Availability.Calendar)
		api.GET("/listings/:id/slots", h.Availability.Slots)
		api.GET("/listings/:id/hours", h.Availability.Hours)
	}
	if h.Checkout != nil {
		checkout := api.Group("/checkout")
		checkout.POST("", h.Checkout.Start)
		checkout.GET("/:id", h.Checkout.Get)
		checkout.PUT("/:id/business", h.Checkout.Business)
		checkout.POST("/:id/documents", h.Checkout.Document)
		checkout.PUT("/:id/selection", h.Checkout.Selection)
		checkout.PUT("/:id/fulfillment", h.Checkout.Fulfillment)
		checkout.POST("/:id/steps/:step", h.Checkout.Step)
		checkout.POST("/:id/submit", h.Checkout.Submit)
	}
	if h.HostListing != nil {
		hostGroup := api.Group("/host/listings")
		hostGroup.POST("", h.HostListing.Create)
		hostGroup.PUT("/:id/inventory", h.HostListing.UpdateInventory)
		hostGroup.POST("/:id/activate", h.HostListing.Activate)
		hostGroup.POST("/:id/suspend", h.HostListing.Suspend)
		hostGroup.POST("/:id/blocks", h.HostListing.Block)
		hostGroup.DELETE("/:id/blocks/:ref", h.HostListing.Release)
	}
	if h.HostBooking != nil {
		api.POST("/host/reservations/:id/approve", h.HostBooking.Approve)
		api.POST("/host/reservations/:id/decline", h.HostBooking.Decline)
	}
	if h.Reservation != nil {
		api.GET("/reservations", h.Reservation.List)
		api.POST("/reservations/:id/cancel", h.Reservation.Cancel)
		api.POST("/reservations/:id/retry-payment", h.Reservation.RetryPayment)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
