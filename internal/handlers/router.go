package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rentamate/booking-backend/internal/config"
	"github.com/rentamate/booking-backend/internal/metrics"
	"github.com/rentamate/booking-backend/internal/middleware"
	"github.com/rentamate/booking-backend/internal/models"
	"github.com/rentamate/booking-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
)

// RouterDeps is everything the HTTP surface needs
type RouterDeps struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	JWT      *jwt.Service
	Bookings *BookingHandler
	Profiles *MateProfileHandler
	Webhooks *WebhookHandler
	Health   *HealthHandler
}

// NewRouter builds the gin engine with middleware and every route registered
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(d.Logger))
	if d.Config.Metrics.Enabled {
		router.Use(middleware.PrometheusMiddleware(d.Metrics))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.CORS.AllowedOrigins,
		AllowMethods:     d.Config.CORS.AllowedMethods,
		AllowHeaders:     d.Config.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", d.Health.Health)

	if d.Config.Metrics.Enabled {
		gatherer := d.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		router.GET(d.Config.Metrics.Path,
			middleware.MetricsBasicAuth(d.Config.Metrics.User, d.Config.Metrics.Password),
			gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	{
		// Stripe authenticates itself with the signature header
		v1.POST("/webhooks/stripe", d.Webhooks.StripeWebhook)

		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware(d.JWT, d.Config.JWT.CookieName, d.Logger))

		renter := middleware.RequireRole(models.RoleRenter)
		mate := middleware.RequireRole(models.RoleMate)

		bookings := authed.Group("/bookings")
		{
			bookings.POST("", renter, d.Bookings.CreateBooking)
			bookings.GET("", d.Bookings.ListBookings)
			bookings.GET("/:id", d.Bookings.GetBooking)
			bookings.POST("/:id/accept", mate, d.Bookings.AcceptBooking)
			bookings.POST("/:id/reject", mate, d.Bookings.RejectBooking)
			bookings.POST("/:id/complete", mate, d.Bookings.CompleteBooking)
			bookings.POST("/:id/rating", renter, d.Bookings.SubmitRating)
		}

		authed.GET("/checkout/:id", renter, d.Bookings.Checkout)

		profile := authed.Group("/mate-profile", mate)
		{
			profile.GET("", d.Profiles.GetProfile)
			profile.POST("", d.Profiles.UpsertProfile)
		}
	}

	return router
}
