package app

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ridedispatch/internal/auth"
	"ridedispatch/internal/handler"
	"ridedispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler    *handler.RideHandler
	PaymentHandler *handler.PaymentHandler
	MapsHandler    *handler.MapsHandler
	DriverHandler  *handler.DriverHandler
	UserHandler    *handler.UserHandler
	AuthHandler    *handler.AuthHandler
	WSHandler      *handler.WSHandler

	TokenParser middleware.TokenParser
	Denylist    middleware.Denylist
	RedisClient *redis.Client
	NewRelicApp *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(cors.Default())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.Idempotency(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authRequired := middleware.AuthMiddleware(deps.TokenParser, deps.Denylist)
	driverOnly := middleware.RequireRole(auth.RoleDriver)
	riderOnly := middleware.RequireRole(auth.RoleRider)

	v1 := router.Group("/v1")
	{
		// Registration is open; it returns the bearer token everything
		// else requires.
		v1.POST("/users/register", deps.UserHandler.Register)
		v1.POST("/drivers/register", deps.DriverHandler.Register)

		v1.POST("/auth/logout", authRequired, deps.AuthHandler.Logout)

		v1.GET("/ws", authRequired, deps.WSHandler.Connect)

		users := v1.Group("/users", authRequired)
		{
			users.GET("/:id", deps.UserHandler.Get)
			users.PUT("/fcm-token", deps.UserHandler.UpdateFCMToken)
		}

		drivers := v1.Group("/drivers", authRequired)
		{
			drivers.GET("", deps.DriverHandler.GetAll)
			drivers.GET("/:id", deps.DriverHandler.Get)
			drivers.PUT("/fcm-token", driverOnly, deps.DriverHandler.UpdateFCMToken)
			drivers.POST("/location", driverOnly, deps.DriverHandler.UpdateLocation)
		}

		rides := v1.Group("/rides", authRequired)
		{
			rides.POST("", riderOnly, deps.RideHandler.CreateRide)
			rides.GET("", deps.RideHandler.GetAll)
			rides.GET("/quote", deps.RideHandler.QuoteFare)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.POST("/:id/confirm", driverOnly, deps.RideHandler.ConfirmRide)
			rides.POST("/:id/start", driverOnly, deps.RideHandler.StartRide)
			rides.POST("/:id/end", driverOnly, deps.RideHandler.EndRide)
			rides.POST("/:id/payment/order", riderOnly, deps.PaymentHandler.CreateOrder)
			rides.POST("/:id/payment/verify", riderOnly, deps.PaymentHandler.VerifyPayment)
		}

		maps := v1.Group("/maps", authRequired)
		{
			maps.GET("/geocode", deps.MapsHandler.Geocode)
			maps.GET("/reverse", deps.MapsHandler.ReverseGeocode)
			maps.GET("/suggestions", deps.MapsHandler.Suggestions)
			maps.GET("/distance", deps.MapsHandler.Distance)
			maps.GET("/route", deps.MapsHandler.Route)
		}
	}

	return router
}
