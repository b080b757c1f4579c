package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Douglasgls/zona-verde-api/internal/api/handler"
	"github.com/Douglasgls/zona-verde-api/internal/api/middleware"
	"github.com/Douglasgls/zona-verde-api/internal/domain"
	"github.com/Douglasgls/zona-verde-api/internal/service"
)

type RouterDeps struct {
	AuthService    *service.AuthService
	ParkingService *service.ParkingService
	PlateService   handler.PlateService
	Exporter       handler.PlateCheckExporter
	WSManager      *handler.WebSocketManager
	Logger         *zap.Logger
}

func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors())

	authMw := middleware.NewAuthMiddleware(deps.AuthService, deps.Logger)
	adminOnly := authMw.AuthorizeRole(domain.RoleAdmin)

	if deps.WSManager != nil {
		wsHandler := handler.NewWebSocketHandler(deps.WSManager)
		r.GET("/ws", wsHandler.HandleWebSocket)
	}

	authHandler := handler.NewAuthHandler(deps.AuthService, deps.Logger)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		v1.GET("/me", authHandler.Me)

		spotH := handler.NewSpotHandler(deps.ParkingService)
		plateH := handler.NewPlateHandler(deps.PlateService, deps.Exporter, deps.Logger)

		spotRoutes := v1.Group("/spots")
		{
			spotRoutes.POST("", adminOnly, spotH.CreateSpot)
			spotRoutes.GET("", spotH.GetAllSpots)
			spotRoutes.GET("/:id", spotH.GetSpotByID)
			spotRoutes.PUT("/:id", adminOnly, spotH.UpdateSpot)
			spotRoutes.DELETE("/:id", adminOnly, spotH.DeleteSpot)
			spotRoutes.POST("/:id/plate-checks", plateH.CheckSpot)
		}

		reservationH := handler.NewReservationHandler(deps.ParkingService)
		reservationRoutes := v1.Group("/reservations")
		{
			reservationRoutes.POST("", adminOnly, reservationH.CreateReservation)
			reservationRoutes.GET("", reservationH.FindReservations)
			reservationRoutes.GET("/:id", reservationH.GetReservationByID)
			reservationRoutes.PUT("/:id", adminOnly, reservationH.UpdateReservation)
			reservationRoutes.PATCH("/:id/status", adminOnly, reservationH.SetReservationStatus)
		}

		deviceH := handler.NewDeviceHandler(deps.ParkingService)
		deviceRoutes := v1.Group("/devices")
		deviceRoutes.Use(adminOnly)
		{
			deviceRoutes.POST("", deviceH.RegisterDevice)
			deviceRoutes.GET("", deviceH.GetAllDevices)
			deviceRoutes.GET("/:thing_name", deviceH.GetDeviceByThingName)
		}

		plateRoutes := v1.Group("/plates")
		{
			plateRoutes.POST("/recognize", plateH.Recognize)
			plateRoutes.POST("/compare", plateH.Compare)
		}

		checkRoutes := v1.Group("/plate-checks")
		{
			checkRoutes.GET("", plateH.ListChecks)
			checkRoutes.GET("/export", adminOnly, plateH.ExportChecks)
			checkRoutes.GET("/:id", plateH.GetCheck)
		}
	}
	return r
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
