// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"homeswitch/internal/delivery/api/router/handler"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	ControllerHandler *handler.ControllerHandler
	CommandHandler    *handler.CommandHandler
	UserHandler       *handler.UserHandler
	DeviceHandler     *handler.DeviceHandler
	AlertHandler      *handler.AlertHandler
	PushTokenHandler  *handler.PushTokenHandler
	RealtimeHandler   *handler.RealtimeHandler
}

// router holds all the handlers that need to be registered.
type router struct {
	controllerHandler *handler.ControllerHandler
	commandHandler    *handler.CommandHandler
	userHandler       *handler.UserHandler
	deviceHandler     *handler.DeviceHandler
	alertHandler      *handler.AlertHandler
	pushTokenHandler  *handler.PushTokenHandler
	realtimeHandler   *handler.RealtimeHandler
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		controllerHandler: params.ControllerHandler,
		commandHandler:    params.CommandHandler,
		userHandler:       params.UserHandler,
		deviceHandler:     params.DeviceHandler,
		alertHandler:      params.AlertHandler,
		pushTokenHandler:  params.PushTokenHandler,
		realtimeHandler:   params.RealtimeHandler,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/ws", r.realtimeHandler.Subscribe)

	apiV1 := e.Group("/api/v1")

	// Field controller endpoints
	controllersGroup := apiV1.Group("/controllers")
	{
		controllersGroup.POST("/register", r.controllerHandler.RegisterController)
		controllersGroup.GET("/:controllerId/commands", r.controllerHandler.PollCommands)
		controllersGroup.POST("/:controllerId/status", r.controllerHandler.ReportStatus)
		controllersGroup.POST("/:controllerId/alerts", r.controllerHandler.RaiseAlert)
	}

	commandsGroup := apiV1.Group("/commands")
	{
		commandsGroup.GET("/:commandId", r.commandHandler.CommandStatus)
		commandsGroup.POST("/:commandId/result", r.commandHandler.ReportOutcome)
	}

	usersGroup := apiV1.Group("/users")
	{
		usersGroup.POST("/onboarding", r.userHandler.Onboarding)
		usersGroup.PUT("/profile", r.userHandler.UpdateProfile)
		usersGroup.POST("/phone", r.userHandler.VerifyPhone)
	}

	apiV1.POST("/rooms", r.userHandler.CreateRoom)

	devicesGroup := apiV1.Group("/devices")
	{
		devicesGroup.GET("", r.deviceHandler.ListDevices)
		devicesGroup.POST("/pair", r.deviceHandler.PairDevice)
		devicesGroup.POST("/pair/qr", r.deviceHandler.PairFromQR)
		devicesGroup.DELETE("/:deviceId", r.deviceHandler.UnpairDevice)
		devicesGroup.GET("/:deviceId/pairing-qr", r.deviceHandler.PairingQR)
		devicesGroup.POST("/:deviceId/commands", r.commandHandler.SubmitCommand)
	}

	apiV1.POST("/emergency/shutdown", r.commandHandler.EmergencyShutdown)

	alertsGroup := apiV1.Group("/alerts")
	{
		alertsGroup.GET("", r.alertHandler.ListAlerts)
		alertsGroup.POST("/:alertId/dismiss", r.alertHandler.DismissAlert)
	}

	apiV1.GET("/activity", r.alertHandler.ListActivity)

	pushTokensGroup := apiV1.Group("/push-tokens")
	{
		pushTokensGroup.POST("", r.pushTokenHandler.RegisterPushToken)
		pushTokensGroup.DELETE("/:id", r.pushTokenHandler.DeactivatePushToken)
	}
}
