package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thereayou/talk-signaling/internal/middleware"
)

func APIEndpoints(r *gin.Engine, s *Server) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth endpoints
	auth := r.Group("/auth")
	{
		auth.POST("/register", s.AuthH.Register)
		auth.POST("/login", s.AuthH.Login)
		auth.POST("/logout", s.AuthH.Logout)
	}

	required := middleware.AuthMiddleware(s.JWTManager, s.Redis)
	optional := middleware.OptionalAuth(s.JWTManager, s.Redis)

	api := r.Group("/api/v1")
	{
		api.GET("/me", required, s.UserH.GetMe)

		call := api.Group("/call/:token", optional)
		{
			call.POST("", s.CallH.Join)
			call.GET("", s.CallH.Peers)
			call.DELETE("", s.CallH.Leave)
			call.POST("/ping", s.CallH.Ping)
		}

		api.POST("/signaling", s.SignalingH.Post)
		api.GET("/signaling", s.SignalingH.Pull)

		api.GET("/room", required, s.RoomH.GetMyRooms)
		api.POST("/room", required, s.RoomH.CreateRoom)
		api.GET("/room/:token", optional, s.RoomH.GetRoom)

		room := api.Group("/room/:token", required)
		{
			room.PUT("", s.RoomH.RenameRoom)
			room.DELETE("", s.RoomH.DeleteRoom)
			room.PUT("/type", s.RoomH.ChangeType)
			room.POST("/participants", s.RoomH.AddParticipants)
			room.DELETE("/participants/:userId", s.RoomH.RemoveParticipant)
			room.PUT("/participants/:userId/role", s.RoomH.SetParticipantRole)
		}

		chat := api.Group("/chat/:token", optional)
		{
			chat.POST("", s.ChatH.SendMessage)
			chat.GET("", s.ChatH.GetMessages)
		}
	}
}
