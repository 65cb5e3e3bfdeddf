package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nikhilkumar000/Intern/internal/api/handlers"
	"github.com/nikhilkumar000/Intern/internal/api/middleware"
	"github.com/nikhilkumar000/Intern/internal/metrics"
)

type Deps struct {
	Call       *handlers.CallHandler
	Transcript *handlers.TranscriptHandler
	WS         *handlers.WSHandler
	JWTSecret  string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET(metrics.Path(), gin.WrapH(metrics.Handler()))

	// Live channel. Parties register over the socket itself.
	r.GET("/ws", d.WS.Serve)

	call := r.Group("/call")
	call.Use(middleware.OptionalJWT(d.JWTSecret))
	{
		call.POST("/start", d.Call.Start)
		call.PUT("/end", d.Call.End)
		call.PUT("/status", d.Call.SetStatus)
		call.GET("/online-experts", d.Call.OnlineExperts)
		call.POST("/transcript/add-chunk", d.Transcript.AddChunk)
		call.GET("/fulltranscript/:callId", d.Transcript.Full)
		call.GET("/history", middleware.JWTAuth(d.JWTSecret), d.Call.History)
		call.GET("/:callId", d.Call.Get)
	}

	admin := r.Group("/admin")
	admin.Use(middleware.JWTAuth(d.JWTSecret), middleware.RequireAdmin())
	admin.GET("/calls", d.Call.AdminList)
}
