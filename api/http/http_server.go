package http

import (
	"ReviewQA/internal/modules/qa/application/service"
	qaHandler "ReviewQA/internal/modules/qa/interface/http"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewEngine builds the HTTP front door. The API only submits queries and
// reads results; all processing happens in the queue worker.
func NewEngine(querySvc service.QueryService) *gin.Engine {
	ge := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	ge.Use(cors.New(corsConfig))

	qaH := qaHandler.NewQAHandler(querySvc)

	ge.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	qa := ge.Group("/qa")
	qa.POST("/query/async", qaH.SubmitQuery)
	qa.GET("/query/:id", qaH.GetQuery)
	qa.GET("/escalations", qaH.ListEscalations)
	qa.POST("/escalations/:id/status", qaH.UpdateEscalationStatus)

	return ge
}
