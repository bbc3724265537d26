package routes

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"wedding-backend/controllers"
	"wedding-backend/middleware"
)

func parseCorsOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS"))
	if raw == "" {
		return []string{"*"}
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func SetupRouter(
	gc *controllers.GiftController,
	rc *controllers.RsvpController,
	hc *controllers.HoneymoonController,
	pc *controllers.PaymentController,
	ac *controllers.AdminController,
	log zerolog.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(log), gin.Recovery())

	origins := parseCorsOrigins()
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-Admin-Secret"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		gifts := api.Group("/gifts")
		{
			gifts.GET("/:tipo", gc.GetGifts)
			gifts.POST("/:tipo/reserve", gc.Reserve)
			gifts.POST("/:tipo/cancel", gc.CancelReservation)
			gifts.POST("/:tipo/purchase", gc.MarkPurchased)
		}

		rsvp := api.Group("/rsvp")
		{
			rsvp.POST("/:tipo", rc.Create)
		}

		honeymoon := api.Group("/honeymoon")
		{
			honeymoon.GET("/status", hc.Status)
		}

		payments := api.Group("/payments")
		{
			payments.POST("/preference", pc.CreatePreference)
		}
		api.POST("/webhooks/mercadopago", pc.Webhook)

		// Deploy-hook endpoint, guarded by its own secret in the body.
		api.POST("/revalidate", ac.Revalidate)

		admin := api.Group("/admin", middleware.AdminAuth())
		{
			admin.GET("/rsvp/:tipo", rc.List)
			admin.POST("/payments/approve-pending", ac.ApprovePending)
			admin.POST("/gifts/release-expired", ac.ReleaseExpired)
			admin.POST("/honeymoon/reconcile", ac.Reconcile)
		}
	}

	return r
}
