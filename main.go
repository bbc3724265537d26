package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"wedding-backend/config"
	"wedding-backend/controllers"
	"wedding-backend/routes"
	"wedding-backend/services"
	"wedding-backend/utils"
)

const cacheTTL = 5 * time.Minute

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("GIN_MODE") != "release" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg(".env not found, continuing with environment variables")
	}

	if err := config.ConnectDatabase(); err != nil {
		logger.Fatal().Err(err).Msg("database connect failed")
	}
	db := config.DB
	logger.Info().Msg("database connected and migrations applied")

	cache := utils.NewTagCache(cacheTTL)
	gateway := services.NewMercadoPagoClient()
	if !gateway.Enabled() {
		logger.Warn().Msg("MERCADOPAGO_ACCESS_TOKEN not set, payment endpoints disabled")
	}

	giftService := services.NewGiftService(db)
	rsvpService := services.NewRsvpService(db)
	honeymoonService := services.NewHoneymoonService(db)
	paymentService := services.NewPaymentService(db, gateway, giftService, honeymoonService, logger)

	giftController := controllers.NewGiftController(giftService, cache, logger)
	rsvpController := controllers.NewRsvpController(rsvpService, logger)
	honeymoonController := controllers.NewHoneymoonController(honeymoonService, cache, logger)
	paymentController := controllers.NewPaymentController(paymentService, cache, logger)
	adminController := controllers.NewAdminController(giftService, honeymoonService, paymentService, cache, logger)

	router := routes.SetupRouter(giftController, rsvpController, honeymoonController, paymentController, adminController, logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := ":" + port

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("forced shutdown")
	}

	logger.Info().Msg("server stopped")
}
