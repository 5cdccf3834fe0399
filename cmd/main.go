package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/poofware/apikey-service/internal/app"
	"github.com/poofware/apikey-service/internal/config"
	"github.com/poofware/apikey-service/internal/controllers"
	"github.com/poofware/apikey-service/internal/middleware"
	"github.com/poofware/apikey-service/internal/repositories"
	"github.com/poofware/apikey-service/internal/routes"
	"github.com/poofware/apikey-service/internal/services"
	"github.com/poofware/apikey-service/internal/utils"
)

const tokenCleanupTimeout = 2 * time.Minute

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize application:", err)
	}
	defer application.Close()

	//----------------------------------------------------------------------
	// Repositories
	//----------------------------------------------------------------------
	tokenRepo := repositories.NewTokenRepository(application.DB)

	//----------------------------------------------------------------------
	// Services
	//----------------------------------------------------------------------
	providerClient := services.NewProviderClient(cfg.Provider)
	apiKeyService := services.NewApiKeyService(tokenRepo, providerClient)
	tokenCleanupService := services.NewTokenCleanupService(tokenRepo)

	//----------------------------------------------------------------------
	// Controllers
	//----------------------------------------------------------------------
	apiKeyController := controllers.NewApiKeyController(apiKeyService)
	healthController := controllers.NewHealthController(application)

	//----------------------------------------------------------------------
	// Router & Endpoints
	//----------------------------------------------------------------------
	router := mux.NewRouter()

	// Health
	router.HandleFunc(routes.Health, healthController.HealthCheckHandler).Methods(http.MethodGet)

	// Protected endpoints require a valid access token
	secured := router.NewRoute().Subrouter()
	secured.Use(middleware.AuthMiddleware(cfg.RSAPublicKey))
	secured.HandleFunc(routes.ApiKeys, apiKeyController.CreateToken).Methods(http.MethodPost)
	secured.HandleFunc(routes.ApiKeys, apiKeyController.ListTokens).Methods(http.MethodGet)
	secured.HandleFunc(routes.ApiKeyRevoke, apiKeyController.RevokeToken).Methods(http.MethodPost)
	secured.HandleFunc(routes.ApiKeyByID, apiKeyController.GetToken).Methods(http.MethodGet)
	secured.HandleFunc(routes.ApiKeyByID, apiKeyController.DeleteToken).Methods(http.MethodDelete)

	//----------------------------------------------------------------------
	// Daily cleanup of expired tokens via cron
	//----------------------------------------------------------------------
	c := cron.New(cron.WithLocation(time.UTC))

	_, schErr := c.AddFunc("15 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), tokenCleanupTimeout)
		defer cancel()
		if e := tokenCleanupService.CleanupDaily(ctx); e != nil {
			utils.Logger.WithError(e).Error("Scheduled token cleanup failed")
		}
	})
	if schErr != nil {
		utils.Logger.WithError(schErr).Fatal("Failed to schedule token cleanup job")
	}

	c.Start()

	co := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AppUrl},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("Failed to start server:", err)
	}
}
