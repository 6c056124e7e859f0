package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yoockh/lingualink/config"
	"github.com/yoockh/lingualink/internal/api/handlers"
	"github.com/yoockh/lingualink/internal/api/middleware"
	"github.com/yoockh/lingualink/internal/api/routes"
	"github.com/yoockh/lingualink/internal/bridge"
	"github.com/yoockh/lingualink/internal/cache"
	"github.com/yoockh/lingualink/internal/logger"
	"github.com/yoockh/lingualink/internal/models"
	mongorepo "github.com/yoockh/lingualink/internal/repositories/mongo"
	pgrepo "github.com/yoockh/lingualink/internal/repositories/postgres"
	"github.com/yoockh/lingualink/internal/services"
	"github.com/yoockh/lingualink/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("postgres init failed")
	}
	log.Info("postgres connected")

	if err := config.InitRedis(); err != nil {
		log.WithError(err).Fatal("redis init failed")
	}
	log.Info("redis connected")

	if err := config.InitMongo(); err != nil {
		log.WithError(err).Fatal("mongo init failed")
	}
	log.Info("mongo connected")

	if err := config.PostgresDB.AutoMigrate(&models.CallSession{}, &models.AgentPresence{}); err != nil {
		log.WithError(err).Fatal("automigrate failed")
	}

	callRepo := pgrepo.NewCallSessionRepo(config.PostgresDB)
	presenceRepo := pgrepo.NewPresenceRepo(config.PostgresDB)
	transcriptRepo := mongorepo.NewTranscriptRepo(config.MongoDatabase())

	registry := bridge.NewRegistry()
	bridgeWorker := &workers.BridgeWorker{
		Transcripts: transcriptRepo,
		Redis:       config.RedisClient,
		Registry:    registry,
		Deps: bridge.Deps{
			Tokens: &bridge.HTTPTokenSource{
				Endpoint: os.Getenv("BRIDGE_SESSIONS_URL"),
				APIKey:   os.Getenv("BRIDGE_API_KEY"),
			},
			Transport: &bridge.WSTransport{URL: os.Getenv("BRIDGE_WS_URL")},
			Logger:    log,
		},
		Logger: log,
	}

	calls := workers.NewBridgedCalls(
		services.NewCallService(callRepo, config.RedisClient, log),
		bridgeWorker,
	)
	presence := services.NewPresenceService(presenceRepo, services.DefaultFreshnessWindow)

	sweeper := &workers.ExpirySweeper{Calls: callRepo, Logger: log}
	go sweeper.Run(context.Background())

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Call:     handlers.NewCallHandler(calls, transcriptRepo),
		Presence: handlers.NewPresenceHandler(presence, cache.NewRedisCache(config.RedisClient)),
		WS:       handlers.NewWSHandler(calls, registry, config.RedisClient),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
