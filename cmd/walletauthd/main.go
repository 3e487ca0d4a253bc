package main

import (
	"log"

	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/driftmail/walletauth/adapters/credentials"
	"github.com/driftmail/walletauth/adapters/events"
	"github.com/driftmail/walletauth/adapters/store"
	"github.com/driftmail/walletauth/service"
	"github.com/driftmail/walletauth/transport/http"
)

func main() {
	cfg := LoadConfig()

	// Generate a new ECDSA key pair (you would normally load this from somewhere secure)
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(err)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}

	redisClient := redis.NewClient(opts)

	// Initialize Watermill Redis publisher
	logger := watermill.NewStdLogger(false, false)
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to create Redis publisher: %v", err)
	}

	redisStore := store.NewRedisStore(redisClient)
	issuer := credentials.NewJWTIssuer(signKey, redisStore, redisStore)
	eventPub := events.NewWatermillPublisher(publisher)

	authService := service.NewAuthService(redisStore, redisStore, redisStore, issuer, eventPub).
		WithAppName(cfg.AppName)

	// Setup Gin router
	router := http.SetupRouter(authService, issuer)

	// Start server
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
