package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"persona-probe/internal/config"
	"persona-probe/internal/db"
	apihttp "persona-probe/internal/http"
	"persona-probe/internal/repository"
	"persona-probe/internal/service"
)

func main() {
	mintSubject := flag.String("mint-token", "", "emite un token de lectura para el subject y sale")
	revokeJTI := flag.String("revoke-token", "", "revoca el token con este jti y sale (requiere Redis)")
	flag.Parse()

	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var tokenStore service.TokenStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, token revocation disabled", zap.Error(err))
		} else {
			tokenStore = service.NewRedisTokenStore(redisClient)
		}
		cancel()
	}
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	jwtSvc := service.NewJWTServiceWithStore(cfg.JWTSecret, cfg.JWTReaderTTL(), tokenStore)

	switch {
	case *mintSubject != "":
		token, claims, err := jwtSvc.MintReaderToken(*mintSubject)
		if err != nil {
			logger.Fatal("mint token", zap.Error(err))
		}
		fmt.Println(token)
		logger.Info("reader token minted",
			zap.String("subject", claims.Subject),
			zap.String("jti", claims.ID),
			zap.Time("expires_at", claims.ExpiresAt.Time),
		)
		return
	case *revokeJTI != "":
		if err := jwtSvc.Revoke(*revokeJTI); err != nil {
			logger.Fatal("revoke token", zap.String("jti", *revokeJTI), zap.Error(err))
		}
		logger.Info("reader token revoked", zap.String("jti", *revokeJTI))
		return
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("db schema", zap.Error(err))
	}

	runHandler := apihttp.NewRunHandler(
		logger,
		repository.NewPgRunRepository(pool),
		repository.NewPgArtifactRepository(pool),
		repository.NewPgGenerationRepository(pool),
	)
	router := apihttp.NewRouter(logger, runHandler, jwtSvc)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
