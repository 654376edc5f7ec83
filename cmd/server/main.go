package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/railswap/railswap/internal/api"
	"github.com/railswap/railswap/internal/config"
	"github.com/railswap/railswap/internal/handler"
	"github.com/railswap/railswap/internal/infrastructure/artifact"
	"github.com/railswap/railswap/internal/infrastructure/auth"
	"github.com/railswap/railswap/internal/infrastructure/kafka"
	"github.com/railswap/railswap/internal/infrastructure/payment"
	"github.com/railswap/railswap/internal/infrastructure/redis"
	"github.com/railswap/railswap/internal/observability"
	core "github.com/railswap/railswap/internal/repository/postgres"
	service "github.com/railswap/railswap/internal/services"
	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	shutdown, _ := observability.Setup("railswap")
	defer shutdown(context.Background())

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()

	if err := core.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ticketRepo := core.NewPostgresTicketRepository(db)
	soldRepo := core.NewPostgresSoldTicketRepository(db)
	walletRepo := core.NewPostgresWalletRepository(db)
	walletTxRepo := core.NewPostgresWalletTransactionRepository(db)
	messageRepo := core.NewPostgresMessageRepository(db)
	txManager := core.NewTxManager(db)

	redisClient := redis.NewClient(cfg.RedisAddr)
	defer redisClient.Close()
	kafkaProducer := kafka.NewProducer(cfg.KafkaBrokers)
	defer kafkaProducer.Close()

	gateway := payment.NewClient(cfg.PaymentAPIURL, cfg.PaymentAPIKey)
	artifacts, err := artifact.NewFileStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to create artifact store: %v", err)
	}

	registry := service.NewRegistryService(ticketRepo, soldRepo, redisClient)
	negotiation := service.NewNegotiationService(ticketRepo, messageRepo)
	settlement := service.NewSettlementService(
		ticketRepo, soldRepo, walletRepo, walletTxRepo, messageRepo,
		txManager, gateway, redisClient, kafkaProducer,
		cfg.Currency, cfg.PublicBaseURL,
	)
	ledger := service.NewLedgerService(walletRepo, walletTxRepo)

	h := handler.NewHandler(registry, negotiation, settlement, ledger, artifacts)
	resolver := auth.NewResolver(cfg.JWTSecret)
	router := api.SetupRouter(h, registry, resolver)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}
	go func() {
		log.Printf("Starting server on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
