package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/eladlevy/leadgate/internal/config"
	"github.com/eladlevy/leadgate/internal/infra/database"
	"github.com/eladlevy/leadgate/internal/infra/http/handlers"
	"github.com/eladlevy/leadgate/internal/infra/http/middleware"
	"github.com/eladlevy/leadgate/internal/infra/integration/google"
	"github.com/eladlevy/leadgate/internal/infra/mail"
	"github.com/eladlevy/leadgate/internal/infra/queue"
	"github.com/eladlevy/leadgate/internal/infra/worker"
	"github.com/eladlevy/leadgate/internal/usecase"
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	rabbitMQ, err := queue.NewRabbitMQ(cfg.Rabbit.User, cfg.Rabbit.Pass, cfg.Rabbit.Host, cfg.Rabbit.Port)
	if err != nil {
		log.Fatal(err)
	}
	defer rabbitMQ.Conn.Close()
	defer rabbitMQ.Ch.Close()

	// 1. Repositories
	leadRepo := database.NewLeadRepository(db)
	ledger := database.NewProcessedEmailRepository(db)
	watchRepo := database.NewWatchRepository(db)
	tokenRepo := database.NewTokenRepository(db)

	// 2. Gateways and adapters
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		Endpoint:     googleoauth.Endpoint,
	}
	tokens := google.NewTokenManager(oauthCfg, tokenRepo)
	gmailClient := google.NewClient(tokens, cfg.Google.PubSubTopic, cfg.Google.WatchLabelIDs)
	producer := queue.NewProducer(rabbitMQ.Conn, rabbitMQ.Ch)
	alerts := mail.NewAlertSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass, cfg.SMTP.AlertTo)

	// 3. UseCases
	createLeadUC := usecase.NewCreateLeadUseCase(leadRepo)
	processNotificationUC := usecase.NewProcessNotificationUseCase(gmailClient, watchRepo, ledger, leadRepo)
	watchLifecycle := usecase.NewWatchLifecycle(gmailClient, watchRepo, alerts)

	// 4. Workers
	queueWorker := queue.NewWorker(rabbitMQ.Ch, processNotificationUC)
	go queueWorker.Start(queue.QueueName)

	renewalWorker := worker.NewWatchRenewalWorker(watchLifecycle, cfg.Google.Accounts, cfg.WatchRenewInterval)
	go renewalWorker.Start(context.Background())

	// 5. Handlers
	leadHandler := handlers.NewLeadHandler(createLeadUC)
	pubsubHandler := handlers.NewPubSubHandler(producer)
	watchHandler := handlers.NewWatchHandler(watchLifecycle, firstOrEmpty(cfg.Google.Accounts))
	healthHandler := handlers.NewHealthHandler(db, rabbitMQ.Conn)

	// 6. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))

	r.Post("/leads", leadHandler.HandleCreate)
	r.Get("/notifications/gmail", pubsubHandler.Handle) // verification handshake
	r.Post("/notifications/gmail", pubsubHandler.Handle)
	r.Post("/watch/register", watchHandler.HandleRegister)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Port
	log.Printf("🔥 leadgate listening on %s", addr)
	http.ListenAndServe(addr, r)
}

func firstOrEmpty(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}
