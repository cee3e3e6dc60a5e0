package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lessonhub/platform/internal/cleanup"
	"github.com/lessonhub/platform/internal/config"
	"github.com/lessonhub/platform/internal/db"
	"github.com/lessonhub/platform/internal/es"
	"github.com/lessonhub/platform/internal/handlers"
	"github.com/lessonhub/platform/internal/logging"
	"github.com/lessonhub/platform/internal/mailer"
	mwauth "github.com/lessonhub/platform/internal/middleware/auth"
	loggingmw "github.com/lessonhub/platform/internal/middleware/logging"
	"github.com/lessonhub/platform/internal/mykafka"
	"github.com/lessonhub/platform/internal/payment"
	"github.com/lessonhub/platform/internal/service/search"
	httpserver "github.com/lessonhub/platform/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmpty(configuration.JWT_SECRET, "JWT_SECRET")

	logger := logging.New(configuration.LOG_LEVEL)

	ctx := context.Background()
	database, err := db.Open(ctx, configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	prod, err := mykafka.NewProducer(config.CSV(configuration.KAFKA_ADDRESS))
	if err != nil {
		log.Fatal(err)
	}

	var searchSvc *search.Service
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init failed: %v", err)
		}
		searchSvc = search.NewService(esClient, "lessons")
	} else {
		logger.Warn("ES_URL not set, catalog search disabled")
	}

	smtpClient := mailer.NewSMTP(configuration)
	gateway := payment.NewClient(configuration.RAZORPAY_KEY_ID, configuration.RAZORPAY_KEY_SECRET)

	validator := &mwauth.SessionValidator{DB: database, JWTSecret: jwtSecret}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		Validator: validator,
		AuthHandler: &handlers.AuthHandler{
			DB:           database,
			JWTSecret:    jwtSecret,
			TokenTTL:     configuration.TOKEN_TTL,
			ActiveWindow: configuration.SESSION_ACTIVE_WINDOW,
			Producer:     prod,
			Mailer:       smtpClient,
		},
		LessonHandler:   &handlers.LessonHandler{DB: database, Producer: prod, Indexer: indexerOrNil(searchSvc)},
		CategoryHandler: &handlers.CategoryHandler{DB: database},
		PaymentHandler:  &handlers.PaymentHandler{DB: database, Gateway: gateway, Producer: prod},
		TicketHandler:   &handlers.TicketHandler{DB: database, Producer: prod},
		UserHandler:     &handlers.UserAdminHandler{DB: database},
		SearchHandler:   &handlers.SearchHandler{Service: searchSvc},
	}

	httpserver.Register(e, &deps)

	sweepCtx, stopSweep := context.WithCancel(logging.IntoContext(ctx, logger))
	sweeper := &cleanup.Sweeper{
		DB:        database,
		Interval:  time.Duration(configuration.CLEANUP_INTERVAL_HOURS) * time.Hour,
		Retention: time.Duration(configuration.TICKET_RETENTION_DAYS) * 24 * time.Hour,
	}
	go sweeper.Run(sweepCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", configuration.SERVER_PORT),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}

// indexerOrNil keeps the LessonHandler's interface field truly nil when
// search is disabled (a typed nil would not compare equal to nil).
func indexerOrNil(s *search.Service) handlers.LessonIndexer {
	if s == nil {
		return nil
	}
	return s
}
