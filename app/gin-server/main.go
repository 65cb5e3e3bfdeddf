package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/nikhilkumar000/Intern/config"
	"github.com/nikhilkumar000/Intern/internal/api/handlers"
	"github.com/nikhilkumar000/Intern/internal/api/middleware"
	"github.com/nikhilkumar000/Intern/internal/api/routes"
	"github.com/nikhilkumar000/Intern/internal/cache"
	"github.com/nikhilkumar000/Intern/internal/events"
	"github.com/nikhilkumar000/Intern/internal/logger"
	"github.com/nikhilkumar000/Intern/internal/metrics"
	"github.com/nikhilkumar000/Intern/internal/presence"
	"github.com/nikhilkumar000/Intern/internal/realtime"
	mongorepo "github.com/nikhilkumar000/Intern/internal/repositories/mongo"
	pgrepo "github.com/nikhilkumar000/Intern/internal/repositories/postgres"
	"github.com/nikhilkumar000/Intern/internal/services"
	"github.com/nikhilkumar000/Intern/internal/signaling"
	"github.com/nikhilkumar000/Intern/internal/workers"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()

	settings, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if settings.GinMode != "" {
		gin.SetMode(settings.GinMode)
	}

	if err := config.InitMongo(); err != nil {
		log.WithError(err).Fatal("MongoDB init error")
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.WithError(err).Fatal("MongoDB index error")
	}
	log.Info("MongoDB connected")

	if err := config.InitRedis(); err != nil {
		log.WithError(err).Fatal("Redis init error")
	}
	log.Info("Redis connected")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional backends. Absent ones stay untyped nil.
	var (
		directory services.ExpertDirectory
		statuses  services.ExpertStore
	)
	switch err := config.InitPostgres(); {
	case err == nil:
		experts := pgrepo.NewExpertRepo(config.PostgresDB)
		directory, statuses = experts, experts
		log.Info("PostgreSQL connected, expert directory enabled")
	case errors.Is(err, config.ErrPostgresNotConfigured):
		log.Info("POSTGRES_URI not set, expert directory disabled")
	default:
		log.WithError(err).Fatal("PostgreSQL init error")
	}

	var publisher events.Publisher = events.Noop{}
	if settings.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(log, events.AMQPConfig{URL: settings.AMQPURL, Exchange: settings.AMQPExchange})
		if err != nil {
			log.WithError(err).Fatal("AMQP init error")
		}
		publisher = events.NewAsync(amqpPub, 1024, log)
		log.Info("AMQP connected, lifecycle events enabled")
	}

	registry := presence.NewRegistry()
	presenceSvc := services.NewPresenceService(registry, cache.NewRedisCache(config.RedisClient), statuses, log)
	resetCtx, cancelReset := context.WithTimeout(ctx, 10*time.Second)
	if err := presenceSvc.Reset(resetCtx); err != nil {
		log.WithError(err).Fatal("presence reset error")
	}
	cancelReset()
	go presenceSvc.Run(ctx)

	db := config.MongoDatabase()
	callOpts := []services.CallServiceOption{
		services.WithPublisher(publisher),
		services.WithAvailability(presenceSvc),
	}
	if directory != nil {
		callOpts = append(callOpts, services.WithExpertDirectory(directory))
	}
	callSvc := services.NewCallService(mongorepo.NewCallRepo(db), callOpts...)
	transcriptSvc := services.NewTranscriptService(mongorepo.NewTranscriptRepo(db), publisher)

	router := signaling.NewRouter(registry, presenceSvc, log)
	hub := realtime.NewHub(log)

	sweeper := &workers.RingingSweeper{}
	if settings.RingingTimeout > 0 {
		sweeper = &workers.RingingSweeper{
			Calls:    callSvc,
			Timeout:  settings.RingingTimeout,
			Interval: settings.SweepInterval,
			Logger:   log,
		}
		if err := sweeper.Start(ctx); err != nil {
			log.WithError(err).Fatal("ringing sweeper init error")
		}
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log, "/ping", metrics.Path()), middleware.CORS(settings.AllowedOrigins))
	routes.RegisterRoutes(r, routes.Deps{
		Call:       handlers.NewCallHandler(callSvc, presenceSvc),
		Transcript: handlers.NewTranscriptHandler(transcriptSvc),
		WS:         handlers.NewWSHandler(hub, router, settings.AllowedOrigins, log),
		JWTSecret:  settings.JWTSecret,
	})

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", settings.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	// the sweeper may still be publishing
	sweeper.Wait()
	if err := publisher.Close(); err != nil {
		log.WithError(err).Warn("event publisher close")
	}
	_ = config.RedisClient.Close()
	if err := config.CloseMongo(shutdownCtx); err != nil {
		log.WithError(err).Warn("mongo disconnect")
	}
}
