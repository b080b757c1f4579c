package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Douglasgls/zona-verde-api/internal/api"
	"github.com/Douglasgls/zona-verde-api/internal/api/handler"
	"github.com/Douglasgls/zona-verde-api/internal/config"
	"github.com/Douglasgls/zona-verde-api/internal/export"
	"github.com/Douglasgls/zona-verde-api/internal/iot"
	"github.com/Douglasgls/zona-verde-api/internal/ocr"
	"github.com/Douglasgls/zona-verde-api/internal/repository/postgresql"
	"github.com/Douglasgls/zona-verde-api/internal/service"
	"github.com/Douglasgls/zona-verde-api/internal/upload"
)

func newLogger(development bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func main() {
	cfg := config.Load(nil)
	logger := newLogger(cfg.IsDevelopment())
	defer logger.Sync() //nolint:errcheck

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgresql.NewDB(rootCtx, cfg)
	if err != nil {
		logger.Fatal("could not connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("database connected", zap.String("driver", cfg.DBDriver), zap.String("host", cfg.DBHost))

	awsCfg, err := awsconfig.LoadDefaultConfig(rootCtx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Fatal("could not load AWS config", zap.Error(err))
	}

	userRepo := postgresql.NewPgUserRepository(db)
	spotRepo := postgresql.NewPgSpotRepository(db)
	deviceRepo := postgresql.NewPgDeviceRepository(db)
	reservationRepo := postgresql.NewPgReservationRepository(db)
	checkRepo := postgresql.NewPgPlateCheckRepository(db)
	eventLogRepo := postgresql.NewPgDeviceEventsLogRepository(db)

	var recognizer ocr.Recognizer
	switch cfg.OCREngine {
	case ocr.EngineTesseract:
		tess, err := ocr.NewTesseractRecognizer(cfg.OCRLanguage, logger)
		if err != nil {
			logger.Error("tesseract unavailable, plate recognition disabled", zap.Error(err))
			break
		}
		defer tess.Close()
		recognizer = tess
	case ocr.EngineRekognition:
		recognizer = ocr.NewRekognitionRecognizer(rekognition.NewFromConfig(awsCfg), logger)
	default:
		logger.Error("unknown OCR engine, plate recognition disabled", zap.String("engine", cfg.OCREngine))
	}

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpirationHours, logger)
	if err := authService.EnsureAdmin(rootCtx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Fatal("could not create bootstrap admin", zap.Error(err))
	}

	parkingService := service.NewParkingService(spotRepo, reservationRepo, deviceRepo, logger)
	plateService := service.NewPlateService(
		recognizer,
		upload.NewStore(cfg.UploadDir),
		spotRepo,
		reservationRepo,
		checkRepo,
		service.PlateServiceConfig{UpscaleFactor: cfg.OCRUpscaleFactor, MatchThreshold: cfg.PlateMatchThreshold},
		logger,
	)

	wsManager := handler.NewWebSocketManager(logger)
	go wsManager.Start(rootCtx)
	plateService.SetBroadcaster(wsManager)

	if cfg.IoTMQTTEndpoint != "" {
		endpoint := cfg.IoTMQTTEndpoint
		if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
			endpoint = "https://" + endpoint
		}
		dataPlane := iotdataplane.NewFromConfig(awsCfg, func(o *iotdataplane.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
		plateService.SetPublisher(iot.NewPublisher(dataPlane, cfg.IoTTopicPrefix, logger))
	} else {
		logger.Warn("IOT_MQTT_ENDPOINT not set, plate check results will not be sent to devices")
	}

	var wg sync.WaitGroup
	if cfg.SQSEventQueueURL != "" {
		eventService := service.NewDeviceEventService(spotRepo, deviceRepo, eventLogRepo, logger)
		consumer := iot.NewSQSConsumer(sqs.NewFromConfig(awsCfg), cfg.SQSEventQueueURL, eventService, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Start(rootCtx)
		}()
	} else {
		logger.Warn("SQS_EVENT_QUEUE_URL not set, device events will not be consumed")
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(api.RouterDeps{
		AuthService:    authService,
		ParkingService: parkingService,
		PlateService:   plateService,
		Exporter:       export.NewPlateCheckExporter(logger),
		WSManager:      wsManager,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced server shutdown", zap.Error(err))
	}

	consumerDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(consumerDone)
	}()
	select {
	case <-consumerDone:
	case <-time.After(5 * time.Second):
		logger.Warn("SQS consumer did not stop in time")
	}

	logger.Info("server stopped")
}
