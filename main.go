package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsgo_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/api"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/api/handler"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/api/middleware"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/archive"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/config"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/iot"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/jobs"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/notify"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/ocr"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/repository"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/repository/mongodb"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/repository/postgresql"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/service"
)

func main() {
	// 1. Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration:\n%v", err)
	}
	log.Println("Configuration loaded.")

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	// 2. Storage
	store, err := openStore(appCtx, cfg)
	if err != nil {
		log.Fatalf("Could not open %s storage: %v", cfg.StorageDriver, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Printf("Error closing storage: %v", err)
		}
	}()
	log.Printf("Connected to %s storage.", cfg.StorageDriver)

	// 3. OCR provider and image archive
	recognizer, closeRecognizer, err := ocr.New(appCtx, cfg)
	if err != nil {
		log.Fatalf("Could not create OCR provider '%s': %v", cfg.OCRProvider, err)
	}
	defer closeRecognizer()

	images, closeImages, err := archive.New(appCtx, cfg)
	if err != nil {
		log.Fatalf("Could not create image archive '%s': %v", cfg.ImageArchive, err)
	}
	defer closeImages()

	// 4. AWS clients, only when something needs them
	var sqsClient *sqs.Client
	var alertPublishers notify.Multi
	if cfg.SQSCaptureQueueURL != "" || cfg.IoTMQTTEndpoint != "" {
		awsSDKCfg, err := awsgo_config.LoadDefaultConfig(appCtx, awsgo_config.WithRegion(cfg.AWSRegion))
		if err != nil {
			log.Fatalf("Could not load AWS SDK config: %v", err)
		}
		log.Println("Loaded AWS SDK config for region:", cfg.AWSRegion)

		if cfg.SQSCaptureQueueURL != "" {
			sqsClient = sqs.NewFromConfig(awsSDKCfg)
		}
		if cfg.IoTMQTTEndpoint != "" {
			iotDataPlaneClient := iotdataplane.NewFromConfig(awsSDKCfg, func(o *iotdataplane.Options) {
				endpointWithSchema := cfg.IoTMQTTEndpoint
				if !strings.HasPrefix(endpointWithSchema, "https://") && !strings.HasPrefix(endpointWithSchema, "http://") {
					endpointWithSchema = "https://" + endpointWithSchema
				}
				o.BaseEndpoint = aws.String(endpointWithSchema)
			})
			alertPublishers = append(alertPublishers, notify.NewIoTPublisher(iotDataPlaneClient, cfg.AlertTopic))
			log.Println("Alerts will be published to AWS IoT topic:", cfg.AlertTopic)
		}
	}

	if cfg.MQTTBroker != "" {
		mqttPublisher, err := notify.NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientID, cfg.AlertTopic)
		if err != nil {
			log.Fatalf("Could not connect to MQTT broker %s: %v", cfg.MQTTBroker, err)
		}
		defer mqttPublisher.Close()
		alertPublishers = append(alertPublishers, mqttPublisher)
		log.Println("Alerts will be published to MQTT broker:", cfg.MQTTBroker)
	}

	var alerts notify.AlertPublisher = notify.Noop{}
	if len(alertPublishers) > 0 {
		alerts = alertPublishers
	}

	// 5. WebSocket manager
	webSocketManager := handler.NewWebSocketManager()
	go webSocketManager.Start(appCtx)
	log.Println("WebSocket manager started.")

	// 6. Services
	authService := service.NewAuthService(store.Users, cfg.JWTSecret, cfg.JWTExpirationHours)
	if err := authService.EnsureAdmin(appCtx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("Could not create admin user: %v", err)
	}
	motorcycleService := service.NewMotorcycleService(store.Motorcycles)
	lprService := service.NewLPRService(recognizer, cfg.OCRMaxImageSide)
	scanService := service.NewScanService(lprService, motorcycleService, store.ScanEvents, images, alerts, webSocketManager)

	// 7. SQS capture consumer
	var wg sync.WaitGroup
	consumerCtx, cancelConsumer := context.WithCancel(appCtx)

	if sqsClient == nil {
		log.Println("WARNING: SQS_CAPTURE_QUEUE_URL is not set. The SQS consumer will not run.")
	} else {
		sqsConsumer := iot.NewSQSConsumer(sqsClient, cfg.SQSCaptureQueueURL, scanService)
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Println("SQS consumer listening on queue:", cfg.SQSCaptureQueueURL)
			sqsConsumer.Start(consumerCtx)
			log.Println("SQS consumer stopped.")
		}()
	}

	retentionJob := jobs.NewScanRetentionJob(store.ScanEvents, cfg.ScanRetention, time.Hour)
	retentionJob.Start()

	// 8. HTTP router
	lprLimiter := middleware.NewRateLimiter(cfg.LPRRatePerMinute, cfg.LPRRateBurst)
	go lprLimiter.StartCleanup(appCtx)

	router := api.SetupRouter(api.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		LPR:         handler.NewLPRHandler(scanService),
		Motorcycles: handler.NewMotorcycleHandler(motorcycleService),
		Scans:       handler.NewScanHandler(scanService),
		Health:      handler.NewHealthHandler(lprService.Provider()),
		WebSocket:   handler.NewWebSocketHandler(webSocketManager),
	}, middleware.NewAuthMiddleware(authService), lprLimiter)

	// 9. HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancelConsumer()
	retentionJob.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shut down: %v", err)
	}

	if sqsClient != nil {
		log.Println("Waiting for the SQS consumer to stop (up to 5 seconds)...")
		c := make(chan struct{})
		go func() {
			defer close(c)
			wg.Wait()
		}()
		select {
		case <-c:
			log.Println("SQS consumer stopped cleanly.")
		case <-time.After(5 * time.Second):
			log.Println("SQS consumer did not stop in time.")
		}
	}

	cancelApp()
	log.Println("Server stopped.")
}

func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if cfg.StorageDriver == config.StoragePostgres {
		return postgresql.NewStore(connectCtx, cfg)
	}
	return mongodb.NewStore(connectCtx, cfg)
}
