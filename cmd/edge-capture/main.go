package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsgo_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/edge"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/edge/camera"
)

const version = "v0.1.0"

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	deviceID := flag.String("device-id", "", "Device identifier reported with each frame")
	cameraIndex := flag.Int("camera", -1, "Camera device index")
	interval := flag.Duration("interval", 0, "Time between captures in continuous mode")
	mode := flag.String("mode", "", "Submit mode: http, sqs")
	serverURL := flag.String("server", "", "Recognition server base URL (http mode)")
	token := flag.String("token", "", "Bearer token (http mode)")
	queueURL := flag.String("queue", "", "Capture queue URL (sqs mode)")
	saveDir := flag.String("save-dir", "", "Directory to keep a copy of each frame (optional)")
	once := flag.Bool("once", false, "Capture a single frame and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("edge-capture %s\n", version)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := edge.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags win over the file.
	if *deviceID != "" {
		cfg.DeviceID = *deviceID
	}
	if *cameraIndex >= 0 {
		cfg.Camera.Device = *cameraIndex
	}
	if *interval > 0 {
		cfg.Interval = *interval
	}
	if *mode != "" {
		cfg.Submit.Mode = *mode
	}
	if *serverURL != "" {
		cfg.Submit.ServerURL = *serverURL
	}
	if *token != "" {
		cfg.Submit.Token = *token
	}
	if *queueURL != "" {
		cfg.Submit.QueueURL = *queueURL
	}
	if *saveDir != "" {
		cfg.SaveDir = *saveDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration:\n%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	submitter, err := newSubmitter(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create submitter: %v", err)
	}

	cam, err := camera.Open(camera.Options{
		Device:       cfg.Camera.Device,
		Width:        cfg.Camera.Width,
		Height:       cfg.Camera.Height,
		JPEGQuality:  cfg.Camera.JPEGQuality,
		WarmupFrames: cfg.Camera.WarmupFrames,
	})
	if err != nil {
		log.Fatalf("Failed to open camera: %v", err)
	}
	defer cam.Close()

	slog.Info("Edge capture started",
		"device_id", cfg.DeviceID,
		"camera", cfg.Camera.Device,
		"mode", cfg.Submit.Mode,
		"once", *once,
	)

	runner := edge.NewRunner(cam, submitter, cfg, logger)
	if *once {
		onceCtx, cancel := context.WithTimeout(ctx, cfg.Submit.Timeout+5*time.Second)
		defer cancel()
		if _, err := runner.CaptureOnce(onceCtx); err != nil {
			slog.Error("Capture failed", "error", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("Capturing continuously, press Ctrl+C to stop", "interval", cfg.Interval)
	if err := runner.Run(ctx); err != nil {
		slog.Error("Capture loop failed", "error", err)
		os.Exit(1)
	}
}

func newSubmitter(ctx context.Context, cfg *edge.Config) (edge.Submitter, error) {
	if cfg.Submit.Mode == edge.SubmitSQS {
		awsCfg, err := awsgo_config.LoadDefaultConfig(ctx, awsgo_config.WithRegion(cfg.Submit.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		return edge.NewSQSSubmitter(sqs.NewFromConfig(awsCfg), cfg.Submit.QueueURL, cfg.DeviceID), nil
	}
	return edge.NewHTTPSubmitter(cfg.Submit, cfg.DeviceID), nil
}
