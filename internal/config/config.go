package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMongoDB  = "mongodb"
	StoragePostgres = "postgres"

	ProviderHuawei      = "huawei"
	ProviderRekognition = "rekognition"
	ProviderTextract    = "textract"
	ProviderVision      = "vision"

	ArchiveLocal = "local"
	ArchiveGCS   = "gcs"
	ArchiveNone  = "none"
)

type Config struct {
	ServerPort string

	StorageDriver   string
	MongoURI        string
	MongoDB         string
	MongoCollection string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	OCRProvider     string
	OCRMaxImageSide int

	// Huawei Cloud OCR
	HCAccessKey string
	HCSecretKey string
	HCRegion    string
	HCProjectID string

	AWSRegion          string
	SQSCaptureQueueURL string
	IoTMQTTEndpoint    string
	AlertTopic         string

	MQTTBroker   string
	MQTTClientID string

	ImageArchive    string
	ImageArchiveDir string
	GCSBucket       string

	JWTSecret          string
	JWTExpirationHours time.Duration
	AdminUsername      string
	AdminPassword      string

	LPRRatePerMinute int
	LPRRateBurst     int

	ScanRetention time.Duration
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Config: could not load .env file: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	ratePerMinute, _ := strconv.Atoi(getEnv("LPR_RATE_PER_MINUTE", "30"))
	rateBurst, _ := strconv.Atoi(getEnv("LPR_RATE_BURST", "5"))
	retentionDays, _ := strconv.Atoi(getEnv("SCAN_RETENTION_DAYS", "30"))
	maxImageSide, _ := strconv.Atoi(getEnv("OCR_MAX_IMAGE_SIDE", "4096"))

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		StorageDriver:   strings.ToLower(getEnv("STORAGE_DRIVER", StorageMongoDB)),
		MongoURI:        getEnv("MONGO_URI", ""),
		MongoDB:         getEnv("MONGO_DB", "motorcycle_db"),
		MongoCollection: getEnv("MONGO_COLLECTION", "motorcycles"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "motorcycle_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		OCRProvider:     strings.ToLower(getEnv("OCR_PROVIDER", ProviderHuawei)),
		OCRMaxImageSide: maxImageSide,

		HCAccessKey: getEnv("HC_OCR_ACCESS_KEY_ID", ""),
		HCSecretKey: getEnv("HC_OCR_SECRET_ACCESS_KEY_ID", ""),
		HCRegion:    getEnv("HC_OCR_REGION", "ap-southeast-1"),
		HCProjectID: getEnv("HC_OCR_PROJECT_ID", ""),

		AWSRegion:          getEnv("AWS_REGION", "ap-southeast-1"),
		SQSCaptureQueueURL: getEnv("SQS_CAPTURE_QUEUE_URL", ""),
		IoTMQTTEndpoint:    getEnv("IOT_MQTT_ENDPOINT", ""),
		AlertTopic:         getEnv("ALERT_TOPIC", "plates/alerts"),

		MQTTBroker:   getEnv("MQTT_BROKER", ""),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "plate-ocr-server"),

		ImageArchive:    strings.ToLower(getEnv("IMAGE_ARCHIVE", ArchiveLocal)),
		ImageArchiveDir: getEnv("IMAGE_ARCHIVE_DIR", "output"),
		GCSBucket:       getEnv("GCS_BUCKET", ""),

		JWTSecret:          getEnv("JWT_SECRET", "change-me-plate-ocr-secret"),
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,
		AdminUsername:      getEnv("ADMIN_USERNAME", ""),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),

		LPRRatePerMinute: ratePerMinute,
		LPRRateBurst:     rateBurst,

		ScanRetention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// Validate reports every missing setting for the selected storage driver, OCR provider and archive.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageMongoDB:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongodb storage driver"))
		}
	case StoragePostgres:
		if c.DBHost == "" || c.DBName == "" {
			errs = append(errs, errors.New("DB_HOST and DB_NAME are required for the postgres storage driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	switch c.OCRProvider {
	case ProviderHuawei:
		if c.HCAccessKey == "" || c.HCSecretKey == "" || c.HCRegion == "" || c.HCProjectID == "" {
			errs = append(errs, errors.New("HC_OCR_ACCESS_KEY_ID, HC_OCR_SECRET_ACCESS_KEY_ID, HC_OCR_REGION and HC_OCR_PROJECT_ID are required for the huawei OCR provider"))
		}
	case ProviderRekognition, ProviderTextract:
		if c.AWSRegion == "" {
			errs = append(errs, errors.New("AWS_REGION is required for AWS OCR providers"))
		}
	case ProviderVision:
	default:
		errs = append(errs, fmt.Errorf("unknown OCR_PROVIDER %q", c.OCRProvider))
	}

	switch c.ImageArchive {
	case ArchiveLocal:
		if c.ImageArchiveDir == "" {
			errs = append(errs, errors.New("IMAGE_ARCHIVE_DIR is required for the local image archive"))
		}
	case ArchiveGCS:
		if c.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required for the gcs image archive"))
		}
	case ArchiveNone:
	default:
		errs = append(errs, fmt.Errorf("unknown IMAGE_ARCHIVE %q", c.ImageArchive))
	}

	return errors.Join(errs...)
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Config: environment variable '%s' not set, using default: '%s'", key, maskSecret(key, fallback))
	return fallback
}

func maskSecret(key, value string) string {
	if value == "" {
		return value
	}
	upper := strings.ToUpper(key)
	if strings.Contains(upper, "SECRET") || strings.Contains(upper, "PASSWORD") {
		return "****"
	}
	return value
}
