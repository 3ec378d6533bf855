// Package ocr wraps the cloud text detection services behind one Recognizer interface.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/textract"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/config"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
)

var (
	ErrNoText                = errors.New("no text detected in image")
	ErrProviderNotConfigured = errors.New("ocr provider is not configured")
	ErrUnsupportedProvider   = errors.New("unsupported ocr provider")
)

// Recognizer sends one image to a text detection service.
// Blocks come back in provider order with pixel polygons; an image without text yields ErrNoText.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) ([]domain.TextBlock, error)
	Name() string
}

// New builds the Recognizer selected by cfg.OCRProvider. The returned close func releases provider clients.
func New(ctx context.Context, cfg *config.Config) (Recognizer, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(cfg.OCRProvider) {
	case config.ProviderHuawei:
		r, err := NewHuawei(cfg.HCAccessKey, cfg.HCSecretKey, cfg.HCRegion, cfg.HCProjectID)
		if err != nil {
			return nil, nil, err
		}
		return r, noop, nil

	case config.ProviderRekognition, config.ProviderTextract:
		if cfg.AWSRegion == "" {
			return nil, nil, fmt.Errorf("%w: AWS_REGION is empty", ErrProviderNotConfigured)
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, nil, fmt.Errorf("ocr.New: load AWS config: %w", err)
		}
		if cfg.OCRProvider == config.ProviderTextract {
			return NewTextract(textract.NewFromConfig(awsCfg)), noop, nil
		}
		return NewRekognition(rekognition.NewFromConfig(awsCfg)), noop, nil

	case config.ProviderVision:
		r, err := NewVision(ctx)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.OCRProvider)
}

func logBlocks(provider string, blocks []domain.TextBlock) {
	texts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		texts = append(texts, fmt.Sprintf("%q", b.Text))
	}
	log.Printf("OCR(%s): %d text block(s): %s", provider, len(blocks), strings.Join(texts, ", "))
}
