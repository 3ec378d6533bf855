package service

import (
	"context"
	"fmt"
	"log"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/imaging"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/ocr"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/plate"
)

type LPRService struct {
	recognizer   ocr.Recognizer
	maxImageSide int
}

func NewLPRService(recognizer ocr.Recognizer, maxImageSide int) *LPRService {
	return &LPRService{recognizer: recognizer, maxImageSide: maxImageSide}
}

func (s *LPRService) Provider() string {
	if s.recognizer == nil {
		return ""
	}
	return s.recognizer.Name()
}

// Recognize validates the image, sends it to the OCR provider and picks the plate and region.
// The prepared image is returned alongside so callers can annotate exactly what the provider saw.
func (s *LPRService) Recognize(ctx context.Context, data []byte) (*domain.Recognition, *imaging.Prepared, error) {
	if s.recognizer == nil {
		return nil, nil, fmt.Errorf("LPRService.Recognize: %w", ocr.ErrProviderNotConfigured)
	}
	prepared, err := imaging.Prepare(data, s.maxImageSide)
	if err != nil {
		return nil, nil, err
	}

	log.Printf("LPRService: calling %s with %d bytes (%s)", s.recognizer.Name(), len(prepared.Data), prepared.Format)
	blocks, err := s.recognizer.Recognize(ctx, prepared.Data)
	if err != nil {
		return nil, prepared, err
	}

	match, ok := plate.Extract(blocks)
	if !ok {
		return nil, prepared, ocr.ErrNoText
	}
	log.Printf("LPRService: plate '%s', region '%s' (%d block(s))", match.Plate, match.Region, len(blocks))

	return &domain.Recognition{
		Plate:      match.Plate,
		Region:     match.Region,
		Confidence: match.Confidence,
		Provider:   s.recognizer.Name(),
		Blocks:     blocks,
	}, prepared, nil
}
