package ocr

import (
	"context"
	"fmt"
	"image"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
)

// Vision uses Google Cloud Vision TEXT_DETECTION.
type Vision struct {
	client *vision.ImageAnnotatorClient
}

// NewVision reads credentials from GOOGLE_APPLICATION_CREDENTIALS unless opts say otherwise.
func NewVision(ctx context.Context, opts ...option.ClientOption) (*Vision, error) {
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: vision client: %v", ErrProviderNotConfigured, err)
	}
	return &Vision{client: client}, nil
}

func (v *Vision) Name() string { return "vision" }

func (v *Vision) Close() error { return v.client.Close() }

func (v *Vision) Recognize(ctx context.Context, img []byte) ([]domain.TextBlock, error) {
	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: img},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("Vision.Recognize: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, ErrNoText
	}
	r := resp.GetResponses()[0]
	if r.GetError() != nil && r.GetError().GetCode() != 0 {
		return nil, fmt.Errorf("Vision.Recognize: %s", r.GetError().GetMessage())
	}

	blocks := visionBlocks(r.GetTextAnnotations())
	if len(blocks) == 0 {
		return nil, ErrNoText
	}
	logBlocks(v.Name(), blocks)
	return blocks, nil
}

// visionBlocks drops the first annotation, which holds the whole text of the image.
func visionBlocks(annotations []*visionpb.EntityAnnotation) []domain.TextBlock {
	if len(annotations) < 2 {
		return nil
	}
	blocks := make([]domain.TextBlock, 0, len(annotations)-1)
	for _, a := range annotations[1:] {
		if a.GetDescription() == "" {
			continue
		}
		block := domain.TextBlock{Text: a.GetDescription(), Confidence: a.GetScore()}
		for _, vx := range a.GetBoundingPoly().GetVertices() {
			block.Polygon = append(block.Polygon, image.Pt(int(vx.GetX()), int(vx.GetY())))
		}
		blocks = append(blocks, block)
	}
	return blocks
}
