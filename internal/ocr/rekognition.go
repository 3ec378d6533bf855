package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/imaging"
)

type rekognitionAPI interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// Rekognition uses Amazon Rekognition DetectText. Only LINE detections are kept.
type Rekognition struct {
	client rekognitionAPI
}

func NewRekognition(client rekognitionAPI) *Rekognition {
	return &Rekognition{client: client}
}

func (r *Rekognition) Name() string { return "rekognition" }

func (r *Rekognition) Recognize(ctx context.Context, img []byte) ([]domain.TextBlock, error) {
	width, height, err := imaging.Dimensions(img)
	if err != nil {
		return nil, fmt.Errorf("Rekognition.Recognize: %w", err)
	}
	result, err := r.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: img},
	})
	if err != nil {
		return nil, fmt.Errorf("Rekognition.Recognize: %w", err)
	}

	blocks := rekognitionBlocks(result.TextDetections, width, height)
	if len(blocks) == 0 {
		return nil, ErrNoText
	}
	logBlocks(r.Name(), blocks)
	return blocks, nil
}

func rekognitionBlocks(detections []types.TextDetection, width, height int) []domain.TextBlock {
	var blocks []domain.TextBlock
	for _, d := range detections {
		if d.Type != types.TextTypesLine || aws.ToString(d.DetectedText) == "" {
			continue
		}
		block := domain.TextBlock{
			Text:       aws.ToString(d.DetectedText),
			Confidence: aws.ToFloat32(d.Confidence) / 100,
		}
		if d.Geometry != nil {
			if len(d.Geometry.Polygon) > 0 {
				for _, p := range d.Geometry.Polygon {
					block.Polygon = append(block.Polygon, scalePoint(aws.ToFloat32(p.X), aws.ToFloat32(p.Y), width, height))
				}
			} else if bb := d.Geometry.BoundingBox; bb != nil {
				block.Polygon = boxPolygon(aws.ToFloat32(bb.Left), aws.ToFloat32(bb.Top),
					aws.ToFloat32(bb.Width), aws.ToFloat32(bb.Height), width, height)
			}
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// scalePoint maps a ratio of the image size to pixels.
func scalePoint(x, y float32, width, height int) image.Point {
	return image.Pt(int(x*float32(width)+0.5), int(y*float32(height)+0.5))
}

// boxPolygon turns a normalized box into four clockwise corners starting top-left.
func boxPolygon(left, top, w, h float32, width, height int) []image.Point {
	return []image.Point{
		scalePoint(left, top, width, height),
		scalePoint(left+w, top, width, height),
		scalePoint(left+w, top+h, width, height),
		scalePoint(left, top+h, width, height),
	}
}
