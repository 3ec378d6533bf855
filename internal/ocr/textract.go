package ocr

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/imaging"
)

type textractAPI interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

// Textract uses Amazon Textract DetectDocumentText and keeps LINE blocks.
type Textract struct {
	client textractAPI
}

func NewTextract(client textractAPI) *Textract {
	return &Textract{client: client}
}

func (t *Textract) Name() string { return "textract" }

func (t *Textract) Recognize(ctx context.Context, img []byte) ([]domain.TextBlock, error) {
	width, height, err := imaging.Dimensions(img)
	if err != nil {
		return nil, fmt.Errorf("Textract.Recognize: %w", err)
	}
	result, err := t.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: img},
	})
	if err != nil {
		return nil, fmt.Errorf("Textract.Recognize: %w", err)
	}

	blocks := textractBlocks(result.Blocks, width, height)
	if len(blocks) == 0 {
		return nil, ErrNoText
	}
	logBlocks(t.Name(), blocks)
	return blocks, nil
}

func textractBlocks(in []types.Block, width, height int) []domain.TextBlock {
	var blocks []domain.TextBlock
	for _, b := range in {
		if b.BlockType != types.BlockTypeLine || aws.ToString(b.Text) == "" {
			continue
		}
		block := domain.TextBlock{
			Text:       aws.ToString(b.Text),
			Confidence: aws.ToFloat32(b.Confidence) / 100,
		}
		if b.Geometry != nil {
			if len(b.Geometry.Polygon) > 0 {
				for _, p := range b.Geometry.Polygon {
					block.Polygon = append(block.Polygon, scalePoint(p.X, p.Y, width, height))
				}
			} else if bb := b.Geometry.BoundingBox; bb != nil {
				block.Polygon = boxPolygon(bb.Left, bb.Top, bb.Width, bb.Height, width, height)
			}
		}
		blocks = append(blocks, block)
	}
	return blocks
}
