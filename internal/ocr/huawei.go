package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/huaweicloud/huaweicloud-sdk-go-v3/core/auth/basic"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/core/region"
	hcocr "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/ocr/v1"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/services/ocr/v1/model"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
)

// huaweiGeneralText is the subset of the Huawei OCR client the recognizer needs.
type huaweiGeneralText interface {
	RecognizeGeneralText(request *model.RecognizeGeneralTextRequest) (*model.RecognizeGeneralTextResponse, error)
}

// Huawei calls the General Text OCR API of Huawei Cloud.
type Huawei struct {
	client huaweiGeneralText
}

func NewHuawei(accessKey, secretKey, regionID, projectID string) (*Huawei, error) {
	if accessKey == "" || secretKey == "" || regionID == "" || projectID == "" {
		return nil, fmt.Errorf("%w: HC_OCR_* credentials are incomplete", ErrProviderNotConfigured)
	}
	auth, err := basic.NewCredentialsBuilder().
		WithAk(accessKey).
		WithSk(secretKey).
		WithProjectId(projectID).
		SafeBuild()
	if err != nil {
		return nil, fmt.Errorf("ocr.NewHuawei: credentials: %w", err)
	}
	endpoint := fmt.Sprintf("https://ocr.%s.myhuaweicloud.com", regionID)
	hcClient, err := hcocr.OcrClientBuilder().
		WithRegion(region.NewRegion(regionID, endpoint)).
		WithCredential(auth).
		SafeBuild()
	if err != nil {
		return nil, fmt.Errorf("ocr.NewHuawei: client: %w", err)
	}
	return &Huawei{client: hcocr.NewOcrClient(hcClient)}, nil
}

func (h *Huawei) Name() string { return "huawei" }

// Recognize submits the image as base64. The SDK call takes no context, so cancellation is only checked before it.
func (h *Huawei) Recognize(ctx context.Context, img []byte) ([]domain.TextBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(img)
	resp, err := h.client.RecognizeGeneralText(&model.RecognizeGeneralTextRequest{
		Body: &model.GeneralTextRequestBody{Image: &encoded},
	})
	if err != nil {
		return nil, fmt.Errorf("Huawei.Recognize: %w", err)
	}
	if resp == nil || resp.Result == nil {
		return nil, ErrNoText
	}

	blocks := make([]domain.TextBlock, 0, len(resp.Result.WordsBlockList))
	for _, wb := range resp.Result.WordsBlockList {
		if wb.Words == "" {
			continue
		}
		blocks = append(blocks, domain.TextBlock{
			Text:       wb.Words,
			Confidence: wb.Confidence,
			Polygon:    huaweiPolygon(wb.Location),
		})
	}
	if len(blocks) == 0 {
		return nil, ErrNoText
	}
	logBlocks(h.Name(), blocks)
	return blocks, nil
}

// huaweiPolygon converts [[x,y],...] pairs, skipping malformed points.
func huaweiPolygon(location [][]int32) []image.Point {
	points := make([]image.Point, 0, len(location))
	for _, p := range location {
		if len(p) < 2 {
			continue
		}
		points = append(points, image.Pt(int(p[0]), int(p[1])))
	}
	return points
}
