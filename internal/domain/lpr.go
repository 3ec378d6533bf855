package domain

import "image"

// TextBlock is one line of text returned by a cloud OCR provider.
// Polygon is in pixel coordinates of the submitted image, clockwise from top-left.
type TextBlock struct {
	Text       string        `json:"text"`
	Confidence float32       `json:"confidence"`
	Polygon    []image.Point `json:"polygon,omitempty"`
}

// Top is the smallest Y of the polygon; blocks without geometry sort last.
func (b TextBlock) Top() int {
	if len(b.Polygon) == 0 {
		return int(^uint(0) >> 1)
	}
	top := b.Polygon[0].Y
	for _, p := range b.Polygon[1:] {
		if p.Y < top {
			top = p.Y
		}
	}
	return top
}

// Left is the smallest X of the polygon.
func (b TextBlock) Left() int {
	if len(b.Polygon) == 0 {
		return int(^uint(0) >> 1)
	}
	left := b.Polygon[0].X
	for _, p := range b.Polygon[1:] {
		if p.X < left {
			left = p.X
		}
	}
	return left
}

type Recognition struct {
	Plate      string      `json:"plate"`
	Region     string      `json:"region"`
	Confidence float32     `json:"confidence,omitempty"`
	Provider   string      `json:"provider"`
	Blocks     []TextBlock `json:"blocks"`
}

// LPRRequestDTO carries an image from the display client or an edge device.
type LPRRequestDTO struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
	DeviceID    string `json:"device_id,omitempty"`
}

// LPRResponseDTO is returned by the recognition endpoints.
type LPRResponseDTO struct {
	EventID        string        `json:"event_id"`
	DetectedPlate  string        `json:"detected_plate"`
	DetectedRegion string        `json:"detected_region"`
	Confidence     float32       `json:"confidence,omitempty"`
	Provider       string        `json:"provider,omitempty"`
	Status         *RecordStatus `json:"status,omitempty"`
	AnnotatedImage string        `json:"annotated_image_base64,omitempty"`
	ErrorMessage   string        `json:"error_message,omitempty"`
}
