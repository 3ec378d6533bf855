package domain

import "time"

type ScanSource string

const (
	SourceUpload ScanSource = "upload"
	SourceCamera ScanSource = "camera"
	SourceSQS    ScanSource = "sqs"
)

// ScanEvent records one pass of an image through the recognition pipeline.
type ScanEvent struct {
	EventID        string      `bson:"event_id" json:"event_id"`
	Source         ScanSource  `bson:"source" json:"source"`
	DeviceID       string      `bson:"device_id,omitempty" json:"device_id,omitempty"`
	Provider       string      `bson:"provider" json:"provider"`
	DetectedPlate  string      `bson:"detected_plate,omitempty" json:"detected_plate,omitempty"`
	DetectedRegion string      `bson:"detected_region,omitempty" json:"detected_region,omitempty"`
	Confidence     float32     `bson:"confidence" json:"confidence"`
	Matched        bool        `bson:"matched" json:"matched"`
	Flags          StatusFlags `bson:"flags" json:"flags"`
	ImageKey       string      `bson:"image_key,omitempty" json:"image_key,omitempty"`
	AnnotatedKey   string      `bson:"annotated_key,omitempty" json:"annotated_key,omitempty"`
	ErrorMessage   string      `bson:"error_message,omitempty" json:"error_message,omitempty"`
	CreatedAt      time.Time   `bson:"created_at" json:"created_at"`
}

type ScanEventFilterDTO struct {
	Plate string `form:"plate"`
	Limit int    `form:"limit"`
}

// ScanNotification is pushed to display clients over WebSocket.
type ScanNotification struct {
	EventID   string      `json:"event_id"`
	Source    ScanSource  `json:"source"`
	DeviceID  string      `json:"device_id,omitempty"`
	Plate     string      `json:"plate"`
	Region    string      `json:"region"`
	Matched   bool        `json:"matched"`
	Flags     StatusFlags `json:"flags"`
	Alert     bool        `json:"alert"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// CaptureMessage is what edge devices put on the capture queue.
type CaptureMessage struct {
	MessageID   string    `json:"message_id"`
	DeviceID    string    `json:"device_id"`
	CapturedAt  time.Time `json:"captured_at"`
	ImageBase64 string    `json:"image_base64"`
}

// Alert is published when a recognized plate belongs to a flagged record.
type Alert struct {
	EventID     string      `json:"event_id"`
	PlateNumber string      `json:"plate_number"`
	Region      string      `json:"region"`
	DeviceID    string      `json:"device_id,omitempty"`
	Flags       StatusFlags `json:"flags"`
	Timestamp   time.Time   `json:"timestamp"`
}
