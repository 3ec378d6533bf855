package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
)

type iotDataAPI interface {
	Publish(ctx context.Context, params *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

// IoTPublisher sends alerts to an AWS IoT Core topic through the data plane API.
type IoTPublisher struct {
	client iotDataAPI
	topic  string
}

func NewIoTPublisher(client iotDataAPI, topic string) *IoTPublisher {
	return &IoTPublisher{client: client, topic: topic}
}

func (p *IoTPublisher) PublishAlert(ctx context.Context, alert domain.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("IoTPublisher.PublishAlert: marshal: %w", err)
	}
	log.Printf("IoTPublisher: publishing alert for plate '%s' (event %s) to topic %s", alert.PlateNumber, alert.EventID, p.topic)
	_, err = p.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(p.topic),
		Qos:     1,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("IoTPublisher.PublishAlert: %w", err)
	}
	return nil
}
