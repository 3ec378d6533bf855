package iot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/imaging"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/service"
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// ScanProcessor is the part of the scan pipeline the consumer drives.
type ScanProcessor interface {
	Process(ctx context.Context, in service.ScanInput) (*service.ScanResult, error)
}

// errBadMessage marks a capture that can never be processed.
var errBadMessage = errors.New("malformed capture message")

// SQSConsumer long-polls the capture queue that edge devices publish frames to.
type SQSConsumer struct {
	sqsClient sqsAPI
	queueURL  string
	scans     ScanProcessor
	retryWait time.Duration
}

func NewSQSConsumer(client sqsAPI, queueURL string, scans ScanProcessor) *SQSConsumer {
	return &SQSConsumer{
		sqsClient: client,
		queueURL:  queueURL,
		scans:     scans,
		retryWait: 5 * time.Second,
	}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	log.Printf("SQS Consumer: listening on queue %s", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			log.Println("SQS Consumer: context cancelled, stopping.")
			return
		default:
		}

		result, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   60,
		})
		if err != nil {
			if ctx.Err() != nil {
				log.Println("SQS Consumer: context cancelled, stopping.")
				return
			}
			log.Printf("SQS Consumer: receive failed: %v", err)
			select {
			case <-time.After(c.retryWait):
			case <-ctx.Done():
				log.Println("SQS Consumer: context cancelled while waiting for retry.")
				return
			}
			continue
		}

		if len(result.Messages) > 0 {
			log.Printf("SQS Consumer: received %d message(s)", len(result.Messages))
		}
		for _, message := range result.Messages {
			c.handle(ctx, aws.ToString(message.MessageId), message.Body, message.ReceiptHandle)
		}
	}
}

// handle deletes the message when it was processed or can never be processed.
// Any other failure leaves it for redelivery after the visibility timeout.
func (c *SQSConsumer) handle(ctx context.Context, messageID string, body, receiptHandle *string) {
	if body == nil {
		log.Printf("SQS Consumer: message %s has an empty body, deleting", messageID)
		c.deleteMessage(ctx, receiptHandle)
		return
	}

	err := c.process(ctx, *body)
	switch {
	case err == nil:
		c.deleteMessage(ctx, receiptHandle)
	case errors.Is(err, errBadMessage) || service.IsPermanent(err):
		log.Printf("SQS Consumer: dropping message %s: %v", messageID, err)
		c.deleteMessage(ctx, receiptHandle)
	default:
		log.Printf("SQS Consumer: failed to process message %s: %v. It will be retried after the visibility timeout.", messageID, err)
	}
}

func (c *SQSConsumer) process(ctx context.Context, body string) error {
	var msg domain.CaptureMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("%w: %v", errBadMessage, err)
	}
	data, err := imaging.DecodeBase64(msg.ImageBase64)
	if err != nil {
		return fmt.Errorf("%w: %v", errBadMessage, err)
	}

	res, err := c.scans.Process(ctx, service.ScanInput{
		Image:    data,
		Source:   domain.SourceSQS,
		DeviceID: msg.DeviceID,
	})
	if err != nil {
		return err
	}
	if res.Recognition != nil {
		log.Printf("SQS Consumer: capture %s from %s read as '%s' (event %s)", msg.MessageID, msg.DeviceID, res.Recognition.Plate, res.EventID)
	}
	return nil
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		log.Println("SQS Consumer: empty receipt handle, cannot delete message.")
		return
	}
	_, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		log.Printf("SQS Consumer: delete message failed: %v", err)
	}
}
