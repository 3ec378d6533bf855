package iot

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/ocr"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/service"
)

type fakeSQS struct {
	mu       sync.Mutex
	batches  [][]types.Message
	deleted  []string
	received int
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received++
	if len(f.batches) == 0 {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return &sqs.ReceiveMessageOutput{Messages: b}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeProcessor struct {
	mu     sync.Mutex
	inputs []service.ScanInput
	errFor map[string]error
}

func (f *fakeProcessor) Process(_ context.Context, in service.ScanInput) (*service.ScanResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if err := f.errFor[in.DeviceID]; err != nil {
		return &service.ScanResult{EventID: "e"}, err
	}
	return &service.ScanResult{EventID: "e", Recognition: &domain.Recognition{Plate: "123 ABC"}}, nil
}

func capture(t *testing.T, device string) *string {
	t.Helper()
	body, err := json.Marshal(domain.CaptureMessage{
		MessageID:   "m-" + device,
		DeviceID:    device,
		CapturedAt:  time.Now(),
		ImageBase64: base64.StdEncoding.EncodeToString([]byte("jpeg bytes")),
	})
	if err != nil {
		t.Fatal(err)
	}
	return aws.String(string(body))
}

func TestHandleDeletionRules(t *testing.T) {
	q := &fakeSQS{}
	proc := &fakeProcessor{errFor: map[string]error{
		"no-text": ocr.ErrNoText,
		"db-down": errors.New("connection refused"),
	}}
	c := NewSQSConsumer(q, "https://sqs.local/captures", proc)
	ctx := context.Background()

	c.handle(ctx, "1", capture(t, "ok"), aws.String("rh-ok"))
	c.handle(ctx, "2", capture(t, "no-text"), aws.String("rh-no-text"))
	c.handle(ctx, "3", capture(t, "db-down"), aws.String("rh-db-down"))
	c.handle(ctx, "4", aws.String("{not json"), aws.String("rh-bad-json"))
	c.handle(ctx, "5", aws.String(`{"device_id":"x","image_base64":""}`), aws.String("rh-no-image"))
	c.handle(ctx, "6", nil, aws.String("rh-nil"))

	want := []string{"rh-ok", "rh-no-text", "rh-bad-json", "rh-no-image", "rh-nil"}
	if len(q.deleted) != len(want) {
		t.Fatalf("deleted = %v, want %v", q.deleted, want)
	}
	for i := range want {
		if q.deleted[i] != want[i] {
			t.Errorf("deleted[%d] = %q, want %q", i, q.deleted[i], want[i])
		}
	}
	if len(proc.inputs) != 3 || proc.inputs[0].Source != domain.SourceSQS || string(proc.inputs[0].Image) != "jpeg bytes" {
		t.Errorf("processor inputs = %+v", proc.inputs)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	q := &fakeSQS{batches: [][]types.Message{{
		{MessageId: aws.String("1"), Body: capture(t, "ok"), ReceiptHandle: aws.String("rh-1")},
	}}}
	c := NewSQSConsumer(q, "https://sqs.local/captures", &fakeProcessor{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		q.mu.Lock()
		n := len(q.deleted)
		q.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("message was not processed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}
