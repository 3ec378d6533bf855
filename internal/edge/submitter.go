package edge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
)

// Frame is one encoded camera capture.
type Frame struct {
	Data       []byte
	CapturedAt time.Time
}

// Submission is what the server said about a frame. Queued submissions carry no result.
type Submission struct {
	Queued   bool
	Response *domain.LPRResponseDTO
}

type Submitter interface {
	Submit(ctx context.Context, frame Frame) (*Submission, error)
}

var errUnauthorized = errors.New("server rejected credentials")

// HTTPSubmitter posts frames to the recognition endpoint and returns the server's answer.
type HTTPSubmitter struct {
	client   *http.Client
	baseURL  string
	deviceID string
	username string
	password string

	mu    sync.Mutex
	token string
}

func NewHTTPSubmitter(cfg SubmitConfig, deviceID string) *HTTPSubmitter {
	return &HTTPSubmitter{
		client:   &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.ServerURL, "/"),
		deviceID: deviceID,
		username: cfg.Username,
		password: cfg.Password,
		token:    cfg.Token,
	}
}

func (s *HTTPSubmitter) Submit(ctx context.Context, frame Frame) (*Submission, error) {
	body, err := json.Marshal(domain.LPRRequestDTO{
		ImageBase64: base64.StdEncoding.EncodeToString(frame.Data),
		DeviceID:    s.deviceID,
	})
	if err != nil {
		return nil, fmt.Errorf("HTTPSubmitter.Submit: %w", err)
	}

	resp, err := s.post(ctx, body)
	if errors.Is(err, errUnauthorized) && s.username != "" {
		// token expired; log in again once
		s.setToken("")
		resp, err = s.post(ctx, body)
	}
	if err != nil {
		return nil, fmt.Errorf("HTTPSubmitter.Submit: %w", err)
	}
	return &Submission{Response: resp}, nil
}

func (s *HTTPSubmitter) post(ctx context.Context, body []byte) (*domain.LPRResponseDTO, error) {
	token, err := s.bearer(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/lpr/process-image", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var out domain.LPRResponseDTO
	if err := s.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *HTTPSubmitter) bearer(ctx context.Context) (string, error) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token != "" {
		return token, nil
	}

	body, _ := json.Marshal(domain.LoginUserDTO{Username: s.username, Password: s.password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var auth domain.AuthResponseDTO
	if err := s.do(req, &auth); err != nil {
		return "", fmt.Errorf("login as '%s': %w", s.username, err)
	}
	s.setToken(auth.Token)
	return auth.Token, nil
}

func (s *HTTPSubmitter) setToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *HTTPSubmitter) do(req *http.Request, out any) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return errUnauthorized
	case resp.StatusCode >= 300:
		var apiErr struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		_ = json.Unmarshal(data, &apiErr)
		if apiErr.Details != "" {
			return fmt.Errorf("%s %s: %d %s (%s)", req.Method, req.URL.Path, resp.StatusCode, apiErr.Error, apiErr.Details)
		}
		return fmt.Errorf("%s %s: %d %s", req.Method, req.URL.Path, resp.StatusCode, apiErr.Error)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// maxSQSMessageBytes is the SQS payload limit.
const maxSQSMessageBytes = 256 * 1024

type sqsSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSSubmitter queues frames as CaptureMessages for the server's consumer.
type SQSSubmitter struct {
	client   sqsSender
	queueURL string
	deviceID string
	newID    func() string
}

func NewSQSSubmitter(client sqsSender, queueURL, deviceID string) *SQSSubmitter {
	return &SQSSubmitter{client: client, queueURL: queueURL, deviceID: deviceID, newID: uuid.NewString}
}

func (s *SQSSubmitter) Submit(ctx context.Context, frame Frame) (*Submission, error) {
	msg := domain.CaptureMessage{
		MessageID:   s.newID(),
		DeviceID:    s.deviceID,
		CapturedAt:  frame.CapturedAt.UTC(),
		ImageBase64: base64.StdEncoding.EncodeToString(frame.Data),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("SQSSubmitter.Submit: %w", err)
	}
	if len(body) > maxSQSMessageBytes {
		return nil, fmt.Errorf("SQSSubmitter.Submit: frame message is %d bytes, over the %d byte SQS limit (lower camera resolution or jpeg_quality)", len(body), maxSQSMessageBytes)
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"device_id": {DataType: aws.String("String"), StringValue: aws.String(s.deviceID)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("SQSSubmitter.Submit: send message %s: %w", msg.MessageID, err)
	}
	return &Submission{Queued: true}, nil
}
