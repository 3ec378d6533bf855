// Package notify publishes alerts for flagged plates to downstream subscribers.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
)

type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert domain.Alert) error
}

// Multi sends every alert to all publishers and joins their errors.
type Multi []AlertPublisher

func (m Multi) PublishAlert(ctx context.Context, alert domain.Alert) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishAlert(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

type Noop struct{}

func (Noop) PublishAlert(context.Context, domain.Alert) error { return nil }
