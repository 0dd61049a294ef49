package server

import (
	"context"
	"fmt"

	"github.com/ironsheep/color-tracker-mcp/internal/detection"
)

// notifyActivator starts and ends AR on the client by sending notifications.
type notifyActivator struct {
	s *Server
}

type arActivateParams struct {
	ReferenceID string            `json:"reference_id"`
	Confidence  float64           `json:"confidence"`
	Result      *detection.Result `json:"result"`
}

func (a *notifyActivator) Activate(ctx context.Context, trigger *detection.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := a.s.notify("notifications/ar_activate", arActivateParams{
		ReferenceID: trigger.ReferenceID.String(),
		Confidence:  trigger.Confidence,
		Result:      trigger,
	})
	if err != nil {
		return fmt.Errorf("failed to send AR activation: %w", err)
	}
	return nil
}

func (a *notifyActivator) Release() error {
	if err := a.s.notify("notifications/ar_release", nil); err != nil {
		return fmt.Errorf("failed to send AR release: %w", err)
	}
	return nil
}
