// Package notify is the seam to the external notification collaborator. Only
// the decision to notify lives here; delivery belongs to the surrounding
// application.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type Message struct {
	UserID        string    `json:"user_id"`
	AmountSC      int64     `json:"amount_sc"`
	Reason        string    `json:"reason"`
	EffectiveDate time.Time `json:"effective_date"`
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, msg Message) error

func (f Func) Notify(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// LogNotifier records the notification decision in the log stream, for
// deployments where the real dispatcher tails it or is not wired yet.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, msg Message) error {
	log.Info().
		Str("user_id", msg.UserID).
		Int64("amount_sc", msg.AmountSC).
		Str("reason", msg.Reason).
		Time("effective_date", msg.EffectiveDate).
		Msg("notification enqueued")
	return nil
}
