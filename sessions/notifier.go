package sessions

import (
	"context"

	"github.com/rs/zerolog"
)

// Notifier shows a transient message to the user, e.g. a toast.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

type NotifierFunc func(ctx context.Context, message string)

func (f NotifierFunc) Notify(ctx context.Context, message string) {
	f(ctx, message)
}

// logNotifier is used when the host application registers no notifier.
type logNotifier struct {
	log zerolog.Logger
}

func (n logNotifier) Notify(_ context.Context, message string) {
	n.log.Warn().Str("notice", message).Msg("User notification")
}
