package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/gosuda/taskboard/internal/messenger"
)

// MessengerRegistry lists the chat targets activity is mirrored to.
type MessengerRegistry interface {
	Targets() []Target
}

// Notifier mirrors board activity to chat platforms.
type Notifier struct {
	messengers MessengerRegistry
}

func New(messengers MessengerRegistry) *Notifier {
	return &Notifier{messengers: messengers}
}

// Notify posts a to every registered target. A failing target does not stop
// the others; all failures are returned joined.
func (n *Notifier) Notify(ctx context.Context, a messenger.Activity) error {
	var errs []error
	for _, t := range n.messengers.Targets() {
		if _, err := t.Messenger.SendActivity(ctx, t.ChannelID, a); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Messenger.Platform(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify.Notifier.Notify: %w", errors.Join(errs...))
	}
	return nil
}
