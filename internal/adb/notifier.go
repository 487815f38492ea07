package adb

import (
	"context"
	"fmt"

	"ignite/internal/platform"
)

// Notifier posts status-bar notifications on the head unit
type Notifier struct {
	client *Client
	tag    string
}

var _ platform.Notifier = (*Notifier)(nil)

// NewNotifier posts notifications under a fixed tag, so each one replaces the last
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client, tag: "ignite"}
}

// Notify shows message as a notification titled Ignite
func (n *Notifier) Notify(ctx context.Context, message string) error {
	cmd := fmt.Sprintf("cmd notification post -S bigtext -t %s %s %s",
		shellQuote("Ignite"), shellQuote(n.tag), shellQuote(message))
	if _, err := n.client.Shell(ctx, cmd); err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	return nil
}
