package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/vire-leaderboard/internal/common"
	"github.com/bobmcallan/vire-leaderboard/internal/leaderboard"
	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

// Sender delivers one embed to a channel.
type Sender interface {
	Send(ctx context.Context, embed Embed) error
	Name() string
}

// Notifier announces the top-ranked account of a snapshot to all senders.
type Notifier struct {
	senders []Sender
	logger  *common.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(logger *common.Logger, senders ...Sender) *Notifier {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Notifier{senders: senders, logger: logger}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return len(n.senders) > 0
}

// NotifyTop posts the top-ranked account. Each sender is tried; the first
// error is returned after all have been attempted.
func (n *Notifier) NotifyTop(ctx context.Context, snapshots models.SnapshotMap, at time.Time) error {
	if !n.Enabled() {
		return nil
	}

	top, ok := leaderboard.Build(snapshots).Top()
	if !ok {
		n.logger.Debug().Msg("Snapshot is empty, nothing to announce")
		return nil
	}
	if err := n.broadcast(ctx, TopRankedEmbed(top, at)); err != nil {
		return err
	}
	n.logger.Info().Str("account", top.Name).Msg("Top ranked account announced")
	return nil
}

// NotifyHoldingChanges posts one embed per account whose tickers changed, or
// a single "no changes" embed when none did.
func (n *Notifier) NotifyHoldingChanges(ctx context.Context, changes []leaderboard.HoldingChange, at time.Time) error {
	if !n.Enabled() {
		return nil
	}

	if len(changes) == 0 {
		return n.broadcast(ctx, NoChangesEmbed(at))
	}
	var firstErr error
	for _, c := range changes {
		if err := n.broadcast(ctx, HoldingChangeEmbed(c, at)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	n.logger.Info().Int("accounts", len(changes)).Msg("Holding changes announced")
	return firstErr
}

// broadcast sends embed to every sender and returns the first error.
func (n *Notifier) broadcast(ctx context.Context, embed Embed) error {
	var firstErr error
	for _, s := range n.senders {
		if err := s.Send(ctx, embed); err != nil {
			n.logger.Warn().Str("sender", s.Name()).Str("title", embed.Title).Err(err).Msg("Failed to send notification")
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", s.Name(), err)
			}
		}
	}
	return firstErr
}

// TopRankedEmbed renders the top-ranked entry.
func TopRankedEmbed(top leaderboard.Entry, at time.Time) Embed {
	return Embed{
		Title: fmt.Sprintf("Top ranked: %s", top.Name),
		URL:   top.URL,
		Fields: []EmbedField{
			{Name: "Money In Account", Value: fmt.Sprintf("%.2f", top.Value), Inline: true},
			{Name: "Current Holdings", Value: leaderboard.FormatHoldings(top.Holdings)},
		},
		Timestamp: at.UTC().Format(time.RFC3339),
	}
}

// HoldingChangeEmbed lists the tickers one account bought and sold.
func HoldingChangeEmbed(c leaderboard.HoldingChange, at time.Time) Embed {
	var b strings.Builder
	for _, t := range c.Bought {
		fmt.Fprintf(&b, "+ Bought %s\n", t)
	}
	for _, t := range c.Sold {
		fmt.Fprintf(&b, "- Sold %s\n", t)
	}
	return Embed{
		Title:       fmt.Sprintf("Stock Changes for %s", c.Name),
		Description: b.String(),
		Color:       colorGreen,
		Timestamp:   at.UTC().Format(time.RFC3339),
	}
}

// NoChangesEmbed reports a run in which no account changed its tickers.
func NoChangesEmbed(at time.Time) Embed {
	return Embed{
		Title:     "No Stock Changes Detected",
		Color:     colorGreyple,
		Timestamp: at.UTC().Format(time.RFC3339),
	}
}
