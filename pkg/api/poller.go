package api

import (
	"context"
	"time"

	"github.com/tinyland-inc/gridchat/pkg/logger"
)

// DefaultPollInterval matches the client's historical roster refresh rate.
const DefaultPollInterval = 3 * time.Second

// Poller fetches the active-player roster on a fixed interval and hands
// each result to a callback. Fetch errors are logged and polling
// continues; a stale roster is preferable to a dead one.
type Poller struct {
	client   *Client
	interval time.Duration
	onRoster func([]Player)
}

func NewPoller(client *Client, interval time.Duration, onRoster func([]Player)) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{client: client, interval: interval, onRoster: onRoster}
}

// Run polls until ctx is done. The first fetch happens immediately.
func (p *Poller) Run(ctx context.Context) {
	p.tick(ctx)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	players, err := p.client.ActivePlayers(ctx)
	if err != nil {
		logger.DebugCF("api", "Roster poll failed", map[string]any{"error": err.Error()})
		return
	}
	if p.onRoster != nil {
		p.onRoster(players)
	}
}
