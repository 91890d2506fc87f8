// Package netx provides the connectivity probe the sync engine consults
// before attempting network work.
package netx

import (
	"context"
	"net/http"
	"time"

	"github.com/lexora-app/lexora-sync/internal/logging"
)

const (
	// DefaultProbeURL answers 204 without a body, which keeps probes cheap.
	DefaultProbeURL = "https://clients3.google.com/generate_204"

	probeTimeout = 5 * time.Second
)

// Checker reports whether the network is reachable. Any HTTP response,
// including an error status, counts as online; only a transport failure
// means offline.
type Checker struct {
	url    string
	client *http.Client
}

func NewChecker(url string, client *http.Client) *Checker {
	if url == "" {
		url = DefaultProbeURL
	}
	if client == nil {
		client = &http.Client{Timeout: probeTimeout}
	}
	return &Checker{url: url, client: client}
}

// Online probes the configured endpoint once.
func (c *Checker) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// Watcher polls the checker and fires a callback on each offline-to-online
// transition.
type Watcher struct {
	checker  *Checker
	interval time.Duration
	log      logging.Logger
}

func NewWatcher(checker *Checker, interval time.Duration, log logging.Logger) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Watcher{checker: checker, interval: interval, log: log}
}

// Run blocks until ctx is cancelled, invoking onReconnect every time
// connectivity comes back after an observed outage.
func (w *Watcher) Run(ctx context.Context, onReconnect func()) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	wasOnline := w.checker.Online(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			online := w.checker.Online(ctx)
			if online && !wasOnline {
				w.log.Info(ctx, "connectivity restored")
				onReconnect()
			}
			wasOnline = online
		}
	}
}
