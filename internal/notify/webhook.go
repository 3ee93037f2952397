package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/haatos/simple-release/internal/release"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 5 * time.Second
	queueSize      = 64
)

type message struct {
	Text string `json:"text"`
}

// Webhook posts release progress to a chat incoming webhook. Notifications are
// delivered in order by a single background sender, so reporting never waits on
// the chat endpoint.
type Webhook struct {
	url     string
	client  *http.Client
	timeout time.Duration
	log     *zap.Logger

	mu     sync.Mutex
	closed bool
	queue  chan string
	done   chan struct{}
}

func NewWebhook(url string, client *http.Client, log *zap.Logger) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	w := &Webhook{url: url, client: client, timeout: DefaultTimeout, log: log}
	if url != "" {
		w.queue = make(chan string, queueSize)
		w.done = make(chan struct{})
		go w.deliver()
	}
	return w
}

// ForRelease returns a reporter prefixing every message with repository and tag.
// An empty url yields a reporter that does nothing.
func (w *Webhook) ForRelease(repository, tag string) release.Reporter {
	if w == nil || w.url == "" {
		return release.NopReporter{}
	}
	return release.ReporterFunc(
		func(_ context.Context, step release.Step, status release.Status, msg string) {
			w.enqueue(Format(repository, tag, step, status, msg))
		},
	)
}

// enqueue drops the notification when the queue is full or closed.
func (w *Webhook) enqueue(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.log.Warn("notification dropped after close", zap.String("text", text))
		return
	}
	select {
	case w.queue <- text:
	default:
		w.log.Warn("notification queue full, dropping", zap.String("text", text))
	}
}

func (w *Webhook) deliver() {
	defer close(w.done)
	for text := range w.queue {
		if err := w.Send(context.Background(), text); err != nil {
			w.log.Warn("err sending release notification",
				zap.String("text", text),
				zap.Error(err),
			)
		}
	}
}

// Close stops accepting notifications and waits for the queued ones to be sent.
func (w *Webhook) Close() {
	if w == nil || w.queue == nil {
		return
	}
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
}

func Format(repository, tag string, step release.Step, status release.Status, msg string) string {
	var text string
	switch status {
	case release.StatusDone:
		text = fmt.Sprintf("%s %s released", repository, tag)
	case release.StatusFailed:
		text = fmt.Sprintf("%s %s failed at %s", repository, tag, step)
	default:
		text = fmt.Sprintf("%s %s: %s", repository, tag, step)
	}
	if msg != "" {
		text += ": " + msg
	}
	return text
}

// Send posts text and waits at most the webhook timeout. Cancellation of ctx
// is ignored so that a finished release still gets its final notification.
func (w *Webhook) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(message{Text: text})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned %s", res.Status)
	}
	return nil
}
