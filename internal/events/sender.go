// HTTP delivery for the Event Pipeline's flush payloads, grounded on
// goflagship's internal/webhook.Dispatcher (bounded queue, worker
// goroutine, atomic-closed guard) but adapted down to the spec's
// single-retry semantics: the teacher's exponential multi-attempt loop
// becomes exactly one immediate retry on a transient failure, and a
// permanent-failure status (401/403/404/410) disables the sender instead
// of logging and continuing.
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/TimurManjosov/goflagship/internal/ldlog"
)

var permanentFailureStatuses = map[int]bool{
	http.StatusUnauthorized: true,
	http.StatusForbidden:    true,
	http.StatusNotFound:     true,
	http.StatusGone:         true,
}

// Sender buffers OutboundEvents and POSTs them as a single JSON array on
// Flush, with one retry on any failure other than a permanent-failure
// status (a network error or any other non-2xx status), reusing the same
// payload ID for the retry.
type Sender struct {
	eventsURI  string
	authHeader string
	httpClient *http.Client
	log        ldlog.Loggers

	mu      sync.Mutex
	buffer  []OutboundEvent
	disabled int32

	onServerTime func(unixMillis int64)
}

func NewSender(eventsURI, authHeader string, httpClient *http.Client, log ldlog.Loggers) *Sender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = ldlog.NoOp()
	}
	return &Sender{eventsURI: eventsURI, authHeader: authHeader, httpClient: httpClient, log: log}
}

// OnServerTime registers a callback invoked with the Date header of each
// successful delivery, so the processor can bound the debug-event window.
func (s *Sender) OnServerTime(fn func(unixMillis int64)) {
	s.onServerTime = fn
}

func (s *Sender) QueueOutbound(e OutboundEvent) {
	if atomic.LoadInt32(&s.disabled) == 1 {
		return
	}
	s.mu.Lock()
	s.buffer = append(s.buffer, e)
	s.mu.Unlock()
}

func (s *Sender) Flush() {
	if atomic.LoadInt32(&s.disabled) == 1 {
		return
	}
	s.mu.Lock()
	batch := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	payload, err := json.Marshal(batch)
	if err != nil {
		s.log.Error("failed to encode event payload", "error", err)
		return
	}

	if err := s.deliverWithOneRetry(payload); err != nil {
		s.log.Warn("event delivery failed after retry", "error", err)
	}
}

func (s *Sender) deliverWithOneRetry(payload []byte) error {
	payloadID := uuid.New().String()
	err := s.deliverOnce(payload, payloadID)
	if err == nil {
		return nil
	}
	if pf, ok := err.(permanentFailureError); ok {
		s.log.Error("event delivery received permanent failure status, disabling event pipeline", "status", pf.status)
		atomic.StoreInt32(&s.disabled, 1)
		return err
	}
	s.log.Debug("event delivery failed, retrying once", "error", err)
	return s.deliverOnce(payload, payloadID)
}

type permanentFailureError struct{ status int }

func (e permanentFailureError) Error() string {
	return fmt.Sprintf("permanent failure status %d", e.status)
}

func (s *Sender) deliverOnce(payload []byte, payloadID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.eventsURI, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-LaunchDarkly-Event-Schema", "4")
	req.Header.Set("X-LaunchDarkly-Payload-ID", payloadID)
	if s.authHeader != "" {
		req.Header.Set("Authorization", s.authHeader)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if dateHeader := resp.Header.Get("Date"); dateHeader != "" && s.onServerTime != nil {
		if t, err := http.ParseTime(dateHeader); err == nil {
			s.onServerTime(t.UnixMilli())
		}
	}

	if permanentFailureStatuses[resp.StatusCode] {
		return permanentFailureError{status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("event delivery failed with status %d", resp.StatusCode)
	}
	return nil
}
