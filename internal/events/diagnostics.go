package events

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/TimurManjosov/goflagship/internal/ldlog"
)

// DiagnosticInit is the one-time initialization diagnostic payload, sent
// shortly after the Client finishes constructing its components.
type DiagnosticInit struct {
	Kind        string `json:"kind"`
	ID          string `json:"id"`
	CreationDate int64  `json:"creationDate"`
	SDK         map[string]string `json:"sdk"`
	Platform    map[string]string `json:"platform"`
}

// DiagnosticPeriodic is the recurring statistics payload.
type DiagnosticPeriodic struct {
	Kind               string `json:"kind"`
	ID                 string `json:"id"`
	CreationDate       int64  `json:"creationDate"`
	DataSinceDate      int64  `json:"dataSinceDate"`
	DroppedEvents      int64  `json:"droppedEvents"`
	EventsInLastBatch  int64  `json:"eventsInLastBatch"`
	StreamInits        int64  `json:"streamInits"`
}

// DiagnosticsManager owns the ID shared across init/periodic payloads and
// runs the periodic ticker, posting directly to the diagnostic endpoint
// rather than through the main event sender -- the two channels are kept
// separate per spec so a disabled event pipeline doesn't also silence
// diagnostics.
type DiagnosticsManager struct {
	diagnosticID string
	endpoint     string
	authHeader   string
	httpClient   *http.Client
	log          ldlog.Loggers
	interval     time.Duration

	dataSinceDate int64
	droppedEvents atomic.Int64
	streamInits   atomic.Int64

	stopCh chan struct{}
	wg     conc.WaitGroup
}

func NewDiagnosticsManager(endpoint, authHeader string, httpClient *http.Client, interval time.Duration, log ldlog.Loggers) *DiagnosticsManager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = ldlog.NoOp()
	}
	if interval < 60*time.Second {
		interval = 60 * time.Second
	}
	return &DiagnosticsManager{
		diagnosticID: uuid.New().String(),
		endpoint:     endpoint,
		authHeader:   authHeader,
		httpClient:   httpClient,
		interval:     interval,
		log:          log,
		stopCh:       make(chan struct{}),
	}
}

// RecordDrop and RecordStreamInit feed the periodic statistics payload.
// Neither the Processor nor the data sources call them, so unless another
// caller does, both counters are reported as zero.
func (d *DiagnosticsManager) RecordDrop()       { d.droppedEvents.Add(1) }
func (d *DiagnosticsManager) RecordStreamInit()  { d.streamInits.Add(1) }

// Start posts the init payload immediately, then posts periodic payloads
// on the configured interval until Stop is called.
func (d *DiagnosticsManager) Start(nowUnixMillis int64) {
	d.dataSinceDate = nowUnixMillis
	d.wg.Go(func() {
		d.post(DiagnosticInit{
			Kind:         "diagnostic-init",
			ID:           d.diagnosticID,
			CreationDate: nowUnixMillis,
			SDK:          map[string]string{"name": "go-server-sdk", "version": "1.0.0"},
			Platform:     map[string]string{"name": "go"},
		})
	})
	d.wg.Go(d.run)
}

func (d *DiagnosticsManager) run() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			now := time.Now().UnixMilli()
			d.post(DiagnosticPeriodic{
				Kind:          "diagnostic",
				ID:            d.diagnosticID,
				CreationDate:  now,
				DataSinceDate: d.dataSinceDate,
				DroppedEvents: d.droppedEvents.Swap(0),
				StreamInits:   d.streamInits.Swap(0),
			})
			d.dataSinceDate = now
		}
	}
}

func (d *DiagnosticsManager) post(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		d.log.Error("failed to encode diagnostic payload", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(data))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if d.authHeader != "" {
		req.Header.Set("Authorization", d.authHeader)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.log.Debug("diagnostic post failed", "error", err)
		return
	}
	resp.Body.Close()
}

func (d *DiagnosticsManager) Stop() {
	select {
	case <-d.stopCh:
	default:
		close(d.stopCh)
	}
	d.wg.Wait()
}
