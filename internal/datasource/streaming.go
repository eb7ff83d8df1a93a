package datasource

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/TimurManjosov/goflagship/internal/datastore"
	"github.com/TimurManjosov/goflagship/internal/ldlog"
	"github.com/TimurManjosov/goflagship/internal/status"
	"github.com/TimurManjosov/goflagship/ldmodel"
)

// unrecoverable HTTP statuses stop the reconnect loop entirely rather than
// retrying, matching the spec's "permanent failure" handling.
var unrecoverableStatuses = map[int]bool{
	http.StatusUnauthorized: true,
	http.StatusForbidden:    true,
	http.StatusNotFound:     true,
}

const resetBackoffAfter = 60 * time.Second

// StreamingConfig configures the SSE-based Data Source.
type StreamingConfig struct {
	StreamURI     string
	AuthHeader    string
	PayloadFilter string
	HTTPClient    *http.Client
}

// Streaming is the SSE variant of the Data Source.
type Streaming struct {
	cfg     StreamingConfig
	store   datastore.Store
	log     ldlog.Loggers
	statusB *status.Broadcaster[status.DataSourceStatus]
	changeB *status.Broadcaster[status.FlagChangeEvent]
	closeCh chan struct{}
	deps    *dependencyTracker
}

func NewStreaming(cfg StreamingConfig, store datastore.Store, log ldlog.Loggers, statusB *status.Broadcaster[status.DataSourceStatus], changeB *status.Broadcaster[status.FlagChangeEvent]) *Streaming {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if log == nil {
		log = ldlog.NoOp()
	}
	return &Streaming{cfg: cfg, store: store, log: log, statusB: statusB, changeB: changeB, closeCh: make(chan struct{}), deps: newDependencyTracker()}
}

var _ DataSource = (*Streaming)(nil)

func (s *Streaming) Start(ctx context.Context) error {
	s.publishStatus(status.DataSourceInitializing, nil)
	go s.run(ctx)
	return nil
}

func (s *Streaming) run(ctx context.Context) {
	bo := newReconnectBackOff()
	connectedAt := time.Time{}

	for {
		select {
		case <-s.closeCh:
			s.publishStatus(status.DataSourceOff, nil)
			return
		case <-ctx.Done():
			s.publishStatus(status.DataSourceOff, nil)
			return
		default:
		}

		connectedAt = time.Now()
		err := s.connectAndRead(ctx)

		if ctx.Err() != nil {
			return
		}

		if ue, ok := err.(unrecoverableError); ok {
			s.log.Error("streaming data source received unrecoverable status, stopping", "status", ue.status)
			s.publishStatus(status.DataSourceOff, err)
			return
		}

		if time.Since(connectedAt) >= resetBackoffAfter {
			bo.Reset()
		}

		s.publishStatus(status.DataSourceInterrupted, err)
		delay := bo.NextBackOff()
		s.log.Warn("streaming connection lost, reconnecting", "error", err, "delay", delay)

		select {
		case <-time.After(delay):
		case <-s.closeCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

type unrecoverableError struct {
	status int
}

func (e unrecoverableError) Error() string {
	return fmt.Sprintf("unrecoverable response status %d", e.status)
}

func (s *Streaming) connectAndRead(ctx context.Context) error {
	uri := s.cfg.StreamURI
	if s.cfg.PayloadFilter != "" {
		sep := "?"
		if strings.Contains(uri, "?") {
			sep = "&"
		}
		uri = uri + sep + "filter=" + s.cfg.PayloadFilter
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return err
	}
	if s.cfg.AuthHeader != "" {
		req.Header.Set("Authorization", s.cfg.AuthHeader)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if unrecoverableStatuses[resp.StatusCode] {
			return unrecoverableError{status: resp.StatusCode}
		}
		return fmt.Errorf("stream request failed with status %d", resp.StatusCode)
	}

	s.publishStatus(status.DataSourceValid, nil)
	return s.readEvents(ctx, resp.Body)
}

func (s *Streaming) readEvents(ctx context.Context, body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var eventName string
	var dataLines []string

	flush := func() error {
		if eventName == "" {
			return nil
		}
		data := strings.Join(dataLines, "\n")
		err := s.handleEvent(ctx, eventName, data)
		eventName, dataLines = "", nil
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := flush(); err != nil {
				return err
			}
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	return scanner.Err()
}

type putPayload struct {
	Data map[string]map[string]json.RawMessage `json:"data"`
}

type patchPayload struct {
	Kind string          `json:"kind"`
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

type deletePayload struct {
	Kind    string `json:"kind"`
	Key     string `json:"key"`
	Version int    `json:"version"`
}

func (s *Streaming) handleEvent(ctx context.Context, event, data string) error {
	switch event {
	case "put":
		var payload putPayload
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return fmt.Errorf("decode put: %w", err)
		}
		allData := map[ldmodel.Kind]map[string]ldmodel.ItemDescriptor{
			ldmodel.KindFlag:    {},
			ldmodel.KindSegment: {},
		}
		for kindName, items := range payload.Data {
			kind := ldmodel.Kind(kindName)
			for key, raw := range items {
				item, err := decodeItem(kind, raw)
				if err != nil {
					return err
				}
				allData[kind][key] = item
			}
		}
		if err := s.store.Init(ctx, allData); err != nil {
			return fmt.Errorf("store init: %w", err)
		}
		s.deps.reset()
		for kind, items := range allData {
			for key, item := range items {
				s.deps.updateDependenciesFrom(kindAndKey{kind: kind, key: key}, item)
			}
		}
		s.notifyAllChanged(allData)
	case "patch":
		var payload patchPayload
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return fmt.Errorf("decode patch: %w", err)
		}
		kind := ldmodel.Kind(payload.Kind)
		item, err := decodeItem(kind, payload.Data)
		if err != nil {
			return err
		}
		if _, err := s.store.Upsert(ctx, kind, payload.Key, item); err != nil {
			return fmt.Errorf("store upsert: %w", err)
		}
		s.deps.updateDependenciesFrom(kindAndKey{kind: kind, key: payload.Key}, item)
		s.notifyChanged(kind, payload.Key)
	case "delete":
		var payload deletePayload
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return fmt.Errorf("decode delete: %w", err)
		}
		kind := ldmodel.Kind(payload.Kind)
		tombstone := datastore.Tombstone(payload.Version)
		if _, err := s.store.Upsert(ctx, kind, payload.Key, tombstone); err != nil {
			return fmt.Errorf("store tombstone: %w", err)
		}
		s.deps.updateDependenciesFrom(kindAndKey{kind: kind, key: payload.Key}, tombstone)
		s.notifyChanged(kind, payload.Key)
	default:
		s.log.Debug("ignoring unknown stream event", "event", event)
	}
	return nil
}

func decodeItem(kind ldmodel.Kind, raw json.RawMessage) (ldmodel.ItemDescriptor, error) {
	switch kind {
	case ldmodel.KindFlag:
		var f ldmodel.Flag
		if err := json.Unmarshal(raw, &f); err != nil {
			return ldmodel.ItemDescriptor{}, fmt.Errorf("decode flag: %w", err)
		}
		return ldmodel.ItemDescriptor{Version: f.Version, Flag: &f}, nil
	case ldmodel.KindSegment:
		var seg ldmodel.Segment
		if err := json.Unmarshal(raw, &seg); err != nil {
			return ldmodel.ItemDescriptor{}, fmt.Errorf("decode segment: %w", err)
		}
		return ldmodel.ItemDescriptor{Version: seg.Version, Segment: &seg}, nil
	default:
		return ldmodel.ItemDescriptor{}, fmt.Errorf("unknown kind %q", kind)
	}
}

// notifyChanged expands the changed item through the dependency graph so
// that a segment update (or a flag used as a prerequisite) also produces
// a FlagChangeEvent for every flag that references it, directly or
// transitively, not just a literal flag-kind upsert.
func (s *Streaming) notifyChanged(kind ldmodel.Kind, key string) {
	if s.changeB == nil {
		return
	}
	for affected := range s.deps.affectedItems(kindAndKey{kind: kind, key: key}) {
		if affected.kind == ldmodel.KindFlag {
			s.changeB.Publish(status.FlagChangeEvent{Key: affected.key})
		}
	}
}

func (s *Streaming) notifyAllChanged(allData map[ldmodel.Kind]map[string]ldmodel.ItemDescriptor) {
	if s.changeB == nil {
		return
	}
	for key := range allData[ldmodel.KindFlag] {
		s.changeB.Publish(status.FlagChangeEvent{Key: key})
	}
}

func (s *Streaming) publishStatus(state status.DataSourceState, err error) {
	if s.statusB == nil {
		return
	}
	s.statusB.Publish(status.DataSourceStatus{State: state, LastError: err})
}

func (s *Streaming) Close() error {
	close(s.closeCh)
	return nil
}
