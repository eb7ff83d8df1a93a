package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/TimurManjosov/goflagship/internal/datastore"
	"github.com/TimurManjosov/goflagship/internal/ldlog"
	"github.com/TimurManjosov/goflagship/internal/status"
	"github.com/TimurManjosov/goflagship/ldmodel"
)

// minPollInterval is the floor below which a configured interval is
// clamped, matching the streaming variant's unwillingness to hammer the
// control plane.
const minPollInterval = 30 * time.Second

// PollingConfig configures the polling Data Source.
type PollingConfig struct {
	PollURI       string
	AuthHeader    string
	PayloadFilter string
	Interval      time.Duration
	HTTPClient    *http.Client
}

type Polling struct {
	cfg     PollingConfig
	store   datastore.Store
	log     ldlog.Loggers
	statusB *status.Broadcaster[status.DataSourceStatus]
	changeB *status.Broadcaster[status.FlagChangeEvent]
	closeCh chan struct{}
	wg      conc.WaitGroup
}

func NewPolling(cfg PollingConfig, store datastore.Store, log ldlog.Loggers, statusB *status.Broadcaster[status.DataSourceStatus], changeB *status.Broadcaster[status.FlagChangeEvent]) *Polling {
	if cfg.Interval < minPollInterval {
		cfg.Interval = minPollInterval
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if log == nil {
		log = ldlog.NoOp()
	}
	return &Polling{cfg: cfg, store: store, log: log, statusB: statusB, changeB: changeB, closeCh: make(chan struct{})}
}

var _ DataSource = (*Polling)(nil)

func (p *Polling) Start(ctx context.Context) error {
	p.publishStatus(status.DataSourceInitializing, nil)
	p.wg.Go(func() { p.run(ctx) })
	return nil
}

func (p *Polling) run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			p.publishStatus(status.DataSourceOff, nil)
			return
		case <-p.closeCh:
			p.publishStatus(status.DataSourceOff, nil)
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Polling) poll(ctx context.Context) {
	uri := p.cfg.PollURI
	if p.cfg.PayloadFilter != "" {
		sep := "?"
		if strings.Contains(uri, "?") {
			sep = "&"
		}
		uri = uri + sep + "filter=" + p.cfg.PayloadFilter
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		p.publishStatus(status.DataSourceInterrupted, err)
		return
	}
	if p.cfg.AuthHeader != "" {
		req.Header.Set("Authorization", p.cfg.AuthHeader)
	}

	resp, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		p.publishStatus(status.DataSourceInterrupted, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if unrecoverableStatuses[resp.StatusCode] {
			p.log.Error("polling data source received unrecoverable status, stopping", "status", resp.StatusCode)
			p.publishStatus(status.DataSourceOff, unrecoverableError{status: resp.StatusCode})
			close(p.closeCh)
			return
		}
		p.publishStatus(status.DataSourceInterrupted, fmt.Errorf("poll request failed with status %d", resp.StatusCode))
		return
	}

	var payload putPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		p.publishStatus(status.DataSourceInterrupted, fmt.Errorf("decode poll payload: %w", err))
		return
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
				p.publishStatus(status.DataSourceInterrupted, err)
				return
			}
			allData[kind][key] = item
		}
	}
	if err := p.store.Init(ctx, allData); err != nil {
		p.publishStatus(status.DataSourceInterrupted, fmt.Errorf("store init: %w", err))
		return
	}
	if p.changeB != nil {
		for key := range allData[ldmodel.KindFlag] {
			p.changeB.Publish(status.FlagChangeEvent{Key: key})
		}
	}
	p.publishStatus(status.DataSourceValid, nil)
}

func (p *Polling) publishStatus(state status.DataSourceState, err error) {
	if p.statusB == nil {
		return
	}
	p.statusB.Publish(status.DataSourceStatus{State: state, LastError: err})
}

func (p *Polling) Close() error {
	select {
	case <-p.closeCh:
	default:
		close(p.closeCh)
	}
	p.wg.Wait()
	return nil
}
