package events

import (
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/TimurManjosov/goflagship/internal/ldlog"
)

// Processor is the Event Pipeline: the public-facing inbound queue plus
// the background worker that summarizes, builds outbound payloads, and
// flushes them to a sender. Lifecycle management (bounded channel,
// non-blocking enqueue with drop-on-full, atomic-CAS idempotent Close) is
// grounded directly on goflagship's internal/audit.Service.
type Processor struct {
	cfg     Config
	log     ldlog.Loggers
	sender  *Sender
	summary *summarizer
	seen    *seenContexts

	inbox   chan InputEvent
	flushCh chan chan struct{}
	stopCh  chan struct{}
	closed  int32
	wg      conc.WaitGroup

	globalPrivateAttrs []string

	lastServerTime atomic.Int64
}

// NewProcessor constructs and starts the pipeline worker.
func NewProcessor(cfg Config, sender *Sender, log ldlog.Loggers, globalPrivateAttrs []string) *Processor {
	cfg.applyDefaults()
	if log == nil {
		log = ldlog.NoOp()
	}
	p := &Processor{
		cfg:                cfg,
		log:                log,
		sender:             sender,
		summary:            newSummarizer(),
		seen:               newSeenContexts(cfg.SeenContextCapacity, cfg.SeenContextTTL),
		inbox:              make(chan InputEvent, cfg.Capacity),
		flushCh:            make(chan chan struct{}),
		stopCh:             make(chan struct{}),
		globalPrivateAttrs: globalPrivateAttrs,
	}
	p.wg.Go(p.worker)
	return p
}

// Send enqueues an event, dropping it with a logged warning if the queue
// is full -- never blocking the caller.
func (p *Processor) Send(e InputEvent) {
	if atomic.LoadInt32(&p.closed) == 1 {
		return
	}
	select {
	case p.inbox <- e:
	default:
		p.log.Warn("event queue full, dropping event", "flagKey", e.FlagKey, "kind", e.Kind)
	}
}

// Flush requests an immediate flush and blocks until it completes.
func (p *Processor) Flush() {
	if atomic.LoadInt32(&p.closed) == 1 {
		return
	}
	done := make(chan struct{})
	select {
	case p.flushCh <- done:
		<-done
	case <-p.stopCh:
	}
}

// Close drains the queue, flushes once more, and stops the worker. Safe
// to call more than once. Waits for the worker goroutine to exit, so a
// panic inside it surfaces here instead of crashing the process silently.
func (p *Processor) Close() error {
	if !atomic.CompareAndSwapInt32(&p.closed, 0, 1) {
		return nil
	}
	close(p.stopCh)
	p.wg.Wait()
	return nil
}

func (p *Processor) worker() {
	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case e := <-p.inbox:
			p.process(e)
		case <-ticker.C:
			p.doFlush()
		case done := <-p.flushCh:
			p.doFlush()
			close(done)
		case <-p.stopCh:
			p.drainAndFlush()
			return
		}
	}
}

func (p *Processor) drainAndFlush() {
	for {
		select {
		case e := <-p.inbox:
			p.process(e)
		default:
			p.doFlush()
			return
		}
	}
}

func (p *Processor) process(e InputEvent) {
	if !e.ExcludeFromSummaries && e.Kind == InputEvaluation {
		p.summary.record(e)
	}

	isNewContext := p.seen.noticeContext(e.Context)
	debug := p.isDebugEligible(e)
	shouldOutput := isNewContext || e.TrackEvents || debug || e.Kind != InputEvaluation

	if !shouldOutput {
		return
	}
	if p.sender != nil {
		p.sender.QueueOutbound(toOutboundEvent(e, isNewContext, debug, p.globalPrivateAttrs))
	}
}

func (p *Processor) isDebugEligible(e InputEvent) bool {
	if e.DebugEventsUntilDate == nil {
		return false
	}
	now := time.Now().UnixMilli()
	serverTime := p.lastServerTime.Load()
	return now < *e.DebugEventsUntilDate && (serverTime == 0 || now < serverTime)
}

// NoteServerTime records the server Date header seen on the last
// successful delivery, used to bound the debug-event window against
// control-plane clock skew.
func (p *Processor) NoteServerTime(unixMillis int64) {
	p.lastServerTime.Store(unixMillis)
}

func (p *Processor) doFlush() {
	summary, ok := p.summary.flush()
	if p.sender != nil && ok {
		p.sender.QueueOutbound(OutboundEvent{Kind: "summary", Summary: &summary})
	}
	if p.sender != nil {
		p.sender.Flush()
	}
}
