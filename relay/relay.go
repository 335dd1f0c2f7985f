// Package relay runs chat exchanges: it takes one request from the UI, streams
// the provider's reply back as fragment events, and ends every exchange with
// exactly one done or error event.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"opendocs/assembler"
	"opendocs/config"
	"opendocs/model"
	"opendocs/provider"
	"opendocs/storage"
)

var (
	// ErrExchangeInProgress is returned when a request arrives while another
	// exchange is still streaming.
	ErrExchangeInProgress = errors.New("another exchange is in progress")

	// ErrStopped is the cancellation cause of a user-initiated stop.
	ErrStopped = errors.New("exchange stopped by user")

	errTerminated = errors.New("exchange already terminated")
)

// ProviderFactory resolves and constructs provider adapters.
// *provider.Factory implements it.
type ProviderFactory interface {
	Resolve(providerID string) (provider.ProviderType, error)
	New(t provider.ProviderType, apiKey, modelName string) (model.Provider, error)
}

// Journal receives one record per finished exchange.
// *storage.Journal implements it.
type Journal interface {
	Record(ctx context.Context, rec storage.ExchangeRecord) error
}

// Option configures a Relay.
type Option func(*Relay)

// WithAssembler replaces the default message assembler.
func WithAssembler(a *assembler.Assembler) Option {
	return func(r *Relay) { r.assembler = a }
}

// WithTimeout bounds each exchange. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Relay) { r.timeout = d }
}

// WithJournal records exchange metadata.
func WithJournal(j Journal) Option {
	return func(r *Relay) { r.journal = j }
}

// WithCustomInstructions sets instructions used when a request has none.
func WithCustomInstructions(s string) Option {
	return func(r *Relay) { r.customInstructions = s }
}

// Relay serialises chat exchanges. It is safe for concurrent use.
type Relay struct {
	factory            ProviderFactory
	assembler          *assembler.Assembler
	journal            Journal
	timeout            time.Duration
	customInstructions string

	mu     sync.Mutex
	active *exchange
}

type exchange struct {
	id     string
	cancel context.CancelCauseFunc
}

// New returns a Relay constructing adapters through factory.
func New(factory ProviderFactory, opts ...Option) *Relay {
	r := &Relay{
		factory:   factory,
		assembler: assembler.New(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FromConfig builds a Relay with the settings in cfg.
func FromConfig(cfg *config.Config, journal Journal) *Relay {
	opts := []Option{
		WithAssembler(assembler.New(assembler.OSFileReader{MaxBytes: cfg.MaxAttachmentBytes})),
		WithTimeout(cfg.RequestTimeout),
		WithCustomInstructions(cfg.CustomInstructions),
	}
	if journal != nil {
		opts = append(opts, WithJournal(journal))
	}
	return New(provider.NewFactory(cfg), opts...)
}

// HandleChatRequest runs one exchange and returns once its terminal event has
// been emitted to sink. Provider failures are reported as error events, not
// returned; the returned error is ErrExchangeInProgress for a rejected request
// or the sink's own error when delivery failed.
func (r *Relay) HandleChatRequest(ctx context.Context, req model.ChatRequest, sink model.EventSink) (err error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	out := &guardedSink{sink: sink}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	ex, activeID := r.begin(req.ID, cancel)
	if ex == nil {
		config.DebugLog.Warn("rejecting overlapping chat request", "id", req.ID, "active", activeID)
		// A busy event under the active ID would end that exchange for the UI.
		if activeID == req.ID {
			return ErrExchangeInProgress
		}
		if emitErr := out.Emit(model.Failure(req.ID, ExchangeBusyMessage)); emitErr != nil {
			return emitErr
		}
		return ErrExchangeInProgress
	}
	// The slot is free before the terminal event is delivered, so a UI may
	// send its next request as soon as it sees done or error.
	out.onTerminal = func() { r.end(ex) }
	defer r.end(ex)

	if r.timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, r.timeout)
		defer cancelTimeout()
	}

	rec := storage.ExchangeRecord{
		ID:        req.ID,
		Provider:  req.Provider,
		Model:     req.Model,
		StartedAt: time.Now(),
	}

	defer func() {
		if p := recover(); p != nil {
			config.DebugLog.Error("chat exchange panicked", "id", req.ID, "panic", p)
			rec.Outcome = storage.OutcomeError
			rec.Category = string(CategoryOther)
			if emitErr := out.Emit(model.Failure(req.ID, GenericErrorMessage)); !errors.Is(emitErr, errTerminated) {
				err = emitErr
			}
		}
		r.record(rec)
	}()

	return r.run(ctx, req, out, &rec)
}

func (r *Relay) run(ctx context.Context, req model.ChatRequest, out *guardedSink, rec *storage.ExchangeRecord) error {
	fail := func(err error) error {
		config.DebugLog.Error("chat stream error", "id", req.ID, "err", err)
		rec.Outcome = storage.OutcomeError
		rec.Category = string(Classify(err))
		return out.Emit(model.Failure(req.ID, UserMessage(err)))
	}

	providerType, err := r.factory.Resolve(req.Provider)
	if err != nil {
		return fail(err)
	}
	rec.Provider = string(providerType)

	if provider.RequiresAPIKey(providerType) && strings.TrimSpace(req.APIKey) == "" {
		rec.Outcome = storage.OutcomeError
		rec.Category = string(CategoryCredential)
		return out.Emit(model.Failure(req.ID, assembler.APIKeyMissingMessage))
	}

	system, messages := r.assembler.Build(ctx, req, r.customInstructions)

	p, err := r.factory.New(providerType, req.APIKey, req.Model)
	if err != nil {
		return fail(err)
	}
	rec.Model = p.GetModel()

	var sinkErr error
	streamErr := p.Stream(ctx, model.StreamRequest{
		Model:    req.Model,
		System:   system,
		Messages: messages,
	}, func(c model.Chunk) error {
		if cause := context.Cause(ctx); cause != nil {
			return cause
		}
		if c.Kind != model.ChunkText {
			return nil
		}
		if err := out.Emit(model.Fragment(req.ID, c.Text)); err != nil {
			sinkErr = err
			return err
		}
		rec.Fragments++
		return nil
	})

	if config.Debug {
		config.DebugLog.Debug("stream finished", "id", req.ID, "chunks", rec.Fragments)
	}

	switch {
	case sinkErr != nil:
		rec.Outcome = storage.OutcomeError
		rec.Category = "transport"
		return fmt.Errorf("delivering exchange %s: %w", req.ID, sinkErr)

	case errors.Is(context.Cause(ctx), ErrStopped), errors.Is(context.Cause(ctx), context.Canceled):
		// A stop keeps the partial reply.
		rec.Outcome = storage.OutcomeStopped
		return out.Emit(model.Done(req.ID))

	case errors.Is(context.Cause(ctx), context.DeadlineExceeded):
		return fail(fmt.Errorf("exchange exceeded %s: %w", r.timeout, context.DeadlineExceeded))

	case streamErr != nil:
		return fail(streamErr)
	}

	rec.Outcome = storage.OutcomeDone
	return out.Emit(model.Done(req.ID))
}

// Cancel stops the active exchange when its ID matches (an empty id matches
// any). It reports whether an exchange was stopped.
func (r *Relay) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil || (id != "" && id != r.active.id) {
		return false
	}
	r.active.cancel(ErrStopped)
	return true
}

// Active returns the ID of the exchange in progress, if any.
func (r *Relay) Active() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return "", false
	}
	return r.active.id, true
}

// begin claims the exchange slot. When it is taken, begin returns nil and
// the ID of the exchange holding it.
func (r *Relay) begin(id string, cancel context.CancelCauseFunc) (*exchange, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil, r.active.id
	}
	r.active = &exchange{id: id, cancel: cancel}
	return r.active, ""
}

// end releases the slot if ex still holds it. It is safe to call twice.
func (r *Relay) end(ex *exchange) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == ex {
		r.active = nil
	}
}

func (r *Relay) record(rec storage.ExchangeRecord) {
	if r.journal == nil {
		return
	}
	rec.Duration = time.Since(rec.StartedAt)

	// The exchange context may already be cancelled; the record should still land.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.journal.Record(ctx, rec); err != nil {
		config.DebugLog.Warn("failed to journal exchange", "id", rec.ID, "err", err)
	}
}

// guardedSink drops everything emitted after the terminal event. onTerminal
// runs just before the terminal event is delivered.
type guardedSink struct {
	mu         sync.Mutex
	sink       model.EventSink
	terminated bool
	onTerminal func()
}

func (g *guardedSink) Emit(e model.StreamEvent) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.terminated {
		return errTerminated
	}
	if e.IsTerminal() {
		g.terminated = true
		if g.onTerminal != nil {
			g.onTerminal()
		}
	}
	return g.sink.Emit(e)
}
