package chat

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/jeff-companion/backend/internal/config"
	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
	"github.com/zhouzirui/jeff-companion/backend/internal/model/persona"
	"github.com/zhouzirui/jeff-companion/backend/internal/service/ai"
)

// ErrHistoryCleared is reported when a reply arrives for a history that was
// cleared or rekeyed while the request was in flight.
var ErrHistoryCleared = errors.New("history was cleared while the request was in flight")

// ManagerConfig configures one conversation.
type ManagerConfig struct {
	APIKey            string
	Model             string
	Timeout           time.Duration
	RollbackOnFailure bool
	Persona           *persona.Persona
	Factory           ai.Factory
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithPublisher publishes the manager's events on Topic(sessionID).
func WithPublisher(publisher message.Publisher, sessionID string) ManagerOption {
	return func(m *Manager) {
		m.events = eventSink{publisher: publisher, sessionID: sessionID}
	}
}

// WithTranscriptOptions customizes the history store (clock, ID generator).
func WithTranscriptOptions(opts ...chat.TranscriptOption) ManagerOption {
	return func(m *Manager) {
		m.history = chat.NewTranscript(opts...)
	}
}

// WithPromptManager overrides the instruction builder.
func WithPromptManager(pm *ai.PromptManager) ManagerOption {
	return func(m *Manager) {
		if pm != nil {
			m.prompts = pm
		}
	}
}

// Manager owns one conversation: its history, the provider client for its
// credential, and the loading and error state a renderer needs.
//
// Manager does not serialize SendMessage calls. Callers that need replies in
// call order must wait for one call to return before issuing the next, or use
// TrySendMessage.
type Manager struct {
	model    string
	timeout  time.Duration
	rollback bool
	persona  *persona.Persona
	factory  ai.Factory
	prompts  *ai.PromptManager
	events   eventSink
	logger   zerolog.Logger

	// mu guards epoch and seq together with history mutations.
	mu      sync.Mutex
	epoch   uint64
	seq     uint64
	history *chat.Transcript

	clientMu sync.Mutex
	apiKey   string
	provider ai.Provider

	inflight atomic.Int32

	errMu      sync.RWMutex
	lastErr    *Error
	lastReason string
}

// NewManager validates the credential and returns an idle manager. No
// provider client is created until the first SendMessage.
func NewManager(cfg ManagerConfig, opts ...ManagerOption) (*Manager, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, configurationError("new manager", ErrMissingCredential)
	}
	if cfg.Factory == nil {
		return nil, configurationError("new manager", errors.New("provider factory is required"))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	m := &Manager{
		model:    cfg.Model,
		timeout:  timeout,
		rollback: cfg.RollbackOnFailure,
		persona:  cfg.Persona,
		factory:  cfg.Factory,
		prompts:  ai.NewPromptManager(),
		history:  chat.NewTranscript(),
		apiKey:   apiKey,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = log.With().Str("session_id", m.events.sessionID).Logger()
	return m, nil
}

type generateResult struct {
	reply string
	err   error
}

// SendMessage records the user turn, asks the provider for a reply within the
// configured timeout, and records the reply. It never returns a raw error:
// every failure becomes a Failure outcome.
func (m *Manager) SendMessage(ctx context.Context, text string, mood chat.Mood) Outcome {
	m.setLoading(true)
	defer m.setLoading(false)
	return m.send(ctx, text, mood)
}

// TrySendMessage is SendMessage for callers that share a manager between
// input surfaces. It reports false without touching the history when another
// send is already in flight.
func (m *Manager) TrySendMessage(ctx context.Context, text string, mood chat.Mood) (Outcome, bool) {
	if !m.tryBegin() {
		return Outcome{}, false
	}
	defer m.setLoading(false)
	return m.send(ctx, text, mood), true
}

func (m *Manager) send(ctx context.Context, text string, mood chat.Mood) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	const op = "send message"

	budget := m.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < budget {
			budget = left
		}
	}

	m.mu.Lock()
	epoch := m.epoch
	userTurn := m.history.Append(chat.RoleUser, text, mood)
	req := ai.Request{
		Instruction: m.prompts.BuildInstruction(m.persona, mood),
		History:     m.history.Snapshot(),
	}
	m.emit(turnEvent(EventTurnAppended, userTurn))
	m.mu.Unlock()

	provider, err := m.client(ctx)
	if err != nil {
		return m.fail(epoch, userTurn, configurationError(op, err), budget)
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// Buffered so the goroutine can always finish even after we stop waiting.
	results := make(chan generateResult, 1)
	go func() {
		reply, err := provider.Generate(callCtx, req)
		results <- generateResult{reply: reply, err: err}
	}()

	started := time.Now()
	var res generateResult
	select {
	case res = <-results:
	case <-callCtx.Done():
		res = generateResult{err: callCtx.Err()}
	}

	if res.err != nil {
		return m.fail(epoch, userTurn, classify(op, res.err), budget)
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return m.fail(epoch, userTurn, &Error{Kind: KindCanceled, Op: op, Err: ErrHistoryCleared}, budget)
	}
	reply := m.history.Append(chat.RoleAssistant, res.reply, chat.MoodNone)
	m.setError(nil, "")
	m.emit(turnEvent(EventTurnAppended, reply))
	m.mu.Unlock()

	m.logger.Debug().
		Str("provider", provider.Name()).
		Dur("latency", time.Since(started)).
		Int("turns", len(req.History)).
		Msg("reply received")
	return Success(reply)
}

// fail records a failed send. A failure that belongs to a history cleared in
// the meantime leaves the new conversation's error state alone.
func (m *Manager) fail(epoch uint64, userTurn chat.Turn, err *Error, budget time.Duration) Outcome {
	msg := reason(err, budget)
	if errors.Is(err.Err, ErrHistoryCleared) {
		msg = "The conversation was cleared before the reply arrived."
	}

	m.mu.Lock()
	current := m.epoch == epoch
	rolledBack := false
	if m.rollback && current && m.history.Remove(userTurn.ID) {
		rolledBack = true
		m.emit(turnEvent(EventTurnRolledBack, userTurn))
	}
	if current {
		m.setError(err, msg)
	}
	m.emit(Event{Type: EventSendFailed, Kind: err.Kind, Reason: msg})
	m.mu.Unlock()

	m.logger.Warn().
		Err(err).
		Str("kind", string(err.Kind)).
		Bool("rolled_back", rolledBack).
		Msg("send message failed")
	return Failure(err.Kind, msg)
}

// client returns the provider for the current credential, building it on
// first use. A failed build is not cached.
func (m *Manager) client(ctx context.Context) (ai.Provider, error) {
	m.clientMu.Lock()
	defer m.clientMu.Unlock()

	if m.provider != nil {
		return m.provider, nil
	}

	provider, err := m.factory(ctx, m.apiKey, m.model)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create provider client")
	}
	if provider == nil {
		return nil, errors.New("provider factory returned no client")
	}

	m.provider = provider
	m.logger.Info().Str("provider", provider.Name()).Str("model", m.model).Msg("provider client initialized")
	return provider, nil
}

// Rekey switches the manager to a new credential. The provider client and the
// history belong to the old credential and are discarded; an unchanged key
// is a no-op.
func (m *Manager) Rekey(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return configurationError("rekey", ErrMissingCredential)
	}

	m.clientMu.Lock()
	if apiKey == m.apiKey {
		m.clientMu.Unlock()
		return nil
	}
	m.apiKey = apiKey
	m.provider = nil
	m.clientMu.Unlock()

	m.ClearHistory()
	m.logger.Info().Msg("credential replaced")
	return nil
}

// History returns a copy of the turns in call order.
func (m *Manager) History() []chat.Turn {
	return m.history.Snapshot()
}

// ClearHistory discards every turn and the current error. It is idempotent.
func (m *Manager) ClearHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.history.Clear()
	m.setError(nil, "")
	m.emit(Event{Type: EventHistoryCleared})
}

// Loading reports whether a SendMessage call is in flight.
func (m *Manager) Loading() bool {
	return m.inflight.Load() > 0
}

// LastError returns the failure of the most recent send, or nil after a
// success or a clear.
func (m *Manager) LastError() error {
	m.errMu.RLock()
	defer m.errMu.RUnlock()
	if m.lastErr == nil {
		return nil
	}
	return m.lastErr
}

// Persona returns the persona shaping this conversation, if any.
func (m *Manager) Persona() *persona.Persona {
	return m.persona
}

// State is a renderer-friendly view of a manager.
type State struct {
	Loading   bool   `json:"loading"`
	Turns     int    `json:"turns"`
	Model     string `json:"model,omitempty"`
	ErrorKind Kind   `json:"errorKind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// State snapshots the loading flag, history size and current error.
func (m *Manager) State() State {
	m.errMu.RLock()
	defer m.errMu.RUnlock()

	st := State{
		Loading: m.Loading(),
		Turns:   m.history.Len(),
		Model:   m.model,
		Error:   m.lastReason,
	}
	if m.lastErr != nil {
		st.ErrorKind = m.lastErr.Kind
	}
	return st
}

func (m *Manager) setLoading(loading bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if loading {
		if m.inflight.Add(1) != 1 {
			return
		}
	} else if m.inflight.Add(-1) != 0 {
		return
	}
	m.emit(loadingEvent(loading))
}

func (m *Manager) tryBegin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.inflight.CompareAndSwap(0, 1) {
		return false
	}
	m.emit(loadingEvent(true))
	return true
}

// emit numbers and publishes evt. Callers hold m.mu, so subscribers see
// events in the order the changes were made.
func (m *Manager) emit(evt Event) {
	m.seq++
	evt.Seq = m.seq
	m.events.publish(evt)
}

func (m *Manager) setError(err *Error, msg string) {
	m.errMu.Lock()
	m.lastErr = err
	m.lastReason = msg
	m.errMu.Unlock()
}
