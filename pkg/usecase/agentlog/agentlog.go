package agentlog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/adapter"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
)

const (
	// DefaultKey is the storage key of the agent log document.
	DefaultKey = "agent_logs.json"
	// DefaultLimit is the number of entries kept.
	DefaultLimit = 1000
)

// Logger appends agent outputs to a JSON array document, keeping only the
// latest entries. It is not safe for concurrent use.
type Logger struct {
	storage adapter.Storage
	key     string
	limit   int
	now     func() time.Time
}

// Option is a functional option for Logger
type Option func(*Logger)

// WithKey sets the storage key of the log document
func WithKey(key string) Option {
	return func(l *Logger) {
		l.key = key
	}
}

// WithLimit sets the number of entries kept
func WithLimit(limit int) Option {
	return func(l *Logger) {
		l.limit = limit
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		l.now = now
	}
}

// New creates a Logger
func New(storage adapter.Storage, opts ...Option) *Logger {
	l := &Logger{
		storage: storage,
		key:     DefaultKey,
		limit:   DefaultLimit,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records output of agent and rewrites the log document. An unreadable
// document is replaced by a new one.
func (l *Logger) Append(ctx context.Context, agent string, output any) (*model.AgentLogEntry, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		logging.From(ctx).Warn("discard unreadable agent log", "key", l.key, "error", err)
		entries = nil
	}

	entry := &model.AgentLogEntry{
		ID:        model.NewAgentLogID(),
		Timestamp: l.now(),
		Agent:     agent,
		Output:    output,
	}
	entries = append(entries, entry)
	if l.limit > 0 && len(entries) > l.limit {
		entries = entries[len(entries)-l.limit:]
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal agent log", goerr.V("agent", agent))
	}
	if err := adapter.WriteAll(ctx, l.storage, l.key, data); err != nil {
		return nil, goerr.Wrap(err, "failed to save agent log", goerr.V("key", l.key))
	}

	return entry, nil
}

// Entries returns the logged entries, oldest first. A missing document has
// no entries.
func (l *Logger) Entries(ctx context.Context) ([]*model.AgentLogEntry, error) {
	data, err := adapter.ReadAll(ctx, l.storage, l.key)
	if err != nil {
		if errors.Is(err, adapter.ErrObjectNotFound) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to read agent log", goerr.V("key", l.key))
	}

	var entries []*model.AgentLogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, goerr.Wrap(err, "failed to decode agent log", goerr.V("key", l.key))
	}
	return entries, nil
}
