package record

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
)

// Store is a lazily loaded, read-only view of the records of one Source.
// The first Load reads the source; later calls return the cached records.
// Store has no lock of its own: hosts sharing a Store across goroutines
// must serialize the first Load and any Reload.
type Store struct {
	source  Source
	records []*model.Record
	loaded  bool
}

// New creates a Store reading from source.
func New(source Source) *Store {
	return &Store{source: source}
}

// Load returns the records, reading the source on first call only.
func (s *Store) Load(ctx context.Context) ([]*model.Record, error) {
	if s.loaded {
		return s.records, nil
	}
	return s.Reload(ctx)
}

// Reload reads the source again and replaces the cached records. On failure
// the previously cached records are kept.
func (s *Store) Reload(ctx context.Context) ([]*model.Record, error) {
	records, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load records")
	}

	for _, r := range records {
		if r.ParsedTime == nil {
			r.ParsedTime = ParseTimestamp(r.Timestamp)
		}
	}

	s.records = records
	s.loaded = true
	logging.From(ctx).Debug("records loaded", "count", len(records))
	return s.records, nil
}

// Records returns the cached records without loading. It is nil before the
// first successful Load.
func (s *Store) Records() []*model.Record {
	return s.records
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// BySender returns records whose sender equals sender, ignoring case.
func (s *Store) BySender(ctx context.Context, sender string) ([]*model.Record, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return FilterBySender(records, sender), nil
}

// ByReceiver returns records listing receiver among their receivers, ignoring case.
func (s *Store) ByReceiver(ctx context.Context, receiver string) ([]*model.Record, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByReceiver(records, receiver), nil
}

// ByKeyword returns records where keyword is a case-insensitive substring of
// any of fields. Subject and body are searched when fields is empty.
func (s *Store) ByKeyword(ctx context.Context, keyword string, fields ...model.SearchField) ([]*model.Record, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByKeyword(records, keyword, fields...), nil
}

// Senders returns the sorted distinct non-empty senders.
func (s *Store) Senders(ctx context.Context) ([]string, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Senders(records), nil
}

// Receivers returns the sorted distinct non-empty receivers.
func (s *Store) Receivers(ctx context.Context) ([]string, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Receivers(records), nil
}

// People returns the sorted union of senders and receivers.
func (s *Store) People(ctx context.Context) ([]string, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return People(records), nil
}

// DateRange returns the earliest and latest parsed timestamps.
func (s *Store) DateRange(ctx context.Context) (model.DateRange, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return model.DateRange{}, err
	}
	return DateRangeOf(records), nil
}
