package model

import (
	"sort"
	"strings"
	"time"
)

// Record is one directed communication event (an email) from a sender to
// zero or more receivers. Records are immutable once ingested.
type Record struct {
	Sender    string   `json:"sender"`
	Receivers []string `json:"receiver"`
	Subject   string   `json:"subject"`
	Timestamp string   `json:"timestamp"`
	Body      string   `json:"body"`

	// ParsedTime is nil when Timestamp could not be parsed. Such records are
	// excluded from date range and time ordered computations.
	ParsedTime *time.Time `json:"-"`
}

// RecordKey identifies a record by content for de-duplication.
type RecordKey struct {
	Sender    string
	Receivers string
	Subject   string
	Timestamp string
}

// Key returns the (sender, sorted receivers, subject, timestamp) tuple of r.
func (r *Record) Key() RecordKey {
	receivers := make([]string, len(r.Receivers))
	copy(receivers, r.Receivers)
	sort.Strings(receivers)

	return RecordKey{
		Sender:    r.Sender,
		Receivers: strings.Join(receivers, "\x00"),
		Subject:   r.Subject,
		Timestamp: r.Timestamp,
	}
}

// HasReceiver reports whether person appears in the receiver list, ignoring case.
func (r *Record) HasReceiver(person string) bool {
	for _, receiver := range r.Receivers {
		if strings.EqualFold(receiver, person) {
			return true
		}
	}
	return false
}

// SearchField names a record field that keyword search can look into.
type SearchField string

const (
	FieldSender  SearchField = "sender"
	FieldSubject SearchField = "subject"
	FieldBody    SearchField = "body"
)

// DefaultSearchFields is used by keyword search when no fields are given.
var DefaultSearchFields = []SearchField{FieldSubject, FieldBody}

// Field returns the text of the named field. Unknown fields yield false.
func (r *Record) Field(field SearchField) (string, bool) {
	switch field {
	case FieldSender:
		return r.Sender, true
	case FieldSubject:
		return r.Subject, true
	case FieldBody:
		return r.Body, true
	default:
		return "", false
	}
}

// DateRange holds the earliest and latest parsed timestamps. Both are nil
// when no record has a parsed timestamp.
type DateRange struct {
	Earliest *time.Time
	Latest   *time.Time
}
