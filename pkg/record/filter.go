package record

import (
	"sort"
	"strings"

	"github.com/m-mizutani/orgintel/pkg/model"
)

// FilterBySender returns the records whose sender equals sender, ignoring case.
func FilterBySender(records []*model.Record, sender string) []*model.Record {
	var result []*model.Record
	for _, r := range records {
		if strings.EqualFold(r.Sender, sender) {
			result = append(result, r)
		}
	}
	return result
}

// FilterByReceiver returns the records listing receiver, ignoring case.
func FilterByReceiver(records []*model.Record, receiver string) []*model.Record {
	var result []*model.Record
	for _, r := range records {
		if r.HasReceiver(receiver) {
			result = append(result, r)
		}
	}
	return result
}

// FilterByKeyword returns the records containing keyword in any of fields,
// ignoring case. No fields means subject and body.
func FilterByKeyword(records []*model.Record, keyword string, fields ...model.SearchField) []*model.Record {
	if len(fields) == 0 {
		fields = model.DefaultSearchFields
	}
	keyword = strings.ToLower(keyword)

	var result []*model.Record
	for _, r := range records {
		for _, field := range fields {
			text, ok := r.Field(field)
			if ok && strings.Contains(strings.ToLower(text), keyword) {
				result = append(result, r)
				break
			}
		}
	}
	return result
}

// Senders returns the distinct non-empty senders, sorted.
func Senders(records []*model.Record) []string {
	set := make(map[string]struct{})
	for _, r := range records {
		if r.Sender != "" {
			set[r.Sender] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// Receivers returns the distinct non-empty receivers, sorted.
func Receivers(records []*model.Record) []string {
	set := make(map[string]struct{})
	for _, r := range records {
		for _, receiver := range r.Receivers {
			if receiver != "" {
				set[receiver] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

// People returns the sorted union of senders and receivers.
func People(records []*model.Record) []string {
	set := make(map[string]struct{})
	for _, p := range Senders(records) {
		set[p] = struct{}{}
	}
	for _, p := range Receivers(records) {
		set[p] = struct{}{}
	}
	return sortedKeys(set)
}

// DateRangeOf returns the earliest and latest parsed timestamps. Both are
// nil when no record has one.
func DateRangeOf(records []*model.Record) model.DateRange {
	var dr model.DateRange
	for _, r := range records {
		if r.ParsedTime == nil {
			continue
		}
		if dr.Earliest == nil || r.ParsedTime.Before(*dr.Earliest) {
			dr.Earliest = r.ParsedTime
		}
		if dr.Latest == nil || r.ParsedTime.After(*dr.Latest) {
			dr.Latest = r.ParsedTime
		}
	}
	return dr
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
