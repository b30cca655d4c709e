package analytics

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/record"
)

const (
	// DefaultTopN is the number of communicators ranked by default.
	DefaultTopN = 10
	// DefaultMinClusterSize is the default minimum size of a topic cluster.
	DefaultMinClusterSize = 5
	// TopCorrespondentLimit bounds the correspondents in CommunicationPatterns.
	TopCorrespondentLimit = 10
	// MinTokenLength is the exclusive lower bound of a subject token length,
	// counted in characters.
	MinTokenLength = 4
)

// Engine computes communication statistics over the records of a Store.
// Every method recomputes from the current records; nothing is cached.
type Engine struct {
	store *record.Store
}

// New loads store and returns an Engine over it.
func New(ctx context.Context, store *record.Store) (*Engine, error) {
	if _, err := store.Load(ctx); err != nil {
		return nil, goerr.Wrap(err, "failed to prepare analytics engine")
	}
	return &Engine{store: store}, nil
}

// Store returns the underlying record store.
func (e *Engine) Store() *record.Store {
	return e.store
}

func (e *Engine) records() []*model.Record {
	return e.store.Records()
}

// CommunicationNetwork counts sender to receiver occurrences. Records with an
// empty sender and empty receivers are ignored.
func (e *Engine) CommunicationNetwork() *model.Network {
	network := model.NewNetwork()
	for _, r := range e.records() {
		if r.Sender == "" {
			continue
		}
		for _, receiver := range r.Receivers {
			if receiver != "" {
				network.Add(r.Sender, receiver)
			}
		}
	}
	return network
}

// TopCommunicators ranks identities by sender plus receiver appearances.
// Ties keep insertion order: identities seen as a sender come first in the
// order first seen, followed by receiver-only identities in the order first
// seen. A non-positive n returns an empty ranking.
func (e *Engine) TopCommunicators(n int) []model.RankedEntity {
	senders := newCounter()
	receivers := newCounter()
	for _, r := range e.records() {
		if r.Sender != "" {
			senders.add(r.Sender)
		}
		for _, receiver := range r.Receivers {
			if receiver != "" {
				receivers.add(receiver)
			}
		}
	}

	return senders.merge(receivers).mostCommon(n)
}

// CommunicationPatterns summarizes the records sent and received by person.
// Matching on person ignores case.
func (e *Engine) CommunicationPatterns(person string) *model.CommunicationPatterns {
	sent := record.FilterBySender(e.records(), person)
	received := record.FilterByReceiver(e.records(), person)

	correspondents := newCounter()
	for _, r := range sent {
		for _, receiver := range r.Receivers {
			if receiver != "" {
				correspondents.add(receiver)
			}
		}
	}
	for _, r := range received {
		if r.Sender != "" {
			correspondents.add(r.Sender)
		}
	}

	return &model.CommunicationPatterns{
		SentCount:           len(sent),
		ReceivedCount:       len(received),
		TotalCommunications: len(sent) + len(received),
		TopCorrespondents:   correspondents.mostCommon(TopCorrespondentLimit),
		SentTimes:           parsedTimes(sent),
		ReceivedTimes:       parsedTimes(received),
	}
}

// TopicClusters groups records by every subject token longer than
// MinTokenLength and keeps groups of at least minEmails records. A record is
// appended once per occurrence of the token in its subject.
func (e *Engine) TopicClusters(minEmails int) model.TopicClusters {
	var all model.TopicClusters
	index := make(map[string]*model.TopicCluster)

	for _, r := range e.records() {
		for _, token := range SubjectTokens(r.Subject) {
			cluster, ok := index[token]
			if !ok {
				cluster = &model.TopicCluster{Token: token}
				index[token] = cluster
				all = append(all, cluster)
			}
			cluster.Records = append(cluster.Records, r)
		}
	}

	clusters := model.TopicClusters{}
	for _, cluster := range all {
		if len(cluster.Records) >= minEmails {
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}

// OrganizationalInsights returns aggregate statistics of the record set.
func (e *Engine) OrganizationalInsights() *model.Insights {
	records := e.records()
	dr := record.DateRangeOf(records)

	return &model.Insights{
		TotalEmails:     len(records),
		UniqueSenders:   len(record.Senders(records)),
		UniqueReceivers: len(record.Receivers(records)),
		DateRange: model.InsightDateRange{
			Earliest: formatTime(dr.Earliest),
			Latest:   formatTime(dr.Latest),
		},
		TopCommunicators:         e.TopCommunicators(DefaultTopN),
		CommunicationNetworkSize: e.CommunicationNetwork().Len(),
	}
}

// SubjectTokens returns the lowercased whitespace separated tokens of subject
// longer than MinTokenLength, in order and with repetition.
func SubjectTokens(subject string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(subject)) {
		if utf8.RuneCountInString(word) > MinTokenLength {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

// FirstSubjectToken returns the first token of SubjectTokens, or "".
func FirstSubjectToken(subject string) string {
	for _, word := range strings.Fields(strings.ToLower(subject)) {
		if utf8.RuneCountInString(word) > MinTokenLength {
			return word
		}
	}
	return ""
}

func parsedTimes(records []*model.Record) []time.Time {
	times := []time.Time{}
	for _, r := range records {
		if r.ParsedTime != nil {
			times = append(times, *r.ParsedTime)
		}
	}
	return times
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// counter counts identities and remembers the order they were first seen.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(id string) {
	c.addN(id, 1)
}

func (c *counter) addN(id string, n int) {
	if _, ok := c.counts[id]; !ok {
		c.order = append(c.order, id)
	}
	c.counts[id] += n
}

// merge returns a counter with the sum of c and other. Identities of c keep
// their position; identities only in other follow in their own order.
func (c *counter) merge(other *counter) *counter {
	merged := newCounter()
	for _, id := range c.order {
		merged.addN(id, c.counts[id])
	}
	for _, id := range other.order {
		merged.addN(id, other.counts[id])
	}
	return merged
}

func (c *counter) mostCommon(n int) []model.RankedEntity {
	if n <= 0 {
		return []model.RankedEntity{}
	}
	ranked := make([]model.RankedEntity, 0, len(c.order))
	for _, id := range c.order {
		ranked = append(ranked, model.RankedEntity{ID: id, Score: c.counts[id]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
