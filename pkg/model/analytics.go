package model

import (
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// RankedEntity is an identity with its involvement score. It is encoded as a
// two element JSON array, [identity, score], to stay compatible with existing
// knowledge memory documents.
type RankedEntity struct {
	ID    string
	Score int
}

func (e RankedEntity) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.ID, e.Score})
}

func (e *RankedEntity) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return goerr.Wrap(err, "failed to decode ranked entity")
	}
	if len(pair) != 2 {
		return goerr.New("ranked entity must have two elements", goerr.V("length", len(pair)))
	}
	if err := json.Unmarshal(pair[0], &e.ID); err != nil {
		return goerr.Wrap(err, "failed to decode ranked entity id")
	}
	if err := json.Unmarshal(pair[1], &e.Score); err != nil {
		return goerr.Wrap(err, "failed to decode ranked entity score")
	}
	return nil
}

// Network maps sender to receiver to the number of records between them.
// Senders keeps the order in which senders were first seen.
type Network struct {
	Senders []string
	Edges   map[string]map[string]int
}

// NewNetwork returns an empty network.
func NewNetwork() *Network {
	return &Network{Edges: make(map[string]map[string]int)}
}

// Add counts one sender to receiver occurrence.
func (n *Network) Add(sender, receiver string) {
	receivers, ok := n.Edges[sender]
	if !ok {
		receivers = make(map[string]int)
		n.Edges[sender] = receivers
		n.Senders = append(n.Senders, sender)
	}
	receivers[receiver]++
}

// Count returns the number of sender to receiver occurrences.
func (n *Network) Count(sender, receiver string) int {
	return n.Edges[sender][receiver]
}

// Len returns the number of distinct senders in the network.
func (n *Network) Len() int {
	return len(n.Senders)
}

func (n *Network) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Edges)
}

// TopicCluster is a subject token with the records whose subject contains it.
type TopicCluster struct {
	Token   string    `json:"token"`
	Records []*Record `json:"records"`
}

// TopicClusters is ordered by first appearance of the token.
type TopicClusters []*TopicCluster

// Sizes returns token to cluster size.
func (c TopicClusters) Sizes() map[string]int {
	sizes := make(map[string]int, len(c))
	for _, cluster := range c {
		sizes[cluster.Token] = len(cluster.Records)
	}
	return sizes
}

// Get returns the cluster of token, or nil.
func (c TopicClusters) Get(token string) *TopicCluster {
	for _, cluster := range c {
		if cluster.Token == token {
			return cluster
		}
	}
	return nil
}

// CommunicationPatterns summarizes how one person communicates.
type CommunicationPatterns struct {
	SentCount           int            `json:"sent_count"`
	ReceivedCount       int            `json:"received_count"`
	TotalCommunications int            `json:"total_communications"`
	TopCorrespondents   []RankedEntity `json:"top_correspondents"`
	SentTimes           []time.Time    `json:"sent_times"`
	ReceivedTimes       []time.Time    `json:"received_times"`
}

// InsightDateRange is the ISO 8601 rendering of a DateRange.
type InsightDateRange struct {
	Earliest *string `json:"earliest"`
	Latest   *string `json:"latest"`
}

// Insights is an aggregate snapshot of the whole record set.
type Insights struct {
	TotalEmails              int              `json:"total_emails"`
	UniqueSenders            int              `json:"unique_senders"`
	UniqueReceivers          int              `json:"unique_receivers"`
	DateRange                InsightDateRange `json:"date_range"`
	TopCommunicators         []RankedEntity   `json:"top_communicators"`
	CommunicationNetworkSize int              `json:"communication_network_size"`
}
