package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/orgintel/pkg/analytics"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/record"
)

func newEngine(t *testing.T, records []*model.Record) *analytics.Engine {
	t.Helper()
	engine, err := analytics.New(context.Background(), record.New(record.Static(records)))
	gt.NoError(t, err)
	return engine
}

func at(s string) *time.Time {
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &v
}

func threeRecords() []*model.Record {
	return []*model.Record{
		{Sender: "A", Receivers: []string{"B"}, Subject: "Q1 Plan", ParsedTime: at("2024-01-01T09:00:00Z")},
		{Sender: "B", Receivers: []string{"A"}, Subject: "Re: Q1 Plan", ParsedTime: at("2024-01-01T10:00:00Z")},
		{Sender: "A", Receivers: []string{"C"}, Subject: "Lunch", ParsedTime: at("2024-01-02T12:00:00Z")},
	}
}

func TestEndToEndThreeRecords(t *testing.T) {
	engine := newEngine(t, threeRecords())

	gt.Equal(t, engine.TopCommunicators(3), []model.RankedEntity{
		{ID: "A", Score: 3},
		{ID: "B", Score: 2},
		{ID: "C", Score: 1},
	})

	network := engine.CommunicationNetwork()
	gt.Equal(t, network.Senders, []string{"A", "B"})
	gt.Equal(t, network.Edges, map[string]map[string]int{
		"A": {"B": 1, "C": 1},
		"B": {"A": 1},
	})
}

func TestTopCommunicatorsTieOrder(t *testing.T) {
	// D only receives, so it ranks after senders with the same score
	engine := newEngine(t, []*model.Record{
		{Sender: "X", Receivers: []string{"D"}},
		{Sender: "Y", Receivers: []string{"D", "X"}},
		{Sender: "Z", Receivers: []string{"E"}},
	})

	gt.Equal(t, engine.TopCommunicators(10), []model.RankedEntity{
		{ID: "X", Score: 2},
		{ID: "D", Score: 2},
		{ID: "Y", Score: 1},
		{ID: "Z", Score: 1},
		{ID: "E", Score: 1},
	})
	gt.A(t, engine.TopCommunicators(2)).Length(2)
	gt.A(t, engine.TopCommunicators(0)).Length(0)
}

func TestCommunicationNetworkSkipsEmptyIdentities(t *testing.T) {
	engine := newEngine(t, []*model.Record{
		{Sender: "", Receivers: []string{"B"}},
		{Sender: "A", Receivers: []string{"", "B", "B"}},
		{Sender: "C", Receivers: []string{}},
	})

	network := engine.CommunicationNetwork()
	gt.Equal(t, network.Len(), 1)
	gt.Equal(t, network.Count("A", "B"), 2)
	gt.Equal(t, network.Count("C", "B"), 0)
}

func TestCommunicationPatterns(t *testing.T) {
	engine := newEngine(t, threeRecords())

	patterns := engine.CommunicationPatterns("a")
	gt.Equal(t, patterns.SentCount, 2)
	gt.Equal(t, patterns.ReceivedCount, 1)
	gt.Equal(t, patterns.TotalCommunications, 3)
	// receivers of sent records first, then senders of received records
	gt.Equal(t, patterns.TopCorrespondents, []model.RankedEntity{
		{ID: "B", Score: 2},
		{ID: "C", Score: 1},
	})
	gt.A(t, patterns.SentTimes).Length(2)
	gt.A(t, patterns.ReceivedTimes).Length(1)

	unknown := engine.CommunicationPatterns("nobody")
	gt.Equal(t, unknown.TotalCommunications, 0)
	gt.A(t, unknown.TopCorrespondents).Length(0)
}

func TestTopicClusters(t *testing.T) {
	records := []*model.Record{
		{Sender: "A", Subject: "Weekly Status Update"},
		{Sender: "B", Subject: "weekly review"},
		{Sender: "C", Subject: "Hi all"},
		{Sender: "D", Subject: ""},
	}
	engine := newEngine(t, records)

	all := engine.TopicClusters(0)
	gt.Equal(t, all.Sizes(), map[string]int{"weekly": 2, "status": 1, "update": 1, "review": 1})
	gt.Equal(t, all[0].Token, "weekly")

	for _, token := range []string{"weekly", "status", "update"} {
		cluster := all.Get(token)
		gt.NotNil(t, cluster)
		gt.Equal(t, cluster.Records[0], records[0])
	}
	gt.True(t, all.Get("all") == nil)

	big := engine.TopicClusters(2)
	gt.A(t, big).Length(1)
	gt.Equal(t, big[0].Token, "weekly")
	gt.Equal(t, big[0].Records, []*model.Record{records[0], records[1]})
}

func TestTopicClustersRepeatedToken(t *testing.T) {
	engine := newEngine(t, []*model.Record{{Subject: "alpha alpha"}})
	gt.Equal(t, engine.TopicClusters(0).Sizes(), map[string]int{"alpha": 2})
}

func TestOrganizationalInsights(t *testing.T) {
	engine := newEngine(t, threeRecords())

	insights := engine.OrganizationalInsights()
	gt.Equal(t, insights.TotalEmails, 3)
	gt.Equal(t, insights.UniqueSenders, 2)
	gt.Equal(t, insights.UniqueReceivers, 3)
	gt.Equal(t, insights.CommunicationNetworkSize, 2)
	gt.NotNil(t, insights.DateRange.Earliest)
	gt.Equal(t, *insights.DateRange.Earliest, "2024-01-01T09:00:00Z")
	gt.Equal(t, *insights.DateRange.Latest, "2024-01-02T12:00:00Z")
	gt.A(t, insights.TopCommunicators).Length(3)
}

func TestEmptyRecordSet(t *testing.T) {
	engine := newEngine(t, nil)

	gt.Equal(t, engine.CommunicationNetwork().Len(), 0)
	gt.A(t, engine.TopCommunicators(10)).Length(0)
	gt.A(t, engine.TopicClusters(0)).Length(0)

	insights := engine.OrganizationalInsights()
	gt.Equal(t, insights.TotalEmails, 0)
	gt.True(t, insights.DateRange.Earliest == nil)
	gt.True(t, insights.DateRange.Latest == nil)
	gt.A(t, insights.TopCommunicators).Length(0)
}

func TestSubjectTokens(t *testing.T) {
	gt.Equal(t, analytics.SubjectTokens("Re: Weekly STATUS up"), []string{"weekly", "status"})
	gt.Equal(t, analytics.FirstSubjectToken("Re: Budget review"), "budget")
	gt.Equal(t, analytics.FirstSubjectToken("hi"), "")
}

func TestSubjectTokensCountCharacters(t *testing.T) {
	gt.Equal(t, analytics.SubjectTokens("Café längd"), []string{"längd"})
	gt.Equal(t, analytics.FirstSubjectToken("café längd"), "längd")
	gt.Equal(t, analytics.FirstSubjectToken("naïve café"), "naïve")

	engine := newEngine(t, []*model.Record{
		{Sender: "A", Subject: "café"},
		{Sender: "B", Subject: "Café Ärende"},
	})
	gt.Equal(t, engine.TopicClusters(0).Sizes(), map[string]int{"ärende": 1})
}
