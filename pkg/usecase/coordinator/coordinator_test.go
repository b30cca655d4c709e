package coordinator_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/orgintel/pkg/analytics"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/record"
	"github.com/m-mizutani/orgintel/pkg/usecase/coordinator"
)

func newCoordinator(t *testing.T, records []*model.Record) *coordinator.UseCase {
	t.Helper()
	engine, err := analytics.New(context.Background(), record.New(record.Static(records)))
	gt.NoError(t, err)
	return coordinator.New(engine)
}

func budgetRecords() []*model.Record {
	var records []*model.Record
	// lead sends six budget mails to fin, two to ops and one to hr
	for i := 0; i < 6; i++ {
		records = append(records, &model.Record{Sender: "lead@x.com", Receivers: []string{"fin@x.com"}, Subject: "Budget draft"})
	}
	for i := 0; i < 2; i++ {
		records = append(records, &model.Record{Sender: "lead@x.com", Receivers: []string{"ops@x.com"}, Body: "see the BUDGET"})
	}
	records = append(records, &model.Record{Sender: "lead@x.com", Receivers: []string{"hr@x.com"}, Subject: "budget"})
	records = append(records, &model.Record{Sender: "hr@x.com", Receivers: []string{"lead@x.com"}, Subject: "Lunch"})
	return records
}

func TestTopicStakeholders(t *testing.T) {
	uc := newCoordinator(t, budgetRecords())

	report := uc.GetStakeholders("budget", "ignored@x.com")
	gt.Equal(t, report.Topic, "budget")
	gt.Equal(t, report.Person, "")
	gt.Equal(t, report.TotalEmails, 9)
	gt.Equal(t, report.Stakeholders, []*model.Stakeholder{
		{Email: "lead@x.com", Involvement: 9},
		{Email: "fin@x.com", Involvement: 6},
		{Email: "ops@x.com", Involvement: 2},
		{Email: "hr@x.com", Involvement: 1},
	})
}

func TestTopicStakeholdersLimit(t *testing.T) {
	var records []*model.Record
	for i := 0; i < 15; i++ {
		records = append(records, &model.Record{Sender: fmt.Sprintf("s%d@x.com", i), Subject: "merger"})
	}
	report := newCoordinator(t, records).GetStakeholders("merger", "")
	gt.A(t, report.Stakeholders).Length(10)
	gt.Equal(t, report.Stakeholders[0].Email, "s0@x.com")
	gt.Equal(t, report.TotalEmails, 15)
}

func TestPersonStakeholders(t *testing.T) {
	uc := newCoordinator(t, budgetRecords())

	report := uc.GetStakeholders("", "LEAD@x.com")
	gt.Equal(t, report.Person, "LEAD@x.com")
	gt.Equal(t, report.TotalCommunications, 10)
	gt.Equal(t, report.Stakeholders[0], &model.Stakeholder{Email: "fin@x.com", Communications: 6})
	gt.Equal(t, report.Stakeholders[2], &model.Stakeholder{Email: "hr@x.com", Communications: 2})
}

func TestAllStakeholders(t *testing.T) {
	uc := newCoordinator(t, budgetRecords())

	report := uc.GetStakeholders("", "")
	gt.Equal(t, report.Type, coordinator.StakeholderTypeAll)
	gt.Equal(t, report.Total, 4)
	gt.Equal(t, report.Stakeholders[0], &model.Stakeholder{Email: "lead@x.com", Communications: 10})
}

func TestStakeholderRelevance(t *testing.T) {
	uc := newCoordinator(t, budgetRecords())

	report := uc.GetStakeholderRelevance("budget")
	gt.Equal(t, report.Error, "")
	gt.Equal(t, report.Summary, model.RelevanceSummary{
		HighCount:         2,
		MediumCount:       1,
		LowCount:          1,
		TotalStakeholders: 4,
	})
	gt.Equal(t, report.RelevanceBreakdown.Medium[0].Email, "ops@x.com")
	gt.Equal(t, report.RelevanceBreakdown.Low[0].Email, "hr@x.com")
}

func TestStakeholderRelevanceEmptyTopic(t *testing.T) {
	uc := newCoordinator(t, budgetRecords())

	for _, topic := range []string{"", "   "} {
		report := uc.GetStakeholderRelevance(topic)
		gt.Equal(t, report.Error, "Topic must be a non-empty string")
		gt.Equal(t, report.Topic, topic)
		gt.Equal(t, report.Summary, model.RelevanceSummary{})
		gt.A(t, report.RelevanceBreakdown.High).Length(0)
		gt.A(t, report.RelevanceBreakdown.Medium).Length(0)
		gt.A(t, report.RelevanceBreakdown.Low).Length(0)
	}
}

func TestStakeholderRelevanceNoMatches(t *testing.T) {
	report := newCoordinator(t, budgetRecords()).GetStakeholderRelevance("unrelated")
	gt.Equal(t, report.Error, "")
	gt.Equal(t, report.Summary.TotalStakeholders, 0)
}
