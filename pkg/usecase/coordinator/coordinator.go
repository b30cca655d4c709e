package coordinator

import (
	"sort"
	"strings"

	"github.com/m-mizutani/orgintel/pkg/analytics"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/record"
)

const (
	topicStakeholderLimit  = 10
	personStakeholderLimit = 10
	globalStakeholderLimit = 20

	highRelevance   = 5
	mediumRelevance = 2

	// StakeholderTypeAll marks the report of the global query.
	StakeholderTypeAll = "all_stakeholders"

	msgEmptyTopic = "Topic must be a non-empty string"
)

// UseCase ranks the people relevant to a topic or to another person.
type UseCase struct {
	engine *analytics.Engine
}

// New creates a coordinator UseCase
func New(engine *analytics.Engine) *UseCase {
	return &UseCase{engine: engine}
}

// GetStakeholders answers the topic query when topic is not empty, else the
// person query when person is not empty, else the global query.
func (u *UseCase) GetStakeholders(topic, person string) *model.StakeholderReport {
	switch {
	case topic != "":
		return u.topicStakeholders(topic)
	case person != "":
		return u.personStakeholders(person)
	default:
		return u.allStakeholders()
	}
}

// topicStakeholders ranks senders and receivers of records mentioning topic
// in subject or body by involvement. Ties keep first appearance order.
func (u *UseCase) topicStakeholders(topic string) *model.StakeholderReport {
	records := record.FilterByKeyword(u.engine.Store().Records(), topic)

	var order []string
	involvement := make(map[string]int)
	add := func(id string) {
		if _, ok := involvement[id]; !ok {
			order = append(order, id)
		}
		involvement[id]++
	}
	for _, r := range records {
		if r.Sender != "" {
			add(r.Sender)
		}
		for _, receiver := range r.Receivers {
			if receiver != "" {
				add(receiver)
			}
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return involvement[order[i]] > involvement[order[j]]
	})
	if len(order) > topicStakeholderLimit {
		order = order[:topicStakeholderLimit]
	}

	stakeholders := make([]*model.Stakeholder, 0, len(order))
	for _, id := range order {
		stakeholders = append(stakeholders, &model.Stakeholder{Email: id, Involvement: involvement[id]})
	}

	return &model.StakeholderReport{
		Topic:        topic,
		Stakeholders: stakeholders,
		TotalEmails:  len(records),
	}
}

func (u *UseCase) personStakeholders(person string) *model.StakeholderReport {
	patterns := u.engine.CommunicationPatterns(person)

	correspondents := patterns.TopCorrespondents
	if len(correspondents) > personStakeholderLimit {
		correspondents = correspondents[:personStakeholderLimit]
	}

	return &model.StakeholderReport{
		Person:              person,
		Stakeholders:        toStakeholders(correspondents),
		TotalCommunications: patterns.TotalCommunications,
	}
}

func (u *UseCase) allStakeholders() *model.StakeholderReport {
	top := u.engine.TopCommunicators(globalStakeholderLimit)
	return &model.StakeholderReport{
		Type:         StakeholderTypeAll,
		Stakeholders: toStakeholders(top),
		Total:        len(top),
	}
}

func toStakeholders(ranked []model.RankedEntity) []*model.Stakeholder {
	stakeholders := make([]*model.Stakeholder, 0, len(ranked))
	for _, e := range ranked {
		stakeholders = append(stakeholders, &model.Stakeholder{Email: e.ID, Communications: e.Score})
	}
	return stakeholders
}

// GetStakeholderRelevance buckets the topic stakeholders into high (>= 5),
// medium (2 to 4) and low (< 2) involvement. An empty or blank topic yields
// a report with Error set and zeroed buckets instead of an error.
func (u *UseCase) GetStakeholderRelevance(topic string) *model.RelevanceReport {
	report := model.NewRelevanceReport(topic)
	if strings.TrimSpace(topic) == "" {
		report.Error = msgEmptyTopic
		return report
	}

	stakeholders := u.topicStakeholders(topic).Stakeholders
	for _, s := range stakeholders {
		switch {
		case s.Involvement >= highRelevance:
			report.RelevanceBreakdown.High = append(report.RelevanceBreakdown.High, s)
		case s.Involvement >= mediumRelevance:
			report.RelevanceBreakdown.Medium = append(report.RelevanceBreakdown.Medium, s)
		default:
			report.RelevanceBreakdown.Low = append(report.RelevanceBreakdown.Low, s)
		}
	}

	report.Summary = model.RelevanceSummary{
		HighCount:         len(report.RelevanceBreakdown.High),
		MediumCount:       len(report.RelevanceBreakdown.Medium),
		LowCount:          len(report.RelevanceBreakdown.Low),
		TotalStakeholders: len(stakeholders),
	}
	return report
}
