package critic

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/analytics"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/record"
)

const (
	duplicatedTopicMinEmails  = 10
	duplicatedTopicMinSenders = 5
	highSeverityEmails        = 20

	concentrationMinReceivers = 10
	concentrationSample       = 20
	concentrationRatio        = 0.3

	duplicationClusterSize = 3
	significantDuplication = 5
)

// Triage decides what to do with detected conflicts.
type Triage interface {
	Apply(ctx context.Context, conflicts []*model.Conflict) ([]*model.Conflict, error)
}

// UseCase detects duplicated topics and communication concentration.
type UseCase struct {
	engine *analytics.Engine
	triage Triage
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithTriage passes detected conflicts through triage in Review
func WithTriage(triage Triage) Option {
	return func(uc *UseCase) {
		uc.triage = triage
	}
}

// New creates a critic UseCase
func New(engine *analytics.Engine, opts ...Option) *UseCase {
	uc := &UseCase{engine: engine}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// DetectConflicts returns duplicated_topic conflicts followed by
// topic_concentration conflicts.
//
// Duplicated topics group records by the first subject token only, unlike
// topic clusters which use every token.
func (u *UseCase) DetectConflicts() []*model.Conflict {
	conflicts := []*model.Conflict{}
	conflicts = append(conflicts, u.duplicatedTopics()...)
	conflicts = append(conflicts, u.topicConcentration()...)
	return conflicts
}

func (u *UseCase) duplicatedTopics() []*model.Conflict {
	var order []string
	groups := make(map[string][]*model.Record)
	for _, r := range u.engine.Store().Records() {
		token := analytics.FirstSubjectToken(r.Subject)
		if token == "" {
			continue
		}
		if _, ok := groups[token]; !ok {
			order = append(order, token)
		}
		groups[token] = append(groups[token], r)
	}

	var conflicts []*model.Conflict
	for _, token := range order {
		records := groups[token]
		if len(records) <= duplicatedTopicMinEmails {
			continue
		}

		senders := make(map[string]struct{})
		for _, r := range records {
			if r.Sender != "" {
				senders[r.Sender] = struct{}{}
			}
		}
		if len(senders) <= duplicatedTopicMinSenders {
			continue
		}

		severity := model.SeverityMedium
		if len(records) >= highSeverityEmails {
			severity = model.SeverityHigh
		}
		conflicts = append(conflicts, &model.Conflict{
			Type:         model.ConflictDuplicatedTopic,
			Severity:     severity,
			Topic:        token,
			EmailCount:   len(records),
			Participants: len(senders),
		})
	}
	return conflicts
}

func (u *UseCase) topicConcentration() []*model.Conflict {
	network := u.engine.CommunicationNetwork()
	records := u.engine.Store().Records()

	var conflicts []*model.Conflict
	for _, sender := range network.Senders {
		receivers := network.Edges[sender]
		if len(receivers) <= concentrationMinReceivers {
			continue
		}

		sent := record.FilterBySender(records, sender)
		if len(sent) > concentrationSample {
			sent = sent[:concentrationSample]
		}

		var subjects int
		unique := make(map[string]struct{})
		for _, r := range sent {
			if strings.TrimSpace(r.Subject) == "" {
				continue
			}
			subjects++
			unique[strings.ToLower(r.Subject)] = struct{}{}
		}
		if subjects == 0 {
			continue
		}
		if float64(len(unique)) >= float64(subjects)*concentrationRatio {
			continue
		}

		var total int
		for _, count := range receivers {
			total += count
		}
		conflicts = append(conflicts, &model.Conflict{
			Type:               model.ConflictTopicConcentration,
			Severity:           model.SeverityLow,
			Person:             sender,
			CommunicationCount: total,
			UniqueTopics:       len(unique),
		})
	}
	return conflicts
}

// AnalyzeDuplications reports topic clusters of at least three records and
// which of them have more than five.
func (u *UseCase) AnalyzeDuplications() *model.DuplicationReport {
	clusters := u.engine.TopicClusters(duplicationClusterSize)

	duplicated := make(map[string]int)
	for _, cluster := range clusters {
		if len(cluster.Records) > significantDuplication {
			duplicated[cluster.Token] = len(cluster.Records)
		}
	}

	return &model.DuplicationReport{
		TotalTopics:      len(clusters),
		DuplicatedTopics: duplicated,
		Summary:          fmt.Sprintf("Found %d topic clusters, %d with significant duplication", len(clusters), len(duplicated)),
	}
}

// Review runs both analyses and applies triage when configured.
func (u *UseCase) Review(ctx context.Context) (*model.CriticReport, error) {
	conflicts := u.DetectConflicts()
	if u.triage != nil {
		triaged, err := u.triage.Apply(ctx, conflicts)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to triage conflicts")
		}
		conflicts = triaged
	}

	duplications := u.AnalyzeDuplications()
	return &model.CriticReport{
		Conflicts:    conflicts,
		Duplications: duplications,
		Summary:      fmt.Sprintf("Found %d potential conflicts and %d topic clusters", len(conflicts), duplications.TotalTopics),
	}, nil
}
