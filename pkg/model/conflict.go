package model

type ConflictType string

const (
	ConflictDuplicatedTopic    ConflictType = "duplicated_topic"
	ConflictTopicConcentration ConflictType = "topic_concentration"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Conflict is a potential duplication or concentration found by the critic.
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity Severity     `json:"severity"`

	// duplicated_topic
	Topic        string `json:"topic,omitempty"`
	EmailCount   int    `json:"email_count,omitempty"`
	Participants int    `json:"participants,omitempty"`

	// topic_concentration
	Person             string `json:"person,omitempty"`
	CommunicationCount int    `json:"communication_count,omitempty"`
	UniqueTopics       int    `json:"unique_topics,omitempty"`

	// Set by policy triage when configured.
	Action string `json:"action,omitempty"`
	Note   string `json:"note,omitempty"`
}

// DuplicationReport summarizes topic clusters with significant duplication.
type DuplicationReport struct {
	TotalTopics      int            `json:"total_topics"`
	DuplicatedTopics map[string]int `json:"duplicated_topics"`
	Summary          string         `json:"summary"`
}

// CriticReport is the combined critic output.
type CriticReport struct {
	Conflicts    []*Conflict        `json:"conflicts"`
	Duplications *DuplicationReport `json:"duplications"`
	Summary      string             `json:"summary"`
}
