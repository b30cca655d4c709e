package model

// Stakeholder is a person relevant to a topic or another person. Topic
// queries fill Involvement, person and global queries fill Communications.
type Stakeholder struct {
	Email          string `json:"email"`
	Involvement    int    `json:"involvement,omitempty"`
	Communications int    `json:"communications,omitempty"`
}

// StakeholderReport is the result of a stakeholder query.
type StakeholderReport struct {
	Type                string         `json:"type,omitempty"`
	Topic               string         `json:"topic,omitempty"`
	Person              string         `json:"person,omitempty"`
	Stakeholders        []*Stakeholder `json:"stakeholders"`
	TotalEmails         int            `json:"total_emails,omitempty"`
	TotalCommunications int            `json:"total_communications,omitempty"`
	Total               int            `json:"total,omitempty"`
}

type RelevanceBreakdown struct {
	High   []*Stakeholder `json:"high"`
	Medium []*Stakeholder `json:"medium"`
	Low    []*Stakeholder `json:"low"`
}

type RelevanceSummary struct {
	HighCount         int `json:"high_count"`
	MediumCount       int `json:"medium_count"`
	LowCount          int `json:"low_count"`
	TotalStakeholders int `json:"total_stakeholders"`
}

// RelevanceReport buckets topic stakeholders by involvement. Validation
// failures set Error and keep the same shape with zeroed buckets.
type RelevanceReport struct {
	Error              string             `json:"error,omitempty"`
	Topic              string             `json:"topic"`
	RelevanceBreakdown RelevanceBreakdown `json:"relevance_breakdown"`
	Summary            RelevanceSummary   `json:"summary"`
}

// NewRelevanceReport returns a report with empty, non-nil buckets.
func NewRelevanceReport(topic string) *RelevanceReport {
	return &RelevanceReport{
		Topic: topic,
		RelevanceBreakdown: RelevanceBreakdown{
			High:   []*Stakeholder{},
			Medium: []*Stakeholder{},
			Low:    []*Stakeholder{},
		},
	}
}
