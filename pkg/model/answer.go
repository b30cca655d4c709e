package model

// Answer is the LLM response to a free text question.
type Answer struct {
	Query               string `json:"query"`
	Response            string `json:"response"`
	RelevantRecordCount int    `json:"relevant_emails_count"`
	Model               string `json:"model"`
}

// PersonAnalysis combines communication patterns with an LLM analysis.
type PersonAnalysis struct {
	Email      string                 `json:"email"`
	Patterns   *CommunicationPatterns `json:"patterns"`
	AIAnalysis string                 `json:"ai_analysis"`
}
