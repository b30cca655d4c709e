package model

import (
	"time"

	"github.com/google/uuid"
)

type AgentLogID string

// NewAgentLogID generates a new unique AgentLogID
func NewAgentLogID() AgentLogID {
	return AgentLogID(uuid.New().String())
}

// AgentLogEntry is one structured agent output.
type AgentLogEntry struct {
	ID        AgentLogID `json:"id,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Agent     string     `json:"agent"`
	Output    any        `json:"output"`
}
