package model

// CommunicationEdge is the aggregated sender to receiver relationship
// written to the graph store.
type CommunicationEdge struct {
	Sender    string   `json:"sender"`
	Receiver  string   `json:"receiver"`
	Count     int      `json:"count"`
	Subjects  []string `json:"subjects"`
	FirstDate string   `json:"first_date"`
	LastDate  string   `json:"last_date"`
}

// AddSubject appends subject unless it is empty or already present.
func (e *CommunicationEdge) AddSubject(subject string) {
	if subject == "" {
		return
	}
	for _, s := range e.Subjects {
		if s == subject {
			return
		}
	}
	e.Subjects = append(e.Subjects, subject)
}

// GraphLoadResult reports what a graph load wrote.
type GraphLoadResult struct {
	Records int `json:"records"`
	Persons int `json:"persons"`
	Edges   int `json:"edges"`
}

// Merge accumulates other into e. Counts add up, new subjects are appended
// in order, FirstDate is kept once set and LastDate follows other.
func (e *CommunicationEdge) Merge(other *CommunicationEdge) {
	e.Count += other.Count
	for _, s := range other.Subjects {
		e.AddSubject(s)
	}
	if e.FirstDate == "" {
		e.FirstDate = other.FirstDate
	}
	e.LastDate = other.LastDate
}
