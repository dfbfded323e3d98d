package form

// Stats are the dashboard counters of one form or of all forms of an owner.
type Stats struct {
	Visits         int64   `json:"visits"`
	Submissions    int64   `json:"submissions"`
	SubmissionRate float64 `json:"submission_rate"`
	BounceRate     float64 `json:"bounce_rate"`
}

// ComputeStats derives the rates from raw counters. Rates are percentages;
// both are 0 when there were no visits.
func ComputeStats(visits, submissions int64) Stats {
	s := Stats{Visits: visits, Submissions: submissions}
	if visits > 0 {
		s.SubmissionRate = float64(submissions) / float64(visits) * 100
		s.BounceRate = 100 - s.SubmissionRate
	}
	return s
}
