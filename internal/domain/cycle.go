package domain

import "time"

// Candidate is a normalized URL extracted from a source page,
// not yet resolved or gated.
type Candidate struct {
	URL        string
	Source     string
	AnchorText string
}

// Resolution is the outcome of following a candidate's redirects.
// Every failure mode collapses into the unresolved variant
// (Resolved=false, zero status, FinalURL equal to the candidate URL)
// so batch processing never has to handle a resolver error.
type Resolution struct {
	Resolved    bool
	Status      int
	FinalURL    string
	FinalDomain string
	Title       string
	Score       int
}

// CycleStats holds statistics about one collection cycle.
type CycleStats struct {
	Checked  int
	Valid    int
	Removed  int
	Duration time.Duration
}
