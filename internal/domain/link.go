package domain

import "time"

// Link is one collected reward link, keyed by its normalized URL.
// FirstSeen is set when the link is first stored and never changes
// afterwards; every later re-check overwrites the remaining fields.
type Link struct {
	URL         string    `db:"url" json:"url"`
	Source      string    `db:"source" json:"source"`
	Domain      string    `db:"domain" json:"domain"`
	FirstSeen   time.Time `db:"first_seen" json:"first_seen"`
	LastChecked time.Time `db:"last_checked" json:"last_checked"`
	FinalURL    string    `db:"final_url" json:"final_url"`
	FinalDomain string    `db:"final_domain" json:"final_domain"`
	Valid       bool      `db:"valid" json:"valid"`
	Score       int       `db:"score" json:"score"`
	Title       string    `db:"title" json:"title"`
}

// DomainTrust accumulates acceptance history per link domain:
// +1 for every accepted resolution, -1 for every rejected one.
type DomainTrust struct {
	Domain string `db:"domain"`
	Trust  int    `db:"trust"`
}

// Run is one entry of the append-only cycle history.
type Run struct {
	Timestamp time.Time `db:"ts" json:"timestamp"`
	Checked   int       `db:"checked" json:"checked"`
	Valid     int       `db:"valid" json:"valid"`
	Duration  float64   `db:"duration" json:"duration_seconds"`
}
