package service

import (
	"net/http"

	"reward_collector/internal/domain"
)

// Gate is the pure accept/reject decision applied to a resolved
// candidate. It has no side effects; threshold and allowed domain are
// fixed per deployment.
type Gate struct {
	Threshold     int
	AllowedDomain string
}

// Accepts reports whether the resolution passed: successful status,
// score at or above threshold, and final domain exactly the allowed
// one.
func (g Gate) Accepts(res domain.Resolution) bool {
	return res.Resolved &&
		res.Status == http.StatusOK &&
		res.Score >= g.Threshold &&
		res.FinalDomain == g.AllowedDomain
}
