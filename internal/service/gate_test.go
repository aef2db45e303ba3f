package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"reward_collector/internal/domain"
)

func TestGateAccepts(t *testing.T) {
	gate := Gate{Threshold: 4, AllowedDomain: "static.moonactive.net"}

	tests := []struct {
		name string
		res  domain.Resolution
		want bool
	}{
		{
			name: "accepted",
			res:  domain.Resolution{Resolved: true, Status: 200, Score: 5, FinalDomain: "static.moonactive.net"},
			want: true,
		},
		{
			name: "score exactly at threshold",
			res:  domain.Resolution{Resolved: true, Status: 200, Score: 4, FinalDomain: "static.moonactive.net"},
			want: true,
		},
		{
			name: "wrong final domain",
			res:  domain.Resolution{Resolved: true, Status: 200, Score: 5, FinalDomain: "ads.example.com"},
			want: false,
		},
		{
			name: "subdomain is not an exact match",
			res:  domain.Resolution{Resolved: true, Status: 200, Score: 5, FinalDomain: "evil.static.moonactive.net"},
			want: false,
		},
		{
			name: "score below threshold",
			res:  domain.Resolution{Resolved: true, Status: 200, Score: 3, FinalDomain: "static.moonactive.net"},
			want: false,
		},
		{
			name: "non-200 status",
			res:  domain.Resolution{Resolved: true, Status: 404, Score: 5, FinalDomain: "static.moonactive.net"},
			want: false,
		},
		{
			name: "unresolved",
			res:  domain.Resolution{Resolved: false, FinalDomain: "static.moonactive.net"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gate.Accepts(tt.res))
			// pure decision: repeated evaluation never differs
			assert.Equal(t, tt.want, gate.Accepts(tt.res))
		})
	}
}
