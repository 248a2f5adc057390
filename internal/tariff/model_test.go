package tariff

import (
	"testing"

	"github.com/enerluz/portalex/pkg/portals"
)

func TestComputeStatus(t *testing.T) {
	success := Result{DistributorCode: "a", Offers: []Offer{{OfferName: "Plan"}}}
	failure := Result{DistributorCode: "b", Failure: &Failure{Reason: portals.FailureTimeout}}

	tests := []struct {
		name      string
		requested []string
		results   map[string]Result
		want      RunStatus
	}{
		{"all succeed", []string{"a"}, map[string]Result{"a": success}, RunAllSucceeded},
		{"all fail", []string{"b"}, map[string]Result{"b": failure}, RunAllFailed},
		{"mixed", []string{"a", "b"}, map[string]Result{"a": success, "b": failure}, RunPartial},
		{"missing result counts as failed", []string{"a", "c"}, map[string]Result{"a": success}, RunPartial},
		{"empty requested set is not a success", nil, map[string]Result{}, RunAllFailed},
	}
	for _, tt := range tests {
		r := &Run{Requested: tt.requested, Results: tt.results}
		if got := r.ComputeStatus(); got != tt.want {
			t.Errorf("%s: ComputeStatus() = %s, want %s", tt.name, got, tt.want)
		}
	}
}
