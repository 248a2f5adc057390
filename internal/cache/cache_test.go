package cache

import (
	"testing"
	"time"

	"github.com/enerluz/portalex/internal/tariff"
)

func okResult(code string) tariff.Result {
	return tariff.Result{
		DistributorCode: code,
		Offers: []tariff.Offer{
			{DistributorCode: code, OfferName: "Plan", AccessTariff: "2.0TD"},
		},
	}
}

func TestPutGet(t *testing.T) {
	c := New(time.Minute)
	c.Put("ide", okResult("ide"))

	got, ok := c.Get("ide")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.DistributorCode != "ide" || len(got.Offers) != 1 {
		t.Errorf("unexpected cached result: %+v", got)
	}
	if _, ok := c.Get("other"); ok {
		t.Error("unexpected hit for other code")
	}
}

func TestExpiry(t *testing.T) {
	now := time.Now()
	c := New(time.Minute)
	c.now = func() time.Time { return now }

	c.Put("ide", okResult("ide"))
	if _, ok := c.Get("ide"); !ok {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(61 * time.Second)
	if _, ok := c.Get("ide"); ok {
		t.Error("expected miss after expiry")
	}
}

func TestFailuresNotCached(t *testing.T) {
	c := New(time.Minute)
	c.Put("ide", tariff.Result{
		DistributorCode: "ide",
		Failure:         &tariff.Failure{Reason: "portal_unreachable"},
	})
	if _, ok := c.Get("ide"); ok {
		t.Error("failed result must not be cached")
	}
	// No offers and no failure is equally uncacheable.
	c.Put("ide", tariff.Result{DistributorCode: "ide"})
	if _, ok := c.Get("ide"); ok {
		t.Error("empty result must not be cached")
	}
}

func TestDisabledCache(t *testing.T) {
	c := New(0)
	c.Put("ide", okResult("ide"))
	if _, ok := c.Get("ide"); ok {
		t.Error("disabled cache must never hit")
	}
}

func TestInvalidate(t *testing.T) {
	c := New(time.Minute)
	c.Put("ide", okResult("ide"))
	c.Invalidate("ide")
	if _, ok := c.Get("ide"); ok {
		t.Error("expected miss after Invalidate")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	c := New(time.Minute)
	c.Put("ide", okResult("ide"))

	got, _ := c.Get("ide")
	got.Offers[0].OfferName = "mutated"

	again, _ := c.Get("ide")
	if again.Offers[0].OfferName != "Plan" {
		t.Error("cached entry was mutated through a returned copy")
	}
}
