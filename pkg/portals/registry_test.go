package portals

import (
	"context"
	"testing"
)

type stubPortal struct {
	key  string
	name string
}

func (s stubPortal) Key() string         { return s.key }
func (s stubPortal) Name() string        { return s.name }
func (s stubPortal) Kind() EnergyKind    { return EnergyElectricity }
func (s stubPortal) LandingURL() string  { return "https://example.com/" + s.key }
func (s stubPortal) Description() string { return "stub" }

func (s stubPortal) Extract(ctx context.Context, q Query) (*RawTariffs, error) {
	return nil, NewError(s.key, FailureUnreachable, nil)
}

func TestRegisterAndGet(t *testing.T) {
	Register(stubPortal{key: "reg-a", name: "A"})
	Register(stubPortal{key: "reg-b", name: "B"})

	p, ok := Get("reg-a")
	if !ok {
		t.Fatal("Get(reg-a) not found after Register")
	}
	if p.Name() != "A" {
		t.Errorf("Name = %q, want A", p.Name())
	}
	if _, ok := Get("missing"); ok {
		t.Error("Get(missing) = ok, want not found")
	}
}

func TestCodesPreserveRegistrationOrder(t *testing.T) {
	Register(stubPortal{key: "ord-1"})
	Register(stubPortal{key: "ord-2"})
	Register(stubPortal{key: "ord-3"})

	codes := Codes()
	idx := make(map[string]int, len(codes))
	for i, c := range codes {
		idx[c] = i
	}
	for _, c := range []string{"ord-1", "ord-2", "ord-3"} {
		if _, ok := idx[c]; !ok {
			t.Fatalf("Codes() missing %s", c)
		}
	}
	if !(idx["ord-1"] < idx["ord-2"] && idx["ord-2"] < idx["ord-3"]) {
		t.Errorf("Codes() order %v does not preserve registration order", codes)
	}

	// Stable across calls.
	again := Codes()
	if len(again) != len(codes) {
		t.Fatalf("Codes() length changed between calls: %d vs %d", len(again), len(codes))
	}
	for i := range codes {
		if codes[i] != again[i] {
			t.Errorf("Codes() not stable at %d: %s vs %s", i, codes[i], again[i])
		}
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register(stubPortal{key: "dup-1"})
	defer func() {
		if recover() == nil {
			t.Error("duplicate Register did not panic")
		}
	}()
	Register(stubPortal{key: "dup-1"})
}

func TestRegisterNilPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("nil Register did not panic")
		}
	}()
	Register(nil)
}

func TestGetInfo(t *testing.T) {
	Register(stubPortal{key: "info-1", name: "Info One"})

	info, ok := GetInfo("info-1")
	if !ok {
		t.Fatal("GetInfo(info-1) not found")
	}
	if info.Code != "info-1" || info.Name != "Info One" {
		t.Errorf("unexpected info: %+v", info)
	}
	if _, ok := GetInfo("missing"); ok {
		t.Error("GetInfo(missing) = ok, want not found")
	}

	infos := Infos()
	found := false
	for _, i := range infos {
		if i.Code == "info-1" {
			found = true
		}
	}
	if !found {
		t.Error("Infos() missing registered portal")
	}
}
