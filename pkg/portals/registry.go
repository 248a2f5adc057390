package portals

import "sync"

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Portal)
	// order preserves registration order so Codes() is stable across calls.
	order []string
)

// Register registers a portal adapter. Adapters call this from init();
// after process start the registry is read-only.
func Register(p Portal) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if p == nil {
		panic("portals: Register portal is nil")
	}
	if _, dup := registry[p.Key()]; dup {
		panic("portals: Register called twice for portal " + p.Key())
	}
	registry[p.Key()] = p
	order = append(order, p.Key())
}

// Get returns the adapter registered for code.
func Get(code string) (Portal, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[code]
	return p, ok
}

// Codes returns all registered distributor codes in registration order.
func Codes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, len(order))
	copy(out, order)
	return out
}

// GetInfo returns the static metadata for code without touching the network.
func GetInfo(code string) (Info, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[code]
	if !ok {
		return Info{}, false
	}
	return infoOf(p), true
}

// Infos returns static metadata for every registered portal, in
// registration order.
func Infos() []Info {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Info, 0, len(order))
	for _, code := range order {
		out = append(out, infoOf(registry[code]))
	}
	return out
}

func infoOf(p Portal) Info {
	return Info{
		Code:        p.Key(),
		Name:        p.Name(),
		URL:         p.LandingURL(),
		Description: p.Description(),
	}
}
