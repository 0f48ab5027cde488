package backend

// Prober reports whether a backend's runtime can be used on this device.
type Prober interface {
	Probe(kind Kind) bool
}

// ProbeFunc adapts a function to the Prober interface.
type ProbeFunc func(kind Kind) bool

// Probe calls f(kind).
func (f ProbeFunc) Probe(kind Kind) bool { return f(kind) }

// Preferred is the backend the selector tries first.
const Preferred = Vulkan

// Fallback is returned by the selector when the preferred backend is not
// loadable. The software backend needs no runtime library.
const Fallback = Software

// Select picks a backend: Preferred if p reports it loadable, Fallback
// otherwise. A missing preferred backend is not an error. A nil prober
// selects Fallback.
func Select(p Prober) Kind {
	if p != nil && p.Probe(Preferred) {
		Logger().Info("backend selected", "backend", Preferred)
		return Preferred
	}
	Logger().Info("backend selected", "backend", Fallback, "fallback", true)
	return Fallback
}

// SelectBackend runs Select against the default registry. It may be called
// before any manager exists.
func SelectBackend() Kind {
	return Select(defaultRegistry)
}
