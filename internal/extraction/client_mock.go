package extraction

import (
	"context"
	"time"
)

// Mock returns deterministic fields with a configurable latency to mimic
// real-world calls. It backs the explicit degraded-operation switch and
// tests; production wiring selects it only through configuration, never as
// implicit fallback on failure.
type Mock struct {
	Latency time.Duration
}

func (m Mock) Extract(_ context.Context, _ []byte, _, _ string) (Fields, error) {
	time.Sleep(m.Latency)
	return Fields{
		CertID: "MOCK-CERT-001",
		Name:   "Mock Student",
		Roll:   "MOCK123",
		Course: "Mock Course",
	}, nil
}
