// Package obstest builds an Observability backed by an observed zap core and a private
// Prometheus registry, for asserting on logs and metrics in tests.
package obstest

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	infraobs "github.com/Zhima-Mochi/pizzashop/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/pizzashop/internal/observability"
)

const Namespace = "test"

type Harness struct {
	observability.Observability
	Logs     *observer.ObservedLogs
	Registry *prometheus.Registry
}

func New() *Harness {
	core, logs := observer.New(zap.DebugLevel)
	reg := prometheus.NewRegistry()
	tel := infraobs.New(
		observability.NopTracer(),
		zaplogger.Wrap(zap.New(core)),
		prometrics.New(reg, Namespace, ""),
	)
	return &Harness{Observability: tel, Logs: logs, Registry: reg}
}

// Last returns the fields of the most recent entry with msg, or nil.
func (h *Harness) Last(msg string) map[string]any {
	entries := h.Logs.FilterMessage(msg).All()
	if len(entries) == 0 {
		return nil
	}
	return entries[len(entries)-1].ContextMap()
}
