package editor

import (
	"fmt"

	vm "github.com/VictoriaMetrics/metrics"
)

// Editor outcome labels
const (
	outcomeSuccess  = "success"
	outcomeConflict = "conflict"
	outcomeInvalid  = "invalid"
	outcomeNoop     = "noop"
	outcomeFailure  = "failure"
)

// editorMetrics outcome counters of one entity kind
type editorMetrics struct {
	kind string
}

func newEditorMetrics(kind string) editorMetrics {
	return editorMetrics{kind: kind}
}

func (m editorMetrics) counter(name string, outcome string) *vm.Counter {
	return vm.GetOrCreateCounter(
		fmt.Sprintf(`catalog_editor_%s_total{kind=%q,outcome=%q}`, name, m.kind, outcome),
	)
}

// save count a save outcome
func (m editorMetrics) save(outcome string) {
	m.counter("saves", outcome).Inc()
}

// delete count a delete outcome
func (m editorMetrics) delete(outcome string) {
	m.counter("deletes", outcome).Inc()
}

// upload count an upload outcome
func (m editorMetrics) upload(outcome string) {
	m.counter("uploads", outcome).Inc()
}

// pageFetch count a page fetch outcome
func (m editorMetrics) pageFetch(outcome string) {
	m.counter("page_fetches", outcome).Inc()
}

// refresh count a list refresh
func (m editorMetrics) refresh() {
	m.counter("refreshes", outcomeSuccess).Inc()
}
