// Package pipeline runs a message through an ordered chain of
// transformation stages. It ports uxapi.pipeline.Pipeline, fixing two
// bugs the Python original has: __call__ never returned the final
// transformed value, and there was no way for a stage to halt the
// pipeline early (see SPEC_FULL.md §5.6).
package pipeline

// Stage transforms a value, optionally halting the pipeline by
// returning ok=false.
type Stage func(v any) (result any, ok bool)

// Pipeline is an ordered list of Stages applied to a single value.
type Pipeline struct {
	stages []Stage
}

// New builds a Pipeline from the given stages, applied in order.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Append adds a stage to the end of the pipeline.
func (p *Pipeline) Append(stage Stage) {
	p.stages = append(p.stages, stage)
}

// Run applies every stage to v in order. If a stage returns ok=false,
// Run stops immediately and returns (nil, false) — the value is
// considered dropped, matching a Python stage raising StopIteration.
// Otherwise Run returns the value produced by the last stage.
func (p *Pipeline) Run(v any) (any, bool) {
	for _, stage := range p.stages {
		result, ok := stage(v)
		if !ok {
			return nil, false
		}
		v = result
	}
	return v, true
}
