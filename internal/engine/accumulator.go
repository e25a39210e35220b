package engine

import "github.com/metalagman/stagehand/internal/spec"

// Accumulator collects artifacts and domain aggregates across phases.
// Its surface is append-only; snapshots are copies, so a returned slice
// never observes later appends.
type Accumulator struct {
	artifacts       []spec.Artifact
	recommendations []any
	optimizations   []any
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// AppendArtifact records a produced file reference.
func (a *Accumulator) AppendArtifact(artifact spec.Artifact) {
	a.artifacts = append(a.artifacts, artifact)
}

// AppendRecommendations records recommendation payloads.
func (a *Accumulator) AppendRecommendations(items ...any) {
	a.recommendations = append(a.recommendations, items...)
}

// AppendOptimizations records optimization payloads.
func (a *Accumulator) AppendOptimizations(items ...any) {
	a.optimizations = append(a.optimizations, items...)
}

// Artifacts returns a copy of the accumulated artifacts.
func (a *Accumulator) Artifacts() []spec.Artifact {
	out := make([]spec.Artifact, len(a.artifacts))
	copy(out, a.artifacts)
	return out
}

// Recommendations returns a copy of the accumulated recommendations.
func (a *Accumulator) Recommendations() []any {
	out := make([]any, len(a.recommendations))
	copy(out, a.recommendations)
	return out
}

// Optimizations returns a copy of the accumulated optimizations.
func (a *Accumulator) Optimizations() []any {
	out := make([]any, len(a.optimizations))
	copy(out, a.optimizations)
	return out
}
