package enginecode

import (
	"errors"
	"fmt"
	"math"

	"partscout/pkg/models"
)

var ErrEngineCodeNotRecognized = errors.New("engine code not recognized")

const (
	DefaultEmbeddedDecay = 0.1
	DefaultMinConfidence = 0.1
)

// Extractor recovers canonical engine codes from noisy input. It holds no
// per-call state and may be shared between goroutines.
type Extractor struct {
	registry *Registry
	decay    float64
	floor    float64
}

type Option func(*Extractor)

// WithEmbeddedDecay sets the confidence lost per skipped leading character.
func WithEmbeddedDecay(d float64) Option {
	return func(e *Extractor) {
		if d > 0 && d <= 1 {
			e.decay = d
		}
	}
}

// WithMinConfidence sets the floor for embedded-match confidence.
func WithMinConfidence(f float64) Option {
	return func(e *Extractor) {
		if f >= 0 && f <= 1 {
			e.floor = f
		}
	}
}

func NewExtractor(reg *Registry, opts ...Option) *Extractor {
	if reg == nil {
		reg = DefaultRegistry()
	}
	e := &Extractor{
		registry: reg,
		decay:    DefaultEmbeddedDecay,
		floor:    DefaultMinConfidence,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) Registry() *Registry { return e.registry }

// Extract finds the best template match in raw. A match at the start of
// the normalized input has confidence 1.0 and anything after it is kept
// as Serial; an embedded match loses decay per skipped character.
func (e *Extractor) Extract(raw string) (models.EngineCode, error) {
	s := models.NormalizeIdentifier(raw)
	if s == "" {
		return models.EngineCode{}, fmt.Errorf("%w: empty input", ErrEngineCodeNotRecognized)
	}

	var best *match
	matches := e.registry.scan(s)
	for i := range matches {
		if best == nil || e.registry.better(matches[i], *best) {
			best = &matches[i]
		}
	}
	if best == nil {
		return models.EngineCode{}, fmt.Errorf("%w: %q", ErrEngineCodeNotRecognized, raw)
	}

	return models.EngineCode{
		RawInput:     raw,
		Canonical:    best.canonical,
		Manufacturer: best.tmpl.Manufacturer,
		Family:       best.tmpl.Family,
		Serial:       s[best.start+best.length:],
		Confidence:   e.confidence(best.start),
	}, nil
}

func (e *Extractor) confidence(skipped int) float64 {
	if skipped == 0 {
		return 1.0
	}
	c := math.Max(e.floor, 1-e.decay*float64(skipped))
	return math.Round(c*1e4) / 1e4
}
