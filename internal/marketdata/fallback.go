package marketdata

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// LookupObserver receives the outcome of each lookup, e.g. for metrics.
type LookupObserver interface {
	ObserveLookup(source, outcome string)
}

// FallbackSource tries Primary and degrades to Fallback on any error, so a
// lookup through it only fails if the fallback itself fails.
type FallbackSource struct {
	Primary  Source
	Fallback Source
	Logger   *zap.Logger
	Observer LookupObserver
}

func (s *FallbackSource) Lookup(ctx context.Context, product string) (MarketData, error) {
	return s.LookupInSector(ctx, product, "")
}

// LookupInSector forwards sector to both sources.
func (s *FallbackSource) LookupInSector(ctx context.Context, product, sector string) (MarketData, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if s.Primary != nil {
		data, err := LookupInSector(ctx, s.Primary, product, sector)
		if err == nil {
			s.observe("primary", "ok")
			return data, nil
		}
		s.observe("primary", "unavailable")
		logger.Warn("market data lookup failed, using fallback",
			zap.String("product", product),
			zap.Error(err),
		)
	}
	if s.Fallback == nil {
		s.observe("fallback", "unavailable")
		return MarketData{}, fmt.Errorf("%w: no fallback source configured", ErrDataUnavailable)
	}
	data, err := LookupInSector(ctx, s.Fallback, product, sector)
	if err != nil {
		s.observe("fallback", "unavailable")
		return MarketData{}, err
	}
	s.observe("fallback", "ok")
	return data, nil
}

func (s *FallbackSource) observe(source, outcome string) {
	if s.Observer != nil {
		s.Observer.ObserveLookup(source, outcome)
	}
}

// NewDefaultSource prefers the LLM lookup when ANTHROPIC_API_KEY is set and
// always falls back to placeholder data for sector.
func NewDefaultSource(logger *zap.Logger, observer LookupObserver, sector string) *FallbackSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	src := &FallbackSource{
		Fallback: NewPlaceholderSource(sector, nil),
		Logger:   logger,
		Observer: observer,
	}
	caller, err := NewAnthropicCallerFromEnv()
	if err != nil {
		logger.Info("LLM market data disabled, using placeholder data", zap.Error(err))
		return src
	}
	src.Primary = NewLLMSource(caller)
	return src
}
