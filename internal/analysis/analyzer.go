// Package analysis runs a royalty projection end to end: market data,
// penetration curve, projection, sensitivity and scenarios.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/joelkehle/techtransfer-royalty/internal/config"
	"github.com/joelkehle/techtransfer-royalty/internal/marketdata"
	"github.com/joelkehle/techtransfer-royalty/internal/royalty"
	"github.com/joelkehle/techtransfer-royalty/internal/telemetry"
)

type Analyzer struct {
	profiles config.CurveProfiles
	source   marketdata.Source
	logger   *zap.Logger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
	now      func() time.Time
	newID    func() string
}

type Option func(*Analyzer)

// WithSource sets where missing market inputs come from. Without a source a
// request must carry market size and CAGR itself.
func WithSource(s marketdata.Source) Option { return func(a *Analyzer) { a.source = s } }

func WithLogger(l *zap.Logger) Option { return func(a *Analyzer) { a.logger = l } }

func WithMetrics(m *telemetry.Metrics) Option { return func(a *Analyzer) { a.metrics = m } }

func WithTracer(t trace.Tracer) Option { return func(a *Analyzer) { a.tracer = t } }

func WithClock(now func() time.Time) Option { return func(a *Analyzer) { a.now = now } }

func WithIDGenerator(f func() string) Option { return func(a *Analyzer) { a.newID = f } }

func New(profiles config.CurveProfiles, opts ...Option) *Analyzer {
	a := &Analyzer{
		profiles: profiles,
		logger:   zap.NewNop(),
		tracer:   telemetry.Tracer(),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analyzer) Profiles() config.CurveProfiles { return a.profiles }

func (a *Analyzer) Analyze(ctx context.Context, req Request) (Analysis, error) {
	return a.AnalyzeWithProgress(ctx, req, nil)
}

func (a *Analyzer) AnalyzeWithProgress(ctx context.Context, req Request, progress ProgressFn) (Analysis, error) {
	id := a.newID()
	ctx, span := a.tracer.Start(ctx, "royalty.analyze", trace.WithAttributes(
		attribute.String("projection_id", id),
		attribute.String("product", req.Product),
	))
	defer span.End()

	logger := a.logger.With(zap.String("projection_id", id))
	if req.CaseID != "" {
		logger = logger.With(zap.String("case_id", req.CaseID))
	}
	report := func(stage, msg string) {
		logger.Debug(msg, zap.String("stage", stage))
		if progress != nil {
			progress(stage, msg)
		}
	}

	out, err := a.analyze(ctx, id, req, report)
	if err != nil {
		reason := "internal"
		switch {
		case errors.Is(err, royalty.ErrInvalidParameter):
			reason = "validation"
		case errors.Is(err, marketdata.ErrDataUnavailable):
			reason = "market_data"
		}
		a.metrics.ObserveProjectionError(reason)
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		logger.Info("projection rejected", zap.String("reason", reason), zap.Error(err))
		return Analysis{}, err
	}

	mode := string(out.Params.PenetrationMode)
	if out.Custom {
		mode = "custom"
	}
	a.metrics.ObserveProjection(mode, string(out.Result.Classification))
	span.SetAttributes(
		attribute.String("classification", string(out.Result.Classification)),
		attribute.Float64("total_royalty_usd", out.Result.TotalRoyaltyUSD),
	)
	logger.Info("projection completed",
		zap.String("mode", mode),
		zap.Int("term_years", out.Params.TermYears),
		zap.Float64("total_royalty_usd", out.Result.TotalRoyaltyUSD),
		zap.String("classification", string(out.Result.Classification)),
	)
	return out, nil
}

func (a *Analyzer) analyze(ctx context.Context, id string, req Request, report ProgressFn) (Analysis, error) {
	out := Analysis{
		ID:         id,
		CaseID:     req.CaseID,
		Product:    strings.TrimSpace(req.Product),
		CreatedAt:  a.now().UTC(),
		Disclaimer: Disclaimer,
	}

	if a.needsMarketData(req) {
		report("market_data", "looking up market data")
		md, err := a.lookup(ctx, out.Product, req.Sector)
		if err != nil {
			return Analysis{}, err
		}
		out.MarketData = &md
	}

	params, err := buildParams(req, out.MarketData)
	if err != nil {
		return Analysis{}, err
	}
	if err := params.Validate(); err != nil {
		return Analysis{}, err
	}
	out.Params = params

	report("projection", "projecting royalty revenue")
	if len(req.Penetration) > 0 {
		out.Penetration = append(royalty.Sequence(nil), req.Penetration...)
		out.Custom = true
		res, err := royalty.ProjectSequence(params, out.Penetration)
		if err != nil {
			return Analysis{}, err
		}
		out.Result = res
		return out, nil
	}

	curve, err := a.curveFor(req, &out)
	if err != nil {
		return Analysis{}, err
	}
	seq, err := royalty.BuildSequence(params, curve)
	if err != nil {
		return Analysis{}, err
	}
	out.Penetration = seq
	res, err := royalty.ProjectSequence(params, seq)
	if err != nil {
		return Analysis{}, err
	}
	out.Result = res

	report("sensitivity", "running sensitivity and scenarios")
	ranges := royalty.DefaultRanges(params)
	if req.Ranges != nil {
		ranges = *req.Ranges
	}
	out.Ranges = &ranges
	if out.Scenarios, err = royalty.Scenarios(params, curve, ranges); err != nil {
		return Analysis{}, err
	}
	if out.Sensitivity, err = royalty.Sensitivity(params, curve, ranges); err != nil {
		return Analysis{}, err
	}
	return out, nil
}

func (a *Analyzer) curveFor(req Request, out *Analysis) (royalty.CurveConfig, error) {
	name := strings.ToLower(strings.TrimSpace(req.CurveProfile))
	if name == "" {
		name = a.profiles.DefaultProfile
	}
	curve, err := a.profiles.Get(name)
	if err != nil {
		return royalty.CurveConfig{}, &royalty.ParamError{Param: "curve_profile", Value: req.CurveProfile, Reason: err.Error()}
	}
	if req.PenetrationMode == royalty.ModeShaped {
		out.CurveProfile = name
	}
	return curve, nil
}

func (a *Analyzer) needsMarketData(req Request) bool {
	if strings.TrimSpace(req.Product) == "" || a.source == nil {
		return false
	}
	return req.LookupMarket || req.MarketSizeM == nil || req.CAGRPct == nil
}

func (a *Analyzer) lookup(ctx context.Context, product, sector string) (marketdata.MarketData, error) {
	ctx, span := a.tracer.Start(ctx, "marketdata.lookup", trace.WithAttributes(
		attribute.String("product", product),
		attribute.String("sector", sector),
	))
	defer span.End()
	md, err := marketdata.LookupInSector(ctx, a.source, product, sector)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return marketdata.MarketData{}, fmt.Errorf("market data for %q: %w", product, err)
	}
	span.SetAttributes(attribute.String("provenance", string(md.Provenance)))
	return md, nil
}

// buildParams merges explicit request values over market data. Explicit
// values always win.
func buildParams(req Request, md *marketdata.MarketData) (royalty.Params, error) {
	p := royalty.Params{
		RoyaltyRatePct:  req.RoyaltyRatePct,
		EntryYear:       req.EntryYear,
		TermYears:       req.TermYears,
		PenetrationMode: req.PenetrationMode,
		PenetrationPct:  req.PenetrationPct,
		DiscountRatePct: req.DiscountRatePct,
	}
	if p.PenetrationMode == "" {
		p.PenetrationMode = royalty.ModeConstant
	}

	var errs []error
	switch {
	case req.MarketSizeM != nil:
		p.MarketSizeM = *req.MarketSizeM
	case md != nil:
		p.MarketSizeM = md.MarketSizeM
	default:
		errs = append(errs, &royalty.ParamError{Param: "market_size_m", Value: nil, Reason: "required when no product is looked up"})
	}
	switch {
	case req.CAGRPct != nil:
		p.CAGRPct = *req.CAGRPct
	case md != nil:
		p.CAGRPct = md.CAGRPct
	default:
		errs = append(errs, &royalty.ParamError{Param: "cagr_pct", Value: nil, Reason: "required when no product is looked up"})
	}
	if p.DiscountRatePct == nil && md != nil {
		p.DiscountRatePct = royalty.Float(md.DiscountRatePct)
	}
	if len(errs) > 0 {
		return royalty.Params{}, errors.Join(errs...)
	}
	return p, nil
}
