package marketdata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type failingSource struct{ calls int }

func (s *failingSource) Lookup(context.Context, string) (MarketData, error) {
	s.calls++
	return MarketData{}, errors.New("upstream down")
}

type recordingObserver struct{ events []string }

func (o *recordingObserver) ObserveLookup(source, outcome string) {
	o.events = append(o.events, source+"/"+outcome)
}

var suppliedData = MarketData{Sector: "software", MarketSizeM: 400, CAGRPct: 9, DiscountRatePct: 10, Competitors: []string{"Acme"}}

func TestFallbackSourceUsesPrimary(t *testing.T) {
	obs := &recordingObserver{}
	fallback := &failingSource{}
	src := &FallbackSource{Primary: StaticSource{Data: suppliedData}, Fallback: fallback, Observer: obs}

	data, err := src.Lookup(context.Background(), "Editor")
	require.NoError(t, err)
	assert.Equal(t, ProvenanceStatic, data.Provenance)
	assert.Equal(t, 0, fallback.calls)
	assert.Equal(t, []string{"primary/ok"}, obs.events)
}

func TestFallbackSourceDegradesOnPrimaryFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	obs := &recordingObserver{}
	src := &FallbackSource{
		Primary:  &failingSource{},
		Fallback: NewPlaceholderSource("software", nil),
		Logger:   zap.New(core),
		Observer: obs,
	}

	data, err := src.Lookup(context.Background(), "Editor")
	require.NoError(t, err)
	assert.True(t, data.Placeholder())
	assert.Equal(t, []string{"primary/unavailable", "fallback/ok"}, obs.events)

	entries := logs.FilterMessage("market data lookup failed, using fallback").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Editor", entries[0].ContextMap()["product"])
}

func TestFallbackSourceWithoutPrimary(t *testing.T) {
	src := &FallbackSource{Fallback: StaticSource{Data: suppliedData}}
	data, err := src.Lookup(context.Background(), "Editor")
	require.NoError(t, err)
	assert.Equal(t, 400.0, data.MarketSizeM)
}

func TestFallbackSourceReportsFallbackFailure(t *testing.T) {
	obs := &recordingObserver{}
	src := &FallbackSource{Primary: &failingSource{}, Fallback: &failingSource{}, Observer: obs}
	_, err := src.Lookup(context.Background(), "Editor")
	require.Error(t, err)
	assert.Equal(t, []string{"primary/unavailable", "fallback/unavailable"}, obs.events)
}

func TestStaticSourceCopiesData(t *testing.T) {
	src := StaticSource{Data: suppliedData}
	data, err := src.Lookup(context.Background(), "Editor")
	require.NoError(t, err)
	assert.Equal(t, "Editor", data.Product)
	data.Competitors[0] = "changed"
	assert.Equal(t, "Acme", suppliedData.Competitors[0])
}

func TestStaticSourceRejectsInvalidData(t *testing.T) {
	_, err := StaticSource{Data: MarketData{MarketSizeM: -1}}.Lookup(context.Background(), "Editor")
	require.ErrorIs(t, err, ErrDataUnavailable)
	assert.Contains(t, err.Error(), "market_size_m must be > 0")
}

func TestNewDefaultSourceWithoutKeyUsesPlaceholder(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	src := NewDefaultSource(nil, nil, "software")
	assert.Nil(t, src.Primary)
	data, err := src.Lookup(context.Background(), "Editor")
	require.NoError(t, err)
	assert.True(t, data.Placeholder())
}

func TestNewDefaultSourceWithKeyUsesLLM(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("ROYALTY_NO_LLM", "")
	defer withMockClient(&mockMessager{})()
	src := NewDefaultSource(nil, nil, "software")
	_, ok := src.Primary.(*LLMSource)
	assert.True(t, ok)
}

func TestFallbackSourceWithoutFallbackIsUnavailable(t *testing.T) {
	obs := &recordingObserver{}
	src := &FallbackSource{Observer: obs}
	_, err := src.Lookup(context.Background(), "Editor")
	require.ErrorIs(t, err, ErrDataUnavailable)
	assert.Equal(t, []string{"fallback/unavailable"}, obs.events)

	src = &FallbackSource{Primary: &failingSource{}}
	_, err = src.Lookup(context.Background(), "Editor")
	require.ErrorIs(t, err, ErrDataUnavailable)
}

func TestFallbackSourceForwardsSector(t *testing.T) {
	src := &FallbackSource{Primary: &failingSource{}, Fallback: NewPlaceholderSource("default", nil)}
	data, err := LookupInSector(context.Background(), src, "Antibody", "biotech_therapeutic")
	require.NoError(t, err)
	assert.Equal(t, "biotech_therapeutic", data.Sector)

	data, err = LookupInSector(context.Background(), src, "Antibody", " ")
	require.NoError(t, err)
	assert.Equal(t, "default", data.Sector)
}

func TestLookupInSectorPlainSource(t *testing.T) {
	data, err := LookupInSector(context.Background(), StaticSource{Data: suppliedData}, "Editor", "materials")
	require.NoError(t, err)
	assert.Equal(t, "software", data.Sector)
}
