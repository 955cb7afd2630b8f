package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v5"
)

const systemPrompt = "You are a technology licensing analyst at a university technology transfer office. " +
	"You estimate market inputs for royalty projections. Respond with strict JSON only."

const lookupSchemaPrompt = `Required JSON schema:
{
  "sector":"software|biotech_therapeutic|biotech_diagnostic|medical_device|semiconductor|materials|clean_energy|mechanical_engineering|default",
  "market_size_m": number,        // current addressable market in millions of USD
  "cagr_pct": number,             // compound annual growth rate, percent
  "discount_rate_pct": number,    // discount rate appropriate for the sector, percent
  "competitors": ["string"],      // up to 5 named competing products or companies
  "notes": "string"               // one sentence on the main source of uncertainty
}`

const maxLookupAttempts = 3

type llmFailureClass int

const (
	failureNone llmFailureClass = iota
	failureTimeout
	failureRateLimit
	failureServer
	failureClient
)

type LLMCaller interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

type AnthropicCaller struct {
	messages AnthropicMessager
	model    anthropic.Model
}

// NewAnthropicCallerFromEnv reads ANTHROPIC_API_KEY. ROYALTY_NO_LLM disables
// the caller so deployments can force placeholder data.
func NewAnthropicCallerFromEnv() (*AnthropicCaller, error) {
	if envEnabled("ROYALTY_NO_LLM") {
		return nil, errors.New("LLM market-data lookup disabled by ROYALTY_NO_LLM")
	}
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	model := anthropic.Model(strings.TrimSpace(os.Getenv("ROYALTY_LLM_MODEL")))
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	return &AnthropicCaller{messages: newAnthropicClient(apiKey), model: model}, nil
}

func (a *AnthropicCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   1024,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// LLMSource asks a language model for market inputs. Every failure is
// reported as ErrDataUnavailable.
type LLMSource struct {
	caller     LLMCaller
	newBackOff func() backoff.BackOff
}

func NewLLMSource(caller LLMCaller) *LLMSource {
	return &LLMSource{
		caller: caller,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 4 * time.Second
			return b
		},
	}
}

func (s *LLMSource) Lookup(ctx context.Context, product string) (MarketData, error) {
	return s.LookupInSector(ctx, product, "")
}

// LookupInSector adds sector to the prompt as a hint; the model may still
// answer with a different sector.
func (s *LLMSource) LookupInSector(ctx context.Context, product, sector string) (MarketData, error) {
	product = strings.TrimSpace(product)
	if product == "" {
		return MarketData{}, fmt.Errorf("%w: product name required", ErrDataUnavailable)
	}
	prompt := buildLookupPrompt(product, strings.TrimSpace(sector))
	feedback := ""

	out, err := backoff.Retry(ctx, func() (MarketData, error) {
		fullPrompt := prompt + "\n\nRespond with only valid JSON matching the schema."
		if feedback != "" {
			fullPrompt += "\n\n" + feedback
		}
		raw, err := s.caller.GenerateJSON(ctx, fullPrompt)
		if err != nil {
			switch classifyTransportError(err) {
			case failureTimeout, failureRateLimit, failureServer:
				return MarketData{}, fmt.Errorf("transport failure: %w", err)
			default:
				return MarketData{}, backoff.Permanent(fmt.Errorf("transport failure: %w", err))
			}
		}
		data, err := decodeLookup(raw)
		if err != nil {
			feedback = fmt.Sprintf("Your previous response failed validation: %s. Fix these issues.", err)
			return MarketData{}, err
		}
		data.Product = product
		data.Provenance = ProvenanceLLM
		return data, nil
	}, backoff.WithBackOff(s.newBackOff()), backoff.WithMaxTries(maxLookupAttempts))
	if err != nil {
		return MarketData{}, fmt.Errorf("%w: lookup %q: %v", ErrDataUnavailable, product, err)
	}
	return out, nil
}

func buildLookupPrompt(product, sector string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Estimate the market a licensed product would enter.\n\n")
	fmt.Fprintf(&b, "Product: %s\n", product)
	if sector != "" {
		fmt.Fprintf(&b, "Sector hint: %s\n", sector)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Use the current global market for the product category, a realistic five-year CAGR, "+
		"and a discount rate typical for early-stage licensing deals in the sector. "+
		"Use the sector \"default\" if none fits.\n\n")
	b.WriteString(lookupSchemaPrompt)
	return b.String()
}

func decodeLookup(raw string) (MarketData, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MarketData{}, errors.New("empty response")
	}
	clean, err := jsonrepair.RepairJSON(stripCodeFences(raw))
	if err != nil {
		return MarketData{}, fmt.Errorf("json repair: %w", err)
	}
	var payload struct {
		Sector          string   `json:"sector"`
		MarketSizeM     float64  `json:"market_size_m"`
		CAGRPct         float64  `json:"cagr_pct"`
		DiscountRatePct float64  `json:"discount_rate_pct"`
		Competitors     []string `json:"competitors"`
		Notes           string   `json:"notes"`
	}
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return MarketData{}, fmt.Errorf("json parse: %w", err)
	}
	data := MarketData{
		Sector:          PriorForSector(strings.TrimSpace(payload.Sector)).Sector,
		MarketSizeM:     payload.MarketSizeM,
		CAGRPct:         payload.CAGRPct,
		DiscountRatePct: payload.DiscountRatePct,
		Notes:           strings.TrimSpace(payload.Notes),
	}
	for _, c := range payload.Competitors {
		if c = strings.TrimSpace(c); c != "" {
			data.Competitors = append(data.Competitors, c)
		}
	}
	if err := data.Validate(); err != nil {
		return MarketData{}, err
	}
	return data, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

func classifyTransportError(err error) llmFailureClass {
	if err == nil {
		return failureNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failureTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"):
		return failureRateLimit
	case strings.Contains(msg, "status code: 5") || strings.Contains(msg, "status=5") || strings.Contains(msg, "server error"):
		return failureServer
	case strings.Contains(msg, "status code: 4") || strings.Contains(msg, "status=4"):
		return failureClient
	default:
		return failureServer
	}
}

func envEnabled(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
