// Package agent exposes royalty projections as a capability on the agent bus.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/joelkehle/techtransfer-royalty/internal/analysis"
	"github.com/joelkehle/techtransfer-royalty/internal/report"
	"github.com/joelkehle/techtransfer-royalty/internal/royalty"
)

const Capability = "royalty-projection"

type Config struct {
	AgentID           string
	PollWaitSec       int
	HeartbeatInterval time.Duration
	PollRetryDelay    time.Duration
}

// ResponseEnvelope is the body of a successful reply.
type ResponseEnvelope struct {
	CaseID               string                 `json:"case_id,omitempty"`
	ProjectionID         string                 `json:"projection_id"`
	Classification       royalty.Classification `json:"classification"`
	Banner               string                 `json:"banner"`
	TotalRoyaltyUSD      float64                `json:"total_royalty_usd"`
	DiscountedRoyaltyUSD *float64               `json:"discounted_royalty_usd,omitempty"`
	Analysis             analysis.Analysis      `json:"analysis"`
	ReportMarkdown       string                 `json:"report_markdown"`
	Disclaimer           string                 `json:"disclaimer"`
}

// ErrorEnvelope is the body of a failed reply.
type ErrorEnvelope struct {
	CaseID  string   `json:"case_id,omitempty"`
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Params  []string `json:"params,omitempty"`
}

type Agent struct {
	cfg      Config
	bus      Bus
	analyzer *analysis.Analyzer
	logger   *zap.Logger
	cursor   int
	wg       sync.WaitGroup
	marshal  func(any) ([]byte, error)
}

func New(cfg Config, bus Bus, analyzer *analysis.Analyzer, logger *zap.Logger) *Agent {
	if cfg.PollWaitSec <= 0 {
		cfg.PollWaitSec = 5
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 60 * time.Second
	}
	if cfg.PollRetryDelay <= 0 {
		cfg.PollRetryDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		cfg:      cfg,
		bus:      bus,
		analyzer: analyzer,
		logger:   logger.With(zap.String("agent_id", cfg.AgentID)),
		marshal:  json.Marshal,
	}
}

// Run registers, keeps the registration alive and handles inbox messages
// until ctx is done. In-flight messages finish before Run returns.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.bus.Register(ctx, []string{Capability}); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	a.logger.Info("agent registered", zap.String("capability", Capability))
	go a.heartbeatLoop(ctx)
	defer a.wg.Wait()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		events, next, err := a.bus.Poll(ctx, a.cursor, a.cfg.PollWaitSec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Warn("poll failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(a.cfg.PollRetryDelay):
			}
			continue
		}
		a.cursor = next
		for _, evt := range events {
			a.logger.Info("message received",
				zap.String("message_id", evt.MessageID),
				zap.String("from", evt.From),
				zap.String("conversation_id", evt.ConversationID),
			)
			a.wg.Add(1)
			go func(ev InboxEvent) {
				defer a.wg.Done()
				if err := a.HandleEvent(ctx, ev); err != nil {
					a.logger.Warn("handle message failed", zap.String("message_id", ev.MessageID), zap.Error(err))
				}
			}(evt)
		}
	}
}

func (a *Agent) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.bus.Register(ctx, []string{Capability}); err != nil {
				a.logger.Warn("heartbeat register failed", zap.Error(err))
			} else {
				a.logger.Debug("heartbeat renewed")
			}
		}
	}
}

// HandleEvent acks one message, runs the analysis and replies with either a
// ResponseEnvelope or an ErrorEnvelope.
func (a *Agent) HandleEvent(ctx context.Context, evt InboxEvent) error {
	if err := a.bus.Ack(ctx, evt.MessageID, "accepted", "processing royalty projection"); err != nil {
		return err
	}

	req, err := parseRequest(evt.Body)
	if err != nil {
		_ = a.bus.Event(ctx, evt.MessageID, "error", "invalid request envelope", nil)
		_ = a.replyError(ctx, evt, "", err)
		return err
	}

	out, err := a.analyzer.AnalyzeWithProgress(ctx, req, func(stage, message string) {
		_ = a.bus.Event(ctx, evt.MessageID, "progress", message, map[string]any{"stage": stage})
	})
	if err != nil {
		_ = a.bus.Event(ctx, evt.MessageID, "error", err.Error(), nil)
		_ = a.replyError(ctx, evt, req.CaseID, err)
		return err
	}

	env := ResponseEnvelope{
		CaseID:               out.CaseID,
		ProjectionID:         out.ID,
		Classification:       out.Result.Classification,
		Banner:               report.Banner(out.Result.Classification),
		TotalRoyaltyUSD:      out.Result.TotalRoyaltyUSD,
		DiscountedRoyaltyUSD: out.Result.DiscountedRoyaltyUSD,
		Analysis:             out,
		ReportMarkdown:       report.BuildMarkdown(out),
		Disclaimer:           out.Disclaimer,
	}
	blob, err := a.marshal(env)
	if err != nil {
		err = fmt.Errorf("encode response: %w", err)
		_ = a.bus.Event(ctx, evt.MessageID, "error", err.Error(), nil)
		_ = a.replyError(ctx, evt, req.CaseID, err)
		return err
	}
	_, err = a.bus.Send(ctx, Message{
		To:             replyTo(evt),
		ConversationID: evt.ConversationID,
		RequestID:      "royalty-projection-response-" + evt.MessageID,
		Type:           "response",
		Body:           string(blob),
		Meta:           map[string]any{"stage": "done", "classification": string(out.Result.Classification)},
	})
	if err != nil {
		_ = a.bus.Event(ctx, evt.MessageID, "error", "failed to send response", nil)
		return err
	}
	_ = a.bus.Event(ctx, evt.MessageID, "final", string(out.Result.Classification), map[string]any{"projection_id": out.ID})
	return nil
}

func (a *Agent) replyError(ctx context.Context, evt InboxEvent, caseID string, cause error) error {
	env := ErrorEnvelope{CaseID: caseID, Status: "error", Message: cause.Error()}
	if errors.Is(cause, royalty.ErrInvalidParameter) {
		env.Params = royalty.InvalidParams(cause)
	}
	blob, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_, err = a.bus.Send(ctx, Message{
		To:             replyTo(evt),
		ConversationID: evt.ConversationID,
		RequestID:      "royalty-projection-error-" + evt.MessageID,
		Type:           "response",
		Body:           string(blob),
		Meta:           map[string]any{"stage": "error", "status": "error"},
	})
	return err
}

func replyTo(evt InboxEvent) string {
	if m, ok := evt.Meta.(map[string]any); ok {
		if rt, _ := m["reply_to"].(string); strings.TrimSpace(rt) != "" {
			return strings.TrimSpace(rt)
		}
	}
	return evt.From
}

func parseRequest(body string) (analysis.Request, error) {
	var req analysis.Request
	if strings.TrimSpace(body) == "" {
		return req, errors.New("empty request body")
	}
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return req, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}
