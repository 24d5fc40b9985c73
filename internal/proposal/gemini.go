package proposal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/noah-isme/study-planner-api/internal/planner"
)

const defaultModel = "gemini-1.5-flash"

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiConfig configures the Gemini source.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Gemini asks a Gemini model to lay out the sessions.
type Gemini struct {
	client    *genai.Client
	generator contentGenerator
	timeout   time.Duration
	logger    *zap.Logger
}

// NewGemini dials the Gemini API. The returned source must be closed.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	name := cfg.Model
	if name == "" {
		name = defaultModel
	}
	model := client.GenerativeModel(name)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.2)

	g := newGemini(model, cfg.Timeout, logger)
	g.client = client
	return g, nil
}

func newGemini(generator contentGenerator, timeout time.Duration, logger *zap.Logger) *Gemini {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gemini{generator: generator, timeout: timeout, logger: logger}
}

// Enabled reports true.
func (g *Gemini) Enabled() bool { return true }

// Close releases the underlying client.
func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Propose sends the request to the model and decodes its reply.
func (g *Gemini) Propose(ctx context.Context, req planner.Request) ([]planner.RawSession, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.generator.GenerateContent(ctx, genai.Text(buildPrompt(req)))
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text := replyText(resp)
	if text == "" {
		return nil, errors.New("gemini returned an empty reply")
	}

	sessions, err := decodeSessions(text)
	if err != nil {
		g.logger.Debug("undecodable gemini reply", zap.String("reply", truncate(text, 512)))
		return nil, fmt.Errorf("decode gemini reply: %w", err)
	}

	g.logger.Debug("gemini proposal received",
		zap.Int("items", len(sessions)),
		zap.Duration("latency", time.Since(start)),
	)
	return sessions, nil
}

func replyText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

func buildPrompt(req planner.Request) string {
	rest := make(map[time.Weekday]bool, len(req.RestDays))
	for _, d := range req.RestDays {
		rest[time.Weekday(d)] = true
	}

	var b strings.Builder
	b.WriteString("You are a study planner. Lay out study sessions for the days listed below.\n")
	fmt.Fprintf(&b, "Daily study budget: %d minutes. The sessions of one day must not exceed it.\n", req.StudyMinutesPerDay)
	b.WriteString("Topics (name | priority):\n")
	for _, t := range req.Topics {
		fmt.Fprintf(&b, "- %s | %s\n", t.Name, t.Priority)
	}
	b.WriteString("Study days (dayNumber | date | weekday):\n")
	span := planner.SpanDays(req.StartDate, req.EndDate)
	for i := 0; i < span; i++ {
		day := req.StartDate.AddDate(0, 0, i)
		if rest[day.Weekday()] {
			continue
		}
		fmt.Fprintf(&b, "- %d | %s | %s\n", i+1, planner.FormatDate(day), day.Weekday())
	}
	b.WriteString("Give high priority topics more time. Do not schedule days that are not listed.\n")
	b.WriteString(`Reply with only a JSON array of objects shaped {"dayNumber": int, "topic": string, "durationMinutes": int, "priority": "high"|"medium"|"low"}.`)
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
