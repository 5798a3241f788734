package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// DefaultResponsePath locates the generated text in a generateContent reply
const DefaultResponsePath = "candidates.0.content.parts.0.text"

const maxResponseBytes = 1 << 20

var (
	ErrGeneratorDisabled  = errors.New("text generator not configured")
	ErrGeneratorThrottled = errors.New("text generator rate limit reached")
)

// GenerativeConfig configures the HTTP text generator
type GenerativeConfig struct {
	Endpoint     string // full URL of the generate call
	APIKey       string
	Model        string
	ResponsePath string        // gjson path to the generated text
	Timeout      time.Duration // per request
	RatePerSec   float64       // 0 disables throttling
	Burst        int
	HTTPClient   *http.Client
}

// GenerativeComposer asks an external text-generation service for a
// one-sentence message
type GenerativeComposer struct {
	endpoint string
	apiKey   string
	model    string
	path     string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewGenerativeComposer creates a composer. It returns nil when no
// endpoint is configured.
func NewGenerativeComposer(cfg GenerativeConfig) *GenerativeComposer {
	if cfg.Endpoint == "" {
		return nil
	}
	g := &GenerativeComposer{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		path:     cfg.ResponsePath,
		client:   cfg.HTTPClient,
	}
	if g.path == "" {
		g.path = DefaultResponsePath
	}
	if g.client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		g.client = &http.Client{Timeout: timeout}
	}
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	return g
}

// Compose implements Composer
func (g *GenerativeComposer) Compose(ctx context.Context, kind Kind, r *model.DonationResult) (string, error) {
	if g == nil {
		return "", ErrGeneratorDisabled
	}
	if g.limiter != nil && !g.limiter.Allow() {
		return "", ErrGeneratorThrottled
	}

	body, err := json.Marshal(map[string]any{
		"model": g.model,
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": Prompt(kind, r)}}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode prompt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("x-goog-api-key", g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("text generator: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("text generator returned %d: %s", resp.StatusCode, msg)
	}
	if !gjson.ValidBytes(raw) {
		return "", errors.New("text generator returned invalid JSON")
	}

	text := strings.TrimSpace(strings.ReplaceAll(gjson.GetBytes(raw, g.path).String(), `"`, ""))
	if text == "" {
		return "", ErrEmptyMessage
	}
	return text, nil
}

// Prompt builds the generation prompt for a donation
func Prompt(kind Kind, r *model.DonationResult) string {
	var b strings.Builder
	b.WriteString("Generate a short, encouraging notification for a charity donation platform user.\n\n")
	fmt.Fprintf(&b, "Type: %s\n", kind)
	fmt.Fprintf(&b, "Item: %s x%d\n", displayItem(r.ItemType), r.Quantity)
	fmt.Fprintf(&b, "Points: %d (bonus %d)\n", r.PointsAwarded+r.BonusPoints, r.BonusPoints)
	fmt.Fprintf(&b, "Tier: %s\n", r.NewTier)
	fmt.Fprintf(&b, "Streak: %d days\n", r.NewStreak)
	if len(r.NewAchievements) > 0 {
		fmt.Fprintf(&b, "Achievements: %s\n", humanize(r.NewAchievements))
	}
	b.WriteString("\nRequirements:\n- One sentence only\n- Include a relevant emoji\n- Be positive and motivational\n- No quotes or preamble\n")
	return b.String()
}
