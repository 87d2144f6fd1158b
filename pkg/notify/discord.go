package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elonfeng/clusterboard/pkg/rank"
)

// Discord sends notifications via Discord webhook.
type Discord struct {
	client     *http.Client
	webhookURL string
}

// NewDiscord creates a new Discord notifier.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

func (d *Discord) Name() string { return "discord" }

// embedColor picks the embed color from the best highlight's tier.
func embedColor(n *Notification) int {
	if len(n.Highlights) == 0 {
		return 0x808080
	}
	switch n.Highlights[0].Tier {
	case rank.TierHigh:
		return 0x2ECC71
	case rank.TierMedium:
		return 0xF1C40F
	default:
		return 0xE67E22
	}
}

func (d *Discord) Send(ctx context.Context, n *Notification) error {
	lines := n.Lines(func(h Highlight) string {
		return fmt.Sprintf("%d. **%s** %s", h.Rank, h.Name, h.Points)
	})

	embed := map[string]any{
		"title":       n.Title,
		"description": fmt.Sprintf("%s\n\n%s", n.Body, strings.Join(lines, "\n")),
		"color":       embedColor(n),
		"footer":      map[string]any{"text": n.ResultID},
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}

	payload := map[string]any{
		"embeds": []map[string]any{embed},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook status %d", resp.StatusCode)
	}

	return nil
}
