package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"orderagent"
)

// Client posts kitchen tickets to a Slack incoming webhook.
type Client struct {
	webhookURL string
	channel    string
	httpClient orderagent.HTTPClient
}

func NewClient(webhookURL, channel string, httpClient orderagent.HTTPClient) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		webhookURL: webhookURL,
		channel:    channel,
		httpClient: httpClient,
	}
}

// SendTicket posts a closed order to the kitchen channel.
func (c *Client) SendTicket(ctx context.Context, t orderagent.Ticket) error {
	if t.Receipt == nil {
		return fmt.Errorf("ticket %s has no receipt", t.OrderID)
	}
	slog.Info("KITCHEN: Sending ticket", "order_id", t.OrderID, "lines", len(t.Lines()))
	return c.PostMessage(ctx, c.channel, FormatTicket(t))
}

// FormatTicket renders a ticket as a Slack message.
func FormatTicket(t orderagent.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*New order* `%s`\n", t.OrderID)
	for _, l := range t.Lines() {
		fmt.Fprintf(&b, "• %s\n", l)
	}
	fmt.Fprintf(&b, "Total: %s", t.Receipt.Total)
	return b.String()
}

func (c *Client) PostMessage(ctx context.Context, channel string, message string) error {
	payload, err := json.Marshal(map[string]any{
		"channel": channel,
		"text":    message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}
