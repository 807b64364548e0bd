// Package mattermost provides webhook client for sending notifications to Mattermost.
package mattermost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bitelog/bitelog-api/internal/config"
	"github.com/bitelog/bitelog-api/internal/models"
	"github.com/bitelog/bitelog-api/pkg/logger"
)

const botUsername = "BiteLog"

// Client handles Mattermost webhook notifications.
type Client struct {
	webhookURL string
	channel    string
	enabled    bool
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new Mattermost client.
func NewClient(cfg *config.MattermostConfig, log *logger.Logger) *Client {
	return &Client{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		enabled:    cfg.Enabled,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// Message represents a Mattermost message payload.
type Message struct {
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	Text        string       `json:"text,omitempty"`
	IconURL     string       `json:"icon_url,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment represents a message attachment.
type Attachment struct {
	Fallback string  `json:"fallback,omitempty"`
	Color    string  `json:"color,omitempty"`
	Title    string  `json:"title,omitempty"`
	Text     string  `json:"text,omitempty"`
	Fields   []Field `json:"fields,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
	Footer   string  `json:"footer,omitempty"`
}

// Field represents a message field.
type Field struct {
	Short bool   `json:"short"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// SendMessage sends a message to Mattermost.
func (c *Client) SendMessage(ctx context.Context, msg *Message) error {
	if !c.enabled {
		c.log.Debug().Msg("Mattermost is disabled, skipping message")
		return nil
	}

	if msg.Channel == "" {
		msg.Channel = c.channel
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message to Mattermost: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mattermost returned status %d", resp.StatusCode)
	}

	c.log.Debug().
		Str("channel", msg.Channel).
		Msg("Sent message to Mattermost")

	return nil
}

// SendMealPublished announces an upcoming meal that entered the catalog.
func (c *Client) SendMealPublished(ctx context.Context, meal *models.Meal, trigger string) error {
	reason := "published by an admin"
	if trigger == "threshold" || trigger == "sweep" {
		reason = "voted into the catalog by the community"
	}

	return c.SendMessage(ctx, &Message{
		Username: botUsername,
		Text:     fmt.Sprintf("### 🍽️ New meal on the menu\n\n**%s** was %s.", meal.Title, reason),
		Attachments: []Attachment{{
			Fallback: meal.Title,
			Color:    "#2e7d32",
			Title:    meal.Title,
			Text:     meal.Description,
			ImageURL: meal.Image,
			Fields: []Field{
				{Short: true, Title: "Category", Value: meal.Category},
				{Short: true, Title: "Price", Value: fmt.Sprintf("$%.2f", meal.Price)},
				{Short: true, Title: "Distributor", Value: meal.DistributorName},
			},
			Footer: fmt.Sprintf("meal #%d", meal.ID),
		}},
	})
}

// SendPendingRequestDigest sends the daily list of undelivered meal requests.
func (c *Client) SendPendingRequestDigest(ctx context.Context, requests []models.MealRequest, now time.Time) error {
	if len(requests) == 0 {
		c.log.Debug().Msg("No pending meal requests, skipping digest")
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### 📋 Pending Meal Requests\n\nThere are **%d** meal requests waiting to be served:\n\n", len(requests))

	for _, r := range requests {
		age := now.Sub(r.CreatedAt)
		ageStr := fmt.Sprintf("%.1f hours", age.Hours())
		if age.Hours() > 24 {
			ageStr = fmt.Sprintf("%.1f days", age.Hours()/24)
		}

		icon := "•"
		if age.Hours() > 48 {
			icon = "⚠️"
		}

		requester := r.UserName
		if requester == "" {
			requester = r.UserEmail
		}
		fmt.Fprintf(&b, "%s **%s** for %s (%s old)\n", icon, r.MealTitle, requester, ageStr)
	}

	return c.SendMessage(ctx, &Message{
		Username: botUsername,
		Text:     b.String(),
	})
}
