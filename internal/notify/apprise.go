// Package notify delivers player lifecycle notifications.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sharkusmanch/slideshow-runner/internal/domain"
	"github.com/sharkusmanch/slideshow-runner/internal/http"
)

const maxBodyLength = 1000

// AppriseClient sends notifications via an Apprise API server.
type AppriseClient struct {
	url         string
	key         string
	titlePrefix string
	tag         string
	httpClient  *http.Client
	logger      *slog.Logger
}

// AppriseOption configures an AppriseClient.
type AppriseOption func(*AppriseClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) AppriseOption {
	return func(a *AppriseClient) {
		a.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) AppriseOption {
	return func(a *AppriseClient) {
		a.logger = logger
	}
}

// WithTitlePrefix prefixes every title, typically with the hostname.
func WithTitlePrefix(prefix string) AppriseOption {
	return func(a *AppriseClient) {
		a.titlePrefix = prefix
	}
}

// WithTag restricts delivery to Apprise URLs carrying tag.
func WithTag(tag string) AppriseOption {
	return func(a *AppriseClient) {
		a.tag = tag
	}
}

// NewAppriseClient creates a new AppriseClient.
func NewAppriseClient(url, key string, opts ...AppriseOption) *AppriseClient {
	a := &AppriseClient{
		url:        strings.TrimSuffix(url, "/"),
		key:        key,
		httpClient: http.NewClient(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

type appriseRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Type  string `json:"type,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Notify posts the notification to /notify/<key>.
func (a *AppriseClient) Notify(ctx context.Context, n *domain.Notification) error {
	title := n.Title
	if a.titlePrefix != "" {
		title = a.titlePrefix + ": " + title
	}

	payload, err := json.Marshal(appriseRequest{
		Title: title,
		Body:  truncate(n.Body, maxBodyLength),
		Type:  appriseType(n.Level),
		Tag:   a.tag,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	notifyURL := fmt.Sprintf("%s/notify/%s", a.url, a.key)
	a.logger.Debug("sending notification via apprise",
		"url", notifyURL,
		"title", title,
		"level", n.Level,
	)

	resp, err := a.httpClient.Post(ctx, notifyURL, "application/json", payload)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("apprise returned status %d: %s", resp.StatusCode, string(resp.Body))
	}

	return nil
}

// Validate checks if the Apprise server is reachable.
func (a *AppriseClient) Validate(ctx context.Context) error {
	detailsURL := fmt.Sprintf("%s/details/%s", a.url, a.key)

	if err := a.httpClient.CheckConnectivity(ctx, detailsURL); err != nil {
		if err2 := a.httpClient.CheckConnectivity(ctx, a.url); err2 != nil {
			return fmt.Errorf("apprise server not reachable at %s: %w", a.url, err)
		}
	}

	return nil
}

func appriseType(level domain.NotificationLevel) string {
	switch level {
	case domain.NotificationLevelWarning:
		return "warning"
	case domain.NotificationLevelError:
		return "failure"
	default:
		return "info"
	}
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Ensure AppriseClient implements domain.Notifier.
var _ domain.Notifier = (*AppriseClient)(nil)
