package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vestry/internal/config"
)

const userAgent = "Vestry/0.1.0"

// Service defines the notification surface exposed to the engine and CLI.
type Service interface {
	NotifyRunStarted(ctx context.Context, eventTitle string, planned int) error
	NotifyRunFinished(ctx context.Context, eventTitle, outcome string, executed, failed int, duration time.Duration) error
	NotifyModuleFailed(ctx context.Context, eventTitle, module, detail string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:  topic,
		client:    client,
		runEvents: cfg.Notifications.Runs,
		errEvents: cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	runEvents bool
	errEvents bool
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, eventTitle string, planned int) error {
	if !n.runEvents {
		return nil
	}
	eventTitle = strings.TrimSpace(eventTitle)
	data := payload{
		title:   "Vestry - Run Started",
		message: fmt.Sprintf("Started run for %s (%d modules planned)", eventTitle, planned),
		tags:    []string{"vestry", "run", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFinished(ctx context.Context, eventTitle, outcome string, executed, failed int, duration time.Duration) error {
	if !n.runEvents {
		return nil
	}
	eventTitle = strings.TrimSpace(eventTitle)
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var title, message string
	switch outcome {
	case "completed":
		title = "Vestry - Run Complete"
		message = fmt.Sprintf("Run complete for %s: %d modules in %s", eventTitle, executed, duration)
	case "failed":
		title = "Vestry - Run Failed"
		message = fmt.Sprintf("Run failed for %s: %d failed in %s", eventTitle, failed, duration)
	default:
		title = "Vestry - Run Complete (with errors)"
		message = fmt.Sprintf("Run finished for %s: %d succeeded, %d failed in %s", eventTitle, executed, failed, duration)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"vestry", "run", outcome},
	}
	if outcome != "completed" {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyModuleFailed(ctx context.Context, eventTitle, module, detail string) error {
	if !n.errEvents {
		return nil
	}
	eventTitle = strings.TrimSpace(eventTitle)
	detail = strings.TrimSpace(detail)
	message := fmt.Sprintf("Module %s failed for %s", module, eventTitle)
	if detail != "" {
		message = fmt.Sprintf("%s\n%s", message, detail)
	}
	data := payload{
		title:    "Vestry - Module Failed",
		message:  message,
		tags:     []string{"vestry", "module", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errEvents {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Vestry - Error",
		message:  builder.String(),
		tags:     []string{"vestry", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Vestry - Test",
		message:  "Notification system test",
		tags:     []string{"vestry", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, string, int) error { return nil }

func (noopService) NotifyRunFinished(context.Context, string, string, int, int, time.Duration) error {
	return nil
}

func (noopService) NotifyModuleFailed(context.Context, string, string, string) error { return nil }

func (noopService) NotifyError(context.Context, error, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
