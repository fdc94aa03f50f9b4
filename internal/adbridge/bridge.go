// Package adbridge models the platform-provided rewarded-ad step as a
// capability-checked collaborator: present when a bridge URL is configured,
// absent otherwise.
package adbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Bridge shows a rewarded ad and returns once the user has watched it.
type Bridge interface {
	Show(ctx context.Context, placementID string) error
	Available() bool
}

// Detect returns the HTTP-backed bridge when a URL is configured and the
// explicit no-op fallback otherwise. The fallback grants the reward without
// an ad and says so in the logs; it is a documented degradation, not a
// silent one.
func Detect(bridgeURL string, logger *slog.Logger) Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if bridgeURL == "" {
		return &unavailable{logger: logger}
	}
	return &httpBridge{
		url:    bridgeURL,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

type httpBridge struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func (b *httpBridge) Available() bool { return true }

func (b *httpBridge) Show(ctx context.Context, placementID string) error {
	body, err := json.Marshal(map[string]string{"placement_id": placementID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building ad bridge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("ad bridge call failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ad bridge returned status %d", resp.StatusCode)
	}
	return nil
}

type unavailable struct {
	logger *slog.Logger
}

func (u *unavailable) Available() bool { return false }

func (u *unavailable) Show(ctx context.Context, placementID string) error {
	u.logger.Info("ad bridge unavailable, granting reward without ad",
		"placement_id", placementID)
	return nil
}
