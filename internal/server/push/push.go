// Package push carries the push-notification side channel: device-token
// registration and posting a title/body notification to every registered
// device. No business logic depends on it; failures are logged and never
// propagate to the CRUD workflow.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/transdovic/backoffice/internal/common"
	"github.com/transdovic/backoffice/internal/logging"
	"github.com/transdovic/backoffice/internal/server/models"
)

// TokenRegistry is the persistence surface for device registrations.
type TokenRegistry interface {
	Register(ctx context.Context, token, platform string) (*models.DeviceToken, error)
	List(ctx context.Context) ([]models.DeviceToken, error)
}

// Service posts notifications to the hosted push gateway. Construct it
// with New; calling a method on an unconstructed Service returns
// common.ErrNotInitialized instead of touching a half-built client.
type Service struct {
	endpoint  string
	serverKey string
	tokens    TokenRegistry
	httpc     *http.Client
	logger    logging.Logger
	inited    bool
}

// New builds the push service.
func New(endpoint, serverKey string, tokens TokenRegistry, logger logging.Logger) *Service {
	return &Service{
		endpoint:  endpoint,
		serverKey: serverKey,
		tokens:    tokens,
		httpc:     &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
		inited:    true,
	}
}

// RegisterDevice stores (or refreshes) one device token.
func (s *Service) RegisterDevice(ctx context.Context, token, platform string) (*models.DeviceToken, error) {
	if s == nil || !s.inited {
		return nil, common.ErrNotInitialized
	}
	if token == "" {
		return nil, &common.ValidationError{Field: "token", Reason: "required"}
	}
	return s.tokens.Register(ctx, token, platform)
}

type message struct {
	To           string `json:"to"`
	Notification struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	} `json:"notification"`
}

// Broadcast sends a title/body notification to every registered device.
// Per-device delivery failures are logged and skipped; only a registry
// failure aborts the broadcast.
func (s *Service) Broadcast(ctx context.Context, title, body string) error {
	if s == nil || !s.inited {
		return common.ErrNotInitialized
	}

	devices, err := s.tokens.List(ctx)
	if err != nil {
		return fmt.Errorf("list device tokens: %w", err)
	}

	for _, d := range devices {
		if err := s.send(ctx, d.Token, title, body); err != nil {
			s.logger.Warn(ctx, "push delivery failed", "token", d.Token, "error", err.Error())
		}
	}
	return nil
}

func (s *Service) send(ctx context.Context, token, title, body string) error {
	var m message
	m.To = token
	m.Notification.Title = title
	m.Notification.Body = body

	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.serverKey)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return common.NewRemoteError(fmt.Sprintf("push gateway: %v", err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return common.NewRemoteError(
			fmt.Sprintf("push gateway: %s; body: %s", resp.Status, string(b)), nil)
	}
	return nil
}
