package yunzhijia

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kiosk404/ferry/internal/ferry/service/bridge"
	"github.com/kiosk404/ferry/pkg/logger"
	"github.com/kiosk404/ferry/pkg/utils/json"
)

// TokenKey is the Target.Extra key holding the robot token.
const TokenKey = "token"

const sendTimeout = 15 * time.Second

// Sender posts messages to the robot notify webhook.
type Sender struct {
	notifyURL  string
	templateID string
	client     *http.Client
}

var _ bridge.Sender = (*Sender)(nil)

// NewSender creates a sender. notifyURL must contain one %s for the token.
func NewSender(notifyURL, templateID string, client *http.Client) *Sender {
	if client == nil {
		client = &http.Client{Timeout: sendTimeout}
	}
	return &Sender{notifyURL: notifyURL, templateID: templateID, client: client}
}

// Send implements bridge.Sender.
func (s *Sender) Send(ctx context.Context, target bridge.Target, msg bridge.OutboundMessage) error {
	token := target.Extra[TokenKey]
	if token == "" {
		return errors.New("missing yzj token")
	}

	switch msg.Kind {
	case bridge.KindCard:
		if s.templateID == "" {
			logger.Warn("[YZJ] card template not configured, %d images not sent", len(msg.MediaURLs))
			return nil
		}
		card, err := buildCard(s.templateID, target.Recipient, msg.MediaURLs)
		if err != nil {
			return err
		}
		return s.post(ctx, token, card)
	case bridge.KindTextWithMedia:
		text := strings.TrimSpace(strings.Join(append([]string{msg.Text}, msg.MediaURLs...), "\n"))
		return s.SendText(ctx, token, target.Recipient, text)
	default:
		return s.SendText(ctx, token, target.Recipient, msg.Text)
	}
}

// SendText sends a text message to one user.
func (s *Sender) SendText(ctx context.Context, token, openid, text string) error {
	return s.post(ctx, token, textPayload{Content: text, NotifyParams: notifyOpenID(openid)})
}

func (s *Sender) post(ctx context.Context, token string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf(s.notifyURL, token), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notify returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
