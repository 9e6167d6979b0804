package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

// Client implements the mail-search collaborator on top of the Gmail API.
// Token acquisition is out of scope: the OAuth consent flow must have been
// completed elsewhere and its token stored at the configured path.
type Client struct {
	svc    *gmailv1.Service
	logger *slog.Logger
}

var _ ports.MailSearcher = (*Client)(nil)

// New builds a read-only Gmail client from a stored credentials/token pair.
// Missing files surface as ports.ErrNoCredentials so callers can tell a
// configuration gap from a transport failure.
func New(ctx context.Context, credentialsPath, tokenPath string, logger *slog.Logger) (*Client, error) {
	credentials, err := os.ReadFile(credentialsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ports.ErrNoCredentials, credentialsPath)
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	cfg, err := google.ConfigFromJSON(credentials, gmailv1.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	raw, err := os.ReadFile(tokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ports.ErrNoCredentials, tokenPath)
		}
		return nil, fmt.Errorf("read token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("build gmail service: %w", err)
	}

	return &Client{svc: svc, logger: logger}, nil
}

// CheckConnection verifies the stored credentials still work.
func (c *Client) CheckConnection(ctx context.Context) error {
	if _, err := c.svc.Users.GetProfile("me").Context(ctx).Do(); err != nil {
		return fmt.Errorf("gmail profile check: %w", err)
	}
	return nil
}

// Search lists message IDs matching the query within the days-back window.
func (c *Client) Search(ctx context.Context, query string, maxResults, daysBack int) ([]string, error) {
	after := time.Now().AddDate(0, 0, -daysBack).Format("2006/01/02")
	full := strings.TrimSpace(query + " after:" + after)

	resp, err := c.svc.Users.Messages.List("me").
		Q(full).
		MaxResults(int64(maxResults)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		ids = append(ids, msg.Id)
	}

	if c.logger != nil {
		c.logger.Debug("mail search", "query", full, "matches", len(ids))
	}
	return ids, nil
}

// FetchDetails loads one message's headers and decoded bodies.
func (c *Client) FetchDetails(ctx context.Context, id string) (domain.MailMessage, error) {
	msg, err := c.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return domain.MailMessage{}, fmt.Errorf("get message %s: %w", id, err)
	}

	out := domain.MailMessage{ID: id}
	if msg.Payload == nil {
		return out, nil
	}

	for _, header := range msg.Payload.Headers {
		switch strings.ToLower(header.Name) {
		case "subject":
			out.Subject = header.Value
		case "from":
			out.Sender = header.Value
		case "date":
			out.Date = header.Value
		}
	}

	collectBodies(msg.Payload, &out)
	return out, nil
}

// collectBodies walks the MIME tree picking up the first plain-text and HTML
// parts.
func collectBodies(part *gmailv1.MessagePart, out *domain.MailMessage) {
	if part == nil {
		return
	}

	if part.Body != nil && part.Body.Data != "" {
		switch part.MimeType {
		case "text/plain":
			if out.TextBody == "" {
				out.TextBody = decodeBody(part.Body.Data)
			}
		case "text/html":
			if out.HTMLBody == "" {
				out.HTMLBody = decodeBody(part.Body.Data)
			}
		}
	}

	for _, sub := range part.Parts {
		collectBodies(sub, out)
	}
}

func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return ""
	}
	return string(decoded)
}
