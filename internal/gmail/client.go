package gmail

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/inboxcontent/internal/google"
)

// See https://developers.google.com/gmail/api/reference/quota
const (
	quotaUnitsMessagesGet    = 5
	quotaUnitsAttachmentsGet = 5

	quotaUnitsPerSecond = 250
	rateLimitPerSecond  = quotaUnitsPerSecond * 0.8
	rateLimitBurst      = quotaUnitsPerSecond
)

// Client reads messages and attachments for one account.
type Client struct {
	svc     *gmail.Service
	account string
	limiter *rate.Limiter
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// NewClientForAccount creates a Gmail client authorized with the cached
// token of account.
func NewClientForAccount(ctx context.Context, account string) (*Client, error) {
	httpClient, err := google.GetHTTPClientForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w", account, err)
	}
	return NewService(ctx, account, option.WithHTTPClient(httpClient))
}

// NewService creates a client from explicit API options. Tests use it to
// point the client at a local server.
func NewService(ctx context.Context, account string, opts ...option.ClientOption) (*Client, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{
		svc:     svc,
		account: account,
		limiter: rate.NewLimiter(rateLimitPerSecond, rateLimitBurst),
	}, nil
}
