package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/inboxcontent/internal/attachment"
	"github.com/teemow/inboxcontent/internal/gmail"
	"github.com/teemow/inboxcontent/internal/google"
	"github.com/teemow/inboxcontent/internal/instrumentation"
)

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx          context.Context
	cancel       context.CancelFunc
	resolver     *attachment.Resolver
	tokens       google.TokenProvider
	gmailClients map[string]*gmail.Client // Maps account name to Gmail client
	metrics      *instrumentation.Metrics
	auditLogger  *instrumentation.AuditLogger
	logger       *slog.Logger
	mu           sync.RWMutex
	shutdown     bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithMetrics records tool invocations on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) {
		sc.metrics = m
	}
}

// WithAuditLogger logs every tool invocation to al.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) {
		sc.auditLogger = al
	}
}

// WithTokenProvider replaces the file token cache used to decide whether a
// Gmail client can be created for an account.
func WithTokenProvider(p google.TokenProvider) Option {
	return func(sc *ServerContext) {
		sc.tokens = p
	}
}

// WithLogger sets the logger used for client construction warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) {
		if logger != nil {
			sc.logger = logger
		}
	}
}

// NewServerContext creates a new server context. A nil resolver is replaced
// by one built from attachment.DefaultConfig.
func NewServerContext(ctx context.Context, resolver *attachment.Resolver, opts ...Option) (*ServerContext, error) {
	if resolver == nil {
		cfg := attachment.DefaultConfig()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid attachment configuration: %w", err)
		}
		resolver = attachment.NewResolver(cfg, nil, nil)
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:          shutdownCtx,
		cancel:       cancel,
		resolver:     resolver,
		tokens:       google.NewFileTokenProvider(),
		gmailClients: make(map[string]*gmail.Client),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Resolver returns the attachment pipeline shared by all tools.
func (sc *ServerContext) Resolver() *attachment.Resolver {
	return sc.resolver
}

// Metrics returns the tool metrics recorder, or nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// HasTokenForAccount reports whether the token provider holds a token for
// account.
func (sc *ServerContext) HasTokenForAccount(account string) bool {
	return sc.tokens.HasTokenForAccount(account)
}

// GmailClientForAccount returns the Gmail client for a specific account
// Creates and caches the client if it doesn't exist yet
// Returns nil if the account has no token
func (sc *ServerContext) GmailClientForAccount(account string) *gmail.Client {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if client, ok := sc.gmailClients[account]; ok {
		return client
	}

	if !sc.tokens.HasTokenForAccount(account) {
		return nil
	}

	client, err := gmail.NewClientForAccount(sc.ctx, account)
	if err != nil {
		sc.logger.Warn("failed to create Gmail client", "account", account, "error", err)
		return nil
	}

	sc.gmailClients[account] = client
	return client
}

// SetGmailClientForAccount sets the Gmail client for a specific account
func (sc *ServerContext) SetGmailClientForAccount(account string, client *gmail.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.gmailClients[account] = client
}

// ResetGmailClientForAccount drops a cached client so the next call picks
// up a freshly saved token.
func (sc *ServerContext) ResetGmailClientForAccount(account string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	delete(sc.gmailClients, account)
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
