package identity

import (
	"context"
	"sync"

	"framez-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// Client is one consuming surface's view of the identity provider. It
// holds the current identity (or nil) and notifies registered listeners
// exactly once per state transition. Registration fires the listener
// immediately with the current state, so a consumer resolves "who is
// signed in" without waiting for the next transition.
type Client struct {
	service *Service

	mu        sync.Mutex
	current   *models.Identity
	token     string
	listeners map[int]func(*models.Identity)
	nextID    int
}

// NewClient creates a client with no signed-in identity.
func NewClient(service *Service) *Client {
	return &Client{
		service:   service,
		listeners: make(map[int]func(*models.Identity)),
	}
}

// OnChange registers a state-change listener and invokes it immediately
// with the current identity. The returned cancel unregisters it; safe
// to call more than once.
func (c *Client) OnChange(fn func(*models.Identity)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	current := c.current
	c.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// SignUp creates a new identity, sets its display name, and signs the
// client in as that identity.
func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*models.Identity, error) {
	ident, err := c.service.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := c.service.UpdateDisplayName(ctx, ident.UID, displayName); err != nil {
		return nil, err
	}
	ident.DisplayName = displayName

	_, token, err := c.service.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	c.setCurrent(ident, token)
	return ident, nil
}

// SignIn authenticates and flips the client to the signed-in identity.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	ident, token, err := c.service.Authenticate(ctx, email, password)
	if err != nil {
		return err
	}
	c.setCurrent(ident, token)
	return nil
}

// SignOut revokes the current token and clears the identity. On
// provider failure the session is left unchanged.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token != "" {
		if err := c.service.SignOut(ctx, token); err != nil {
			log.Error().Err(err).Msg("Failed to sign out")
			return err
		}
	}
	c.setCurrent(nil, "")
	return nil
}

// Current returns the signed-in identity, or nil.
func (c *Client) Current() *models.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Token returns the bearer token of the signed-in identity.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) setCurrent(ident *models.Identity, token string) {
	c.mu.Lock()
	c.current = ident
	c.token = token
	targets := make([]func(*models.Identity), 0, len(c.listeners))
	for _, fn := range c.listeners {
		targets = append(targets, fn)
	}
	c.mu.Unlock()

	for _, fn := range targets {
		fn(ident)
	}
}
