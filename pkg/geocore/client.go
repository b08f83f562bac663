// Package geocore is a client for the Geocore geospatial REST API.
//
// A Client holds the session (base URL, project, logged-in user and access
// token) and exposes the API through per-resource services such as
// Client.Places and Client.Relationships. Queries are plain struct values
// compiled to a path plus query parameters only when an operation runs.
package geocore

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// AccessTokenHeader carries the session token on authenticated requests.
const AccessTokenHeader = "Geocore-Access-Token"

const defaultTimeout = 30 * time.Second

// Config describes how to reach a Geocore project.
type Config struct {
	BaseURL   string
	ProjectID string
	// DeviceID names the default user. When empty a stable name is
	// derived from the host name.
	DeviceID string
	// Timeout applies to the default HTTP client only.
	Timeout time.Duration
}

// Validate validates the client configuration. An empty BaseURL is
// accepted here and reported as KindInvalidState on the first request.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.By(absoluteHTTPURL)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

func absoluteHTTPURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

type credentials struct {
	token  string
	userID string
}

type service struct {
	client *Client
}

// Client is a Geocore session.
//
// Token and user id are replaced as a pair by Login, SetToken and Logout.
// Those calls are expected from a single control flow; requests running
// concurrently only read the pair.
type Client struct {
	baseURL    string
	projectID  string
	deviceID   string
	httpClient *http.Client
	log        *slog.Logger

	creds atomic.Pointer[credentials]

	common service

	Objects       *ObjectService
	Binaries      *BinaryService
	Places        *PlaceService
	Events        *EventService
	Items         *ItemService
	Users         *UserService
	Relationships *RelationshipService
	Feeds         *FeedService
}

// New creates a logged-out client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Kind: KindInvalidParameter, Message: "config", Cause: err}
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		projectID:  cfg.ProjectID,
		deviceID:   cfg.DeviceID,
		httpClient: &http.Client{Timeout: timeout},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(slog.String("component", "geocore"))

	c.common.client = c
	c.Objects = (*ObjectService)(&c.common)
	c.Binaries = (*BinaryService)(&c.common)
	c.Places = (*PlaceService)(&c.common)
	c.Events = (*EventService)(&c.common)
	c.Items = (*ItemService)(&c.common)
	c.Users = (*UserService)(&c.common)
	c.Relationships = (*RelationshipService)(&c.common)
	c.Feeds = (*FeedService)(&c.common)
	return c, nil
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// ProjectID returns the configured project id.
func (c *Client) ProjectID() string { return c.projectID }

// Token returns the current access token, or "" when logged out.
func (c *Client) Token() string {
	if cr := c.creds.Load(); cr != nil {
		return cr.token
	}
	return ""
}

// UserID returns the logged-in user id, or "" when logged out.
func (c *Client) UserID() string {
	if cr := c.creds.Load(); cr != nil {
		return cr.userID
	}
	return ""
}

// LoggedIn reports whether a token is held.
func (c *Client) LoggedIn() bool { return c.creds.Load() != nil }

// SetToken resumes a session obtained earlier.
func (c *Client) SetToken(token, userID string) {
	if token == "" {
		c.Logout()
		return
	}
	c.creds.Store(&credentials{token: token, userID: userID})
}

// Logout forgets the token and user id. No request is made.
func (c *Client) Logout() {
	c.creds.Store(nil)
}

// Login authenticates userID and stores the returned token. Any existing
// session is dropped first. alt selects an alternate id index when > 0.
func (c *Client) Login(ctx context.Context, userID, password string, alt int) (string, error) {
	c.Logout()

	params := url.Values{}
	params.Set("id", userID)
	params.Set("password", password)
	params.Set("project_id", c.projectID)
	if alt > 0 {
		params.Set("alt", fmt.Sprint(alt))
	}

	res, err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/auth", Params: params})
	if err != nil {
		return "", err
	}
	token := res.Get("token").String()
	if token == "" {
		return "", errInvalidState("login succeeded without a token")
	}
	c.creds.Store(&credentials{token: token, userID: userID})
	c.log.InfoContext(ctx, "logged in", slog.String("user_id", userID))
	return token, nil
}

// LoginWithDefaultUser logs in as the device's default user, registering
// it first when the server does not know it yet.
func (c *Client) LoginWithDefaultUser(ctx context.Context) (string, error) {
	return c.LoginWithDefaultUserAsync(ctx).Get(ctx)
}

// LoginWithDefaultUserAsync is the asynchronous form of
// LoginWithDefaultUser. The login is retried at most once, and only after
// a successful registration.
func (c *Client) LoginWithDefaultUserAsync(ctx context.Context) *Future[string] {
	id, password := c.DefaultUserID(), c.DefaultPassword()
	login := func(ctx context.Context) (string, error) {
		return c.Login(ctx, id, password, 0)
	}

	first := Async(ctx, login)
	return Recover(ctx, first, func(ctx context.Context, err error) (string, error) {
		if !IsServerCode(err, CodeNotRegistered) {
			return "", err
		}
		c.log.InfoContext(ctx, "default user not registered", slog.String("user_id", id))
		if _, err := c.Users.Register(ctx, c.DefaultUser(), nil); err != nil {
			return "", err
		}
		return login(ctx)
	})
}

// DefaultName names this device. It is the configured DeviceID or a UUID
// derived from the host name, so it stays stable across runs.
func (c *Client) DefaultName() string {
	if c.deviceID != "" {
		return c.deviceID
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "DEFAULT"
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(host)).String()
}

// UserIDWithSuffix builds a user id in the project's namespace: project
// "PRO-x" yields "USE-x-<suffix>". Other project ids return suffix as is.
func (c *Client) UserIDWithSuffix(suffix string) string {
	if strings.HasPrefix(c.projectID, "PRO") {
		return "USE" + c.projectID[3:] + "-" + suffix
	}
	return suffix
}

// DefaultUserID is the id of this device's default user.
func (c *Client) DefaultUserID() string {
	return c.UserIDWithSuffix(c.DefaultName())
}

// DefaultEmail is the email registered for the default user.
func (c *Client) DefaultEmail() string {
	return c.DefaultName() + "@geocore.jp"
}

// DefaultPassword is the default user id reversed.
func (c *Client) DefaultPassword() string {
	r := []rune(c.DefaultUserID())
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// DefaultUser is the record registered by LoginWithDefaultUser.
func (c *Client) DefaultUser() *User {
	u := &User{}
	u.ID = String(c.DefaultUserID())
	u.Name = String(c.DefaultName())
	u.Email = String(c.DefaultEmail())
	u.Password = String(c.DefaultPassword())
	return u
}
