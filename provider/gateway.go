// ABOUTME: WhatsApp provider configuration and pairing gateway
// ABOUTME: Talks to the configured provider over HTTP with bearer auth and falls back to simulated pairing
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/harperreed/leadpipe/crm"
	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/notify"
	"github.com/harperreed/leadpipe/schedule"
)

var (
	ErrNotAdmin        = errors.New("only admins can configure the provider")
	ErrAPIURLRequired  = errors.New("API URL is required")
	ErrUnknownProvider = errors.New("unknown provider")
)

const placeholderQR = "https://api.qrserver.com/v1/create-qr-code/?size=200x200&data=mockWhatsAppConnection"

// Test outcomes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// TestResult describes a connection test.
type TestResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (r TestResult) OK() bool { return r.Status == StatusSuccess }

type Options struct {
	Repo         *crm.Repository
	Scheduler    *schedule.Scheduler
	Notifier     notify.Notifier
	Logger       *logrus.Logger
	HTTPClient   *http.Client
	RPS          float64
	ConnectDelay time.Duration
}

// Gateway manages the provider configuration and user pairing.
type Gateway struct {
	repo         *crm.Repository
	sched        *schedule.Scheduler
	notifier     notify.Notifier
	log          *logrus.Entry
	base         *http.Client
	limiter      *rate.Limiter
	connectDelay time.Duration
}

func New(opts Options) *Gateway {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLogNotifier(opts.Logger)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.RPS <= 0 {
		opts.RPS = 5
	}
	return &Gateway{
		repo:         opts.Repo,
		sched:        opts.Scheduler,
		notifier:     opts.Notifier,
		log:          opts.Logger.WithField("component", "provider"),
		base:         opts.HTTPClient,
		limiter:      rate.NewLimiter(rate.Limit(opts.RPS), 1),
		connectDelay: opts.ConnectDelay,
	}
}

// Config returns the stored configuration, or nil.
func (g *Gateway) Config() *models.ProviderConfig {
	return g.repo.ProviderConfig()
}

// UpdateConfig replaces the provider configuration. Only admins may do this.
func (g *Gateway) UpdateConfig(actor *models.User, cfg models.ProviderConfig) (models.ProviderConfig, error) {
	if !actor.IsAdmin() {
		g.notifyError("You don't have permission to configure WhatsApp")
		return models.ProviderConfig{}, ErrNotAdmin
	}
	cfg.APIURL = strings.TrimSpace(cfg.APIURL)
	if cfg.APIURL == "" {
		g.notifyError("API URL is required")
		return models.ProviderConfig{}, ErrAPIURLRequired
	}
	if cfg.Provider == "" {
		cfg.Provider = models.DefaultMessageProvider
	}
	if !models.ValidProvider(cfg.Provider) {
		g.notifyError("Failed to save configuration")
		return models.ProviderConfig{}, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
	cfg.LastUpdated = g.sched.Now().UTC()

	g.repo.SetProviderConfig(cfg)
	g.log.WithFields(logrus.Fields{"provider": cfg.Provider, "enabled": cfg.Enabled}).Info("provider configuration updated")
	return cfg, nil
}

// Connect starts pairing a user with WhatsApp and returns the QR code to scan.
// The user is marked connected after the connect delay unless the configured
// provider fails, in which case a placeholder QR is returned and nothing changes.
func (g *Gateway) Connect(ctx context.Context, userID string) (string, error) {
	if _, err := g.repo.User(userID); err != nil {
		g.notifyError("User not found")
		return "", err
	}

	cfg := g.repo.ProviderConfig()
	if !cfg.Active() {
		g.scheduleConnect(userID)
		return g.placeholder(), nil
	}

	var out struct {
		QRCode string `json:"qrCode"`
	}
	err := g.do(ctx, cfg.APIURL, cfg.APIKey, http.MethodGet, "/qr", nil, &out)
	if err == nil && out.QRCode == "" {
		err = errors.New("provider returned no QR code")
	}
	if err != nil {
		g.log.WithError(err).WithField("user_id", userID).Warn("failed to fetch QR code")
		g.notifyError("Failed to generate QR code")
		return g.placeholder(), nil
	}

	g.scheduleConnect(userID)
	return out.QRCode, nil
}

func (g *Gateway) scheduleConnect(userID string) {
	g.sched.After("whatsapp-connect", g.connectDelay, func() {
		if err := g.repo.SetWhatsappConnected(userID, true); err != nil {
			g.log.WithError(err).WithField("user_id", userID).Warn("connect not applied")
		}
	})
}

// Disconnect logs the user out at the provider when one is configured, then
// clears the connection flag regardless of the provider's answer.
func (g *Gateway) Disconnect(ctx context.Context, userID string) error {
	if _, err := g.repo.User(userID); err != nil {
		g.notifyError("User not found")
		return err
	}

	if cfg := g.repo.ProviderConfig(); cfg.Active() {
		body := map[string]string{"userId": userID}
		if err := g.do(ctx, cfg.APIURL, cfg.APIKey, http.MethodPost, "/logout", body, nil); err != nil {
			g.log.WithError(err).WithField("user_id", userID).Warn("provider logout failed")
		}
	}

	return g.repo.SetWhatsappConnected(userID, false)
}

// TestConnection checks that apiURL answers GET /status with success true.
// Failures are reported in the result, never as an error.
func (g *Gateway) TestConnection(ctx context.Context, apiURL, apiKey string) TestResult {
	if strings.TrimSpace(apiURL) == "" {
		g.notifyError("API URL is required")
		return TestResult{Status: StatusError, Message: ErrAPIURLRequired.Error()}
	}

	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := g.do(ctx, apiURL, apiKey, http.MethodGet, "/status", nil, &out); err != nil {
		g.log.WithError(err).Warn("connection test failed")
		g.notifyError("Connection test failed")
		return TestResult{Status: StatusError, Message: "Connection failed: " + err.Error()}
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "Unknown error"
		}
		g.notifyError("Connection test failed")
		return TestResult{Status: StatusError, Message: "API returned error: " + msg}
	}

	g.notifier.Notify(notify.Notification{Level: notify.Success, Message: "WhatsApp API connection test successful"})
	return TestResult{Status: StatusSuccess, Message: "Connection successful! API is responding correctly."}
}

// httpClient returns a client that sends the key as a bearer token. An empty
// key uses the base client and do sets the bare header itself.
func (g *Gateway) httpClient(ctx context.Context, apiKey string) *http.Client {
	if apiKey == "" {
		return g.base
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.base)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"}))
}

func (g *Gateway) do(ctx context.Context, apiURL, apiKey, method, path string, body, out any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(apiURL, "/")+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey == "" {
		// Providers expect the header even when no key is configured.
		req.Header.Set("Authorization", "Bearer ")
	}

	resp, err := g.httpClient(ctx, apiKey).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("API returned status: %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}

func (g *Gateway) placeholder() string {
	return fmt.Sprintf("%s%d", placeholderQR, g.sched.Now().UnixMilli())
}

func (g *Gateway) notifyError(msg string) {
	g.notifier.Notify(notify.Notification{Level: notify.Error, Message: msg})
}
