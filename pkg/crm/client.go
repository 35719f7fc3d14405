// Package crm talks to the system of record that owns filing cases.
package crm

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/flagext"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	util_http "github.com/ValerySidorin/einfiler/pkg/util/http"
)

const (
	StatusCompleted = "Completed"
	StatusFailed    = "Failed"

	documentsPath = "/services/apexrest/filings/documents"
	statusPath    = "/services/apexrest/filings/%s/status"
)

type Config struct {
	BaseURL      string         `yaml:"base_url"`
	TokenURL     string         `yaml:"token_url"`
	ClientID     string         `yaml:"client_id"`
	ClientSecret flagext.Secret `yaml:"client_secret"`
	Scopes       string         `yaml:"scopes"`
	Timeout      time.Duration  `yaml:"timeout"`
	RetryMax     int            `yaml:"retry_max"`
	RetryWaitMin time.Duration  `yaml:"retry_wait_min"`
	RetryWaitMax time.Duration  `yaml:"retry_wait_max"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.BaseURL, flagPrefix+"base-url", "", "Base URL of the CRM instance.")
	f.StringVar(&c.TokenURL, flagPrefix+"token-url", "", "OAuth2 token endpoint.")
	f.StringVar(&c.ClientID, flagPrefix+"client-id", "", "OAuth2 client id.")
	f.Var(&c.ClientSecret, flagPrefix+"client-secret", "OAuth2 client secret.")
	f.StringVar(&c.Scopes, flagPrefix+"scopes", "", "Comma separated OAuth2 scopes.")
	f.DurationVar(&c.Timeout, flagPrefix+"timeout", 30*time.Second, "Timeout of a single CRM request.")
	f.IntVar(&c.RetryMax, flagPrefix+"retry-max", 3, "Retries of a failed CRM request.")
	f.DurationVar(&c.RetryWaitMin, flagPrefix+"retry-wait-min", time.Second, "Minimum wait between CRM retries.")
	f.DurationVar(&c.RetryWaitMax, flagPrefix+"retry-wait-max", 10*time.Second, "Maximum wait between CRM retries.")
}

// Client is safe for concurrent use. Tokens are reused until they expire.
type Client struct {
	cfg        Config
	httpClient *retryablehttp.Client
	tokens     oauth2.TokenSource
	log        log.Logger
}

func NewClient(cfg Config, logger log.Logger) *Client {
	c := retryablehttp.NewClient()
	c.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		c.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		c.RetryWaitMax = cfg.RetryWaitMax
	}
	if cfg.Timeout > 0 {
		c.HTTPClient.Timeout = cfg.Timeout
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret.String(),
		TokenURL:     cfg.TokenURL,
		Scopes:       splitScopes(cfg.Scopes),
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: c.HTTPClient.Timeout})

	return &Client{
		cfg:        cfg,
		httpClient: c,
		tokens:     oauth2.ReuseTokenSource(nil, cc.TokenSource(tokenCtx)),
		log:        log.With(logger, "component", "crm"),
	}
}

func splitScopes(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Authenticate returns a valid access token, fetching a new one only when the
// cached token has expired.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (c *Client) token(ctx context.Context) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "authenticate")
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, errors.Wrap(err, "authenticate")
	}
	return tok, nil
}

type milestoneRequest struct {
	RecordID string `json:"record_id"`
	URL      string `json:"url"`
	FileName string `json:"file_name"`
	DocType  string `json:"doc_type"`
	Hidden   bool   `json:"hidden"`
}

// NotifyMilestone attaches a stored document to the case.
func (c *Client) NotifyMilestone(ctx context.Context, recordID, docURL, fileName, docType string, hidden bool) error {
	err := c.send(ctx, http.MethodPost, documentsPath, milestoneRequest{
		RecordID: recordID,
		URL:      docURL,
		FileName: fileName,
		DocType:  docType,
		Hidden:   hidden,
	})
	return errors.Wrap(err, "notify milestone")
}

type statusRequest struct {
	Status     string `json:"status"`
	Identifier string `json:"identifier,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
}

// UpdateStatus records the terminal status of the case.
func (c *Client) UpdateStatus(ctx context.Context, recordID, status, identifier, errorCode string) error {
	path := strings.Replace(statusPath, "%s", url.PathEscape(recordID), 1)
	err := c.send(ctx, http.MethodPatch, path, statusRequest{
		Status:     status,
		Identifier: identifier,
		ErrorCode:  errorCode,
	})
	return errors.Wrap(err, "update status")
}

func (c *Client) send(ctx context.Context, method, path string, body any) error {
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}

	req, err := retryablehttp.NewRequest(method, strings.TrimRight(c.cfg.BaseURL, "/")+path, payload)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(req.Request)

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := util_http.EnsureSuccessStatusCode(resp); err != nil {
		return err
	}

	level.Debug(c.log).Log("msg", "crm request done", "method", method, "path", path, "status", resp.StatusCode)
	return nil
}
