package sonarqube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	srvErrors "github.com/lequal/sonarqube-verify/pkg/errors"
)

const defaultTimeout = 30 * time.Second

// Client is a read-only client of the SonarQube web API authenticated with basic auth.
type Client struct {
	baseURL    string
	login      string
	password   string
	httpClient *http.Client
}

// DefaultClient creates a Client with a default HTTP client.
func DefaultClient(baseURL, login, password string) *Client {
	return NewClient(baseURL, login, password, &http.Client{Timeout: defaultTimeout})
}

// NewClient creates a Client with a custom HTTP client, useful for test customization.
func NewClient(baseURL, login, password string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		login:      login,
		password:   password,
		httpClient: httpClient,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// get sends an authenticated GET request and decodes the JSON body into result.
func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.login, c.password)
	req.Header.Set("Accept", "application/json")

	zap.S().Named("sonarqube").Debugw("request", "method", req.Method, "url", req.URL.String())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return srvErrors.NewUnexpectedStatusError(path, resp.StatusCode, http.StatusOK)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response of %s: %w", path, err)
	}
	return nil
}

// Status retrieves the server status. It is "UP" once the server is operational.
func (c *Client) Status(ctx context.Context) (*SystemStatus, error) {
	var status SystemStatus
	if err := c.get(ctx, systemStatusPath, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// InstalledPlugins lists the plugins installed on the server.
func (c *Client) InstalledPlugins(ctx context.Context) ([]Plugin, error) {
	var list pluginList
	if err := c.get(ctx, pluginsPath, &list); err != nil {
		return nil, err
	}
	return list.Plugins, nil
}

// QualityGates lists the quality gates with their default flag.
func (c *Client) QualityGates(ctx context.Context) ([]QualityGate, error) {
	var list qualityGateList
	if err := c.get(ctx, qualityGatesPath, &list); err != nil {
		return nil, err
	}
	return list.QualityGates, nil
}

// QualityProfiles lists the quality profiles of every language.
func (c *Client) QualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	var list qualityProfileList
	if err := c.get(ctx, qualityProfilesPath, &list); err != nil {
		return nil, err
	}
	return list.Profiles, nil
}

// Login tries to open a session with the given credentials and returns the
// HTTP status code. The pair is sent both as basic auth and as form values.
func (c *Client) Login(ctx context.Context, login, password string) (int, error) {
	form := url.Values{}
	form.Set("login", login)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+LoginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(login, password)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
