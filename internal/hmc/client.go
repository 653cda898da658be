// Package hmc implements the console collaborators on top of the HMC Web
// Services API and its STOMP notification service.
package hmc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/console"
)

const sessionHeader = "X-API-Session"

// Client is a console.Session over the Web Services API
type Client struct {
	config     Config
	httpClient *http.Client
	baseURL    *url.URL
	logger     *slog.Logger

	mu        sync.RWMutex
	sessionID string
}

// NewClient creates a client for the HMC in config. No request is made
// until Logon is called.
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid HMC config: %w", err)
	}
	config.SetDefaults()

	baseURL, err := url.Parse(config.URL())
	if err != nil {
		return nil, fmt.Errorf("invalid HMC URL: %w", err)
	}

	tlsConfig, err := config.TLSConfig()
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: config.ConnectTimeout}).DialContext,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   config.ConnectTimeout,
		ResponseHeaderTimeout: config.ReadTimeout,
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Transport: transport},
		baseURL:    baseURL,
		logger:     config.Logger,
	}, nil
}

// Logon opens a session with the HMC
func (c *Client) Logon(ctx context.Context) error {
	c.logger.Debug("sending logon request",
		"host", c.config.Host, "userid", c.config.UserID, "verify_cert", c.config.VerifyCert)

	var resp logonResponse
	req := logonRequest{UserID: c.config.UserID, Password: c.config.Password}
	if err := c.doRequest(ctx, http.MethodPost, "/api/sessions", req, &resp, false); err != nil {
		return fmt.Errorf("logon failed: %w", err)
	}
	if resp.SessionID == "" {
		return fmt.Errorf("logon failed: no session ID in response")
	}

	c.mu.Lock()
	c.sessionID = resp.SessionID
	c.mu.Unlock()

	c.logger.Debug("session opened", "api_version", fmt.Sprintf("%d.%d", resp.APIMajorVersion, resp.APIMinorVersion))
	return nil
}

// ListComplexes implements console.Session
func (c *Client) ListComplexes(ctx context.Context) ([]console.Complex, error) {
	var list cpcListResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/cpcs", nil, &list, true); err != nil {
		return nil, fmt.Errorf("failed to list CPCs: %w", err)
	}

	complexes := make([]console.Complex, 0, len(list.CPCs))
	for _, cpc := range list.CPCs {
		var props cpcProperties
		path := cpc.URI + "?properties=name,dpm-enabled"
		if err := c.doRequest(ctx, http.MethodGet, path, nil, &props, true); err != nil {
			return nil, fmt.Errorf("failed to get properties of CPC %s: %w", cpc.Name, err)
		}
		complexes = append(complexes, console.Complex{URI: cpc.URI, Name: cpc.Name, DPMEnabled: props.DPMEnabled})
	}
	return complexes, nil
}

// ListPartitions implements console.Session
func (c *Client) ListPartitions(ctx context.Context, cpc console.Complex) ([]console.Partition, error) {
	var objects []objectInfo
	if cpc.DPMEnabled {
		var list partitionListResponse
		if err := c.doRequest(ctx, http.MethodGet, cpc.URI+"/partitions", nil, &list, true); err != nil {
			return nil, fmt.Errorf("failed to list partitions of CPC %s: %w", cpc.Name, err)
		}
		objects = list.Partitions
	} else {
		var list lparListResponse
		if err := c.doRequest(ctx, http.MethodGet, cpc.URI+"/logical-partitions", nil, &list, true); err != nil {
			return nil, fmt.Errorf("failed to list LPARs of CPC %s: %w", cpc.Name, err)
		}
		objects = list.LogicalPartitions
	}

	partitions := make([]console.Partition, 0, len(objects))
	for _, o := range objects {
		partitions = append(partitions, console.Partition{
			URI:         o.URI,
			Name:        o.Name,
			ComplexName: cpc.Name,
			ComplexURI:  cpc.URI,
		})
	}
	return partitions, nil
}

// OpenMessageChannel implements console.Session.
// HTTP 409 reason 331 reuses the session's existing topic for the
// partition, HTTP 409 reason 332 reports Unsupported.
func (c *Client) OpenMessageChannel(ctx context.Context, p console.Partition) (console.OpenResult, error) {
	var resp openChannelResponse
	err := c.doRequest(ctx, http.MethodPost, p.URI+"/operations/open-os-message-channel",
		openChannelRequest{IncludeRefreshMessages: true}, &resp, true)
	switch {
	case err == nil:
		return console.OpenResult{Status: console.Opened, Topic: resp.TopicName}, nil
	case IsStatus(err, http.StatusConflict, ReasonChannelAlreadyOpen):
		topic, err := c.existingTopic(ctx, p)
		if err != nil {
			return console.OpenResult{}, err
		}
		return console.OpenResult{Status: console.AlreadyOpen, Topic: topic}, nil
	case IsStatus(err, http.StatusConflict, ReasonOSMessagesUnsupported):
		return console.OpenResult{Status: console.Unsupported}, nil
	default:
		return console.OpenResult{}, fmt.Errorf("failed to open OS message channel: %w", err)
	}
}

// existingTopic finds the OS message topic of p among the session's topics
func (c *Client) existingTopic(ctx context.Context, p console.Partition) (string, error) {
	var resp topicsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/sessions/operations/get-notification-topics", nil, &resp, true); err != nil {
		return "", fmt.Errorf("failed to get notification topics: %w", err)
	}

	names := make([]string, 0, len(resp.Topics))
	for _, t := range resp.Topics {
		names = append(names, t.TopicName)
		if t.TopicType == topicTypeOSMessage && t.ObjectURI == p.URI {
			c.logger.Debug("using existing OS message notification topic",
				"topic", t.TopicName, "partition", p.Name, "cpc", p.ComplexName)
			return t.TopicName, nil
		}
	}
	return "", fmt.Errorf("an OS message notification topic for partition %s on CPC %s supposedly exists, "+
		"but cannot be found in the existing topics for this session: %s",
		p.Name, p.ComplexName, strings.Join(names, ", "))
}

// Logoff implements console.Session. A 403 means the HMC already discarded
// the session and is not an error.
func (c *Client) Logoff(ctx context.Context) error {
	c.mu.RLock()
	loggedOn := c.sessionID != ""
	c.mu.RUnlock()
	if !loggedOn {
		return nil
	}

	err := c.doRequest(ctx, http.MethodDelete, "/api/sessions/this-session", nil, nil, true)
	c.mu.Lock()
	c.sessionID = ""
	c.mu.Unlock()

	if err != nil && !isSessionGone(err) {
		return fmt.Errorf("logoff failed: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request with optional session authentication
func (c *Client) doRequest(ctx context.Context, method, path string, reqBody interface{}, respBody interface{}, requireSession bool) error {
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	fullURL := c.baseURL.ResolveReference(ref)

	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requireSession {
		c.mu.RLock()
		sessionID := c.sessionID
		c.mu.RUnlock()
		if sessionID == "" {
			return fmt.Errorf("no HMC session - call Logon() first")
		}
		req.Header.Set(sessionHeader, sessionID)
	}

	c.logger.Debug("HMC request", "method", method, "uri", ref.Path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		httpErr := &HTTPError{Method: method, URI: ref.Path, Status: resp.StatusCode, Message: string(bodyBytes)}
		var errResp errorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err == nil {
			httpErr.Reason = errResp.Reason
			httpErr.Message = errResp.Message
		}
		c.logger.Debug("HMC error response", "method", method, "uri", ref.Path, "status", httpErr.Status, "reason", httpErr.Reason)
		return httpErr
	}

	if respBody != nil && len(bodyBytes) > 0 {
		if err := json.Unmarshal(bodyBytes, respBody); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// Verify that Client implements the Session interface at compile time
var _ console.Session = (*Client)(nil)
