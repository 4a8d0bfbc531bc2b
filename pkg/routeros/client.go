// Package routeros talks to a MikroTik RouterOS device over its REST API.
// The client owns queue and firewall block-list writes for the subscriber
// registry; everything it sends passes through pkg/sanitize first.
package routeros

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cuzonet/cuzonet-backend/pkg/config"
	pkgerrors "github.com/cuzonet/cuzonet-backend/pkg/errors"
	"github.com/cuzonet/cuzonet-backend/pkg/logger"
	"github.com/cuzonet/cuzonet-backend/pkg/metrics"
	"github.com/cuzonet/cuzonet-backend/pkg/sanitize"
)

var (
	errDeviceNotConfigured = errors.New("device host is not configured")
	errLoggerRequired      = errors.New("device logger is required")
)

// Client exposes RouterOS primitives with centralized auth, timeouts, logging,
// metrics and error mapping.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	username     string
	password     string
	blockList    string
	probeTimeout time.Duration
	writeTimeout time.Duration
	logger       *logger.Logger
	metrics      *metrics.DeviceMetrics
}

// NewClient initializes the RouterOS wrapper from the device configuration.
func NewClient(cfg config.DeviceConfig, logg *logger.Logger, m *metrics.DeviceMetrics) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if !cfg.Enabled() {
		return nil, errDeviceNotConfigured
	}

	transport := http.DefaultTransport
	if cfg.UseTLS && cfg.SkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 15 * time.Second
	}

	return &Client{
		httpClient:   &http.Client{Transport: transport},
		baseURL:      cfg.BaseURL(),
		username:     cfg.Username,
		password:     cfg.Password,
		blockList:    cfg.BlockList,
		probeTimeout: cfg.ProbeTimeout,
		writeTimeout: cfg.WriteTimeout,
		logger:       logg,
		metrics:      m,
	}, nil
}

// BlockList returns the configured firewall address-list name.
func (c *Client) BlockList() string {
	if c == nil {
		return ""
	}
	return c.blockList
}

// TestConnectivity probes the device identity endpoint and returns the
// device's reported name.
func (c *Client) TestConnectivity(ctx context.Context) (string, error) {
	var identity Identity
	_, err := c.do(ctx, "probe", http.MethodGet, "/system/identity", nil, nil, c.probeTimeout, &identity)
	if err != nil {
		return "", err
	}
	if identity.Name == "" {
		identity.Name = "MikroTik"
	}
	return identity.Name, nil
}

// CreateQueue creates a simple queue and returns the device-assigned id.
func (c *Client) CreateQueue(ctx context.Context, params QueueCreateParams) (string, error) {
	payload, err := params.toPayload()
	if err != nil {
		return "", err
	}

	var created Queue
	_, err = c.do(ctx, "create_queue", http.MethodPut, "/queue/simple", nil, payload, c.writeTimeout, &created)
	if err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDeviceRejected, "device did not return a queue id")
	}
	return created.ID, nil
}

// UpdateQueue patches only the supplied fields of an existing queue.
func (c *Client) UpdateQueue(ctx context.Context, queueID string, update QueueUpdate) error {
	if strings.TrimSpace(queueID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "queue id is required")
	}
	payload, err := update.toPayload()
	if err != nil {
		return err
	}
	_, err = c.do(ctx, "update_queue", http.MethodPatch, "/queue/simple/"+url.PathEscape(queueID), nil, payload, c.writeTimeout, nil)
	return err
}

// SetQueueEnabled toggles the queue's disabled flag.
func (c *Client) SetQueueEnabled(ctx context.Context, queueID string, enabled bool) error {
	return c.UpdateQueue(ctx, queueID, QueueUpdate{Disabled: Bool(!enabled)})
}

// DeleteQueue removes a queue. A queue already gone on the device counts as
// success.
func (c *Client) DeleteQueue(ctx context.Context, queueID string) error {
	if strings.TrimSpace(queueID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "queue id is required")
	}
	status, err := c.do(ctx, "delete_queue", http.MethodDelete, "/queue/simple/"+url.PathEscape(queueID), nil, nil, c.writeTimeout, nil)
	if err != nil && status == http.StatusNotFound {
		return nil
	}
	return err
}

// ListQueues fetches every simple queue on the device.
func (c *Client) ListQueues(ctx context.Context) ([]Queue, error) {
	var queues []Queue
	_, err := c.do(ctx, "list_queues", http.MethodGet, "/queue/simple", nil, nil, c.writeTimeout, &queues)
	if err != nil {
		return nil, err
	}
	return queues, nil
}

// AddToBlockList inserts the address into the configured block list and
// returns the device-assigned entry id.
func (c *Client) AddToBlockList(ctx context.Context, address, comment string) (string, error) {
	if strings.TrimSpace(address) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}
	payload := map[string]string{
		"list":    c.blockList,
		"address": strings.TrimSpace(address),
		"comment": sanitize.Text(comment),
	}

	var created AddressListEntry
	_, err := c.do(ctx, "add_block_list", http.MethodPut, "/ip/firewall/address-list", nil, payload, c.writeTimeout, &created)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// RemoveFromBlockList deletes the address's entry from the configured block
// list. An address with no entry counts as success.
func (c *Client) RemoveFromBlockList(ctx context.Context, address string) error {
	if strings.TrimSpace(address) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}

	query := url.Values{}
	query.Set("list", c.blockList)
	query.Set("address", strings.TrimSpace(address))

	var entries []AddressListEntry
	_, err := c.do(ctx, "find_block_list", http.MethodGet, "/ip/firewall/address-list", query, nil, c.writeTimeout, &entries)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.Address != strings.TrimSpace(address) || entry.List != c.blockList {
			continue
		}
		if _, err := c.do(ctx, "remove_block_list", http.MethodDelete, "/ip/firewall/address-list/"+url.PathEscape(entry.ID), nil, nil, c.writeTimeout, nil); err != nil {
			return err
		}
	}
	return nil
}

// ListBlockList fetches every entry of the configured block list.
func (c *Client) ListBlockList(ctx context.Context) ([]AddressListEntry, error) {
	query := url.Values{}
	query.Set("list", c.blockList)

	var entries []AddressListEntry
	_, err := c.do(ctx, "list_block_list", http.MethodGet, "/ip/firewall/address-list", query, nil, c.writeTimeout, &entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// do performs one REST call and decodes the response into out when provided.
// It returns the HTTP status so callers can special-case not-found deletes.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any, timeout time.Duration, out any) (int, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding device payload")
		}
		reqBody = bytes.NewReader(encoded)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, endpoint, reqBody)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building device request")
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log(ctx, "request", op, map[string]any{"method": method, "path": path})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveDuration(op, time.Since(start))
	if err != nil {
		c.metrics.IncFailure(op)
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return 0, pkgerrors.Wrap(pkgerrors.CodeDeviceUnreachable, err, "device unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.IncFailure(op)
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return resp.StatusCode, pkgerrors.Wrap(pkgerrors.CodeDeviceUnreachable, err, "reading device response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.IncFailure(op)
		c.log(ctx, "error", op, map[string]any{"status": resp.StatusCode, "body": truncate(string(raw))})
		return resp.StatusCode, pkgerrors.New(pkgerrors.CodeDeviceRejected, fmt.Sprintf("device rejected %s", op)).
			WithDetails(map[string]any{"status": resp.StatusCode, "body": truncate(string(raw))})
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			c.metrics.IncFailure(op)
			return resp.StatusCode, pkgerrors.Wrap(pkgerrors.CodeDeviceRejected, err, "decoding device response")
		}
	}

	c.metrics.IncSuccess(op)
	c.log(ctx, "response", op, map[string]any{"status": resp.StatusCode})
	return resp.StatusCode, nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	ctx = c.logger.WithDeviceOp(ctx, op)
	logFields := map[string]any{
		"phase": phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Warn(ctx, fmt.Sprintf("device %s failed", op))
	default:
		c.logger.Info(ctx, fmt.Sprintf("device %s", phase))
	}
}

func truncate(s string) string {
	const max = 512
	if len(s) <= max {
		return s
	}
	return s[:max]
}
