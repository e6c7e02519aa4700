/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in anonymous usage events and crash reports.
// Nothing is sent unless the user opted in and an endpoint is configured.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	applog "multicanvas/internal/log"
	"multicanvas/internal/version"
)

// Event names. Properties must never carry paths, project names or other
// user content.
const (
	EventWorkspaceSaved  = "workspace_saved"
	EventWorkspaceLoaded = "workspace_loaded"
	EventProjectSwitched = "project_switched"
	EventCommand         = "command"
)

// Environment keys read by FromEnv.
const (
	EnvOptIn     = "MPC_TELEMETRY_OPT_IN"
	EnvURL       = "MPC_TELEMETRY_URL"
	EnvCrashURL  = "MPC_CRASH_UPLOAD_URL"
	EnvTimeoutMS = "MPC_TELEMETRY_TIMEOUT_MS"
	EnvDebug     = "MPC_TELEMETRY_DEBUG"
)

// Config holds telemetry endpoints and the opt-in decision.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

// FromEnv reads Config from MPC_TELEMETRY_* variables. Timeout defaults to
// 1500ms.
func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv(EnvOptIn)),
		EventsURL:    strings.TrimSpace(os.Getenv(EnvURL)),
		CrashURL:     strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv(EnvDebug) != "",
	}
	if ms := strings.TrimSpace(os.Getenv(EnvTimeoutMS)); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil && v > 0 {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Client queues events and posts them from one background goroutine.
// Events are dropped when the queue is full or a post fails.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	session string
	q       chan map[string]any
	pending sync.WaitGroup
	// mu orders Event against Close so nothing is queued after loop drained.
	mu     sync.Mutex
	once   sync.Once
	closed chan struct{}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the process-wide client, creating it from the
// environment on first use.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault replaces the process-wide client and closes the previous one.
func SetDefault(c *Client) {
	defaultMu.Lock()
	prev := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	if prev != nil && prev != c {
		prev.Close()
	}
}

// New starts a client.
func New(cfg Config) *Client {
	c := &Client{
		cfg:     cfg,
		log:     applog.WithComponent("telemetry"),
		cli:     &http.Client{Timeout: cfg.Timeout},
		session: uuid.NewString(),
		q:       make(chan map[string]any, 64),
		closed:  make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events are sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a named event. It never blocks.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"session": c.session,
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		if _, reserved := payload[k]; !reserved {
			payload[k] = v
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
		return
	default:
	}
	c.pending.Add(1)
	select {
	case c.q <- payload:
	default:
		c.pending.Done()
	}
}

// Flush waits until queued events were posted or ctx ends.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan struct{})
	go func() {
		c.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Close stops the background goroutine. Queued events are dropped.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.once.Do(func() { close(c.closed) })
}

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			for {
				select {
				case <-c.q:
					c.pending.Done()
				default:
					return
				}
			}
		case item := <-c.q:
			c.send(item)
			c.pending.Done()
		}
	}
}

func (c *Client) send(item map[string]any) {
	buf, err := json.Marshal(item)
	if err != nil {
		return
	}
	if err := c.post(context.Background(), c.cfg.EventsURL, "application/json", buf); err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.Any("err", err))
		}
		return
	}
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry event sent", slog.Any("name", item["name"]))
	}
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telemetry endpoint answered %s", resp.Status)
	}
	return nil
}

// UploadCrash posts a crash report and waits for the answer, so it can be
// used right before the process exits. It does nothing without opt-in or a
// crash endpoint.
func (c *Client) UploadCrash(ctx context.Context, report []byte) error {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return nil
	}
	if err := c.post(ctx, c.cfg.CrashURL, "text/plain; charset=utf-8", report); err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("crash upload failed", slog.Any("err", err))
		}
		return err
	}
	return nil
}
