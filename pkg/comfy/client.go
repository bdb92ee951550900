package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// Client talks to a single ComfyUI worker node over its HTTP API.
// The node is treated as an opaque task executor: submit a prompt,
// watch it finish, interrupt it if needed.
type Client struct {
	baseUrl    *url.URL
	httpClient *http.Client
	clientId   string
}

func NewClient(endpoint, clientId string, timeout time.Duration) (*Client, error) {
	baseUrl, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseUrl: baseUrl,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		clientId: clientId,
	}, nil
}

func (c *Client) request(ctx context.Context, req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			return fmt.Errorf("comfyui API error (status %d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return fmt.Errorf("comfyui API error (status %d): %s", resp.StatusCode, string(body))
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	endpoint := c.baseUrl.JoinPath(path).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.request(ctx, req, result)
}

func (c *Client) Post(ctx context.Context, path string, body, result interface{}) error {
	endpoint := c.baseUrl.JoinPath(path).String()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.request(ctx, req, result)
}

// SystemStats mirrors GET /system_stats.
type SystemStats struct {
	System struct {
		OS             string `json:"os"`
		ComfyUIVersion string `json:"comfyui_version"`
	} `json:"system"`
	Devices []DeviceStats `json:"devices"`
}

type DeviceStats struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	VramTotal int64  `json:"vram_total"`
	VramFree  int64  `json:"vram_free"`
}

func (c *Client) GetSystemStats(ctx context.Context) (*SystemStats, error) {
	var stats SystemStats
	if err := c.Get(ctx, "/system_stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// QueueState mirrors GET /queue. Entries are opaque tuples; only the
// counts matter to the pool.
type QueueState struct {
	QueueRunning []json.RawMessage `json:"queue_running"`
	QueuePending []json.RawMessage `json:"queue_pending"`
}

func (c *Client) GetQueue(ctx context.Context) (*QueueState, error) {
	var state QueueState
	if err := c.Get(ctx, "/queue", &state); err != nil {
		return nil, err
	}
	return &state, nil
}

type PromptResult struct {
	PromptId   string                 `json:"prompt_id"`
	Number     int                    `json:"number"`
	NodeErrors map[string]interface{} `json:"node_errors"`
}

// SubmitPrompt queues a workflow on the worker. POST /prompt
func (c *Client) SubmitPrompt(ctx context.Context, workflow json.RawMessage) (*PromptResult, error) {
	payload := map[string]interface{}{
		"prompt":    workflow,
		"client_id": c.clientId,
	}
	var result PromptResult
	if err := c.Post(ctx, "/prompt", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Interrupt halts the currently executing prompt. POST /interrupt
// The worker acknowledges by finishing its current step, so a few
// seconds of overrun are expected.
func (c *Client) Interrupt(ctx context.Context) error {
	return c.Post(ctx, "/interrupt", nil, nil)
}

type ExecutionEvent struct {
	Type string `json:"type"`
	Data struct {
		PromptId string  `json:"prompt_id"`
		Node     *string `json:"node"`
		Value    int     `json:"value"`
		Max      int     `json:"max"`
	} `json:"data"`
}

// WatchExecution subscribes to the worker's /ws progress stream and
// blocks until the given prompt finishes or ctx is canceled. ComfyUI
// signals completion with an "executing" event whose node is null.
func (c *Client) WatchExecution(ctx context.Context, promptId string) error {
	wsUrl := *c.baseUrl
	switch wsUrl.Scheme {
	case "https":
		wsUrl.Scheme = "wss"
	default:
		wsUrl.Scheme = "ws"
	}
	wsUrl.Path = "/ws"
	wsUrl.RawQuery = url.Values{"clientId": []string{c.clientId}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsUrl.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan error, 1)
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				done <- err
				return
			}
			var event ExecutionEvent
			if err := json.Unmarshal(msg, &event); err != nil {
				continue // binary preview frames are not JSON
			}
			if event.Type == "executing" && event.Data.PromptId == promptId && event.Data.Node == nil {
				done <- nil
				return
			}
		}
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return ctx.Err()
	}
}
