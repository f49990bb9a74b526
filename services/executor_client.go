// services/executor_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/PatGaj/SnakeCoder-sub000/utils"
)

const (
	executorHealthTTL     = 10 * time.Second
	executorHealthTimeout = 2 * time.Second
	executorExecTimeout   = 15 * time.Second
	executorTokenTTL      = 10 * time.Minute
	executorIssuer        = "snakecoder"
)

// Execution modes accepted by the sandbox.
const (
	ModeRunCode      = "runCode"
	ModeFullTest     = "fullTest"
	ModeCompleteTask = "completeTask"
)

// HealthCache is the one piece of shared mutable state in the service: a
// single healthy-until timestamp. It is owned by the ExecutorClient and
// injected per construction so tests build their own.
type HealthCache struct {
	mu            sync.Mutex
	lastHealthyAt time.Time
}

func (h *HealthCache) healthyWithin(now time.Time, ttl time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.lastHealthyAt.IsZero() && now.Sub(h.lastHealthyAt) < ttl
}

func (h *HealthCache) mark(now time.Time) {
	h.mu.Lock()
	h.lastHealthyAt = now
	h.mu.Unlock()
}

// Invalidate clears the cached timestamp so the next call probes again.
func (h *HealthCache) Invalidate() {
	h.mu.Lock()
	h.lastHealthyAt = time.Time{}
	h.mu.Unlock()
}

// ExecutorClient relays learner code to the isolated execution sandbox. It
// owns the process-wide health cache and mints a fresh signed bearer token
// per call; tokens are never reused.
type ExecutorClient struct {
	BaseURL      string
	Secret       []byte
	TaskIDPrefix string
	Client       *http.Client

	Health *HealthCache
	Now    func() time.Time
}

func NewExecutorClient(baseURL, secret, taskIDPrefix string) *ExecutorClient {
	return &ExecutorClient{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Secret:       []byte(secret),
		TaskIDPrefix: taskIDPrefix,
		Client:       &http.Client{},
		Health:       &HealthCache{},
		Now:          time.Now,
	}
}

// IsHealthy answers from the cache when the last good probe is within the
// 10s TTL; otherwise it issues a 2s-bounded GET /health. Any non-2xx or
// transport error degrades to unhealthy and clears the cache.
func (c *ExecutorClient) IsHealthy(ctx context.Context) bool {
	now := c.Now()
	if c.Health.healthyWithin(now, executorHealthTTL) {
		return true
	}

	probeCtx, cancel := context.WithTimeout(ctx, executorHealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		c.Health.Invalidate()
		return false
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		c.Health.Invalidate()
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.Health.Invalidate()
		return false
	}

	c.Health.mark(now)
	return true
}

// signToken mints the short-lived HS256 bearer credential the sandbox
// verifies: subject is the acting learner, issuer the fixed platform tag.
func (c *ExecutorClient) signToken(userID string) (string, error) {
	if len(c.Secret) == 0 {
		return "", fmt.Errorf("missing executor JWT secret")
	}

	now := c.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    executorIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(executorTokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.Secret)
}

// executorTaskID applies the configured prefix unless already present.
func (c *ExecutorClient) executorTaskID(missionID string) string {
	if c.TaskIDPrefix == "" || strings.HasPrefix(missionID, c.TaskIDPrefix) {
		return missionID
	}
	return c.TaskIDPrefix + missionID
}

// Execute posts the source to POST /api/execute under a 15s deadline. A
// transport failure invalidates the health cache and surfaces
// UpstreamUnavailable; a non-2xx response forwards the sandbox status and
// best-effort error detail. The decoded body is passed through untouched so
// mode-specific shapes ({results} vs {isTaskPassed, passedCount}) survive.
func (c *ExecutorClient) Execute(ctx context.Context, userID, missionID, source, mode string) (map[string]interface{}, error) {
	token, err := c.signToken(userID)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"source": source,
		"mode":   mode,
	}
	if mode != ModeRunCode {
		payload["task_id"] = c.executorTaskID(missionID)
	}
	body, _ := json.Marshal(payload)

	execCtx, cancel := context.WithTimeout(ctx, executorExecTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(execCtx, http.MethodPost, c.BaseURL+"/api/execute", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.Client.Do(req)
	if err != nil {
		log.Printf("⚠️ Executor unreachable: %v", err)
		c.Health.Invalidate()
		return nil, utils.ErrUpstreamUnavailable()
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var detail struct {
			Detail *string `json:"detail"`
		}
		_ = json.Unmarshal(raw, &detail)
		log.Printf("❌ Executor returned %d for mission %s", resp.StatusCode, missionID)
		return nil, utils.ErrUpstreamError(resp.StatusCode, detail.Detail)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil || data == nil {
		return nil, utils.ErrUpstreamError(http.StatusBadGateway, nil)
	}
	return data, nil
}
