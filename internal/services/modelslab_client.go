package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ModelsLabClient ходит в ModelsLab API (image/video/ASMR генерация).
// Payload от клиента прозрачно пробрасывается дальше, добавляется
// только API-ключ.
type ModelsLabClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

func NewModelsLabClient(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) *ModelsLabClient {
	return &ModelsLabClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// Generate вызывает endpoint (например "/realtime/text2img") с телом
// запроса клиента. ModelsLab принимает ключ внутри JSON-тела.
func (c *ModelsLabClient) Generate(ctx context.Context, endpoint string, payload map[string]any) (json.RawMessage, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["key"] = c.apiKey

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("modelslab unavailable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("modelslab error response", zap.Int("status", resp.StatusCode), zap.String("endpoint", endpoint))
		return nil, fmt.Errorf("modelslab returned %d", resp.StatusCode)
	}
	return raw, nil
}
