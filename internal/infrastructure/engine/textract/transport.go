package textract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rodaquino-OMNI/onboarding-ocr/internal/core/domain"
)

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("textract analyze request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return providerErrorFromResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode analyze response: %w", err)
	}
	return nil
}

type providerErrorBody struct {
	Type    string `json:"__type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func providerErrorFromResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body providerErrorBody
	_ = json.Unmarshal(raw, &body)

	code := body.Code
	if code == "" {
		code = normalizeTypeCode(body.Type)
	}
	if code == "" {
		code = fallbackCodeForStatus(resp.StatusCode)
	}

	message := strings.TrimSpace(body.Message)
	if message == "" {
		message = resp.Status
	}

	return &domain.ProviderError{
		Engine:  domain.EngineCloud,
		Code:    code,
		Message: message,
	}
}

// normalizeTypeCode strips the namespace prefix some providers put in front
// of the exception name ("com.provider#ThrottlingException").
func normalizeTypeCode(typ string) string {
	if idx := strings.LastIndex(typ, "#"); idx >= 0 {
		return typ[idx+1:]
	}
	return typ
}

func fallbackCodeForStatus(status int) string {
	switch status {
	case http.StatusTooManyRequests:
		return "ThrottlingException"
	case http.StatusForbidden, http.StatusUnauthorized:
		return "AccessDeniedException"
	case http.StatusRequestEntityTooLarge:
		return "DocumentTooLargeException"
	case http.StatusServiceUnavailable:
		return "ServiceUnavailable"
	default:
		return "InternalServerError"
	}
}
