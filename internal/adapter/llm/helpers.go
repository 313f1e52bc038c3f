package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"aegis-ai/internal/domain"
)

// maxResponseBody caps how much of an API response we will read.
const maxResponseBody = 10 << 20 // 10 MB

// doJSONRequest posts a JSON body and returns the raw response bytes.
// Non-2xx statuses are mapped onto domain error sentinels.
func doJSONRequest(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderError, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mapHTTPError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

func mapHTTPError(status int, body []byte) error {
	detail := string(body)
	if len(detail) > 512 {
		detail = detail[:512]
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", domain.ErrRateLimit, status, detail)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", domain.ErrAuthInvalid, status, detail)
	case status == http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: status %d: %s", domain.ErrContextOverflow, status, detail)
	default:
		return fmt.Errorf("%w: status %d: %s", domain.ErrProviderError, status, detail)
	}
}
