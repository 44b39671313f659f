package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"gridnet.org/internal/dispatch"
)

// HTTPTransport invokes commands against an HTTP endpoint. The zero value
// is not usable; construct with NewHTTPTransport.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport targets the given base URL. A nil http.Client means
// http.DefaultClient.
func NewHTTPTransport(baseURL string, httpClient *http.Client) *HTTPTransport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

func (t *HTTPTransport) Invoke(ctx context.Context, service, command string, arguments map[string]any, authorization string) (*dispatch.Result, error) {
	var body bytes.Buffer
	if arguments != nil {
		if err := json.NewEncoder(&body).Encode(arguments); err != nil {
			return nil, err
		}
	}

	url := fmt.Sprintf("%s/%s/%s", t.baseURL, service, command)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", "Bearer "+authorization)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var res dispatch.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("malformed response (HTTP %d): %w", resp.StatusCode, err)
	}
	return &res, nil
}
