package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
)

// getJSON makes GET request and decodes JSON object of the response into raw.
func (c *Client) getJSON(ctx context.Context, url string, raw *map[string]any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	return c.do(req, raw)
}

// sendJSON marshals payload (if any) and sends it with the given method.
func (c *Client) sendJSON(ctx context.Context, method, url string, payload any, raw *map[string]any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}

	return c.do(req, raw)
}

// do executes the request and decodes the JSON object of a 2xx response into raw.
// raw may be nil if the body is not needed.
func (c *Client) do(req *http.Request, raw *map[string]any) error {
	started := time.Now()
	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	c.logger.Debug("got response",
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(started)),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return parseError(resp, data)
	}

	if raw == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, raw); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

// decode maps a generic JSON value onto a typed result using the json tags.
func decode(input any, result any) error {
	cfg := &mapstructure.DecoderConfig{
		Result:     result,
		TagName:    "json",
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

// decodeField decodes raw[key] into result. If the key is absent and fallback
// is set, raw itself is decoded (some endpoints answer without an envelope).
func decodeField(raw map[string]any, key string, fallback bool, result any) error {
	value, ok := raw[key]
	if !ok {
		if !fallback {
			return fmt.Errorf("response has no %q field", key)
		}
		value = raw
	}

	if err := decode(value, result); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}

	return nil
}
