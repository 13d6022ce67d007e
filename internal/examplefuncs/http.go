// Package examplefuncs provides a couple of ready-to-register
// job.Function values demonstrating the library: an HTTP-call function
// adapted from the teacher's step executor, and a trivial addition
// function used in the scenario tests. Neither is part of the core —
// they exist to give cmd/exampleworker and cmd/exampleclient something
// concrete to run.
package examplefuncs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shaiso/jobbroker/internal/broker"
	"github.com/shaiso/jobbroker/internal/job"
)

const defaultHTTPTimeout = 30 * time.Second

// NewHTTPCallFunction builds a Function named name that performs an
// HTTP request described by its args:
//   - method (string): HTTP method. Default GET.
//   - url (string): request URL. Required.
//   - headers (map[string]any): request headers.
//   - body (any): request body, JSON-encoded.
//   - timeout_sec (number): request timeout in seconds. Default 30.
//
// Result fields: status_code (int), headers (map[string]string), body
// (parsed JSON, or the raw string if not JSON).
func NewHTTPCallFunction(name string, brk broker.Broker) *job.Function {
	return job.New(job.Config{
		Name:   name,
		Broker: brk,
		Run:    runHTTPCall,
	})
}

func runHTTPCall(ctx context.Context, args map[string]any) (any, error) {
	method := getString(args, "method", "GET")
	url := getString(args, "url", "")
	if url == "" {
		return nil, fmt.Errorf("examplefuncs: url is required")
	}

	ctx, cancel := context.WithTimeout(ctx, getTimeout(args))
	defer cancel()

	var bodyReader io.Reader
	if body, ok := args["body"]; ok && body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("examplefuncs: marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("examplefuncs: create request: %w", err)
	}
	setHeaders(req, args)
	if bodyReader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("examplefuncs: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("examplefuncs: read response: %w", err)
	}

	return buildResult(resp, respBody), nil
}

func buildResult(resp *http.Response, body []byte) map[string]any {
	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	var parsedBody any
	if err := json.Unmarshal(body, &parsedBody); err != nil {
		parsedBody = string(body)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        parsedBody,
	}
}

func getString(args map[string]any, key, defaultVal string) string {
	if val, ok := args[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return defaultVal
}

func getTimeout(args map[string]any) time.Duration {
	if val, ok := args["timeout_sec"]; ok {
		switch v := val.(type) {
		case float64:
			if v > 0 {
				return time.Duration(v * float64(time.Second))
			}
		case int:
			if v > 0 {
				return time.Duration(v) * time.Second
			}
		}
	}
	return defaultHTTPTimeout
}

func setHeaders(req *http.Request, args map[string]any) {
	headers, ok := args["headers"]
	if !ok || headers == nil {
		return
	}
	switch h := headers.(type) {
	case map[string]any:
		for key, val := range h {
			if s, ok := val.(string); ok {
				req.Header.Set(key, s)
			}
		}
	case map[string]string:
		for key, val := range h {
			req.Header.Set(key, val)
		}
	}
}

// NewAdditionFunction is the scenario-1/2 demo function: Addition(a,b).
func NewAdditionFunction(brk broker.Broker) *job.Function {
	return job.New(job.Config{
		Name:   "Addition",
		Broker: brk,
		Run: func(ctx context.Context, args map[string]any) (any, error) {
			a, err := numberArg(args, "a")
			if err != nil {
				return nil, err
			}
			b, err := numberArg(args, "b")
			if err != nil {
				return nil, err
			}
			return a + b, nil
		},
	})
}

func numberArg(args map[string]any, key string) (float64, error) {
	switch v := args[key].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: argument %q is not a number", broker.ErrDecode, key)
	}
}
