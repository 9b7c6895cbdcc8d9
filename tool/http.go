package tool

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

func (h *Host) httpModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "http",
		Members: starlark.StringDict{
			"get":  starlark.NewBuiltin("http.get", h.httpGet),
			"post": starlark.NewBuiltin("http.post", h.httpPost),
		},
	}
}

func (h *Host) checkHost(urlStr string) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	host := u.Hostname()

	// Check blocked hosts
	for _, blocked := range h.blockedHosts {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return fmt.Errorf("host %q is blocked", host)
		}
	}

	// Check allowed hosts (if set)
	if len(h.allowedHosts) > 0 {
		allowed := false
		for _, a := range h.allowedHosts {
			if host == a || strings.HasSuffix(host, "."+a) {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("host %q is not in allowed list", host)
		}
	}

	return nil
}

func (h *Host) httpGet(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		rawURL  string
		headers *starlark.Dict
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "url", &rawURL, "headers?", &headers); err != nil {
		return nil, err
	}
	return h.do(thread, http.MethodGet, rawURL, "", headers)
}

func (h *Host) httpPost(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		rawURL, body string
		headers      *starlark.Dict
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "url", &rawURL, "body?", &body, "headers?", &headers); err != nil {
		return nil, err
	}
	return h.do(thread, http.MethodPost, rawURL, body, headers)
}

func (h *Host) do(thread *starlark.Thread, method, rawURL, body string, headers *starlark.Dict) (starlark.Value, error) {
	// Validate host
	if err := h.checkHost(rawURL); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequestWithContext(threadContext(thread), method, rawURL, reader)
	if err != nil {
		return nil, err
	}

	// Set headers
	if headers != nil {
		for _, item := range headers.Items() {
			k, kok := starlark.AsString(item[0])
			v, vok := starlark.AsString(item[1])
			if !kok || !vok {
				return nil, fmt.Errorf("headers must map strings to strings")
			}
			req.Header.Set(k, v)
		}
	}

	// Execute request
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Read response with size limit
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, h.maxResponseSize))
	if err != nil {
		return nil, err
	}

	// Copy important headers
	respHeaders := starlark.NewDict(4)
	for _, name := range []string{"Content-Type", "Content-Length", "Date", "Server"} {
		if v := resp.Header.Get(name); v != "" {
			_ = respHeaders.SetKey(starlark.String(name), starlark.String(v))
		}
	}

	return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"status":  starlark.MakeInt(resp.StatusCode),
		"headers": respHeaders,
		"body":    starlark.String(respBody),
	}), nil
}
