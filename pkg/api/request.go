// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

// Package api speaks the updatehub server protocol: canonicalized,
// HMAC-signed HTTP requests.
package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/datawire/dlib/dlog"

	"github.com/MichaelACosta/uhu/pkg/config"
)

// APIContentType identifies the protocol revision to the server.
const APIContentType = "application/vnd.updatehub-v1+json"

// Request is a signable server request.  Headers are kept apart from the
// eventual http.Request so that the canonical form can be computed (and
// tested) without touching the network.
type Request struct {
	Method  string
	URL     *url.URL
	Payload []byte
	Headers map[string]string

	now time.Time
}

// Option mutates a Request at construction time.
type Option func(*Request)

// WithJSON marks the payload as JSON.
func WithJSON() Option {
	return func(req *Request) {
		req.Headers["Content-Type"] = "application/json"
	}
}

// WithTime fixes the request timestamp, for tests.
func WithTime(now time.Time) Option {
	return func(req *Request) {
		req.now = now
		req.Headers["Timestamp"] = strconv.FormatInt(now.UTC().Unix(), 10)
	}
}

// NewRequest assembles a Request with the minimal header set: Host,
// Timestamp, Content-sha256, Api-Content-Type and Accept.
func NewRequest(rawurl, method string, payload []byte, opts ...Option) (*Request, error) {
	parsed, err := url.Parse(rawurl)
	if err != nil {
		return nil, err
	}
	req := &Request{
		Method:  method,
		URL:     parsed,
		Payload: payload,
		now:     time.Now().UTC(),
	}
	req.Headers = map[string]string{
		"Host":             parsed.Host,
		"Timestamp":        strconv.FormatInt(req.now.Unix(), 10),
		"Content-sha256":   PayloadSha256(payload),
		"Api-Content-Type": APIContentType,
		"Accept":           "application/json",
	}
	for _, opt := range opts {
		opt(req)
	}
	return req, nil
}

// PayloadSha256 returns the hex digest of payload; an empty payload
// hashes the empty string.
func PayloadSha256(payload []byte) string {
	digest := sha256.Sum256(payload)
	return hex.EncodeToString(digest[:])
}

// uriEscape percent-encodes everything but the RFC 3986 unreserved set,
// with uppercase hex digits.
func uriEscape(str string) string {
	var ret strings.Builder
	for i := 0; i < len(str); i++ {
		c := str[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			ret.WriteByte(c)
		default:
			fmt.Fprintf(&ret, "%%%02X", c)
		}
	}
	return ret.String()
}

// CanonicalQuery escapes and sorts the query string; repeated keys keep
// all their values, sorted by escaped value.
func (req *Request) CanonicalQuery() string {
	query, err := url.ParseQuery(req.URL.RawQuery)
	if err != nil || len(query) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(query))
	for key, values := range query {
		for _, value := range values {
			pairs = append(pairs, uriEscape(key)+"="+uriEscape(value))
		}
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

// CanonicalHeaders lowercases the header names and sorts the lines.
func (req *Request) CanonicalHeaders() string {
	lines := make([]string, 0, len(req.Headers))
	for name, value := range req.Headers {
		lines = append(lines, strings.ToLower(name)+":"+strings.TrimSpace(value))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

// SignedHeaders returns the lowercased header names covered by the
// signature, sorted and semicolon-joined.
func (req *Request) SignedHeaders() string {
	names := make([]string, 0, len(req.Headers))
	for name := range req.Headers {
		names = append(names, strings.ToLower(name))
	}
	sort.Strings(names)
	return strings.Join(names, ";")
}

// Canonical returns the canonical request text that gets signed.
func (req *Request) Canonical() string {
	return strings.Join([]string{
		req.Method,
		req.URL.EscapedPath(),
		req.CanonicalQuery(),
		req.CanonicalHeaders(),
		"",
		PayloadSha256(req.Payload),
	}, "\n")
}

// Sign computes the UHV1 signature and sets the Authorization header.
func (req *Request) Sign(creds *config.Credentials) {
	req.Headers["Authorization"] = Sign(req, creds)
}

// Send signs the request and performs it with client (http.DefaultClient
// when nil).
func (req *Request) Send(ctx context.Context, client *http.Client, creds *config.Credentials) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if _, signed := req.Headers["Authorization"]; !signed {
		req.Sign(creds)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(),
		bytes.NewReader(req.Payload))
	if err != nil {
		return nil, err
	}
	for name, value := range req.Headers {
		if name == "Host" {
			httpReq.Host = value
			continue
		}
		httpReq.Header.Set(name, value)
	}

	dlog.Debugf(ctx, "%s %s (%d bytes)", req.Method, req.URL, len(req.Payload))
	return client.Do(httpReq)
}
