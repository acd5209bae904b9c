// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package api_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelACosta/uhu/pkg/api"
	"github.com/MichaelACosta/uhu/pkg/config"
)

// sha256 of a single NUL byte; pinned so the canonical-request fixture
// below stays readable.
const nulSha256 = "6e340b9cffb37a989ca544e6bb780a2c78901d3fb33738768511a30617afa01d"

var testCreds = &config.Credentials{
	AccessID:     "access",
	AccessSecret: "secret",
}

func TestRequestHasMinimalHeaders(t *testing.T) {
	t.Parallel()
	epoch := time.Unix(0, 0).UTC()

	req, err := api.NewRequest("https://localhost/", "POST", []byte{0x00}, api.WithTime(epoch))
	require.NoError(t, err)

	assert.Len(t, req.Headers, 5)
	assert.Equal(t, "localhost", req.Headers["Host"])
	assert.Equal(t, "0", req.Headers["Timestamp"])
	assert.Equal(t, nulSha256, req.Headers["Content-sha256"])
	assert.Equal(t, "application/vnd.updatehub-v1+json", req.Headers["Api-Content-Type"])
	assert.Equal(t, "application/json", req.Headers["Accept"])
}

func TestRequestTimestampIsRecentUTC(t *testing.T) {
	t.Parallel()
	req, err := api.NewRequest("https://localhost/", "POST", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, req.Headers["Timestamp"])
}

func TestRequestContentTypeIsOptIn(t *testing.T) {
	t.Parallel()
	req, err := api.NewRequest("https://localhost/", "POST", nil)
	require.NoError(t, err)
	assert.NotContains(t, req.Headers, "Content-Type")

	req, err = api.NewRequest("https://localhost/", "POST", []byte("{}"), api.WithJSON())
	require.NoError(t, err)
	assert.Equal(t, "application/json", req.Headers["Content-Type"])
}

func TestRequestPayloadSha256(t *testing.T) {
	t.Parallel()
	payload := []byte("bytes")
	digest := sha256.Sum256(payload)

	req, err := api.NewRequest("http://localhost", "POST", payload)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(digest[:]), req.Headers["Content-sha256"])

	empty := sha256.Sum256(nil)
	req, err = api.NewRequest("http://localhost", "POST", nil)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(empty[:]), req.Headers["Content-sha256"])
}

func TestHostHeaderIncludesPortOnlyIfProvided(t *testing.T) {
	t.Parallel()
	req, err := api.NewRequest("http://localhost:123", "GET", nil)
	require.NoError(t, err)
	assert.Equal(t, "localhost:123", req.Headers["Host"])

	req, err = api.NewRequest("http://localhost", "GET", nil)
	require.NoError(t, err)
	assert.Equal(t, "localhost", req.Headers["Host"])
}

func TestCanonicalRequest(t *testing.T) {
	t.Parallel()
	epoch := time.Unix(0, 0).UTC()
	req, err := api.NewRequest("http://localhost/upload?c=3&b=2&a=1", "POST",
		[]byte{0x00}, api.WithTime(epoch))
	require.NoError(t, err)

	expected := "POST\n" +
		"/upload\n" +
		"a=1&b=2&c=3\n" +
		"accept:application/json\n" +
		"api-content-type:application/vnd.updatehub-v1+json\n" +
		"content-sha256:" + nulSha256 + "\n" +
		"host:localhost\n" +
		"timestamp:0\n" +
		"\n" +
		nulSha256
	assert.Equal(t, expected, req.Canonical())
}

func TestCanonicalQuery(t *testing.T) {
	t.Parallel()
	testcases := map[string]struct {
		URL      string
		Expected string
	}{
		"sorted":   {"https://localhost/?c=000&bb=111&aaa=222", "aaa=222&bb=111&c=000"},
		"escaped":  {"https://localhost/?to-be-scaped=scape me!&b=1&a=2", "a=2&b=1&to-be-scaped=scape%20me%21"},
		"repeated": {"https://localhost/?b=3&a=3&b=2&a=2&b=1&a=1", "a=1&a=2&a=3&b=1&b=2&b=3"},
		"repeated-escaped": {
			"https://localhost/?b=3&a=1&b=2&a=!&b=1&a= ",
			"a=%20&a=%21&a=1&b=1&b=2&b=3",
		},
		"empty": {"https://localhost/", ""},
	}
	for name, tc := range testcases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			req, err := api.NewRequest(tc.URL, "POST", nil)
			require.NoError(t, err)
			assert.Equal(t, tc.Expected, req.CanonicalQuery())
		})
	}
}

func TestCanonicalHeaders(t *testing.T) {
	t.Parallel()
	req, err := api.NewRequest("http://foo.bar.example.com", "POST", nil)
	require.NoError(t, err)
	req.Headers = map[string]string{
		"Host":           "foo.bar.example.com",
		"Content-sha256": "1234",
		"Timestamp":      "123456",
		"Accept":         "text/json",
	}
	expected := "accept:text/json\n" +
		"content-sha256:1234\n" +
		"host:foo.bar.example.com\n" +
		"timestamp:123456"
	assert.Equal(t, expected, req.CanonicalHeaders())
}

func TestSignSetsAuthorizationHeader(t *testing.T) {
	t.Parallel()
	req, err := api.NewRequest("https://localhost/upload", "POST", nil)
	require.NoError(t, err)
	assert.NotContains(t, req.Headers, "Authorization")

	sig := api.Sign(req, testCreds)
	assert.NotContains(t, req.Headers, "Authorization")
	assert.Contains(t, sig, "UHV1 Credential=access, SignedHeaders=")
	assert.Contains(t, sig, ", Signature=")

	req.Sign(testCreds)
	assert.Equal(t, sig, req.Headers["Authorization"])
}

func TestSendSignsAndDelivers(t *testing.T) {
	t.Parallel()
	var gotAuth, gotAPIContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAPIContentType = r.Header.Get("Api-Content-Type")
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	}))
	defer server.Close()

	req, err := api.NewRequest(server.URL+"/signed", "GET", nil)
	require.NoError(t, err)
	expectedSig := api.Sign(req, testCreds)

	resp, err := req.Send(context.Background(), server.Client(), testCreds)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, resp.Body.Close())
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "ok"}`, string(body))
	assert.Equal(t, expectedSig, gotAuth)
	assert.Equal(t, api.APIContentType, gotAPIContentType)
}
