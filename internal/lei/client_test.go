package lei

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLEI = "R0MUWSFPU8MPRO8K5P83"

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (*Client, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))
	return NewClient(srv.URL+"/api/v2/", timeout, logger), logs
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestLegalName(t *testing.T) {
	t.Run("strips whitespace from the single matching record", func(t *testing.T) {
		var gotPath, gotLEI string
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotLEI = r.URL.Query().Get("lei")
			respond(http.StatusOK, `[{"Entity":{"LegalName":{"$":"BNP PARIBAS"}}}]`)(w, r)
		}, time.Second)

		name, err := client.LegalName(context.Background(), testLEI)

		require.NoError(t, err)
		assert.Equal(t, "BNPPARIBAS", name)
		assert.Equal(t, "/api/v2/leirecords", gotPath)
		assert.Equal(t, testLEI, gotLEI)
	})

	t.Run("removes every kind of whitespace", func(t *testing.T) {
		client, _ := newTestClient(t,
			respond(http.StatusOK, `[{"Entity":{"LegalName":{"$":" Société\tGénérale\n S.A.  "}}}]`),
			time.Second)

		name, err := client.LegalName(context.Background(), testLEI)

		require.NoError(t, err)
		assert.Equal(t, "SociétéGénéraleS.A.", name)
	})

	t.Run("ignores extra fields in the record", func(t *testing.T) {
		client, _ := newTestClient(t,
			respond(http.StatusOK, `[{"LEI":{"$":"X"},"Entity":{"LegalName":{"$":"ACME","@xml:lang":"en"},"Status":"ACTIVE"}}]`),
			time.Second)

		name, err := client.LegalName(context.Background(), testLEI)

		require.NoError(t, err)
		assert.Equal(t, "ACME", name)
	})
}

func TestLegalNameFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    Kind
	}{
		{"server error status", respond(http.StatusInternalServerError, `{}`), KindUpstream},
		{"not found status", respond(http.StatusNotFound, `[]`), KindUpstream},
		{"not modified status", respond(http.StatusNotModified, ``), KindUpstream},
		{"zero records", respond(http.StatusOK, `[]`), KindMalformed},
		{"two records", respond(http.StatusOK, `[{"Entity":{"LegalName":{"$":"A"}}},{"Entity":{"LegalName":{"$":"B"}}}]`), KindMalformed},
		{"null body", respond(http.StatusOK, `null`), KindMalformed},
		{"object instead of list", respond(http.StatusOK, `{"Entity":{"LegalName":{"$":"A"}}}`), KindMalformed},
		{"invalid json", respond(http.StatusOK, `[{`), KindMalformed},
		{"missing entity", respond(http.StatusOK, `[{}]`), KindMalformed},
		{"missing legal name", respond(http.StatusOK, `[{"Entity":{}}]`), KindMalformed},
		{"missing value", respond(http.StatusOK, `[{"Entity":{"LegalName":{}}}]`), KindMalformed},
		{"value of wrong type", respond(http.StatusOK, `[{"Entity":{"LegalName":{"$":42}}}]`), KindMalformed},
		{"blank legal name", respond(http.StatusOK, `[{"Entity":{"LegalName":{"$":" \t "}}}]`), KindMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.handler, time.Second)

			name, err := client.LegalName(context.Background(), testLEI)

			require.Error(t, err)
			assert.Empty(t, name)
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestLegalNameTimeouts(t *testing.T) {
	t.Run("slow directory times out", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		client, logs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}, 20*time.Millisecond)

		_, err := client.LegalName(context.Background(), testLEI)

		require.Error(t, err)
		assert.Equal(t, KindTimeout, KindOf(err))
		assert.Contains(t, logs.String(), "read timeout for upstream request")
		assert.Contains(t, logs.String(), opLookup)
	})

	t.Run("slow body times out", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`[`))
			w.(http.Flusher).Flush()
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}, 50*time.Millisecond)

		_, err := client.LegalName(context.Background(), testLEI)

		require.Error(t, err)
		assert.Equal(t, KindTimeout, KindOf(err))
	})

	t.Run("caller deadline counts as timeout", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}, time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := client.LegalName(ctx, testLEI)

		require.Error(t, err)
		assert.Equal(t, KindTimeout, KindOf(err))
	})
}

func TestLegalNameUnhandledFailures(t *testing.T) {
	t.Run("unreachable directory", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		logs := &bytes.Buffer{}
		client := NewClient(url, time.Second, slog.New(slog.NewTextHandler(logs, nil)))

		_, err := client.LegalName(context.Background(), testLEI)

		require.Error(t, err)
		assert.Equal(t, KindUpstream, KindOf(err))
		assert.Contains(t, logs.String(), "unhandled failure for upstream request")
	})

	t.Run("panic inside the call is contained", func(t *testing.T) {
		logs := &bytes.Buffer{}
		client := NewClient("http://directory.test/", time.Second,
			slog.New(slog.NewTextHandler(logs, nil)),
			WithTransport(roundTripperFunc(func(*http.Request) (*http.Response, error) {
				panic("transport exploded")
			})),
		)

		_, err := client.LegalName(context.Background(), testLEI)

		require.Error(t, err)
		assert.Equal(t, KindUpstream, KindOf(err))
		assert.Contains(t, logs.String(), "transport exploded")
		assert.Contains(t, logs.String(), opLookup)
	})

	t.Run("bad status is logged with its code", func(t *testing.T) {
		client, logs := newTestClient(t, respond(http.StatusBadGateway, ``), time.Second)

		_, err := client.LegalName(context.Background(), testLEI)

		require.Error(t, err)
		assert.Contains(t, logs.String(), "status_code=502")
		assert.Contains(t, err.Error(), "status code 502")
	})
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindTimeout, KindOf(newError(KindTimeout, opLookup, "x", nil)))
	assert.Equal(t, KindUpstream, KindOf(assert.AnError))
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient("", 0, nil)
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)

	client = NewClient("http://example.test/api", time.Second, nil)
	assert.Equal(t, "http://example.test/api/", client.baseURL)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...", truncate("abcdef", 2))

	// "é" is two bytes; a cut at byte 2 falls inside it.
	got := truncate("aéb", 2)
	assert.Equal(t, "a...", got)
	assert.True(t, utf8.ValidString(got))

	long := strings.Repeat("é", maxLoggedLen)
	assert.True(t, utf8.ValidString(truncate(long, maxLoggedLen+1)))
}
