// Package lei resolves Legal Entity Identifiers into legal names using the
// GLEIF LEI lookup API.
//
// The directory is treated as untrusted: it can be slow, return errors, or
// answer with payloads of an unexpected shape. Every failure is reported as
// an *Error with one of three kinds (see Kind) so callers never deal with
// transport details. Lookups are never retried or cached.
package lei

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultBaseURL is the public GLEIF lookup API.
	DefaultBaseURL = "https://leilookup.gleif.org/api/v2/"

	// DefaultTimeout bounds a single lookup, including reading the body.
	DefaultTimeout = 60 * time.Second

	opLookup     = "leiLookup"
	maxBodyBytes = 1 << 20
	maxLoggedLen = 512
)

// Client looks up legal names in the GLEIF directory.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the HTTP transport, keeping the configured timeout.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.httpClient.Transport = rt
		}
	}
}

// WithTracer sets the tracer used for lookup spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// NewClient builds a Client. timeout is the read timeout for one lookup;
// zero or negative falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		tracer:     otel.Tracer("bonds/internal/lei"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// LegalName resolves lei into its legal name with every whitespace
// character removed.
func (c *Client) LegalName(ctx context.Context, lei string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "lei.LegalName",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("lei.id", lei)),
	)
	defer span.End()

	name, err := c.legalName(ctx, lei)
	if err != nil {
		kind := KindOf(err)
		span.SetAttributes(attribute.String("lei.outcome", string(kind)))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		return "", err
	}
	span.SetAttributes(attribute.String("lei.outcome", "ok"))
	return name, nil
}

func (c *Client) legalName(ctx context.Context, lei string) (string, error) {
	resp, err := guard(ctx, c.logger, opLookup, func(ctx context.Context) (*response, error) {
		return c.lookup(ctx, lei)
	})
	if err != nil {
		return "", err
	}

	name, err := parseLegalName(resp.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "could not parse legal name from upstream response",
			"op", opLookup,
			"lei", lei,
			"body", truncate(string(resp.Body), maxLoggedLen),
			"error", err,
		)
		return "", newError(KindMalformed, opLookup, "could not parse legal name", err)
	}
	return name, nil
}

func (c *Client) lookup(ctx context.Context, lei string) (*response, error) {
	endpoint := c.baseURL + "leirecords?lei=" + url.QueryEscape(lei)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &response{StatusCode: res.StatusCode, Body: body}, nil
}

// record is the subset of a GLEIF LEI record we read.
type record struct {
	Entity *struct {
		LegalName *struct {
			Value *string `json:"$"`
		} `json:"LegalName"`
	} `json:"Entity"`
}

var errNoLegalName = errors.New("record has no Entity.LegalName.$")

func parseLegalName(body []byte) (string, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return "", fmt.Errorf("decode records: %w", err)
	}
	if len(records) != 1 {
		return "", fmt.Errorf("expected exactly one record, got %d", len(records))
	}

	var rec record
	if err := json.Unmarshal(records[0], &rec); err != nil {
		return "", fmt.Errorf("decode record: %w", err)
	}
	if rec.Entity == nil || rec.Entity.LegalName == nil || rec.Entity.LegalName.Value == nil {
		return "", errNoLegalName
	}

	name := stripWhitespace(*rec.Entity.LegalName.Value)
	if name == "" {
		return "", errors.New("legal name is blank")
	}
	return name, nil
}

// stripWhitespace removes every whitespace character, not just the ends.
func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
