package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/config"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/metrics"
)

const (
	tracerName   = "github.com/dmehra2102/prod-golang-projects/oncoscan/internal/apiclient"
	maxBodyBytes = 8 << 20
)

// Client talks to the remote Oncosist API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*http.Response]
	tracer  trace.Tracer
	metrics *metrics.Collector
	log     *zap.Logger
}

func New(cfg config.APIConfig, m *metrics.Collector, log *zap.Logger) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.BurstSize, 1)),
		tracer:  otel.Tracer(tracerName),
		metrics: m,
		log:     log,
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "oncosist-api",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.BreakerState.WithLabelValues(name).Set(float64(to))
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	m.BreakerState.WithLabelValues("oncosist-api").Set(float64(gobreaker.StateClosed))

	return c
}

// serverStatusError marks a 5xx answer as a breaker failure. The response
// itself is still handed back to the caller.
type serverStatusError struct {
	code int
}

func (e *serverStatusError) Error() string {
	return "server error " + strconv.Itoa(e.code)
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// send executes req through the limiter and the breaker inside a client span.
func (c *Client) send(ctx context.Context, op string, req *http.Request) (*http.Response, error) {
	ctx, span := c.tracer.Start(ctx, "oncosist."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.URL.Path),
		),
	)
	defer span.End()

	req = req.WithContext(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limiter")
		c.metrics.RemoteCallsTotal.WithLabelValues(op, "rate_limited").Inc()
		return nil, fmt.Errorf("%s: waiting for rate limiter: %w", op, err)
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &serverStatusError{code: resp.StatusCode}
		}
		return resp, nil
	})
	c.metrics.RemoteCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	var sse *serverStatusError
	if errors.As(err, &sse) {
		err = nil
	}
	if err != nil {
		outcome := "transport_error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "breaker_open"
		}
		c.metrics.RemoteCallsTotal.WithLabelValues(op, outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		c.log.Warn("remote call failed", zap.String("operation", op), zap.String("outcome", outcome), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	outcome := "success"
	if resp.StatusCode >= 300 {
		outcome = "status_" + strconv.Itoa(resp.StatusCode/100) + "xx"
		span.SetStatus(codes.Error, resp.Status)
	}
	c.metrics.RemoteCallsTotal.WithLabelValues(op, outcome).Inc()

	return resp, nil
}

// call sends req and decodes a 2xx JSON body into out. Any other status
// becomes a *domain.StatusError carrying the server's message.
func (c *Client) call(ctx context.Context, op string, req *http.Request, out any) error {
	resp, err := c.send(ctx, op, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.StatusError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    ExtractMessage(body),
		}
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%s: empty response body", op)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

// ExtractMessage pulls a readable message out of an error body. A FastAPI
// validation list becomes "loc: msg" pairs joined with "; ". It returns ""
// when the body carries nothing usable.
func ExtractMessage(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Error   json.RawMessage `json:"error"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if len(payload.Detail) > 0 {
		var items []struct {
			Loc []any  `json:"loc"`
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			pairs := make([]string, 0, len(items))
			for _, it := range items {
				parts := make([]string, 0, len(it.Loc))
				for _, l := range it.Loc {
					parts = append(parts, fmt.Sprint(l))
				}
				pairs = append(pairs, strings.Join(parts, ".")+": "+it.Msg)
			}
			if len(pairs) > 0 {
				return strings.Join(pairs, "; ")
			}
		}
	}

	for _, raw := range []json.RawMessage{payload.Detail, payload.Error, payload.Message} {
		var s string
		if len(raw) > 0 && json.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
