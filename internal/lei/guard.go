package lei

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
)

// response is a fully read upstream response. Reading the body inside the
// guarded call keeps slow bodies subject to the same timeout classification.
type response struct {
	StatusCode int
	Body       []byte
}

// call is one outbound request.
type call func(ctx context.Context) (*response, error)

// guard runs fn and maps every way it can fail onto the three failure kinds:
// timeouts become KindTimeout, non-2xx statuses become KindUpstream, and any
// other error or panic is logged as unhandled and becomes KindUpstream.
func guard(ctx context.Context, logger *slog.Logger, op string, fn call) (resp *response, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "unhandled failure for upstream request",
				"op", op,
				"panic", fmt.Sprint(r),
			)
			resp = nil
			err = newError(KindUpstream, op, "unhandled failure", fmt.Errorf("panic: %v", r))
		}
	}()

	resp, err = fn(ctx)
	if err != nil {
		if isTimeout(err) {
			logger.ErrorContext(ctx, "read timeout for upstream request",
				"op", op,
				"error", err,
			)
			return nil, newError(KindTimeout, op, "read timeout", err)
		}
		logger.ErrorContext(ctx, "unhandled failure for upstream request",
			"op", op,
			"error", err,
		)
		return nil, newError(KindUpstream, op, "unhandled failure", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.ErrorContext(ctx, "unexpected status code for upstream request",
			"op", op,
			"status_code", resp.StatusCode,
		)
		return nil, newError(KindUpstream, op, fmt.Sprintf("status code %d", resp.StatusCode), nil)
	}
	return resp, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
