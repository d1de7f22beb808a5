package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor logs every RPC call: the procedure name, the duration,
// and any error code and message. Streaming calls are logged once, when the
// stream ends.
type LoggingInterceptor struct{}

var _ connect.Interceptor = LoggingInterceptor{}

// NewLoggingInterceptor returns a LoggingInterceptor.
func NewLoggingInterceptor() LoggingInterceptor {
	return LoggingInterceptor{}
}

// WrapUnary implements connect.Interceptor.
func (LoggingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		logRPC(req.Spec().Procedure, "unary", start, err)
		return resp, err
	}
}

// WrapStreamingClient implements connect.Interceptor. Client calls are not logged.
func (LoggingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler implements connect.Interceptor.
func (LoggingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		start := time.Now()
		slog.Debug("RPC stream opened", "procedure", conn.Spec().Procedure)
		err := next(ctx, conn)
		logRPC(conn.Spec().Procedure, "stream", start, err)
		return err
	}
}

func logRPC(procedure, kind string, start time.Time, err error) {
	duration := time.Since(start).Milliseconds()
	if err == nil {
		slog.Info("RPC ok",
			"procedure", procedure,
			"kind", kind,
			"duration_ms", duration,
		)
		return
	}

	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		level := slog.LevelWarn
		if connectErr.Code() == connect.CodeInternal || connectErr.Code() == connect.CodeUnknown {
			level = slog.LevelError
		}
		if connectErr.Code() == connect.CodeCanceled {
			level = slog.LevelInfo
		}
		slog.Log(context.Background(), level, "RPC error",
			"procedure", procedure,
			"kind", kind,
			"code", connectErr.Code(),
			"error", connectErr.Message(),
			"duration_ms", duration,
		)
		return
	}

	if errors.Is(err, context.Canceled) {
		slog.Info("RPC closed by client",
			"procedure", procedure,
			"kind", kind,
			"duration_ms", duration,
		)
		return
	}

	slog.Error("RPC error",
		"procedure", procedure,
		"kind", kind,
		"error", err,
		"duration_ms", duration,
	)
}
