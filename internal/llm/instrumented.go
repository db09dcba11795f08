package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/agenthands/seecat/internal/metrics"
)

// Instrumented bounds every call with Timeout and records its outcome.
type Instrumented struct {
	Client   LLMClient
	Provider string
	Timeout  time.Duration
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

func (i *Instrumented) Generate(ctx context.Context, prompt Prompt) (string, error) {
	if i.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := i.Client.Generate(ctx, prompt)
	took := time.Since(start)

	outcome := "ok"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case errors.Is(err, ErrEmptyCompletion):
		outcome = "empty"
	case err != nil:
		outcome = "error"
	}
	i.Metrics.CountLLMCall(i.Provider, outcome)

	if i.Logger != nil {
		fields := []zap.Field{
			zap.String("provider", i.Provider),
			zap.String("outcome", outcome),
			zap.Int("completion_bytes", len(out)),
			zap.Duration("took", took),
		}
		if err != nil {
			i.Logger.Warn("llm call failed", append(fields, zap.Error(err))...)
		} else {
			i.Logger.Debug("llm call", fields...)
		}
	}
	return out, err
}

// Close releases the wrapped client when it holds a connection.
func (i *Instrumented) Close() error {
	if c, ok := i.Client.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
