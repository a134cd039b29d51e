package di

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"Prism/internal/domain/repository"
	pkgkafka "Prism/pkg/kafka"
)

type startKey struct{}

// ConsumerHook times every consumed cone message.
func ConsumerHook(m repository.Metrics) pkgkafka.ConsumerHook {
	return pkgkafka.NewHookChain(pkgkafka.HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			return context.WithValue(ctx, startKey{}, time.Now()), km, data, nil
		},
		After: func(ctx context.Context, _ string, _ kafka.Message, _ []byte, _ error) {
			if start, ok := ctx.Value(startKey{}).(time.Time); ok {
				m.RecordLatency("consume", time.Since(start).Seconds())
			}
		},
	})
}
