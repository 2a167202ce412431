package redis

import (
	"context"
	"errors"
	"net"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/deployscloud/internal/adapter/metrics"
)

const upstreamName = "redis"

// MetricsHook records every Redis command as an upstream request, labelled
// by command name.
type MetricsHook struct {
	metrics *metrics.UpstreamMetrics
}

var _ goredis.Hook = (*MetricsHook)(nil)

func (h *MetricsHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		start := time.Now()
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.metrics.ObserveRequest(upstreamName, "dial", 0, time.Since(start))
		}
		return conn, err
	}
}

func (h *MetricsHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.metrics.ObserveRequest(upstreamName, cmd.Name(), commandStatus(err), time.Since(start))
		return err
	}
}

func (h *MetricsHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.metrics.ObserveRequest(upstreamName, "pipeline", commandStatus(err), time.Since(start))
		return err
	}
}

// commandStatus maps a command result onto the HTTP-ish status label used by
// UpstreamMetrics: 200 for success and cache misses, 0 for errors.
func commandStatus(err error) int {
	if err == nil || errors.Is(err, goredis.Nil) {
		return 200
	}
	return 0
}
