package relay

import (
	"context"
	"time"

	"github.com/ozym/slscale/internal/adapters/observability"
	"github.com/ozym/slscale/internal/ports"
)

// forward sends one block downstream, reconnecting with a fixed backoff
// until the send succeeds. The retry loop is unbounded; the only escape
// is a shutdown request, which abandons the record.
func (r *Relay) forward(ctx context.Context, streamID string, start, end time.Time, block []byte) error {
	for {
		err := r.forwarder.Write(ctx, streamID, start, end, block)
		if err == nil {
			return nil
		}

		r.obs.LogInfo("re-connecting to downstream server",
			ports.Field{Key: "stream", Value: streamID},
			ports.Field{Key: "reason", Value: err.Error()})
		if r.forwarder.Live() {
			r.forwarder.Disconnect()
		}

		r.obs.IncCounter(observability.MetricReconnects, 1)
		if err := r.forwarder.Connect(ctx); err != nil {
			r.obs.LogError("error re-connecting to downstream server, sleeping", err,
				ports.Field{Key: "backoff", Value: r.policy.ReconnectDelay})
			select {
			case <-ctx.Done():
				return errAbandoned
			case <-r.clk.After(r.policy.ReconnectDelay):
			}
		}

		if ctx.Err() != nil {
			return errAbandoned
		}
	}
}
