package services

import (
	"context"

	"github.com/polizaflow/agency-backend/internal/clients/redis"
	"github.com/polizaflow/agency-backend/internal/sse"
	"github.com/polizaflow/agency-backend/internal/ssedata"
)

// queueSSEMessage defers publication to the request's SSE buffer when one is
// installed; the auth middleware drains the buffer once the handler returns,
// so nothing goes out before the surrounding transaction commits. Callers
// outside a buffered request (background workers, public routes) publish
// immediately.
func queueSSEMessage(ctx context.Context, hub *sse.SSEHub, bus redis.SSEBus, msg sse.SSEMessage) {
	if ssd := ssedata.GetSSEData(ctx); ssd != nil {
		ssd.AppendMessage(msg)
		return
	}
	publishSSEMessage(ctx, hub, bus, msg)
}

func publishSSEMessage(ctx context.Context, hub *sse.SSEHub, bus redis.SSEBus, msg sse.SSEMessage) {
	if bus != nil {
		if err := bus.Publish(ctx, msg); err == nil {
			return
		}
	}
	if hub != nil {
		hub.Broadcast(msg)
	}
}
