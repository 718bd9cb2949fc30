package requestdata

import (
	"context"

	"github.com/google/uuid"
)

type key struct{}

var requestDataKey key

// RequestData carries the authenticated agent identity through the request.
// Every service operation receives the acting agent from here instead of
// re-deriving it from ambient auth state.
type RequestData struct {
	TokenString  string
	RefreshToken string
	AgentID      uuid.UUID
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey).(*RequestData); ok {
		return rd
	}
	return nil
}
