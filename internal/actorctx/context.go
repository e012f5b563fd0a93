// Package actorctx carries the authenticated caller through the request
// context. Only identity lives here; roles are always re-resolved from
// the membership table by the access service.
package actorctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type userKey struct{}
type requestKey struct{}

// RequestMeta captures transport-level metadata used for auditing.
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}

// WithUserID stores the authenticated user ID in the context.
func WithUserID(ctx context.Context, userID snowflake.ID) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserIDFromContext returns the authenticated user ID, if any.
func UserIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(userKey{}).(snowflake.ID)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// WithRequestMeta stores transport metadata in the context.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestKey{}, meta)
}

// RequestMetaFromContext returns transport metadata, if present.
func RequestMetaFromContext(ctx context.Context) (RequestMeta, bool) {
	if ctx == nil {
		return RequestMeta{}, false
	}
	meta, ok := ctx.Value(requestKey{}).(RequestMeta)
	return meta, ok
}
