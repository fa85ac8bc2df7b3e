package actorctx

import "context"

type ctxKey struct{}

// WithUserID records the authenticated caller on a request context so
// services can attribute their logs without depending on gin.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKey{}).(string)

	return v, ok && v != ""
}
