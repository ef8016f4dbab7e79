package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/Yess-prog/PI-myBank-app/internal/domain"
)

type tokenKey struct{}

// withToken attaches the bearer token to ctx for AuthInterceptor
func withToken(ctx context.Context, token domain.Token) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFromContext(ctx context.Context) (domain.Token, bool) {
	token, ok := ctx.Value(tokenKey{}).(domain.Token)
	return token, ok && token != ""
}

// AuthInterceptor returns a gRPC unary client interceptor that copies
// the session token and the intent id from ctx into outgoing metadata.
// Calls without a token, such as Login, are sent without authorization.
func AuthInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		if token, ok := tokenFromContext(ctx); ok {
			ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+string(token))
		}
		if id, ok := domain.IntentIDFromContext(ctx); ok {
			ctx = metadata.AppendToOutgoingContext(ctx, "x-correlation-id", id.String())
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
