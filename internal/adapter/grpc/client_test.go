package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Yess-prog/PI-myBank-app/internal/domain"
)

type handlerFunc func(md metadata.MD, req *structpb.Struct) (*structpb.Struct, error)

// startBackend serves the given methods over an in-memory listener
func startBackend(t *testing.T, handlers map[string]handlerFunc) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	srv := grpc.NewServer(grpc.UnknownServiceHandler(func(_ interface{}, stream grpc.ServerStream) error {
		method, _ := grpc.MethodFromServerStream(stream)
		req := &structpb.Struct{}
		if err := stream.RecvMsg(req); err != nil {
			return err
		}
		h, ok := handlers[method]
		if !ok {
			return status.Errorf(codes.Unimplemented, "unknown method %s", method)
		}
		md, _ := metadata.FromIncomingContext(stream.Context())
		resp, err := h(md, req)
		if err != nil {
			return err
		}
		return stream.SendMsg(resp)
	}))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	client, conn, err := Dial("passthrough:///bufnet", DialOptions{
		LookupTimeout: 2 * time.Second,
		Extra: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return client
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func method(name string) string {
	return "/" + ServiceName + "/" + name
}

func TestClient_ListOwnAccounts(t *testing.T) {
	client := startBackend(t, map[string]handlerFunc{
		method("ListOwnAccounts"): func(md metadata.MD, req *structpb.Struct) (*structpb.Struct, error) {
			assert.Equal(t, []string{"Bearer tok-1"}, md.Get("authorization"))
			return mustStruct(t, map[string]interface{}{
				"accounts": []interface{}{
					map[string]interface{}{"id": float64(12), "userId": float64(7), "rib": "RIB-A", "balance": "150.25", "currency": "USD"},
					map[string]interface{}{"id": "13", "userId": "7"},
				},
			}), nil
		},
	})

	accounts, err := client.ListOwnAccounts(context.Background(), "tok-1")

	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "12", accounts[0].ID)
	assert.Equal(t, "RIB-A", accounts[0].RIB)
	assert.True(t, accounts[0].Balance.Equal(decimal.RequireFromString("150.25")))
	assert.Equal(t, "13", accounts[1].ID)
	assert.True(t, accounts[1].Balance.IsZero())
}

func TestClient_RecipientLookups(t *testing.T) {
	client := startBackend(t, map[string]handlerFunc{
		method("FindUserByEmail"): func(md metadata.MD, req *structpb.Struct) (*structpb.Struct, error) {
			if field(req, "email") != "friend@example.com" {
				return nil, status.Error(codes.NotFound, "User not found")
			}
			return mustStruct(t, map[string]interface{}{
				"user": map[string]interface{}{"id": float64(42), "firstName": "Sam", "email": "friend@example.com"},
			}), nil
		},
		method("ListAccountsForUser"): func(md metadata.MD, req *structpb.Struct) (*structpb.Struct, error) {
			assert.Equal(t, "42", field(req, "userId"))
			return mustStruct(t, map[string]interface{}{"accounts": []interface{}{}}), nil
		},
	})
	ctx := context.Background()

	user, err := client.FindByEmail(ctx, "tok", "friend@example.com")
	require.NoError(t, err)
	assert.Equal(t, "42", user.ID)

	_, err = client.FindByEmail(ctx, "tok", "ghost@example.com")
	apiErr, ok := domain.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 404, apiErr.StatusCode)
	assert.Equal(t, "User not found", apiErr.Body)

	accounts, err := client.ListAccountsForUser(ctx, "tok", "42")
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestClient_Transfer(t *testing.T) {
	intentID := uuid.New()
	calls := 0
	client := startBackend(t, map[string]handlerFunc{
		method("Transfer"): func(md metadata.MD, req *structpb.Struct) (*structpb.Struct, error) {
			calls++
			assert.Equal(t, []string{intentID.String()}, md.Get("x-correlation-id"))
			assert.Equal(t, "12", field(req, "fromAccountId"))
			assert.Equal(t, "RIB123", field(req, "toRib"))
			assert.Equal(t, "50.1", field(req, "amount"))
			assert.Equal(t, domain.DefaultDescription, field(req, "description"))
			return mustStruct(t, map[string]interface{}{"id": "tx-9", "status": "COMPLETED"}), nil
		},
	})
	ctx := domain.WithIntentID(context.Background(), intentID)

	receipt, err := client.Transfer(ctx, "tok", domain.TransferCommand{
		FromAccountID: "12",
		ToRoutingID:   "RIB123",
		Amount:        decimal.RequireFromString("50.10"),
		Description:   domain.DefaultDescription,
	})

	require.NoError(t, err)
	assert.Equal(t, "tx-9", receipt.Reference)
	assert.Contains(t, string(receipt.Body), "COMPLETED")
	assert.Equal(t, 1, calls)
}

func TestClient_CreateRequestRejected(t *testing.T) {
	client := startBackend(t, map[string]handlerFunc{
		method("CreateTransferRequest"): func(md metadata.MD, req *structpb.Struct) (*structpb.Struct, error) {
			assert.Equal(t, "42", field(req, "toUserId"))
			assert.Equal(t, "12", field(req, "fromAccountId"))
			assert.Equal(t, "99", field(req, "toAccountId"))
			return nil, status.Error(codes.FailedPrecondition, "Request limit reached")
		},
	})

	_, err := client.CreateRequest(context.Background(), "tok", domain.TransferRequestCommand{
		ToUserID:      "42",
		FromAccountID: "12",
		ToAccountID:   "99",
		Amount:        decimal.NewFromInt(5),
		Description:   "pizza",
	})

	apiErr, ok := domain.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Equal(t, "Request limit reached", apiErr.Body)
}

func TestClient_Login(t *testing.T) {
	client := startBackend(t, map[string]handlerFunc{
		method("Login"): func(md metadata.MD, req *structpb.Struct) (*structpb.Struct, error) {
			assert.Empty(t, md.Get("authorization"))
			if field(req, "password") != "secret" {
				return nil, status.Error(codes.Unauthenticated, "Invalid credentials")
			}
			return mustStruct(t, map[string]interface{}{
				"message": "ok", "token": "jwt", "userId": float64(7), "firstName": "Jane", "lastName": "Doe", "email": "jane@example.com",
			}), nil
		},
	})
	ctx := context.Background()

	result, err := client.Login(ctx, "jane@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, domain.Token("jwt"), result.Token)
	assert.Equal(t, "7", result.UserID)

	_, err = client.Login(ctx, "jane@example.com", "nope")
	apiErr, ok := domain.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 401, apiErr.StatusCode)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "InvalidArgument", err: status.Error(codes.InvalidArgument, "bad"), wantStatus: 400},
		{name: "Unauthenticated", err: status.Error(codes.Unauthenticated, "who"), wantStatus: 401},
		{name: "PermissionDenied", err: status.Error(codes.PermissionDenied, "no"), wantStatus: 403},
		{name: "NotFound", err: status.Error(codes.NotFound, "gone"), wantStatus: 404},
		{name: "AlreadyExists", err: status.Error(codes.AlreadyExists, "dup"), wantStatus: 409},
		{name: "Internal", err: status.Error(codes.Internal, "boom"), wantStatus: 500},
		{name: "Unavailable has no response", err: status.Error(codes.Unavailable, "down"), wantStatus: 0},
		{name: "DeadlineExceeded has no response", err: status.Error(codes.DeadlineExceeded, "slow"), wantStatus: 0},
		{name: "Non-status error", err: errors.New("plain"), wantStatus: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := mapError(tt.err)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.ErrorIs(t, apiErr, tt.err)
		})
	}
}
