// Package grpc is the gRPC client of the banking backend.
// Messages are google.protobuf.Struct values so no generated stubs are needed.
package grpc

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Yess-prog/PI-myBank-app/internal/domain"
)

// ServiceName is the fully qualified backend service
const ServiceName = "mybank.v1.BankService"

// Client calls the gRPC backend. It implements domain.BankAPI.
type Client struct {
	conn          grpc.ClientConnInterface
	lookupTimeout time.Duration
	logger        *zap.Logger
}

// DialOptions tunes Dial
type DialOptions struct {
	TLS           bool
	LookupTimeout time.Duration
	Logger        *zap.Logger
	// Extra is appended to the default dial options
	Extra []grpc.DialOption
}

// Dial creates a connection to addr with tracing and the auth interceptor installed
func Dial(addr string, opts DialOptions) (*Client, *grpc.ClientConn, error) {
	creds := insecure.NewCredentials()
	if opts.TLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithChainUnaryInterceptor(AuthInterceptor()),
	}
	dialOpts = append(dialOpts, opts.Extra...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create grpc client for %s: %w", addr, err)
	}
	return NewClient(conn, opts.LookupTimeout, opts.Logger), conn, nil
}

// NewClient creates a new Client over an existing connection
func NewClient(conn grpc.ClientConnInterface, lookupTimeout time.Duration, logger *zap.Logger) *Client {
	if lookupTimeout <= 0 {
		lookupTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		conn:          conn,
		lookupTimeout: lookupTimeout,
		logger:        logger.With(zap.String("component", "grpcapi")),
	}
}

// ListOwnAccounts calls BankService/ListOwnAccounts
func (c *Client) ListOwnAccounts(ctx context.Context, token domain.Token) ([]domain.Account, error) {
	resp, err := c.lookup(ctx, "ListOwnAccounts", token, map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	return accountsFromStruct(resp), nil
}

// ListAccountsForUser calls BankService/ListAccountsForUser
func (c *Client) ListAccountsForUser(ctx context.Context, token domain.Token, userID string) ([]domain.Account, error) {
	resp, err := c.lookup(ctx, "ListAccountsForUser", token, map[string]interface{}{"userId": userID})
	if err != nil {
		return nil, err
	}
	return accountsFromStruct(resp), nil
}

// FindByEmail calls BankService/FindUserByEmail
func (c *Client) FindByEmail(ctx context.Context, token domain.Token, email string) (*domain.User, error) {
	resp, err := c.lookup(ctx, "FindUserByEmail", token, map[string]interface{}{"email": email})
	if err != nil {
		return nil, err
	}
	user := resp.GetFields()["user"].GetStructValue()
	if user == nil {
		return nil, nil
	}
	return &domain.User{
		ID:        field(user, "id"),
		FirstName: field(user, "firstName"),
		LastName:  field(user, "lastName"),
		Email:     field(user, "email"),
	}, nil
}

// Transfer calls BankService/Transfer. It is never retried.
func (c *Client) Transfer(ctx context.Context, token domain.Token, cmd domain.TransferCommand) (*domain.Receipt, error) {
	return c.submit(ctx, "Transfer", token, map[string]interface{}{
		"fromAccountId": cmd.FromAccountID,
		"toRib":         cmd.ToRoutingID,
		"amount":        cmd.Amount.String(),
		"description":   cmd.Description,
	})
}

// CreateRequest calls BankService/CreateTransferRequest. It is never retried.
func (c *Client) CreateRequest(ctx context.Context, token domain.Token, cmd domain.TransferRequestCommand) (*domain.Receipt, error) {
	return c.submit(ctx, "CreateTransferRequest", token, map[string]interface{}{
		"toUserId":      cmd.ToUserID,
		"fromAccountId": cmd.FromAccountID,
		"toAccountId":   cmd.ToAccountID,
		"amount":        cmd.Amount.String(),
		"description":   cmd.Description,
	})
}

// Login calls BankService/Login
func (c *Client) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	resp, err := c.lookup(ctx, "Login", "", map[string]interface{}{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	return &domain.LoginResult{
		Message:   field(resp, "message"),
		Token:     domain.Token(field(resp, "token")),
		UserID:    field(resp, "userId"),
		FirstName: field(resp, "firstName"),
		LastName:  field(resp, "lastName"),
		Email:     field(resp, "email"),
	}, nil
}

func (c *Client) lookup(ctx context.Context, method string, token domain.Token, req map[string]interface{}) (*structpb.Struct, error) {
	ctx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()
	return c.invoke(ctx, method, token, req)
}

func (c *Client) submit(ctx context.Context, method string, token domain.Token, req map[string]interface{}) (*domain.Receipt, error) {
	resp, err := c.invoke(ctx, method, token, req)
	if err != nil {
		return nil, err
	}

	receipt := &domain.Receipt{Reference: field(resp, "id")}
	if body, err := protojson.Marshal(resp); err == nil {
		receipt.Body = body
	}
	return receipt, nil
}

// invoke performs one unary call. Every failure is a *domain.APIError.
func (c *Client) invoke(ctx context.Context, method string, token domain.Token, req map[string]interface{}) (*structpb.Struct, error) {
	logger := c.logger.With(zap.String("op", method))
	if id, ok := domain.IntentIDFromContext(ctx); ok {
		logger = logger.With(zap.String("intent_id", id.String()))
	}

	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, &domain.APIError{Err: fmt.Errorf("%w: failed to build request: %w", domain.ErrRequestNotSent, err)}
	}

	out := &structpb.Struct{}
	start := time.Now()
	err = c.conn.Invoke(withToken(ctx, token), "/"+ServiceName+"/"+method, in, out)
	if err != nil {
		apiErr := mapError(err)
		logger.Warn("call failed",
			zap.Int("status", apiErr.StatusCode),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, apiErr
	}

	logger.Debug("call succeeded", zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// mapError converts gRPC status errors to the HTTP-like statuses the core understands.
// Codes that say nothing about whether the server acted map to status 0 (no response).
func mapError(err error) *domain.APIError {
	st, ok := status.FromError(err)
	if !ok {
		return &domain.APIError{Err: err}
	}

	var code int
	switch st.Code() {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		code = 400
	case codes.Unauthenticated:
		code = 401
	case codes.PermissionDenied:
		code = 403
	case codes.NotFound:
		code = 404
	case codes.AlreadyExists, codes.Aborted:
		code = 409
	case codes.ResourceExhausted:
		code = 429
	case codes.Unimplemented:
		code = 501
	case codes.Internal, codes.Unknown, codes.DataLoss:
		code = 500
	default:
		// Unavailable, DeadlineExceeded and Canceled among others
		return &domain.APIError{Err: err}
	}
	return &domain.APIError{StatusCode: code, Body: st.Message(), Err: err}
}

func accountsFromStruct(resp *structpb.Struct) []domain.Account {
	values := resp.GetFields()["accounts"].GetListValue().GetValues()
	accounts := make([]domain.Account, 0, len(values))
	for _, v := range values {
		a := v.GetStructValue()
		if a == nil {
			continue
		}
		balance, err := decimal.NewFromString(field(a, "balance"))
		if err != nil {
			balance = decimal.Zero
		}
		accounts = append(accounts, domain.Account{
			ID:       field(a, "id"),
			UserID:   field(a, "userId"),
			RIB:      field(a, "rib"),
			Balance:  balance,
			Currency: field(a, "currency"),
		})
	}
	return accounts
}

// field reads a string or number field as text
func field(s *structpb.Struct, key string) string {
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(kind.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(kind.BoolValue)
	default:
		return ""
	}
}
