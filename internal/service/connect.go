package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/settlewise/internal/rpc"
)

const (
	SettlementServiceName = "settlewise.v1.SettlementService"
	AuthServiceName       = "settlewise.v1.AuthService"
)

const (
	CreateSettlementProcedure = "/" + SettlementServiceName + "/CreateSettlement"
	GetSettlementProcedure    = "/" + SettlementServiceName + "/GetSettlement"
	ListSettlementsProcedure  = "/" + SettlementServiceName + "/ListSettlements"
	AddParticipantsProcedure  = "/" + SettlementServiceName + "/AddParticipants"
	AddExpenseProcedure       = "/" + SettlementServiceName + "/AddExpense"
	ListExpensesProcedure     = "/" + SettlementServiceName + "/ListExpenses"
	DeleteExpenseProcedure    = "/" + SettlementServiceName + "/DeleteExpense"
	PreviewBalancesProcedure  = "/" + SettlementServiceName + "/PreviewBalances"
	CloseSettlementProcedure  = "/" + SettlementServiceName + "/CloseSettlement"
	GetSnapshotProcedure      = "/" + SettlementServiceName + "/GetSnapshot"

	RegisterProcedure       = "/" + AuthServiceName + "/Register"
	LoginProcedure          = "/" + AuthServiceName + "/Login"
	GetCurrentUserProcedure = "/" + AuthServiceName + "/GetCurrentUser"
)

func handle[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts []connect.HandlerOption,
) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

// NewSettlementServiceHandler builds the HTTP handler for every SettlementService
// procedure and returns the path prefix to mount it on.
func NewSettlementServiceHandler(svc *SettlementService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{rpc.WithCodec()}, opts...)
	mux := http.NewServeMux()
	handle(mux, CreateSettlementProcedure, svc.CreateSettlement, opts)
	handle(mux, GetSettlementProcedure, svc.GetSettlement, opts)
	handle(mux, ListSettlementsProcedure, svc.ListSettlements, opts)
	handle(mux, AddParticipantsProcedure, svc.AddParticipants, opts)
	handle(mux, AddExpenseProcedure, svc.AddExpense, opts)
	handle(mux, ListExpensesProcedure, svc.ListExpenses, opts)
	handle(mux, DeleteExpenseProcedure, svc.DeleteExpense, opts)
	handle(mux, PreviewBalancesProcedure, svc.PreviewBalances, opts)
	handle(mux, CloseSettlementProcedure, svc.CloseSettlement, opts)
	handle(mux, GetSnapshotProcedure, svc.GetSnapshot, opts)
	return "/" + SettlementServiceName + "/", mux
}

// NewAuthServiceHandler builds the AuthService handler. Register and Login are
// public; authOpts apply to GetCurrentUser only.
func NewAuthServiceHandler(svc *AuthService, opts []connect.HandlerOption, authOpts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{rpc.WithCodec()}, opts...)
	mux := http.NewServeMux()
	handle(mux, RegisterProcedure, svc.Register, opts)
	handle(mux, LoginProcedure, svc.Login, opts)
	handle(mux, GetCurrentUserProcedure, svc.GetCurrentUser, append(opts, authOpts...))
	return "/" + AuthServiceName + "/", mux
}

// SettlementServiceClient calls SettlementService over Connect with the JSON codec.
type SettlementServiceClient struct {
	createSettlement *connect.Client[CreateSettlementRequest, CreateSettlementResponse]
	getSettlement    *connect.Client[GetSettlementRequest, GetSettlementResponse]
	listSettlements  *connect.Client[ListSettlementsRequest, ListSettlementsResponse]
	addParticipants  *connect.Client[AddParticipantsRequest, AddParticipantsResponse]
	addExpense       *connect.Client[AddExpenseRequest, AddExpenseResponse]
	listExpenses     *connect.Client[ListExpensesRequest, ListExpensesResponse]
	deleteExpense    *connect.Client[DeleteExpenseRequest, DeleteExpenseResponse]
	previewBalances  *connect.Client[PreviewBalancesRequest, PreviewBalancesResponse]
	closeSettlement  *connect.Client[CloseSettlementRequest, CloseSettlementResponse]
	getSnapshot      *connect.Client[GetSnapshotRequest, GetSnapshotResponse]
}

// NewSettlementServiceClient constructs a client for the service at baseURL.
func NewSettlementServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SettlementServiceClient {
	opts = append([]connect.ClientOption{rpc.WithCodec()}, opts...)
	return &SettlementServiceClient{
		createSettlement: connect.NewClient[CreateSettlementRequest, CreateSettlementResponse](httpClient, baseURL+CreateSettlementProcedure, opts...),
		getSettlement:    connect.NewClient[GetSettlementRequest, GetSettlementResponse](httpClient, baseURL+GetSettlementProcedure, opts...),
		listSettlements:  connect.NewClient[ListSettlementsRequest, ListSettlementsResponse](httpClient, baseURL+ListSettlementsProcedure, opts...),
		addParticipants:  connect.NewClient[AddParticipantsRequest, AddParticipantsResponse](httpClient, baseURL+AddParticipantsProcedure, opts...),
		addExpense:       connect.NewClient[AddExpenseRequest, AddExpenseResponse](httpClient, baseURL+AddExpenseProcedure, opts...),
		listExpenses:     connect.NewClient[ListExpensesRequest, ListExpensesResponse](httpClient, baseURL+ListExpensesProcedure, opts...),
		deleteExpense:    connect.NewClient[DeleteExpenseRequest, DeleteExpenseResponse](httpClient, baseURL+DeleteExpenseProcedure, opts...),
		previewBalances:  connect.NewClient[PreviewBalancesRequest, PreviewBalancesResponse](httpClient, baseURL+PreviewBalancesProcedure, opts...),
		closeSettlement:  connect.NewClient[CloseSettlementRequest, CloseSettlementResponse](httpClient, baseURL+CloseSettlementProcedure, opts...),
		getSnapshot:      connect.NewClient[GetSnapshotRequest, GetSnapshotResponse](httpClient, baseURL+GetSnapshotProcedure, opts...),
	}
}

func (c *SettlementServiceClient) CreateSettlement(ctx context.Context, req *connect.Request[CreateSettlementRequest]) (*connect.Response[CreateSettlementResponse], error) {
	return c.createSettlement.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) GetSettlement(ctx context.Context, req *connect.Request[GetSettlementRequest]) (*connect.Response[GetSettlementResponse], error) {
	return c.getSettlement.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) ListSettlements(ctx context.Context, req *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error) {
	return c.listSettlements.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) AddParticipants(ctx context.Context, req *connect.Request[AddParticipantsRequest]) (*connect.Response[AddParticipantsResponse], error) {
	return c.addParticipants.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) AddExpense(ctx context.Context, req *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error) {
	return c.addExpense.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) PreviewBalances(ctx context.Context, req *connect.Request[PreviewBalancesRequest]) (*connect.Response[PreviewBalancesResponse], error) {
	return c.previewBalances.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) CloseSettlement(ctx context.Context, req *connect.Request[CloseSettlementRequest]) (*connect.Response[CloseSettlementResponse], error) {
	return c.closeSettlement.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) GetSnapshot(ctx context.Context, req *connect.Request[GetSnapshotRequest]) (*connect.Response[GetSnapshotResponse], error) {
	return c.getSnapshot.CallUnary(ctx, req)
}

// AuthServiceClient calls AuthService over Connect with the JSON codec.
type AuthServiceClient struct {
	register       *connect.Client[RegisterRequest, RegisterResponse]
	login          *connect.Client[LoginRequest, LoginResponse]
	getCurrentUser *connect.Client[GetCurrentUserRequest, GetCurrentUserResponse]
}

// NewAuthServiceClient constructs a client for the service at baseURL.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthServiceClient {
	opts = append([]connect.ClientOption{rpc.WithCodec()}, opts...)
	return &AuthServiceClient{
		register:       connect.NewClient[RegisterRequest, RegisterResponse](httpClient, baseURL+RegisterProcedure, opts...),
		login:          connect.NewClient[LoginRequest, LoginResponse](httpClient, baseURL+LoginProcedure, opts...),
		getCurrentUser: connect.NewClient[GetCurrentUserRequest, GetCurrentUserResponse](httpClient, baseURL+GetCurrentUserProcedure, opts...),
	}
}

func (c *AuthServiceClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *AuthServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *AuthServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}
