package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driving"
)

// Mock services for testing

type mockAuthService struct {
	authenticateFn   func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	validateTokenFn  func(ctx context.Context, token string) (*domain.AuthContext, error)
	refreshTokenFn   func(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error)
	logoutFn         func(ctx context.Context, token string) error
	changePasswordFn func(ctx context.Context, userID string, req domain.ChangePasswordRequest) error
}

func (m *mockAuthService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error) {
	if m.refreshTokenFn != nil {
		return m.refreshTokenFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

func (m *mockAuthService) LogoutAll(ctx context.Context, userID string) error {
	return nil
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(ctx, userID, req)
	}
	return nil
}

type mockUserService struct {
	setupFn  func(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error)
	createFn func(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error)
	getFn    func(ctx context.Context, id string) (*domain.User, error)
	listFn   func(ctx context.Context) ([]*domain.User, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockUserService) Setup(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
	if m.setupFn != nil {
		return m.setupFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Create(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Get(ctx context.Context, id string) (*domain.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) List(ctx context.Context) ([]*domain.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Update(ctx context.Context, id string, req driving.UpdateUserRequest) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return errors.New("not implemented")
}

func (m *mockUserService) SetPassword(ctx context.Context, id string, password string) error {
	return nil
}

type mockWebSourceService struct {
	createFn func(ctx context.Context, req driving.CreateWebSourceRequest) (*domain.WebSource, error)
	getFn    func(ctx context.Context, id string) (*domain.WebSource, error)
	listFn   func(ctx context.Context) ([]*domain.WebSource, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockWebSourceService) Create(ctx context.Context, req driving.CreateWebSourceRequest) (*domain.WebSource, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockWebSourceService) Get(ctx context.Context, id string) (*domain.WebSource, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockWebSourceService) List(ctx context.Context) ([]*domain.WebSource, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockWebSourceService) Update(ctx context.Context, id string, req driving.UpdateWebSourceRequest) (*domain.WebSource, error) {
	return nil, errors.New("not implemented")
}

func (m *mockWebSourceService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return errors.New("not implemented")
}

type mockClassificationService struct {
	classifyPageFn  func(ctx context.Context, pageID string) (*domain.Classification, error)
	classifyBatchFn func(ctx context.Context, pageIDs []string) (*driving.ClassifyReport, error)
	getRuleFn       func(ctx context.Context, id string) (*domain.ClassificationRule, error)
	suggestFn       func(ctx context.Context, webSourceID string) ([]*domain.ClassificationRule, error)
}

func (m *mockClassificationService) ClassifyPage(ctx context.Context, pageID string) (*domain.Classification, error) {
	if m.classifyPageFn != nil {
		return m.classifyPageFn(ctx, pageID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockClassificationService) ClassifyBatch(ctx context.Context, pageIDs []string) (*driving.ClassifyReport, error) {
	if m.classifyBatchFn != nil {
		return m.classifyBatchFn(ctx, pageIDs)
	}
	return nil, errors.New("not implemented")
}

func (m *mockClassificationService) SaveRule(ctx context.Context, rule *domain.ClassificationRule) error {
	return nil
}

func (m *mockClassificationService) GetRule(ctx context.Context, id string) (*domain.ClassificationRule, error) {
	if m.getRuleFn != nil {
		return m.getRuleFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockClassificationService) ListRules(ctx context.Context, webSourceID string) ([]*domain.ClassificationRule, error) {
	return nil, errors.New("not implemented")
}

func (m *mockClassificationService) DeleteRule(ctx context.Context, id string) error {
	return nil
}

func (m *mockClassificationService) RecordCorrection(ctx context.Context, correction *domain.Correction) error {
	return nil
}

func (m *mockClassificationService) SuggestRules(ctx context.Context, webSourceID string) ([]*domain.ClassificationRule, error) {
	if m.suggestFn != nil {
		return m.suggestFn(ctx, webSourceID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockClassificationService) ListSuggestions(ctx context.Context) ([]*domain.ClassificationRule, error) {
	return nil, errors.New("not implemented")
}

func (m *mockClassificationService) ActivateSuggestion(ctx context.Context, ruleID string) error {
	return nil
}

type mockConsolidationService struct {
	getDocumentFn func(ctx context.Context, id string) (*domain.DocumentWithPages, error)
	listFn        func(ctx context.Context, stage domain.PipelineStage, limit, offset int) ([]*domain.Document, error)
	approveFn     func(ctx context.Context, documentID, reviewer string) error
	batchFn       func(ctx context.Context, pageIDs []string) (*driving.ConsolidationResult, error)
}

func (m *mockConsolidationService) FindOrCreateDocument(ctx context.Context, page *domain.Page) (*domain.Document, error) {
	return nil, errors.New("not implemented")
}

func (m *mockConsolidationService) LinkPage(ctx context.Context, page *domain.Page) (*domain.PageLink, error) {
	return nil, errors.New("not implemented")
}

func (m *mockConsolidationService) ConsolidateBatch(ctx context.Context, pageIDs []string) (*driving.ConsolidationResult, error) {
	if m.batchFn != nil {
		return m.batchFn(ctx, pageIDs)
	}
	return nil, errors.New("not implemented")
}

func (m *mockConsolidationService) RebuildStructure(ctx context.Context, documentID string) (*domain.DocumentStructure, error) {
	return nil, errors.New("not implemented")
}

func (m *mockConsolidationService) GetDocument(ctx context.Context, documentID string) (*domain.DocumentWithPages, error) {
	if m.getDocumentFn != nil {
		return m.getDocumentFn(ctx, documentID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockConsolidationService) ListDocuments(ctx context.Context, stage domain.PipelineStage, limit, offset int) ([]*domain.Document, error) {
	if m.listFn != nil {
		return m.listFn(ctx, stage, limit, offset)
	}
	return nil, errors.New("not implemented")
}

func (m *mockConsolidationService) Approve(ctx context.Context, documentID, reviewer string) error {
	if m.approveFn != nil {
		return m.approveFn(ctx, documentID, reviewer)
	}
	return errors.New("not implemented")
}

func (m *mockConsolidationService) Revoke(ctx context.Context, documentID, reviewer string) error {
	return nil
}

type mockExtractionService struct {
	extractPageFn  func(ctx context.Context, pageID string, opts driving.ExtractOptions) (*domain.Metadata, error)
	extractBatchFn func(ctx context.Context, pageIDs []string, opts driving.ExtractOptions) (*driving.ExtractReport, error)
	getMetadataFn  func(ctx context.Context, pageID string) (*domain.Metadata, error)
}

func (m *mockExtractionService) ExtractPage(ctx context.Context, pageID string, opts driving.ExtractOptions) (*domain.Metadata, error) {
	if m.extractPageFn != nil {
		return m.extractPageFn(ctx, pageID, opts)
	}
	return nil, errors.New("not implemented")
}

func (m *mockExtractionService) ExtractBatch(ctx context.Context, pageIDs []string, opts driving.ExtractOptions) (*driving.ExtractReport, error) {
	if m.extractBatchFn != nil {
		return m.extractBatchFn(ctx, pageIDs, opts)
	}
	return nil, errors.New("not implemented")
}

func (m *mockExtractionService) GetMetadata(ctx context.Context, pageID string) (*domain.Metadata, error) {
	if m.getMetadataFn != nil {
		return m.getMetadataFn(ctx, pageID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockExtractionService) ListVersions(ctx context.Context, pageID string) ([]*domain.Metadata, error) {
	return nil, errors.New("not implemented")
}

type mockPipelineOrchestrator struct {
	checkGateFn func(ctx context.Context, documentID string) (*domain.GateResult, error)
	advanceFn   func(ctx context.Context, documentID, actor string) (*domain.AdvanceResult, error)
	overrideFn  func(ctx context.Context, documentID string, stage domain.PipelineStage, actor, reason string) error
	sweepFn     func(ctx context.Context, dryRun bool) (*driving.SweepReport, error)
}

func (m *mockPipelineOrchestrator) CheckGate(ctx context.Context, documentID string) (*domain.GateResult, error) {
	if m.checkGateFn != nil {
		return m.checkGateFn(ctx, documentID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockPipelineOrchestrator) Advance(ctx context.Context, documentID string, actor string) (*domain.AdvanceResult, error) {
	if m.advanceFn != nil {
		return m.advanceFn(ctx, documentID, actor)
	}
	return nil, errors.New("not implemented")
}

func (m *mockPipelineOrchestrator) AutoAdvance(ctx context.Context, documentID string) (*domain.AdvanceResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockPipelineOrchestrator) Override(ctx context.Context, documentID string, stage domain.PipelineStage, actor, reason string) error {
	if m.overrideFn != nil {
		return m.overrideFn(ctx, documentID, stage, actor, reason)
	}
	return errors.New("not implemented")
}

func (m *mockPipelineOrchestrator) Reject(ctx context.Context, documentID string, actor, reason string) error {
	return errors.New("not implemented")
}

func (m *mockPipelineOrchestrator) BulkAdvance(ctx context.Context, documentIDs []string, actor string) (*domain.BatchResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockPipelineOrchestrator) BulkReject(ctx context.Context, documentIDs []string, actor, reason string) (*domain.BatchResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockPipelineOrchestrator) Sweep(ctx context.Context, dryRun bool) (*driving.SweepReport, error) {
	if m.sweepFn != nil {
		return m.sweepFn(ctx, dryRun)
	}
	return nil, errors.New("not implemented")
}

func (m *mockPipelineOrchestrator) History(ctx context.Context, documentID string) ([]*domain.StageTransition, error) {
	return nil, errors.New("not implemented")
}

type mockRelationService struct {
	getFn     func(ctx context.Context, id string) (*domain.Relation, error)
	confirmFn func(ctx context.Context, id, reviewer string) error
	detectFn  func(ctx context.Context, documentID string) (*driving.DetectReport, error)
}

func (m *mockRelationService) DetectForDocument(ctx context.Context, documentID string) (*driving.DetectReport, error) {
	if m.detectFn != nil {
		return m.detectFn(ctx, documentID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRelationService) DetectBatch(ctx context.Context, documentIDs []string) (*driving.DetectReport, error) {
	return nil, errors.New("not implemented")
}

func (m *mockRelationService) Get(ctx context.Context, id string) (*domain.Relation, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRelationService) List(ctx context.Context, status domain.RelationStatus, relType domain.RelationType, limit, offset int) ([]*domain.Relation, error) {
	return nil, errors.New("not implemented")
}

func (m *mockRelationService) ListForDocument(ctx context.Context, documentID string) ([]*domain.Relation, error) {
	return nil, errors.New("not implemented")
}

func (m *mockRelationService) Confirm(ctx context.Context, id, reviewer string) error {
	if m.confirmFn != nil {
		return m.confirmFn(ctx, id, reviewer)
	}
	return errors.New("not implemented")
}

func (m *mockRelationService) Dismiss(ctx context.Context, id, reviewer string) error {
	return errors.New("not implemented")
}

func (m *mockRelationService) Resolve(ctx context.Context, id, reviewer string) error {
	return errors.New("not implemented")
}

// mockTaskQueue implements driven.TaskQueue for handler tests
var _ driven.TaskQueue = (*mockTaskQueue)(nil)

type mockTaskQueue struct {
	enqueueFn func(ctx context.Context, task *domain.Task) error
	listFn    func(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error)
	statsFn   func(ctx context.Context) (*driven.QueueStats, error)
}

func (m *mockTaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, task)
	}
	return nil
}

func (m *mockTaskQueue) EnqueueBatch(ctx context.Context, tasks []*domain.Task) error {
	return nil
}

func (m *mockTaskQueue) Dequeue(ctx context.Context) (*domain.Task, error) {
	return nil, errors.New("not implemented")
}

func (m *mockTaskQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	return nil, errors.New("not implemented")
}

func (m *mockTaskQueue) Ack(ctx context.Context, taskID string) error {
	return nil
}

func (m *mockTaskQueue) Nack(ctx context.Context, taskID string, reason string) error {
	return nil
}

func (m *mockTaskQueue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	return nil, domain.ErrNotFound
}

func (m *mockTaskQueue) ListTasks(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskQueue) CancelTask(ctx context.Context, taskID string) error {
	return nil
}

func (m *mockTaskQueue) PurgeTasks(ctx context.Context, olderThan int) (int, error) {
	return 0, nil
}

func (m *mockTaskQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &driven.QueueStats{}, nil
}

func (m *mockTaskQueue) Ping(ctx context.Context) error {
	return nil
}

func (m *mockTaskQueue) Close() error {
	return nil
}

// withAuth attaches an auth context the way the middleware does
func withAuth(req *http.Request, authCtx *domain.AuthContext) *http.Request {
	ctx := context.WithValue(req.Context(), authContextKey, authCtx)
	return req.WithContext(ctx)
}

func reviewerCtx() *domain.AuthContext {
	return &domain.AuthContext{
		UserID:    "user-1",
		Email:     "reviewer@example.com",
		Name:      "Reviewer",
		Role:      domain.RoleReviewer,
		SessionID: "session-1",
	}
}

func TestHealthHandler(t *testing.T) {
	server := &Server{version: "test"}

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()

	server.handleHealth(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("expected status 'ok', got %s", response["status"])
	}
}

func TestReadyHandler(t *testing.T) {
	server := &Server{version: "test"}

	req := httptest.NewRequest("GET", "/ready", nil)
	rr := httptest.NewRecorder()

	server.handleReady(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["status"] != "ready" {
		t.Errorf("expected status 'ready', got %s", response["status"])
	}
}

func TestVersionHandler(t *testing.T) {
	server := &Server{version: "1.2.3"}

	req := httptest.NewRequest("GET", "/version", nil)
	rr := httptest.NewRecorder()

	server.handleVersion(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["version"] != "1.2.3" {
		t.Errorf("expected version '1.2.3', got %s", response["version"])
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()

	data := map[string]string{"foo": "bar"}
	writeJSON(rr, http.StatusCreated, data)

	if rr.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", rr.Header().Get("Content-Type"))
	}

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["foo"] != "bar" {
		t.Errorf("expected foo 'bar', got %s", response["foo"])
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()

	writeError(rr, http.StatusBadRequest, "invalid input")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["error"] != "invalid input" {
		t.Errorf("expected error 'invalid input', got %s", response["error"])
	}
}

func TestWriteServiceError_Mapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
		{"already exists", domain.ErrAlreadyExists, http.StatusConflict},
		{"gate failed", domain.ErrGateFailed, http.StatusConflict},
		{"invalid transition", domain.ErrInvalidTransition, http.StatusConflict},
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"invalid condition", domain.ErrInvalidCondition, http.StatusBadRequest},
		{"collaborator down", domain.ErrCollaboratorUnavailable, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeServiceError(rr, tt.err, "fallback")
			if rr.Code != tt.code {
				t.Errorf("expected status %d, got %d", tt.code, rr.Code)
			}
		})
	}
}

// Authentication handler tests

func TestHandleLogin_Success(t *testing.T) {
	expiresAt := time.Now().Add(1 * time.Hour)
	mockAuth := &mockAuthService{
		authenticateFn: func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
			if req.Email == "test@example.com" && req.Password == "password123" {
				return &domain.LoginResponse{
					Token:        "test-token",
					RefreshToken: "refresh-token",
					ExpiresAt:    expiresAt,
					User: &domain.UserSummary{
						ID:    "user-1",
						Email: "test@example.com",
						Name:  "Test User",
						Role:  domain.RoleAdmin,
					},
				}, nil
			}
			return nil, domain.ErrInvalidCredentials
		},
	}

	server := &Server{authService: mockAuth}

	body, _ := json.Marshal(domain.LoginRequest{
		Email:    "test@example.com",
		Password: "password123",
	})
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	server.handleLogin(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response domain.LoginResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Token != "test-token" {
		t.Errorf("expected token 'test-token', got %s", response.Token)
	}
	if response.User.Email != "test@example.com" {
		t.Errorf("expected email 'test@example.com', got %s", response.User.Email)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	mockAuth := &mockAuthService{
		authenticateFn: func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}

	server := &Server{authService: mockAuth}

	body, _ := json.Marshal(domain.LoginRequest{
		Email:    "wrong@example.com",
		Password: "wrongpass",
	})
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	server.handleLogin(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["error"] != "invalid credentials" {
		t.Errorf("expected error 'invalid credentials', got %s", response["error"])
	}
}

func TestHandleLogin_InvalidJSON(t *testing.T) {
	server := &Server{}

	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString("invalid json"))
	rr := httptest.NewRecorder()

	server.handleLogin(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleLogout_NoToken(t *testing.T) {
	server := &Server{}

	req := httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
	rr := httptest.NewRecorder()

	server.handleLogout(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestHandleChangePassword_WrongCurrent(t *testing.T) {
	mockAuth := &mockAuthService{
		changePasswordFn: func(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
			return domain.ErrInvalidCredentials
		},
	}
	server := &Server{authService: mockAuth}

	body, _ := json.Marshal(domain.ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "newpassword123",
	})
	req := withAuth(httptest.NewRequest("POST", "/api/v1/me/password", bytes.NewBuffer(body)), reviewerCtx())
	rr := httptest.NewRecorder()

	server.handleChangePassword(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestHandleSetup_AlreadyComplete(t *testing.T) {
	mockUsers := &mockUserService{
		setupFn: func(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
			return nil, domain.ErrForbidden
		},
	}
	server := &Server{userService: mockUsers}

	body, _ := json.Marshal(driving.SetupRequest{
		Email:    "admin@example.com",
		Password: "password123",
		Name:     "Admin",
	})
	req := httptest.NewRequest("POST", "/api/v1/setup", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	server.handleSetup(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}
}

// Web source handler tests

func TestHandleCreateSource(t *testing.T) {
	mockSources := &mockWebSourceService{
		createFn: func(ctx context.Context, req driving.CreateWebSourceRequest) (*domain.WebSource, error) {
			return &domain.WebSource{
				ID:      "source-1",
				Name:    req.Name,
				BaseURL: req.BaseURL,
				Host:    "www.jibaya.tn",
				Enabled: true,
			}, nil
		},
	}
	server := &Server{webSourceService: mockSources}

	body, _ := json.Marshal(driving.CreateWebSourceRequest{
		Name:    "Jibaya",
		BaseURL: "https://www.jibaya.tn/",
	})
	req := httptest.NewRequest("POST", "/api/v1/sources", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	server.handleCreateSource(rr, req)

	if rr.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rr.Code)
	}

	var source domain.WebSource
	if err := json.NewDecoder(rr.Body).Decode(&source); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if source.Host != "www.jibaya.tn" {
		t.Errorf("expected host 'www.jibaya.tn', got %s", source.Host)
	}
}

func TestHandleCreateSource_DuplicateHost(t *testing.T) {
	mockSources := &mockWebSourceService{
		createFn: func(ctx context.Context, req driving.CreateWebSourceRequest) (*domain.WebSource, error) {
			return nil, domain.ErrAlreadyExists
		},
	}
	server := &Server{webSourceService: mockSources}

	body, _ := json.Marshal(driving.CreateWebSourceRequest{
		Name:    "Jibaya",
		BaseURL: "https://www.jibaya.tn/",
	})
	req := httptest.NewRequest("POST", "/api/v1/sources", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	server.handleCreateSource(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

// Classification handler tests

func TestHandleClassifyBatch(t *testing.T) {
	mockClassify := &mockClassificationService{
		classifyBatchFn: func(ctx context.Context, pageIDs []string) (*driving.ClassifyReport, error) {
			if len(pageIDs) != 2 {
				t.Errorf("expected 2 page IDs, got %d", len(pageIDs))
			}
			return &driving.ClassifyReport{Classified: 1, Unmatched: 1}, nil
		},
	}
	server := &Server{classification: mockClassify}

	body, _ := json.Marshal(pageBatchRequest{PageIDs: []string{"page-1", "page-2"}})
	req := httptest.NewRequest("POST", "/api/v1/classify", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	server.handleClassifyBatch(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var report driving.ClassifyReport
	if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if report.Classified != 1 || report.Unmatched != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestHandleClassifyBatch_EmptyPageIDs(t *testing.T) {
	server := &Server{}

	body, _ := json.Marshal(pageBatchRequest{})
	req := httptest.NewRequest("POST", "/api/v1/classify", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	server.handleClassifyBatch(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleClassifyPage_NoMatch(t *testing.T) {
	mockClassify := &mockClassificationService{
		classifyPageFn: func(ctx context.Context, pageID string) (*domain.Classification, error) {
			return nil, nil
		},
	}
	server := &Server{classification: mockClassify}

	req := httptest.NewRequest("POST", "/api/v1/pages/page-1/classify", nil)
	req.SetPathValue("id", "page-1")
	rr := httptest.NewRecorder()

	server.handleClassifyPage(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rr.Code)
	}
}

func TestHandleClassifyPage_Match(t *testing.T) {
	mockClassify := &mockClassificationService{
		classifyPageFn: func(ctx context.Context, pageID string) (*domain.Classification, error) {
			return &domain.Classification{
				PageID:     pageID,
				RuleID:     "rule-1",
				Category:   "jurisprudence",
				Confidence: 0.9,
			}, nil
		},
	}
	server := &Server{classification: mockClassify}

	req := httptest.NewRequest("POST", "/api/v1/pages/page-1/classify", nil)
	req.SetPathValue("id", "page-1")
	rr := httptest.NewRecorder()

	server.handleClassifyPage(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var classification domain.Classification
	if err := json.NewDecoder(rr.Body).Decode(&classification); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if classification.Category != "jurisprudence" {
		t.Errorf("expected category 'jurisprudence', got %s", classification.Category)
	}
}

// Document handler tests

func TestHandleExtractBatch_StrategyFlags(t *testing.T) {
	var gotOpts driving.ExtractOptions
	mockExtract := &mockExtractionService{
		extractBatchFn: func(ctx context.Context, pageIDs []string, opts driving.ExtractOptions) (*driving.ExtractReport, error) {
			gotOpts = opts
			return &driving.ExtractReport{Extracted: len(pageIDs)}, nil
		},
	}
	server := &Server{extraction: mockExtract}

	body := []byte(`{"page_ids":["page-1","page-2"],"force_reextract":true,"use_regex_only":true}`)
	req := httptest.NewRequest("POST", "/api/v1/extract", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	server.handleExtractBatch(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if !gotOpts.ForceReextract || !gotOpts.UseRegexOnly || gotOpts.UseLLMOnly {
		t.Errorf("strategy flags not forwarded: %+v", gotOpts)
	}
}

func TestHandleExtractPage_EmptyBodyIsHybridDefault(t *testing.T) {
	var gotOpts driving.ExtractOptions
	mockExtract := &mockExtractionService{
		extractPageFn: func(ctx context.Context, pageID string, opts driving.ExtractOptions) (*domain.Metadata, error) {
			gotOpts = opts
			return &domain.Metadata{PageID: pageID, Version: 1}, nil
		},
	}
	server := &Server{extraction: mockExtract}

	req := httptest.NewRequest("POST", "/api/v1/pages/page-1/extract", nil)
	req.SetPathValue("id", "page-1")
	rr := httptest.NewRecorder()

	server.handleExtractPage(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if gotOpts != (driving.ExtractOptions{}) {
		t.Errorf("expected zero-value options for an empty body, got %+v", gotOpts)
	}
}

func TestHandleExtractPage_LLMOnlyForwarded(t *testing.T) {
	mockExtract := &mockExtractionService{
		extractPageFn: func(ctx context.Context, pageID string, opts driving.ExtractOptions) (*domain.Metadata, error) {
			if !opts.UseLLMOnly {
				t.Error("use_llm_only not forwarded")
			}
			return nil, domain.ErrCollaboratorUnavailable
		},
	}
	server := &Server{extraction: mockExtract}

	req := httptest.NewRequest("POST", "/api/v1/pages/page-1/extract", bytes.NewBufferString(`{"use_llm_only":true}`))
	req.SetPathValue("id", "page-1")
	rr := httptest.NewRecorder()

	server.handleExtractPage(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", rr.Code)
	}
}

func TestHandleGetDocument_NotFound(t *testing.T) {
	mockConsolidate := &mockConsolidationService{
		getDocumentFn: func(ctx context.Context, id string) (*domain.DocumentWithPages, error) {
			return nil, domain.ErrNotFound
		},
	}
	server := &Server{consolidation: mockConsolidate}

	req := httptest.NewRequest("GET", "/api/v1/documents/missing", nil)
	req.SetPathValue("id", "missing")
	rr := httptest.NewRecorder()

	server.handleGetDocument(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleListDocuments_UnknownStage(t *testing.T) {
	server := &Server{}

	req := httptest.NewRequest("GET", "/api/v1/documents?stage=bogus", nil)
	rr := httptest.NewRecorder()

	server.handleListDocuments(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleListDocuments_StageFilter(t *testing.T) {
	mockConsolidate := &mockConsolidationService{
		listFn: func(ctx context.Context, stage domain.PipelineStage, limit, offset int) ([]*domain.Document, error) {
			if stage != domain.StageClassified {
				t.Errorf("expected stage classified, got %s", stage)
			}
			if limit != 10 || offset != 20 {
				t.Errorf("expected limit 10 offset 20, got %d/%d", limit, offset)
			}
			return []*domain.Document{{ID: "doc-1", Stage: stage}}, nil
		},
	}
	server := &Server{consolidation: mockConsolidate}

	req := httptest.NewRequest("GET", "/api/v1/documents?stage=classified&limit=10&offset=20", nil)
	rr := httptest.NewRecorder()

	server.handleListDocuments(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var docs []*domain.Document
	if err := json.NewDecoder(rr.Body).Decode(&docs); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "doc-1" {
		t.Errorf("unexpected documents: %+v", docs)
	}
}

func TestHandleApproveDocument_UsesReviewerEmail(t *testing.T) {
	var gotReviewer string
	mockConsolidate := &mockConsolidationService{
		approveFn: func(ctx context.Context, documentID, reviewer string) error {
			gotReviewer = reviewer
			return nil
		},
	}
	server := &Server{consolidation: mockConsolidate}

	req := withAuth(httptest.NewRequest("POST", "/api/v1/documents/doc-1/approve", nil), reviewerCtx())
	req.SetPathValue("id", "doc-1")
	rr := httptest.NewRecorder()

	server.handleApproveDocument(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if gotReviewer != "reviewer@example.com" {
		t.Errorf("expected reviewer email, got %s", gotReviewer)
	}
}

// Pipeline handler tests

func TestHandleCheckGate(t *testing.T) {
	mockPipe := &mockPipelineOrchestrator{
		checkGateFn: func(ctx context.Context, documentID string) (*domain.GateResult, error) {
			return &domain.GateResult{Eligible: false, Reason: "text < 100 chars"}, nil
		},
	}
	server := &Server{pipeline: mockPipe}

	req := httptest.NewRequest("GET", "/api/v1/documents/doc-1/gate", nil)
	req.SetPathValue("id", "doc-1")
	rr := httptest.NewRecorder()

	server.handleCheckGate(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var result domain.GateResult
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Eligible {
		t.Error("expected gate to block")
	}
	if result.Reason != "text < 100 chars" {
		t.Errorf("expected gate reason, got %s", result.Reason)
	}
}

func TestHandleAdvance_GateFailed(t *testing.T) {
	mockPipe := &mockPipelineOrchestrator{
		advanceFn: func(ctx context.Context, documentID, actor string) (*domain.AdvanceResult, error) {
			return nil, domain.ErrGateFailed
		},
	}
	server := &Server{pipeline: mockPipe}

	req := withAuth(httptest.NewRequest("POST", "/api/v1/documents/doc-1/advance", nil), reviewerCtx())
	req.SetPathValue("id", "doc-1")
	rr := httptest.NewRecorder()

	server.handleAdvance(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestHandleOverride_UnknownStage(t *testing.T) {
	server := &Server{}

	body, _ := json.Marshal(overrideRequest{Stage: "bogus", Reason: "because"})
	req := withAuth(httptest.NewRequest("POST", "/api/v1/documents/doc-1/override", bytes.NewBuffer(body)), reviewerCtx())
	req.SetPathValue("id", "doc-1")
	rr := httptest.NewRecorder()

	server.handleOverride(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleOverride(t *testing.T) {
	var gotStage domain.PipelineStage
	var gotReason string
	mockPipe := &mockPipelineOrchestrator{
		overrideFn: func(ctx context.Context, documentID string, stage domain.PipelineStage, actor, reason string) error {
			gotStage = stage
			gotReason = reason
			return nil
		},
	}
	server := &Server{pipeline: mockPipe}

	body, _ := json.Marshal(overrideRequest{Stage: "indexed", Reason: "manual backfill"})
	req := withAuth(httptest.NewRequest("POST", "/api/v1/documents/doc-1/override", bytes.NewBuffer(body)), reviewerCtx())
	req.SetPathValue("id", "doc-1")
	rr := httptest.NewRecorder()

	server.handleOverride(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if gotStage != domain.StageIndexed {
		t.Errorf("expected stage indexed, got %s", gotStage)
	}
	if gotReason != "manual backfill" {
		t.Errorf("expected reason, got %s", gotReason)
	}
}

func TestHandleSweep_DryRun(t *testing.T) {
	mockPipe := &mockPipelineOrchestrator{
		sweepFn: func(ctx context.Context, dryRun bool) (*driving.SweepReport, error) {
			if !dryRun {
				t.Error("expected dry run")
			}
			return &driving.SweepReport{Scanned: 12, Advanced: 3, Blocked: 9, DryRun: true}, nil
		},
	}
	server := &Server{pipeline: mockPipe}

	body, _ := json.Marshal(sweepRequest{DryRun: true})
	req := httptest.NewRequest("POST", "/api/v1/pipeline/sweep", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	server.handleSweep(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var report driving.SweepReport
	if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if report.Scanned != 12 || !report.DryRun {
		t.Errorf("unexpected report: %+v", report)
	}
}

// Relation handler tests

func TestHandleGetRelation(t *testing.T) {
	mockRels := &mockRelationService{
		getFn: func(ctx context.Context, id string) (*domain.Relation, error) {
			return &domain.Relation{
				ID:               id,
				SourceDocumentID: "doc-1",
				TargetDocumentID: "doc-2",
				Type:             domain.RelationDuplicate,
				Similarity:       0.97,
				Status:           domain.RelationPending,
			}, nil
		},
	}
	server := &Server{relations: mockRels}

	req := httptest.NewRequest("GET", "/api/v1/relations/rel-1", nil)
	req.SetPathValue("id", "rel-1")
	rr := httptest.NewRecorder()

	server.handleGetRelation(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var relation domain.Relation
	if err := json.NewDecoder(rr.Body).Decode(&relation); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if relation.Type != domain.RelationDuplicate {
		t.Errorf("expected duplicate relation, got %s", relation.Type)
	}
}

func TestHandleConfirmRelation_NotPending(t *testing.T) {
	mockRels := &mockRelationService{
		confirmFn: func(ctx context.Context, id, reviewer string) error {
			return domain.ErrInvalidTransition
		},
	}
	server := &Server{relations: mockRels}

	req := withAuth(httptest.NewRequest("POST", "/api/v1/relations/rel-1/confirm", nil), reviewerCtx())
	req.SetPathValue("id", "rel-1")
	rr := httptest.NewRecorder()

	server.handleConfirmRelation(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestHandleDetectForDocument(t *testing.T) {
	mockRels := &mockRelationService{
		detectFn: func(ctx context.Context, documentID string) (*driving.DetectReport, error) {
			return &driving.DetectReport{Compared: 5, Duplicates: 1, Contradictions: 1}, nil
		},
	}
	server := &Server{relations: mockRels}

	req := httptest.NewRequest("POST", "/api/v1/documents/doc-1/relations/detect", nil)
	req.SetPathValue("id", "doc-1")
	rr := httptest.NewRecorder()

	server.handleDetectForDocument(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var report driving.DetectReport
	if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if report.Compared != 5 || report.Duplicates != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
}

// Task handler tests

func TestHandleEnqueueTask_UnknownType(t *testing.T) {
	server := &Server{}

	body, _ := json.Marshal(enqueueTaskRequest{Type: "mystery"})
	req := httptest.NewRequest("POST", "/api/v1/tasks", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	server.handleEnqueueTask(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleEnqueueTask(t *testing.T) {
	var enqueued *domain.Task
	queue := &mockTaskQueue{
		enqueueFn: func(ctx context.Context, task *domain.Task) error {
			enqueued = task
			return nil
		},
	}
	server := &Server{taskQueue: queue}

	body, _ := json.Marshal(enqueueTaskRequest{
		Type:    "detect_relations",
		Payload: map[string]string{"document_id": "doc-9"},
	})
	req := httptest.NewRequest("POST", "/api/v1/tasks", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	server.handleEnqueueTask(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Errorf("expected status 202, got %d", rr.Code)
	}
	if enqueued == nil {
		t.Fatal("expected task to be enqueued")
	}
	if enqueued.Type != domain.TaskTypeDetectRelations {
		t.Errorf("expected detect_relations task, got %s", enqueued.Type)
	}
	if enqueued.DocumentID() != "doc-9" {
		t.Errorf("expected document_id 'doc-9', got %s", enqueued.DocumentID())
	}
}

func TestHandleListTasks_Filter(t *testing.T) {
	queue := &mockTaskQueue{
		listFn: func(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error) {
			if filter.Status != domain.TaskStatusPending {
				t.Errorf("expected pending filter, got %s", filter.Status)
			}
			if filter.Limit != 50 {
				t.Errorf("expected default limit 50, got %d", filter.Limit)
			}
			return []*domain.Task{domain.NewConsolidateTask("doc-1")}, nil
		},
	}
	server := &Server{taskQueue: queue}

	req := httptest.NewRequest("GET", "/api/v1/tasks?status=pending", nil)
	rr := httptest.NewRecorder()

	server.handleListTasks(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var tasks []*domain.Task
	if err := json.NewDecoder(rr.Body).Decode(&tasks); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("expected 1 task, got %d", len(tasks))
	}
}
