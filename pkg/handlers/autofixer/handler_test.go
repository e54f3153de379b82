package autofixer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/de-tools/autofixer/pkg/models/api"
	"github.com/de-tools/autofixer/pkg/models/domain"
	"github.com/de-tools/autofixer/pkg/services/lifecycle"
	"github.com/de-tools/autofixer/pkg/services/remote"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockController struct {
	mock.Mock
}

func (m *mockController) Diagnose(ctx context.Context) ([]domain.Issue, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Issue), args.Error(1)
}

func (m *mockController) RequestFix(ctx context.Context, issueID string) (domain.FixProposal, error) {
	args := m.Called(ctx, issueID)
	return args.Get(0).(domain.FixProposal), args.Error(1)
}

func (m *mockController) ApplyFix(ctx context.Context, issueID string, generatedAt uint64) (domain.ApplyResult, error) {
	args := m.Called(ctx, issueID, generatedAt)
	return args.Get(0).(domain.ApplyResult), args.Error(1)
}

func (m *mockController) Benchmark(ctx context.Context, proposal domain.FixProposal) (domain.BenchmarkResult, error) {
	args := m.Called(ctx, proposal)
	return args.Get(0).(domain.BenchmarkResult), args.Error(1)
}

func (m *mockController) Cancel(ctx context.Context, issueID string) (domain.IssueStatus, error) {
	args := m.Called(ctx, issueID)
	return args.Get(0).(domain.IssueStatus), args.Error(1)
}

func (m *mockController) Status(issueID string) (domain.IssueStatus, error) {
	args := m.Called(issueID)
	return args.Get(0).(domain.IssueStatus), args.Error(1)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestDiagnose(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*mockController)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "successful response keeps detection order",
			setupMock: func(m *mockController) {
				m.On("Diagnose", mock.Anything).Return([]domain.Issue{
					{ID: "I2", Severity: domain.SeverityWarning, Category: "query", AffectedResource: "logs-*"},
					{ID: "I1", Severity: domain.SeverityCritical, Category: "shard", AffectedResource: "idx-1"},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody: `[
				{"issue_id":"I2","severity":"warning","category":"query","description":"","affected_resource":"logs-*"},
				{"issue_id":"I1","severity":"critical","category":"shard","description":"","affected_resource":"idx-1"}
			]`,
		},
		{
			name: "empty snapshot is an empty array",
			setupMock: func(m *mockController) {
				m.On("Diagnose", mock.Anything).Return([]domain.Issue{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `[]`,
		},
		{
			name: "malformed and unavailable look the same",
			setupMock: func(m *mockController) {
				m.On("Diagnose", mock.Anything).Return(nil, &remote.Error{Kind: remote.KindMalformed})
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `{"status":"error","message":"Backend Unavailable"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := new(mockController)
			tt.setupMock(ctrl)
			handler := NewHandler(ctrl)

			req := httptest.NewRequest(http.MethodGet, "/diagnose", nil)
			rec := httptest.NewRecorder()

			handler.Diagnose(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			ctrl.AssertExpectations(t)
		})
	}
}

func TestGenerateFix(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*mockController)
		expectedStatus int
		expectedError  *api.ErrorResponse
	}{
		{
			name: "successful response",
			body: `{"issue_id":"I1","severity":"critical","category":"shard"}`,
			setupMock: func(m *mockController) {
				m.On("RequestFix", mock.Anything, "I1").Return(domain.FixProposal{
					IssueID:     "I1",
					Explanation: "merge shards",
					FixedCode:   domain.Blob(`{"number_of_shards":3}`),
					GeneratedAt: 4,
				}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid json",
			body:           `{"issue_id":`,
			setupMock:      func(m *mockController) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  &api.ErrorResponse{Status: "error", Message: MsgInvalidRequest},
		},
		{
			name:           "missing issue id",
			body:           `{"category":"shard"}`,
			setupMock:      func(m *mockController) {},
			expectedStatus: http.StatusBadRequest,
			expectedError: &api.ErrorResponse{
				Status:  "error",
				Message: MsgInvalidRequest,
				Detail:  "issue_id is required",
			},
		},
		{
			name: "unknown issue",
			body: `{"issue_id":"unknown-id"}`,
			setupMock: func(m *mockController) {
				m.On("RequestFix", mock.Anything, "unknown-id").
					Return(domain.FixProposal{}, fmt.Errorf("%w: unknown-id", lifecycle.ErrIssueNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedError: &api.ErrorResponse{
				Status:  "error",
				Message: MsgFixGenerationFailed,
				Detail:  lifecycle.ErrIssueNotFound.Error(),
			},
		},
		{
			name: "already in progress",
			body: `{"issue_id":"I1"}`,
			setupMock: func(m *mockController) {
				m.On("RequestFix", mock.Anything, "I1").
					Return(domain.FixProposal{}, fmt.Errorf("%w: I1", lifecycle.ErrAlreadyInProgress))
			},
			expectedStatus: http.StatusConflict,
			expectedError: &api.ErrorResponse{
				Status:  "error",
				Message: MsgFixGenerationFailed,
				Detail:  lifecycle.ErrAlreadyInProgress.Error(),
			},
		},
		{
			name: "backend unavailable",
			body: `{"issue_id":"I1"}`,
			setupMock: func(m *mockController) {
				m.On("RequestFix", mock.Anything, "I1").
					Return(domain.FixProposal{}, fmt.Errorf("generate fix: %w", &remote.Error{Kind: remote.KindUnavailable}))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  &api.ErrorResponse{Status: "error", Message: MsgFixGenerationFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := new(mockController)
			tt.setupMock(ctrl)
			handler := NewHandler(ctrl)

			req := httptest.NewRequest(http.MethodPost, "/generate-fix", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			handler.GenerateFix(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedError != nil {
				assert.Equal(t, *tt.expectedError, decodeError(t, rec))
			} else {
				var proposal api.FixProposal
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&proposal))
				assert.Equal(t, "I1", proposal.IssueID)
				assert.Equal(t, uint64(4), proposal.GeneratedAt)
				assert.JSONEq(t, `{"number_of_shards":3}`, string(proposal.FixedCode))
			}
			ctrl.AssertExpectations(t)
		})
	}
}

func TestApplyFix(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*mockController)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "successful response",
			body: `{"issue_id":"I1","explanation":"merge","generated_at":7}`,
			setupMock: func(m *mockController) {
				m.On("ApplyFix", mock.Anything, "I1", uint64(7)).
					Return(domain.ApplyResult{Status: domain.ApplyStatusSuccess, Message: "Applied"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"success","message":"Applied"}`,
		},
		{
			name: "no proposal",
			body: `{"issue_id":"I1"}`,
			setupMock: func(m *mockController) {
				m.On("ApplyFix", mock.Anything, "I1", uint64(0)).
					Return(domain.ApplyResult{}, lifecycle.ErrNoProposal)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"status":"error","message":"Apply Fix Failed","detail":"no ready fix proposal for this issue"}`,
		},
		{
			name: "backend rejection carries detail",
			body: `{"issue_id":"I1"}`,
			setupMock: func(m *mockController) {
				m.On("ApplyFix", mock.Anything, "I1", uint64(0)).Return(domain.ApplyResult{}, &remote.Error{
					Kind:   remote.KindRejected,
					Status: http.StatusBadRequest,
					Body:   []byte(`{"detail":"Invalid Elasticsearch syntax."}`),
				})
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody: `{"status":"error","message":"Apply Fix Failed",` +
				`"detail":"{\"detail\":\"Invalid Elasticsearch syntax.\"}"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := new(mockController)
			tt.setupMock(ctrl)
			handler := NewHandler(ctrl)

			req := httptest.NewRequest(http.MethodPost, "/apply-fix", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			handler.ApplyFix(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			ctrl.AssertExpectations(t)
		})
	}
}

func TestBenchmark(t *testing.T) {
	ctrl := new(mockController)
	ctrl.On("Benchmark", mock.Anything, mock.MatchedBy(func(p domain.FixProposal) bool {
		return p.IssueID == "I1" && string(p.FixedCode) == `{"query":{}}`
	})).Return(domain.BenchmarkResult{
		LatencyBeforeMs:       100,
		LatencyAfterMs:        40,
		ImprovementPercentage: 60,
		IsSafe:                true,
	}, nil).Once()
	ctrl.On("Benchmark", mock.Anything, mock.Anything).
		Return(domain.BenchmarkResult{}, &remote.Error{Kind: remote.KindUnavailable}).Once()
	handler := NewHandler(ctrl)

	body := `{"issue_id":"I1","fixed_code":{"query":{}}}`

	rec := httptest.NewRecorder()
	handler.Benchmark(rec, httptest.NewRequest(http.MethodPost, "/benchmark", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"latency_before_ms":100,"latency_after_ms":40,"cpu_before":0,"cpu_after":0,`+
		`"improvement_percentage":60,"is_safe":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.Benchmark(rec, httptest.NewRequest(http.MethodPost, "/benchmark", strings.NewReader(body)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, api.ErrorResponse{Status: "error", Message: MsgBenchmarkFailed}, decodeError(t, rec))

	ctrl.AssertExpectations(t)
}

func TestCancelAndState(t *testing.T) {
	ctrl := new(mockController)
	ctrl.On("Cancel", mock.Anything, "I1").
		Return(domain.IssueStatus{IssueID: "I1", State: domain.StateDiscovered, Version: 3}, nil)
	ctrl.On("Status", "I1").Return(domain.IssueStatus{
		IssueID:  "I1",
		State:    domain.StateProposalReady,
		Version:  2,
		Proposal: &domain.FixProposal{IssueID: "I1", Explanation: "merge", GeneratedAt: 2},
	}, nil)
	ctrl.On("Status", "ghost").Return(domain.IssueStatus{}, lifecycle.ErrIssueNotFound)
	handler := NewHandler(ctrl)

	rec := httptest.NewRecorder()
	handler.Cancel(rec, httptest.NewRequest(http.MethodPost, "/cancel", strings.NewReader(`{"issue_id":"I1"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"issue_id":"I1","state":"Discovered","version":3}`, rec.Body.String())

	for _, tc := range []struct {
		issueID      string
		expectedCode int
		expectedBody string
	}{
		{
			issueID:      "I1",
			expectedCode: http.StatusOK,
			expectedBody: `{"issue_id":"I1","state":"ProposalReady","version":2,` +
				`"proposal":{"issue_id":"I1","explanation":"merge","generated_at":2}}`,
		},
		{
			issueID:      "ghost",
			expectedCode: http.StatusNotFound,
			expectedBody: `{"status":"error","message":"Issue Not Found","detail":"issue not found"}`,
		},
	} {
		req := httptest.NewRequest(http.MethodGet, "/issues/"+tc.issueID+"/state", nil)
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("issueID", tc.issueID)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

		rec := httptest.NewRecorder()
		handler.GetState(rec, req)

		assert.Equal(t, tc.expectedCode, rec.Code)
		assert.JSONEq(t, tc.expectedBody, rec.Body.String())
	}

	ctrl.AssertExpectations(t)
}
