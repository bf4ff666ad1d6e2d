package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"splitbill_backend/internal/model"
	"splitbill_backend/internal/repository"
	"splitbill_backend/internal/service"
	"splitbill_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memPayments struct {
	byID map[uint]*model.PaymentRequest
}

func (m *memPayments) Create(_ context.Context, pr *model.PaymentRequest) error {
	pr.ID = uint(len(m.byID) + 1)
	cp := *pr
	m.byID[pr.ID] = &cp
	return nil
}

func (m *memPayments) FindByID(_ context.Context, id uint) (*model.PaymentRequest, error) {
	pr, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *pr
	return &cp, nil
}

func (m *memPayments) List(_ context.Context, f repository.PaymentRequestFilter) ([]model.PaymentRequest, int64, error) {
	var out []model.PaymentRequest
	for _, pr := range m.byID {
		if pr.PayerID == f.UserID || pr.PayeeID == f.UserID {
			out = append(out, *pr)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memPayments) ListForUser(ctx context.Context, userID uint) ([]model.PaymentRequest, error) {
	out, _, err := m.List(ctx, repository.PaymentRequestFilter{UserID: userID})
	return out, err
}

func (m *memPayments) Transition(_ context.Context, id uint, from []model.PaymentStatus, to model.PaymentStatus, _ time.Time) (bool, error) {
	pr, ok := m.byID[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if pr.Status == s {
			pr.Status = to
			return true, nil
		}
	}
	return false, nil
}

// memUsers 只实现 FindByID，其余方法不会被收款请求服务调用
type memUsers struct {
	service.UserStore
	ids map[uint]bool
}

func (m memUsers) FindByID(_ context.Context, id uint) (*model.User, error) {
	if !m.ids[id] {
		return nil, gorm.ErrRecordNotFound
	}
	return &model.User{BaseModel: model.BaseModel{ID: id}}, nil
}

type allFriends struct{}

func (allFriends) AreFriends(context.Context, uint, uint) (bool, error) { return true, nil }

type noGroups struct{}

func (noGroups) CountMembers(context.Context, uint, []uint) (int64, error) { return 0, nil }

// asUser 模拟认证中间件写入的用户信息
func asUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set("user", &util.Claims{UserID: util.MustParseUint(id)})
		}
		c.Next()
	}
}

func newPaymentRouter(store *memPayments) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewPaymentRequestService(store, memUsers{ids: map[uint]bool{1: true, 2: true}}, allFriends{}, noGroups{}, nil)
	ctrl := NewPaymentRequestController(svc)

	r := gin.New()
	api := r.Group("/api", asUser())
	api.POST("/payments/requests", ctrl.CreateRequest)
	api.GET("/payments/requests", ctrl.ListRequests)
	api.GET("/payments/requests/:id", ctrl.GetRequest)
	api.PUT("/payments/requests/:id", ctrl.UpdateRequest)
	api.GET("/payments/summary", ctrl.Summary)
	return r
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, r http.Handler, method, path string, userID string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestPaymentRequestController_Lifecycle(t *testing.T) {
	store := &memPayments{byID: map[uint]*model.PaymentRequest{}}
	r := newPaymentRouter(store)

	w, env := doJSON(t, r, http.MethodPost, "/api/payments/requests", "2", gin.H{
		"payerId": 1, "amount": 1250, "currency": "usd", "description": "Dinner",
	})
	require.Equal(t, http.StatusCreated, w.Code, env.Message)

	var created service.PaymentRequestView
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "Sent", created.Label)
	assert.Equal(t, "USD", created.Currency)

	w, env = doJSON(t, r, http.MethodGet, "/api/payments/requests/1", "1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var asPayer service.PaymentRequestView
	require.NoError(t, json.Unmarshal(env.Data, &asPayer))
	assert.Equal(t, "Waiting for your response", asPayer.Label)
	assert.NotEmpty(t, asPayer.StatusDescription)

	w, _ = doJSON(t, r, http.MethodPut, "/api/payments/requests/1", "2", gin.H{"action": "accept"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doJSON(t, r, http.MethodPut, "/api/payments/requests/1", "1", gin.H{"action": "mark_paid"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = doJSON(t, r, http.MethodPut, "/api/payments/requests/1", "1", gin.H{"action": "accept"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, util.ErrInvalidTransition.Error(), env.Message)

	w, env = doJSON(t, r, http.MethodPut, "/api/payments/requests/1", "2", gin.H{"action": "confirm"})
	require.Equal(t, http.StatusOK, w.Code)
	var confirmed service.PaymentRequestView
	require.NoError(t, json.Unmarshal(env.Data, &confirmed))
	assert.Equal(t, model.PaymentCompleted, confirmed.Status)

	w, env = doJSON(t, r, http.MethodGet, "/api/payments/summary", "1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary []service.CurrencySummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	require.Len(t, summary, 1)
	assert.Equal(t, int64(1250), summary[0].PaidTotal)
}

func TestPaymentRequestController_Errors(t *testing.T) {
	store := &memPayments{byID: map[uint]*model.PaymentRequest{}}
	r := newPaymentRouter(store)

	w, _ := doJSON(t, r, http.MethodGet, "/api/payments/requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/payments/requests", "2", gin.H{"payerId": 1, "amount": -5, "currency": "USD"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/payments/requests", "2", gin.H{"payerId": 2, "amount": 5, "currency": "USD"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/payments/requests", "2", gin.H{"payerId": 9, "amount": 5, "currency": "USD"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/api/payments/requests/abc", "1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/api/payments/requests/7", "1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/api/payments/requests?direction=up", "1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := doJSON(t, r, http.MethodGet, "/api/payments/requests", "1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Total int64 `json:"total"`
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(0), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, util.DefaultPageSize, page.Limit)
}
