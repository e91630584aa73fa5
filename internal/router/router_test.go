package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"punchcard_backend/internal/metrics"
	"punchcard_backend/internal/models"
	"punchcard_backend/internal/repositories"
	"punchcard_backend/pkg/utils"
)

type RouterSuite struct {
	suite.Suite
	engine *gin.Engine
}

func (s *RouterSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	s.engine = gin.New()
	s.engine.Use(m.GinMiddleware())
	Setup(s.engine, repositories.NewMemoryStore().Store(), models.DefaultLoyaltyPolicy(), m)
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) decode(rec *httptest.ResponseRecorder, out interface{}) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func (s *RouterSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var body struct {
		Error utils.APIError `json:"error"`
	}
	s.decode(rec, &body)
	return body.Error.Code
}

func (s *RouterSuite) createCustomer(name string) models.Customer {
	rec := s.do(http.MethodPost, "/api/v1/admin/customers", gin.H{"display_name": name})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var c models.Customer
	s.decode(rec, &c)
	return c
}

func (s *RouterSuite) createReward(name string, threshold int) models.Reward {
	rec := s.do(http.MethodPost, "/api/v1/admin/rewards", gin.H{"name": name, "threshold_punches": threshold})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var r models.Reward
	s.decode(rec, &r)
	return r
}

func (s *RouterSuite) TestPing() {
	rec := s.do(http.MethodGet, "/ping", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestCardFlow() {
	customer := s.createCustomer("Lucia")
	reward := s.createReward("Croissant", 2)
	cardPath := "/api/v1/cards/" + customer.Slug

	rec := s.do(http.MethodGet, cardPath, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var card models.LoyaltyCard
	s.decode(rec, &card)
	s.Require().Len(card.Rewards, 1)
	s.Equal(models.EligibilityLocked, card.Rewards[0].State)
	s.Equal(2, card.Rewards[0].Shortfall)

	rec = s.do(http.MethodPost, cardPath+"/redemptions", gin.H{"reward_id": reward.ID})
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Equal(utils.ErrCodeInsufficientPunches, s.errorCode(rec))

	for i := 0; i < 2; i++ {
		rec = s.do(http.MethodPost, cardPath+"/punches", nil)
		s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	}
	var punched struct {
		Punch models.Punch       `json:"punch"`
		Card  models.LoyaltyCard `json:"card"`
	}
	s.decode(rec, &punched)
	s.Equal(models.PunchKindQR, punched.Punch.Kind)
	s.Equal(2, punched.Card.TotalPunches)
	s.Equal(models.EligibilityEligible, punched.Card.Rewards[0].State)

	rec = s.do(http.MethodPost, cardPath+"/redemptions", gin.H{"reward_id": reward.ID})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var request models.RedemptionRequest
	s.decode(rec, &request)
	s.Equal(models.RedemptionStatusPending, request.Status)

	rec = s.do(http.MethodPost, cardPath+"/redemptions", gin.H{"reward_id": reward.ID})
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal(utils.ErrCodeDuplicatePending, s.errorCode(rec))

	rec = s.do(http.MethodGet, "/api/v1/admin/redemptions?status=pending", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var views []models.RedemptionView
	s.decode(rec, &views)
	s.Require().Len(views, 1)
	s.Equal("Lucia", views[0].CustomerName)
	s.Equal(2, views[0].CustomerPunches)

	statusPath := fmt.Sprintf("/api/v1/admin/redemptions/%d/status", request.ID)
	rec = s.do(http.MethodPatch, statusPath, gin.H{"status": "fulfilled"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPatch, statusPath, gin.H{"status": "cancelled"})
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal(utils.ErrCodeInvalidStateTransition, s.errorCode(rec))

	rec = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/admin/redemptions/%d/note", request.ID), gin.H{"note": "given"})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &request)
	s.Require().NotNil(request.Note)
	s.Equal("given", *request.Note)
}

func (s *RouterSuite) TestUnknownSlugIs404() {
	rec := s.do(http.MethodGet, "/api/v1/cards/zzzzzz", nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal(utils.ErrCodeNotFound, s.errorCode(rec))
}

func (s *RouterSuite) TestAdminCustomers() {
	alpha := s.createCustomer("Alpha")
	s.createCustomer("Beta")

	rec := s.do(http.MethodGet, "/api/v1/admin/customers?search=alpha", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var page struct {
		Data  []models.CustomerSummary `json:"data"`
		Total int                      `json:"total"`
	}
	s.decode(rec, &page)
	s.Equal(1, page.Total)
	s.Require().Len(page.Data, 1)
	s.Equal(alpha.ID, page.Data[0].ID)

	base := fmt.Sprintf("/api/v1/admin/customers/%d", alpha.ID)
	rec = s.do(http.MethodPost, base+"/punches", gin.H{"kind": "manual"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, base+"/punches", nil)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, base+"/punches", gin.H{"kind": "stamp"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, base+"/punches?limit=1", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var history struct {
		Data  []models.Punch `json:"data"`
		Total int            `json:"total"`
	}
	s.decode(rec, &history)
	s.Len(history.Data, 1)
	s.Equal(2, history.Total)

	rec = s.do(http.MethodPatch, base, gin.H{"display_name": "Alpha Prime"})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, base, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var card models.LoyaltyCard
	s.decode(rec, &card)
	s.Equal("Alpha Prime", card.Customer.DisplayName)
	s.Equal(2, card.TotalPunches)

	rec = s.do(http.MethodGet, "/api/v1/admin/dashboard", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var stats models.DashboardStats
	s.decode(rec, &stats)
	s.Equal(2, stats.TotalCustomers)
	s.Equal(2, stats.TotalPunches)

	rec = s.do(http.MethodDelete, base, nil)
	s.Equal(http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/api/v1/cards/"+alpha.Slug, nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/admin/customers/abc", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestRewardCatalog() {
	reward := s.createReward("Smoothie", 4)
	base := fmt.Sprintf("/api/v1/admin/rewards/%d", reward.ID)

	rec := s.do(http.MethodPost, "/api/v1/admin/rewards", gin.H{"name": "Zero", "threshold_punches": -1})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, base, gin.H{"name": "Large smoothie", "threshold_punches": 6, "active": true})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPatch, base+"/active", gin.H{"active": false})
	s.Require().Equal(http.StatusOK, rec.Code)
	var toggled models.Reward
	s.decode(rec, &toggled)
	s.False(toggled.Active)
	s.Equal("Large smoothie", toggled.Name)

	rec = s.do(http.MethodGet, "/api/v1/admin/rewards?active_only=true", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var active []models.Reward
	s.decode(rec, &active)
	s.Empty(active)

	rec = s.do(http.MethodDelete, base, nil)
	s.Equal(http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, base, nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *RouterSuite) TestSettings() {
	rec := s.do(http.MethodGet, "/api/v1/admin/settings", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var settings models.PolicySettings
	s.decode(rec, &settings)
	s.Equal(models.RedemptionPolicyRepeat, settings.RedemptionPolicy)
	s.Equal("0s", settings.PunchCooldown)
	s.Equal(10, settings.HistoryLimit)
}

func (s *RouterSuite) TestMetricsEndpoint() {
	s.createCustomer("Counted")

	rec := s.do(http.MethodGet, "/metrics", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	body := rec.Body.String()
	s.True(strings.Contains(body, "punchcard_customers_issued_total 1"), body)
	s.True(strings.Contains(body, `punchcard_http_requests_total{method="POST",route="/api/v1/admin/customers",status="201"} 1`))
}
