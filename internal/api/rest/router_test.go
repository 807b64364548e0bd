//nolint:noctx // Test file uses http.NewRequest for simplicity
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitelog/bitelog-api/internal/auth"
	"github.com/bitelog/bitelog-api/internal/config"
	"github.com/bitelog/bitelog-api/internal/models"
	"github.com/bitelog/bitelog-api/internal/payment"
	"github.com/bitelog/bitelog-api/internal/repository"
	"github.com/bitelog/bitelog-api/internal/service/meals"
	"github.com/bitelog/bitelog-api/internal/service/membership"
	"github.com/bitelog/bitelog-api/internal/service/requests"
	"github.com/bitelog/bitelog-api/internal/service/reviews"
	"github.com/bitelog/bitelog-api/internal/service/upcoming"
	"github.com/bitelog/bitelog-api/internal/service/users"
	"github.com/bitelog/bitelog-api/pkg/logger"
	"github.com/bitelog/bitelog-api/test/mocks"
	"github.com/bitelog/bitelog-api/test/testdb"
)

type testServer struct {
	router   *gin.Engine
	verifier *auth.JWTVerifier
	db       *repository.DB
	packages *repository.MembershipRepository
	gateway  *mocks.MockPaymentGateway
	ctx      context.Context
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testdb.New(t)
	log := logger.New("debug", "text", "stdout")
	cache := mocks.NewMockCache()
	gateway := &mocks.MockPaymentGateway{}

	userRepo := repository.NewUserRepository(db)
	mealRepo := repository.NewMealRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	packageRepo := repository.NewMembershipRepository(db)

	userService := users.NewService(userRepo, log)
	services := Services{
		Users:      userService,
		Meals:      meals.NewService(mealRepo, reviewRepo, cache, 10, time.Minute, log),
		Reviews:    reviews.NewService(reviewRepo, userRepo, log),
		Requests:   requests.NewService(repository.NewRequestRepository(db), userRepo, log),
		Upcoming:   upcoming.NewService(repository.NewUpcomingRepository(db), nil, 2, log),
		Membership: membership.NewService(packageRepo, gateway, cache, time.Minute, log),
	}

	verifier := auth.NewJWTVerifier(&config.AuthConfig{JWTSecret: "test-secret", Issuer: "bitelog", TokenTTL: 1})
	handler := NewHandler(services, map[string]HealthChecker{"database": db, "cache": cache}, log)
	router := NewRouter(handler, NewAuthenticator(verifier, userService, log), RouterConfig{RequestTimeout: 5 * time.Second}, log)

	srv := &testServer{router: router, verifier: verifier, db: db, packages: packageRepo, gateway: gateway, ctx: context.Background()}
	srv.bootstrap(t, "chef@example.com", models.RoleAdmin)
	srv.bootstrap(t, "ann@example.com", models.RoleUser)
	srv.bootstrap(t, "bob@example.com", models.RoleUser)
	return srv
}

func (s *testServer) bootstrap(t *testing.T, email, role string) {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/v1/users", "", map[string]string{"email": email, "name": "Name of " + email})
	require.Equal(t, http.StatusCreated, w.Code)
	if role == models.RoleAdmin {
		require.NoError(t, s.db.Model(&models.User{}).Where("email = ?", email).Update("role", role).Error)
	}
}

func (s *testServer) token(t *testing.T, email string) string {
	t.Helper()

	token, err := s.verifier.Issue(email)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	var err error
	if body != nil {
		raw, marshalErr := json.Marshal(body)
		require.NoError(t, marshalErr)
		req, err = http.NewRequest(method, path, bytes.NewReader(raw))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, path, http.NoBody)
		require.NoError(t, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) createMeal(t *testing.T, title, category string, price float64) uint {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/v1/meals", s.token(t, "chef@example.com"), map[string]interface{}{
		"title":       title,
		"category":    category,
		"price":       price,
		"ingredients": []string{"rice"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var meal models.Meal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meal))
	return meal.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestHealth(t *testing.T) {
	srv := setupTestServer(t)

	w := srv.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHealth_Degraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.New("debug", "text", "stdout")
	cache := mocks.NewMockCache()
	cache.HealthErr = errors.New("connection refused")
	handler := NewHandler(Services{}, map[string]HealthChecker{"cache": cache}, log)
	router := gin.New()
	router.GET("/health", handler.Health)

	req, _ := http.NewRequest(http.MethodGet, "/health", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	response := decode(t, w)
	assert.Equal(t, "degraded", response["status"])
	assert.Equal(t, "unhealthy", response["components"].(map[string]interface{})["cache"])
}

func TestBootstrapUser_Idempotent(t *testing.T) {
	srv := setupTestServer(t)

	w := srv.do(t, http.MethodPost, "/api/v1/users", "", map[string]string{"email": "ann@example.com", "name": "Changed"})
	assert.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Equal(t, false, response["inserted"])
	assert.Equal(t, "Name of ann@example.com", response["user"].(map[string]interface{})["name"])

	w = srv.do(t, http.MethodPost, "/api/v1/users", "", map[string]string{"name": "No email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthentication(t *testing.T) {
	srv := setupTestServer(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing token", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", want: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer " + srv.token(t, "ann@example.com"), want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/api/v1/users/me", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			srv.router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want != http.StatusOK {
				response := decode(t, w)
				assert.NotEmpty(t, response["error"])
				assert.NotEmpty(t, response["timestamp"])
			}
		})
	}
}

func TestAdminRoutes(t *testing.T) {
	srv := setupTestServer(t)

	w := srv.do(t, http.MethodGet, "/api/v1/users", srv.token(t, "ann@example.com"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/users?page=1", srv.token(t, "chef@example.com"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["total"])

	w = srv.do(t, http.MethodPatch, "/api/v1/users/ann@example.com/admin", srv.token(t, "chef@example.com"), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// The role is looked up per request, so the promotion applies at once.
	w = srv.do(t, http.MethodGet, "/api/v1/users", srv.token(t, "ann@example.com"), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/users/ann@example.com/role", srv.token(t, "bob@example.com"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["admin"])
}

func TestMealCatalog(t *testing.T) {
	srv := setupTestServer(t)
	srv.createMeal(t, "Ramen", "Dinner", 12)
	srv.createMeal(t, "Pancakes", "Breakfast", 6)

	w := srv.do(t, http.MethodGet, "/api/v1/meals?sort=price&order=asc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Equal(t, float64(2), response["total"])
	assert.Equal(t, float64(10), response["page_size"])
	first := response["meals"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Pancakes", first["title"])

	w = srv.do(t, http.MethodGet, "/api/v1/meals?sort=calories", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/meals?price_range=10-5", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/meals?has_reviews=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/meals/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"Breakfast", "Dinner"}, decode(t, w)["categories"])

	w = srv.do(t, http.MethodGet, "/api/v1/meals/count/chef@example.com", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["count"])
}

func TestMealAdministration(t *testing.T) {
	srv := setupTestServer(t)
	id := srv.createMeal(t, "Ramen", "Dinner", 12)
	chef := srv.token(t, "chef@example.com")

	w := srv.do(t, http.MethodPost, "/api/v1/meals", srv.token(t, "ann@example.com"), map[string]interface{}{"title": "Nope", "category": "x", "price": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodPatch, "/api/v1/meals/999", chef, map[string]interface{}{"title": "Ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodPatch, "/api/v1/meals/abc", chef, map[string]interface{}{"title": "Ghost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPatch, "/api/v1/meals/"+itoa(id), chef, map[string]interface{}{"price": 14.5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 14.5, decode(t, w)["price"])

	w = srv.do(t, http.MethodGet, "/api/v1/meals/distributor/chef@example.com", chef, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = srv.do(t, http.MethodDelete, "/api/v1/meals/"+itoa(id), chef, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/meals/"+itoa(id), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLikeAndRate(t *testing.T) {
	srv := setupTestServer(t)
	id := srv.createMeal(t, "Ramen", "Dinner", 12)
	ann := srv.token(t, "ann@example.com")

	w := srv.do(t, http.MethodPost, "/api/v1/meals/"+itoa(id)+"/like", ann, map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodPost, "/api/v1/meals/"+itoa(id)+"/like", ann, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["liked"])

	w = srv.do(t, http.MethodPost, "/api/v1/meals/"+itoa(id)+"/rating", ann, map[string]interface{}{"rating": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPost, "/api/v1/meals/"+itoa(id)+"/rating", ann, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPost, "/api/v1/meals/"+itoa(id)+"/rating", ann, map[string]interface{}{"rating": 4})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4), decode(t, w)["rating"])

	w = srv.do(t, http.MethodGet, "/api/v1/meals/"+itoa(id), ann, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode(t, w)
	assert.Equal(t, true, detail["liked"])
	assert.Equal(t, float64(4), detail["user_rating"])

	w = srv.do(t, http.MethodGet, "/api/v1/meals/"+itoa(id), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, decode(t, w), "liked")

	w = srv.do(t, http.MethodGet, "/api/v1/meals/"+itoa(id), "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(t, http.MethodPost, "/api/v1/meals/999/like", ann, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviewLifecycle(t *testing.T) {
	srv := setupTestServer(t)
	id := srv.createMeal(t, "Ramen", "Dinner", 12)
	ann := srv.token(t, "ann@example.com")
	bob := srv.token(t, "bob@example.com")

	w := srv.do(t, http.MethodPost, "/api/v1/meals/"+itoa(id)+"/reviews", ann, map[string]string{"text": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPost, "/api/v1/meals/"+itoa(id)+"/reviews", ann, map[string]string{"text": "Rich broth"})
	require.Equal(t, http.StatusCreated, w.Code)
	review := decode(t, w)
	reviewID := uint(review["id"].(float64))
	assert.Equal(t, "Ramen", review["meal_title"])

	w = srv.do(t, http.MethodPatch, "/api/v1/reviews/"+itoa(reviewID), bob, map[string]string{"text": "hijack"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodPatch, "/api/v1/reviews/"+itoa(reviewID), ann, map[string]string{"text": "Richer broth"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/meals/"+itoa(id)+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["review_count"])

	w = srv.do(t, http.MethodGet, "/api/v1/reviews/user/ann@example.com", bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/reviews", srv.token(t, "chef@example.com"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = srv.do(t, http.MethodDelete, "/api/v1/reviews/"+itoa(reviewID), ann, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = srv.do(t, http.MethodDelete, "/api/v1/reviews/"+itoa(reviewID), ann, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMealRequestLifecycle(t *testing.T) {
	srv := setupTestServer(t)
	id := srv.createMeal(t, "Ramen", "Dinner", 12)
	ann := srv.token(t, "ann@example.com")
	chef := srv.token(t, "chef@example.com")

	w := srv.do(t, http.MethodPost, "/api/v1/meals/"+itoa(id)+"/request", ann, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	requestID := uint(decode(t, w)["id"].(float64))

	w = srv.do(t, http.MethodPost, "/api/v1/meals/"+itoa(id)+"/request", ann, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/requests/me", ann, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = srv.do(t, http.MethodPatch, "/api/v1/requests/"+itoa(requestID)+"/serve", ann, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodPatch, "/api/v1/requests/"+itoa(requestID)+"/serve", chef, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RequestStatusDelivered, decode(t, w)["status"])

	w = srv.do(t, http.MethodPatch, "/api/v1/requests/"+itoa(requestID)+"/serve", chef, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/requests?search=ann", chef, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = srv.do(t, http.MethodDelete, "/api/v1/requests/"+itoa(requestID), srv.token(t, "bob@example.com"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodDelete, "/api/v1/requests/"+itoa(requestID), ann, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpcomingVoteToPublish(t *testing.T) {
	srv := setupTestServer(t)
	chef := srv.token(t, "chef@example.com")

	w := srv.do(t, http.MethodPost, "/api/v1/upcoming", chef, map[string]interface{}{"title": "Bibimbap", "category": "Dinner", "price": 13})
	require.Equal(t, http.StatusCreated, w.Code)
	upcomingID := uint(decode(t, w)["id"].(float64))

	w = srv.do(t, http.MethodPost, "/api/v1/upcoming/"+itoa(upcomingID)+"/like", srv.token(t, "ann@example.com"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["promoted"])

	w = srv.do(t, http.MethodPost, "/api/v1/upcoming/"+itoa(upcomingID)+"/like", srv.token(t, "bob@example.com"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode(t, w)
	assert.Equal(t, true, result["promoted"])
	published := result["meal"].(map[string]interface{})
	assert.Equal(t, "Bibimbap", published["title"])
	assert.Equal(t, float64(2), published["likes"])

	w = srv.do(t, http.MethodGet, "/api/v1/upcoming", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["total"])

	w = srv.do(t, http.MethodPost, "/api/v1/upcoming/"+itoa(upcomingID)+"/publish", chef, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPayments(t *testing.T) {
	srv := setupTestServer(t)
	gold := &models.MembershipPackage{Name: "Gold", Level: 3, Price: 29.99}
	require.NoError(t, srv.packages.UpsertPackage(srv.ctx, gold))
	ann := srv.token(t, "ann@example.com")

	w := srv.do(t, http.MethodGet, "/api/v1/membership/packages", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["packages"], 1)

	w = srv.do(t, http.MethodPost, "/api/v1/payments/intent", ann, map[string]interface{}{"package_id": gold.ID})
	require.Equal(t, http.StatusOK, w.Code)
	intent := decode(t, w)
	assert.Equal(t, "pi_mock_secret", intent["client_secret"])
	assert.Equal(t, float64(2999), intent["amount_cents"])

	w = srv.do(t, http.MethodPost, "/api/v1/payments", ann, map[string]interface{}{
		"email": "bob@example.com", "transaction_id": "pi_1", "membership_id": gold.ID,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodPost, "/api/v1/payments", ann, map[string]interface{}{
		"transaction_id": "pi_1", "membership_id": gold.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = srv.do(t, http.MethodPost, "/api/v1/payments", ann, map[string]interface{}{
		"transaction_id": "pi_1", "membership_id": gold.ID,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	srv.gateway.VerifyIntentFunc = func(_ context.Context, intentID string) (*payment.Verification, error) {
		return &payment.Verification{ID: intentID, Status: "processing", AmountCents: 2999}, nil
	}
	w = srv.do(t, http.MethodPost, "/api/v1/payments", ann, map[string]interface{}{
		"transaction_id": "pi_2", "membership_id": gold.ID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "has not succeeded")

	w = srv.do(t, http.MethodGet, "/api/v1/users/me", ann, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Gold", decode(t, w)["badge"])

	w = srv.do(t, http.MethodGet, "/api/v1/payments", ann, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])
}

func TestInvalidJSONBody(t *testing.T) {
	srv := setupTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/users", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "invalid request body")
}

// doChunked sends raw as a body of unknown length, the way a chunked upload arrives.
func (s *testServer) doChunked(t *testing.T, path, token, raw string) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, path, strings.NewReader(raw))
	require.NoError(t, err)
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestChunkedBodyEmailAssertion(t *testing.T) {
	srv := setupTestServer(t)
	ann := srv.token(t, "ann@example.com")
	chef := srv.token(t, "chef@example.com")
	mealID := srv.createMeal(t, "Ramen", "Dinner", 12)

	w := srv.do(t, http.MethodPost, "/api/v1/upcoming", chef, map[string]interface{}{"title": "Bibimbap", "category": "Dinner", "price": 13})
	require.Equal(t, http.StatusCreated, w.Code)
	upcomingID := uint(decode(t, w)["id"].(float64))

	mismatched := `{"email":"bob@example.com"}`
	paths := []string{
		"/api/v1/meals/" + itoa(mealID) + "/like",
		"/api/v1/upcoming/" + itoa(upcomingID) + "/like",
		"/api/v1/meals/" + itoa(mealID) + "/request",
	}
	for _, path := range paths {
		w = srv.doChunked(t, path, ann, mismatched)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}

	// Nothing was mutated by the rejected calls.
	w = srv.do(t, http.MethodGet, "/api/v1/meals/"+itoa(mealID), ann, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode(t, w)
	assert.Equal(t, float64(0), detail["meal"].(map[string]interface{})["likes"])
	assert.Equal(t, false, detail["liked"])

	w = srv.doChunked(t, "/api/v1/meals/"+itoa(mealID)+"/like", ann, `{"email":"ann@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["liked"])

	// An empty chunked body behaves like no body at all.
	w = srv.doChunked(t, "/api/v1/meals/"+itoa(mealID)+"/request", ann, "")
	assert.Equal(t, http.StatusCreated, w.Code)

	w = srv.doChunked(t, "/api/v1/upcoming/"+itoa(upcomingID)+"/like", ann, "{broken")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
