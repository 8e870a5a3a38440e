package membership

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rmedina-dev/comicverse-server/cmd/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestRouter(t *testing.T) (*mux.Router, *gorm.DB) {
	t.Helper()
	t.Setenv("SECRET_KEY", "test-secret")

	db := setupTestDB(t)
	router := mux.NewRouter()
	NewMembershipHandler(db).RegisterRoutes(router)
	return router, db
}

func testAuthHeader(t *testing.T) string {
	t.Helper()

	claims := &jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(t *testing.T, router *mux.Router, method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateMembership(t *testing.T) {
	router, db := setupTestRouter(t)
	createTestUser(t, db, "user@example.com")
	auth := testAuthHeader(t)

	t.Run("creates a membership", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/memberships", auth, MembershipRequest{
			Email:       "user@example.com",
			Type:        "MonthlyMember",
			CreatedAt:   "2024-01-31",
			PaymentDate: "2024-01-31",
			Price:       9.99,
		})
		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Message, "Membership acquired")
	})

	t.Run("rejects unauthenticated requests", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/memberships", "", MembershipRequest{
			Email: "user@example.com",
			Type:  "MonthlyMember",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects unknown plan", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/memberships", auth, MembershipRequest{
			Email:       "user@example.com",
			Type:        "WeeklyMember",
			CreatedAt:   "2024-01-31",
			PaymentDate: "2024-01-31",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/memberships", auth, MembershipRequest{
			Email:       "user@example.com",
			Type:        "MonthlyMember",
			CreatedAt:   "2024-01-31",
			PaymentDate: "2024-01-31",
			Price:       -1,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown email maps to 404", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/memberships", auth, MembershipRequest{
			Email:       "nobody@example.com",
			Type:        "MonthlyMember",
			CreatedAt:   "2024-01-31",
			PaymentDate: "2024-01-31",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/memberships", auth, MembershipRequest{
			Email:       "user@example.com",
			Type:        "MonthlyMember",
			CreatedAt:   "31/01/2024",
			PaymentDate: "2024-01-31",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetMembership(t *testing.T) {
	router, db := setupTestRouter(t)
	createTestUser(t, db, "user@example.com")
	manager := NewManager(db)

	id, err := manager.Add(context.Background(), AddParams{
		Email:     "user@example.com",
		Type:      models.Creator,
		CreatedAt: date(2024, time.June, 1),
	})
	require.NoError(t, err)

	t.Run("returns the membership", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/memberships/"+id.String(), "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data models.Membership `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, id, resp.Data.ID)
		assert.Equal(t, models.Creator, resp.Data.Type)
	})

	t.Run("malformed id maps to 400", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/memberships/not-a-uuid", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown id maps to 404", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/memberships/"+uuid.NewString(), "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("blocked membership maps to 403", func(t *testing.T) {
		auth := testAuthHeader(t)
		rec := doRequest(t, router, http.MethodPut, "/memberships/blocked/"+id.String(), auth, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, router, http.MethodGet, "/memberships/"+id.String(), "", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestGetMemberships(t *testing.T) {
	router, db := setupTestRouter(t)
	createTestUser(t, db, "user@example.com")
	manager := NewManager(db)

	active, err := manager.Add(context.Background(), AddParams{
		Email:     "user@example.com",
		Type:      models.MonthlyMember,
		CreatedAt: date(2024, time.June, 1),
	})
	require.NoError(t, err)

	blocked, err := manager.Add(context.Background(), AddParams{
		Email:     "user@example.com",
		Type:      models.Creator,
		CreatedAt: date(2024, time.July, 1),
	})
	require.NoError(t, err)
	_, err = manager.ToggleBlocked(context.Background(), blocked)
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodGet, "/memberships", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []models.Membership `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, active, resp.Data[0].ID)
}

func TestGetUserMembership(t *testing.T) {
	router, db := setupTestRouter(t)
	user := createTestUser(t, db, "member@example.com")
	free := createTestUser(t, db, "free@example.com")
	manager := NewManager(db)

	id, err := manager.Add(context.Background(), AddParams{
		Email:     "member@example.com",
		Type:      models.AnnualMember,
		CreatedAt: date(2024, time.June, 1),
	})
	require.NoError(t, err)

	t.Run("finds the owner's membership", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, fmt.Sprintf("/memberships/user/%d", user.ID), "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data models.Membership `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, id, resp.Data.ID)
	})

	t.Run("no membership is a 200 with a message", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, fmt.Sprintf("/memberships/user/%d", free.ID), "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Message, "No membership found")
	})
}

func TestUpdateMembership(t *testing.T) {
	router, db := setupTestRouter(t)
	createTestUser(t, db, "user@example.com")
	manager := NewManager(db)
	auth := testAuthHeader(t)

	id, err := manager.Add(context.Background(), AddParams{
		Email:       "user@example.com",
		Type:        models.MonthlyMember,
		CreatedAt:   date(2024, time.January, 15),
		PaymentDate: date(2024, time.January, 15),
		Price:       9.99,
	})
	require.NoError(t, err)

	t.Run("updates and recomputes expiration", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPut, "/memberships/"+id.String(), auth, MembershipRequest{
			Type:        "AnnualMember",
			CreatedAt:   "2023-05-10",
			PaymentDate: "2023-05-10",
			Price:       99.99,
		})
		assert.Equal(t, http.StatusOK, rec.Code)

		membership, err := manager.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "2024-05-10", membership.ExpirationDate.Format("2006-01-02"))
	})

	t.Run("unknown id maps to 404", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPut, "/memberships/"+uuid.NewString(), auth, MembershipRequest{
			Type:        "AnnualMember",
			CreatedAt:   "2023-05-10",
			PaymentDate: "2023-05-10",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRemoveMembership(t *testing.T) {
	router, db := setupTestRouter(t)
	createTestUser(t, db, "user@example.com")
	manager := NewManager(db)
	auth := testAuthHeader(t)

	id, err := manager.Add(context.Background(), AddParams{
		Email:     "user@example.com",
		Type:      models.MonthlyMember,
		CreatedAt: date(2024, time.June, 1),
	})
	require.NoError(t, err)

	t.Run("removes the membership", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodDelete, "/memberships/"+id.String(), auth, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, router, http.MethodGet, "/memberships/"+id.String(), "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("removing again maps to 404", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodDelete, "/memberships/"+id.String(), auth, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestToggleMembershipBlocked(t *testing.T) {
	router, db := setupTestRouter(t)
	createTestUser(t, db, "user@example.com")
	manager := NewManager(db)
	auth := testAuthHeader(t)

	id, err := manager.Add(context.Background(), AddParams{
		Email:     "user@example.com",
		Type:      models.MonthlyMember,
		CreatedAt: date(2024, time.June, 1),
	})
	require.NoError(t, err)

	t.Run("blocks then unblocks", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPut, "/memberships/blocked/"+id.String(), auth, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		var resp Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Message, "blocked")

		rec = doRequest(t, router, http.MethodPut, "/memberships/blocked/"+id.String(), auth, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Message, "unblocked")

		membership, err := manager.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.False(t, membership.IsDeleted)
	})

	t.Run("unknown id maps to 404", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPut, "/memberships/blocked/"+uuid.NewString(), auth, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
