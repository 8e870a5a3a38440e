package membership

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rmedina-dev/comicverse-server/cmd/models"
	"github.com/rmedina-dev/comicverse-server/cmd/utils"
	"gorm.io/gorm"
)

// Response is a standardized API response structure
type Response struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// MembershipRequest is the JSON body for creating or updating a membership
type MembershipRequest struct {
	Email       string  `json:"email,omitempty"`
	Type        string  `json:"type"`
	CreatedAt   string  `json:"created_at"`
	PaymentDate string  `json:"payment_date"`
	Price       float64 `json:"price"`
}

// MembershipHandler handles membership-related HTTP requests
type MembershipHandler struct {
	manager *Manager
}

// NewMembershipHandler creates a new membership handler
func NewMembershipHandler(db *gorm.DB) *MembershipHandler {
	return &MembershipHandler{manager: NewManager(db)}
}

// RegisterRoutes registers all membership routes
func (h *MembershipHandler) RegisterRoutes(router *mux.Router) {
	membershipRouter := router.PathPrefix("/memberships").Subrouter()

	membershipRouter.HandleFunc("", h.GetMemberships).Methods("GET")
	membershipRouter.HandleFunc("/{id}", h.GetMembership).Methods("GET")
	membershipRouter.HandleFunc("/user/{userID:[0-9]+}", h.GetUserMembership).Methods("GET")

	// Mutations require an authenticated caller
	membershipRouter.HandleFunc("", utils.AuthMiddleware(h.CreateMembership)).Methods("POST")
	membershipRouter.HandleFunc("/{id}", utils.AuthMiddleware(h.UpdateMembership)).Methods("PUT")
	membershipRouter.HandleFunc("/blocked/{id}", utils.AuthMiddleware(h.ToggleMembershipBlocked)).Methods("PUT")
	membershipRouter.HandleFunc("/{id}", utils.AuthMiddleware(h.RemoveMembership)).Methods("DELETE")
}

// CreateMembership purchases a membership for the user identified by email
func (h *MembershipHandler) CreateMembership(w http.ResponseWriter, r *http.Request) {
	var req MembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Email == "" {
		h.respondWithError(w, http.StatusBadRequest, "Email is required")
		return
	}
	if req.Price < 0 {
		h.respondWithError(w, http.StatusBadRequest, "Price must not be negative")
		return
	}

	createdAt, paymentDate, ok := h.parseDates(w, req)
	if !ok {
		return
	}

	id, err := h.manager.Add(r.Context(), AddParams{
		Email:       req.Email,
		Type:        models.MembershipType(req.Type),
		CreatedAt:   createdAt,
		PaymentDate: paymentDate,
		Price:       req.Price,
	})
	if err != nil {
		h.respondWithManagerError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, Response{
		Data:    map[string]interface{}{"id": id},
		Message: fmt.Sprintf("Membership acquired, id %s", id),
	})
}

// GetMemberships lists all non-blocked memberships
func (h *MembershipHandler) GetMemberships(w http.ResponseWriter, r *http.Request) {
	memberships, err := h.manager.List(r.Context())
	if err != nil {
		h.respondWithManagerError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, Response{Data: memberships})
}

// GetMembership retrieves a single membership by ID
func (h *MembershipHandler) GetMembership(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	membership, err := h.manager.GetByID(r.Context(), id)
	if err != nil {
		h.respondWithManagerError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, Response{Data: membership})
}

// GetUserMembership retrieves the membership owned by a user, if any
func (h *MembershipHandler) GetUserMembership(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["userID"], 10, 32)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	membership, err := h.manager.GetByUserID(r.Context(), uint(userID))
	if err != nil {
		h.respondWithManagerError(w, err)
		return
	}
	if membership == nil {
		h.respondWithJSON(w, http.StatusOK, Response{
			Message: fmt.Sprintf("No membership found for user with id %d", userID),
		})
		return
	}
	h.respondWithJSON(w, http.StatusOK, Response{Data: membership})
}

// UpdateMembership rewrites a membership's fields and recomputes its expiration
func (h *MembershipHandler) UpdateMembership(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req MembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Price < 0 {
		h.respondWithError(w, http.StatusBadRequest, "Price must not be negative")
		return
	}

	createdAt, paymentDate, ok := h.parseDates(w, req)
	if !ok {
		return
	}

	err := h.manager.Update(r.Context(), id, UpdateParams{
		Type:        models.MembershipType(req.Type),
		CreatedAt:   createdAt,
		PaymentDate: paymentDate,
		Price:       req.Price,
	})
	if err != nil {
		h.respondWithManagerError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, Response{Message: "Membership updated successfully"})
}

// ToggleMembershipBlocked flips the blocked state of a membership
func (h *MembershipHandler) ToggleMembershipBlocked(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	blocked, err := h.manager.ToggleBlocked(r.Context(), id)
	if err != nil {
		h.respondWithManagerError(w, err)
		return
	}

	message := fmt.Sprintf("Membership with id %s unblocked successfully", id)
	if blocked {
		message = fmt.Sprintf("Membership with id %s blocked successfully", id)
	}
	h.respondWithJSON(w, http.StatusOK, Response{
		Data:    map[string]interface{}{"isDeleted": blocked},
		Message: message,
	})
}

// RemoveMembership permanently deletes a membership
func (h *MembershipHandler) RemoveMembership(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.manager.Remove(r.Context(), id); err != nil {
		h.respondWithManagerError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, Response{Message: "Membership removed successfully"})
}

func (h *MembershipHandler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid membership ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *MembershipHandler) parseDates(w http.ResponseWriter, req MembershipRequest) (time.Time, time.Time, bool) {
	layout := "2006-01-02"

	createdAt, err := time.Parse(layout, req.CreatedAt)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid created_at format. Use YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	paymentDate, err := time.Parse(layout, req.PaymentDate)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid payment_date format. Use YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return createdAt, paymentDate, true
}

// respondWithManagerError maps domain errors to HTTP status codes
func (h *MembershipHandler) respondWithManagerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidMembershipType):
		h.respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		h.respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrMembershipBlocked):
		h.respondWithError(w, http.StatusForbidden, err.Error())
	default:
		h.respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

// Helper function to respond with an error
func (h *MembershipHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, Response{Error: message})
}

// Helper function to respond with JSON
func (h *MembershipHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
