package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Clark-Hu/store-ratings/internal/service"
)

type userCreateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address"`
	Role     string `json:"role"`
}

type storeCreateRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	OwnerEmail string `json:"ownerEmail"`
}

type createdUserResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type createdStoreResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	OwnerID   *int64    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

type dashboardResponse struct {
	TotalUsers   int64 `json:"totalUsers"`
	TotalStores  int64 `json:"totalStores"`
	TotalRatings int64 `json:"totalRatings"`
}

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Admin.Dashboard(r.Context())
	if err != nil {
		s.respondDomainError(w, r, "admin dashboard", err)
		return
	}
	s.respondJSON(w, http.StatusOK, dashboardResponse(stats))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	user, err := s.deps.Admin.CreateUser(r.Context(), service.CreateUserInput(req))
	if err != nil {
		s.respondDomainError(w, r, "create user", err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/admin/users/%d", user.ID))
	s.respondJSON(w, http.StatusCreated, createdUserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Address:   user.Address,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
	})
}

func (s *Server) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	var req storeCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	store, err := s.deps.Admin.CreateStore(r.Context(), service.CreateStoreInput(req))
	if err != nil {
		s.respondDomainError(w, r, "create store", err)
		return
	}

	s.respondJSON(w, http.StatusCreated, createdStoreResponse{
		ID:        store.ID,
		Name:      store.Name,
		Email:     store.Email,
		Address:   store.Address,
		OwnerID:   store.OwnerID,
		CreatedAt: store.CreatedAt,
	})
}
