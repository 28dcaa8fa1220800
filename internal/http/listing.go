package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Clark-Hu/store-ratings/internal/auth"
	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/query"
)

// Listing parameters understood besides the schema's filter fields.
const (
	paramPage      = "page"
	paramLimit     = "limit"
	paramSortBy    = "sortBy"
	paramSortOrder = "sortOrder"
	paramSearch    = "search"
)

// parseListParams turns a query string into builder params. Every key must be a control
// parameter or a filterable field of schema. maxPageSize caps limit when positive.
func parseListParams(values url.Values, schema query.Schema, maxPageSize int) (query.Params, error) {
	params := query.Params{Filters: map[string]string{}}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		vals := values[key]
		if len(vals) > 1 {
			return query.Params{}, fmt.Errorf("%w: parameter %q given more than once", domain.ErrInvalidQuery, key)
		}
		// Control parameters are trimmed, match values are passed through verbatim.
		raw := vals[0]
		val := strings.TrimSpace(raw)

		switch key {
		case paramPage:
			n, err := parseWindowParam(key, val)
			if err != nil {
				return query.Params{}, err
			}
			params.Page = n
		case paramLimit:
			n, err := parseWindowParam(key, val)
			if err != nil {
				return query.Params{}, err
			}
			params.PageSize = n
		case paramSortBy:
			params.SortField = val
		case paramSortOrder:
			if val != "" && !strings.EqualFold(val, "asc") && !strings.EqualFold(val, "desc") {
				return query.Params{}, fmt.Errorf("%w: sortOrder must be asc or desc", domain.ErrInvalidQuery)
			}
			params.SortDirection = val
		case paramSearch:
			params.Search = raw
		default:
			if !schema.IsFilterable(key) {
				return query.Params{}, fmt.Errorf("%w: unknown parameter %q", domain.ErrInvalidQuery, key)
			}
			params.Filters[key] = raw
		}
	}

	if maxPageSize > 0 && params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}
	return params, nil
}

func parseWindowParam(name, raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidQuery, name)
	}
	return n, nil
}

type paginationResponse struct {
	CurrentPage int   `json:"currentPage"`
	PageSize    int   `json:"pageSize"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
}

type listResponse[T any] struct {
	Items      []T                `json:"items"`
	Pagination paginationResponse `json:"pagination"`
}

type storeResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         *string   `json:"email,omitempty"`
	Address       string    `json:"address"`
	AverageRating float64   `json:"averageRating"`
	TotalRatings  int64     `json:"totalRatings"`
	OwnRating     *int      `json:"ownRating"`
	CreatedAt     time.Time `json:"createdAt"`
}

// adminStoreResponse omits ownRating, which only exists in the user projection.
type adminStoreResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	AverageRating float64   `json:"averageRating"`
	TotalRatings  int64     `json:"totalRatings"`
	CreatedAt     time.Time `json:"createdAt"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	Rating    *float64  `json:"rating"`
}

func toPaginationResponse(p domain.Pagination) paginationResponse {
	return paginationResponse{
		CurrentPage: p.CurrentPage,
		PageSize:    p.PageSize,
		TotalPages:  p.TotalPages,
		TotalCount:  p.TotalCount,
		HasNext:     p.HasNext,
		HasPrev:     p.HasPrev,
	}
}

func toUserResponse(v domain.UserView) userResponse {
	return userResponse{
		ID:        v.ID,
		Name:      v.Name,
		Email:     v.Email,
		Address:   v.Address,
		Role:      string(v.Role),
		CreatedAt: v.CreatedAt,
		Rating:    v.Rating,
	}
}

func (s *Server) handleAdminListStores(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r.URL.Query(), query.StoreSchema, s.cfg.MaxPageSize)
	if err != nil {
		s.respondDomainError(w, r, "list stores", err)
		return
	}

	page, err := s.deps.Listing.ListStores(r.Context(), params, nil)
	if err != nil {
		s.respondDomainError(w, r, "list stores", err)
		return
	}

	items := make([]adminStoreResponse, 0, len(page.Items))
	for _, v := range page.Items {
		item := adminStoreResponse{
			ID:            v.ID,
			Name:          v.Name,
			Address:       v.Address,
			AverageRating: v.AverageRating,
			TotalRatings:  v.TotalRatings,
			CreatedAt:     v.CreatedAt,
		}
		if v.Email != nil {
			item.Email = *v.Email
		}
		items = append(items, item)
	}
	s.respondJSON(w, http.StatusOK, listResponse[adminStoreResponse]{Items: items, Pagination: toPaginationResponse(page.Pagination)})
}

func (s *Server) handleUserListStores(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	params, err := parseListParams(r.URL.Query(), query.StoreSchema, s.cfg.MaxPageSize)
	if err != nil {
		s.respondDomainError(w, r, "list stores", err)
		return
	}

	page, err := s.deps.Listing.ListStores(r.Context(), params, &id.UserID)
	if err != nil {
		s.respondDomainError(w, r, "list stores", err)
		return
	}

	items := make([]storeResponse, 0, len(page.Items))
	for _, v := range page.Items {
		items = append(items, storeResponse{
			ID:            v.ID,
			Name:          v.Name,
			Address:       v.Address,
			AverageRating: v.AverageRating,
			TotalRatings:  v.TotalRatings,
			OwnRating:     v.OwnRating,
			CreatedAt:     v.CreatedAt,
		})
	}
	s.respondJSON(w, http.StatusOK, listResponse[storeResponse]{Items: items, Pagination: toPaginationResponse(page.Pagination)})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r.URL.Query(), query.UserSchema, s.cfg.MaxPageSize)
	if err != nil {
		s.respondDomainError(w, r, "list users", err)
		return
	}

	page, err := s.deps.Listing.ListUsers(r.Context(), params)
	if err != nil {
		s.respondDomainError(w, r, "list users", err)
		return
	}

	items := make([]userResponse, 0, len(page.Items))
	for _, v := range page.Items {
		items = append(items, toUserResponse(v))
	}
	s.respondJSON(w, http.StatusOK, listResponse[userResponse]{Items: items, Pagination: toPaginationResponse(page.Pagination)})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "id")
	if err != nil {
		s.respondDomainError(w, r, "get user", err)
		return
	}

	view, err := s.deps.Listing.GetUserDetail(r.Context(), userID)
	if err != nil {
		s.respondDomainError(w, r, "get user", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toUserResponse(view))
}
