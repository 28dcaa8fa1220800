package httpserver

import (
	"net/http"
	"time"

	"github.com/Clark-Hu/store-ratings/internal/auth"
)

type ownerRatingResponse struct {
	UserName  string    `json:"userName"`
	UserEmail string    `json:"userEmail"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ownerDashboardResponse struct {
	StoreID       int64                 `json:"storeId"`
	StoreName     string                `json:"storeName"`
	AverageRating float64               `json:"averageRating"`
	TotalRatings  int64                 `json:"totalRatings"`
	Ratings       []ownerRatingResponse `json:"ratings"`
}

func (s *Server) handleOwnerDashboard(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	dash, err := s.deps.Listing.OwnerDashboard(r.Context(), id.UserID)
	if err != nil {
		s.respondDomainError(w, r, "owner dashboard", err)
		return
	}

	ratings := make([]ownerRatingResponse, 0, len(dash.Ratings))
	for _, d := range dash.Ratings {
		ratings = append(ratings, ownerRatingResponse{
			UserName:  d.UserName,
			UserEmail: d.UserEmail,
			Rating:    d.Value,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		})
	}
	s.respondJSON(w, http.StatusOK, ownerDashboardResponse{
		StoreID:       dash.StoreID,
		StoreName:     dash.StoreName,
		AverageRating: dash.AverageRating,
		TotalRatings:  dash.TotalRatings,
		Ratings:       ratings,
	})
}
