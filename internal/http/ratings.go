package httpserver

import (
	"net/http"
	"time"

	"github.com/Clark-Hu/store-ratings/internal/auth"
	"github.com/Clark-Hu/store-ratings/internal/domain"
)

type ratingRequest struct {
	Rating *float64 `json:"rating"`
}

type ratingResponse struct {
	StoreID       int64     `json:"storeId"`
	UserID        int64     `json:"userId"`
	Rating        int       `json:"rating"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	AverageRating float64   `json:"averageRating"`
	TotalRatings  int64     `json:"totalRatings"`
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	storeID, err := idParam(r, "storeId")
	if err != nil {
		s.respondDomainError(w, r, "submit rating", err)
		return
	}

	var req ratingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if req.Rating == nil {
		s.respondError(w, http.StatusUnprocessableEntity, "INVALID_VALUE", "rating is required")
		return
	}
	value, err := domain.ParseRatingValue(*req.Rating)
	if err != nil {
		s.respondDomainError(w, r, "submit rating", err)
		return
	}

	res, err := s.deps.Ratings.SubmitRating(r.Context(), id.UserID, storeID, value)
	if err != nil {
		s.respondDomainError(w, r, "submit rating", err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, ratingResponse{
		StoreID:       res.Rating.StoreID,
		UserID:        res.Rating.UserID,
		Rating:        res.Rating.Value,
		CreatedAt:     res.Rating.CreatedAt,
		UpdatedAt:     res.Rating.UpdatedAt,
		AverageRating: res.Aggregate.Average,
		TotalRatings:  res.Aggregate.Count,
	})
}
