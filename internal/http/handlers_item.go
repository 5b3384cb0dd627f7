package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"wishtrack/internal/core"
	"wishtrack/internal/services"
)

type itemPayload struct {
	Name           string          `json:"name"`
	Image          string          `json:"image"`
	Link           string          `json:"link"`
	SourcePlatform string          `json:"source_platform"`
	Price          decimal.Decimal `json:"price"`
}

type observationResponse struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}

type itemResponse struct {
	ID             int64                 `json:"id"`
	WishlistID     int64                 `json:"wishlist_id"`
	Name           string                `json:"name"`
	Image          string                `json:"image,omitempty"`
	Link           string                `json:"link,omitempty"`
	SourcePlatform string                `json:"source_platform"`
	Price          decimal.Decimal       `json:"price"`
	Fluctuation    float64               `json:"fluctuation"`
	History        []observationResponse `json:"history,omitempty"`
}

func toItemResponse(item core.Item) itemResponse {
	resp := itemResponse{
		ID:             item.ID,
		WishlistID:     item.WishlistID,
		Name:           item.Name,
		Image:          item.Image,
		Link:           item.Link,
		SourcePlatform: item.SourcePlatform.String(),
		Price:          item.Price,
	}
	if item.History != nil {
		resp.Fluctuation = item.History.Fluctuation
		for _, obs := range item.History.Observations {
			resp.History = append(resp.History, observationResponse{
				Date:  obs.Date.Format("2006-01-02"),
				Price: obs.Price,
			})
		}
	}
	return resp
}

func (p itemPayload) toInput() *services.ItemInput {
	return &services.ItemInput{
		Name:           p.Name,
		Image:          p.Image,
		Link:           p.Link,
		SourcePlatform: core.SourcePlatform(p.SourcePlatform),
		Price:          p.Price,
	}
}

func (s *Server) handleCreateWishlist(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	var body struct {
		Title string `json:"title"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	wl, err := s.wishlists.CreateWishlist(r.Context(), uid, body.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wl)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	wishlistID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var body itemPayload
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item, err := s.items.Create(r.Context(), wishlistID, body.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemResponse(item))
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	item, err := s.items.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	items, err := s.items.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var body itemPayload
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item, err := s.items.Update(r.Context(), id, body.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (s *Server) handleReassignItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var body struct {
		WishlistID int64 `json:"wishlist_id"`
	}
	if err := decodeBody(r, &body); err != nil || body.WishlistID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.items.ReassignWishlist(r.Context(), id, body.WishlistID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRefreshItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	item, err := s.items.RefreshFromSource(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (s *Server) handleEnqueueRefresh(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := s.items.EnqueueRefresh(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int64{"item_id": id})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := s.items.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteItems(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []int64 `json:"ids"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.items.DeleteMany(r.Context(), body.IDs); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
