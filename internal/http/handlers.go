package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/example/locksmith-search/internal/geocode"
	"github.com/example/locksmith-search/internal/match"
	"github.com/example/locksmith-search/internal/models"
	"github.com/example/locksmith-search/internal/search"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	postcode := q.Get("postcode")
	if postcode == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "postcode is required"})
		return
	}

	// the session header ties re-submissions from one tab together so a
	// newer search supersedes an older in-flight one; searches from other
	// sessions are unaffected
	resp, err := s.searchSvc.Search(r.Context(), search.Request{
		Postcode:  postcode,
		Category:  q.Get("category"),
		SessionID: r.Header.Get("X-Search-Session"),
	})
	if err != nil {
		s.writeSearchError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeSearchError(w http.ResponseWriter, err error) {
	var (
		ipe *geocode.InvalidPostcodeError
		gue *geocode.GeocodingUnavailableError
		iie *match.InvalidInputError
	)
	switch {
	case errors.As(err, &ipe):
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "check your postcode"})
	case errors.As(err, &gue):
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "postcode lookup is temporarily unavailable"})
	case errors.As(err, &iie):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, search.ErrSuperseded):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: "superseded by a newer search"})
	default:
		s.logger.Error("search failed", "error", err)
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: "search failed"})
	}
}

func (s *Server) handleProviderLocation(w http.ResponseWriter, r *http.Request) {
	var u models.LocationUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if u.ProviderID == "" || !u.Loc.Valid() {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "provider_id and an in-range loc are required"})
		return
	}
	if u.ReportedAt.IsZero() {
		u.ReportedAt = time.Now()
	}
	s.publishLocation(u)
	w.WriteHeader(http.StatusNoContent)
}

// publishLocation routes one update through whichever plumbing is wired:
// Kafka when configured (the consumer owns the live store write), else a
// direct live-store upsert. Watchers get the marker either way.
func (s *Server) publishLocation(u models.LocationUpdate) {
	if s.kafka != nil {
		if err := s.kafka.PublishLocation(u); err != nil {
			s.logger.Warn("kafka publish failed", "provider_id", u.ProviderID, "error", err)
		}
	} else if s.liveStore != nil {
		if err := s.liveStore.Upsert(context.Background(), u); err != nil {
			s.logger.Warn("live store upsert failed", "provider_id", u.ProviderID, "error", err)
		}
	}
	if s.hub != nil {
		s.hub.Broadcast(u)
	}
}

type depositRequest struct {
	CustomerID string `json:"customer_id"`
}

type depositResponse struct {
	ProviderID      string `json:"provider_id,omitempty"`
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

func (s *Server) handleDepositHold(w http.ResponseWriter, r *http.Request) {
	if s.deposits == nil {
		s.writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "deposits are not configured"})
		return
	}
	providerID := mux.Vars(r)["provider_id"]
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	intentID, err := s.deposits.Hold(r.Context(), s.depositAmount, s.depositCurrency, req.CustomerID)
	if err != nil {
		s.logger.Error("deposit hold failed", "provider_id", providerID, "error", err)
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: "deposit hold failed"})
		return
	}
	s.writeJSON(w, http.StatusCreated, depositResponse{
		ProviderID:      providerID,
		PaymentIntentID: intentID,
		Amount:          s.depositAmount,
		Currency:        s.depositCurrency,
	})
}

func (s *Server) handleDepositCapture(w http.ResponseWriter, r *http.Request) {
	if s.deposits == nil {
		s.writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "deposits are not configured"})
		return
	}
	intentID := mux.Vars(r)["intent_id"]
	if err := s.deposits.Capture(r.Context(), intentID); err != nil {
		s.logger.Error("deposit capture failed", "intent_id", intentID, "error", err)
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: "deposit capture failed"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDepositRelease(w http.ResponseWriter, r *http.Request) {
	if s.deposits == nil {
		s.writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "deposits are not configured"})
		return
	}
	intentID := mux.Vars(r)["intent_id"]
	if err := s.deposits.Release(r.Context(), intentID); err != nil {
		s.logger.Error("deposit release failed", "intent_id", intentID, "error", err)
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: "deposit release failed"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleProviderWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "live sharing not enabled", http.StatusNotImplemented)
		return
	}
	providerID := mux.Vars(r)["provider_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	go s.hub.RunProvider(providerID, conn, func(u models.LocationUpdate) error {
		if s.kafka != nil {
			return s.kafka.PublishLocation(u)
		}
		if s.liveStore != nil {
			return s.liveStore.Upsert(context.Background(), u)
		}
		return nil
	})
}

func (s *Server) handleWatchWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "live sharing not enabled", http.StatusNotImplemented)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	remove := s.hub.AddWatcher(conn)
	go func() {
		defer remove()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
