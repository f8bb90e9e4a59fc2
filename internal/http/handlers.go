package http

import (
	"net/http"
	"strings"

	"reservas/internal/core"
)

type createProfileRequest struct {
	Name string `json:"name"`
}

type renameProfileRequest struct {
	Name string `json:"name"`
}

type createBookingRequest struct {
	ReservationNumber string `json:"reservationNumber"`
}

type deleteBookingsRequest struct {
	IDs []string `json:"ids"`
}

type itemRequest struct {
	Name     string        `json:"name"`
	Value    core.Money    `json:"value"`
	Currency core.Currency `json:"currency"`
}

type paymentRequest struct {
	Amount   core.Money    `json:"amount"`
	Currency core.Currency `json:"currency"`
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"profiles": s.svc.ListProfiles(r.Context())})
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if err := s.svc.CreateProfile(r.Context(), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": strings.TrimSpace(req.Name)})
}

func (s *Server) handleRenameProfile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req renameProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if err := s.svc.RenameProfile(r.Context(), name, req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStatements(name)
	s.invalidateStatements(strings.TrimSpace(req.Name))
	writeJSON(w, http.StatusOK, map[string]string{"name": strings.TrimSpace(req.Name)})
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.svc.DeleteProfile(r.Context(), name); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStatements(name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.ListBookings(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]core.Booking{"bookings": bookings})
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req createBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	booking, err := s.svc.CreateBooking(r.Context(), name, req.ReservationNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStatements(name)
	writeJSON(w, http.StatusCreated, booking)
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := s.svc.GetBooking(r.Context(), r.PathValue("name"), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"booking": booking,
		"totals":  core.CalculateTotals(booking),
	})
}

func (s *Server) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.svc.DeleteBooking(r.Context(), name, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStatements(name)
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteBookingsBulk removes the bookings named in the body, or every
// booking of the profile when the body carries no ids.
func (s *Server) handleDeleteBookingsBulk(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req deleteBookingsRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}
	}

	var removed []string
	var err error
	if len(req.IDs) == 0 {
		removed, err = s.svc.DeleteAllBookings(r.Context(), name)
	} else {
		removed, err = s.svc.DeleteBookings(r.Context(), name, req.IDs)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStatements(name)
	if removed == nil {
		removed = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"removed": removed})
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	item, err := s.svc.AddItem(r.Context(), name, r.PathValue("id"), core.Item{
		Name:     req.Name,
		Value:    req.Value,
		Currency: req.Currency,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStatements(name)
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	item, err := s.svc.UpdateItem(r.Context(), name, r.PathValue("id"), core.Item{
		ID:       r.PathValue("itemID"),
		Name:     req.Name,
		Value:    req.Value,
		Currency: req.Currency,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStatements(name)
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.svc.DeleteItem(r.Context(), name, r.PathValue("id"), r.PathValue("itemID")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStatements(name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	payment, err := s.svc.AddPayment(r.Context(), name, r.PathValue("id"), core.Payment{
		Amount:   req.Amount,
		Currency: req.Currency,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateStatements(name)
	writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	bookingID := r.PathValue("id")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "html"
	}
	if format != "html" && format != "text" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "format must be html or text"})
		return
	}

	key := statementKey(name, bookingID, format)
	if body, ok := s.statementCache.Get(key); ok {
		writeStatement(w, format, body)
		return
	}

	booking, err := s.svc.GetBooking(r.Context(), name, bookingID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body string
	if format == "text" {
		body = s.renderer.StatementText(name, booking)
	} else {
		var sb strings.Builder
		if err := s.renderer.StatementHTML(&sb, name, booking); err != nil {
			writeError(w, r, err)
			return
		}
		body = sb.String()
	}

	s.statementCache.Set(key, body)
	writeStatement(w, format, body)
}

// handleReport renders the consolidated report over the bookings selected by
// the ids query parameter. An empty selection is rejected.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "html"
	}
	if format != "html" && format != "text" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "format must be html or text"})
		return
	}

	selected := map[string]bool{}
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			selected[id] = true
		}
	}
	if len(selected) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "no bookings selected"})
		return
	}

	bookings, err := s.svc.ListBookings(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var chosen []core.Booking
	for _, b := range bookings {
		if selected[b.ID] {
			chosen = append(chosen, b)
		}
	}
	if len(chosen) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "no bookings selected"})
		return
	}

	if format == "text" {
		writeStatement(w, format, s.renderer.ReportText(name, chosen))
		return
	}
	var sb strings.Builder
	if err := s.renderer.ReportHTML(&sb, name, chosen); err != nil {
		writeError(w, r, err)
		return
	}
	writeStatement(w, format, sb.String())
}

func writeStatement(w http.ResponseWriter, format, body string) {
	if format == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func statementKey(profile, bookingID, format string) string {
	return profile + "\x00" + bookingID + "\x00" + format
}

func (s *Server) invalidateStatements(profile string) {
	s.statementCache.DeletePrefix(profile + "\x00")
}
