package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/camelia-studio/camelia/internal/domain/booking"
	"github.com/camelia-studio/camelia/pkg/timewindow"
)

const dateLayout = "2006-01-02"

type bookingResponse struct {
	ID           string `json:"id"`
	Number       string `json:"bookingNumber"`
	ServiceID    string `json:"serviceId"`
	UserID       string `json:"userId,omitempty"`
	ClientName   string `json:"clientName,omitempty"`
	ClientPhone  string `json:"clientPhone,omitempty"`
	ClientEmail  string `json:"clientEmail,omitempty"`
	Date         string `json:"date"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	Status       string `json:"status"`
	Location     string `json:"location,omitempty"`
	Notes        string `json:"notes,omitempty"`
	ReminderSent bool   `json:"reminderSent"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

func toBookingResponse(b *booking.Booking) bookingResponse {
	return bookingResponse{
		ID:           b.ID,
		Number:       b.Number,
		ServiceID:    b.ServiceID,
		UserID:       b.UserID,
		ClientName:   b.ClientName,
		ClientPhone:  b.ClientPhone,
		ClientEmail:  b.ClientEmail,
		Date:         b.Date.Format(dateLayout),
		StartTime:    b.StartTime.Format(time.RFC3339),
		EndTime:      b.EndTime.Format(time.RFC3339),
		Status:       string(b.Status),
		Location:     b.Location,
		Notes:        b.Notes,
		ReminderSent: b.ReminderSent,
		CreatedAt:    b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    b.UpdatedAt.Format(time.RFC3339),
	}
}

// Availability serves GET /bookings/availability/{serviceID}?date=YYYY-MM-DD.
// The slot grid can run to dozens of entries per day, so the response is
// streamed through a jx encoder instead of building an intermediate DTO tree.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	serviceID := chi.URLParam(r, "serviceID")

	date, err := timewindow.ParseDate(r.URL.Query().Get("date"), time.UTC)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	av, err := h.scheduler.Availability(r.Context(), serviceID, date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("serviceId")
	e.Str(av.ServiceID)
	e.FieldStart("date")
	e.Str(av.Date.Format(dateLayout))
	e.FieldStart("durationMinutes")
	e.Int(int(av.Duration.Minutes()))
	e.FieldStart("slots")
	e.ArrStart()
	for _, slot := range av.Slots {
		e.ObjStart()
		e.FieldStart("startTime")
		e.Str(timewindow.Clock(slot.Start))
		e.FieldStart("available")
		e.Bool(slot.Available)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("booked")
	e.ArrStart()
	for _, iv := range av.Booked {
		e.ObjStart()
		e.FieldStart("startTime")
		e.Str(iv.Start.Format(time.RFC3339))
		e.FieldStart("endTime")
		e.Str(iv.End.Format(time.RFC3339))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(e.Bytes())
}

type createBookingRequest struct {
	ServiceID   string `json:"serviceId"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	Location    string `json:"location,omitempty"`
	Notes       string `json:"notes,omitempty"`
	ClientName  string `json:"clientName,omitempty"`
	ClientPhone string `json:"clientPhone,omitempty"`
	ClientEmail string `json:"clientEmail,omitempty"`
}

// CreateBooking serves POST /bookings.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decode(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := timewindow.ParseDate(req.Date, time.UTC)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	start, err := timewindow.ParseClock(date, req.StartTime)
	if err != nil {
		writeError(w, r, booking.ErrInvalidStartTime)
		return
	}

	b, err := h.scheduler.Create(r.Context(), booking.CreateRequest{
		ServiceID:   req.ServiceID,
		Date:        date,
		StartTime:   start,
		Location:    req.Location,
		Notes:       req.Notes,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		ClientEmail: req.ClientEmail,
	}, ActorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBookingResponse(b))
}

type updateBookingRequest struct {
	Status    *string `json:"status,omitempty"`
	Date      *string `json:"date,omitempty"`
	StartTime *string `json:"startTime,omitempty"`
	Location  *string `json:"location,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// UpdateBooking serves PATCH /bookings/{id}.
func (h *Handler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req updateBookingRequest
	if err := decode(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd := booking.UpdateRequest{
		StartClock: req.StartTime,
		Location:   req.Location,
		Notes:      req.Notes,
	}
	if req.Status != nil {
		status := booking.Status(*req.Status)
		if !status.Valid() {
			writeErrorMessage(w, http.StatusBadRequest, "invalid booking status")
			return
		}
		upd.Status = &status
	}
	if req.Date != nil {
		date, err := timewindow.ParseDate(*req.Date, time.UTC)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		upd.Date = &date
	}

	b, err := h.scheduler.Update(r.Context(), chi.URLParam(r, "id"), upd, ActorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

// DeleteBooking serves DELETE /bookings/{id}.
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.Remove(r.Context(), chi.URLParam(r, "id"), ActorFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
