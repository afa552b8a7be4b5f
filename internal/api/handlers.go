package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/localmart/booking-engine/internal/booking"
)

// Actor identity and role arrive from the upstream auth layer via headers;
// authentication itself is outside this service.
const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
)

func actorFromRequest(r *http.Request) (uuid.UUID, booking.Role, error) {
	role := booking.Role(r.Header.Get(headerActorRole))
	if !role.Valid() {
		return uuid.Nil, "", errors.New("X-Actor-Role must be customer, vendor or admin")
	}
	actorID, err := uuid.Parse(r.Header.Get(headerActorID))
	if err != nil {
		return uuid.Nil, "", errors.New("X-Actor-ID must be a valid UUID")
	}
	return actorID, role, nil
}

func createBookingHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_customer_id", "customer_id must be a valid UUID")
			return
		}

		vendorID, err := uuid.Parse(req.VendorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_vendor_id", "vendor_id must be a valid UUID")
			return
		}

		serviceDate, err := time.ParseInLocation("2006-01-02", req.ServiceDate, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_date", "service_date must be YYYY-MM-DD")
			return
		}

		start, err := booking.ParseTimeOfDay(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be HH:MM")
			return
		}
		end, err := booking.ParseTimeOfDay(req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be HH:MM")
			return
		}

		items := make([]booking.LineItemRequest, 0, len(req.LineItems))
		for _, item := range req.LineItems {
			serviceID, err := uuid.Parse(item.ServiceID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
				return
			}
			items = append(items, booking.LineItemRequest{ServiceID: serviceID, Quantity: item.Quantity})
		}

		b, err := engine.CreateBooking(r.Context(), booking.CreateBookingRequest{
			CustomerID:    customerID,
			VendorID:      vendorID,
			Items:         items,
			ServiceDate:   serviceDate,
			Slot:          booking.TimeSlot{Start: start, End: end},
			PaymentMethod: req.PaymentMethod,
		})
		if err != nil {
			handleEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBookingResponse(b))
	}
}

func getBookingHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		actorID, role, err := actorFromRequest(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor", err.Error())
			return
		}

		b, err := engine.GetBooking(r.Context(), id, role, actorID)
		if err != nil {
			handleEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func transitionBookingHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		_, role, err := actorFromRequest(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor", err.Error())
			return
		}

		var req TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		b, err := engine.TransitionStatus(r.Context(), id, booking.Status(req.Target), role, req.Notes)
		if err != nil {
			handleEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func cancelBookingHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		_, role, err := actorFromRequest(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor", err.Error())
			return
		}

		var req CancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		b, err := engine.CancelBooking(r.Context(), id, role, req.Reason)
		if err != nil {
			handleEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func handleEngineError(w http.ResponseWriter, err error) {
	var validationErr *booking.ValidationError
	var externalErr *booking.ExternalServiceError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, "validation_failed", validationErr.Error())
	case errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, booking.ErrVendorNotFound):
		writeError(w, http.StatusNotFound, "vendor_not_found", err.Error())
	case errors.Is(err, booking.ErrInvalidLineItem):
		writeError(w, http.StatusUnprocessableEntity, "invalid_line_item", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, booking.ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot_conflict", "slot was reserved by another booking, pick a different slot")
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrStaleBooking):
		writeError(w, http.StatusConflict, "stale_booking", "booking changed concurrently, re-read and retry")
	case errors.Is(err, booking.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "access_denied", "booking is only visible to its customer, vendor, or an admin")
	case errors.As(err, &externalErr):
		writeError(w, http.StatusServiceUnavailable, "external_service_error", externalErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
