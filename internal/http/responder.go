package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/campus-bookings/internal/application"
)

var (
	errBadRequestBody      = errors.New("the request body could not be parsed")
	errMissingSessionToken = errors.New("a session token is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps application sentinels onto HTTP statuses. Anything
// unrecognized is reported as an internal error without leaking its detail.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "FORBIDDEN",
			Message:   "you are not allowed to perform this operation",
		})
	case errors.Is(err, application.ErrNotOwner):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "NOT_OWNER",
			Message:   "only the owner may perform this operation",
		})
	case errors.Is(err, application.ErrDepartmentMismatch):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "DEPARTMENT_MISMATCH",
			Message:   "this event is restricted to students of its department",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "the requested resource was not found"})
	case errors.Is(err, application.ErrEventNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "the requested event was not found"})
	case errors.Is(err, application.ErrAlreadyBooked):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_BOOKED",
			Message:   "you already have a booking for this event",
		})
	case errors.Is(err, application.ErrHoldExpired):
		r.writeJSON(ctx, w, http.StatusGone, errorResponse{
			ErrorCode: "HOLD_EXPIRED",
			Message:   "the hold expired and its seat has been released",
		})
	case errors.Is(err, application.ErrNotAHold):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "NOT_A_HOLD",
			Message:   "only provisional holds can be confirmed",
		})
	case errors.Is(err, application.ErrNotWaitlisted):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "NOT_WAITLISTED",
			Message:   "the booking is not on a waitlist",
		})
	case errors.Is(err, application.ErrInvalidTransition):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "INVALID_TRANSITION",
			Message:   "the booking cannot change state this way",
		})
	case errors.Is(err, application.ErrConcurrencyConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "CONFLICT",
			Message:   "the booking changed while the request was in flight, try again",
		})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "INVALID_CREDENTIALS",
			Message:   "the username or password is incorrect",
		})
	case errors.Is(err, application.ErrSessionExpired):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "SESSION_EXPIRED",
			Message:   "the session has expired, log in again",
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "the request contained invalid fields",
				Errors:  vErr.FieldErrors,
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "unhandled service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "an internal error occurred"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
