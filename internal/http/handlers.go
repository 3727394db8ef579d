package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Clark-Hu/popcorn/internal/app"
	"github.com/Clark-Hu/popcorn/internal/domain"
)

const maxRequestBody = 1 << 16

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type queryRequest struct {
	Query string `json:"query" validate:"max=200"`
}

type selectRequest struct {
	ID string `json:"id" validate:"required,max=64"`
}

type pointRequest struct {
	Point *int `json:"point" validate:"required,min=0"`
}

type watchedResponse struct {
	Items   []domain.WatchedEntry `json:"items"`
	Summary *domain.Summary       `json:"summary,omitempty"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, sessionFrom(r).Snapshot())
}

func (s *Server) handleSetQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	sess := sessionFrom(r)
	s.await(r, sess.SetQuery(req.Query))
	s.respondJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "id is required")
		return
	}
	sess := sessionFrom(r)
	s.await(r, sess.Select(id))
	s.respondJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Close(r.Context())
	s.respondJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleEscape(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Escape(r.Context())
	s.respondJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	s.withPoint(w, r, (*app.Session).Rate)
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	s.withPoint(w, r, (*app.Session).Hover)
}

func (s *Server) handleUnhover(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := sess.Unhover(); err != nil {
		s.respondSessionError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) withPoint(w http.ResponseWriter, r *http.Request, apply func(*app.Session, int) error) {
	var req pointRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if limit := s.ratingMax(); *req.Point > limit {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("point must be between 0 and %d", limit))
		return
	}
	sess := sessionFrom(r)
	if err := apply(sess, *req.Point); err != nil {
		s.respondSessionError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleListWatched(w http.ResponseWriter, r *http.Request) {
	snap := sessionFrom(r).Snapshot()
	s.respondJSON(w, http.StatusOK, watchedResponse{Items: snap.Watched, Summary: snap.Summary})
}

func (s *Server) handleRemoveWatched(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	sess := sessionFrom(r)
	if !sess.Remove(r.Context(), id) {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Movie is not on the watched list")
		return
	}
	snap := sess.Snapshot()
	s.respondJSON(w, http.StatusOK, watchedResponse{Items: snap.Watched, Summary: snap.Summary})
}

func (s *Server) ratingMax() int {
	if s.cfg.RatingMax > 0 {
		return s.cfg.RatingMax
	}
	return app.DefaultRatingMax
}

func (s *Server) respondSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, app.ErrNoSelection) {
		s.respondError(w, http.StatusConflict, "NO_SELECTION", "No movie is selected")
		return
	}
	s.logger.Error("session operation failed", "error", err)
	s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected error")
}

func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSONBody(w, r, dst); err != nil {
		s.respondDecodeError(w, err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Request failed validation",
				Details: validationDetails(verrs),
			})
			return false
		}
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return false
	}
	return true
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			details[fe.Field()] = "is required"
		case "min":
			details[fe.Field()] = "must be at least " + fe.Param()
		case "max":
			details[fe.Field()] = "must be at most " + fe.Param()
		default:
			details[fe.Field()] = "is invalid"
		}
	}
	return details
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Request body too large")
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}
