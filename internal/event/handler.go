package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-event-api/internal/auth"
	"github.com/ovaphlow/pitchfork/service-event-api/internal/upload"
)

// ImageStore persists uploaded event images.
type ImageStore interface {
	Save(ctx context.Context, r io.Reader) (string, error)
	Remove(publicPath string) error
	MaxBytes() int64
}

// Handler contains dependencies for handling event endpoints.
type Handler struct {
	svc      *Service
	images   ImageStore
	validate *validator.Validate
	logger   *zap.SugaredLogger
}

// NewHandler constructs a new Handler.
func NewHandler(svc *Service, images ImageStore, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, images: images, validate: validator.New(), logger: logger}
}

// EventRequest is the JSON (or multipart form) body for create and update.
type EventRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Address     string  `json:"address" validate:"required"`
	Date        string  `json:"date" validate:"required"`
	Image       *string `json:"image"`
}

type message struct {
	Message string `json:"message"`
}

const msgRequired = "Title, description, address, and date are required"

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

// requestError is a client error with the status and message to send back.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, message{auth.MsgInvalidToken})
		return
	}
	in, uploaded, err := h.readInput(w, r)
	if err != nil {
		h.writeRequestError(w, err)
		return
	}
	e, err := h.svc.Create(r.Context(), ownerID, in)
	if err != nil {
		h.discard(uploaded)
		h.logger.Errorw("create event failed", "owner_id", ownerID, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, message{"Internal server error"})
		return
	}
	h.logger.Infow("event created", "event_id", e.ID, "owner_id", ownerID)
	h.writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err, "get event failed")
		return
	}
	h.writeJSON(w, http.StatusOK, e)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, message{"Invalid limit"})
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil || offset < 0 {
		h.writeJSON(w, http.StatusBadRequest, message{"Invalid offset"})
		return
	}
	events, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Errorw("list events failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, message{"Internal server error"})
		return
	}
	h.writeJSON(w, http.StatusOK, events)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, message{auth.MsgInvalidToken})
		return
	}
	in, uploaded, err := h.readInput(w, r)
	if err != nil {
		h.writeRequestError(w, err)
		return
	}
	e, prev, err := h.svc.Update(r.Context(), ownerID, r.PathValue("id"), in)
	if err != nil {
		h.discard(uploaded)
		h.writeServiceError(w, err, "update event failed")
		return
	}
	if prev.ImageUploaded && prev.Image != nil && (e.Image == nil || *e.Image != *prev.Image) {
		h.discard(*prev.Image)
	}
	h.writeJSON(w, http.StatusOK, e)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, message{auth.MsgInvalidToken})
		return
	}
	e, err := h.svc.Delete(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err, "delete event failed")
		return
	}
	if e.ImageUploaded && e.Image != nil {
		h.discard(*e.Image)
	}
	h.logger.Infow("event deleted", "event_id", e.ID, "owner_id", ownerID)
	h.writeJSON(w, http.StatusOK, message{"Event deleted"})
}

// readInput decodes a JSON or multipart body. For multipart requests an
// "image" file part is stored and its public path returned as uploaded.
// A client-supplied image value is kept as an opaque reference.
func (h *Handler) readInput(w http.ResponseWriter, r *http.Request) (Input, string, error) {
	var req EventRequest
	var uploaded string

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		maxBytes := h.images.MaxBytes()
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return Input{}, "", &requestError{http.StatusRequestEntityTooLarge, "Upload too large"}
			}
			return Input{}, "", &requestError{http.StatusBadRequest, "Invalid payload"}
		}
		req.Title = r.FormValue("title")
		req.Description = r.FormValue("description")
		req.Address = r.FormValue("address")
		req.Date = r.FormValue("date")
		if v := r.FormValue("image"); v != "" {
			req.Image = &v
		}
		file, _, err := r.FormFile("image")
		switch {
		case err == nil:
			defer file.Close()
			if err := h.validateRequest(&req); err != nil {
				return Input{}, "", err
			}
			uploaded, err = h.images.Save(r.Context(), file)
			if err != nil {
				return Input{}, "", uploadError(err)
			}
			req.Image = &uploaded
		case !errors.Is(err, http.ErrMissingFile):
			return Input{}, "", &requestError{http.StatusBadRequest, "Invalid payload"}
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return Input{}, "", &requestError{http.StatusBadRequest, "Invalid payload"}
	}

	if err := h.validateRequest(&req); err != nil {
		h.discard(uploaded)
		return Input{}, "", err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		h.discard(uploaded)
		return Input{}, "", &requestError{http.StatusBadRequest, "Invalid date"}
	}
	return Input{
		Title:         req.Title,
		Description:   req.Description,
		Address:       req.Address,
		Date:          date,
		Image:         req.Image,
		ImageUploaded: uploaded != "",
	}, uploaded, nil
}

func (h *Handler) validateRequest(req *EventRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Address = strings.TrimSpace(req.Address)
	req.Date = strings.TrimSpace(req.Date)
	if err := h.validate.Struct(req); err != nil {
		return &requestError{http.StatusBadRequest, msgRequired}
	}
	return nil
}

func uploadError(err error) error {
	switch {
	case errors.Is(err, upload.ErrTooLarge):
		return &requestError{http.StatusRequestEntityTooLarge, "Upload too large"}
	case errors.Is(err, upload.ErrUnsupportedType):
		return &requestError{http.StatusUnsupportedMediaType, "Unsupported image type"}
	default:
		return err
	}
}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// discard removes an upload that will not be referenced by any event.
func (h *Handler) discard(publicPath string) {
	if publicPath == "" {
		return
	}
	if err := h.images.Remove(publicPath); err != nil {
		h.logger.Warnw("remove upload failed", "path", publicPath, "err", err)
	}
}

func (h *Handler) writeRequestError(w http.ResponseWriter, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		h.writeJSON(w, reqErr.status, message{reqErr.msg})
		return
	}
	h.logger.Errorw("reading event request failed", "err", err)
	h.writeJSON(w, http.StatusInternalServerError, message{"Internal server error"})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, message{"Event not found"})
	case errors.Is(err, ErrForbidden):
		h.writeJSON(w, http.StatusForbidden, message{"Forbidden"})
	default:
		h.logger.Errorw(logMsg, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, message{"Internal server error"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
