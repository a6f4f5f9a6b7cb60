package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	authmodels "estekhdam/internal/auth/models"
	notificationmodels "estekhdam/internal/notification/models"
	"estekhdam/internal/review/models"
	"estekhdam/internal/review/service"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/requestcontext"
)

// multipartMemory is how much of an upload is buffered before spilling to disk.
const multipartMemory = 8 << 20

// RegisterCandidate mounts the candidate self-service routes.
func (h *Handler) RegisterCandidate(r chi.Router) {
	r.Get("/me", h.handleMe)
	r.Post("/me/documents", h.handleSubmitDocument)
	r.Post("/me/video", h.handleSubmitVideo)
	r.Post("/me/physical", h.handleMarkDelivered)
	r.Post("/me/notifications/{notificationID}/read", h.handleMarkRead)
}

type meView struct {
	Items         *models.CandidateItems
	Open          bool
	DocumentTypes []string
	Notifications []notificationmodels.Notification
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	items, err := h.reviews.MyItems(ctx, userID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.pages.Render(w, r, http.StatusOK, "no_case", "My case", nil)
			return
		}
		h.serverError(w, r, "candidate items failed", err)
		return
	}
	notes, err := h.notifications.ListForUser(ctx, userID)
	if err != nil {
		h.serverError(w, r, "notifications failed", err)
		return
	}
	h.pages.Render(w, r, http.StatusOK, "me", "My case", meView{
		Items:         items,
		Open:          items.Case.IsOpen(),
		DocumentTypes: h.reviews.Config().DocumentTypes(),
		Notifications: notes,
	})
}

// readUpload parses a multipart body capped at the largest configured limit.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (service.Upload, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.Upload{}, nil, dErrors.New(dErrors.CodeValidation, "file exceeds the size limit")
		}
		return service.Upload{}, nil, dErrors.New(dErrors.CodeBadRequest, "invalid upload")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return service.Upload{}, nil, dErrors.New(dErrors.CodeValidation, "choose a file to upload")
	}
	cleanup := func() {
		_ = file.Close()
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}
	return service.Upload{Filename: header.Filename, Size: header.Size, Body: file}, cleanup, nil
}

// maxUploadBytes leaves room for multipart framing on top of the largest limit.
func (h *Handler) maxUploadBytes() int64 {
	var largest int64
	for _, l := range h.reviews.Config().DocumentLimits {
		largest = max(largest, l.MaxBytes())
	}
	return largest + 1<<20
}

func (h *Handler) handleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	up, cleanup, err := h.readUpload(w, r)
	if err != nil {
		h.pages.Fail(w, r, "/me", err)
		return
	}
	defer cleanup()
	doc, err := h.reviews.SubmitDocument(ctx, requestcontext.UserID(ctx), r.FormValue("doc_type"), up)
	if err != nil {
		h.pages.Fail(w, r, "/me", err)
		return
	}
	h.pages.Redirect(w, r, "/me", authmodels.FlashSuccess, "Document "+doc.Type+" uploaded.")
}

func (h *Handler) handleSubmitVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	up, cleanup, err := h.readUpload(w, r)
	if err != nil {
		h.pages.Fail(w, r, "/me", err)
		return
	}
	defer cleanup()
	duration, _ := strconv.Atoi(r.FormValue("duration_sec"))
	if _, err := h.reviews.SubmitVideo(ctx, requestcontext.UserID(ctx), up, max(duration, 0)); err != nil {
		h.pages.Fail(w, r, "/me", err)
		return
	}
	h.pages.Redirect(w, r, "/me", authmodels.FlashSuccess, "Video submitted for review.")
}

func (h *Handler) handleMarkDelivered(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		h.pages.Redirect(w, r, "/me", authmodels.FlashError, "Invalid form submission.")
		return
	}
	if _, err := h.reviews.MarkDelivered(ctx, requestcontext.UserID(ctx), r.PostFormValue("tracking_code")); err != nil {
		h.pages.Fail(w, r, "/me", err)
		return
	}
	h.pages.Redirect(w, r, "/me", authmodels.FlashSuccess, "Delivery recorded.")
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notificationID, ok := pathID(r, "notificationID")
	if !ok {
		h.pages.Redirect(w, r, "/me", authmodels.FlashError, "Notification not found.")
		return
	}
	if err := h.notifications.MarkRead(ctx, requestcontext.UserID(ctx), id.NotificationID(notificationID)); err != nil {
		h.pages.Fail(w, r, "/me", err)
		return
	}
	http.Redirect(w, r, "/me", http.StatusSeeOther)
}
