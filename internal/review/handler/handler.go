package handler

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	authmodels "estekhdam/internal/auth/models"
	casemodels "estekhdam/internal/cases/models"
	notificationmodels "estekhdam/internal/notification/models"
	"estekhdam/internal/review/models"
	"estekhdam/internal/review/service"
	"estekhdam/internal/settings"
	"estekhdam/internal/web"
	id "estekhdam/pkg/domain"
	"estekhdam/pkg/requestcontext"
)

// Service is the review queue API used by recruiters and candidates.
type Service interface {
	Config() *settings.AppConfig
	DocumentQueue(ctx context.Context, query string) ([]models.DocumentQueueRow, error)
	CaseDocuments(ctx context.Context, caseID id.CaseID) (*casemodels.HiringCase, []models.Document, error)
	DecideDocument(ctx context.Context, actor id.UserID, docID id.DocumentID, decision models.Decision) (*models.Document, error)
	Videos(ctx context.Context, query string) ([]models.VideoRow, error)
	DecideVideo(ctx context.Context, actor id.UserID, videoID id.VideoID, decision models.Decision) (*models.VideoKYC, error)
	Physical(ctx context.Context, query string) ([]models.PhysicalRow, error)
	DecidePhysical(ctx context.Context, checklistID id.ChecklistID, verdict models.Verdict, reason string) (*models.PhysicalChecklist, error)
	OpenDocument(ctx context.Context, docID id.DocumentID) (*models.Document, *os.File, error)
	OpenVideo(ctx context.Context, videoID id.VideoID) (*models.VideoKYC, *os.File, error)

	SubmitDocument(ctx context.Context, candidate id.UserID, docType string, up service.Upload) (*models.Document, error)
	SubmitVideo(ctx context.Context, candidate id.UserID, up service.Upload, durationSec int) (*models.VideoKYC, error)
	MarkDelivered(ctx context.Context, candidate id.UserID, trackingCode string) (*models.PhysicalChecklist, error)
	MyItems(ctx context.Context, candidate id.UserID) (*models.CandidateItems, error)
}

type Notifications interface {
	ListForUser(ctx context.Context, userID id.UserID) ([]notificationmodels.Notification, error)
	MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error
}

type Handler struct {
	reviews       Service
	notifications Notifications
	pages         *web.Renderer
	logger        *slog.Logger
}

func New(reviews Service, notifications Notifications, pages *web.Renderer, logger *slog.Logger) *Handler {
	return &Handler{reviews: reviews, notifications: notifications, pages: pages, logger: logger}
}

// RegisterRecruiter mounts the review queues and decision endpoints.
func (h *Handler) RegisterRecruiter(r chi.Router) {
	r.Get("/queue/docs", h.handleDocumentQueue)
	r.Get("/docs/{caseID}", h.handleCaseDocuments)
	r.Post("/docs/{docID}/decision", h.handleDocumentDecision)
	r.Get("/videos", h.handleVideos)
	r.Post("/video/{videoID}/decision", h.handleVideoDecision)
	r.Get("/physical", h.handlePhysical)
	r.Post("/physical/{checklistID}/decision", h.handlePhysicalDecision)
	r.Get("/files/docs/{docID}", h.handleDocumentFile)
	r.Get("/files/videos/{videoID}", h.handleVideoFile)
}

func pathID(r *http.Request, name string) (int64, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return n, err == nil && n > 0
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, what string, err error) {
	ctx := r.Context()
	h.logger.ErrorContext(ctx, what, "error", err, "request_id", requestcontext.RequestID(ctx))
	h.pages.Render(w, r, http.StatusInternalServerError, "error", "Error",
		map[string]any{"Status": http.StatusInternalServerError, "Message": "The page could not be loaded."})
}

type queueView struct {
	Query       string
	Rows        any
	RejectCodes []models.RejectCode
}

func (h *Handler) handleDocumentQueue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	rows, err := h.reviews.DocumentQueue(r.Context(), q)
	if err != nil {
		h.serverError(w, r, "document queue failed", err)
		return
	}
	h.pages.Render(w, r, http.StatusOK, "docs_queue", "Document queue", queueView{Query: q, Rows: rows})
}

type caseDocsView struct {
	Case        *casemodels.HiringCase
	Docs        []models.Document
	RejectCodes []models.RejectCode
}

func (h *Handler) handleCaseDocuments(w http.ResponseWriter, r *http.Request) {
	caseID, ok := pathID(r, "caseID")
	if !ok {
		h.pages.Redirect(w, r, "/queue/docs", authmodels.FlashError, "Case not found.")
		return
	}
	c, docs, err := h.reviews.CaseDocuments(r.Context(), id.CaseID(caseID))
	if err != nil {
		h.pages.Fail(w, r, "/queue/docs", err)
		return
	}
	h.pages.Render(w, r, http.StatusOK, "case_docs", "Documents", caseDocsView{Case: c, Docs: docs, RejectCodes: models.RejectCodes})
}

func decisionFrom(r *http.Request) models.Decision {
	return models.Decision{
		Verdict: models.Verdict(r.PostFormValue("decision")),
		Code:    models.RejectCode(r.PostFormValue("reject_code")),
		Reason:  r.PostFormValue("reject_reason"),
	}
}

func (h *Handler) handleDocumentDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID, ok := pathID(r, "docID")
	if !ok || r.ParseForm() != nil {
		h.pages.Redirect(w, r, "/queue/docs", authmodels.FlashError, "Document not found.")
		return
	}
	doc, err := h.reviews.DecideDocument(ctx, requestcontext.UserID(ctx), id.DocumentID(docID), decisionFrom(r))
	if err != nil {
		h.pages.Fail(w, r, web.Back(r, "/queue/docs"), err)
		return
	}
	h.pages.Redirect(w, r, "/docs/"+doc.CaseID.String(), authmodels.FlashSuccess, "Decision saved.")
}

func (h *Handler) handleVideos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	rows, err := h.reviews.Videos(r.Context(), q)
	if err != nil {
		h.serverError(w, r, "video queue failed", err)
		return
	}
	h.pages.Render(w, r, http.StatusOK, "videos", "Video KYC", queueView{Query: q, Rows: rows, RejectCodes: models.RejectCodes})
}

func (h *Handler) handleVideoDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videoID, ok := pathID(r, "videoID")
	if !ok || r.ParseForm() != nil {
		h.pages.Redirect(w, r, "/videos", authmodels.FlashError, "Video not found.")
		return
	}
	if _, err := h.reviews.DecideVideo(ctx, requestcontext.UserID(ctx), id.VideoID(videoID), decisionFrom(r)); err != nil {
		h.pages.Fail(w, r, "/videos", err)
		return
	}
	h.pages.Redirect(w, r, "/videos", authmodels.FlashSuccess, "Video review saved.")
}

func (h *Handler) handlePhysical(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	rows, err := h.reviews.Physical(r.Context(), q)
	if err != nil {
		h.serverError(w, r, "physical queue failed", err)
		return
	}
	h.pages.Render(w, r, http.StatusOK, "physical", "Physical delivery", queueView{Query: q, Rows: rows})
}

func (h *Handler) handlePhysicalDecision(w http.ResponseWriter, r *http.Request) {
	checklistID, ok := pathID(r, "checklistID")
	if !ok || r.ParseForm() != nil {
		h.pages.Redirect(w, r, "/physical", authmodels.FlashError, "Record not found.")
		return
	}
	_, err := h.reviews.DecidePhysical(r.Context(), id.ChecklistID(checklistID),
		models.Verdict(r.PostFormValue("decision")), r.PostFormValue("reason"))
	if err != nil {
		h.pages.Fail(w, r, "/physical", err)
		return
	}
	h.pages.Redirect(w, r, "/physical", authmodels.FlashSuccess, "Physical delivery verdict saved.")
}
