package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	authmodels "estekhdam/internal/auth/models"
	"estekhdam/internal/cases/models"
	"estekhdam/internal/cases/service"
	"estekhdam/internal/web"
	id "estekhdam/pkg/domain"
	dErrors "estekhdam/pkg/domain-errors"
	"estekhdam/pkg/platform/httputil"
	"estekhdam/pkg/platform/validation"
	"estekhdam/pkg/requestcontext"
)

// Service is the recruiter-facing case API.
type Service interface {
	Dashboard(ctx context.Context, query string) (*service.Dashboard, error)
	CreateCase(ctx context.Context, actor id.UserID, req models.CreateCaseRequest) (*models.CreateCaseResult, error)
	GetCandidate(ctx context.Context, userID id.UserID) (*service.CandidateProfile, error)
	Close(ctx context.Context, caseID id.CaseID) error
	Advance(ctx context.Context, caseID id.CaseID, next models.Status, version int) (*models.HiringCase, error)
	Delete(ctx context.Context, caseID id.CaseID) error
}

type Handler struct {
	cases     Service
	pages     *web.Renderer
	validator *validation.Validator
	logger    *slog.Logger
}

func New(cases Service, pages *web.Renderer, logger *slog.Logger) *Handler {
	return &Handler{cases: cases, pages: pages, validator: validation.New(), logger: logger}
}

// Register mounts the recruiter routes. The caller applies session and role
// middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/dashboard", h.handleDashboard)
	r.Get("/create", h.handleCreatePage)
	r.Post("/create", h.handleCreate)
	r.Get("/user/{id}", h.handleUser)
	r.Post("/case/{id}/close", h.handleClose)
	r.Post("/case/{id}/delete", h.handleDelete)
	r.Post("/case/{id}/status", h.handleStatus)
}

func pathID(r *http.Request) (int64, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return n, err == nil && n > 0
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.cases.Dashboard(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "dashboard failed", "error", err, "request_id", requestcontext.RequestID(r.Context()))
		h.pages.Render(w, r, http.StatusInternalServerError, "error", "Error",
			map[string]any{"Status": http.StatusInternalServerError, "Message": "The dashboard could not be loaded."})
		return
	}
	h.pages.Render(w, r, http.StatusOK, "dashboard", "Dashboard", dash)
}

type createView struct {
	Form       models.CreateCaseRequest
	Fields     []formField
	Errors     validation.FieldErrors
	Modal      string
	OpenCaseID int64
	Existing   *models.ExistingUser
}

func (h *Handler) renderCreate(w http.ResponseWriter, r *http.Request, status int, view createView) {
	view.Fields = formFields(view.Form)
	h.pages.Render(w, r, status, "create", "New case", view)
}

func (h *Handler) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	h.renderCreate(w, r, http.StatusOK, createView{Form: models.CreateCaseRequest{
		Gender:             "male",
		MaritalStatus:      "single",
		ContractType:       "full_time",
		Degree:             "bachelor",
		ApprovedSalaryType: "fixed",
	}})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		h.pages.Redirect(w, r, "/create", authmodels.FlashError, "Invalid form submission.")
		return
	}
	var req models.CreateCaseRequest
	httputil.DecodeForm(r, &req)
	req.ForceCreate = r.PostFormValue("force_create") == "1"
	req.Normalize()

	if err := h.validator.Struct(req); err != nil {
		h.renderCreate(w, r, http.StatusUnprocessableEntity, createView{Form: req, Errors: validation.Fields(err)})
		return
	}

	res, err := h.cases.CreateCase(ctx, requestcontext.UserID(ctx), req)
	if err != nil {
		switch dErrors.CodeOf(err) {
		case dErrors.CodeValidation, dErrors.CodeConflict:
			h.renderCreate(w, r, http.StatusUnprocessableEntity, createView{
				Form:   req,
				Errors: validation.FieldErrors{"national_id": dErrors.Message(err)},
			})
		default:
			h.logger.ErrorContext(ctx, "create case failed", "error", err, "request_id", requestcontext.RequestID(ctx))
			h.pages.Redirect(w, r, "/create", authmodels.FlashError, "The case could not be created. Please try again.")
		}
		return
	}

	switch res.Outcome {
	case models.OutcomeOpenCaseExists:
		h.renderCreate(w, r, http.StatusConflict, createView{Form: req, Modal: string(res.Outcome), OpenCaseID: res.OpenCaseID})
	case models.OutcomeConfirmMobile:
		h.renderCreate(w, r, http.StatusOK, createView{Form: req, Modal: string(res.Outcome), Existing: res.ExistingUser})
	default:
		h.pages.Flash(r, authmodels.FlashSuccess, fmt.Sprintf("Case #%d created. Candidate username: %s", res.Case.ID, res.Username))
		if res.SMSWarning != "" {
			h.pages.Flash(r, authmodels.FlashWarning, res.SMSWarning)
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}

type userView struct {
	Profile *service.CandidateProfile
	Next    []models.Status
}

func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r)
	if !ok {
		h.pages.Redirect(w, r, "/dashboard", authmodels.FlashError, "User not found.")
		return
	}
	profile, err := h.cases.GetCandidate(r.Context(), id.UserID(userID))
	if err != nil {
		h.pages.Fail(w, r, "/dashboard", err)
		return
	}
	view := userView{Profile: profile}
	if profile.Case != nil {
		view.Next = profile.Case.Status.NextStatuses()
	}
	h.pages.Render(w, r, http.StatusOK, "user", profile.User.FullName, view)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	caseID, ok := pathID(r)
	if !ok {
		h.pages.Redirect(w, r, "/dashboard", authmodels.FlashError, "Case not found.")
		return
	}
	if err := h.cases.Close(r.Context(), id.CaseID(caseID)); err != nil {
		h.pages.Fail(w, r, web.Back(r, "/dashboard"), err)
		return
	}
	h.pages.Redirect(w, r, web.Back(r, "/dashboard"), authmodels.FlashSuccess, "Case closed.")
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	caseID, ok := pathID(r)
	if !ok {
		h.pages.Redirect(w, r, "/dashboard", authmodels.FlashError, "Case not found.")
		return
	}
	if err := h.cases.Delete(r.Context(), id.CaseID(caseID)); err != nil {
		h.pages.Fail(w, r, "/dashboard", err)
		return
	}
	h.pages.Redirect(w, r, "/dashboard", authmodels.FlashSuccess, "Case deleted.")
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	caseID, ok := pathID(r)
	if !ok {
		h.pages.Redirect(w, r, "/dashboard", authmodels.FlashError, "Case not found.")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.pages.Redirect(w, r, "/dashboard", authmodels.FlashError, "Invalid form submission.")
		return
	}
	version, _ := strconv.Atoi(r.PostFormValue("version"))
	c, err := h.cases.Advance(r.Context(), id.CaseID(caseID), models.Status(r.PostFormValue("status")), version)
	if err != nil {
		h.pages.Fail(w, r, web.Back(r, "/dashboard"), err)
		return
	}
	h.pages.Redirect(w, r, fmt.Sprintf("/user/%d", c.CandidateID), authmodels.FlashSuccess,
		"Case moved to "+string(c.Status)+".")
}
