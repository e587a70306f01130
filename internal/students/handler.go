package students

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/scholaris/scholaris/internal/authz"
	"github.com/scholaris/scholaris/internal/platform/httpx"
)

// Handler exposes student enrolment over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     *authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers student routes behind their permission guards.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny("view_students"))
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny("create_students"))
		r.Post("/", h.handleCreate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny("edit_students"))
		r.Put("/{id}", h.handleUpdate)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	students, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list students", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if students == nil {
		students = []Student{}
	}
	httpx.JSON(w, http.StatusOK, students)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid student id")
		return
	}
	student, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, student)
}

type createStudentRequest struct {
	FirstName     string `json:"first_name" validate:"required,max=80"`
	LastName      string `json:"last_name" validate:"required,max=80"`
	AdmissionNo   string `json:"admission_no" validate:"required,max=40"`
	ClassName     string `json:"class_name" validate:"max=40"`
	GuardianPhone string `json:"guardian_phone" validate:"max=30"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	student, err := h.service.Create(r.Context(), CreateStudentInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		AdmissionNo:   req.AdmissionNo,
		ClassName:     req.ClassName,
		GuardianPhone: req.GuardianPhone,
	})
	if err != nil {
		h.logger.Error("create student", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, student)
}

type updateStudentRequest struct {
	FirstName     string `json:"first_name" validate:"required,max=80"`
	LastName      string `json:"last_name" validate:"required,max=80"`
	ClassName     string `json:"class_name" validate:"max=40"`
	GuardianPhone string `json:"guardian_phone" validate:"max=30"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid student id")
		return
	}
	var req updateStudentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	student, err := h.service.Update(r.Context(), id, UpdateStudentInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		ClassName:     req.ClassName,
		GuardianPhone: req.GuardianPhone,
	})
	if err != nil {
		h.logger.Error("update student", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, student)
}
