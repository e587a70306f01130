package permissions

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/scholaris/scholaris/internal/authz"
	"github.com/scholaris/scholaris/internal/platform/httpx"
	"github.com/scholaris/scholaris/internal/shared"
)

// Handler exposes the permission catalogue over HTTP.
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

// MountRoutes registers permission routes. Each verb carries its own guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny("view_permissions"))
		r.Get("/", h.handleList)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny("create_permissions"))
		r.Post("/", h.handleCreate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny("edit_permissions"))
		r.Put("/{id}", h.handleUpdate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny("delete_permissions"))
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if perms == nil {
		perms = []Permission{}
	}
	httpx.JSON(w, http.StatusOK, perms)
}

type permissionRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Module      string `json:"module" validate:"max=60"`
	Description string `json:"description" validate:"max=500"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	perm, err := h.service.Create(r.Context(), req.Name, req.Module, req.Description, actorID)
	if err != nil {
		h.logger.Error("create permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, perm)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid permission id")
		return
	}
	var req permissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	perm, err := h.service.Update(r.Context(), id, req.Name, req.Module, req.Description, actorID)
	if err != nil {
		h.logger.Error("update permission", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid permission id")
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	if err := h.service.Deactivate(r.Context(), id, actorID); err != nil {
		h.logger.Error("deactivate permission", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
