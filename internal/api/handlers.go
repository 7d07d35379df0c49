package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/itsbohara/anchor/internal/apperr"
	"github.com/itsbohara/anchor/internal/refservice"
	"github.com/itsbohara/anchor/internal/shell"
)

const maxBodyBytes = 1 << 20

// Actions runs an OS integration command for a path.
type Actions interface {
	Do(command, path string) error
}

// Handler holds API route handlers.
type Handler struct {
	svc     *refservice.Service
	actions Actions
}

// NewHandler creates a new Handler.
func NewHandler(svc *refservice.Service, actions Actions) *Handler {
	return &Handler{svc: svc, actions: actions}
}

// ListReferences handles GET /api/references.
//
//	@Summary		List all references in persisted order
//	@Tags			references
//	@Produce		json
//	@Success		200	{array}	Reference
//	@Security		BearerAuth
//	@Router			/references [get]
func (h *Handler) ListReferences(w http.ResponseWriter, r *http.Request) {
	refs, err := h.svc.List(r.Context())
	if err != nil {
		slog.Error("list references failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to load references"))
		return
	}
	writeJSON(w, http.StatusOK, refs)
}

// AddReference handles POST /api/references.
//
//	@Summary		Create a reference
//	@Tags			references
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReferencePayload	true	"Reference to create"
//	@Success		201		{object}	Reference
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/references [post]
func (h *Handler) AddReference(w http.ResponseWriter, r *http.Request) {
	var p ReferencePayload
	if !decodeBody(w, r, &p) {
		return
	}
	ref, err := h.svc.Add(r.Context(), p)
	if err != nil {
		writeServiceError(w, "add reference", err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

// UpdateReference handles PUT /api/references/{id}.
//
//	@Summary		Replace the editable fields of a reference
//	@Tags			references
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Reference id"
//	@Param			body	body		ReferencePayload	true	"New field values"
//	@Success		200		{object}	Reference
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/references/{id} [put]
func (h *Handler) UpdateReference(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var p ReferencePayload
	if !decodeBody(w, r, &p) {
		return
	}
	ref, err := h.svc.Update(r.Context(), id, p)
	if err != nil {
		writeServiceError(w, "update reference", err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

// DeleteReference handles DELETE /api/references/{id}.
//
//	@Summary		Delete a reference
//	@Tags			references
//	@Param			id	path	string	true	"Reference id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/references/{id} [delete]
func (h *Handler) DeleteReference(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "delete reference", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PathExists handles GET /api/path-exists?path=.
//
//	@Summary		Report whether a path exists on the server host
//	@Tags			references
//	@Produce		json
//	@Param			path	query		string	true	"Absolute path"
//	@Success		200		{object}	PathExistsResponse
//	@Security		BearerAuth
//	@Router			/path-exists [get]
func (h *Handler) PathExists(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.PathExists(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		slog.Warn("path check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to check path"))
		return
	}
	writeJSON(w, http.StatusOK, PathExistsResponse{Exists: ok})
}

// RunAction handles POST /api/actions/{command}.
//
//	@Summary		Run an OS integration for a path
//	@Tags			actions
//	@Accept			json
//	@Param			command	path	string			true	"Command"	Enums(open_in_finder, open_in_terminal, open_in_vscode, reveal_in_finder, copy_path_to_clipboard)
//	@Param			body	body	ActionRequest	true	"Target path"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/actions/{command} [post]
func (h *Handler) RunAction(w http.ResponseWriter, r *http.Request) {
	command := chi.URLParam(r, "command")
	if !shell.Known(command) || h.actions == nil {
		writeJSON(w, http.StatusNotFound, errorBody("unknown command"))
		return
	}
	var req ActionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.actions.Do(command, req.Path); err != nil {
		slog.Warn("action failed", slog.String("command", command), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to run "+command))
		return
	}
	if command != shell.CopyPath {
		if _, err := h.svc.Touch(r.Context(), req.Path); err != nil {
			slog.Warn("touch failed", slog.String("path", req.Path), slog.String("error", err.Error()))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// writeServiceError maps service sentinels to HTTP status. Validation
// messages are passed through so the client can show them inline.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalid):
		msg := strings.TrimSuffix(err.Error(), ": "+apperr.ErrInvalid.Error())
		writeJSON(w, http.StatusBadRequest, errorBody(msg))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("Reference not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("Reference already exists"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to "+op))
	}
}
