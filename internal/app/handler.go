package app

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"inigma/internal/domain"
	"inigma/internal/secret"
	"inigma/internal/utility"
)

type Handler struct {
	secrets *secret.Service
	log     *zap.SugaredLogger
}

func NewHandler(secrets *secret.Service, log *zap.SugaredLogger) *Handler {
	return &Handler{secrets: secrets, log: log}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utility.HttpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := h.secrets.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utility.WriteJSON(w, http.StatusCreated, domain.CreateRes{ID: id})
}

func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	var req domain.ViewReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utility.HttpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.secrets.View(r.Context(), req.ID, req.UID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utility.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	var req domain.ClaimReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utility.HttpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.secrets.Claim(r.Context(), req); err != nil {
		h.writeError(w, err)
		return
	}
	utility.WriteJSON(w, http.StatusOK, domain.StatusRes{Status: "success", Message: "secret owned"})
}

func (h *Handler) HandleRename(w http.ResponseWriter, r *http.Request) {
	var req domain.RenameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utility.HttpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.secrets.Rename(r.Context(), req); err != nil {
		h.writeError(w, err)
		return
	}
	utility.WriteJSON(w, http.StatusOK, domain.StatusRes{Status: "success", Message: "custom name updated"})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	var req domain.DeleteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utility.HttpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.secrets.Delete(r.Context(), req.ID, req.UID); err != nil {
		h.writeError(w, err)
		return
	}
	utility.WriteJSON(w, http.StatusOK, domain.StatusRes{Status: "success", Message: "secret deleted"})
}

func (h *Handler) HandleListOwned(w http.ResponseWriter, r *http.Request) {
	var req domain.ListReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utility.HttpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.secrets.ListOwned(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utility.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	var req domain.ListReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utility.HttpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.secrets.ListPending(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utility.WriteJSON(w, http.StatusOK, res)
}

// writeError maps the lifecycle error taxonomy onto HTTP statuses. Missing
// and expired secrets share one stable message so a dead link is
// indistinguishable from one that never existed.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		utility.HttpError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		utility.HttpError(w, http.StatusNotFound, "no such secret")
	case errors.Is(err, domain.ErrForbidden):
		utility.HttpError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, domain.ErrConflict):
		utility.HttpError(w, http.StatusConflict, "secret already owned")
	default:
		h.log.Errorw("request failed", "error", err)
		utility.HttpError(w, http.StatusInternalServerError, "internal error")
	}
}
