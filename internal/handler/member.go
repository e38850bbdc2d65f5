package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wrenhall/chorebank/internal/model"
	"github.com/wrenhall/chorebank/internal/store"
)

type MemberHandler struct {
	members *store.FamilyMemberStore
	logger  *slog.Logger
}

func NewMemberHandler(members *store.FamilyMemberStore, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{members: members, logger: logger}
}

type memberRequest struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	AvatarEmoji string `json:"avatar_emoji"`
	Role        string `json:"role"`
}

func (req *memberRequest) validate() (model.MemberRole, string) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "", "name is required"
	}
	role := model.MemberRole(req.Role)
	if role == "" {
		role = model.RoleChild
	}
	if role != model.RoleGuardian && role != model.RoleChild {
		return "", "role must be guardian or child"
	}
	return role, ""
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	role, msg := req.validate()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, errorBody(msg))
		return
	}

	member, err := h.members.Create(req.Name, req.Color, req.AvatarEmoji, role)
	if err != nil {
		writeError(w, h.logger, err, "create member")
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.List()
	if err != nil {
		writeError(w, h.logger, err, "list members")
		return
	}
	if members == nil {
		members = []model.FamilyMember{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	member, err := h.members.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err, "get member")
		return
	}
	if member == nil {
		writeJSON(w, http.StatusNotFound, errorBody("member not found"))
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	role, msg := req.validate()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, errorBody(msg))
		return
	}

	member, err := h.members.Update(id, req.Name, req.Color, req.AvatarEmoji, role)
	if err != nil {
		writeError(w, h.logger, err, "update member")
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	if err := h.members.Delete(id); err != nil {
		writeError(w, h.logger, err, "delete member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MemberHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("ids is required"))
		return
	}
	if err := h.members.UpdateSortOrder(req.IDs); err != nil {
		writeError(w, h.logger, err, "reorder members")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
