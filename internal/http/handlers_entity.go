package http

import (
	"log/slog"
	"net/http"

	"mico/internal/core"
	"mico/internal/ledger"
)

// userID extracts the caller's identity. The identity provider itself is
// external; by the time requests land here its middleware has put the user
// id in X-User-ID.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := r.Header.Get("X-User-ID")
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return "", false
	}
	return uid, true
}

type entityDTO struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Type     string `json:"type"`
	TypeName string `json:"typeName,omitempty"`
	Name     string `json:"name"`
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	entities, err := s.store.ListEntities(r.Context(), uid)
	if err != nil {
		slog.ErrorContext(r.Context(), "List entities failed", "error", err)
		writeStoreError(w, err)
		return
	}
	dtos := make([]entityDTO, len(entities))
	for i, e := range entities {
		dtos[i] = entityDTO{ID: e.ID, UserID: e.UserID, Type: e.Type, TypeName: e.TypeName, Name: e.Name}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": dtos})
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	e, err := s.store.GetEntity(r.Context(), r.PathValue("id"))
	if err != nil || e.UserID != uid {
		// Unknown and foreign entities look the same to the caller.
		writeJSON(w, http.StatusOK, map[string]any{"entity": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entity": entityDTO{ID: e.ID, UserID: e.UserID, Type: e.Type, Name: e.Name},
	})
}

type entityRequest struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func (s *Server) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req entityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e := core.Entity{UserID: uid, Type: req.Type, Name: req.Name}
	if err := e.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if _, err := s.store.CreateEntity(r.Context(), e); err != nil {
		slog.ErrorContext(r.Context(), "Create entity failed", "error", err)
		writeStoreError(w, err)
		return
	}
	writeSuccess(w)
}

type entityUpdateRequest struct {
	Type *string `json:"type"`
	Name *string `json:"name"`
}

func (s *Server) handleUpdateEntity(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req entityUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	changes := ledger.EntityChanges{Name: req.Name, Type: req.Type}
	if err := s.store.UpdateEntity(r.Context(), r.PathValue("id"), uid, changes); err != nil {
		slog.ErrorContext(r.Context(), "Update entity failed", "error", err)
		writeStoreError(w, err)
		return
	}
	writeSuccess(w)
}

func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteEntity(r.Context(), r.PathValue("id"), uid); err != nil {
		slog.ErrorContext(r.Context(), "Delete entity failed", "error", err)
		writeStoreError(w, err)
		return
	}
	writeSuccess(w)
}

type entityTypeDTO struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

func (s *Server) handleListEntityTypes(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	types, err := s.store.ListEntityTypes(r.Context(), uid)
	if err != nil {
		slog.ErrorContext(r.Context(), "List entity types failed", "error", err)
		writeStoreError(w, err)
		return
	}
	dtos := make([]entityTypeDTO, len(types))
	for i, et := range types {
		dtos[i] = entityTypeDTO{ID: et.ID, UserID: et.UserID, Name: et.Name}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entityTypes": dtos})
}

type entityTypeRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateEntityType(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req entityTypeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	et := core.EntityType{UserID: uid, Name: req.Name}
	if err := et.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if _, err := s.store.CreateEntityType(r.Context(), et); err != nil {
		slog.ErrorContext(r.Context(), "Create entity type failed", "error", err)
		writeStoreError(w, err)
		return
	}
	writeSuccess(w)
}

func (s *Server) handleUpdateEntityType(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req entityTypeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "empty entity type name")
		return
	}
	if err := s.store.UpdateEntityType(r.Context(), r.PathValue("id"), uid, req.Name); err != nil {
		slog.ErrorContext(r.Context(), "Update entity type failed", "error", err)
		writeStoreError(w, err)
		return
	}
	writeSuccess(w)
}

// handleDeleteEntityType surfaces the referential-integrity failure as a
// structured error with a conflict status instead of a generic 500.
func (s *Server) handleDeleteEntityType(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteEntityType(r.Context(), r.PathValue("id"), uid); err != nil {
		slog.ErrorContext(r.Context(), "Delete entity type failed", "error", err)
		writeStoreError(w, err)
		return
	}
	writeSuccess(w)
}
