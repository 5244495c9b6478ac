package api

import (
	"net/http"

	"github.com/mesh-intelligence/tnr/internal/auth"
	"github.com/mesh-intelligence/tnr/pkg/types"
)

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) error {
	projects, err := s.store.Projects().ListForUser(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
	return nil
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	p := &types.Project{Name: req.Name, Description: req.Description}
	if err := s.store.Projects().Create(r.Context(), p, currentUser(r.Context()).ID); err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, map[string]any{"project": p})
	return nil
}

type projectRequest struct {
	ProjectID flexInt `json:"project_id"`
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) error {
	var req projectRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	id, err := requireID("project_id", req.ProjectID)
	if err != nil {
		return err
	}
	if err := s.requireMember(r, id); err != nil {
		return err
	}
	if err := s.store.Projects().Delete(r.Context(), id); err != nil {
		return err
	}
	success(w)
	return nil
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) error {
	id, err := queryID(r, "project_id")
	if err != nil {
		return err
	}
	if err := s.requireMember(r, id); err != nil {
		return err
	}
	members, err := s.store.Projects().Members(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
	return nil
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		ProjectID flexInt `json:"project_id"`
		Email     string  `json:"email"`
		Role      string  `json:"role"`
	}
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	id, err := requireID("project_id", req.ProjectID)
	if err != nil {
		return err
	}
	if err := s.requireMember(r, id); err != nil {
		return err
	}
	email := auth.NormalizeEmail(req.Email)
	if email == "" {
		return unprocessable("email is required")
	}
	m, err := s.store.Projects().AddMember(r.Context(), id, email, req.Role)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"member": m})
	return nil
}

func (s *Server) listReleases(w http.ResponseWriter, r *http.Request) error {
	id, err := queryID(r, "project_id")
	if err != nil {
		return err
	}
	if err := s.requireMember(r, id); err != nil {
		return err
	}
	releases, err := s.store.Releases().ListByProject(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"releases": releases})
	return nil
}

func (s *Server) createRelease(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		ProjectID flexInt `json:"project_id"`
		Version   string  `json:"version"`
		Notes     string  `json:"notes"`
	}
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	id, err := requireID("project_id", req.ProjectID)
	if err != nil {
		return err
	}
	if err := s.requireMember(r, id); err != nil {
		return err
	}
	rel := &types.Release{ProjectID: id, Version: req.Version, Notes: req.Notes}
	if err := s.store.Releases().Create(r.Context(), rel); err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, map[string]any{"release": rel})
	return nil
}

func (s *Server) deleteRelease(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		ReleaseID flexInt `json:"release_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	id, err := requireID("release_id", req.ReleaseID)
	if err != nil {
		return err
	}
	rel, err := s.store.Releases().Get(r.Context(), id)
	if err != nil {
		return err
	}
	if err := s.requireMember(r, rel.ProjectID); err != nil {
		return err
	}
	if err := s.store.Releases().Delete(r.Context(), id); err != nil {
		return err
	}
	success(w)
	return nil
}
