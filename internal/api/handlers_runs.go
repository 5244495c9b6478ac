package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/tnr/internal/export"
	"github.com/mesh-intelligence/tnr/internal/overview"
	"github.com/mesh-intelligence/tnr/internal/store"
	"github.com/mesh-intelligence/tnr/pkg/types"
)

// memberRun loads a run and checks that the current user may see it.
func (s *Server) memberRun(r *http.Request, id int64) (*types.TestRun, error) {
	run, err := s.store.Runs().Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(r, run.ProjectID); err != nil {
		return nil, err
	}
	return run, nil
}

// memberRunCase checks that the current user may change a run case.
func (s *Server) memberRunCase(r *http.Request, id int64) error {
	projectID, err := s.store.RunCases().ProjectID(r.Context(), id)
	if err != nil {
		return err
	}
	return s.requireMember(r, projectID)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) error {
	id, err := queryID(r, "release_id")
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
	runs, err := s.store.Runs().ListByRelease(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	return nil
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		ProjectID flexInt `json:"project_id"`
		ReleaseID flexInt `json:"release_id"`
		Name      string  `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	projectID, err := requireID("project_id", req.ProjectID)
	if err != nil {
		return err
	}
	releaseID, err := requireID("release_id", req.ReleaseID)
	if err != nil {
		return err
	}
	if err := s.requireMember(r, projectID); err != nil {
		return err
	}
	run := &types.TestRun{
		ProjectID: projectID,
		ReleaseID: releaseID,
		Name:      req.Name,
		CreatedBy: currentUser(r.Context()).ID,
	}
	if err := s.store.Runs().Create(r.Context(), run); err != nil {
		return err
	}
	log.WithFields(log.Fields{"run_id": run.ID, "cases": run.Summary.Total}).Info("run created")
	writeJSON(w, http.StatusOK, map[string]any{"run_id": run.ID})
	return nil
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) error {
	id, err := queryID(r, "run_id")
	if err != nil {
		return err
	}
	run, err := s.memberRun(r, id)
	if err != nil {
		return err
	}
	axes, err := s.store.Axes().List(r.Context(), run.ProjectID)
	if err != nil {
		return err
	}
	cases, err := s.store.RunCases().ListByRun(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run":     run,
		"axes":    axes,
		"summary": overview.Summarize(cases),
		"results": cases,
	})
	return nil
}

type runRequest struct {
	RunID flexInt `json:"run_id"`
}

func (s *Server) deleteRun(w http.ResponseWriter, r *http.Request) error {
	var req runRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	id, err := requireID("run_id", req.RunID)
	if err != nil {
		return err
	}
	if _, err := s.memberRun(r, id); err != nil {
		return err
	}
	if err := s.store.Runs().Delete(r.Context(), id); err != nil {
		return err
	}
	success(w)
	return nil
}

func (s *Server) setResult(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		RunCaseID      flexInt   `json:"test_run_case_id"`
		Status         string    `json:"status"`
		Comment        string    `json:"comment"`
		TouchExecution *flexBool `json:"touch_execution"`
	}
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	id, err := requireID("test_run_case_id", req.RunCaseID)
	if err != nil {
		return err
	}
	status, err := types.ParseStatus(req.Status)
	if err != nil {
		return fmt.Errorf("%w: %q", err, req.Status)
	}
	if err := s.memberRunCase(r, id); err != nil {
		return err
	}
	touch := req.TouchExecution == nil || bool(*req.TouchExecution)
	if err := s.store.RunCases().SetResult(r.Context(), id, status, req.Comment, currentUser(r.Context()).ID, touch); err != nil {
		return err
	}
	runResults.WithLabelValues(string(status)).Inc()
	success(w)
	return nil
}

func (s *Server) insertRunCase(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		RunID       flexInt `json:"run_id"`
		InsertIndex flexInt `json:"insert_index"`
	}
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	id, err := requireID("run_id", req.RunID)
	if err != nil {
		return err
	}
	if _, err := s.memberRun(r, id); err != nil {
		return err
	}
	rc, err := s.store.RunCases().Insert(r.Context(), id, int(req.InsertIndex))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"test_run_case_id": rc.ID})
	return nil
}

func (s *Server) updateRunCase(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		RunCaseID        flexInt                `json:"test_run_case_id"`
		Title            *string                `json:"title"`
		Steps            string                 `json:"steps"`
		ExpectedResult   string                 `json:"expected_result"`
		AnalyticalValues types.AnalyticalValues `json:"analytical_values"`
		Attachments      []string               `json:"attachments"`
	}
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	id, err := requireID("test_run_case_id", req.RunCaseID)
	if err != nil {
		return err
	}
	if err := s.memberRunCase(r, id); err != nil {
		return err
	}
	upd := store.RunCaseUpdate{
		Title:            req.Title,
		Steps:            req.Steps,
		ExpectedResult:   req.ExpectedResult,
		AnalyticalValues: req.AnalyticalValues,
		Attachments:      req.Attachments,
	}
	if err := s.store.RunCases().Update(r.Context(), id, upd); err != nil {
		return err
	}
	success(w)
	return nil
}

func (s *Server) deleteRunCase(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		RunCaseID flexInt `json:"test_run_case_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	id, err := requireID("test_run_case_id", req.RunCaseID)
	if err != nil {
		return err
	}
	if err := s.memberRunCase(r, id); err != nil {
		return err
	}
	if err := s.store.RunCases().Delete(r.Context(), id); err != nil {
		return err
	}
	success(w)
	return nil
}

func (s *Server) runOverview(w http.ResponseWriter, r *http.Request) error {
	id, err := queryID(r, "run_id")
	if err != nil {
		return err
	}
	q := r.URL.Query()
	levels, err := overview.ParseLevels(q.Get("levels"))
	if err != nil {
		return err
	}
	sel, err := overview.ParseSelection(q.Get("selection"))
	if err != nil {
		return err
	}
	status, err := overview.ParseStatusFilter(q.Get("status"))
	if err != nil {
		return err
	}

	run, err := s.memberRun(r, id)
	if err != nil {
		return err
	}
	axes, err := s.store.Axes().List(r.Context(), run.ProjectID)
	if err != nil {
		return err
	}
	cases, err := s.store.RunCases().ListByRun(r.Context(), id)
	if err != nil {
		return err
	}
	report, err := overview.Build(axes, cases, overview.Request{
		Levels:    levels,
		Selection: sel,
		Status:    status,
		Threshold: run.ScopeThreshold,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, report)
	return nil
}

func (s *Server) setThreshold(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		RunID     flexInt    `json:"run_id"`
		Threshold *flexFloat `json:"threshold"`
	}
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	id, err := requireID("run_id", req.RunID)
	if err != nil {
		return err
	}
	if req.Threshold == nil {
		return unprocessable("threshold is required")
	}
	if _, err := s.memberRun(r, id); err != nil {
		return err
	}
	v, err := s.store.Runs().SetThreshold(r.Context(), id, float64(*req.Threshold))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]float64{"threshold": v})
	return nil
}

func (s *Server) setRunStatus(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		RunID  flexInt `json:"run_id"`
		Status string  `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	id, err := requireID("run_id", req.RunID)
	if err != nil {
		return err
	}
	if _, err := s.memberRun(r, id); err != nil {
		return err
	}
	if err := s.store.Runs().SetStatus(r.Context(), id, req.Status); err != nil {
		return err
	}
	success(w)
	return nil
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) error {
	return s.exportRun(w, r, "csv", "text/csv; charset=utf-8", export.WriteCSV)
}

func (s *Server) exportPDF(w http.ResponseWriter, r *http.Request) error {
	return s.exportRun(w, r, "pdf", "application/pdf", export.WritePDF)
}

// exportRun renders the whole document before writing any header. Render
// failures answer with a JSON error.
func (s *Server) exportRun(w http.ResponseWriter, r *http.Request, ext, contentType string,
	write func(io.Writer, *export.RunDocument) error,
) error {
	id, err := queryID(r, "run_id")
	if err != nil {
		return err
	}
	if _, err := s.memberRun(r, id); err != nil {
		return err
	}
	doc, err := export.LoadRunDocument(r.Context(), s.store, id, s.now())
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := write(&buf, doc); err != nil {
		return fmt.Errorf("rendering %s of run %d: %w", ext, id, err)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName(ext)))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, err = buf.WriteTo(w)
	if err != nil {
		log.WithError(err).WithField("run_id", id).Warn("export interrupted")
	}
	return nil
}
