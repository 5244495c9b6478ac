package api

import (
	"encoding/json"
	"net/http"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

func (s *Server) listTestCases(w http.ResponseWriter, r *http.Request) error {
	id, err := queryID(r, "project_id")
	if err != nil {
		return err
	}
	if err := s.requireMember(r, id); err != nil {
		return err
	}
	cases, err := s.store.TestCases().ListByProject(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"test_cases": cases})
	return nil
}

type testCaseRequest struct {
	ID               flexInt                `json:"id"`
	ProjectID        flexInt                `json:"project_id"`
	Title            string                 `json:"title"`
	Steps            string                 `json:"steps"`
	ExpectedResult   string                 `json:"expected_result"`
	IsActive         *flexBool              `json:"is_active"`
	AnalyticalValues types.AnalyticalValues `json:"analytical_values"`
	Attachments      []string               `json:"attachments"`
}

func (s *Server) createTestCase(w http.ResponseWriter, r *http.Request) error {
	var req testCaseRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	projectID, err := requireID("project_id", req.ProjectID)
	if err != nil {
		return err
	}
	if err := s.requireMember(r, projectID); err != nil {
		return err
	}
	tc := &types.TestCase{
		ProjectID:        projectID,
		Title:            req.Title,
		Steps:            req.Steps,
		ExpectedResult:   req.ExpectedResult,
		AnalyticalValues: req.AnalyticalValues,
		Attachments:      req.Attachments,
	}
	if err := s.store.TestCases().Create(r.Context(), tc); err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, map[string]any{"test_case": tc})
	return nil
}

// updateTestCase keeps is_active and attachments when the request omits
// them.
func (s *Server) updateTestCase(w http.ResponseWriter, r *http.Request) error {
	var req testCaseRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	id, err := requireID("id", req.ID)
	if err != nil {
		return err
	}
	existing, err := s.store.TestCases().Get(r.Context(), id)
	if err != nil {
		return err
	}
	if err := s.requireMember(r, existing.ProjectID); err != nil {
		return err
	}
	tc := &types.TestCase{
		ID:               id,
		Title:            req.Title,
		Steps:            req.Steps,
		ExpectedResult:   req.ExpectedResult,
		IsActive:         existing.IsActive,
		AnalyticalValues: req.AnalyticalValues,
		Attachments:      existing.Attachments,
	}
	if req.IsActive != nil {
		tc.IsActive = bool(*req.IsActive)
	}
	if req.Attachments != nil {
		tc.Attachments = req.Attachments
	}
	if err := s.store.TestCases().Update(r.Context(), tc); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"test_case": tc})
	return nil
}

func (s *Server) deleteTestCase(w http.ResponseWriter, r *http.Request) error {
	var req testCaseRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	id, err := requireID("id", req.ID)
	if err != nil {
		return err
	}
	tc, err := s.store.TestCases().Get(r.Context(), id)
	if err != nil {
		return err
	}
	if err := s.requireMember(r, tc.ProjectID); err != nil {
		return err
	}
	if err := s.store.TestCases().Delete(r.Context(), id); err != nil {
		return err
	}
	success(w)
	return nil
}

func (s *Server) listAxes(w http.ResponseWriter, r *http.Request) error {
	id, err := queryID(r, "project_id")
	if err != nil {
		return err
	}
	if err := s.requireMember(r, id); err != nil {
		return err
	}
	axes, err := s.store.Axes().List(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"axes": axes})
	return nil
}

// axisValue accepts either a bare label or an object with value_label.
type axisValue string

func (v *axisValue) UnmarshalJSON(b []byte) error {
	var label string
	if err := json.Unmarshal(b, &label); err == nil {
		*v = axisValue(label)
		return nil
	}
	var obj struct {
		ValueLabel *string `json:"value_label"`
	}
	if err := json.Unmarshal(b, &obj); err != nil || obj.ValueLabel == nil {
		return unprocessable("axis value %s must be a string or an object with value_label", string(b))
	}
	*v = axisValue(*obj.ValueLabel)
	return nil
}

func (s *Server) saveAxes(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		ProjectID flexInt `json:"project_id"`
		Axes      []struct {
			Label  string      `json:"label"`
			Values []axisValue `json:"values"`
		} `json:"axes"`
	}
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	projectID, err := requireID("project_id", req.ProjectID)
	if err != nil {
		return err
	}
	if err := s.requireMember(r, projectID); err != nil {
		return err
	}
	inputs := make([]types.AxisInput, len(req.Axes))
	for i, a := range req.Axes {
		values := make([]string, len(a.Values))
		for j, v := range a.Values {
			values[j] = string(v)
		}
		inputs[i] = types.AxisInput{Label: a.Label, Values: values}
	}
	if err := s.store.Axes().Save(r.Context(), projectID, inputs); err != nil {
		return err
	}
	success(w)
	return nil
}
