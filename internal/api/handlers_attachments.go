package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

// multipartMemory is the part of an upload kept in memory; the rest
// spills to temporary files.
const multipartMemory = 1 << 20

type attachmentResponse struct {
	Attachment *types.Attachment `json:"attachment"`
	URL        string            `json:"url"`
}

func attachmentURL(id int64) string {
	return "/api/attachments/" + strconv.FormatInt(id, 10)
}

func formID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, unprocessable("%s must be a positive integer", name)
	}
	return n, nil
}

// uploadTarget checks that the case the file is attached to lives in the
// project.
func (s *Server) uploadTarget(r *http.Request, projectID, testCaseID, runCaseID int64) error {
	switch {
	case testCaseID > 0 && runCaseID > 0:
		return unprocessable("give either test_case_id or test_run_case_id, not both")
	case testCaseID > 0:
		tc, err := s.store.TestCases().Get(r.Context(), testCaseID)
		if err != nil {
			return err
		}
		if tc.ProjectID != projectID {
			return fmt.Errorf("%w: test case %d is not in project %d", types.ErrInvalidData, testCaseID, projectID)
		}
	case runCaseID > 0:
		owner, err := s.store.RunCases().ProjectID(r.Context(), runCaseID)
		if err != nil {
			return err
		}
		if owner != projectID {
			return fmt.Errorf("%w: run case %d is not in project %d", types.ErrInvalidData, runCaseID, projectID)
		}
	default:
		return unprocessable("test_case_id or test_run_case_id is required")
	}
	return nil
}

func (s *Server) uploadAttachment(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.files.MaxSize()+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return err
		}
		return unprocessable("invalid multipart body: %v", err)
	}
	defer r.MultipartForm.RemoveAll()

	projectID, err := formID(r, "project_id")
	if err != nil {
		return err
	}
	if projectID == 0 {
		return unprocessable("project_id is required")
	}
	testCaseID, err := formID(r, "test_case_id")
	if err != nil {
		return err
	}
	runCaseID, err := formID(r, "test_run_case_id")
	if err != nil {
		return err
	}
	if err := s.requireMember(r, projectID); err != nil {
		return err
	}
	if err := s.uploadTarget(r, projectID, testCaseID, runCaseID); err != nil {
		return err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return unprocessable("file is required")
	}
	defer file.Close()

	contentType, err := sniffContentType(file, header.Header.Get("Content-Type"))
	if err != nil {
		return err
	}
	saved, err := s.files.Save(projectID, header.Filename, file)
	if err != nil {
		return err
	}

	a := &types.Attachment{
		ProjectID:   projectID,
		FileName:    saved.FileName,
		StoredName:  saved.StoredName,
		ContentType: contentType,
		Size:        saved.Size,
		UploadedBy:  currentUser(r.Context()).ID,
	}
	if testCaseID > 0 {
		a.TestCaseID = &testCaseID
	}
	if runCaseID > 0 {
		a.RunCaseID = &runCaseID
	}
	if err := s.store.Attachments().Create(r.Context(), a); err != nil {
		if rmErr := s.files.Remove(projectID, saved.StoredName); rmErr != nil {
			log.WithError(rmErr).Warn("removing orphaned upload")
		}
		return err
	}
	writeJSON(w, http.StatusCreated, attachmentResponse{Attachment: a, URL: attachmentURL(a.ID)})
	return nil
}

// sniffContentType trusts a specific declared type and otherwise detects
// it from the first bytes. The reader is rewound.
func sniffContentType(f io.ReadSeeker, declared string) (string, error) {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return declared, nil
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading upload: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding upload: %w", err)
	}
	return http.DetectContentType(head[:n]), nil
}

func (s *Server) listAttachments(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	var list []*types.Attachment
	switch {
	case q.Get("test_case_id") != "":
		id, err := queryID(r, "test_case_id")
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
		if list, err = s.store.Attachments().ListForTestCase(r.Context(), id); err != nil {
			return err
		}
	case q.Get("test_run_case_id") != "":
		id, err := queryID(r, "test_run_case_id")
		if err != nil {
			return err
		}
		if err := s.memberRunCase(r, id); err != nil {
			return err
		}
		if list, err = s.store.Attachments().ListForRunCase(r.Context(), id); err != nil {
			return err
		}
	default:
		return unprocessable("test_case_id or test_run_case_id is required")
	}
	writeJSON(w, http.StatusOK, map[string]any{"attachments": list})
	return nil
}

func (s *Server) downloadAttachment(w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return types.ErrInvalidID
	}
	a, err := s.store.Attachments().Get(r.Context(), id)
	if err != nil {
		return err
	}
	if err := s.requireMember(r, a.ProjectID); err != nil {
		return err
	}
	f, err := s.files.Open(a.ProjectID, a.StoredName)
	if err != nil {
		return fmt.Errorf("opening attachment %d: %w", id, err)
	}
	defer f.Close()

	if a.ContentType != "" {
		w.Header().Set("Content-Type", a.ContentType)
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": a.FileName}))
	http.ServeContent(w, r, a.FileName, a.CreatedAt, f)
	return nil
}
