package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hireflow/internal/domain"
	"hireflow/internal/services/analytics"
	"hireflow/internal/services/importer"
	"hireflow/internal/services/messaging"
	"hireflow/internal/services/pipeline"
)

const maxUploadBytes = 10 << 20

func (s *Server) listCampaigns(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Campaigns.List(r.Context(), currentUser(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Campaign{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createCampaign(w http.ResponseWriter, r *http.Request) {
	var form domain.CampaignForm
	if err := decodeJSON(w, r, &form); err != nil {
		s.fail(w, r, err)
		return
	}
	u := currentUser(r)
	c, err := s.svc.Campaigns.Create(r.Context(), u.ID, form)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.svc.Analytics.Emit(r.Context(), analytics.EventCampaignCreated, u, map[string]any{
		"campaignId": c.ID,
		"title":      c.Title,
		"openings":   c.Openings,
	})
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) getCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Campaigns.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) patchCampaign(w http.ResponseWriter, r *http.Request) {
	var patch domain.CampaignPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.Campaigns.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Campaigns.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type candidateResponse struct {
	Candidate *domain.Candidate `json:"candidate"`
	Campaign  *domain.Campaign  `json:"campaign"`
}

func (s *Server) addCandidate(w http.ResponseWriter, r *http.Request) {
	var form domain.CandidateForm
	if err := decodeJSON(w, r, &form); err != nil {
		s.fail(w, r, err)
		return
	}
	cand, c, err := s.svc.Campaigns.AddCandidate(r.Context(), chi.URLParam(r, "id"), form)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, candidateResponse{Candidate: cand, Campaign: c})
}

func (s *Server) updateNotes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.Campaigns.UpdateNotes(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "cid"), req.Notes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type sendMessageRequest struct {
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	TemplateID    string `json:"templateId,omitempty"`
	IsAIGenerated bool   `json:"isAiGenerated"`
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	d := messaging.Draft{Subject: req.Subject, Body: req.Body, TemplateID: req.TemplateID}
	msg, err := s.svc.Campaigns.SendMessage(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "cid"), d, req.IsAIGenerated)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

type moveRequest struct {
	ToStage string `json:"toStage"`
	Reason  string `json:"reason"`
}

func (s *Server) moveCandidate(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.Pipeline.MoveCandidate(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "cid"), req.ToStage, req.Reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type bulkStageRequest struct {
	CandidateIDs []string `json:"candidateIds"`
	ToStage      string   `json:"toStage"`
	Reason       string   `json:"reason"`
}

func (s *Server) bulkStage(w http.ResponseWriter, r *http.Request) {
	var req bulkStageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	n, c, err := s.svc.Pipeline.BulkMove(r.Context(), id, req.CandidateIDs, req.ToStage, req.Reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.emitBulk(r, id, "stage_change", n)
	writeJSON(w, http.StatusOK, c)
}

type bulkDeleteRequest struct {
	CandidateIDs []string `json:"candidateIds"`
	ConfirmText  string   `json:"confirmText"`
}

type bulkResponse struct {
	Affected int              `json:"affected"`
	Campaign *domain.Campaign `json:"campaign"`
}

func (s *Server) bulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	n, c, err := s.svc.Pipeline.BulkDelete(r.Context(), id, req.CandidateIDs, req.ConfirmText)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.emitBulk(r, id, "delete", n)
	writeJSON(w, http.StatusOK, bulkResponse{Affected: n, Campaign: c})
}

func (s *Server) bulkEmail(w http.ResponseWriter, r *http.Request) {
	var req pipeline.BulkEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.From == (messaging.Sender{}) {
		req.From = s.sender(r)
	}
	if req.TemplateID != "" && (req.Subject == "" || req.Body == "") {
		t, ok := s.svc.Composer.Catalogue().Get(req.TemplateID)
		if !ok {
			s.fail(w, r, fmt.Errorf("%w: %s", messaging.ErrUnknownTemplate, req.TemplateID))
			return
		}
		req.Subject, req.Body = t.Subject, t.Body
	}
	id := chi.URLParam(r, "id")
	n, c, err := s.svc.Pipeline.BulkEmail(r.Context(), id, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.emitBulk(r, id, "email", n)
	writeJSON(w, http.StatusOK, bulkResponse{Affected: n, Campaign: c})
}

func (s *Server) emitBulk(r *http.Request, campaignID, action string, count int) {
	s.svc.Analytics.Emit(r.Context(), analytics.EventBulkAction, currentUser(r), map[string]any{
		"campaignId": campaignID,
		"action":     action,
		"count":      count,
	})
}

// sender describes the signed-in recruiter for template rendering.
func (s *Server) sender(r *http.Request) messaging.Sender {
	u := currentUser(r)
	from := messaging.Sender{Name: u.Name, Company: s.info.CompanyName}
	p, err := s.svc.Accounts.Profile(r.Context(), u)
	if err != nil {
		return from
	}
	if p.FullName != "" {
		from.Name = p.FullName
	}
	from.Title = p.JobTitle
	if p.Company != "" {
		from.Company = p.Company
	}
	return from
}

type previewResponse struct {
	Headers   []string         `json:"headers"`
	Preview   [][]string       `json:"preview"`
	TotalRows int              `json:"totalRows"`
	Mapping   importer.Mapping `json:"mapping"`
}

// uploadedCSV returns the CSV payload, from the multipart "file" field or the
// raw body.
func uploadedCSV(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mt, "multipart/") {
		return http.MaxBytesReader(w, r.Body, maxUploadBytes), nil
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, &runtimeError{code: http.StatusBadRequest, msg: "invalid multipart form"}
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, &runtimeError{code: http.StatusBadRequest, msg: "file is required"}
	}
	return f, nil
}

func (s *Server) importPreview(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.Campaigns.Get(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	body, err := uploadedCSV(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer body.Close()
	t, err := importer.Parse(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{
		Headers:   t.Headers,
		Preview:   t.Preview(),
		TotalRows: len(t.Rows),
		Mapping:   importer.SuggestMapping(t.Headers),
	})
}

func (s *Server) importCandidates(w http.ResponseWriter, r *http.Request) {
	body, err := uploadedCSV(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer body.Close()
	t, err := importer.Parse(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	mapping := importer.SuggestMapping(t.Headers)
	if raw := r.FormValue("mapping"); raw != "" {
		mapping = nil
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			s.fail(w, r, &runtimeError{code: http.StatusBadRequest, msg: "mapping must be a JSON array"})
			return
		}
	}
	id := chi.URLParam(r, "id")
	res, err := s.svc.Campaigns.ImportCandidates(r.Context(), id, t, mapping)
	if err != nil {
		var noRows *importer.NoValidRowsError
		if errors.As(err, &noRows) {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "no valid candidates found", Details: noRows.Reasons})
			return
		}
		s.fail(w, r, err)
		return
	}
	s.svc.Analytics.Emit(r.Context(), analytics.EventCandidatesImported, currentUser(r), map[string]any{
		"campaignId": id,
		"imported":   res.Imported,
		"skipped":    len(res.Warnings),
	})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) importTemplate(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": importer.TemplateFilename}))
	_, _ = io.WriteString(w, importer.Template())
}
