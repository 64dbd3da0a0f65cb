package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hireflow/internal/domain"
	"hireflow/internal/services/messaging"
)

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	cat := s.svc.Composer.Catalogue()
	var list []messaging.Template
	if stage := r.URL.Query().Get("stage"); stage != "" {
		list = cat.ForStage(stage)
	} else {
		list = cat.List(messaging.Kind(r.URL.Query().Get("kind")))
	}
	if list == nil {
		list = []messaging.Template{}
	}
	writeJSON(w, http.StatusOK, list)
}

type composeRequest struct {
	CampaignID  string `json:"campaignId"`
	CandidateID string `json:"candidateId"`
	messaging.ComposeRequest
}

func (s *Server) compose(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.ownedCampaign(r, req.CampaignID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	i := c.CandidateIndex(req.CandidateID)
	if i < 0 {
		s.fail(w, r, domain.ErrCandidateNotFound)
		return
	}
	d, err := s.svc.Composer.Compose(req.ComposeRequest, c.Candidates[i], c, s.sender(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type enhanceRequest struct {
	Text string `json:"text"`
	// Mode is "bulk" or "individual".
	Mode string `json:"mode"`
}

func (s *Server) enhance(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	e := s.svc.Enhance
	if req.Mode == string(messaging.Bulk) {
		e = s.svc.BulkEnhance
	}
	out, err := e.Enhance(r.Context(), req.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": out})
}

func (s *Server) getDraft(w http.ResponseWriter, r *http.Request) {
	d, ok, err := s.svc.Drafts.Load(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "cid"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no draft"})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) putDraft(w http.ResponseWriter, r *http.Request) {
	var d messaging.Draft
	if err := decodeJSON(w, r, &d); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Drafts.Save(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "cid"), d); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
