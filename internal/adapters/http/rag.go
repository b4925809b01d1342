package httpadapter

import (
	"net/http"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
)

type questionRequest struct {
	Question string                  `json:"question"`
	History  []domain.HistoryMessage `json:"history"`
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResponse struct {
	Query   string                 `json:"query"`
	Results []domain.EvidenceChunk `json:"results"`
}

func (rt *Router) answerSingleHop(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}

	answer, err := rt.query.AnswerSingleHop(r.Context(), req.Question, req.History)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) answerMultiHop(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}

	answer, err := rt.query.AnswerMultiHop(r.Context(), req.Question, req.History)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = rt.cfg.RAGTopK
	}
	if topK <= 0 {
		topK = defaultSearchTopK
	}

	results, err := rt.query.RetrieveHybrid(r.Context(), req.Query, topK)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if results == nil {
		results = []domain.EvidenceChunk{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: req.Query, Results: results})
}

func (rt *Router) decompose(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}

	decomposition, err := rt.query.DecomposeQuery(r.Context(), req.Question)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decomposition)
}

func (rt *Router) reloadIndex(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.query.ReloadIndex(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
