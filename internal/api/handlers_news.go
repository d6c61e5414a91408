package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleNews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, err := intParam(q.Get("page"), "page")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		pageSize, err := intParam(q.Get("pageSize"), "pageSize")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		var result news.Page
		if search := strings.TrimSpace(q.Get("search")); search != "" {
			result, err = s.newsroom.Search(r.Context(), search, page, pageSize)
		} else {
			category, perr := news.ParseCategory(q.Get("category"))
			if perr != nil {
				respondError(w, http.StatusBadRequest, perr.Error())
				return
			}
			result, err = s.newsroom.GetHeadlines(r.Context(), category, page, pageSize)
		}
		if err != nil {
			s.respondFailure(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

type refreshRequest struct {
	ForceRefresh bool   `json:"forceRefresh"`
	Category     string `json:"category"`
	Page         int    `json:"page"`
	PageSize     int    `json:"pageSize"`
}

func (s *Server) handleRefresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		category, err := news.ParseCategory(req.Category)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.ForceRefresh && !s.authorizeAdmin(r) {
			respondError(w, http.StatusUnauthorized, "forced refresh requires an admin token")
			return
		}

		result, err := s.newsroom.Refresh(r.Context(), category, req.Page, req.PageSize, req.ForceRefresh)
		if err != nil {
			s.respondFailure(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleEnrich() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		if r.Method == http.MethodPost {
			var req struct {
				URL string `json:"url"`
			}
			if err := decodeBody(r, &req); err != nil {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			target = req.URL
		}

		result, err := s.enricher.Enrich(r.Context(), target)
		if err != nil {
			s.respondFailure(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"categories": news.AllCategories()})
	}
}

type chatRequest struct {
	Message  string `json:"message"`
	Category string `json:"category"`
}

func (s *Server) handleChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.assistant == nil {
			respondError(w, http.StatusServiceUnavailable, "assistant is not configured")
			return
		}
		var req chatRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		category, err := news.ParseCategory(req.Category)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		answer, err := s.assistant.Ask(r.Context(), req.Message, category)
		if err != nil {
			s.respondFailure(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, answer)
	}
}

// intParam parses an optional integer query parameter; empty means 0,
// which the pipeline replaces with its default.
func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
