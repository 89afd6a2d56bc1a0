package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gundaminthecode/showcase/pkg/aggregator"
	"github.com/gundaminthecode/showcase/pkg/cache"
	"github.com/gundaminthecode/showcase/pkg/errors"
	"github.com/gundaminthecode/showcase/pkg/httputil"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleRepos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	username := strings.TrimSpace(q.Get("username"))
	if username == "" {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "username is required"))
		return
	}
	forks, err := errors.ParseBool("includeForks", q.Get("includeForks"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	archived, err := errors.ParseBool("includeArchived", q.Get("includeArchived"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	repos, status, err := s.svc.ListRepositories(r.Context(), aggregator.RepoQuery{
		Username:        username,
		IncludeForks:    forks,
		IncludeArchived: archived,
		Sort:            q.Get("sortBy"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeCached(w, status, repos)
}

func (s *Server) handleCommits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner, repo, ok := s.repoParams(w, r)
	if !ok {
		return
	}
	since, err := aggregator.ParseSince(q.Get("since"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	commits, status, err := s.svc.ListCommits(r.Context(), aggregator.CommitQuery{Owner: owner, Repo: repo, Since: since})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeCached(w, status, commits)
}

func (s *Server) handleDocument(kind aggregator.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, repo, ok := s.repoParams(w, r)
		if !ok {
			return
		}
		res, status, err := s.svc.FetchDocument(r.Context(), aggregator.DocumentQuery{Kind: kind, Owner: owner, Repo: repo})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if !res.Found() && kind.Required() {
			s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "no %s document in %s/%s", kind, owner, repo))
			return
		}
		s.writeCached(w, status, res.Document)
	}
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	owner, repo, ok := s.repoParams(w, r)
	if !ok {
		return
	}
	since, err := s.activitySince(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	act, status, err := s.svc.Activity(r.Context(), aggregator.CommitQuery{Owner: owner, Repo: repo, Since: since})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeCached(w, status, act)
}

// activitySince resolves the window start: an explicit since, else days
// before now, else DefaultActivityDays.
func (s *Server) activitySince(r *http.Request) (time.Time, error) {
	q := r.URL.Query()
	if raw := q.Get("since"); raw != "" {
		return aggregator.ParseSince(raw)
	}
	days := DefaultActivityDays
	if raw := strings.TrimSpace(q.Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return time.Time{}, errors.New(errors.ErrCodeInvalidInput, "days must be a positive integer, got %q", raw)
		}
		days = n
	}
	return cache.StartOfDay(s.now().UTC().AddDate(0, 0, -days)), nil
}

func (s *Server) repoParams(w http.ResponseWriter, r *http.Request) (owner, repo string, ok bool) {
	q := r.URL.Query()
	owner, repo = strings.TrimSpace(q.Get("owner")), strings.TrimSpace(q.Get("repo"))
	if owner == "" || repo == "" {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "owner and repo are required"))
		return "", "", false
	}
	return owner, repo, true
}

func (s *Server) writeCached(w http.ResponseWriter, status cache.Status, v any) {
	httputil.SetCacheHeaders(w.Header(), string(status), s.svc.TTL())
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	httpStatus := errors.HTTPStatus(err)

	msg := errors.UserMessage(err)
	if code == errors.ErrCodeInternal {
		msg = "internal error"
	}
	var rl *errors.RateLimitedError
	if stderrors.As(err, &rl) && rl.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter))
	}

	logger := s.logger.With("path", r.URL.Path, "code", code, "request_id", w.Header().Get(httputil.HeaderRequestID))
	if httpStatus >= 500 {
		logger.Error("request failed", "err", err)
	} else {
		logger.Debug("request rejected", "err", err)
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, httpStatus, errorBody{Error: msg, Code: string(code)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
