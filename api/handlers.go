package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/bloomgate/go-bloomgate/bloom"
	"github.com/bloomgate/go-bloomgate/bloomjoin"
	"github.com/bloomgate/go-bloomgate/codec"
	"github.com/bloomgate/go-bloomgate/modlog"
	"github.com/bloomgate/go-bloomgate/sitesync"
)

// ContentTypeSCALE is the media type of SCALE encoded filter snapshots.
const ContentTypeSCALE = "application/octet-stream"

type createFilterRequest struct {
	SiteID      string   `json:"siteId"`
	ModifiedIDs []string `json:"modifiedIds"`
}

type filterRecordsRequest struct {
	SiteID  string               `json:"siteId"`
	Records []bloomjoin.Document `json:"records"`
	Filter  bloom.Snapshot       `json:"filter"`
}

type bloomJoinRequest struct {
	MasterRecords []bloomjoin.Document `json:"masterRecords"`
	SiteRecords   []bloomjoin.Document `json:"siteRecords"`
	ModifiedIDs   []string             `json:"modifiedIds"`
}

type distributeRequest struct {
	ExamID     string   `json:"examId"`
	CollegeIDs []string `json:"collegeIds"`
}

type distributeResponse struct {
	ExamID     string   `json:"examId"`
	CollegeIDs []string `json:"collegeIds"`
}

type modifyRequest struct {
	ExamID        string          `json:"examId"`
	Modifications []modlog.Change `json:"modifications"`
}

type syncRequest struct {
	CollegeID            string            `json:"collegeId"`
	CollegeModifications []sitesync.ModRef `json:"collegeModifications"`
}

type ackRequest struct {
	CollegeID string   `json:"collegeId"`
	IDs       []string `json:"ids"`
}

type ackResponse struct {
	Acknowledged int `json:"acknowledged"`
}

type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{
		StatusCode: status,
		Message:    err.Error(),
		Error:      http.StatusText(status),
	})
}

func statusOf(err error) int {
	var (
		maxBytes  *http.MaxBytesError
		schemaErr *jsonschema.ValidationError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, sitesync.ErrUnknownExam):
		return http.StatusNotFound
	case errors.As(err, &schemaErr),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr),
		errors.Is(err, bloom.ErrMalformedSnapshot),
		errors.Is(err, modlog.ErrUnknownChangeType),
		errors.Is(err, modlog.ErrMissingQuestion),
		errors.Is(err, sitesync.ErrNoModifications),
		errors.Is(err, sitesync.ErrNotDistributed),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, err)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, sch *jsonschema.Schema, v any) bool {
	body := r.Body
	if s.cfg.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		s.fail(w, r, fmt.Errorf("read request: %w", err))
		return false
	}
	if len(data) == 0 {
		s.fail(w, r, fmt.Errorf("%w: empty body", errBadRequest))
		return false
	}
	if err := decodeValid(sch, data, v); err != nil {
		s.fail(w, r, err)
		return false
	}
	return true
}

func (s *Server) createFilter(w http.ResponseWriter, r *http.Request) {
	var req createFilterRequest
	if !s.decode(w, r, createFilterSchema, &req) {
		return
	}
	f := s.reconciler.BuildFilter(req.ModifiedIDs)
	s.store.Publish(req.SiteID, f)
	s.logger.Debug("filter created", zap.String("site", req.SiteID), zap.Object("filter", f))
	writeJSON(w, http.StatusCreated, f.Serialize())
}

func (s *Server) filterRecords(w http.ResponseWriter, r *http.Request) {
	var req filterRecordsRequest
	if !s.decode(w, r, filterRecordsSchema, &req) {
		return
	}
	f, err := s.reconciler.Decode(req.Filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.reconciler.FilterRecords(req.Records, f))
}

func (s *Server) bloomJoin(w http.ResponseWriter, r *http.Request) {
	var req bloomJoinRequest
	if !s.decode(w, r, bloomJoinSchema, &req) {
		return
	}
	writeJSON(w, http.StatusCreated, s.reconciler.PerformJoin(req.MasterRecords, req.SiteRecords, req.ModifiedIDs))
}

func acceptsSCALE(r *http.Request) bool {
	for _, v := range r.Header.Values("Accept") {
		for _, part := range strings.Split(v, ",") {
			mt, _, _ := strings.Cut(strings.TrimSpace(part), ";")
			if mt == ContentTypeSCALE {
				return true
			}
		}
	}
	return false
}

func (s *Server) getFilter(w http.ResponseWriter, r *http.Request) {
	siteID := r.PathValue("siteId")
	f, ok := s.store.Get(siteID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no filter published for %s", siteID))
		return
	}
	snapshot := f.Serialize()
	if !acceptsSCALE(r) {
		writeJSON(w, http.StatusOK, snapshot)
		return
	}
	buf, err := codec.Encode(&snapshot)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", ContentTypeSCALE)
	w.WriteHeader(http.StatusOK)
	w.Write(buf)
}

func (s *Server) distribute(w http.ResponseWriter, r *http.Request) {
	var req distributeRequest
	if !s.decode(w, r, distributeSchema, &req) {
		return
	}
	s.syncer.Distribute(req.ExamID, req.CollegeIDs...)
	writeJSON(w, http.StatusCreated, distributeResponse{
		ExamID:     req.ExamID,
		CollegeIDs: s.syncer.Sites(req.ExamID),
	})
}

func (s *Server) modify(w http.ResponseWriter, r *http.Request) {
	var req modifyRequest
	if !s.decode(w, r, modifySchema, &req) {
		return
	}
	pub, err := s.syncer.Publish(req.ExamID, req.Modifications)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pub)
}

func (s *Server) sync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if !s.decode(w, r, syncSchema, &req) {
		return
	}
	plan, err := s.syncer.Plan(r.PathValue("id"), req.CollegeID, req.CollegeModifications)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) ack(w http.ResponseWriter, r *http.Request) {
	var req ackRequest
	if !s.decode(w, r, ackSchema, &req) {
		return
	}
	n, err := s.syncer.Ack(r.PathValue("id"), req.CollegeID, req.IDs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Acknowledged: n})
}
