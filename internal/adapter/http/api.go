package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/observability"
	"github.com/couchcryptid/climate-data-etl/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
	maxBodyBytes    = 64 << 10
)

const ingestAcceptedMessage = "Ingestion started successfully."

type listResponse[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

type ingestRequest struct {
	URL string `json:"url"`
}

type ingestResponse struct {
	Message       string  `json:"message"`
	Region        string  `json:"region"`
	Parameter     string  `json:"parameter"`
	RowsProcessed int     `json:"rows_processed"`
	SourceURL     string  `json:"source_url"`
	LastUpdated   *string `json:"last_updated"`
}

type triggerRequest struct {
	Regions    []string `json:"regions"`
	Parameters []string `json:"parameters"`
}

type triggerResponse struct {
	RunID   string `json:"run_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// summaryResponse echoes the raw filter values next to the aggregates.
type summaryResponse struct {
	domain.RecordSummary
	Region     *string `json:"region"`
	Parameter  *string `json:"parameter"`
	PeriodType *string `json:"period_type"`
	Period     *string `json:"period"`
}

func (s *Server) handleListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := s.deps.Catalog.Regions(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Region]{Count: len(regions), Results: regions})
}

func (s *Server) handleGetRegion(w http.ResponseWriter, r *http.Request) {
	region, err := s.deps.Catalog.FindRegion(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.lookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, region)
}

func (s *Server) handleListParameters(w http.ResponseWriter, r *http.Request) {
	params, err := s.deps.Catalog.Parameters(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Parameter]{Count: len(params), Results: params})
}

func (s *Server) handleGetParameter(w http.ResponseWriter, r *http.Request) {
	param, err := s.deps.Catalog.FindParameter(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.lookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, param)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	filter, matchable, err := s.recordFilter(r)
	if err != nil {
		s.filterError(w, r, err)
		return
	}
	if !matchable {
		writeJSON(w, http.StatusOK, domain.RecordPage{Count: 0, Results: []domain.StoredRecord{}})
		return
	}

	page, err := s.deps.Records.ListRecords(r.Context(), filter)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if page.Results == nil {
		page.Results = []domain.StoredRecord{}
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter, matchable, err := s.recordFilter(r)
	if err != nil {
		s.filterError(w, r, err)
		return
	}

	var summary domain.RecordSummary
	if matchable {
		summary, err = s.deps.Records.Summarize(r.Context(), filter)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
	}
	if summary.Count == 0 {
		writeJSON(w, http.StatusOK, domain.RecordSummary{})
		return
	}

	q := r.URL.Query()
	writeJSON(w, http.StatusOK, summaryResponse{
		RecordSummary: summary,
		Region:        queryPtr(q, "region"),
		Parameter:     queryPtr(q, "parameter"),
		PeriodType:    queryPtr(q, "period_type"),
		Period:        queryPtr(q, "period"),
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeDetail(w, http.StatusBadRequest, "url is required")
		return
	}

	result, err := s.deps.Ingester.SyncFromURL(r.Context(), req.URL)
	if err != nil {
		if domain.IsDatasetError(err) {
			observability.LoggerFromContext(r.Context(), s.logger).Warn("dataset ingest rejected",
				"url", req.URL, "kind", domain.ErrorKind(err), "error", err)
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		s.internalError(w, r, err)
		return
	}

	resp := ingestResponse{
		Message:       ingestAcceptedMessage,
		Region:        result.Region,
		Parameter:     result.Parameter,
		RowsProcessed: result.RowCount,
		SourceURL:     result.SourceURL,
	}
	if result.LastUpdated != nil {
		ts := result.LastUpdated.Format(time.RFC3339)
		resp.LastUpdated = &ts
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	runID := uuid.NewString()
	log := observability.LoggerFromContext(r.Context(), s.logger).With("run_id", runID)
	err := s.runs.start(runID, func() (domain.BatchResult, error) {
		result, err := s.deps.Ingester.SyncBatchByCodes(s.baseCtx, pipeline.BatchRequest{
			RunID:      runID,
			Regions:    req.Regions,
			Parameters: req.Parameters,
		})
		if err != nil {
			log.Error("triggered batch failed", "error", err)
		}
		return result, err
	})
	if err != nil {
		log.Warn("batch ingest rejected", "error", err)
		writeDetail(w, http.StatusTooManyRequests, err.Error())
		return
	}

	log.Info("batch ingest queued", "regions", req.Regions, "parameters", req.Parameters)
	writeJSON(w, http.StatusAccepted, triggerResponse{
		RunID:   runID,
		Status:  RunRunning,
		Message: "Ingestion run queued.",
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runs.get(chi.URLParam(r, "runID"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// errBadFilter marks a malformed query parameter.
var errBadFilter = errors.New("invalid filter")

// recordFilter parses the record query parameters. Region and parameter codes
// are resolved through the catalog so the store sees canonical codes;
// matchable is false when a code names no reference row.
func (s *Server) recordFilter(r *http.Request) (domain.RecordFilter, bool, error) {
	q := r.URL.Query()
	filter := domain.RecordFilter{Limit: defaultPageSize}

	if code := strings.TrimSpace(q.Get("region")); code != "" {
		region, err := s.deps.Catalog.FindRegion(r.Context(), code)
		if errors.Is(err, domain.ErrUnknownReference) {
			return filter, false, nil
		}
		if err != nil {
			return filter, false, err
		}
		filter.RegionCode = region.Code
	}
	if code := strings.TrimSpace(q.Get("parameter")); code != "" {
		param, err := s.deps.Catalog.FindParameter(r.Context(), code)
		if errors.Is(err, domain.ErrUnknownReference) {
			return filter, false, nil
		}
		if err != nil {
			return filter, false, err
		}
		filter.ParameterCode = param.Code
	}
	if v := strings.TrimSpace(q.Get("period_type")); v != "" {
		pt, ok := domain.ParsePeriodType(v)
		if !ok {
			return filter, false, fmt.Errorf("%w: period_type must be one of month, season, annual", errBadFilter)
		}
		filter.PeriodType = pt
	}
	filter.Period = strings.ToLower(strings.TrimSpace(q.Get("period")))

	var err error
	if filter.StartYear, err = intParam(q, "start_year", 0); err != nil {
		return filter, false, err
	}
	if filter.EndYear, err = intParam(q, "end_year", 0); err != nil {
		return filter, false, err
	}
	if filter.Limit, err = intParam(q, "limit", defaultPageSize); err != nil {
		return filter, false, err
	}
	filter.Limit = min(max(filter.Limit, 1), maxPageSize)
	if filter.Offset, err = intParam(q, "offset", 0); err != nil {
		return filter, false, err
	}
	return filter, true, nil
}

func intParam(q url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadFilter, key)
	}
	return n, nil
}

func queryPtr(q url.Values, key string) *string {
	if !q.Has(key) {
		return nil
	}
	v := q.Get(key)
	return &v
}

// decodeBody reads a JSON request body. An empty body is accepted only when
// allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

func (s *Server) filterError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBadFilter) {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	s.internalError(w, r, err)
}

func (s *Server) lookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrUnknownReference) {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	s.internalError(w, r, err)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context(), s.logger).Error("request failed",
		"method", r.Method, "path", r.URL.Path, "error", err)
	writeDetail(w, http.StatusInternalServerError, "internal server error")
}
