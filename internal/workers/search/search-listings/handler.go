// internal/workers/search/search-listings/handler.go
package searchlistings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "rental-search/internal/common/errors"
	"rental-search/internal/common/logger"
	"rental-search/internal/common/metrics"
	"rental-search/internal/models"
	"rental-search/internal/search/filters"
	"rental-search/internal/search/service"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "search-listings"

// Searcher is the part of the search service this worker drives.
type Searcher interface {
	StructuredSearch(ctx context.Context, f models.SearchFilters) ([]models.RankedResult, error)
	KeywordSearch(ctx context.Context, query string, f models.SearchFilters) ([]models.RankedResult, error)
	SemanticSearch(ctx context.Context, query string, f models.SearchFilters) ([]models.RankedResult, error)
	HybridSearch(ctx context.Context, query string, f models.SearchFilters) ([]models.RankedResult, error)
	RankRetrieved(ctx context.Context, retrieved []models.RankedResult, query string, f models.SearchFilters, prefs models.UserPreferences, rc *models.RankContext) []models.RankedResult
	GetStructuredCount(ctx context.Context, f models.SearchFilters) (int, error)
}

type Handler struct {
	config     *Config
	searcher   Searcher
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, searcher Searcher, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		searcher:   searcher,
		logger:     l,
		errHandler: apperrors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

// Execute runs the requested search mode. Preferences, when given, rank the
// retrieved listings; structured searches also report the total match count.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInvalidInputError("input cannot be nil")
	}
	start := time.Now()

	mode := strings.ToLower(strings.TrimSpace(input.Mode))
	if mode == "" {
		mode = h.config.DefaultMode
	}

	f, err := filters.Normalize(input.Filters)
	if err != nil {
		return nil, toStandard(err)
	}

	query := strings.TrimSpace(input.Query)
	if query == "" {
		query = f.Query
	}

	ctx = service.WithRequestID(ctx, input.RequestID)

	var results []models.RankedResult
	switch mode {
	case ModeStructured:
		results, err = h.searcher.StructuredSearch(ctx, *f)
	case ModeKeyword:
		results, err = h.searcher.KeywordSearch(ctx, query, *f)
	case ModeSemantic:
		results, err = h.searcher.SemanticSearch(ctx, query, *f)
	case ModeHybrid:
		results, err = h.searcher.HybridSearch(ctx, query, *f)
	default:
		return nil, apperrors.NewInvalidSearchModeError(input.Mode)
	}
	if err != nil {
		return nil, toStandard(err)
	}

	output := &Output{Mode: mode, Results: results}

	if input.Preferences != nil {
		output.Results = h.searcher.RankRetrieved(ctx, results, query, *f, *input.Preferences, &models.RankContext{
			UserID:    input.UserID,
			SessionID: input.SessionID,
			Query:     query,
			Source:    models.Source(mode),
		})
		output.Ranked = true
	}

	if mode == ModeStructured {
		if total, err := h.searcher.GetStructuredCount(ctx, *f); err != nil {
			h.logger.Warn("structured count failed, omitting totalCount", map[string]interface{}{
				"error": err,
			})
		} else {
			output.TotalCount = &total
		}
	}

	h.logger.Info("search completed", map[string]interface{}{
		"mode":        mode,
		"resultCount": len(output.Results),
		"ranked":      output.Ranked,
		"durationMs":  time.Since(start).Milliseconds(),
	})
	return output, nil
}

func toStandard(err error) error {
	var verr *filters.ValidationError
	if errors.As(err, &verr) {
		return verr.ToStandardError()
	}
	return err
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}
