// internal/workers/search/rank-apartments/handler.go
package rankapartments

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "rental-search/internal/common/errors"
	"rental-search/internal/common/logger"
	"rental-search/internal/common/metrics"
	"rental-search/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "rank-apartments"

type Ranker interface {
	RankApartments(ctx context.Context, candidates []models.Candidate, prefs models.UserPreferences, rc *models.RankContext) []models.RankedResult
}

type Handler struct {
	config     *Config
	ranker     Ranker
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, ranker Ranker, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		ranker:     ranker,
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

// Execute ranks the supplied candidates. Malformed input is rejected; a
// panic inside the ranker is reported as RANKING_FAILED.
func (h *Handler) Execute(ctx context.Context, input *Input) (out *Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, apperrors.NewRankingFailedError(fmt.Errorf("ranker panicked: %v", r))
		}
	}()

	if input == nil {
		return nil, apperrors.NewInvalidInputError("input cannot be nil")
	}
	if h.config.MaxCandidates > 0 && len(input.Candidates) > h.config.MaxCandidates {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("too many candidates: %d (max %d)", len(input.Candidates), h.config.MaxCandidates))
	}
	for i, c := range input.Candidates {
		if c.ID == "" {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("candidates[%d].id is required", i))
		}
	}

	ranked := h.ranker.RankApartments(ctx, input.Candidates, input.Preferences, input.Context)
	if ranked == nil {
		ranked = []models.RankedResult{}
	}
	return &Output{RankedApartments: ranked}, nil
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
