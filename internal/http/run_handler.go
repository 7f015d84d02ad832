package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persona-probe/internal/domain"
	"persona-probe/internal/repository"
)

// RunHandler expone las corridas persistidas y sus artefactos.
type RunHandler struct {
	logger      *zap.Logger
	runs        repository.RunRepository
	artifacts   repository.ArtifactRepository
	generations repository.GenerationRepository
}

func NewRunHandler(
	logger *zap.Logger,
	runs repository.RunRepository,
	artifacts repository.ArtifactRepository,
	generations repository.GenerationRepository,
) *RunHandler {
	return &RunHandler{
		logger:      logger,
		runs:        runs,
		artifacts:   artifacts,
		generations: generations,
	}
}

// ListRuns maneja GET /runs.
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	runs, err := h.runs.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list runs failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list runs"})
		return
	}
	if runs == nil {
		runs = []domain.RunSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun maneja GET /runs/:id.
func (h *RunHandler) GetRun(c *gin.Context) {
	run, ok := h.loadRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

type confusionView struct {
	domain.ConfusionMatrix
	RowNormalized [3][3]float64 `json:"row_normalized"`
	Accuracy      float64       `json:"accuracy"`
	Classified    int           `json:"classified"`
}

// GetConfusion maneja GET /runs/:id/confusion.
func (h *RunHandler) GetConfusion(c *gin.Context) {
	run, ok := h.loadRun(c)
	if !ok {
		return
	}
	mats, err := h.artifacts.Confusion(c.Request.Context(), run.RunID)
	if err != nil {
		h.logger.Error("load confusion failed", zap.String("run_id", run.RunID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load confusion matrices"})
		return
	}
	out := make([]confusionView, 0, len(mats))
	for _, m := range mats {
		out = append(out, confusionView{ConfusionMatrix: m, RowNormalized: m.RowNormalized(), Accuracy: m.Accuracy(), Classified: m.Classified()})
	}
	c.JSON(http.StatusOK, gin.H{"run_id": run.RunID, "levels": domain.AllLevels(), "confusion": out})
}

type distributionView struct {
	domain.ScoreDistribution
	Summary   domain.ScoreSummary   `json:"summary"`
	Histogram []domain.HistogramBin `json:"histogram,omitempty"`
}

// GetDistributions maneja GET /runs/:id/distributions?bin_width=0.5.
func (h *RunHandler) GetDistributions(c *gin.Context) {
	binWidth := 0.0
	if raw := c.Query("bin_width"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || !domain.ValidBinWidth(v) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bin_width"})
			return
		}
		binWidth = v
	}
	run, ok := h.loadRun(c)
	if !ok {
		return
	}
	dists, err := h.artifacts.Distributions(c.Request.Context(), run.RunID)
	if err != nil {
		h.logger.Error("load distributions failed", zap.String("run_id", run.RunID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load distributions"})
		return
	}
	out := make([]distributionView, 0, len(dists))
	for _, d := range dists {
		v := distributionView{ScoreDistribution: d, Summary: d.Summary()}
		if binWidth > 0 {
			v.Histogram = d.Histogram(binWidth)
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, gin.H{"run_id": run.RunID, "distributions": out})
}

// GetSimilarity maneja GET /runs/:id/similarity.
func (h *RunHandler) GetSimilarity(c *gin.Context) {
	run, ok := h.loadRun(c)
	if !ok {
		return
	}
	mats, err := h.artifacts.Similarity(c.Request.Context(), run.RunID)
	if err != nil {
		h.logger.Error("load similarity failed", zap.String("run_id", run.RunID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load similarity matrices"})
		return
	}
	if mats == nil {
		mats = []domain.SimilarityMatrix{}
	}
	c.JSON(http.StatusOK, gin.H{"run_id": run.RunID, "levels": domain.AllLevels(), "similarity": mats})
}

// ListGenerations maneja GET /runs/:id/generations?trait=Openness.
func (h *RunHandler) ListGenerations(c *gin.Context) {
	var trait domain.Trait
	if raw := c.Query("trait"); raw != "" {
		t, err := domain.ParseTrait(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trait"})
			return
		}
		trait = t
	}
	run, ok := h.loadRun(c)
	if !ok {
		return
	}
	gens, err := h.generations.ListByRun(c.Request.Context(), run.RunID, trait)
	if err != nil {
		h.logger.Error("list generations failed", zap.String("run_id", run.RunID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list generations"})
		return
	}
	if gens == nil {
		gens = []domain.GenerationTrial{}
	}
	c.JSON(http.StatusOK, gin.H{"run_id": run.RunID, "generations": gens})
}

// GetNearest maneja GET /runs/:id/generations/:trial/nearest?k=5.
func (h *RunHandler) GetNearest(c *gin.Context) {
	k, err := queryInt(c, "k", 5)
	if err != nil || k <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid k"})
		return
	}
	run, ok := h.loadRun(c)
	if !ok {
		return
	}
	trialID := c.Param("trial")
	neighbors, err := h.generations.Nearest(c.Request.Context(), trialID, k)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "trial not found"})
		return
	}
	if err != nil {
		h.logger.Error("nearest query failed", zap.String("run_id", run.RunID), zap.String("trial_id", trialID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load neighbors"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": run.RunID, "trial_id": trialID, "neighbors": neighbors})
}

func (h *RunHandler) loadRun(c *gin.Context) (domain.RunSummary, bool) {
	id := c.Param("id")
	run, err := h.runs.Get(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return domain.RunSummary{}, false
	}
	if err != nil {
		h.logger.Error("get run failed", zap.String("run_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load run"})
		return domain.RunSummary{}, false
	}
	return run, true
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
