package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"retrieval-pipeline/internal/domain"
	"retrieval-pipeline/internal/usecase"
	"retrieval-pipeline/internal/usecase/retrieval"
)

// Handler exposes the retrieval pipeline over HTTP.
type Handler struct {
	pipeline usecase.SearchPipelineUsecase
}

func NewHandler(pipeline usecase.SearchPipelineUsecase) *Handler {
	return &Handler{pipeline: pipeline}
}

// Register wires the routes onto the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/v1/search", h.Search)
	e.GET("/v1/health", h.Health)
}

// SearchRequest is the JSON request body. Config fields left unset fall
// back to the preset (or balanced defaults when no preset is named).
type SearchRequest struct {
	Query       string   `json:"query"`
	DocumentIDs []string `json:"documentIds"`
	UserID      string   `json:"userId"`
	Preset      string   `json:"preset,omitempty"`

	SemanticLimit         *int     `json:"semanticLimit,omitempty"`
	LexicalLimit          *int     `json:"lexicalLimit,omitempty"`
	FinalLimit            *int     `json:"finalLimit,omitempty"`
	SemanticWeight        *float64 `json:"semanticWeight,omitempty"`
	LexicalWeight         *float64 `json:"lexicalWeight,omitempty"`
	SemanticThreshold     *float64 `json:"semanticThreshold,omitempty"`
	LexicalThreshold      *float64 `json:"lexicalThreshold,omitempty"`
	FusionMethod          *string  `json:"fusionMethod,omitempty"`
	NormalizationMethod   *string  `json:"normalizationMethod,omitempty"`
	MaxResultsPerDocument *int     `json:"maxResultsPerDocument,omitempty"`
	EnableStage2          *bool    `json:"enableStage2,omitempty"`
	TopKInitial           *int     `json:"topKInitial,omitempty"`
	TimeoutMs             *int     `json:"timeoutMs,omitempty"`
	RetryAttempts         *int     `json:"retryAttempts,omitempty"`
}

// CandidateResponse is one ranked result.
type CandidateResponse struct {
	ID              string   `json:"id"`
	Content         string   `json:"content"`
	DocumentID      string   `json:"document_id"`
	SemanticScore   float64  `json:"semantic_score"`
	LexicalScore    float64  `json:"lexical_score"`
	HybridScore     float64  `json:"hybrid_score"`
	InitialRank     int      `json:"initial_rank"`
	RerankScore     *float64 `json:"rerank_score,omitempty"`
	ConfidenceScore float64  `json:"confidence_score"`
	FinalRank       int      `json:"final_rank"`
}

// SearchResponse is the JSON response body.
type SearchResponse struct {
	Results  []CandidateResponse `json:"results"`
	Pipeline struct {
		Stage1Enabled      bool `json:"stage1_enabled"`
		Stage2Enabled      bool `json:"stage2_enabled"`
		ParallelProcessing bool `json:"parallel_processing"`
	} `json:"pipeline"`
	Performance struct {
		Stage1LatencyMs   int64 `json:"stage1_latency_ms"`
		Stage2LatencyMs   int64 `json:"stage2_latency_ms"`
		TotalLatencyMs    int64 `json:"total_latency_ms"`
		InitialDocuments  int   `json:"initial_documents"`
		RerankedDocuments int   `json:"reranked_documents"`
		FinalResults      int   `json:"final_results"`
	} `json:"performance"`
	Metadata struct {
		ModelsUsed    []string `json:"models_used"`
		ProvidersUsed []string `json:"providers_used"`
		Stage1Method  string   `json:"stage1_method"`
		Stage2Method  string   `json:"stage2_method"`
	} `json:"metadata"`
	Degraded      bool  `json:"degraded"`
	ExecutionTime int64 `json:"executionTime"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Search runs the two-stage retrieval pipeline.
// (POST /v1/search)
func (h *Handler) Search(ctx echo.Context) error {
	var req SearchRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.Query == "" {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "query is required"})
	}

	cfg := buildConfig(req)
	output, err := h.pipeline.Execute(ctx.Request().Context(), usecase.SearchPipelineInput{
		Query:       req.Query,
		DocumentIDs: req.DocumentIDs,
		UserID:      req.UserID,
		Config:      cfg,
	})
	if err != nil {
		return writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, toResponse(output))
}

// Health reports liveness.
// (GET /v1/health)
func (h *Handler) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func buildConfig(req SearchRequest) usecase.RetrievalConfig {
	cfg := usecase.PresetConfig(usecase.Preset(req.Preset), req.Query)

	if req.SemanticLimit != nil {
		cfg.SemanticLimit = *req.SemanticLimit
	}
	if req.LexicalLimit != nil {
		cfg.LexicalLimit = *req.LexicalLimit
	}
	if req.FinalLimit != nil {
		cfg.FinalLimit = *req.FinalLimit
	}
	if req.SemanticWeight != nil {
		cfg.SemanticWeight = *req.SemanticWeight
	}
	if req.LexicalWeight != nil {
		cfg.LexicalWeight = *req.LexicalWeight
	}
	if req.SemanticThreshold != nil {
		cfg.SemanticThreshold = *req.SemanticThreshold
	}
	if req.LexicalThreshold != nil {
		cfg.LexicalThreshold = *req.LexicalThreshold
	}
	if req.FusionMethod != nil {
		cfg.Fusion = retrieval.FusionMethod(*req.FusionMethod)
	}
	if req.NormalizationMethod != nil {
		cfg.Normalization = retrieval.NormalizationMethod(*req.NormalizationMethod)
	}
	if req.MaxResultsPerDocument != nil {
		cfg.MaxResultsPerDocument = *req.MaxResultsPerDocument
	}
	if req.EnableStage2 != nil {
		cfg.EnableStage2 = *req.EnableStage2
	}
	if req.TopKInitial != nil {
		cfg.TopKInitial = *req.TopKInitial
	}
	if req.TimeoutMs != nil {
		cfg.Timeout = time.Duration(*req.TimeoutMs) * time.Millisecond
	}
	if req.RetryAttempts != nil {
		cfg.RetryAttempts = *req.RetryAttempts
	}
	return cfg
}

func toResponse(out *usecase.SearchPipelineOutput) SearchResponse {
	var resp SearchResponse

	resp.Results = make([]CandidateResponse, len(out.Results))
	for i, c := range out.Results {
		resp.Results[i] = CandidateResponse{
			ID:              c.ID,
			Content:         c.Content,
			DocumentID:      c.DocumentID,
			SemanticScore:   c.SemanticScore,
			LexicalScore:    c.LexicalScore,
			HybridScore:     c.HybridScore,
			InitialRank:     c.InitialRank,
			RerankScore:     c.RerankScore,
			ConfidenceScore: c.ConfidenceScore,
			FinalRank:       c.FinalRank,
		}
	}

	resp.Pipeline.Stage1Enabled = out.Pipeline.Stage1Enabled
	resp.Pipeline.Stage2Enabled = out.Pipeline.Stage2Enabled
	resp.Pipeline.ParallelProcessing = out.Pipeline.ParallelProcessing

	resp.Performance.Stage1LatencyMs = out.Performance.Stage1LatencyMs
	resp.Performance.Stage2LatencyMs = out.Performance.Stage2LatencyMs
	resp.Performance.TotalLatencyMs = out.Performance.TotalLatencyMs
	resp.Performance.InitialDocuments = out.Performance.InitialDocuments
	resp.Performance.RerankedDocuments = out.Performance.RerankedDocuments
	resp.Performance.FinalResults = out.Performance.FinalResults

	resp.Metadata.ModelsUsed = out.Metadata.ModelsUsed
	resp.Metadata.ProvidersUsed = out.Metadata.ProvidersUsed
	resp.Metadata.Stage1Method = out.Metadata.Stage1Method
	resp.Metadata.Stage2Method = out.Metadata.Stage2Method

	resp.Degraded = out.Degraded
	resp.ExecutionTime = out.ExecutionTime.Milliseconds()
	return resp
}

func writeError(ctx echo.Context, err error) error {
	var pe *domain.PipelineError

	status := http.StatusInternalServerError
	message := "internal error"
	details := err.Error()

	if errors.As(err, &pe) {
		message = pe.Message
		if pe.Err != nil {
			details = pe.Err.Error()
		} else {
			details = ""
		}
		if pe.Kind == domain.KindValidation {
			status = http.StatusBadRequest
		}
	}

	return ctx.JSON(status, errorResponse{Error: message, Details: details})
}
