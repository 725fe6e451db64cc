package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"momentum-trader/internal/trader/config"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/pkg/common"
	"momentum-trader/pkg/logger"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// geminiAIRepository is an AIRepository backed by the Google Gemini API.
type geminiAIRepository struct {
	cfg            config.Gemini
	logger         *logger.Logger
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

// NewGeminiAIRepository creates a new instance of geminiAIRepository.
func NewGeminiAIRepository(cfg config.Gemini, log *logger.Logger, genAiClient *genai.Client) AIRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.MaxRequestPerMinute)
	return &geminiAIRepository{
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		genAiClient:    genAiClient,
	}
}

func (r *geminiAIRepository) AnalyzeMover(ctx context.Context, req dto.AnalysisRequest) (*dto.AnalysisResponse, error) {
	raw, err := r.generate(ctx, BuildMoverAnalysisPrompt(req))
	if err != nil {
		return nil, err
	}
	result, err := ParseAnalysisResponse(raw)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to parse mover analysis from Gemini response",
			logger.ErrorField(err), logger.StringField("symbol", req.Mover.Symbol), logger.StringField("response", raw))
		return nil, err
	}
	return result, nil
}

func (r *geminiAIRepository) ReviewPosition(ctx context.Context, req dto.PositionReviewRequest) (*dto.PositionReviewResponse, error) {
	raw, err := r.generate(ctx, BuildPositionReviewPrompt(req))
	if err != nil {
		return nil, err
	}
	result, err := ParseReviewResponse(raw)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to parse position review from Gemini response",
			logger.ErrorField(err), logger.StringField("symbol", req.Position.Symbol), logger.StringField("response", raw))
		return nil, err
	}
	return result, nil
}

func (r *geminiAIRepository) generate(ctx context.Context, prompt string) (string, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: failed to wait for request limit: %w", common.ErrOracleFailure, err)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, "user"),
	}
	resp, err := r.genAiClient.Models.GenerateContent(ctx, r.cfg.Model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(r.cfg.Temperature),
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to send request to Gemini API", logger.ErrorField(err))
		return "", fmt.Errorf("%w: gemini request: %w", common.ErrOracleFailure, err)
	}

	text := resp.Text()
	r.logger.DebugContext(ctx, "Gemini response", logger.StringField("response", text))
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty gemini response", common.ErrOracleFailure)
	}
	return text, nil
}

// stripFences removes a markdown code fence around a JSON payload.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseAnalysisResponse decodes an oracle answer. A trade answer without entry
// and stop prices is a failure; a no-trade answer needs neither.
func ParseAnalysisResponse(raw string) (*dto.AnalysisResponse, error) {
	body := stripFences(raw)

	var result dto.AnalysisResponse
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return nil, fmt.Errorf("%w: malformed analysis: %w", common.ErrOracleFailure, err)
	}
	result.Raw = json.RawMessage(body)
	result.Direction = strings.ToUpper(strings.TrimSpace(result.Direction))

	if result.NoTrade {
		return &result, nil
	}
	if result.EntryPrice == nil || *result.EntryPrice <= 0 {
		return nil, fmt.Errorf("%w: analysis has no entry price", common.ErrOracleFailure)
	}
	if result.StopLoss == nil || *result.StopLoss <= 0 {
		return nil, fmt.Errorf("%w: analysis has no stop loss", common.ErrOracleFailure)
	}
	return &result, nil
}

func ParseReviewResponse(raw string) (*dto.PositionReviewResponse, error) {
	var result dto.PositionReviewResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &result); err != nil {
		return nil, fmt.Errorf("%w: malformed review: %w", common.ErrOracleFailure, err)
	}
	if result.Confidence == nil {
		return nil, fmt.Errorf("%w: review has no confidence", common.ErrOracleFailure)
	}
	result.Action = strings.ToUpper(strings.TrimSpace(result.Action))
	return &result, nil
}
