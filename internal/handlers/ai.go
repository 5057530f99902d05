package handlers

import (
	"healthbridge-server/internal/models"
	"healthbridge-server/internal/stores"
	"healthbridge-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// AIHandler exposes the simulated health insights.
type AIHandler struct {
	Registry *stores.Registry
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(reg *stores.Registry) *AIHandler {
	return &AIHandler{Registry: reg}
}

// AnalyzeSymptomsRequest lists the symptoms to analyse.
type AnalyzeSymptomsRequest struct {
	Symptoms []models.Symptom `json:"symptoms" binding:"required,min=1,dive"`
}

// AnalyzeSymptoms runs the symptom checker.
func (h *AIHandler) AnalyzeSymptoms(c *gin.Context) {
	var req AnalyzeSymptomsRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	a, err := ws.Insights.AnalyzeSymptoms(c.Request.Context(), req.Symptoms)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Symptoms analyzed successfully", a)
}

// GetSymptomHistory lists earlier analyses, newest first, and whether one is running.
func (h *AIHandler) GetSymptomHistory(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Symptom history fetched successfully", gin.H{
		"analyses":    ws.Insights.SymptomHistory(),
		"isAnalyzing": ws.Insights.IsAnalyzing(),
	})
}

// AssessRisks recomputes the health risks.
func (h *AIHandler) AssessRisks(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	risks, err := ws.Insights.AssessHealthRisks(c.Request.Context())
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Health risks assessed successfully", risks)
}

// GetRisks returns the cached health risks.
func (h *AIHandler) GetRisks(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Health risks fetched successfully", ws.Insights.HealthRisks())
}

// GenerateRecommendations recomputes the personalised recommendations.
func (h *AIHandler) GenerateRecommendations(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	recs, err := ws.Insights.PersonalizedRecommendations(c.Request.Context())
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Recommendations generated successfully", recs)
}

// GetRecommendations returns the cached recommendations.
func (h *AIHandler) GetRecommendations(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Recommendations fetched successfully", ws.Insights.Recommendations())
}

// CompleteRecommendation drops a recommendation the user acted on.
func (h *AIHandler) CompleteRecommendation(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	if err := ws.Insights.MarkRecommendationCompleted(c.Param("id")); err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Recommendation completed", ws.Insights.Recommendations())
}

// GenerateScheduling recomputes the appointment suggestions.
func (h *AIHandler) GenerateScheduling(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	s, err := ws.Insights.SchedulingSuggestions(c.Request.Context())
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Scheduling suggestions generated successfully", s)
}

// GetScheduling returns the cached appointment suggestions.
func (h *AIHandler) GetScheduling(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Scheduling suggestions fetched successfully", ws.Insights.CachedSchedulingSuggestions())
}

// AskRequest is a free-text health question.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// Ask answers a health question.
func (h *AIHandler) Ask(c *gin.Context) {
	var req AskRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	answer, err := ws.Insights.AskHealthQuestion(c.Request.Context(), req.Question)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Question answered", gin.H{"question": req.Question, "answer": answer})
}
