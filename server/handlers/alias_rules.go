package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/colenew1/Upload-BPO/database"
	"github.com/colenew1/Upload-BPO/normalization"
)

// AliasRuleHandler CRUD-обработчик правил алиасов для ревьюеров
type AliasRuleHandler struct {
	serviceDB *database.ServiceDB
}

// NewAliasRuleHandler создает новый обработчик правил алиасов
func NewAliasRuleHandler(serviceDB *database.ServiceDB) *AliasRuleHandler {
	return &AliasRuleHandler{serviceDB: serviceDB}
}

// AliasRuleRequest тело запроса создания/обновления правила
type AliasRuleRequest struct {
	CanonicalValue string `json:"canonical_value" binding:"required"`
	AliasPattern   string `json:"alias_pattern" binding:"required"`
	MatchType      string `json:"match_type" binding:"required"`
	CaseSensitive  bool   `json:"case_sensitive"`
	Priority       int    `json:"priority"`
	ClientScope    string `json:"client_scope"`
}

func (r AliasRuleRequest) toRule() normalization.AliasRule {
	return normalization.AliasRule{
		CanonicalValue: strings.TrimSpace(r.CanonicalValue),
		AliasPattern:   r.AliasPattern,
		MatchType:      normalization.MatchType(strings.ToLower(r.MatchType)),
		CaseSensitive:  r.CaseSensitive,
		Priority:       r.Priority,
		ClientScope:    strings.TrimSpace(r.ClientScope),
	}
}

func ruleKindParam(c *gin.Context) (database.RuleKind, bool) {
	kind := database.RuleKind(c.Param("kind"))
	if !database.ValidRuleKind(kind) {
		SendJSONError(c, http.StatusBadRequest, "rule kind must be 'metric' or 'industry'")
		return "", false
	}
	return kind, true
}

// HandleList возвращает все правила указанного вида в порядке хранилища
func (h *AliasRuleHandler) HandleList(c *gin.Context) {
	kind, ok := ruleKindParam(c)
	if !ok {
		return
	}

	rules, err := h.serviceDB.ListAliasRules(c.Request.Context(), kind)
	if err != nil {
		SendJSONError(c, http.StatusInternalServerError, "failed to list alias rules")
		return
	}

	c.JSON(http.StatusOK, gin.H{"rules": rules, "total": len(rules)})
}

// HandleCreate создает новое правило
func (h *AliasRuleHandler) HandleCreate(c *gin.Context) {
	kind, ok := ruleKindParam(c)
	if !ok {
		return
	}

	var req AliasRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendJSONError(c, http.StatusBadRequest, "invalid rule payload: "+err.Error())
		return
	}

	id, err := h.serviceDB.CreateAliasRule(c.Request.Context(), kind, req.toRule())
	if err != nil {
		SendJSONError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// HandleUpdate обновляет существующее правило
func (h *AliasRuleHandler) HandleUpdate(c *gin.Context) {
	kind, ok := ruleKindParam(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		SendJSONError(c, http.StatusBadRequest, "invalid rule id")
		return
	}

	var req AliasRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendJSONError(c, http.StatusBadRequest, "invalid rule payload: "+err.Error())
		return
	}

	if err := h.serviceDB.UpdateAliasRule(c.Request.Context(), kind, id, req.toRule()); err != nil {
		if errors.Is(err, database.ErrRuleNotFound) {
			SendJSONError(c, http.StatusNotFound, err.Error())
			return
		}
		SendJSONError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

// HandleDelete удаляет правило
func (h *AliasRuleHandler) HandleDelete(c *gin.Context) {
	kind, ok := ruleKindParam(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		SendJSONError(c, http.StatusBadRequest, "invalid rule id")
		return
	}

	if err := h.serviceDB.DeleteAliasRule(c.Request.Context(), kind, id); err != nil {
		if errors.Is(err, database.ErrRuleNotFound) {
			SendJSONError(c, http.StatusNotFound, err.Error())
			return
		}
		SendJSONError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.Status(http.StatusNoContent)
}
