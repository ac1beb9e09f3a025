package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appFrag "github.com/turtacn/molfrag/internal/application/fragmentation"
	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfrag/pkg/errors"
)

const sourceAPI = "api"

// FragmentHandler serves the fragmentation endpoints.
type FragmentHandler struct {
	service appFrag.Service
	logger  logging.Logger
}

func NewFragmentHandler(service appFrag.Service, logger logging.Logger) *FragmentHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FragmentHandler{service: service, logger: logger}
}

// FragmentRequestBody is the JSON body of POST /api/v1/fragments.
type FragmentRequestBody struct {
	SMILES      string   `json:"smiles" binding:"required"`
	Rules       []string `json:"rules"`
	ErrorPolicy string   `json:"error_policy"`
	UniqueOnly  bool     `json:"unique_only"`
	PH          *float64 `json:"ph"`
	Parallel    bool     `json:"parallel"`
}

func (b FragmentRequestBody) toRequest() *appFrag.FragmentRequest {
	return &appFrag.FragmentRequest{
		SMILES:      b.SMILES,
		Rules:       b.Rules,
		ErrorPolicy: b.ErrorPolicy,
		UniqueOnly:  b.UniqueOnly,
		PH:          b.PH,
		Parallel:    b.Parallel,
		Source:      sourceAPI,
	}
}

// BatchRequestBody is the JSON body of POST /api/v1/fragments/batch.
type BatchRequestBody struct {
	Molecules []FragmentRequestBody `json:"molecules" binding:"required,min=1,max=100,dive"`
}

// BatchItem is the outcome for one molecule of a batch: exactly one of
// Result and Error is set.
type BatchItem struct {
	Result *appFrag.FragmentResponse `json:"result,omitempty"`
	Error  *ErrorResponse            `json:"error,omitempty"`
}

type BatchResponse struct {
	Results []BatchItem `json:"results"`
	Failed  int         `json:"failed"`
}

type RulesResponse struct {
	Rules []appFrag.RuleInfo `json:"rules"`
}

// Fragment handles POST /api/v1/fragments.
func (h *FragmentHandler) Fragment(c *gin.Context) {
	var body FragmentRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindError(c, err)
		return
	}
	resp, err := h.service.Fragment(c.Request.Context(), body.toRequest())
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// FragmentBatch handles POST /api/v1/fragments/batch. Each molecule is
// processed independently; per-item failures do not fail the batch.
func (h *FragmentHandler) FragmentBatch(c *gin.Context) {
	var body BatchRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindError(c, err)
		return
	}

	out := BatchResponse{Results: make([]BatchItem, len(body.Molecules))}
	for i, item := range body.Molecules {
		resp, err := h.service.Fragment(c.Request.Context(), item.toRequest())
		if err != nil {
			if errors.IsCode(err, errors.ErrCodeFragmentationAbort) {
				writeAppError(c, err)
				return
			}
			out.Failed++
			out.Results[i].Error = &ErrorResponse{Code: errors.GetCode(err).String(), Message: err.Error()}
			continue
		}
		out.Results[i].Result = resp
	}
	h.logger.Debug("batch served", logging.Int("molecules", len(body.Molecules)), logging.Int("failed", out.Failed))
	c.JSON(http.StatusOK, out)
}

// ListRules handles GET /api/v1/rules.
func (h *FragmentHandler) ListRules(c *gin.Context) {
	c.JSON(http.StatusOK, RulesResponse{Rules: h.service.Rules()})
}
