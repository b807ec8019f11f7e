package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Sampath5633/Medica-Backend/internal/usecase"
)

const maxPredictionBody = 1 << 20

// ClinicalHandler serves disease prediction, treatment plans and prescription PDFs.
type ClinicalHandler struct {
	predictions   *usecase.PredictionService
	treatments    *usecase.TreatmentService
	prescriptions *usecase.PrescriptionService
	logger        *zap.Logger
}

func NewClinicalHandler(
	predictions *usecase.PredictionService,
	treatments *usecase.TreatmentService,
	prescriptions *usecase.PrescriptionService,
	logger *zap.Logger,
) *ClinicalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClinicalHandler{
		predictions:   predictions,
		treatments:    treatments,
		prescriptions: prescriptions,
		logger:        logger,
	}
}

// Predict godoc
// @Summary Relay a prediction request to the model service
// @Tags Clinical
// @Accept json
// @Produce json
// @Success 200 {object} object
// @Failure 400,502,503 {object} ErrorResponse
// @Router /predict [post]
func (h *ClinicalHandler) Predict(c *gin.Context) {
	h.relay(c, usecase.EndpointPredict)
}

// Repredict godoc
// @Summary Relay a refined prediction request to the model service
// @Tags Clinical
// @Accept json
// @Produce json
// @Success 200 {object} object
// @Failure 400,502,503 {object} ErrorResponse
// @Router /repredict [post]
func (h *ClinicalHandler) Repredict(c *gin.Context) {
	h.relay(c, usecase.EndpointRepredict)
}

// relay answers with the upstream status and body unchanged.
func (h *ClinicalHandler) relay(c *gin.Context, endpoint string) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPredictionBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Could not read request body"))
		return
	}

	forward := h.predictions.Predict
	if endpoint == usecase.EndpointRepredict {
		forward = h.predictions.Repredict
	}

	resp, err := forward(c.Request.Context(), payload)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Request body must be JSON"))
			return
		case errors.Is(err, usecase.ErrServiceUnavailable):
			c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "Prediction service not configured"))
			return
		}
		h.logger.Warn("prediction relay failed", zap.String("endpoint", endpoint), zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, NewErrorResponse(c, "Prediction service unavailable"))
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, resp.Body)
}

// Treatment godoc
// @Summary Synthesize a treatment plan
// @Tags Clinical
// @Accept json
// @Produce json
// @Param request body TreatmentRequest true "Patient details"
// @Success 200 {object} domain.Prescription
// @Failure 400 {object} ErrorResponse
// @Router /api/treatment [post]
func (h *ClinicalHandler) Treatment(c *gin.Context) {
	var req TreatmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Missing required patient information"))
		return
	}

	prescription, err := h.treatments.Plan(c.Request.Context(), usecase.TreatmentInput{
		Disease:    req.Disease,
		Age:        string(req.Age),
		BloodGroup: req.BloodGroup,
		Symptoms:   req.Symptoms,
		Duration:   string(req.Duration),
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "Missing required patient information"},
		}, http.StatusInternalServerError, "Could not generate treatment plan")
		return
	}

	c.JSON(http.StatusOK, prescription)
}

// DownloadPrescription godoc
// @Summary Render a prescription as PDF
// @Tags Clinical
// @Accept json
// @Produce application/pdf
// @Param request body PrescriptionRequest true "Prescription"
// @Success 200 {file} file
// @Failure 400,500 {object} ErrorResponse
// @Router /api/treatment/download [post]
func (h *ClinicalHandler) DownloadPrescription(c *gin.Context) {
	var req PrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Invalid prescription payload"))
		return
	}

	doc, err := h.prescriptions.Render(c.Request.Context(), req.toDomain())
	if err != nil {
		h.logger.Error("prescription render failed", zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "Could not generate PDF"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="prescription.pdf"`)
	c.Data(http.StatusOK, usecase.PrescriptionContentType, doc)
}
