// Package api contains the JSON handlers for claim validation and patient
// matching.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/pborman/uuid"

	"github.com/claimrecon/crv-app/crv/constants"
	"github.com/claimrecon/crv-app/crv/health"
	"github.com/claimrecon/crv-app/crv/models"
	"github.com/claimrecon/crv-app/crv/service"
	"github.com/claimrecon/crv-app/log"
)

const dateLayout = "2006-01-02"

type Handler struct {
	svc     service.Service
	checker health.HealthChecker
}

func NewHandler(svc service.Service, checker health.HealthChecker) *Handler {
	return &Handler{svc: svc, checker: checker}
}

type errorResponse struct {
	Error string `json:"error"`
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorResponse{Error: msg})
}

type validateClaimRequest struct {
	OrderID string       `json:"order_id"`
	Claim   models.Claim `json:"claim"`
}

/*
ValidateClaim reconciles the posted claim against its reference order.

	swagger:route POST /api/v1/claims/$validate claims validateClaim
*/
func (h *Handler) ValidateClaim(w http.ResponseWriter, r *http.Request) {
	req := validateClaimRequest{}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "could not parse claim document")
		return
	}

	orderID := uuid.Parse(req.OrderID)
	if orderID == nil {
		badRequest(w, r, "order_id must be a valid UUID")
		return
	}
	if len(req.Claim.ID) == 0 {
		req.Claim.ID = uuid.NewRandom()
	}

	result := h.svc.ValidateClaimByOrderID(r.Context(), &req.Claim, orderID)
	if result.Status == models.StatusError {
		render.Status(r, http.StatusInternalServerError)
	}
	render.JSON(w, r, result)
}

type matchPatientsRequest struct {
	Name          string `json:"name"`
	DateOfService string `json:"date_of_service"`
	DayWindow     int    `json:"day_window,omitempty"`
}

/*
MatchPatients returns candidate reference orders for a fuzzy patient lookup.

	swagger:route POST /api/v1/patients/$match patients matchPatients
*/
func (h *Handler) MatchPatients(w http.ResponseWriter, r *http.Request) {
	req := matchPatientsRequest{}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "could not parse match request")
		return
	}

	dos, err := time.Parse(dateLayout, req.DateOfService)
	if err != nil {
		badRequest(w, r, "date_of_service must be formatted as YYYY-MM-DD")
		return
	}

	result, err := h.svc.FindSimilarPatients(r.Context(), req.Name, dos, req.DayWindow)
	if err != nil {
		log.Request.Error("Patient match failed: ", err.Error())
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Error: "patient search failed"})
		return
	}
	render.JSON(w, r, result)
}

type rateCorrectionRequest struct {
	ProviderTaxID string                `json:"provider_tax_id"`
	Correction    models.RateCorrection `json:"correction"`
}

/*
ApplyRateCorrection applies a batch rate correction for one provider.

	swagger:route POST /api/v1/rates/$correct rates applyRateCorrection
*/
func (h *Handler) ApplyRateCorrection(w http.ResponseWriter, r *http.Request) {
	req := rateCorrectionRequest{}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "could not parse rate correction")
		return
	}

	updated, err := h.svc.ApplyRateCorrection(r.Context(), req.ProviderTaxID, req.Correction)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	render.JSON(w, r, map[string]int64{"updated": updated})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	m := make(map[string]string)

	dbResult, dbOK := h.checker.IsDatabaseOK()
	refResult, refOK := h.checker.IsReferenceOK()
	m["database"] = dbResult
	m["reference"] = refResult

	if !dbOK || !refOK {
		render.Status(r, http.StatusBadGateway)
	}
	render.JSON(w, r, m)
}

func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"version": constants.Version})
}
