package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pborman/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/claimrecon/crv-app/crv/health"
	"github.com/claimrecon/crv-app/crv/models"
	"github.com/claimrecon/crv-app/crv/patientmatch"
	"github.com/claimrecon/crv-app/crv/reference"
	"github.com/claimrecon/crv-app/crv/service"
)

type APITestSuite struct {
	suite.Suite

	svc     *service.MockService
	db      *sql.DB
	dbMock  sqlmock.Sqlmock
	handler *Handler
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) SetupTest() {
	s.svc = &service.MockService{}

	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	s.Require().NoError(err)
	s.db, s.dbMock = db, dbMock

	snap, err := reference.NewSnapshot(nil, nil, nil, nil, nil, nil)
	s.Require().NoError(err)
	manager := reference.NewManagerFromSnapshot(snap, nil)

	s.handler = NewHandler(s.svc, health.NewHealthChecker(db, manager))
}

func (s *APITestSuite) TearDownTest() {
	s.db.Close()
}

func (s *APITestSuite) TestValidateClaim() {
	orderID := uuid.NewRandom()
	claimID := uuid.NewRandom()
	s.svc.On("ValidateClaimByOrderID", mock.Anything, mock.Anything, orderID).
		Return(&models.ValidationResult{ClaimID: claimID, Status: models.StatusPass})

	body, err := json.Marshal(map[string]interface{}{
		"order_id": orderID.String(),
		"claim": models.Claim{
			ID:            claimID,
			ProviderTaxID: "123456789",
			Lines:         []models.BilledLine{{Code: "70553", Units: 1}},
		},
	})
	s.Require().NoError(err)

	req := httptest.NewRequest("POST", "/api/v1/claims/$validate", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.handler.ValidateClaim(w, req)

	s.Equal(http.StatusOK, w.Code)
	var result models.ValidationResult
	s.NoError(json.NewDecoder(w.Body).Decode(&result))
	s.Equal(models.StatusPass, result.Status)
}

func (s *APITestSuite) TestValidateClaimBadOrderID() {
	req := httptest.NewRequest("POST", "/api/v1/claims/$validate",
		bytes.NewReader([]byte(`{"order_id": "not-a-uuid", "claim": {}}`)))
	w := httptest.NewRecorder()
	s.handler.ValidateClaim(w, req)

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APITestSuite) TestValidateClaimServiceError() {
	orderID := uuid.NewRandom()
	s.svc.On("ValidateClaimByOrderID", mock.Anything, mock.Anything, orderID).
		Return(&models.ValidationResult{Status: models.StatusError})

	body := fmt.Sprintf(`{"order_id": %q, "claim": {}}`, orderID.String())
	req := httptest.NewRequest("POST", "/api/v1/claims/$validate", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	s.handler.ValidateClaim(w, req)

	s.Equal(http.StatusInternalServerError, w.Code)
}

func (s *APITestSuite) TestMatchPatients() {
	dos := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	s.svc.On("FindSimilarPatients", mock.Anything, "John Smith", dos, 0).
		Return(patientmatch.MatchResult{
			Candidates: []*models.PatientCandidate{{PatientName: "Smith, John"}},
		}, nil)

	req := httptest.NewRequest("POST", "/api/v1/patients/$match",
		bytes.NewReader([]byte(`{"name": "John Smith", "date_of_service": "2024-01-10"}`)))
	w := httptest.NewRecorder()
	s.handler.MatchPatients(w, req)

	s.Equal(http.StatusOK, w.Code)
	var result patientmatch.MatchResult
	s.NoError(json.NewDecoder(w.Body).Decode(&result))
	s.Len(result.Candidates, 1)
}

func (s *APITestSuite) TestMatchPatientsBadDate() {
	req := httptest.NewRequest("POST", "/api/v1/patients/$match",
		bytes.NewReader([]byte(`{"name": "John Smith", "date_of_service": "01/10/2024"}`)))
	w := httptest.NewRecorder()
	s.handler.MatchPatients(w, req)

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APITestSuite) TestApplyRateCorrection() {
	s.svc.On("ApplyRateCorrection", mock.Anything, "123456789", mock.Anything).
		Return(int64(3), nil)

	req := httptest.NewRequest("POST", "/api/v1/rates/$correct",
		bytes.NewReader([]byte(`{"provider_tax_id": "123456789", "correction": {"code_rates": {"70551": 95000}}}`)))
	w := httptest.NewRecorder()
	s.handler.ApplyRateCorrection(w, req)

	s.Equal(http.StatusOK, w.Code)
	var resp map[string]int64
	s.NoError(json.NewDecoder(w.Body).Decode(&resp))
	s.Equal(int64(3), resp["updated"])
}

func (s *APITestSuite) TestHealthCheck() {
	s.dbMock.ExpectPing()

	req := httptest.NewRequest("GET", "/_health", nil)
	w := httptest.NewRecorder()
	s.handler.HealthCheck(w, req)

	s.Equal(http.StatusOK, w.Code)
	var resp map[string]string
	s.NoError(json.NewDecoder(w.Body).Decode(&resp))
	s.Equal("ok", resp["database"])
	s.Equal("ok", resp["reference"])
}

func (s *APITestSuite) TestHealthCheckDatabaseDown() {
	s.dbMock.ExpectPing().WillReturnError(fmt.Errorf("no connection"))

	req := httptest.NewRequest("GET", "/_health", nil)
	w := httptest.NewRecorder()
	s.handler.HealthCheck(w, req)

	s.Equal(http.StatusBadGateway, w.Code)
}

func (s *APITestSuite) TestGetVersion() {
	req := httptest.NewRequest("GET", "/_version", nil)
	w := httptest.NewRecorder()
	s.handler.GetVersion(w, req)

	s.Equal(http.StatusOK, w.Code)
	var resp map[string]string
	s.NoError(json.NewDecoder(w.Body).Decode(&resp))
	s.Equal("latest", resp["version"])
}
