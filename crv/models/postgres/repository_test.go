package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pborman/uuid"
	"github.com/stretchr/testify/suite"
)

type RepositoryTestSuite struct {
	suite.Suite

	db         *sql.DB
	mock       sqlmock.Sqlmock
	repository *Repository
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.db, s.mock = db, mock
	s.repository = NewRepository(db)
}

func (s *RepositoryTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *RepositoryTestSuite) TestGetReferenceOrder() {
	orderID := uuid.NewRandom()
	dos := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT id, patient_name, service_date FROM orders WHERE id = $1")).
		WithArgs(orderID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_name", "service_date"}).
			AddRow(orderID.String(), "Smith, John", dos))

	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT code, modifier, units, description FROM order_lines WHERE order_id = $1 ORDER BY line_number")).
		WithArgs(orderID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"code", "modifier", "units", "description"}).
			AddRow("70553", "", 1, "MRI brain w/wo contrast").
			AddRow("77002", "TC", 1, "Fluoroscopic guidance"))

	order, err := s.repository.GetReferenceOrder(context.Background(), orderID)
	s.NoError(err)
	s.Require().NotNil(order)
	s.Equal(orderID.String(), order.ID.String())
	s.Equal("Smith, John", order.PatientName)
	s.Require().Len(order.Lines, 2)
	s.Equal("70553", order.Lines[0].Code)
	s.Equal("TC", order.Lines[1].Modifier)
}

func (s *RepositoryTestSuite) TestGetReferenceOrderNotFound() {
	orderID := uuid.NewRandom()

	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT id, patient_name, service_date FROM orders WHERE id = $1")).
		WithArgs(orderID.String()).
		WillReturnError(sql.ErrNoRows)

	order, err := s.repository.GetReferenceOrder(context.Background(), orderID)
	s.NoError(err)
	s.Nil(order)
}

func (s *RepositoryTestSuite) TestFindPatientCandidates() {
	orderID := uuid.NewRandom()
	dos := time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)
	start, end := dos.AddDate(0, 0, -5), dos.AddDate(0, 0, 5)

	s.mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT o.id, o.patient_name, o.service_date, COUNT(l.id) FROM orders o "+
			"LEFT JOIN order_lines l ON l.order_id = o.id "+
			"WHERE LOWER(o.patient_name) LIKE $1 AND LOWER(o.patient_name) LIKE $2 "+
			"AND o.service_date >= $3 AND o.service_date <= $4 "+
			"GROUP BY o.id, o.patient_name, o.service_date "+
			"ORDER BY o.service_date ASC LIMIT 100")).
		WithArgs("%john%", "%smith%", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_name", "service_date", "count"}).
			AddRow(orderID.String(), "Smith, John", dos, 3))

	candidates, err := s.repository.FindPatientCandidates(context.Background(),
		[]string{"john", "smith"}, start, end, 100)
	s.NoError(err)
	s.Require().Len(candidates, 1)
	s.Equal("Smith, John", candidates[0].PatientName)
	s.Equal(3, candidates[0].ProcedureCount)
}

func (s *RepositoryTestSuite) TestFindPatientCandidatesNoTokens() {
	_, err := s.repository.FindPatientCandidates(context.Background(), nil, time.Now(), time.Now(), 100)
	s.Error(err)
}

func (s *RepositoryTestSuite) TestGetProviderRate() {
	s.mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT rate_cents FROM provider_rates WHERE provider_tax_id = $1 AND code = $2 AND modifier = $3")).
		WithArgs("123456789", "70551", "").
		WillReturnRows(sqlmock.NewRows([]string{"rate_cents"}).AddRow(95000))

	entry, err := s.repository.GetProviderRate(context.Background(), "123456789", "70551", "")
	s.NoError(err)
	s.Require().NotNil(entry)
	s.Equal(int64(95000), entry.RateCents)
	s.Equal("70551", entry.Code)
}

func (s *RepositoryTestSuite) TestGetProviderRateNotFound() {
	s.mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT rate_cents FROM provider_rates WHERE provider_tax_id = $1 AND code = $2 AND modifier = $3")).
		WithArgs("123456789", "70551", "TC").
		WillReturnError(sql.ErrNoRows)

	entry, err := s.repository.GetProviderRate(context.Background(), "123456789", "70551", "TC")
	s.NoError(err)
	s.Nil(entry)
}

func (s *RepositoryTestSuite) TestGetCategoryRate() {
	s.mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT rate_cents FROM provider_category_rates WHERE provider_tax_id = $1 AND category = $2 AND modifier = $3")).
		WithArgs("123456789", "MRI w/o", "").
		WillReturnRows(sqlmock.NewRows([]string{"rate_cents"}).AddRow(60000))

	entry, err := s.repository.GetCategoryRate(context.Background(), "123456789", "MRI w/o", "")
	s.NoError(err)
	s.Require().NotNil(entry)
	s.Equal(int64(60000), entry.RateCents)
	s.Equal("MRI w/o", entry.Category)
}

func (s *RepositoryTestSuite) TestUpsertProviderRate() {
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO provider_rates")).
		WithArgs("123456789", "70551", "", int64(95000)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.repository.UpsertProviderRate(context.Background(), "123456789", "70551", "", 95000)
	s.NoError(err)
}

// The category correction writes the category rate and rewrites every mapped
// code's line-item rate; the caller wraps both statements in one transaction.
func (s *RepositoryTestSuite) TestApplyCategoryRate() {
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO provider_category_rates")).
		WithArgs("123456789", "MRI w/o", "", int64(60000)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO provider_rates")).
		WithArgs("123456789", "", int64(60000), "MRI w/o").
		WillReturnResult(sqlmock.NewResult(0, 7))

	updated, err := s.repository.ApplyCategoryRate(context.Background(), "123456789", "MRI w/o", "", 60000)
	s.NoError(err)
	s.Equal(int64(7), updated)
}

func (s *RepositoryTestSuite) TestRepositoryTx() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO provider_rates")).
		WithArgs("123456789", "70551", "", int64(95000)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	s.mock.ExpectCommit()

	tx, err := s.db.Begin()
	s.Require().NoError(err)
	repository := NewRepositoryTx(tx)
	s.NoError(repository.UpsertProviderRate(context.Background(), "123456789", "70551", "", 95000))
	s.NoError(tx.Commit())
}
