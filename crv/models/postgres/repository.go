// Package postgres provides the PostgreSQL-backed repository for reference
// orders and the provider rate store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/pborman/uuid"

	"github.com/claimrecon/crv-app/crv/models"
)

type queryable interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type executable interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const (
	sqlFlavor = sqlbuilder.PostgreSQL
)

// Ensure Repository satisfies the interface
var _ models.Repository = &Repository{}

type Repository struct {
	queryable
	executable
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db, db}
}

func NewRepositoryTx(tx *sql.Tx) *Repository {
	return &Repository{tx, tx}
}

func (r *Repository) GetReferenceOrder(ctx context.Context, orderID uuid.UUID) (*models.ReferenceOrder, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("id", "patient_name", "service_date")
	sb.From("orders")
	sb.Where(sb.Equal("id", orderID))

	order := models.ReferenceOrder{}
	var id string

	query, args := sb.Build()
	row := r.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&id, &order.PatientName, &order.ServiceDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	order.ID = uuid.Parse(id)

	lines, err := r.getOrderLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return &order, nil
}

func (r *Repository) getOrderLines(ctx context.Context, orderID uuid.UUID) ([]models.OrderedLine, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("code", "modifier", "units", "description")
	sb.From("order_lines")
	sb.Where(sb.Equal("order_id", orderID))
	sb.OrderBy("line_number")

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []models.OrderedLine
	for rows.Next() {
		var line models.OrderedLine
		if err := rows.Scan(&line.Code, &line.Modifier, &line.Units, &line.Description); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

func (r *Repository) FindPatientCandidates(ctx context.Context, nameTokens []string, windowStart, windowEnd time.Time, limit int) ([]*models.PatientCandidate, error) {
	if len(nameTokens) == 0 {
		return nil, fmt.Errorf("patient candidate search requires at least one name token")
	}

	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("o.id", "o.patient_name", "o.service_date", "COUNT(l.id)")
	sb.From("orders o")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "order_lines l", "l.order_id = o.id")
	for _, token := range nameTokens {
		sb.Where(sb.Like("LOWER(o.patient_name)", "%"+token+"%"))
	}
	sb.Where(
		sb.GreaterEqualThan("o.service_date", windowStart),
		sb.LessEqualThan("o.service_date", windowEnd),
	)
	sb.GroupBy("o.id", "o.patient_name", "o.service_date")
	sb.OrderBy("o.service_date").Asc()
	sb.Limit(limit)

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []*models.PatientCandidate
	for rows.Next() {
		var c models.PatientCandidate
		var id string
		if err := rows.Scan(&id, &c.PatientName, &c.ServiceDate, &c.ProcedureCount); err != nil {
			return nil, err
		}
		c.OrderID = uuid.Parse(id)
		candidates = append(candidates, &c)
	}

	return candidates, rows.Err()
}

func (r *Repository) GetProviderRate(ctx context.Context, taxID, code, modifier string) (*models.RateEntry, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("rate_cents")
	sb.From("provider_rates")
	sb.Where(
		sb.Equal("provider_tax_id", taxID),
		sb.Equal("code", code),
		sb.Equal("modifier", modifier),
	)

	entry := models.RateEntry{ProviderTaxID: taxID, Code: code, Modifier: modifier}

	query, args := sb.Build()
	row := r.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&entry.RateCents); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &entry, nil
}

func (r *Repository) GetCategoryRate(ctx context.Context, taxID, category, modifier string) (*models.RateEntry, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select("rate_cents")
	sb.From("provider_category_rates")
	sb.Where(
		sb.Equal("provider_tax_id", taxID),
		sb.Equal("category", category),
		sb.Equal("modifier", modifier),
	)

	entry := models.RateEntry{ProviderTaxID: taxID, Category: category, Modifier: modifier}

	query, args := sb.Build()
	row := r.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&entry.RateCents); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &entry, nil
}

func (r *Repository) UpsertProviderRate(ctx context.Context, taxID, code, modifier string, rateCents int64) error {
	const query = `INSERT INTO provider_rates (provider_tax_id, code, modifier, rate_cents)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider_tax_id, code, modifier)
		DO UPDATE SET rate_cents = EXCLUDED.rate_cents`

	_, err := r.ExecContext(ctx, query, taxID, code, modifier, rateCents)
	return err
}

// ApplyCategoryRate records the category-level rate and rewrites the
// line-item rate of every code currently mapped to the category. Run it
// inside a transaction (NewRepositoryTx) so the rewrite is all-or-nothing.
func (r *Repository) ApplyCategoryRate(ctx context.Context, taxID, category, modifier string, rateCents int64) (int64, error) {
	const categoryQuery = `INSERT INTO provider_category_rates (provider_tax_id, category, modifier, rate_cents)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider_tax_id, category, modifier)
		DO UPDATE SET rate_cents = EXCLUDED.rate_cents`

	if _, err := r.ExecContext(ctx, categoryQuery, taxID, category, modifier, rateCents); err != nil {
		return 0, err
	}

	const rewriteQuery = `INSERT INTO provider_rates (provider_tax_id, code, modifier, rate_cents)
		SELECT $1, pc.code, $2, $3 FROM procedure_categories pc WHERE pc.category = $4
		ON CONFLICT (provider_tax_id, code, modifier)
		DO UPDATE SET rate_cents = EXCLUDED.rate_cents`

	result, err := r.ExecContext(ctx, rewriteQuery, taxID, modifier, rateCents, category)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
