// Package health reports readiness of the validator's dependencies.
package health

import (
	"database/sql"

	"github.com/claimrecon/crv-app/crv/reference"
	"github.com/claimrecon/crv-app/log"
)

type HealthChecker struct {
	db  *sql.DB
	ref *reference.Manager
}

func NewHealthChecker(db *sql.DB, ref *reference.Manager) HealthChecker {
	return HealthChecker{db: db, ref: ref}
}

func (h HealthChecker) IsDatabaseOK() (result string, ok bool) {
	if err := h.db.Ping(); err != nil {
		log.Validator.Error("Health check: database ping error: ", err.Error())
		return "database ping error", false
	}

	return "ok", true
}

func (h HealthChecker) IsReferenceOK() (result string, ok bool) {
	if h.ref == nil || h.ref.Current() == nil {
		log.Reference.Error("Health check: no reference snapshot loaded")
		return "no reference snapshot loaded", false
	}

	return "ok", true
}
