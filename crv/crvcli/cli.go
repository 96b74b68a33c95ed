// Package crvcli wires the validation service into a command line interface.
package crvcli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/claimrecon/crv-app/conf"
	"github.com/claimrecon/crv-app/crv/api"
	"github.com/claimrecon/crv-app/crv/constants"
	"github.com/claimrecon/crv-app/crv/database"
	"github.com/claimrecon/crv-app/crv/health"
	"github.com/claimrecon/crv-app/crv/models"
	"github.com/claimrecon/crv-app/crv/models/postgres"
	"github.com/claimrecon/crv-app/crv/rates"
	"github.com/claimrecon/crv-app/crv/reference"
	"github.com/claimrecon/crv-app/crv/service"
	"github.com/claimrecon/crv-app/crv/utils"
	"github.com/claimrecon/crv-app/crv/web"
	"github.com/claimrecon/crv-app/log"
)

// App Name and usage.  Edit them here to prevent breaking tests
const Name = "crv"
const Usage = "Claim Reconciliation and Validation CLI"

func GetApp() *cli.App {
	return setUpApp()
}

type deps struct {
	db      *sql.DB
	ref     *reference.Manager
	service service.Service
	health  health.HealthChecker
}

// buildDeps owns the standard wiring: database pool, reference snapshot,
// repositories, and the validation service on top of them.
func buildDeps() (*deps, error) {
	db, err := database.Connection()
	if err != nil {
		return nil, err
	}

	tomlPath, csvPath, err := referencePaths()
	if err != nil {
		db.Close()
		return nil, err
	}
	ref, err := reference.NewManager(tomlPath, csvPath, log.Reference)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to load reference data")
	}

	repository := postgres.NewRepository(db)
	validator := rates.NewValidator(db, repository,
		func(tx *sql.Tx) models.RateRepository { return postgres.NewRepositoryTx(tx) },
		func(code string) (string, bool) { return ref.Current().CategoryFor(code) },
		log.RateStore)

	return &deps{
		db:      db,
		ref:     ref,
		service: service.NewService(repository, ref, validator, log.Validator),
		health:  health.NewHealthChecker(db, ref),
	}, nil
}

func setUpApp() *cli.App {
	app := cli.NewApp()
	app.Name = Name
	app.Usage = Usage
	app.Version = constants.Version
	var orderID, claimFile, patientName, dateOfService, providerTaxID, correctionFile string
	var dayWindow int
	app.Commands = []cli.Command{
		{
			Name:  "start-api",
			Usage: "Start the validation API",
			Action: func(c *cli.Context) error {
				d, err := buildDeps()
				if err != nil {
					return err
				}
				defer d.db.Close()
				defer d.ref.Close()

				if err := d.ref.Watch(); err != nil {
					log.Reference.Warnf("Reference hot reload disabled: %s", err.Error())
				}

				fmt.Fprintf(app.Writer, "%s\n", "Starting crv API...")

				srv := &http.Server{
					Handler:      web.NewAPIRouter(api.NewHandler(d.service, d.health)),
					Addr:         ":" + utils.FromEnv("CRV_API_PORT", "3000"),
					ReadTimeout:  time.Duration(utils.GetEnvInt("API_READ_TIMEOUT", 10)) * time.Second,
					WriteTimeout: time.Duration(utils.GetEnvInt("API_WRITE_TIMEOUT", 20)) * time.Second,
					IdleTimeout:  time.Duration(utils.GetEnvInt("API_IDLE_TIMEOUT", 120)) * time.Second,
				}
				return srv.ListenAndServe()
			},
		},
		{
			Name:     "validate-claim",
			Category: "Validation tools",
			Usage:    "Validate a claim JSON document against a reference order",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "claim-file",
					Usage:       "Path of the claim JSON document",
					Destination: &claimFile,
				},
				cli.StringFlag{
					Name:        "order-id",
					Usage:       "UUID of the reference order",
					Destination: &orderID,
				},
			},
			Action: func(c *cli.Context) error {
				d, err := buildDeps()
				if err != nil {
					return err
				}
				defer d.db.Close()

				result, err := validateClaimFile(d.service, claimFile, orderID)
				if err != nil {
					return err
				}
				return writeJSON(app.Writer, result)
			},
		},
		{
			Name:     "find-patient",
			Category: "Validation tools",
			Usage:    "Find candidate reference orders by fuzzy patient identity",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "name",
					Usage:       "Patient name as it appears on the claim",
					Destination: &patientName,
				},
				cli.StringFlag{
					Name:        "date-of-service",
					Usage:       "Date of service (YYYY-MM-DD)",
					Destination: &dateOfService,
				},
				cli.IntFlag{
					Name:        "day-window",
					Usage:       "Days searched on either side of the date of service",
					Value:       constants.DefaultDayWindow,
					Destination: &dayWindow,
				},
			},
			Action: func(c *cli.Context) error {
				d, err := buildDeps()
				if err != nil {
					return err
				}
				defer d.db.Close()

				dos, err := time.Parse("2006-01-02", dateOfService)
				if err != nil {
					return errors.Wrap(err, "date-of-service must be formatted as YYYY-MM-DD")
				}

				result, err := d.service.FindSimilarPatients(context.Background(), patientName, dos, dayWindow)
				if err != nil {
					return err
				}
				return writeJSON(app.Writer, result)
			},
		},
		{
			Name:     "apply-rate-correction",
			Category: "Rate tools",
			Usage:    "Apply a batch rate correction for one provider",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "provider-tax-id",
					Usage:       "Provider tax identifier (9 digits)",
					Destination: &providerTaxID,
				},
				cli.StringFlag{
					Name:        "correction-file",
					Usage:       "Path of the correction JSON document",
					Destination: &correctionFile,
				},
			},
			Action: func(c *cli.Context) error {
				d, err := buildDeps()
				if err != nil {
					return err
				}
				defer d.db.Close()

				var correction models.RateCorrection
				if err := readJSONFile(correctionFile, &correction); err != nil {
					return err
				}

				updated, err := d.service.ApplyRateCorrection(context.Background(), providerTaxID, correction)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.Writer, "%d rate entries updated\n", updated)
				return nil
			},
		},
		{
			Name:     "refresh-reference",
			Category: "Reference tools",
			Usage:    "Reload equivalence groups, bundles, and categories from disk",
			Action: func(c *cli.Context) error {
				tomlPath, csvPath, err := referencePaths()
				if err != nil {
					return err
				}
				ref, err := reference.NewManager(tomlPath, csvPath, log.Reference)
				if err != nil {
					return errors.Wrap(err, "failed to load reference data")
				}
				snap := ref.Current()
				fmt.Fprintf(app.Writer, "reference data ok: %d bundles loaded\n", len(snap.Bundles()))
				return nil
			},
		},
	}
	return app
}

// referencePaths resolves the reference TOML and category CSV locations, falling
// back to a reference_files directory found up the tree when the env vars are unset.
func referencePaths() (string, string, error) {
	tomlPath := conf.GetEnv("CRV_REFERENCE_TOML")
	csvPath := conf.GetEnv("CRV_CATEGORY_CSV")
	if tomlPath != "" && csvPath != "" {
		return tomlPath, csvPath, nil
	}

	dir, err := utils.GetDirPath("reference_files")
	if err != nil {
		return "", "", errors.Wrap(err, "reference data location not configured")
	}
	if tomlPath == "" {
		tomlPath = dir + "/reference.toml"
	}
	if csvPath == "" {
		csvPath = dir + "/procedure_categories.csv"
	}
	return tomlPath, csvPath, nil
}

func validateClaimFile(svc service.Service, claimFile, rawOrderID string) (*models.ValidationResult, error) {
	id := uuid.Parse(rawOrderID)
	if id == nil {
		return nil, errors.Errorf("order-id %q is not a valid UUID", rawOrderID)
	}

	var claim models.Claim
	if err := readJSONFile(claimFile, &claim); err != nil {
		return nil, err
	}
	if len(claim.ID) == 0 {
		claim.ID = uuid.NewRandom()
	}

	return svc.ValidateClaimByOrderID(context.Background(), &claim, id), nil
}

func readJSONFile(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
