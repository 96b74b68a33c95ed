package reference

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/dimchansky/utfbom"
	"github.com/go-gota/gota/dataframe"
)

// Category dimension CSV columns.
const (
	colProcedureCode = "PRCDR_CD"
	colCategoryName  = "CTGRY_NM"
)

var requiredColumns = []string{colProcedureCode, colCategoryName}

// referenceFile mirrors the TOML layout of the reference configuration.
type referenceFile struct {
	AncillaryCodes      []string          `toml:"ancillary_codes"`
	AncillaryCategories []string          `toml:"ancillary_categories"`
	EquivalenceGroups   []groupDef        `toml:"equivalence_group"`
	SubstitutionRules   []substitutionDef `toml:"substitution_rule"`
	Bundles             []bundleDef       `toml:"bundle"`
}

type groupDef struct {
	Name  string   `toml:"name"`
	Codes []string `toml:"codes"`
}

type substitutionDef struct {
	ProviderTaxID string   `toml:"provider_tax_id"`
	Primary       []string `toml:"primary"`
	Substitutes   []string `toml:"substitutes"`
}

type bundleDef struct {
	Name          string   `toml:"name"`
	BodyPart      string   `toml:"body_part"`
	Modality      string   `toml:"modality"`
	CoreCodes     []string `toml:"core_codes"`
	OptionalCodes []string `toml:"optional_codes"`
}

// Load reads the TOML reference configuration and, when csvPath is non-empty,
// the procedure-category dimension CSV, and builds a validated Snapshot.
func Load(tomlPath, csvPath string) (*Snapshot, error) {
	var file referenceFile
	if _, err := toml.DecodeFile(filepath.Clean(tomlPath), &file); err != nil {
		return nil, fmt.Errorf("failed to read reference configuration %s: %w", tomlPath, err)
	}

	categories := map[string]string{}
	if csvPath != "" {
		var err error
		categories, err = loadCategoryDimension(csvPath)
		if err != nil {
			return nil, err
		}
	}

	groups := make([]EquivalenceGroup, 0, len(file.EquivalenceGroups))
	for _, g := range file.EquivalenceGroups {
		groups = append(groups, EquivalenceGroup{Name: g.Name, Codes: g.Codes})
	}
	rules := make([]SubstitutionRule, 0, len(file.SubstitutionRules))
	for _, r := range file.SubstitutionRules {
		rules = append(rules, SubstitutionRule{
			ProviderTaxID: r.ProviderTaxID,
			Primary:       r.Primary,
			Substitutes:   r.Substitutes,
		})
	}
	bundles := make([]ProcedureBundle, 0, len(file.Bundles))
	for _, b := range file.Bundles {
		bundles = append(bundles, ProcedureBundle{
			Name:          b.Name,
			BodyPart:      b.BodyPart,
			Modality:      b.Modality,
			CoreCodes:     b.CoreCodes,
			OptionalCodes: b.OptionalCodes,
		})
	}

	return NewSnapshot(groups, rules, bundles,
		file.AncillaryCodes, file.AncillaryCategories, categories)
}

// loadCategoryDimension reads the code -> category dimension from a CSV file.
// Rows with an empty category are skipped; those codes stay uncategorized.
func loadCategoryDimension(csvPath string) (map[string]string, error) {
	f, err := os.Open(filepath.Clean(csvPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open category dimension file: %w", err)
	}
	defer f.Close()

	// Trim the Byte Order Marker if it's present
	// See: https://github.com/golang/go/issues/33887
	reader := utfbom.SkipOnly(f)

	df := dataframe.ReadCSV(reader, dataframe.HasHeader(true), dataframe.DetectTypes(false))
	if df.Err != nil {
		return nil, fmt.Errorf("failed to read category dimension file: %w", df.Err)
	}
	if err := validateColumns(df); err != nil {
		return nil, fmt.Errorf("category dimension file %s is not valid: %w", csvPath, err)
	}

	records := df.Records()
	headers, rows := records[0], records[1:]

	codeIdx, categoryIdx := -1, -1
	for idx, h := range headers {
		switch h {
		case colProcedureCode:
			codeIdx = idx
		case colCategoryName:
			categoryIdx = idx
		}
	}

	categories := make(map[string]string, len(rows))
	for _, row := range rows {
		code, category := row[codeIdx], row[categoryIdx]
		if code == "" || category == "" {
			continue
		}
		categories[code] = category
	}

	return categories, nil
}

func validateColumns(df dataframe.DataFrame) error {
	fields := df.Names()
	m := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		m[field] = struct{}{}
	}

	for _, required := range requiredColumns {
		if _, ok := m[required]; !ok {
			return fmt.Errorf("required column '%s' not found", required)
		}
	}

	return nil
}
