package employees

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// headerAliases maps normalized roster headers to field keys. Spanish
// headers come from the dashboard's own exports.
var headerAliases = map[string]string{
	"id":                     "id",
	"rut":                    "rut",
	"first_name":             "first_name",
	"firstname":              "first_name",
	"nombre":                 "first_name",
	"last_name":              "last_name",
	"lastname":               "last_name",
	"apellido":               "last_name",
	"email":                  "email",
	"correo":                 "email",
	"phone":                  "phone",
	"telefono":               "phone",
	"teléfono":               "phone",
	"birth_date":             "birth_date",
	"fecha_de_nacimiento":    "birth_date",
	"gender":                 "gender",
	"genero":                 "gender",
	"género":                 "gender",
	"street":                 "street",
	"calle":                  "street",
	"number":                 "number",
	"numero":                 "number",
	"número":                 "number",
	"city":                   "city",
	"ciudad":                 "city",
	"state":                  "state",
	"region":                 "state",
	"región":                 "state",
	"zip_code":               "zip_code",
	"codigo_postal":          "zip_code",
	"código_postal":          "zip_code",
	"department":             "department",
	"departamento":           "department",
	"position":               "position",
	"cargo":                  "position",
	"start_date":             "start_date",
	"fecha_de_inicio":        "start_date",
	"is_active":              "is_active",
	"active":                 "is_active",
	"activo":                 "is_active",
	"profile_image":          "profile_image",
	"photo":                  "profile_image",
	"foto":                   "profile_image",
	"emergency_name":         "emergency_name",
	"contacto_emergencia":    "emergency_name",
	"emergency_relationship": "emergency_relationship",
	"relacion":               "emergency_relationship",
	"relación":               "emergency_relationship",
	"emergency_phone":        "emergency_phone",
	"telefono_emergencia":    "emergency_phone",
	"teléfono_emergencia":    "emergency_phone",
}

// ErrNoRoster is returned by LoadFromDataDir when none of the known roster
// files exist.
var ErrNoRoster = errors.New("no roster files found")

// LoadFromDataDir loads roster files from a data directory (best-effort).
// Any of employees.csv, employees.xlsx and employees.xls may be present; the
// rows of all present files are concatenated in that order.
func LoadFromDataDir(dataDir string) ([]Employee, error) {
	files := []string{
		filepath.Join(dataDir, "employees.csv"),
		filepath.Join(dataDir, "employees.xlsx"),
		filepath.Join(dataDir, "employees.xls"),
	}

	var all []Employee
	var found bool
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		found = true
		es, err := LoadRosterFile(f)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
		all = append(all, es...)
	}
	if !found {
		return nil, fmt.Errorf("%w in %s", ErrNoRoster, dataDir)
	}
	return all, nil
}

func LoadRosterFile(path string) ([]Employee, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return ReadRoster(fp, filepath.Base(path))
}

// ReadRoster parses a roster in CSV, XLSX or XLS format; the format is picked
// from the filename extension and defaults to CSV.
func ReadRoster(r io.Reader, filename string) ([]Employee, error) {
	rows, err := readRows(r, filename)
	if err != nil {
		return nil, err
	}
	return parseRows(rows)
}

func readRows(r io.Reader, filename string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		file, err := excelize.OpenReader(r)
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()
		sheet := file.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("no worksheet found")
		}
		return file.GetRows(sheet)
	case ".xls":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, err
		}
		if workbook.NumSheets() == 0 {
			return nil, fmt.Errorf("no worksheet found")
		}
		return workbook.ReadAllCells(100000), nil
	default:
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		return cr.ReadAll()
	}
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func parseRows(rows [][]string) ([]Employee, error) {
	if len(rows) < 1 {
		return nil, fmt.Errorf("roster has no header")
	}
	cols := map[string]int{}
	for i, h := range rows[0] {
		if key, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, dup := cols[key]; !dup {
				cols[key] = i
			}
		}
	}
	for _, key := range []string{"rut", "first_name", "last_name"} {
		if _, ok := cols[key]; !ok {
			return nil, fmt.Errorf("roster is missing the %s column", key)
		}
	}

	get := func(row []string, name string) string {
		if idx, ok := cols[name]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	out := []Employee{}
	for _, row := range rows[1:] {
		e := Employee{
			ID:           get(row, "id"),
			RUT:          get(row, "rut"),
			FirstName:    get(row, "first_name"),
			LastName:     get(row, "last_name"),
			Email:        get(row, "email"),
			Phone:        get(row, "phone"),
			BirthDate:    get(row, "birth_date"),
			Gender:       parseGender(get(row, "gender")),
			Department:   get(row, "department"),
			Position:     get(row, "position"),
			StartDate:    get(row, "start_date"),
			IsActive:     parseActive(get(row, "is_active")),
			ProfileImage: get(row, "profile_image"),
			Address: Address{
				Street:  get(row, "street"),
				Number:  get(row, "number"),
				City:    get(row, "city"),
				State:   get(row, "state"),
				ZipCode: get(row, "zip_code"),
			},
			EmergencyContact: EmergencyContact{
				Name:         get(row, "emergency_name"),
				Relationship: get(row, "emergency_relationship"),
				Phone:        get(row, "emergency_phone"),
			},
		}
		// blank spreadsheet rows
		if e.RUT == "" && e.FirstName == "" && e.LastName == "" {
			continue
		}
		// rosters without an id column are keyed by rut
		if e.ID == "" {
			e.ID = e.RUT
		}
		out = append(out, e)
	}
	return out, nil
}

func parseGender(s string) Gender {
	switch strings.ToUpper(s) {
	case "M", "MALE", "MASCULINO":
		return GenderMale
	case "F", "FEMALE", "FEMENINO":
		return GenderFemale
	case "":
		return ""
	default:
		return GenderOther
	}
}

// parseActive treats a missing or empty cell as active.
func parseActive(s string) bool {
	switch strings.ToLower(s) {
	case "false", "0", "no", "inactive", "inactivo":
		return false
	default:
		return true
	}
}
