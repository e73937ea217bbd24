// Package sphere decides whether a record belongs to a federal purchasing unit.
package sphere

import (
	"encoding/json"
	"strconv"

	"github.com/Sternrassler/buscador-adesoes/pkg/ata"
)

// Federal is the sphere code of federal units.
const Federal = "F"

// UnitCodeFields are probed in order to find the purchasing unit (UASG) code.
var UnitCodeFields = []string{
	"uasg",
	"codigoUasg",
	"codigoUnidadeGerenciadora",
	"codigoUnidadeGestora",
	"codigoUG",
}

// Table maps a unit code to its sphere code. It is read-only during a search.
type Table map[string]string

// Sphere returns the sphere code for a unit, or "" if unknown.
func (t Table) Sphere(unitCode string) string {
	return t[unitCode]
}

// ExtractUnitCode returns the first non-empty candidate field as a string.
func ExtractUnitCode(rec ata.RawRecord) (string, bool) {
	for _, key := range UnitCodeFields {
		v, ok := rec[key]
		if !ok || empty(v) {
			continue
		}
		if s, ok := rec.Text(key); ok {
			return s, true
		}
	}
	return "", false
}

// IsFederal reports whether the record's unit is registered as federal.
// Records without a unit code and units missing from the table are not.
func IsFederal(rec ata.RawRecord, table Table) bool {
	code, ok := ExtractUnitCode(rec)
	if !ok {
		return false
	}
	return table.Sphere(code) == Federal
}

func empty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case json.Number:
		f, err := strconv.ParseFloat(x.String(), 64)
		return err == nil && f == 0
	case float64:
		return x == 0
	case int:
		return x == 0
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	default:
		return false
	}
}
