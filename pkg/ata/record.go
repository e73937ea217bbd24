package ata

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field names used by the ARP API.
const (
	FieldMaxAdhesion   = "maximoAdesao"
	FieldAtaNumber     = "numeroAtaRegistroPreco"
	FieldManagingUnit  = "nomeUnidadeGerenciadora"
	FieldSupplier      = "nomeRazaoSocialFornecedor"
	FieldControlNumber = "numeroControlePncpAta"
)

// Fallback display values for absent fields.
const (
	MissingAtaNumber    = "Ata não informada"
	MissingManagingUnit = "Unidade não informada"
	MissingSupplier     = "Fornecedor não informado"
)

// RawRecord is one element of "resultado" as decoded from the API. Numbers
// are kept as json.Number so codes keep their exact textual form.
type RawRecord map[string]any

// Text returns the field coerced to a string. Absent and null fields report
// false.
func (r RawRecord) Text(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	return stringify(v), true
}

// Record is the display tuple of an ata that still accepts adhesions.
type Record struct {
	AtaNumber     string
	ManagingUnit  string
	Supplier      string
	ControlNumber string
	DocumentURL   string
}

// Key is the deduplication key: the raw PNCP control number.
func (r Record) Key() string {
	return r.ControlNumber
}

// Normalize maps a raw record into its display tuple. Records whose
// maximoAdesao is zero or absent are not eligible and report false.
func Normalize(raw RawRecord) (Record, bool) {
	if zeroAdhesion(raw) {
		return Record{}, false
	}

	rec := Record{
		AtaNumber:     textOr(raw, FieldAtaNumber, MissingAtaNumber),
		ManagingUnit:  textOr(raw, FieldManagingUnit, MissingManagingUnit),
		Supplier:      textOr(raw, FieldSupplier, MissingSupplier),
		ControlNumber: textOr(raw, FieldControlNumber, ""),
	}
	rec.DocumentURL = BuildDocumentURL(rec.ControlNumber)
	return rec, true
}

// ParseRemainingPages reads paginasRestantes. Missing, non-numeric and
// negative values count as zero.
func ParseRemainingPages(raw any) int {
	var n int64
	switch v := raw.(type) {
	case nil:
		return 0
	case json.Number:
		if i, err := v.Int64(); err == nil {
			n = i
		} else if f, err := v.Float64(); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			n = int64(f)
		}
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0
		}
		n = i
	case float64:
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			n = int64(v)
		}
	case int:
		n = int64(v)
	case int64:
		n = v
	}
	if n < 0 || n > math.MaxInt32 {
		return 0
	}
	return int(n)
}

func textOr(raw RawRecord, key, fallback string) string {
	if s, ok := raw.Text(key); ok {
		return s
	}
	return fallback
}

// zeroAdhesion reports whether maximoAdesao is absent or numerically zero.
// Only numbers and booleans compare equal to zero; null, strings and other
// values leave the record eligible.
func zeroAdhesion(raw RawRecord) bool {
	v, ok := raw[FieldMaxAdhesion]
	if !ok {
		return true
	}
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return err == nil && f == 0
	case float64:
		return n == 0
	case int:
		return n == 0
	case int64:
		return n == 0
	case bool:
		return !n
	default:
		return false
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(v)
	}
}
