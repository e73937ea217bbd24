package sphere

import (
	"encoding/json"
	"testing"

	"github.com/Sternrassler/buscador-adesoes/pkg/ata"
)

func TestIsFederal(t *testing.T) {
	table := Table{"12345": "F", "99999": "M"}

	tests := []struct {
		name string
		rec  ata.RawRecord
		want bool
	}{
		{name: "uasg federal", rec: ata.RawRecord{"uasg": "12345"}, want: true},
		{name: "codigoUG municipal", rec: ata.RawRecord{"codigoUG": "99999"}, want: false},
		{name: "no candidate field", rec: ata.RawRecord{"nomeUnidadeGerenciadora": "X"}, want: false},
		{name: "numeric code", rec: ata.RawRecord{"codigoUasg": json.Number("12345")}, want: true},
		{name: "unknown unit", rec: ata.RawRecord{"uasg": "55555"}, want: false},
		{name: "empty first candidate falls through", rec: ata.RawRecord{"uasg": "", "codigoUnidadeGestora": "12345"}, want: true},
		{name: "zero first candidate falls through", rec: ata.RawRecord{"uasg": json.Number("0"), "codigoUG": "12345"}, want: true},
		{name: "first non-empty wins", rec: ata.RawRecord{"uasg": "99999", "codigoUasg": "12345"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFederal(tt.rec, table); got != tt.want {
				t.Errorf("IsFederal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsFederal_NilTable(t *testing.T) {
	if IsFederal(ata.RawRecord{"uasg": "12345"}, nil) {
		t.Error("nil table should never report federal")
	}
}

func TestExtractUnitCode(t *testing.T) {
	code, ok := ExtractUnitCode(ata.RawRecord{"codigoUnidadeGerenciadora": json.Number("160089")})
	if !ok || code != "160089" {
		t.Errorf("ExtractUnitCode() = (%q, %v), want (160089, true)", code, ok)
	}

	if _, ok := ExtractUnitCode(ata.RawRecord{"uasg": nil}); ok {
		t.Error("null candidate should not be extracted")
	}
}
