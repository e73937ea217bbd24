// Package ata models price registration records (atas de registro de preços)
// returned by the Compras.gov.br ARP API and the queries used to fetch them.
package ata

import (
	"fmt"
	"strings"
	"time"
)

// ItemKind selects which catalog an item code belongs to.
type ItemKind string

const (
	// KindMaterial is an item from the material catalog (PDM code).
	KindMaterial ItemKind = "Material"

	// KindService is an item from the service catalog.
	KindService ItemKind = "Serviço"
)

// DateLayout is the layout the ARP API expects for date parameters.
const DateLayout = "2006-01-02"

// ParseItemKind accepts the display names and a few ASCII spellings.
func ParseItemKind(s string) (ItemKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "material", "materiais":
		return KindMaterial, nil
	case "serviço", "servico", "serviços", "servicos", "service":
		return KindService, nil
	default:
		return "", fmt.Errorf("unknown item kind %q", s)
	}
}

// CodeParam returns the query parameter name carrying the item code.
func (k ItemKind) CodeParam() string {
	if k == KindMaterial {
		return "codigoPdm"
	}
	return "codigoItem"
}

// Query describes one search against the ARP API. It is immutable once built.
type Query struct {
	Kind     ItemKind
	Code     string
	Start    time.Time
	End      time.Time
	PageSize int
}

// String renders the query for logs.
func (q Query) String() string {
	return fmt.Sprintf("%s=%s [%s..%s] size=%d",
		q.Kind.CodeParam(), q.Code, q.Start.Format(DateLayout), q.End.Format(DateLayout), q.PageSize)
}
