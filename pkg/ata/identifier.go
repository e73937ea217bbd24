package ata

import (
	"fmt"
	"strings"
)

// DocumentURLTemplate is the PNCP file endpoint for an ata.
const DocumentURLTemplate = "https://pncp.gov.br/pncp-api/v1/orgaos/%s/compras/%s/%s/atas/%s/arquivos/%s"

// Identifier holds the parts of a PNCP control number (numeroControlePncpAta)
// needed to address the ata document.
type Identifier struct {
	Org      string
	Purchase string
	Year     string
	Ata      string
	File     string
}

// ParseIdentifier splits a control number such as
// "00394452000103-1-000045/2023-000002". The second return value is false
// when the string lacks the "-" or "/" segments; it never panics.
func ParseIdentifier(s string) (Identifier, bool) {
	dash := strings.Split(s, "-")
	if len(dash) < 3 {
		return Identifier{}, false
	}
	slash := strings.Split(s, "/")
	if len(slash) < 2 {
		return Identifier{}, false
	}

	year, _, _ := strings.Cut(dash[2], "/")
	ata, _, _ := strings.Cut(dash[len(dash)-1], "/")
	purchase, _, _ := strings.Cut(slash[1], "-")

	return Identifier{
		Org:      dash[0],
		Purchase: purchase,
		Year:     trimZeros(year),
		Ata:      trimZeros(ata),
		File:     dash[1],
	}, true
}

// URL composes the document address.
func (id Identifier) URL() string {
	return fmt.Sprintf(DocumentURLTemplate, id.Org, id.Purchase, id.Year, id.Ata, id.File)
}

// BuildDocumentURL returns the document URL for a control number, or "" when
// the control number cannot be parsed.
func BuildDocumentURL(identifier string) string {
	id, ok := ParseIdentifier(identifier)
	if !ok {
		return ""
	}
	return id.URL()
}

func trimZeros(s string) string {
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "0"
	}
	return s
}
