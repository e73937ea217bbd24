package ata

import (
	"encoding/json"
	"fmt"
	"io"
)

// Page is one decoded page of ARP results.
type Page struct {
	Number         int
	Records        []RawRecord
	RemainingPages int
}

type pagePayload struct {
	Resultado        []RawRecord `json:"resultado"`
	PaginasRestantes any         `json:"paginasRestantes"`
}

// DecodePage parses an API response body.
func DecodePage(r io.Reader) (*Page, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var payload pagePayload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}

	return &Page{
		Records:        payload.Resultado,
		RemainingPages: ParseRemainingPages(payload.PaginasRestantes),
	}, nil
}
