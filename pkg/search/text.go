package search

import (
	"fmt"
	"io"

	"github.com/Sternrassler/buscador-adesoes/pkg/ata"
)

// TextPresenter writes records and status lines to a terminal.
type TextPresenter struct {
	Out io.Writer
	// Verbose also prints in-progress updates.
	Verbose bool
}

// Record prints one ata as a two-line entry.
func (t *TextPresenter) Record(rec ata.Record) {
	fmt.Fprintf(t.Out, "Ata %s • %s\n", rec.AtaNumber, rec.ManagingUnit)
	if rec.DocumentURL == "" {
		fmt.Fprintf(t.Out, "  Documento indisponível – %s\n", rec.Supplier)
		return
	}
	fmt.Fprintf(t.Out, "  Visualizar documento – %s: %s\n", rec.Supplier, rec.DocumentURL)
}

// Status prints status updates; progress only in verbose mode.
func (t *TextPresenter) Status(st Status) {
	switch st.Kind {
	case StatusInProgress:
		if !t.Verbose {
			return
		}
		fmt.Fprintf(t.Out, "… %s\n", st.Message)
	case StatusWarning:
		fmt.Fprintf(t.Out, "! %s\n", st.Message)
	case StatusFailure:
		fmt.Fprintf(t.Out, "✗ %s\n", st.Message)
	default:
		fmt.Fprintf(t.Out, "✓ %s\n", st.Message)
	}
}
