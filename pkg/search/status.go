package search

import "fmt"

// StatusKind classifies a user-visible status update.
type StatusKind string

const (
	StatusInProgress StatusKind = "in_progress"
	StatusWarning    StatusKind = "warning"
	StatusSuccess    StatusKind = "success"
	StatusEmpty      StatusKind = "empty"
	StatusFailure    StatusKind = "failure"
)

// User-facing messages.
const (
	MsgStarting    = "Consultando dados, por favor aguarde um momento…"
	MsgPageFailed  = "Falha ao carregar uma das páginas. Retentativa não disponível."
	MsgComplete    = "Busca concluída."
	MsgNoResults   = "Nenhum resultado encontrado para este critério."
	MsgUnavailable = "Não foi possível concluir a consulta agora, provavelmente por instabilidades no Compras.gov. Tente novamente em instantes."
	MsgNoItem      = "Selecione um item antes de iniciar a busca."
)

// Status is one update on the status channel.
type Status struct {
	Kind      StatusKind
	Message   string
	Processed int
	Total     int
}

func progressStatus(processed, total int) Status {
	return Status{
		Kind:      StatusInProgress,
		Message:   fmt.Sprintf("Processando páginas (%d/%d)…", processed, total),
		Processed: processed,
		Total:     total,
	}
}
