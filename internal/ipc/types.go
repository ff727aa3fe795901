package ipc

import (
	"reawwise/internal/importer"
	"reawwise/internal/preview"
)

// StatusRequest fetches watch status.
type StatusRequest struct{}

// StatusResponse describes the watch process and its connection.
type StatusResponse struct {
	Running     bool   `json:"running"`
	PID         int    `json:"pid"`
	State       string `json:"state"`
	Address     string `json:"address"`
	Version     string `json:"version"`
	Project     string `json:"project"`
	LastError   string `json:"last_error,omitempty"`
	Importing   bool   `json:"importing"`
	LockPath    string `json:"lock_path"`
	StateDBPath string `json:"state_db_path"`
	HistoryPath string `json:"history_path"`
}

// PreviewRequest asks for the current preview. Refresh forces a new
// computation even when a cached result exists.
type PreviewRequest struct {
	Refresh bool `json:"refresh"`
}

// PreviewResponse carries a flattened preview tree and the settings it was
// computed from.
type PreviewResponse struct {
	Session        string        `json:"session"`
	Destination    string        `json:"destination"`
	ConflictPolicy string        `json:"conflict_policy"`
	Issues         []string      `json:"issues,omitempty"`
	Items          int           `json:"items"`
	Hash           string        `json:"hash"`
	Rows           []preview.Row `json:"rows"`
}

// ConfirmationRequest asks what a transfer would render.
type ConfirmationRequest struct{}

// ConfirmationResponse lists the render targets of the next transfer.
type ConfirmationResponse struct {
	Session     string   `json:"session"`
	Destination string   `json:"destination"`
	Targets     []string `json:"targets"`
}

// TransferRequest runs a transfer without further confirmation.
type TransferRequest struct{}

// TransferResponse carries the import summary. A failed run reports Error
// in the response so that a partial Summary still reaches the client.
type TransferResponse struct {
	Summary *importer.Summary `json:"summary"`
	Error   string            `json:"error,omitempty"`
}
