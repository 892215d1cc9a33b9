package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sweeney/okay-to-wake/internal/ingest"
)

// IngestResponse is the body of a successful schedule upload.
type IngestResponse struct {
	Changed  bool   `json:"changed"`
	Checksum string `json:"checksum"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newIngestResponse(res ingest.Result) IngestResponse {
	return IngestResponse{
		Changed:  res.Changed,
		Checksum: fmt.Sprintf("%08x", res.Checksum),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, ErrorResponse{Error: err.Error()})
}
