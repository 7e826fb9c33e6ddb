// =============================================================================
// FILE: internal/httpapi/definitions.go
// PURPOSE: GET /api/definitions/get — enum dictionaries for API consumers.
//          Grounded on original_source's server/app/definitions.py.
// =============================================================================

package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"gbmm/internal/model"
)

func (d *Deps) getDefinitions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) *apiError {
	return writeJSON(w, map[string]any{
		"download_statuses": map[string]int{
			model.DownloadQueued.String():     int(model.DownloadQueued),
			model.DownloadInProgress.String(): int(model.DownloadInProgress),
			model.DownloadPaused.String():     int(model.DownloadPaused),
			model.DownloadComplete.String():   int(model.DownloadComplete),
			model.DownloadCancelled.String():  int(model.DownloadCancelled),
			model.DownloadFailed.String():     int(model.DownloadFailed),
		},
	})
}
