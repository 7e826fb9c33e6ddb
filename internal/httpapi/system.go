// =============================================================================
// FILE: internal/httpapi/system.go
// PURPOSE: /api/system/{run-first-time-setup,update-index,get-indexer-state}.
//          Grounded on original_source's server/app/system.py.
// =============================================================================

package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"gbmm/internal/indexer"
	"gbmm/internal/job"
	"gbmm/internal/store"
)

// runFirstTimeSetup implements /api/system/run-first-time-setup: marks
// setup initiated, starts the full indexer (tolerating an exclusivity
// conflict if one is already running), and marks setup complete once the
// job has been accepted.
func (d *Deps) runFirstTimeSetup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) *apiError {
	if aerr := withSession(r.Context(), d.DB, func(s *store.Session) error {
		return store.SetFirstTimeSetup(r.Context(), s, true, false)
	}); aerr != nil {
		return aerr
	}

	if _, err := d.Manager.Start(r.Context(), indexer.TagFull); err != nil && err != job.ErrExclusivityConflict {
		return serverError(err)
	}

	if aerr := withSession(r.Context(), d.DB, func(s *store.Session) error {
		return store.SetFirstTimeSetup(r.Context(), s, true, true)
	}); aerr != nil {
		return aerr
	}

	return ok(w)
}

type updateIndexRequest struct {
	UpdateType string `json:"updateType"`
}

// updateIndex implements /api/system/update-index. A missing or empty
// body defaults to "quick", matching the original's optional json_data.
func (d *Deps) updateIndex(w http.ResponseWriter, r *http.Request, _ httprouter.Params) *apiError {
	var req updateIndexRequest
	if aerr := decodeJSONOptional(r, &req); aerr != nil {
		return aerr
	}

	tag := indexer.TagQuick
	if req.UpdateType == "full" {
		tag = indexer.TagFull
	}

	if _, err := d.Manager.Start(r.Context(), tag); err != nil && err != job.ErrExclusivityConflict {
		return serverError(err)
	}
	return ok(w)
}

// getIndexerState implements /api/system/get-indexer-state, reporting
// whichever of the full/quick indexer tags currently has an active job.
func (d *Deps) getIndexerState(w http.ResponseWriter, r *http.Request, _ httprouter.Params) *apiError {
	out := map[string]any{
		"active":               false,
		"uuid":                 nil,
		"type":                 nil,
		"state":                nil,
		"progress_current":     nil,
		"progress_denominator": nil,
	}

	kind := ""
	var uuidStr string
	if u, found := d.Manager.ActiveByTag(indexer.TagFull); found {
		uuidStr, kind = u, "full"
	} else if u, found := d.Manager.ActiveByTag(indexer.TagQuick); found {
		uuidStr, kind = u, "quick"
	}

	if kind != "" {
		rec, err := d.Manager.Get(r.Context(), uuidStr)
		if err != nil {
			return serverError(err)
		}
		out["active"] = true
		out["uuid"] = uuidStr
		out["type"] = kind
		out["state"] = rec.State.String()
		out["progress_current"] = rec.ProgressCurrent
		out["progress_denominator"] = rec.ProgressDenominator
	}

	return writeJSON(w, out)
}
