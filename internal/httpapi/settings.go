// =============================================================================
// FILE: internal/httpapi/settings.go
// PURPOSE: /api/settings/{get-all,modify}. Grounded on original_source's
//          server/app/settings.py. Prefers the nested-address YAML
//          config (d.Config) when the application wired one in;
//          otherwise falls back to the store's flat key/value settings
//          table, so this package stays usable before internal/config
//          is wired.
// =============================================================================

package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"gbmm/internal/store"
)

func (d *Deps) getAllSettings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) *apiError {
	if d.Config != nil {
		return writeJSON(w, d.Config.DumpAll())
	}

	var all map[string]string
	if aerr := withSession(r.Context(), d.DB, func(s *store.Session) error {
		var err error
		all, err = store.AllSettings(r.Context(), s)
		return err
	}); aerr != nil {
		return aerr
	}
	return writeJSON(w, all)
}

type settingEntry struct {
	Address string `json:"address"`
	Value   any    `json:"value"`
}

type modifySettingsRequest struct {
	Settings []settingEntry `json:"settings"`
}

func (d *Deps) modifySettings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) *apiError {
	var req modifySettingsRequest
	if aerr := decodeJSON(r, &req); aerr != nil {
		return aerr
	}

	applied := make([]settingEntry, 0, len(req.Settings))

	if d.Config != nil {
		for _, e := range req.Settings {
			newVal, err := d.Config.Modify(e.Address, e.Value)
			if err != nil {
				return badRequest(err.Error())
			}
			applied = append(applied, settingEntry{Address: e.Address, Value: newVal})
		}
		return writeJSON(w, map[string]any{"settings": applied})
	}

	if aerr := withSession(r.Context(), d.DB, func(s *store.Session) error {
		for _, e := range req.Settings {
			strVal, _ := e.Value.(string)
			if err := store.SetSetting(r.Context(), s, e.Address, strVal); err != nil {
				return err
			}
			applied = append(applied, e)
		}
		return nil
	}); aerr != nil {
		return aerr
	}

	return writeJSON(w, map[string]any{"settings": applied})
}
