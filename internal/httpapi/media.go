// =============================================================================
// FILE: internal/httpapi/media.go
// PURPOSE: GET /media/video/:id/file — serves an already-downloaded
//          video's local file, picking whichever quality field was
//          actually downloaded in VideoFieldOrder preference. Range-
//          capable via net/http.ServeContent, the one place in this
//          codebase that honors a Range header (serving local files, not
//          resuming upstream fetches — see internal/downloader).
// =============================================================================

package httpapi

import (
	"database/sql"
	"net/http"
	"os"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"gbmm/internal/model"
	"gbmm/internal/store"
)

func (d *Deps) serveVideoFile(w http.ResponseWriter, r *http.Request, p httprouter.Params) *apiError {
	id, err := strconv.ParseInt(p.ByName("id"), 10, 64)
	if err != nil {
		return badRequest("invalid id")
	}

	var file *store.Row
	if aerr := withSession(r.Context(), d.DB, func(s *store.Session) error {
		for _, field := range model.VideoFieldOrder {
			f, err := store.GetFile(r.Context(), s, "video", id, field)
			if err == nil {
				file = f
				return nil
			}
			if err != sql.ErrNoRows {
				return err
			}
		}
		return nil
	}); aerr != nil {
		return aerr
	}

	if file == nil || file.Path == "" {
		return &apiError{Message: "not found", Status: http.StatusNotFound}
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return &apiError{Message: "not found", Status: http.StatusNotFound}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return serverError(err)
	}

	if file.ContentType != "" {
		w.Header().Set("Content-Type", file.ContentType)
	}
	http.ServeContent(w, r, file.Name, info.ModTime(), f)
	return nil
}
