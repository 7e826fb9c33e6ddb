// =============================================================================
// FILE: internal/httpapi/downloads.go
// PURPOSE: /api/downloads/{get,get-one,enqueue}. Grounded on
//          original_source's server/app/downloads.py.
// =============================================================================

package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"gbmm/internal/model"
	"gbmm/internal/store"
)

type listDownloadsRequest struct {
	ObjItemName string `json:"obj_item_name"`
	ObjID       *int64 `json:"obj_id"`
	Status      *int   `json:"status"`
	Limit       int    `json:"limit"`
	Page        int    `json:"page"`
}

func (req listDownloadsRequest) limitAndOffset() (limit, offset int) {
	limit = 20
	if req.Limit > 0 {
		limit = req.Limit
	}
	page := 1
	if req.Page > 0 {
		page = req.Page
	}
	return limit, page*limit - limit
}

func (d *Deps) listDownloads(w http.ResponseWriter, r *http.Request, _ httprouter.Params) *apiError {
	var req listDownloadsRequest
	if aerr := decodeJSON(r, &req); aerr != nil {
		return aerr
	}

	var status *model.DownloadStatus
	if req.Status != nil {
		s := model.DownloadStatus(*req.Status)
		status = &s
	}
	limit, offset := req.limitAndOffset()

	var results []*model.Download
	if aerr := withSession(r.Context(), d.DB, func(s *store.Session) error {
		var err error
		results, err = store.ListDownloads(r.Context(), s, req.ObjItemName, req.ObjID, status, limit, offset)
		return err
	}); aerr != nil {
		return aerr
	}

	return writeJSON(w, map[string]any{"results": results})
}

func (d *Deps) getOneDownload(w http.ResponseWriter, r *http.Request, _ httprouter.Params) *apiError {
	var req listDownloadsRequest
	if aerr := decodeJSON(r, &req); aerr != nil {
		return aerr
	}

	var status *model.DownloadStatus
	if req.Status != nil {
		s := model.DownloadStatus(*req.Status)
		status = &s
	}

	var results []*model.Download
	if aerr := withSession(r.Context(), d.DB, func(s *store.Session) error {
		var err error
		results, err = store.ListDownloads(r.Context(), s, req.ObjItemName, req.ObjID, status, 1, 0)
		return err
	}); aerr != nil {
		return aerr
	}

	if len(results) == 0 {
		return writeJSON(w, nil)
	}
	return writeJSON(w, results[0])
}

type enqueueRequest struct {
	ObjItemName string `json:"obj_item_name"`
	ObjID       int64  `json:"obj_id"`
}

// enqueueDownload implements /api/downloads/enqueue. Per
// DownloadRequestData.validate_object_type, "video" is the only
// supported kind — enqueuing a video composes the best-quality playback
// download plus every present image field (EnqueueVideoWithImages).
func (d *Deps) enqueueDownload(w http.ResponseWriter, r *http.Request, _ httprouter.Params) *apiError {
	var req enqueueRequest
	if aerr := decodeJSON(r, &req); aerr != nil {
		return aerr
	}
	if req.ObjItemName != "video" {
		return badRequest("unsupported object type")
	}

	dl, err := d.Downloader.EnqueueVideoWithImages(r.Context(), req.ObjID)
	if err != nil {
		return badRequest(err.Error())
	}
	return writeJSON(w, dl)
}
