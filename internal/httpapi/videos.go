// =============================================================================
// FILE: internal/httpapi/videos.go
// PURPOSE: /api/videos/{browse,get,get-one}. Grounded on original_source's
//          server/app/videos.py. browse() replaces the original's
//          flask.session-held cursor with an explicit client-held
//          "cursor" token (ToSessionJSON/FromSessionJSON) — the stateless
//          redesign a Go HTTP API calls for, since there is no server-
//          side session store here.
// =============================================================================

package httpapi

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"gbmm/internal/model"
	"gbmm/internal/requester"
	"gbmm/internal/resource"
	"gbmm/internal/store"
)

type browseVideosRequest struct {
	ID              any    `json:"id"`
	VideoShow       any    `json:"video_show"`
	VideoCategories any    `json:"video_categories"`
	Limit           int    `json:"limit"`
	Page            int    `json:"page"`
	SortField       string `json:"sort_field"`
	SortDirection   string `json:"sort_direction"`
	Cursor          string `json:"cursor"`
}

func asFilterValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, t != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case []any:
		var out string
		for i, item := range t {
			if i > 0 {
				out += ","
			}
			s, _ := asFilterValue(item)
			out += s
		}
		return out, out != ""
	default:
		return "", false
	}
}

// browseVideos implements /api/videos/browse. Each of "id", "video_show"
// and "video_categories" that is present is set as its own filter on the
// ResourceSelect; each absent one is cleared.
func (d *Deps) browseVideos(w http.ResponseWriter, r *http.Request, _ httprouter.Params) *apiError {
	var req browseVideosRequest
	if aerr := decodeJSON(r, &req); aerr != nil {
		return aerr
	}

	limit := 20
	if req.Limit > 0 && req.Limit <= 100 {
		limit = req.Limit
	}
	page := 1
	if req.Page > 0 {
		page = req.Page
	}
	sortField := "date"
	if req.SortField != "" {
		sortField = req.SortField
	}
	sortDir := resource.Descending
	if req.SortDirection == "asc" {
		sortDir = resource.Ascending
	}

	var sel *resource.ResourceSelect
	if req.Cursor != "" {
		var err error
		sel, err = resource.FromSessionJSON(d.Req, d.BaseURL, d.APIKeyField, d.APIKey, "/videos", req.Cursor)
		if err != nil {
			return badRequest("invalid cursor")
		}
	} else {
		sel = resource.New(d.Req, d.BaseURL, d.APIKeyField, d.APIKey, "videos", "/videos")
	}
	if d.RespCache != nil {
		sel.WithCache(d.RespCache)
	}
	sel.Priority(requester.High)
	sel.FieldList("id", "name", "deck", "image", "video_show", "video_categories", "hd_url", "high_url", "low_url", "site_detail_url", "publish_date")
	sel.Limit(limit)
	sel.Sort(sortField, sortDir)

	if val, ok := asFilterValue(req.ID); ok {
		sel.Filter("id", val)
	} else {
		sel.ClearFilter("id")
	}
	if val, ok := asFilterValue(req.VideoShow); ok {
		sel.Filter("video_show", val)
	} else {
		sel.ClearFilter("video_show")
	}
	if val, ok := asFilterValue(req.VideoCategories); ok {
		sel.Filter("video_categories", val)
	} else {
		sel.ClearFilter("video_categories")
	}

	raw, err := sel.Page(r.Context(), page)
	if err != nil {
		return serverError(err)
	}

	nodes, err := store.DecodeVideoList(raw)
	if err != nil {
		return serverError(err)
	}

	var videos []*model.Video
	downloadsByVideo := map[int64][]*model.Download{}
	if aerr := withSession(r.Context(), d.DB, func(s *store.Session) error {
		var err error
		videos, err = store.MergeVideoBatch(r.Context(), s, nodes)
		if err != nil {
			return err
		}
		for _, v := range videos {
			dls, err := store.ListDownloads(r.Context(), s, "video", &v.ID, nil, 1, 0)
			if err != nil {
				return err
			}
			downloadsByVideo[v.ID] = dls
		}
		return nil
	}); aerr != nil {
		return aerr
	}

	cursor, err := sel.ToSessionJSON()
	if err != nil {
		return serverError(err)
	}

	return writeJSON(w, map[string]any{
		"videos":    videos,
		"downloads": downloadsByVideo,
		"cursor":    cursor,
	})
}

type getVideosRequest struct {
	ID any `json:"id"`
}

// getVideos implements /api/videos/get: a single fresh, unpaginated
// lookup (optionally filtered by id), returning every matching video.
func (d *Deps) getVideos(w http.ResponseWriter, r *http.Request, _ httprouter.Params) *apiError {
	var req getVideosRequest
	if aerr := decodeJSON(r, &req); aerr != nil {
		return aerr
	}

	sel := resource.New(d.Req, d.BaseURL, d.APIKeyField, d.APIKey, "video", "/videos").Priority(requester.High)
	if val, ok := asFilterValue(req.ID); ok {
		sel.Filter("id", val)
	}

	raw, err := sel.Next(r.Context())
	if err != nil {
		return serverError(err)
	}

	nodes, err := store.DecodeVideoList(raw)
	if err != nil {
		return serverError(err)
	}

	var videos []*model.Video
	if aerr := withSession(r.Context(), d.DB, func(s *store.Session) error {
		var err error
		videos, err = store.MergeVideoBatch(r.Context(), s, nodes)
		return err
	}); aerr != nil {
		return aerr
	}

	return writeJSON(w, videos)
}

type getOneVideoRequest struct {
	ID any `json:"id"`
}

// getOneVideo implements /api/videos/get-one: id is required, matching
// the original's "Bad JSON." error when no video is found for it.
func (d *Deps) getOneVideo(w http.ResponseWriter, r *http.Request, _ httprouter.Params) *apiError {
	var req getOneVideoRequest
	if aerr := decodeJSON(r, &req); aerr != nil {
		return aerr
	}
	val, ok := asFilterValue(req.ID)
	if !ok {
		return badRequest("Bad JSON.")
	}

	sel := resource.New(d.Req, d.BaseURL, d.APIKeyField, d.APIKey, "video", "/videos").Priority(requester.High)
	sel.Filter("id", val)

	raw, err := sel.Next(r.Context())
	if err != nil {
		return serverError(err)
	}

	nodes, err := store.DecodeVideoList(raw)
	if err != nil {
		return serverError(err)
	}
	if len(nodes) == 0 {
		return badRequest("Bad JSON.")
	}

	var video *model.Video
	if aerr := withSession(r.Context(), d.DB, func(s *store.Session) error {
		merged, err := store.MergeVideoBatch(r.Context(), s, nodes[:1])
		if err != nil {
			return err
		}
		video = merged[0]
		return nil
	}); aerr != nil {
		return aerr
	}

	return writeJSON(w, video)
}
