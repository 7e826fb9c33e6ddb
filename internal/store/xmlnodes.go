// =============================================================================
// FILE: internal/store/xmlnodes.go
// PURPOSE: Per-kind XML decoders for upstream API results. Implements the
//          §9 Design Notes redesign: rather than the source's runtime
//          hasattr/getattr field shuttling (original_source/server/
//          database.py GBEntity.from_api_result), each entity kind gets a
//          statically-typed decode target and a dedicated unwrap function.
//          Cross-kind references (video -> image/show/category) are
//          resolved through MergeVideo's direct use of the nested node,
//          not a reflection-based registry, since the only entity with
//          nested references is Video.
// =============================================================================

package store

import "encoding/xml"

// imageNode is the wire shape of a <image> element.
type imageNode struct {
	IconURL        string `xml:"icon_url"`
	MediumURL      string `xml:"medium_url"`
	OriginalURL    string `xml:"original_url"`
	ScreenURL      string `xml:"screen_url"`
	ScreenLargeURL string `xml:"screen_large_url"`
	SmallURL       string `xml:"small_url"`
	SuperURL       string `xml:"super_url"`
	ThumbURL       string `xml:"thumb_url"`
	TinyURL        string `xml:"tiny_url"`
	ImageTags      string `xml:"image_tags"`
}

// empty reports whether every URL field is blank (original_source's
// GBEntity.from_api_result treats a fully-empty nested record as absent).
func (n imageNode) empty() bool {
	return n.IconURL == "" && n.MediumURL == "" && n.OriginalURL == "" &&
		n.ScreenURL == "" && n.ScreenLargeURL == "" && n.SmallURL == "" &&
		n.SuperURL == "" && n.ThumbURL == "" && n.TinyURL == ""
}

// videoShowNode is the wire shape of a <video_show> association.
type videoShowNode struct {
	ID            int64  `xml:"id"`
	Title         string `xml:"title"`
	Deck          string `xml:"deck"`
	LogoURL       string `xml:"logo"`
	SiteDetailURL string `xml:"site_detail_url"`
}

// videoCategoryNode is the wire shape of a <video_category> association.
type videoCategoryNode struct {
	ID            int64  `xml:"id"`
	Name          string `xml:"name"`
	Deck          string `xml:"deck"`
	SiteDetailURL string `xml:"site_detail_url"`
}

// videoNode is the wire shape of a <video> element.
type videoNode struct {
	ID            int64             `xml:"id"`
	Name          string            `xml:"name"`
	Deck          string            `xml:"deck"`
	PublishDate   string            `xml:"publish_date"`
	HDURL         string            `xml:"hd_url"`
	HighURL       string            `xml:"high_url"`
	LowURL        string            `xml:"low_url"`
	SiteDetailURL string            `xml:"site_detail_url"`
	Image         imageNode         `xml:"image"`
	Show          videoShowNode     `xml:"video_show"`
	Category      videoCategoryNode `xml:"video_category"`
}

type videoListResults struct {
	Items []videoNode `xml:"video"`
}

type videoSingleResult struct {
	Item videoNode `xml:"video"`
}

// DecodeVideoList decodes the raw inner XML of a <results> element holding
// zero or more <video> children (a paginated collection response).
func DecodeVideoList(raw []byte) ([]videoNode, error) {
	wrapped := wrapResults(raw)
	var r videoListResults
	if err := xml.Unmarshal(wrapped, &r); err != nil {
		return nil, err
	}
	return r.Items, nil
}

// DecodeVideoSingle decodes the raw inner XML of a <results> element
// holding exactly one <video> child (a single-item GET response).
func DecodeVideoSingle(raw []byte) (videoNode, error) {
	wrapped := wrapResults(raw)
	var r videoSingleResult
	if err := xml.Unmarshal(wrapped, &r); err != nil {
		return videoNode{}, err
	}
	return r.Item, nil
}

func wrapResults(raw []byte) []byte {
	out := make([]byte, 0, len(raw)+20)
	out = append(out, []byte("<results>")...)
	out = append(out, raw...)
	out = append(out, []byte("</results>")...)
	return out
}
