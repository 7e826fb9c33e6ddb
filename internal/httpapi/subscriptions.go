// =============================================================================
// FILE: internal/httpapi/subscriptions.go
// PURPOSE: /api/subscriptions/{subscribe,:uuid/unsubscribe,:uuid/get,
//          :uuid/set-interests}. Grounded on original_source's
//          server/app/subscriptions.py.
// =============================================================================

package httpapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"gbmm/internal/messenger"
)

func (d *Deps) subscribe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) *apiError {
	s := d.Messenger.NewSubscriber()
	return writeJSON(w, map[string]string{"uuid": s.UUID.String()})
}

func parseSubscriberUUID(p httprouter.Params) (uuid.UUID, *apiError) {
	id, err := uuid.Parse(p.ByName("uuid"))
	if err != nil {
		return uuid.UUID{}, badRequest("invalid uuid")
	}
	return id, nil
}

func (d *Deps) unsubscribe(w http.ResponseWriter, r *http.Request, p httprouter.Params) *apiError {
	id, aerr := parseSubscriberUUID(p)
	if aerr != nil {
		return aerr
	}
	d.Messenger.RemoveSubscriber(id)
	return ok(w)
}

// receiveMessages implements :uuid/get. An unknown or expired subscriber
// is not an error — it reports subscription_valid: false with an empty
// message list, matching the original's SubscriberNotFoundException
// fallback.
func (d *Deps) receiveMessages(w http.ResponseWriter, r *http.Request, p httprouter.Params) *apiError {
	id, aerr := parseSubscriberUUID(p)
	if aerr != nil {
		return aerr
	}

	sub := d.Messenger.GetSubscriber(id)
	if sub == nil {
		return writeJSON(w, map[string]any{"subscription_valid": false, "messages": []messenger.Message{}})
	}

	msgs, err := d.Messenger.ReceiveAll(sub)
	if err == messenger.ErrSubscriberNotFound {
		return writeJSON(w, map[string]any{"subscription_valid": false, "messages": []messenger.Message{}})
	}
	if err != nil {
		return serverError(err)
	}

	return writeJSON(w, map[string]any{"subscription_valid": true, "messages": msgs})
}

type interestRequest struct {
	SubjectType string   `json:"subjectType"`
	EventTypes  []string `json:"eventTypes"`
}

type setInterestsRequest struct {
	Interests []interestRequest `json:"interests"`
}

func (d *Deps) setInterests(w http.ResponseWriter, r *http.Request, p httprouter.Params) *apiError {
	id, aerr := parseSubscriberUUID(p)
	if aerr != nil {
		return aerr
	}
	sub := d.Messenger.GetSubscriber(id)
	if sub == nil {
		return badRequest("unknown subscriber")
	}

	var req setInterestsRequest
	if aerr := decodeJSON(r, &req); aerr != nil {
		return aerr
	}

	all := messenger.AllEventTypes()
	names := map[string]messenger.EventType{}
	for et := range all {
		names[et.String()] = et
	}

	interests := make([]messenger.Interest, 0, len(req.Interests))
	for _, i := range req.Interests {
		evts := map[messenger.EventType]bool{}
		for _, name := range i.EventTypes {
			if et, ok := names[name]; ok {
				evts[et] = true
			}
		}
		interests = append(interests, messenger.Interest{
			SubjectType: messenger.SubjectType(i.SubjectType),
			EventTypes:  evts,
		})
	}
	sub.SetInterests(interests)

	return ok(w)
}
