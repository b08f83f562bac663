package geocore

import (
	"context"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

const eventsPath = "/events"

// Event is a time-bounded happening, usually tied to places.
type Event struct {
	Taggable
	TimeStart *time.Time
	TimeEnd   *time.Time
}

// DecodeEvent decodes an event.
func DecodeEvent(r gjson.Result) *Event {
	e := &Event{
		TimeStart: optTime(r.Get("timeStart")),
		TimeEnd:   optTime(r.Get("timeEnd")),
	}
	e.Taggable.decode(r)
	return e
}

func (e *Event) ToMap() map[string]any {
	m := e.Object.ToMap()
	putTime(m, "timeStart", e.TimeStart)
	putTime(m, "timeEnd", e.TimeEnd)
	return m
}

// CurrentlyOpen reports whether now falls inside the event's time span.
// Events without both bounds are never open.
func (e *Event) CurrentlyOpen(now time.Time) bool {
	if e.TimeStart == nil || e.TimeEnd == nil {
		return false
	}
	return !now.Before(*e.TimeStart) && !now.After(*e.TimeEnd)
}

// EventQuery selects events.
type EventQuery struct {
	ObjectQuery
	Tags   TagFilter
	Center *Point
}

// Params compiles the query parameters.
func (q EventQuery) Params() url.Values {
	v := url.Values{}
	q.ObjectQuery.addParams(v)
	q.Tags.addParams(v)
	return v
}

// EventService reaches /events.
type EventService service

// Get fetches the event q.ID.
func (s *EventService) Get(ctx context.Context, q EventQuery) (*Event, error) {
	return get(ctx, s.client, eventsPath, q.ObjectQuery, q.Params(), DecodeEvent)
}

// List lists events.
func (s *EventService) List(ctx context.Context, q EventQuery) ([]*Event, error) {
	return list(ctx, s.client, q.Path(eventsPath), q.Params(), DecodeEvent)
}

// Save creates or updates e, applying any queued tag edit.
func (s *EventService) Save(ctx context.Context, e *Event) (*Event, error) {
	out, err := save(ctx, s.client, eventsPath, e, e.saveParams(), DecodeEvent)
	if err == nil {
		e.pending = TagEdit{}
	}
	return out, err
}

// Delete removes the event id.
func (s *EventService) Delete(ctx context.Context, id string) (*Event, error) {
	return remove(ctx, s.client, eventsPath, id, DecodeEvent)
}

// Places lists the places hosting event id.
func (s *EventService) Places(ctx context.Context, id string) ([]*Place, error) {
	path, err := ObjectQuery{ID: id}.SubPath(eventsPath, "/places")
	if err != nil {
		return nil, err
	}
	return list(ctx, s.client, path, nil, DecodePlace)
}

// Tags lists the tags of event id.
func (s *EventService) Tags(ctx context.Context, id string) ([]*Tag, error) {
	path, err := ObjectQuery{ID: id}.SubPath(eventsPath, "/tags")
	if err != nil {
		return nil, err
	}
	return list(ctx, s.client, path, nil, DecodeTag)
}

// PlaceRelationships lists the place-event records of event id.
func (s *EventService) PlaceRelationships(ctx context.Context, id string) ([]*PlaceEvent, error) {
	path, err := ObjectQuery{ID: id}.SubPath(eventsPath, "/places/relationships")
	if err != nil {
		return nil, err
	}
	return list(ctx, s.client, path, nil, DecodePlaceEvent)
}

// Nearest returns the events closest to q.Center.
func (s *EventService) Nearest(ctx context.Context, q EventQuery) ([]*Event, error) {
	if q.Center == nil {
		return nil, errInvalidParameter("expecting center lat-lon")
	}
	params := q.Params()
	params.Set("lat", formatFloat(q.Center.Latitude))
	params.Set("lon", formatFloat(q.Center.Longitude))
	return list(ctx, s.client, eventsPath+"/search/nearest", params, DecodeEvent)
}
