package geocore

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/tidwall/gjson"
)

const placesPath = "/places"

// Place is a geographic location.
type Place struct {
	Taggable
	ShortName        *string
	ShortDescription *string
	Point            *Point
	DistanceLimit    *float64
	// Events is set when the server embedded them, or after
	// PlaceService.EventsOf fetched them.
	Events []*Event
}

// DecodePlace decodes a place.
func DecodePlace(r gjson.Result) *Place {
	p := &Place{}
	p.Taggable.decode(r)
	p.ShortName = optString(r.Get("shortName"))
	p.ShortDescription = optString(r.Get("shortDescription"))
	p.Point = DecodePoint(r.Get("point"))
	p.DistanceLimit = optFloat(r.Get("distanceLimit"))
	if events := r.Get("events"); events.IsArray() {
		p.Events = []*Event{}
		events.ForEach(func(_, v gjson.Result) bool {
			p.Events = append(p.Events, DecodeEvent(v))
			return true
		})
	}
	return p
}

func (p *Place) ToMap() map[string]any {
	m := p.Object.ToMap()
	putString(m, "shortName", p.ShortName)
	putString(m, "shortDescription", p.ShortDescription)
	if p.Point != nil {
		m["point"] = p.Point.ToMap()
	}
	if p.DistanceLimit != nil {
		m["distanceLimit"] = *p.DistanceLimit
	}
	return m
}

// Bounds is a latitude/longitude rectangle.
type Bounds struct {
	MinLatitude  float64
	MinLongitude float64
	MaxLatitude  float64
	MaxLongitude float64
}

// PlaceQuery selects places. Center, Radius and Rectangle feed the
// geospatial searches; each search checks for the fields it needs.
type PlaceQuery struct {
	ObjectQuery
	Tags TagFilter

	Center    *Point
	Radius    *float64
	Rectangle *Bounds

	Checkinable    bool
	ValidItemsOnly bool
	EventDetails   bool
}

// Params compiles the query parameters shared by every place call.
func (q PlaceQuery) Params() url.Values {
	v := url.Values{}
	q.ObjectQuery.addParams(v)
	q.Tags.addParams(v)
	if q.EventDetails {
		v.Set("event_detail", "true")
	}
	if q.Checkinable {
		v.Set("checkinable", "true")
	}
	return v
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (q PlaceQuery) centerParams() (url.Values, error) {
	if q.Center == nil {
		return nil, errInvalidParameter("expecting center lat-lon")
	}
	v := q.Params()
	v.Set("lat", formatFloat(q.Center.Latitude))
	v.Set("lon", formatFloat(q.Center.Longitude))
	return v, nil
}

func (q PlaceQuery) circleParams() (url.Values, error) {
	if q.Center == nil || q.Radius == nil {
		return nil, errInvalidParameter("expecting center lat-lon, radius")
	}
	v, _ := q.centerParams()
	v.Set("radius", formatFloat(*q.Radius))
	return v, nil
}

func (q PlaceQuery) rectangleParams() (url.Values, error) {
	if q.Rectangle == nil {
		return nil, errInvalidParameter("expecting min/max lat-lon")
	}
	v := q.Params()
	v.Set("min_lat", formatFloat(q.Rectangle.MinLatitude))
	v.Set("max_lat", formatFloat(q.Rectangle.MaxLatitude))
	v.Set("min_lon", formatFloat(q.Rectangle.MinLongitude))
	v.Set("max_lon", formatFloat(q.Rectangle.MaxLongitude))
	return v, nil
}

// SmallestBounds is the smallest rectangle containing the places around a
// point.
type SmallestBounds struct {
	MinLatitude  *float64
	MinLongitude *float64
	MaxLatitude  *float64
	MaxLongitude *float64
}

// DecodeSmallestBounds decodes a smallest-bounds result.
func DecodeSmallestBounds(r gjson.Result) *SmallestBounds {
	return &SmallestBounds{
		MinLatitude:  optFloat(r.Get("min_lat")),
		MinLongitude: optFloat(r.Get("min_lon")),
		MaxLatitude:  optFloat(r.Get("max_lat")),
		MaxLongitude: optFloat(r.Get("max_lon")),
	}
}

func (b *SmallestBounds) complete() bool {
	return b.MinLatitude != nil && b.MinLongitude != nil && b.MaxLatitude != nil && b.MaxLongitude != nil
}

// Center returns the middle of the bounds.
func (b *SmallestBounds) Center() (Point, bool) {
	if !b.complete() {
		return Point{}, false
	}
	return Point{
		Latitude:  (*b.MaxLatitude + *b.MinLatitude) / 2,
		Longitude: (*b.MaxLongitude + *b.MinLongitude) / 2,
	}, true
}

// Span returns the latitude and longitude extent.
func (b *SmallestBounds) Span() (latSpan, lonSpan float64, ok bool) {
	if !b.complete() {
		return 0, 0, false
	}
	return math.Abs(*b.MaxLatitude - *b.MinLatitude), math.Abs(*b.MaxLongitude - *b.MinLongitude), true
}

// Checkin records a user's presence at a place. All numbers travel as
// strings.
type Checkin struct {
	UserID    *string
	PlaceID   *string
	Timestamp *time.Time
	Latitude  *float64
	Longitude *float64
	Accuracy  *float64
}

// DecodeCheckin decodes a check-in. The timestamp is epoch milliseconds.
func DecodeCheckin(r gjson.Result) *Checkin {
	c := &Checkin{
		UserID:    optString(r.Get("userId")),
		PlaceID:   optString(r.Get("placeId")),
		Latitude:  optFloat(r.Get("latitude")),
		Longitude: optFloat(r.Get("longitude")),
		Accuracy:  optFloat(r.Get("accuracy")),
	}
	if ts := r.Get("timestamp"); ts.Exists() && ts.Type != gjson.Null {
		t := time.UnixMilli(ts.Int()).UTC()
		c.Timestamp = &t
	}
	return c
}

func (c *Checkin) ToMap() map[string]any {
	m := make(map[string]any)
	putString(m, "userId", c.UserID)
	putString(m, "placeId", c.PlaceID)
	if c.Timestamp != nil {
		m["timestamp"] = EpochMillis(*c.Timestamp)
	}
	if c.Latitude != nil && c.Longitude != nil {
		m["latitude"] = formatFloat(*c.Latitude)
		m["longitude"] = formatFloat(*c.Longitude)
	}
	if c.Accuracy != nil {
		m["accuracy"] = formatFloat(*c.Accuracy)
	}
	return m
}

// Validate checks the coordinate ranges.
func (c *Checkin) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PlaceID, validation.Required),
		validation.Field(&c.Latitude, validation.NotNil, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&c.Longitude, validation.NotNil, validation.Min(-180.0), validation.Max(180.0)),
	)
}

// PlaceService reaches /places.
type PlaceService service

// Get fetches the place q.ID.
func (s *PlaceService) Get(ctx context.Context, q PlaceQuery) (*Place, error) {
	return get(ctx, s.client, placesPath, q.ObjectQuery, q.Params(), DecodePlace)
}

// List lists places.
func (s *PlaceService) List(ctx context.Context, q PlaceQuery) ([]*Place, error) {
	return list(ctx, s.client, q.Path(placesPath), q.Params(), DecodePlace)
}

// Save creates or updates p, applying any queued tag edit.
func (s *PlaceService) Save(ctx context.Context, p *Place) (*Place, error) {
	out, err := save(ctx, s.client, placesPath, p, p.saveParams(), DecodePlace)
	if err == nil {
		p.pending = TagEdit{}
	}
	return out, err
}

// Delete removes the place id.
func (s *PlaceService) Delete(ctx context.Context, id string) (*Place, error) {
	return remove(ctx, s.client, placesPath, id, DecodePlace)
}

// Nearest returns the places closest to q.Center.
func (s *PlaceService) Nearest(ctx context.Context, q PlaceQuery) ([]*Place, error) {
	params, err := q.centerParams()
	if err != nil {
		return nil, err
	}
	return list(ctx, s.client, placesPath+"/search/nearest", params, DecodePlace)
}

// SmallestBounds returns the smallest rectangle around q.Center that
// contains places.
func (s *PlaceService) SmallestBounds(ctx context.Context, q PlaceQuery) (*SmallestBounds, error) {
	params, err := q.centerParams()
	if err != nil {
		return nil, err
	}
	return requestOne(ctx, s.client, Request{Method: http.MethodGet, Path: placesPath + "/search/smallestbounds", Params: params}, DecodeSmallestBounds)
}

// WithinCircle returns places inside the circle q.Center, q.Radius.
func (s *PlaceService) WithinCircle(ctx context.Context, q PlaceQuery) ([]*Place, error) {
	return s.circle(ctx, q, "/search/within/circle")
}

// IntersectsCircle returns places whose area meets the circle.
func (s *PlaceService) IntersectsCircle(ctx context.Context, q PlaceQuery) ([]*Place, error) {
	return s.circle(ctx, q, "/search/intersects/circle")
}

func (s *PlaceService) circle(ctx context.Context, q PlaceQuery, sub string) ([]*Place, error) {
	params, err := q.circleParams()
	if err != nil {
		return nil, err
	}
	return list(ctx, s.client, placesPath+sub, params, DecodePlace)
}

// WithinRectangle returns places inside q.Rectangle.
func (s *PlaceService) WithinRectangle(ctx context.Context, q PlaceQuery) ([]*Place, error) {
	return s.rectangle(ctx, q, "/search/within/rect")
}

// IntersectsRectangle returns places whose area meets q.Rectangle.
func (s *PlaceService) IntersectsRectangle(ctx context.Context, q PlaceQuery) ([]*Place, error) {
	return s.rectangle(ctx, q, "/search/intersects/rect")
}

func (s *PlaceService) rectangle(ctx context.Context, q PlaceQuery, sub string) ([]*Place, error) {
	params, err := q.rectangleParams()
	if err != nil {
		return nil, err
	}
	return list(ctx, s.client, placesPath+sub, params, DecodePlace)
}

// Events lists the events held at place id.
func (s *PlaceService) Events(ctx context.Context, id string) ([]*Event, error) {
	path, err := ObjectQuery{ID: id}.SubPath(placesPath, "/events")
	if err != nil {
		return nil, err
	}
	return list(ctx, s.client, path, nil, DecodeEvent)
}

// EventsOf returns p.Events, fetching and caching them on p when the
// server did not embed them.
func (s *PlaceService) EventsOf(ctx context.Context, p *Place) ([]*Event, error) {
	if p.Events != nil {
		return p.Events, nil
	}
	var id string
	if p.ID != nil {
		id = *p.ID
	}
	events, err := s.Events(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Events = events
	return events, nil
}

// EventRelationships lists the place-event records of place id.
func (s *PlaceService) EventRelationships(ctx context.Context, id string) ([]*PlaceEvent, error) {
	path, err := ObjectQuery{ID: id}.SubPath(placesPath, "/events/relationships")
	if err != nil {
		return nil, err
	}
	return list(ctx, s.client, path, nil, DecodePlaceEvent)
}

// Items lists the items offered at place q.ID.
func (s *PlaceService) Items(ctx context.Context, q PlaceQuery) ([]*Item, error) {
	path, err := q.SubPath(placesPath, "/items")
	if err != nil {
		return nil, err
	}
	params := q.Params()
	if q.ValidItemsOnly {
		params.Set("valid_only", "true")
	}
	return list(ctx, s.client, path, params, DecodeItem)
}

// Checkin records the logged-in user at place placeID. unrestricted skips
// the server's distance check.
func (s *PlaceService) Checkin(ctx context.Context, placeID string, at Point, unrestricted bool) (*Checkin, error) {
	ci := &Checkin{
		PlaceID:   String(placeID),
		Timestamp: Time(time.Now()),
		Latitude:  Float64(at.Latitude),
		Longitude: Float64(at.Longitude),
		Accuracy:  Float64(0),
	}
	if uid := s.client.UserID(); uid != "" {
		ci.UserID = String(uid)
	}
	if err := ci.Validate(); err != nil {
		return nil, &Error{Kind: KindInvalidParameter, Message: "checkin", Cause: err}
	}

	var params url.Values
	if unrestricted {
		params = url.Values{"unrestricted": {"true"}}
	}
	return requestOne(ctx, s.client, Request{
		Method: http.MethodPost,
		Path:   placesPath + "/" + pathSeg(placeID) + "/checkins",
		Params: params,
		Body:   ci.ToMap(),
	}, DecodeCheckin)
}
