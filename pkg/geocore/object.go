package geocore

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

const objectsPath = "/objs"

// pathSeg escapes an id or key for use as one URL path segment.
func pathSeg(s string) string { return url.PathEscape(s) }

// Object holds the fields shared by every server record. Nil pointers are
// unset and never serialized.
type Object struct {
	SID         *int64
	ID          *string
	Name        *string
	Description *string
	// Server-assigned and read-only.
	CreateTime *time.Time
	UpdateTime *time.Time
	Upvotes    *int64
	Downvotes  *int64

	CustomData map[string]string
	// JSONData is an opaque JSON document passed through unchanged.
	JSONData string
}

// DecodeObject decodes a plain object.
func DecodeObject(r gjson.Result) *Object {
	o := &Object{}
	o.decode(r)
	return o
}

func (o *Object) decode(r gjson.Result) {
	o.SID = optInt64(r.Get("sid"))
	o.ID = optString(r.Get("id"))
	o.Name = optString(r.Get("name"))
	o.Description = optString(r.Get("description"))
	o.CreateTime = optTime(r.Get("createTime"))
	o.UpdateTime = optTime(r.Get("updateTime"))
	o.Upvotes = optInt64(r.Get("upvotes"))
	o.Downvotes = optInt64(r.Get("downvotes"))
	o.CustomData = decodeStringMap(r.Get("customData"))
	if j := r.Get("jsonData"); j.Exists() && j.Type != gjson.Null {
		o.JSONData = j.Raw
	}
}

// Base returns o.
func (o *Object) Base() *Object { return o }

// ToMap serializes the writable fields that are set. Read-only server
// fields are left out.
func (o *Object) ToMap() map[string]any {
	m := make(map[string]any)
	if o.SID != nil {
		m["sid"] = *o.SID
	}
	putString(m, "id", o.ID)
	putString(m, "name", o.Name)
	putString(m, "description", o.Description)
	if o.CustomData != nil {
		m["customData"] = copyStringMap(o.CustomData)
	}
	if o.JSONData != "" {
		m["jsonData"] = o.JSONData
	}
	return m
}

// SetCustomData sets key to value.
func (o *Object) SetCustomData(key, value string) {
	if o.CustomData == nil {
		o.CustomData = make(map[string]string)
	}
	o.CustomData[key] = value
}

// CustomValue returns the custom data stored under key.
func (o *Object) CustomValue(key string) (string, bool) {
	v, ok := o.CustomData[key]
	return v, ok
}

// UpdateCustomData sets key to value and reports whether anything
// changed. A nil value leaves the data untouched.
func (o *Object) UpdateCustomData(key string, value *string) bool {
	if value == nil {
		return false
	}
	if cur, ok := o.CustomData[key]; ok && cur == *value {
		return false
	}
	o.SetCustomData(key, *value)
	return true
}

// ObjectQuery holds the filters common to every collection.
type ObjectQuery struct {
	ID   string
	Name string
	// UpdatedAfter sends from_date when non-zero.
	UpdatedAfter time.Time
	Page         int
	PerPage      int
	// Unlimited asks for every record and overrides Page and PerPage.
	Unlimited       bool
	RecentlyCreated bool
	RecentlyUpdated bool
	// EventsNotEndedBy keeps objects tied to an event that has not ended at
	// that instant. Pass time.Now() for "currently running".
	EventsNotEndedBy time.Time
}

// Path compiles the collection path, or the record path once ID is set.
func (q ObjectQuery) Path(service string) string {
	if q.ID == "" {
		return service
	}
	return service + "/" + pathSeg(q.ID)
}

// SubPath compiles service/ID/sub. sub must start with a slash.
func (q ObjectQuery) SubPath(service, sub string) (string, error) {
	if q.ID == "" {
		return "", errInvalidParameter("expecting id")
	}
	return service + "/" + pathSeg(q.ID) + sub, nil
}

// Params compiles the query parameters.
func (q ObjectQuery) Params() url.Values {
	v := url.Values{}
	q.addParams(v)
	return v
}

func (q ObjectQuery) addParams(v url.Values) {
	if q.Unlimited {
		v.Set("num", "0")
	} else {
		if q.Page > 0 {
			v.Set("page", strconv.Itoa(q.Page))
		}
		if q.PerPage > 0 {
			v.Set("num", strconv.Itoa(q.PerPage))
		}
	}
	if q.Name != "" {
		v.Set("name", q.Name)
	}
	if !q.UpdatedAfter.IsZero() {
		v.Set("from_date", FormatTime(q.UpdatedAfter))
	}
	if q.RecentlyCreated {
		v.Set("recent_created", "true")
	}
	if q.RecentlyUpdated {
		v.Set("recent_updated", "true")
	}
	if !q.EventsNotEndedBy.IsZero() {
		v.Set("bf_ev_end", FormatTime(q.EventsNotEndedBy))
	}
}

func (q ObjectQuery) requireID() error {
	if q.ID == "" {
		return errInvalidParameter("expecting id")
	}
	return nil
}

// ObjectService reaches the generic /objs endpoints.
type ObjectService service

// Get fetches any record by id and decodes it into the type its id
// prefix names.
func (s *ObjectService) Get(ctx context.Context, id string) (Entity, error) {
	q := ObjectQuery{ID: id}
	if err := q.requireID(); err != nil {
		return nil, err
	}
	return requestOne(ctx, s.client, Request{Method: http.MethodGet, Path: q.Path(objectsPath)}, DecodeEntity)
}

// List lists generic objects.
func (s *ObjectService) List(ctx context.Context, q ObjectQuery) ([]*Object, error) {
	return requestMany(ctx, s.client, Request{Method: http.MethodGet, Path: q.Path(objectsPath), Params: q.Params()}, DecodeObject)
}

// Save creates or updates a generic object.
func (s *ObjectService) Save(ctx context.Context, o *Object) (*Object, error) {
	return save(ctx, s.client, objectsPath, o, nil, DecodeObject)
}

// Delete removes a generic object.
func (s *ObjectService) Delete(ctx context.Context, id string) (*Object, error) {
	return remove(ctx, s.client, objectsPath, id, DecodeObject)
}

// DeleteCustomData removes one custom data key from any record.
func (s *ObjectService) DeleteCustomData(ctx context.Context, id, key string) (*Object, error) {
	if id == "" || key == "" {
		return nil, errInvalidParameter("expecting id, custom data key")
	}
	path := objectsPath + "/" + pathSeg(id) + "/customData/" + pathSeg(key)
	return requestOne(ctx, s.client, Request{Method: http.MethodDelete, Path: path}, DecodeObject)
}

// LastUpdate returns when anything in service last changed.
func (s *ObjectService) LastUpdate(ctx context.Context, service string) (time.Time, error) {
	res, err := s.client.Do(ctx, Request{Method: http.MethodGet, Path: service + "/lastUpdate"})
	if err != nil {
		return time.Time{}, err
	}
	raw := res.Get("lastUpdate")
	if raw.Type != gjson.String {
		return time.Time{}, errUnexpectedResponse("lastUpdate missing from response")
	}
	t, ok := ParseTime(raw.Str)
	if !ok {
		return time.Time{}, errUnexpectedResponse("unparseable lastUpdate " + strconv.Quote(raw.Str))
	}
	return t, nil
}

// save posts e to service, or to service/sid when e already has a server
// id.
func save[T Entity](ctx context.Context, c *Client, service string, e T, params url.Values, dec Decoder[T]) (T, error) {
	path := service
	if sid := e.Base().SID; sid != nil {
		path = service + "/" + strconv.FormatInt(*sid, 10)
	}
	return requestOne(ctx, c, Request{Method: http.MethodPost, Path: path, Params: params, Body: e.ToMap()}, dec)
}

func remove[T any](ctx context.Context, c *Client, service, id string, dec Decoder[T]) (T, error) {
	if id == "" {
		var zero T
		return zero, errInvalidParameter("unsaved object cannot be deleted")
	}
	return requestOne(ctx, c, Request{Method: http.MethodDelete, Path: service + "/" + pathSeg(id)}, dec)
}

func get[T any](ctx context.Context, c *Client, service string, q ObjectQuery, params url.Values, dec Decoder[T]) (T, error) {
	if err := q.requireID(); err != nil {
		var zero T
		return zero, err
	}
	return requestOne(ctx, c, Request{Method: http.MethodGet, Path: q.Path(service), Params: params}, dec)
}

func list[T any](ctx context.Context, c *Client, path string, params url.Values, dec Decoder[T]) ([]T, error) {
	return requestMany(ctx, c, Request{Method: http.MethodGet, Path: path, Params: params}, dec)
}
