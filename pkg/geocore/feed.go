package geocore

import (
	"context"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// Feed is an activity entry posted on an object.
type Feed struct {
	// ID is the object the entry belongs to.
	ID        string
	Type      string
	Timestamp *time.Time
	Content   map[string]any
}

// DecodeFeed decodes a feed entry. Non-string content values decode as
// empty strings.
func DecodeFeed(r gjson.Result) *Feed {
	f := &Feed{
		ID:   r.Get("id").String(),
		Type: r.Get("type").String(),
	}
	if ts := r.Get("timestamp"); ts.Type == gjson.Number {
		t := time.UnixMilli(ts.Int()).UTC()
		f.Timestamp = &t
	}
	if c := r.Get("objContent"); c.IsObject() {
		f.Content = make(map[string]any)
		c.ForEach(func(k, v gjson.Result) bool {
			if v.Type == gjson.String {
				f.Content[k.Str] = v.Str
			} else {
				f.Content[k.Str] = ""
			}
			return true
		})
	}
	return f
}

// ToMap returns a copy of the content, which is what gets posted.
func (f *Feed) ToMap() map[string]any {
	if f.Content == nil {
		return map[string]any{}
	}
	return maps.Clone(f.Content)
}

// ResolveType returns Type, or a type guessed from the id prefix when
// Type is empty. The guess is a heuristic and may be "".
func (f *Feed) ResolveType() string {
	if f.Type != "" {
		return f.Type
	}
	return string(EntityTypeOf(f.ID))
}

// FeedQuery selects the feed of object ObjectID. When both Start and End
// are set they bound the window; otherwise NotBefore, then Before, is
// used.
type FeedQuery struct {
	ObjectID  string
	Type      string
	Spec      string
	NotBefore time.Time
	Before    time.Time
	Start     time.Time
	End       time.Time
	Page      int
	PerPage   int
}

// Params compiles the query parameters.
func (q FeedQuery) Params() url.Values {
	v := url.Values{}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	if q.Spec != "" {
		v.Set("spec", q.Spec)
	}
	switch {
	case !q.Start.IsZero() && !q.End.IsZero():
		v.Set("from_timestamp", EpochMillis(q.Start))
		v.Set("to_timestamp", EpochMillis(q.End))
	case !q.NotBefore.IsZero():
		v.Set("from_timestamp", EpochMillis(q.NotBefore))
	case !q.Before.IsZero():
		v.Set("to_timestamp", EpochMillis(q.Before))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("num", strconv.Itoa(q.PerPage))
	}
	return v
}

// FeedService reads and posts object feeds.
type FeedService service

// Post appends f to the feed of object f.ID. spec optionally names the
// id specifier the entry targets.
func (s *FeedService) Post(ctx context.Context, f *Feed, spec string) (*Feed, error) {
	if f.ID == "" || f.Content == nil {
		return nil, errInvalidParameter("expecting id, content")
	}
	params := url.Values{}
	if t := f.ResolveType(); t != "" {
		params.Set("type", t)
	}
	if spec != "" {
		params.Set("spec", spec)
	}
	return requestOne(ctx, s.client, Request{
		Method: http.MethodPost,
		Path:   objectsPath + "/" + pathSeg(f.ID) + "/feed",
		Params: params,
		Body:   f.ToMap(),
	}, DecodeFeed)
}

// List reads the feed of q.ObjectID.
func (s *FeedService) List(ctx context.Context, q FeedQuery) ([]*Feed, error) {
	path, err := ObjectQuery{ID: q.ObjectID}.SubPath(objectsPath, "/feed")
	if err != nil {
		return nil, err
	}
	return list(ctx, s.client, path, q.Params(), DecodeFeed)
}
