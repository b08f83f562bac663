package geocore

import (
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// TagIDPrefix marks a server-assigned tag id. Anything else is a tag name.
const TagIDPrefix = "TAG-"

// SplitTags partitions idsOrNames into tag ids and tag names, keeping the
// input order within each group.
func SplitTags(idsOrNames []string) (ids, names []string) {
	for _, s := range idsOrNames {
		if strings.HasPrefix(s, TagIDPrefix) {
			ids = append(ids, s)
		} else {
			names = append(names, s)
		}
	}
	return ids, names
}

func setJoined(v url.Values, key string, values []string) {
	if len(values) > 0 {
		v.Set(key, strings.Join(values, ","))
	}
}

// TagFilter restricts a query by tags. Entries are tag ids or names.
type TagFilter struct {
	Include []string
	Exclude []string
	// Details asks the server to embed tag records in the results.
	Details bool
}

func (f TagFilter) addParams(v url.Values) {
	ids, names := SplitTags(f.Include)
	setJoined(v, "tag_ids", ids)
	setJoined(v, "tag_names", names)
	ids, names = SplitTags(f.Exclude)
	setJoined(v, "excl_tag_ids", ids)
	setJoined(v, "excl_tag_names", names)
	if f.Details {
		v.Set("tag_detail", "true")
	}
}

// Params compiles the filter alone.
func (f TagFilter) Params() url.Values {
	v := url.Values{}
	f.addParams(v)
	return v
}

// TagEdit adds and removes tags on a record. Entries are tag ids or
// names.
type TagEdit struct {
	Add    []string
	Remove []string
}

// Empty reports whether the edit changes nothing.
func (e TagEdit) Empty() bool { return len(e.Add) == 0 && len(e.Remove) == 0 }

// Params compiles the edit.
func (e TagEdit) Params() url.Values {
	v := url.Values{}
	ids, names := SplitTags(e.Add)
	setJoined(v, "tag_ids", ids)
	setJoined(v, "tag_names", names)
	ids, names = SplitTags(e.Remove)
	setJoined(v, "del_tag_ids", ids)
	setJoined(v, "del_tag_names", names)
	return v
}

// TagType distinguishes system tags from user tags.
type TagType string

// Tag types.
const (
	TagTypeSystem TagType = "SYSTEM_TAG"
	TagTypeUser   TagType = "USER_TAG"
)

// Tag is a label attached to taggable records.
type Tag struct {
	Object
	Type TagType
}

// DecodeTag decodes a tag.
func DecodeTag(r gjson.Result) *Tag {
	t := &Tag{Type: TagType(r.Get("type").String())}
	t.decode(r)
	return t
}

func (t *Tag) ToMap() map[string]any {
	m := t.Object.ToMap()
	if t.Type != "" {
		m["type"] = string(t.Type)
	}
	return m
}

// Taggable is an Object that carries tags. Tags is only populated when
// the server was asked for tag details.
type Taggable struct {
	Object
	Tags []*Tag

	pending TagEdit
}

func (t *Taggable) decode(r gjson.Result) {
	t.Object.decode(r)
	if tags := r.Get("tags"); tags.IsArray() {
		t.Tags = []*Tag{}
		tags.ForEach(func(_, v gjson.Result) bool {
			t.Tags = append(t.Tags, DecodeTag(v))
			return true
		})
	}
}

// Tag queues tags to add on the next save.
func (t *Taggable) Tag(idsOrNames ...string) {
	t.pending.Add = append(t.pending.Add, idsOrNames...)
}

// Untag queues tags to remove on the next save.
func (t *Taggable) Untag(idsOrNames ...string) {
	t.pending.Remove = append(t.pending.Remove, idsOrNames...)
}

// PendingTags returns the queued tag edit.
func (t *Taggable) PendingTags() TagEdit { return t.pending }

func (t *Taggable) saveParams() url.Values {
	if t.pending.Empty() {
		return nil
	}
	return t.pending.Params()
}
