package geocore

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// String returns a pointer to s.
func String(s string) *string { return &s }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Time returns a pointer to t.
func Time(t time.Time) *time.Time { return &t }

// EntityType is the fully qualified server type of an entity.
type EntityType string

// Entity types known to the server.
const (
	TypeProject EntityType = "jp.geocore.entity.Project"
	TypeUser    EntityType = "jp.geocore.entity.User"
	TypeGroup   EntityType = "jp.geocore.entity.Group"
	TypePlace   EntityType = "jp.geocore.entity.Place"
	TypeEvent   EntityType = "jp.geocore.entity.Event"
	TypeItem    EntityType = "jp.geocore.entity.Item"
	TypeTag     EntityType = "jp.geocore.entity.Tag"
)

var idPrefixes = []struct {
	prefix string
	typ    EntityType
}{
	{"PRO", TypeProject},
	{"USE", TypeUser},
	{"GRO", TypeGroup},
	{"PLA", TypePlace},
	{"EVE", TypeEvent},
	{"ITE", TypeItem},
	{"TAG", TypeTag},
}

// EntityTypeOf guesses the type of an entity from its id prefix. It
// returns "" for unknown prefixes. Server ids are not guaranteed to keep
// this shape, so treat the answer as a hint.
func EntityTypeOf(id string) EntityType {
	for _, p := range idPrefixes {
		if strings.HasPrefix(id, p.prefix) {
			return p.typ
		}
	}
	return ""
}

// Entity is any server record built on Object.
type Entity interface {
	Mappable
	Base() *Object
}

var entityDecoders = map[EntityType]Decoder[Entity]{
	TypeUser:  func(r gjson.Result) Entity { return DecodeUser(r) },
	TypePlace: func(r gjson.Result) Entity { return DecodePlace(r) },
	TypeEvent: func(r gjson.Result) Entity { return DecodeEvent(r) },
	TypeItem:  func(r gjson.Result) Entity { return DecodeItem(r) },
	TypeTag:   func(r gjson.Result) Entity { return DecodeTag(r) },
}

// DecodeEntity decodes r into the concrete type its id suggests, falling
// back to a plain *Object.
func DecodeEntity(r gjson.Result) Entity {
	if dec, ok := entityDecoders[EntityTypeOf(r.Get("id").String())]; ok {
		return dec(r)
	}
	return DecodeObject(r)
}

// DecodeString is the decoder for results that are bare strings.
func DecodeString(r gjson.Result) string { return r.String() }

func optString(r gjson.Result) *string {
	if r.Type != gjson.String {
		return nil
	}
	s := r.Str
	return &s
}

func optInt64(r gjson.Result) *int64 {
	if r.Type != gjson.Number {
		return nil
	}
	v := r.Int()
	return &v
}

func optFloat(r gjson.Result) *float64 {
	if r.Type != gjson.Number {
		return nil
	}
	v := r.Float()
	return &v
}

func optTime(r gjson.Result) *time.Time {
	if r.Type != gjson.String {
		return nil
	}
	return parseTimePtr(r.Str)
}

// decodeStringMap keeps string values only; null and non-string values
// are dropped.
func decodeStringMap(r gjson.Result) map[string]string {
	if !r.IsObject() {
		return nil
	}
	m := make(map[string]string)
	r.ForEach(func(k, v gjson.Result) bool {
		if v.Type == gjson.String {
			m[k.Str] = v.Str
		}
		return true
	})
	return m
}

func copyStringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func putString(m map[string]any, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

func putTime(m map[string]any, key string, v *time.Time) {
	if v != nil {
		m[key] = FormatTime(*v)
	}
}

// Point is a WGS84 coordinate.
type Point struct {
	Latitude  float64
	Longitude float64
}

// DecodePoint returns nil unless both coordinates are present.
func DecodePoint(r gjson.Result) *Point {
	lat, lon := r.Get("latitude"), r.Get("longitude")
	if lat.Type != gjson.Number || lon.Type != gjson.Number {
		return nil
	}
	return &Point{Latitude: lat.Float(), Longitude: lon.Float()}
}

func (p Point) ToMap() map[string]any {
	return map[string]any{"latitude": p.Latitude, "longitude": p.Longitude}
}
