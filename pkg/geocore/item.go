package geocore

import (
	"context"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

const itemsPath = "/items"

// ItemType says whether an item is used up when spent.
type ItemType string

// Item types.
const (
	ItemNonConsumable ItemType = "NON_CONSUMABLE"
	ItemConsumable    ItemType = "CONSUMABLE"
)

// Item is something users can hold in an amount.
type Item struct {
	Taggable
	ShortName        *string
	ShortDescription *string
	Type             ItemType
	ValidTimeStart   *time.Time
	ValidTimeEnd     *time.Time
}

// DecodeItem decodes an item.
func DecodeItem(r gjson.Result) *Item {
	it := &Item{
		ShortName:        optString(r.Get("shortName")),
		ShortDescription: optString(r.Get("shortDescription")),
		Type:             ItemType(r.Get("type").String()),
		ValidTimeStart:   optTime(r.Get("validTimeStart")),
		ValidTimeEnd:     optTime(r.Get("validTimeEnd")),
	}
	it.Taggable.decode(r)
	return it
}

func (it *Item) ToMap() map[string]any {
	m := it.Object.ToMap()
	putString(m, "shortName", it.ShortName)
	putString(m, "shortDescription", it.ShortDescription)
	if it.Type != "" {
		m["type"] = string(it.Type)
	}
	putTime(m, "validTimeStart", it.ValidTimeStart)
	putTime(m, "validTimeEnd", it.ValidTimeEnd)
	return m
}

// ItemQuery selects items.
type ItemQuery struct {
	ObjectQuery
	Tags      TagFilter
	ValidOnly bool
}

// Params compiles the query parameters.
func (q ItemQuery) Params() url.Values {
	v := url.Values{}
	q.ObjectQuery.addParams(v)
	q.Tags.addParams(v)
	if q.ValidOnly {
		v.Set("valid_only", "true")
	}
	return v
}

// ItemService reaches /items.
type ItemService service

// Get fetches the item q.ID.
func (s *ItemService) Get(ctx context.Context, q ItemQuery) (*Item, error) {
	return get(ctx, s.client, itemsPath, q.ObjectQuery, q.Params(), DecodeItem)
}

// List lists items.
func (s *ItemService) List(ctx context.Context, q ItemQuery) ([]*Item, error) {
	return list(ctx, s.client, q.Path(itemsPath), q.Params(), DecodeItem)
}

// Save creates or updates it, applying any queued tag edit.
func (s *ItemService) Save(ctx context.Context, it *Item) (*Item, error) {
	out, err := save(ctx, s.client, itemsPath, it, it.saveParams(), DecodeItem)
	if err == nil {
		it.pending = TagEdit{}
	}
	return out, err
}

// Delete removes the item id.
func (s *ItemService) Delete(ctx context.Context, id string) (*Item, error) {
	return remove(ctx, s.client, itemsPath, id, DecodeItem)
}

// Events lists the events offering item id.
func (s *ItemService) Events(ctx context.Context, id string) ([]*Event, error) {
	path, err := ObjectQuery{ID: id}.SubPath(itemsPath, "/events")
	if err != nil {
		return nil, err
	}
	return list(ctx, s.client, path, nil, DecodeEvent)
}
