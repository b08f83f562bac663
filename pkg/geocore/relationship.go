package geocore

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

// Pair names the two entity types joined by a relationship and fixes its
// path layout.
type Pair int

// Relationship pairs.
const (
	UserPlacePair Pair = iota + 1
	UserEventPair
	UserItemPair
	PlaceEventPair
)

var pairRoutes = map[Pair]struct{ service, sub string }{
	UserPlacePair:  {usersPath, placesPath},
	UserEventPair:  {usersPath, eventsPath},
	UserItemPair:   {usersPath, itemsPath},
	PlaceEventPair: {placesPath, eventsPath},
}

// UserPlaceRelation is the kind of a user-place relationship.
type UserPlaceRelation string

// User-place kinds.
const (
	UserPlaceCreator   UserPlaceRelation = "CREATOR"
	UserPlaceOwner     UserPlaceRelation = "OWNER"
	UserPlaceManager   UserPlaceRelation = "MANAGER"
	UserPlaceOrganizer UserPlaceRelation = "ORGANIZER"
	UserPlaceStaff     UserPlaceRelation = "STAFF"
	UserPlaceSeller    UserPlaceRelation = "SELLER"
	UserPlaceAgent     UserPlaceRelation = "AGENT"
	UserPlaceRealtor   UserPlaceRelation = "REALTOR"
	UserPlaceFollower  UserPlaceRelation = "FOLLOWER"
	UserPlaceSupporter UserPlaceRelation = "SUPPORTER"
	UserPlaceVisitor   UserPlaceRelation = "VISITOR"
	UserPlaceCustomer  UserPlaceRelation = "CUSTOMER"
	UserPlacePlayer    UserPlaceRelation = "PLAYER"
	UserPlaceMember    UserPlaceRelation = "MEMBER"
	UserPlaceBuyer     UserPlaceRelation = "BUYER"
)

// UserEventRelation is the kind of a user-event relationship.
type UserEventRelation string

// User-event kinds.
const (
	UserEventOrganizer   UserEventRelation = "ORGANIZER"
	UserEventPerformer   UserEventRelation = "PERFORMER"
	UserEventParticipant UserEventRelation = "PARTICIPANT"
	UserEventAttendant   UserEventRelation = "ATTENDANT"
)

// CustomRelation returns the application-defined kind CUSTOM01 to
// CUSTOM10 shared by user-place and user-event relationships.
func CustomRelation(n int) string {
	if n < 1 || n > 10 {
		return ""
	}
	return fmt.Sprintf("CUSTOM%02d", n)
}

// Relationship addresses a relationship between ID1 and ID2. With Kind
// empty it addresses every relationship of the pair, and with ID2 empty
// every relationship of ID1.
type Relationship struct {
	Pair       Pair
	ID1        string
	ID2        string
	Kind       string
	CustomData map[string]string
	Tags       TagFilter
}

// Path compiles {service}/{id1}{sub}/{id2}/{kind}, dropping trailing
// segments that are not set.
func (r Relationship) Path() string {
	if r.ID1 != "" && r.ID2 != "" && r.Kind != "" {
		return r.pairPath() + "/" + pathSeg(r.Kind)
	}
	return r.pairPath()
}

func (r Relationship) pairPath() string {
	rt := pairRoutes[r.Pair]
	switch {
	case r.ID1 == "":
		return rt.service
	case r.ID2 == "":
		return rt.service + "/" + pathSeg(r.ID1) + rt.sub
	default:
		return rt.service + "/" + pathSeg(r.ID1) + rt.sub + "/" + pathSeg(r.ID2)
	}
}

// Params compiles the tag filter.
func (r Relationship) Params() url.Values { return r.Tags.Params() }

func (r Relationship) requireKind() error {
	if r.ID1 == "" || r.ID2 == "" || r.Kind == "" {
		return errInvalidParameter("expecting ids & relationship type")
	}
	return nil
}

func (r Relationship) body() map[string]any {
	return copyStringMap(r.CustomData)
}

// RelationshipData is shared by every relationship record.
type RelationshipData struct {
	UpdateTime *time.Time
	CustomData map[string]string
}

func (d *RelationshipData) decode(r gjson.Result) {
	d.UpdateTime = optTime(r.Get("updateTime"))
	d.CustomData = decodeStringMap(r.Get("customData"))
}

func (d *RelationshipData) toMap() map[string]any {
	m := make(map[string]any)
	if d.CustomData != nil {
		m["customData"] = copyStringMap(d.CustomData)
	}
	return m
}

// UserPlace is a user-place relationship record.
type UserPlace struct {
	RelationshipData
	User  *User
	Place *Place
	Kind  UserPlaceRelation
}

// DecodeUserPlace decodes a user-place record.
func DecodeUserPlace(r gjson.Result) *UserPlace {
	up := &UserPlace{}
	up.decode(r)
	pk := r.Get("pk")
	if u := pk.Get("user"); u.IsObject() {
		up.User = DecodeUser(u)
	}
	if p := pk.Get("place"); p.IsObject() {
		up.Place = DecodePlace(p)
	}
	up.Kind = UserPlaceRelation(pk.Get("relationship").String())
	return up
}

func (up *UserPlace) ToMap() map[string]any {
	m := up.toMap()
	pk := make(map[string]any)
	if up.User != nil {
		pk["user"] = up.User.ToMap()
	}
	if up.Place != nil {
		pk["place"] = up.Place.ToMap()
	}
	if up.Kind != "" {
		pk["relationship"] = string(up.Kind)
	}
	m["pk"] = pk
	return m
}

// UserEvent is a user-event relationship record.
type UserEvent struct {
	RelationshipData
	User  *User
	Event *Event
	Kind  UserEventRelation
}

// DecodeUserEvent decodes a user-event record.
func DecodeUserEvent(r gjson.Result) *UserEvent {
	ue := &UserEvent{}
	ue.decode(r)
	pk := r.Get("pk")
	if u := pk.Get("user"); u.IsObject() {
		ue.User = DecodeUser(u)
	}
	if e := pk.Get("event"); e.IsObject() {
		ue.Event = DecodeEvent(e)
	}
	ue.Kind = UserEventRelation(pk.Get("relationship").String())
	return ue
}

func (ue *UserEvent) ToMap() map[string]any {
	m := ue.toMap()
	pk := make(map[string]any)
	if ue.User != nil {
		pk["user"] = ue.User.ToMap()
	}
	if ue.Event != nil {
		pk["event"] = ue.Event.ToMap()
	}
	if ue.Kind != "" {
		pk["relationship"] = string(ue.Kind)
	}
	m["pk"] = pk
	return m
}

// UserItem records how much of an item a user holds.
type UserItem struct {
	RelationshipData
	User        *User
	Item        *Item
	CreateTime  *time.Time
	Amount      *int64
	OrderNumber *int64
}

// DecodeUserItem decodes a user-item record.
func DecodeUserItem(r gjson.Result) *UserItem {
	ui := &UserItem{
		Amount:      optInt64(r.Get("amount")),
		OrderNumber: optInt64(r.Get("orderNumber")),
	}
	ui.decode(r)
	pk := r.Get("pk")
	if u := pk.Get("user"); u.IsObject() {
		ui.User = DecodeUser(u)
	}
	if it := pk.Get("item"); it.IsObject() {
		ui.Item = DecodeItem(it)
	}
	ui.CreateTime = optTime(pk.Get("createTime"))
	return ui
}

func (ui *UserItem) ToMap() map[string]any {
	m := ui.toMap()
	pk := make(map[string]any)
	if ui.User != nil {
		pk["user"] = ui.User.ToMap()
	}
	if ui.Item != nil {
		pk["item"] = ui.Item.ToMap()
	}
	putTime(pk, "createTime", ui.CreateTime)
	m["pk"] = pk
	if ui.Amount != nil {
		m["amount"] = *ui.Amount
	}
	if ui.OrderNumber != nil {
		m["orderNumber"] = *ui.OrderNumber
	}
	return m
}

// PlaceEvent links an event to a place.
type PlaceEvent struct {
	RelationshipData
	Place *Place
	Event *Event
}

// DecodePlaceEvent decodes a place-event record.
func DecodePlaceEvent(r gjson.Result) *PlaceEvent {
	pe := &PlaceEvent{}
	pe.decode(r)
	pk := r.Get("pk")
	if p := pk.Get("place"); p.IsObject() {
		pe.Place = DecodePlace(p)
	}
	if e := pk.Get("event"); e.IsObject() {
		pe.Event = DecodeEvent(e)
	}
	return pe
}

func (pe *PlaceEvent) ToMap() map[string]any {
	m := pe.toMap()
	pk := make(map[string]any)
	if pe.Place != nil {
		pk["place"] = pe.Place.ToMap()
	}
	if pe.Event != nil {
		pk["event"] = pe.Event.ToMap()
	}
	m["pk"] = pk
	return m
}

// RelationshipService manages relationship records. Each method forces
// the Pair of the Relationship it is given.
type RelationshipService service

const relationshipOutputFormat = "json.relationship"

func saveRelationship[T any](ctx context.Context, c *Client, r Relationship, dec Decoder[T]) (T, error) {
	if err := r.requireKind(); err != nil {
		var zero T
		return zero, err
	}
	return requestOne(ctx, c, Request{Method: http.MethodPost, Path: r.Path(), Body: r.body()}, dec)
}

func leaveRelationship[T any](ctx context.Context, c *Client, r Relationship, dec Decoder[T]) (T, error) {
	if err := r.requireKind(); err != nil {
		var zero T
		return zero, err
	}
	return requestOne(ctx, c, Request{Method: http.MethodDelete, Path: r.Path()}, dec)
}

func getRelationship[T any](ctx context.Context, c *Client, r Relationship, dec Decoder[T]) (T, error) {
	if err := r.requireKind(); err != nil {
		var zero T
		return zero, err
	}
	return requestOne(ctx, c, Request{Method: http.MethodGet, Path: r.Path()}, dec)
}

func listRelationships[T any](ctx context.Context, c *Client, r Relationship, params url.Values, dec Decoder[T]) ([]T, error) {
	if r.ID1 == "" {
		return nil, errInvalidParameter("expecting id")
	}
	return list(ctx, c, r.pairPath(), params, dec)
}

// SaveUserPlace creates or updates a user-place relationship with
// r.CustomData.
func (s *RelationshipService) SaveUserPlace(ctx context.Context, r Relationship) (*UserPlace, error) {
	r.Pair = UserPlacePair
	return saveRelationship(ctx, s.client, r, DecodeUserPlace)
}

// Follow makes userID a follower of placeID.
func (s *RelationshipService) Follow(ctx context.Context, userID, placeID string) (*UserPlace, error) {
	return s.SaveUserPlace(ctx, Relationship{ID1: userID, ID2: placeID, Kind: string(UserPlaceFollower)})
}

// LeaveUserPlace deletes the relationship r.
func (s *RelationshipService) LeaveUserPlace(ctx context.Context, r Relationship) (*UserPlace, error) {
	r.Pair = UserPlacePair
	return leaveRelationship(ctx, s.client, r, DecodeUserPlace)
}

// Unfollow removes userID from the followers of placeID.
func (s *RelationshipService) Unfollow(ctx context.Context, userID, placeID string) (*UserPlace, error) {
	return s.LeaveUserPlace(ctx, Relationship{ID1: userID, ID2: placeID, Kind: string(UserPlaceFollower)})
}

// GetUserPlace fetches one user-place relationship.
func (s *RelationshipService) GetUserPlace(ctx context.Context, r Relationship) (*UserPlace, error) {
	r.Pair = UserPlacePair
	return getRelationship(ctx, s.client, r, DecodeUserPlace)
}

// ListUserPlaces lists the user-place relationships of r.ID1, narrowed to
// r.ID2 when set.
func (s *RelationshipService) ListUserPlaces(ctx context.Context, r Relationship) ([]*UserPlace, error) {
	r.Pair = UserPlacePair
	params := r.Params()
	params.Set("output_format", relationshipOutputFormat)
	return listRelationships(ctx, s.client, r, params, DecodeUserPlace)
}

// SaveUserEvent creates or updates a user-event relationship with
// r.CustomData.
func (s *RelationshipService) SaveUserEvent(ctx context.Context, r Relationship) (*UserEvent, error) {
	r.Pair = UserEventPair
	return saveRelationship(ctx, s.client, r, DecodeUserEvent)
}

// Organize marks userID as organizer of eventID.
func (s *RelationshipService) Organize(ctx context.Context, userID, eventID string) (*UserEvent, error) {
	return s.SaveUserEvent(ctx, Relationship{ID1: userID, ID2: eventID, Kind: string(UserEventOrganizer)})
}

// Perform marks userID as performer at eventID.
func (s *RelationshipService) Perform(ctx context.Context, userID, eventID string) (*UserEvent, error) {
	return s.SaveUserEvent(ctx, Relationship{ID1: userID, ID2: eventID, Kind: string(UserEventPerformer)})
}

// Participate marks userID as participant of eventID.
func (s *RelationshipService) Participate(ctx context.Context, userID, eventID string) (*UserEvent, error) {
	return s.SaveUserEvent(ctx, Relationship{ID1: userID, ID2: eventID, Kind: string(UserEventParticipant)})
}

// Attend marks userID as attending eventID.
func (s *RelationshipService) Attend(ctx context.Context, userID, eventID string) (*UserEvent, error) {
	return s.SaveUserEvent(ctx, Relationship{ID1: userID, ID2: eventID, Kind: string(UserEventAttendant)})
}

// LeaveUserEvent deletes the relationship r.
func (s *RelationshipService) LeaveUserEvent(ctx context.Context, r Relationship) (*UserEvent, error) {
	r.Pair = UserEventPair
	return leaveRelationship(ctx, s.client, r, DecodeUserEvent)
}

// GetUserEvent fetches one user-event relationship.
func (s *RelationshipService) GetUserEvent(ctx context.Context, r Relationship) (*UserEvent, error) {
	r.Pair = UserEventPair
	return getRelationship(ctx, s.client, r, DecodeUserEvent)
}

// ListUserEvents lists the user-event relationships of r.ID1, narrowed to
// r.ID2 when set.
func (s *RelationshipService) ListUserEvents(ctx context.Context, r Relationship) ([]*UserEvent, error) {
	r.Pair = UserEventPair
	return listRelationships(ctx, s.client, r, r.Params(), DecodeUserEvent)
}

// ListUserItems lists the items held by r.ID1.
func (s *RelationshipService) ListUserItems(ctx context.Context, r Relationship) ([]*UserItem, error) {
	r.Pair = UserItemPair
	params := r.Params()
	params.Set("output_format", relationshipOutputFormat)
	return listRelationships(ctx, s.client, r, params, DecodeUserItem)
}

// AdjustItemAmount adds delta (which may be negative) to the amount of
// itemID held by userID.
func (s *RelationshipService) AdjustItemAmount(ctx context.Context, userID, itemID string, delta int64) (*UserItem, error) {
	if userID == "" || itemID == "" {
		return nil, errInvalidParameter("expecting ids")
	}
	if delta == math.MinInt64 {
		return nil, errInvalidParameter("amount delta out of range")
	}
	sign, abs := "-", delta
	if delta > 0 {
		sign = "+"
	} else {
		abs = -delta
	}
	r := Relationship{Pair: UserItemPair, ID1: userID, ID2: itemID}
	path := fmt.Sprintf("%s/amount/%s%d", r.pairPath(), sign, abs)
	return requestOne(ctx, s.client, Request{Method: http.MethodPost, Path: path}, DecodeUserItem)
}
