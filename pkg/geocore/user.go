package geocore

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const usersPath = "/users"

// Custom data keys with a fixed meaning on users.
const (
	CustomDataFacebookID     = "sns.fb.id"
	CustomDataFacebookName   = "sns.fb.name"
	CustomDataFacebookEmail  = "sns.fb.email"
	CustomDataTwitterID      = "sns.tw.id"
	CustomDataTwitterName    = "sns.tw.name"
	CustomDataGooglePlusID   = "sns.gp.id"
	CustomDataGooglePlusName = "sns.gp.name"
	CustomDataPushToken      = "push.ios.token"
	CustomDataPushLanguage   = "push.ios.lang"
	CustomDataPushEnabled    = "push.enabled"
)

// SocialNetwork selects the custom data keys of a linked account.
type SocialNetwork string

// Linked account networks.
const (
	Facebook   SocialNetwork = "fb"
	Twitter    SocialNetwork = "tw"
	GooglePlus SocialNetwork = "gp"
)

func (n SocialNetwork) idKey() string   { return "sns." + string(n) + ".id" }
func (n SocialNetwork) nameKey() string { return "sns." + string(n) + ".name" }

// User is a project member.
type User struct {
	Taggable
	AlternateID1 *string
	AlternateID2 *string
	AlternateID3 *string
	AlternateID4 *string
	AlternateID5 *string
	// Password is write-only.
	Password *string
	Email    *string
	// Reported by the server from check-ins; read-only.
	LastLocationTime *time.Time
	LastLocation     *Point
}

// DecodeUser decodes a user.
func DecodeUser(r gjson.Result) *User {
	u := &User{
		AlternateID1:     optString(r.Get("alternateId1")),
		AlternateID2:     optString(r.Get("alternateId2")),
		AlternateID3:     optString(r.Get("alternateId3")),
		AlternateID4:     optString(r.Get("alternateId4")),
		AlternateID5:     optString(r.Get("alternateId5")),
		Email:            optString(r.Get("email")),
		LastLocationTime: optTime(r.Get("lastLocationTime")),
		LastLocation:     DecodePoint(r.Get("lastLocation")),
	}
	u.Taggable.decode(r)
	return u
}

func (u *User) ToMap() map[string]any {
	m := u.Object.ToMap()
	putString(m, "password", u.Password)
	putString(m, "email", u.Email)
	putString(m, "alternateId1", u.AlternateID1)
	putString(m, "alternateId2", u.AlternateID2)
	putString(m, "alternateId3", u.AlternateID3)
	putString(m, "alternateId4", u.AlternateID4)
	putString(m, "alternateId5", u.AlternateID5)
	return m
}

// LinkAccount records a social network account in custom data.
func (u *User) LinkAccount(n SocialNetwork, id, name string) {
	u.SetCustomData(n.idKey(), id)
	u.SetCustomData(n.nameKey(), name)
}

// Account returns the linked account on n, if any.
func (u *User) Account(n SocialNetwork) (id, name string, ok bool) {
	id, ok = u.CustomValue(n.idKey())
	if !ok {
		return "", "", false
	}
	name, _ = u.CustomValue(n.nameKey())
	return id, name, true
}

// UserQuery selects users.
type UserQuery struct {
	ObjectQuery
	Tags TagFilter
	// AltIndex looks the user up by alternate id 1-5 instead of id.
	AltIndex int
}

// Params compiles the query parameters.
func (q UserQuery) Params() url.Values {
	v := url.Values{}
	q.ObjectQuery.addParams(v)
	q.Tags.addParams(v)
	if q.AltIndex > 0 {
		v.Set("alt", strconv.Itoa(q.AltIndex))
	}
	return v
}

// UserService reaches /users and /register.
type UserService service

// Get fetches the user q.ID.
func (s *UserService) Get(ctx context.Context, q UserQuery) (*User, error) {
	return get(ctx, s.client, usersPath, q.ObjectQuery, q.Params(), DecodeUser)
}

// Register creates u in the client's project, optionally joining groups.
func (s *UserService) Register(ctx context.Context, u *User, groupIDs []string) (*User, error) {
	params := url.Values{}
	if len(groupIDs) > 0 {
		params.Set("group_ids", strings.Join(groupIDs, ","))
	}
	if pid := s.client.ProjectID(); pid != "" {
		params.Set("project_id", pid)
	}
	return requestOne(ctx, s.client, Request{
		Method: http.MethodPost,
		Path:   "/register",
		Params: params,
		Body:   u.ToMap(),
	}, DecodeUser)
}

// Save updates u, applying any queued tag edit.
func (s *UserService) Save(ctx context.Context, u *User) (*User, error) {
	out, err := save(ctx, s.client, usersPath, u, u.saveParams(), DecodeUser)
	if err == nil {
		u.pending = TagEdit{}
	}
	return out, err
}

// UpdateTags applies edit to user userID and returns the resulting tags.
func (s *UserService) UpdateTags(ctx context.Context, userID string, edit TagEdit) ([]*Tag, error) {
	if edit.Empty() {
		return nil, errInvalidParameter("expecting tag parameters")
	}
	path, err := ObjectQuery{ID: userID}.SubPath(usersPath, "/tags")
	if err != nil {
		return nil, err
	}
	return requestMany(ctx, s.client, Request{
		Method: http.MethodPost,
		Path:   path,
		Params: edit.Params(),
		Body:   map[string]any{},
	}, DecodeTag)
}

// EventRelationships lists every user-event record of userID.
func (s *UserService) EventRelationships(ctx context.Context, userID string) ([]*UserEvent, error) {
	return s.client.Relationships.ListUserEvents(ctx, Relationship{ID1: userID})
}

// PlaceRelationships lists every user-place record of userID.
func (s *UserService) PlaceRelationships(ctx context.Context, userID string) ([]*UserPlace, error) {
	return s.client.Relationships.ListUserPlaces(ctx, Relationship{ID1: userID})
}

// ItemRelationships lists every user-item record of userID.
func (s *UserService) ItemRelationships(ctx context.Context, userID string) ([]*UserItem, error) {
	return s.client.Relationships.ListUserItems(ctx, Relationship{ID1: userID})
}

// RegisterPushToken stores push notification settings on u and saves it
// only when something changed. An empty language leaves the stored one.
func (s *UserService) RegisterPushToken(ctx context.Context, u *User, token, language string, enabled bool) (*User, error) {
	changed := u.UpdateCustomData(CustomDataPushToken, &token)
	if language != "" && u.UpdateCustomData(CustomDataPushLanguage, &language) {
		changed = true
	}
	if u.UpdateCustomData(CustomDataPushEnabled, String(strconv.FormatBool(enabled))) {
		changed = true
	}
	if !changed {
		return u, nil
	}
	return s.Save(ctx, u)
}
