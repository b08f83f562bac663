package geocore

import (
	"context"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/geocore/internal/testutil"
)

func TestPlaces_Nearest(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodGet, "/places/search/nearest", testutil.Success([]any{
		map[string]any{"id": "PLA-1", "name": "A"},
		map[string]any{"id": "PLA-2", "name": "B"},
	}))

	places, err := c.Places.Nearest(context.Background(), PlaceQuery{
		Center: &Point{Latitude: 35.1, Longitude: 139.2},
		Tags:   TagFilter{Include: []string{"cafe"}},
	})
	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, "B", *places[1].Name)

	q := srv.Last(t).Query
	assert.Equal(t, "35.1", q.Get("lat"))
	assert.Equal(t, "139.2", q.Get("lon"))
	assert.Equal(t, "cafe", q.Get("tag_names"))
}

func TestPlaces_WithinCircleNeedsCenter(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)

	_, err := c.Places.WithinCircle(context.Background(), PlaceQuery{Radius: Float64(500)})
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Empty(t, srv.Requests())
}

func TestPlaces_WithinCircle(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodGet, "/places/search/within/circle", testutil.Success([]any{}))

	_, err := c.Places.WithinCircle(context.Background(), PlaceQuery{Center: &Point{Latitude: 1, Longitude: 2}, Radius: Float64(0.5)})
	require.NoError(t, err)
	assert.Equal(t, "0.5", srv.Last(t).Query.Get("radius"))
}

func TestPlaces_SaveUsesSIDAndClearsPendingTags(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodPost, "/places/12", testutil.Success(map[string]any{"sid": 12, "id": "PLA-1", "name": "New"}))

	p := &Place{}
	p.SID = Int64(12)
	p.Name = String("New")
	p.Tag("TAG-1", "fresh")

	saved, err := c.Places.Save(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "PLA-1", *saved.ID)
	assert.True(t, p.PendingTags().Empty())

	got := srv.Last(t)
	assert.Equal(t, "TAG-1", got.Query.Get("tag_ids"))
	assert.Equal(t, "fresh", got.Query.Get("tag_names"))
	assert.Equal(t, map[string]any{"sid": float64(12), "name": "New"}, got.JSON(t))
}

func TestPlaces_DeleteUnsaved(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)

	_, err := c.Places.Delete(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Empty(t, srv.Requests())
}

func TestPlaces_EventsOfCaches(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodGet, "/places/PLA-1/events", testutil.Success([]any{map[string]any{"id": "EVE-1"}}))

	p := &Place{}
	p.ID = String("PLA-1")
	events, err := c.Places.EventsOf(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, events, 1)

	_, err = c.Places.EventsOf(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, srv.Requests(), 1)
}

func TestPlaces_Checkin(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	c.SetToken("tok", "USE-1")
	srv.Handle(http.MethodPost, "/places/{id}/checkins", testutil.Success(map[string]any{
		"userId": "USE-1", "placeId": "PLA-1", "timestamp": 1000, "latitude": 1.5, "longitude": 2.5,
	}))

	ci, err := c.Places.Checkin(context.Background(), "PLA-1", Point{Latitude: 1.5, Longitude: 2.5}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), ci.Timestamp.UnixMilli())

	got := srv.Last(t)
	assert.Equal(t, "/places/PLA-1/checkins", got.Path)
	assert.Equal(t, "true", got.Query.Get("unrestricted"))
	body := got.JSON(t)
	assert.Equal(t, "USE-1", body["userId"])
	assert.Equal(t, "1.5", body["latitude"])
	assert.Equal(t, "0", body["accuracy"])
}

func TestEvents_Nearest(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodGet, "/events/search/nearest", testutil.Success([]any{map[string]any{"id": "EVE-1"}}))

	events, err := c.Events.Nearest(context.Background(), EventQuery{Center: &Point{Latitude: 1, Longitude: 2}})
	require.NoError(t, err)
	require.Len(t, events, 1)

	_, err = c.Events.Nearest(context.Background(), EventQuery{})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestObjects_GetIsPolymorphic(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodGet, "/objs/{id}", testutil.Success(map[string]any{"id": "EVE-1", "timeStart": "2024/01/01 00:00:00"}))

	e, err := c.Objects.Get(context.Background(), "EVE-1")
	require.NoError(t, err)
	ev, ok := e.(*Event)
	require.True(t, ok)
	require.NotNil(t, ev.TimeStart)
}

func TestObjects_LastUpdate(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodGet, "/places/lastUpdate", testutil.Success(map[string]any{"lastUpdate": "2024/02/03 04:05:06"}))
	srv.Handle(http.MethodGet, "/events/lastUpdate", testutil.Success(map[string]any{}))

	at, err := c.Objects.LastUpdate(context.Background(), placesPath)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), at)

	_, err = c.Objects.LastUpdate(context.Background(), eventsPath)
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestObjects_DeleteCustomData(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodDelete, "/objs/{id}/customData/{key}", testutil.Success(map[string]any{"id": "PLA-1"}))

	_, err := c.Objects.DeleteCustomData(context.Background(), "PLA-1", "color")
	require.NoError(t, err)
	assert.Equal(t, "/objs/PLA-1/customData/color", srv.Last(t).Path)
}

func TestRelationships_Follow(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodPost, "/users/{user}/places/{place}/{kind}", testutil.Success(map[string]any{
		"pk": map[string]any{"user": map[string]any{"id": "USE-1"}, "place": map[string]any{"id": "PLA-2"}, "relationship": "FOLLOWER"},
	}))

	up, err := c.Relationships.Follow(context.Background(), "USE-1", "PLA-2")
	require.NoError(t, err)
	assert.Equal(t, UserPlaceFollower, up.Kind)
	assert.Equal(t, "PLA-2", *up.Place.ID)
	assert.Equal(t, "/users/USE-1/places/PLA-2/FOLLOWER", srv.Last(t).Path)
}

func TestRelationships_RequireKind(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)

	_, err := c.Relationships.SaveUserPlace(context.Background(), Relationship{ID1: "USE-1", ID2: "PLA-2"})
	require.ErrorIs(t, err, ErrInvalidParameter)
	_, err = c.Relationships.ListUserPlaces(context.Background(), Relationship{})
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Empty(t, srv.Requests())
}

func TestRelationships_ListUserPlaces(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodGet, "/users/{user}/places", testutil.Success([]any{}))

	_, err := c.Users.PlaceRelationships(context.Background(), "USE-1")
	require.NoError(t, err)

	got := srv.Last(t)
	assert.Equal(t, "/users/USE-1/places", got.Path)
	assert.Equal(t, "json.relationship", got.Query.Get("output_format"))
}

func TestRelationships_AdjustItemAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		delta int64
		want  string
	}{
		{delta: 5, want: "/users/USE-1/items/ITE-2/amount/+5"},
		{delta: -3, want: "/users/USE-1/items/ITE-2/amount/-3"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			c, srv := newTestClient(t)
			srv.Handle(http.MethodPost, "/users/{user}/items/{item}/amount/{delta}", testutil.Success(map[string]any{"amount": 7}))

			ui, err := c.Relationships.AdjustItemAmount(context.Background(), "USE-1", "ITE-2", tt.delta)
			require.NoError(t, err)
			assert.Equal(t, int64(7), *ui.Amount)
			assert.Equal(t, tt.want, srv.Last(t).Path)
		})
	}
}

func TestRelationships_AdjustItemAmountRejectsMinInt(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)

	_, err := c.Relationships.AdjustItemAmount(context.Background(), "USE-1", "ITE-2", math.MinInt64)
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Empty(t, srv.Requests())
}

func TestObjects_DeleteEscapesID(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodDelete, "/places/{id}", testutil.Success(map[string]any{"id": "PLA 1?x"}))

	_, err := c.Places.Delete(context.Background(), "PLA 1?x")
	require.NoError(t, err)
	got := srv.Last(t)
	assert.Equal(t, "/places/PLA 1?x", got.Path)
	assert.Empty(t, got.Query)
}

func TestUsers_UpdateTags(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodPost, "/users/{id}/tags", testutil.Success([]any{map[string]any{"id": "TAG-1", "name": "vip"}}))

	tags, err := c.Users.UpdateTags(context.Background(), "USE-1", TagEdit{Add: []string{"vip"}})
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "vip", srv.Last(t).Query.Get("tag_names"))

	_, err = c.Users.UpdateTags(context.Background(), "USE-1", TagEdit{})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestUsers_RegisterPushTokenSkipsUnchanged(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodPost, "/users", testutil.Success(map[string]any{"id": "USE-1"}))

	u := &User{}
	u.ID = String("USE-1")
	_, err := c.Users.RegisterPushToken(context.Background(), u, "tok", "ja", true)
	require.NoError(t, err)
	require.Len(t, srv.Requests(), 1)
	assert.Equal(t, map[string]any{"push.ios.token": "tok", "push.ios.lang": "ja", "push.enabled": "true"}, srv.Last(t).JSON(t)["customData"])

	_, err = c.Users.RegisterPushToken(context.Background(), u, "tok", "", true)
	require.NoError(t, err)
	assert.Len(t, srv.Requests(), 1)
}

func TestFeeds_Post(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodPost, "/objs/{id}/feed", testutil.Success(map[string]any{"id": "PLA-1"}))

	_, err := c.Feeds.Post(context.Background(), &Feed{ID: "PLA-1", Content: map[string]any{"msg": "hello"}}, "spec-1")
	require.NoError(t, err)

	got := srv.Last(t)
	assert.Equal(t, string(TypePlace), got.Query.Get("type"))
	assert.Equal(t, "spec-1", got.Query.Get("spec"))
	assert.Equal(t, map[string]any{"msg": "hello"}, got.JSON(t))

	_, err = c.Feeds.Post(context.Background(), &Feed{ID: "PLA-1"}, "")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
