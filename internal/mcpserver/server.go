// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Geocore queries and uploads for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/geocore/pkg/geocore"
)

const idConventionsURI = "geocore://id-conventions"

// Server wraps the MCP server with Geocore tools.
type Server struct {
	mcp    *server.MCPServer
	client *geocore.Client
	fetch  fetcher
}

// New creates a new MCP server with all Geocore tools registered. name
// is announced to MCP clients.
func New(name string, client *geocore.Client) *Server {
	s := &Server{client: client, fetch: fetchHTTP}

	s.mcp = server.NewMCPServer(
		name,
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_place",
		mcp.WithDescription("Fetch one place by id (PLA-...)."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Place id")),
	), s.getPlace)

	s.mcp.AddTool(mcp.NewTool("nearest_places",
		mcp.WithDescription("List the places closest to a coordinate."),
		mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude in degrees")),
		mcp.WithNumber("lon", mcp.Required(), mcp.Description("Longitude in degrees")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of places (default 10)")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated tag ids or names to require")),
	), s.nearestPlaces)

	s.mcp.AddTool(mcp.NewTool("places_within_circle",
		mcp.WithDescription("List the places inside a circle."),
		mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude of the center")),
		mcp.WithNumber("lon", mcp.Required(), mcp.Description("Longitude of the center")),
		mcp.WithNumber("radius", mcp.Required(), mcp.Description("Radius in kilometres")),
	), s.placesWithinCircle)

	s.mcp.AddTool(mcp.NewTool("get_event",
		mcp.WithDescription("Fetch one event by id (EVE-...)."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Event id")),
	), s.getEvent)

	s.mcp.AddTool(mcp.NewTool("place_events",
		mcp.WithDescription("List the events held at a place."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Place id")),
	), s.placeEvents)

	s.mcp.AddTool(mcp.NewTool("get_user",
		mcp.WithDescription("Fetch one user by id (USE-...)."),
		mcp.WithString("id", mcp.Required(), mcp.Description("User id")),
	), s.getUser)

	s.mcp.AddTool(mcp.NewTool("binary_url",
		mcp.WithDescription("Resolve the download URL of a binary attached to an object."),
		mcp.WithString("object_id", mcp.Required(), mcp.Description("Object id, e.g. a place id")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Binary key")),
	), s.binaryURL)

	s.mcp.AddTool(mcp.NewTool("upload_binary",
		mcp.WithDescription("Attach an image or PDF to an object. The source is a base64 data URI "+
			"or an http(s) URL. Returns the stored key."),
		mcp.WithString("object_id", mcp.Required(), mcp.Description("Object id, e.g. a place id")),
		mcp.WithString("url", mcp.Required(), mcp.Description("data: URI or http(s) URL of the file")),
		mcp.WithString("key", mcp.Description("Binary key; derived from the file name when empty")),
	), s.uploadBinary)

	s.mcp.AddTool(mcp.NewTool("get_id_conventions",
		mcp.WithDescription("Returns the Geocore id, relationship and timestamp conventions. "+
			"Call this before composing ids or interpreting results."),
	), s.getIDConventions)

	s.mcp.AddResource(
		mcp.NewResource(idConventionsURI, "Geocore Conventions",
			mcp.WithResourceDescription("Id prefixes, relationship kinds and timestamp formats used by Geocore."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readIDConventionsResource,
	)

	return s
}

// Serve speaks MCP over in and out, usually stdin and stdout, until ctx
// is cancelled or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func toolError(err error) *mcp.CallToolResult {
	var gerr *geocore.Error
	if errors.As(err, &gerr) && gerr.Kind == geocore.KindServerError {
		return mcp.NewToolResultError(fmt.Sprintf("geocore %s: %s", gerr.Code, gerr.Message))
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func mapAll[T geocore.Mappable](items []T) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, it.ToMap())
	}
	return out
}

func (s *Server) getPlace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.client.Places.Get(ctx, geocore.PlaceQuery{ObjectQuery: geocore.ObjectQuery{ID: id}})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(p.ToMap()), nil
}

func (s *Server) nearestPlaces(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	center, err := requirePoint(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	q := geocore.PlaceQuery{
		ObjectQuery: geocore.ObjectQuery{PerPage: int(req.GetFloat("limit", 10))},
		Center:      &center,
	}
	if tags := req.GetString("tags", ""); tags != "" {
		q.Tags.Include = splitList(tags)
	}
	places, err := s.client.Places.Nearest(ctx, q)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(mapAll(places)), nil
}

func (s *Server) placesWithinCircle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	center, err := requirePoint(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	radius, err := req.RequireFloat("radius")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	places, err := s.client.Places.WithinCircle(ctx, geocore.PlaceQuery{Center: &center, Radius: geocore.Float64(radius)})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(mapAll(places)), nil
}

func (s *Server) getEvent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.client.Events.Get(ctx, geocore.EventQuery{ObjectQuery: geocore.ObjectQuery{ID: id}})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(e.ToMap()), nil
}

func (s *Server) placeEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	events, err := s.client.Places.Events(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(mapAll(events)), nil
}

func (s *Server) getUser(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	u, err := s.client.Users.Get(ctx, geocore.UserQuery{ObjectQuery: geocore.ObjectQuery{ID: id}})
	if err != nil {
		return toolError(err), nil
	}
	m := u.ToMap()
	delete(m, "password")
	return jsonResult(m), nil
}

func (s *Server) binaryURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	objectID, err := req.RequireString("object_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	u, err := s.client.Binaries.URL(ctx, geocore.ObjectBinary(objectID, key))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(u), nil
}

func (s *Server) getIDConventions(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(IDConventions), nil
}

func (s *Server) readIDConventionsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      idConventionsURI,
			MIMEType: "text/markdown",
			Text:     IDConventions,
		},
	}, nil
}

func requirePoint(req mcp.CallToolRequest) (geocore.Point, error) {
	lat, err := req.RequireFloat("lat")
	if err != nil {
		return geocore.Point{}, err
	}
	lon, err := req.RequireFloat("lon")
	if err != nil {
		return geocore.Point{}, err
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return geocore.Point{}, fmt.Errorf("coordinate out of range: %g,%g", lat, lon)
	}
	return geocore.Point{Latitude: lat, Longitude: lon}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
