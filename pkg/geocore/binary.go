package geocore

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// DefaultMimeType is used for binaries uploaded without a MIME type.
const DefaultMimeType = "application/octet-stream"

// BinaryRef addresses binary data attached to an object, or to the
// relationship between RelID1 and RelID2 when ObjectID is empty.
type BinaryRef struct {
	ObjectID string
	RelID1   string
	RelID2   string
	Key      string
	MimeType string
}

// ObjectBinary addresses binary key of object id.
func ObjectBinary(id, key string) BinaryRef {
	return BinaryRef{ObjectID: id, Key: key}
}

// RelationshipBinary addresses binary key of the relationship id1-id2.
func RelationshipBinary(id1, id2, key string) BinaryRef {
	return BinaryRef{RelID1: id1, RelID2: id2, Key: key}
}

func (b BinaryRef) binsPath() (string, error) {
	switch {
	case b.ObjectID != "":
		return objectsPath + "/" + pathSeg(b.ObjectID) + "/bins", nil
	case b.RelID1 != "" && b.RelID2 != "":
		return objectsPath + "/relationship/" + pathSeg(b.RelID1) + "/" + pathSeg(b.RelID2) + "/bins", nil
	default:
		return "", errInvalidParameter("expecting id")
	}
}

func (b BinaryRef) keyPath() (string, error) {
	base, err := b.binsPath()
	if err != nil {
		return "", err
	}
	if b.Key == "" {
		return "", errInvalidParameter("expecting key")
	}
	return base + "/" + pathSeg(b.Key), nil
}

// infoPath is where the download URL of the binary is published.
func (b BinaryRef) infoPath() (string, error) {
	p, err := b.keyPath()
	if err != nil {
		return "", err
	}
	if b.ObjectID != "" {
		p += "/url"
	}
	return p, nil
}

// BinaryInfo describes uploaded binary data.
type BinaryInfo struct {
	Key           string
	URL           string
	ContentLength *int64
	ContentType   string
	LastModified  *time.Time
}

// DecodeBinaryInfo decodes binary metadata. A bare string is taken as the
// key.
func DecodeBinaryInfo(r gjson.Result) *BinaryInfo {
	if r.Type == gjson.String {
		return &BinaryInfo{Key: r.Str}
	}
	md := r.Get("metadata")
	return &BinaryInfo{
		Key:           r.Get("key").String(),
		URL:           r.Get("url").String(),
		ContentLength: optInt64(md.Get("contentLength")),
		ContentType:   md.Get("contentType").String(),
		LastModified:  optTime(md.Get("lastModified")),
	}
}

func (bi *BinaryInfo) ToMap() map[string]any {
	m := make(map[string]any)
	if bi.Key != "" {
		m["key"] = bi.Key
	}
	if bi.URL != "" {
		m["url"] = bi.URL
	}
	md := make(map[string]any)
	if bi.ContentLength != nil {
		md["contentLength"] = *bi.ContentLength
	}
	if bi.ContentType != "" {
		md["contentType"] = bi.ContentType
	}
	putTime(md, "lastModified", bi.LastModified)
	if len(md) > 0 {
		m["metadata"] = md
	}
	return m
}

// downgradeScheme rewrites https links to http for legacy asset hosts.
//
// TODO: remove once every asset host serves https links that clients can
// open directly.
func downgradeScheme(u string) string {
	if strings.HasPrefix(u, "https") {
		return "http" + u[len("https"):]
	}
	return u
}

// BinaryService uploads and resolves binary data.
type BinaryService service

// Upload stores data under ref.
func (s *BinaryService) Upload(ctx context.Context, ref BinaryRef, data []byte) (*BinaryInfo, error) {
	path, err := ref.keyPath()
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errInvalidParameter("expecting data")
	}
	mimeType := ref.MimeType
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	return requestOne(ctx, s.client, Request{
		Method: http.MethodPost,
		Path:   path,
		Upload: &Upload{FieldName: "data", FileName: "data", MimeType: mimeType, Contents: data},
	}, DecodeBinaryInfo)
}

// List returns the binary keys stored on ref's object or relationship.
func (s *BinaryService) List(ctx context.Context, ref BinaryRef) ([]string, error) {
	path, err := ref.binsPath()
	if err != nil {
		return nil, err
	}
	return list(ctx, s.client, path, nil, DecodeString)
}

// Info fetches the metadata of ref.
func (s *BinaryService) Info(ctx context.Context, ref BinaryRef) (*BinaryInfo, error) {
	path, err := ref.infoPath()
	if err != nil {
		return nil, err
	}
	return requestOne(ctx, s.client, Request{Method: http.MethodGet, Path: path}, DecodeBinaryInfo)
}

// URL resolves the download URL of ref. Secure links are handed out as
// plain http.
func (s *BinaryService) URL(ctx context.Context, ref BinaryRef) (string, error) {
	return s.URLAsync(ctx, ref).Get(ctx)
}

// URLAsync is the asynchronous form of URL.
func (s *BinaryService) URLAsync(ctx context.Context, ref BinaryRef) *Future[string] {
	info := Async(ctx, func(ctx context.Context) (*BinaryInfo, error) {
		return s.Info(ctx, ref)
	})
	return Then(ctx, info, func(_ context.Context, bi *BinaryInfo) (string, error) {
		if bi.URL == "" {
			return "", errUnexpectedResponse("url is nil")
		}
		return downgradeScheme(bi.URL), nil
	})
}

// URLs resolves the URLs of several keys of one object concurrently. The
// first failure cancels the rest.
func (s *BinaryService) URLs(ctx context.Context, objectID string, keys []string) (map[string]string, error) {
	urls := make([]string, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			u, err := s.URL(gctx, ObjectBinary(objectID, key))
			if err != nil {
				return err
			}
			urls[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for i, key := range keys {
		out[key] = urls[i]
	}
	return out, nil
}

// Download resolves ref's URL and fetches its bytes.
func (s *BinaryService) Download(ctx context.Context, ref BinaryRef) ([]byte, error) {
	return Then(ctx, s.URLAsync(ctx, ref), s.client.fetch).Get(ctx)
}
