package geocore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/tidwall/gjson"
)

const jsonContentType = "application/json; charset=utf-8"

// Request is one call to the API.
//
// Params always go to the URL query string, in sorted key order. A non-nil
// Body is sent as JSON even when Params are present. When Upload is set,
// or Body is an Upload, the call becomes a multipart upload and Params and
// Body are not encoded.
type Request struct {
	Method string
	Path   string
	Params url.Values
	Body   any
	Upload *Upload
}

func (r Request) upload() *Upload {
	if r.Upload != nil {
		return r.Upload
	}
	switch b := r.Body.(type) {
	case *Upload:
		return b
	case Upload:
		return &b
	}
	return nil
}

// Upload describes a multipart file part.
type Upload struct {
	FieldName string
	FileName  string
	MimeType  string
	Contents  []byte
}

// Validate checks that the part can be encoded.
func (u *Upload) Validate() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.FieldName, validation.Required),
		validation.Field(&u.FileName, validation.Required),
		validation.Field(&u.MimeType, validation.Required),
	)
}

// Decoder builds a T from the unwrapped result of a response.
type Decoder[T any] func(gjson.Result) T

// Mappable values serialize to a plain map holding only their set fields.
type Mappable interface {
	ToMap() map[string]any
}

// Do performs r and returns the unwrapped "result" of the response
// envelope.
func (c *Client) Do(ctx context.Context, r Request) (gjson.Result, error) {
	if c.baseURL == "" {
		return gjson.Result{}, errInvalidState("base URL is not configured")
	}

	req, err := c.newHTTPRequest(ctx, r)
	if err != nil {
		return gjson.Result{}, err
	}
	if token := c.Token(); token != "" {
		req.Header.Set(AccessTokenHeader, token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.ErrorContext(ctx, "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.Path),
			slog.String("error", err.Error()))
		return gjson.Result{}, errNetwork(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, errNetwork(err)
	}

	c.log.DebugContext(ctx, "request",
		slog.String("method", r.Method),
		slog.String("path", r.Path),
		slog.Int("status", resp.StatusCode))

	res, err := classify(resp.StatusCode, data)
	if err != nil {
		c.log.WarnContext(ctx, "request rejected",
			slog.String("method", r.Method),
			slog.String("path", r.Path),
			slog.String("error", err.Error()))
		return gjson.Result{}, err
	}
	return res, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, r Request) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.baseURL + r.Path

	if up := r.upload(); up != nil {
		if err := up.Validate(); err != nil {
			return nil, &Error{Kind: KindInvalidParameter, Message: "parameter for file upload incomplete", Cause: err}
		}
		body, contentType, err := encodeMultipart(up)
		if err != nil {
			return nil, &Error{Kind: KindOtherError, Cause: err}
		}
		req, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return nil, &Error{Kind: KindOtherError, Cause: err}
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	}

	if len(r.Params) > 0 {
		target += "?" + r.Params.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		payload := r.Body
		if m, ok := payload.(Mappable); ok {
			payload = m.ToMap()
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Kind: KindOtherError, Cause: fmt.Errorf("encode body: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &Error{Kind: KindOtherError, Cause: err}
	}
	if body != nil || len(r.Params) > 0 {
		req.Header.Set("Content-Type", jsonContentType)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(up *Upload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(up.FieldName), quoteEscaper.Replace(up.FileName)))
	h.Set("Content-Type", up.MimeType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(up.Contents); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// classify maps an HTTP status and body onto the response envelope
// contract.
func classify(status int, data []byte) (gjson.Result, error) {
	switch status {
	case http.StatusOK:
		if len(bytes.TrimSpace(data)) == 0 {
			return gjson.Result{}, errInvalidServerResponse(StatusEmptyResponse)
		}
		if !gjson.ValidBytes(data) {
			return gjson.Result{}, errUnexpectedResponse("response is not JSON")
		}
		env := gjson.ParseBytes(data)
		st := env.Get("status")
		if st.Type != gjson.String {
			return gjson.Result{}, errUnexpectedResponse("response has no status")
		}
		if st.Str != "success" {
			return gjson.Result{}, errServer(env.Get("code").String(), env.Get("message").String())
		}
		return env.Get("result"), nil
	case http.StatusForbidden:
		return gjson.Result{}, &Error{Kind: KindUnauthorizedAccess}
	case 0:
		return gjson.Result{}, errInvalidServerResponse(StatusUnavailable)
	default:
		return gjson.Result{}, errInvalidServerResponse(status)
	}
}

func requestOne[T any](ctx context.Context, c *Client, r Request, dec Decoder[T]) (T, error) {
	res, err := c.Do(ctx, r)
	if err != nil {
		var zero T
		return zero, err
	}
	return dec(res), nil
}

// requestMany decodes an array result. Any other result yields an empty
// slice.
func requestMany[T any](ctx context.Context, c *Client, r Request, dec Decoder[T]) ([]T, error) {
	res, err := c.Do(ctx, r)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if !res.IsArray() {
		return out, nil
	}
	res.ForEach(func(_, v gjson.Result) bool {
		out = append(out, dec(v))
		return true
	})
	return out, nil
}

// fetch downloads a plain resource such as a binary URL. The response is
// not an envelope.
func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errInvalidParameter(fmt.Sprintf("bad url %q", rawURL))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errNetwork(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errInvalidServerResponse(resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errNetwork(err)
	}
	return data, nil
}
