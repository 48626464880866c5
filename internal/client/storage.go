package client

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

const listPageSize = 100

func storagePath(bucket string, rest ...string) string {
	p := "/staff/storage/" + url.PathEscape(bucket)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// List returns one level of bucket below prefix
func (c *Client) List(ctx context.Context, bucket, prefix string, opts ListOptions) Result[[]StorageObject] {
	q := url.Values{}
	if prefix != "" {
		q.Set("prefix", prefix)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.SortBy != "" {
		q.Set("sort_by", opts.SortBy)
	}
	if opts.Desc {
		q.Set("order", "desc")
	}
	return call[[]StorageObject](ctx, c, request{method: http.MethodGet, path: storagePath(bucket), query: q, auth: true})
}

// ListAllFilesRecursive walks every folder below root one page at a time
func (c *Client) ListAllFilesRecursive(ctx context.Context, bucket, root string) Result[[]StorageFile] {
	files := []StorageFile{}

	var walk func(dir string) *Error
	walk = func(dir string) *Error {
		for offset := 0; ; offset += listPageSize {
			page := c.List(ctx, bucket, dir, ListOptions{Limit: listPageSize, Offset: offset, SortBy: "name"})
			if !page.OK {
				return page.Err
			}
			for _, obj := range page.Data {
				full := obj.Name
				if dir != "" {
					full = dir + "/" + obj.Name
				}
				if obj.IsFolder() {
					if err := walk(full); err != nil {
						return err
					}
					continue
				}
				files = append(files, StorageFile{Path: full, Name: obj.Name})
			}
			if len(page.Data) < listPageSize {
				return nil
			}
		}
	}

	if err := walk(strings.Trim(root, "/")); err != nil {
		return failure[[]StorageFile](err)
	}
	return success(files)
}

// PublicURL is the unsigned download address of an object in a public bucket
func (c *Client) PublicURL(bucket, objectPath string) string {
	parts := strings.Split(strings.Trim(path.Clean("/"+objectPath), "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return c.baseURL + "/storage/public/" + url.PathEscape(bucket) + "/" + strings.Join(parts, "/")
}

func (c *Client) CreateSignedURL(ctx context.Context, bucket, objectPath string, expiresIn time.Duration) Result[SignedURL] {
	return call[SignedURL](ctx, c, request{
		method: http.MethodPost,
		path:   storagePath(bucket, "sign"),
		body: map[string]interface{}{
			"path":       objectPath,
			"expires_in": int(expiresIn.Seconds()),
		},
		auth: true,
	})
}

// Upload streams r to bucket/objectPath as a multipart form
func (c *Client) Upload(ctx context.Context, bucket, objectPath string, r io.Reader, opts UploadOptions) Result[UploadedObject] {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeUploadForm(mw, objectPath, r, opts)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	res := call[UploadedObject](ctx, c, request{
		method:      http.MethodPost,
		path:        storagePath(bucket),
		raw:         pr,
		contentType: mw.FormDataContentType(),
		auth:        true,
	})
	// unblock the writer if the request ended before reading everything
	pr.Close()
	return res
}

func writeUploadForm(mw *multipart.Writer, objectPath string, r io.Reader, opts UploadOptions) error {
	if err := mw.WriteField("path", objectPath); err != nil {
		return err
	}
	if err := mw.WriteField("upsert", strconv.FormatBool(opts.Upsert)); err != nil {
		return err
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(path.Base(objectPath))))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, r)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// Remove deletes objects and returns how many existed
func (c *Client) Remove(ctx context.Context, bucket string, paths []string) Result[int] {
	res := call[struct {
		Removed int `json:"removed"`
	}](ctx, c, request{
		method: http.MethodDelete,
		path:   storagePath(bucket),
		body:   map[string][]string{"paths": paths},
		auth:   true,
	})
	if !res.OK {
		return failure[int](res.Err)
	}
	return success(res.Data.Removed)
}
