package queryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	dashboard "github.com/goliatone/go-querydash/components/dashboard"
)

// Upload implements dashboard.DatasetStore. The multipart body is buffered so
// progress can be reported against a known length.
func (c *HTTPClient) Upload(ctx context.Context, file dashboard.UploadFile, meta dashboard.DatasetMetadata, onProgress dashboard.ProgressFunc) (dashboard.Dataset, error) {
	if file.Reader == nil {
		return dashboard.Dataset{}, fmt.Errorf("queryclient: upload %s: missing file reader", file.Name)
	}
	body, contentType, err := multipartBody(file, meta)
	if err != nil {
		return dashboard.Dataset{}, err
	}
	total := int64(body.Len())
	req, err := c.newRequest(ctx, http.MethodPost, "/datasets/upload", &progressReader{
		reader:     body,
		total:      total,
		onProgress: onProgress,
	})
	if err != nil {
		return dashboard.Dataset{}, err
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", contentType)

	var resp datasetResponse
	if err := c.send(req, &resp); err != nil {
		return dashboard.Dataset{}, err
	}
	return resp.toDataset(), nil
}

func multipartBody(file dashboard.UploadFile, meta dashboard.DatasetMetadata) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, "", fmt.Errorf("queryclient: build upload: %w", err)
	}
	if _, err := io.Copy(part, file.Reader); err != nil {
		return nil, "", fmt.Errorf("queryclient: read %s: %w", file.Name, err)
	}
	name := meta.Name
	if name == "" {
		name = file.Name
	}
	fields := map[string]string{"name": name}
	if meta.Description != "" {
		fields["description"] = meta.Description
	}
	if len(meta.Tags) > 0 {
		tags, err := json.Marshal(meta.Tags)
		if err != nil {
			return nil, "", fmt.Errorf("queryclient: encode tags: %w", err)
		}
		fields["tags"] = string(tags)
	}
	for _, key := range []string{"name", "description", "tags"} {
		value, ok := fields[key]
		if !ok {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("queryclient: build upload: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("queryclient: build upload: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// progressReader reports whole-percent progress as the body is consumed.
type progressReader struct {
	reader     io.Reader
	total      int64
	read       int64
	last       int
	onProgress dashboard.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.reader.Read(b)
	p.read += int64(n)
	if p.onProgress != nil && p.total > 0 {
		percent := int(p.read * 100 / p.total)
		if percent > p.last {
			p.last = percent
			p.onProgress(percent)
		}
	}
	return n, err
}
