package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Upload stores an image under folder and returns its public URL.
func (c *Client) Upload(ctx context.Context, folder, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	if err := w.WriteField("folder", folder); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out struct {
		URL string `json:"url"`
	}
	if err := c.send(req, "/upload", &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("upload %s: response has no url", filename)
	}
	return out.URL, nil
}
