package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
)

const maxUploadBytes = 10 << 20 // 10 MiB, sama dengan batas backend

// Upload describes a local file picked by the user.
type Upload struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// UploadPaymentProof submits proof-of-payment for a consultation as
// multipart/form-data. There is no automatic retry; a failed upload is
// surfaced for the user to retry manually.
func (c *Client) UploadPaymentProof(ctx context.Context, consultationID string, file Upload) error {
	_, err := c.multipart(ctx, "/consultations/"+consultationID+"/payment-proof",
		map[string]string{"consultation_id": consultationID}, file)
	return err
}

// UploadChatFile uploads an image/file attachment for a room and returns the
// hosted URL that replaces the optimistic placeholder's content.
func (c *Client) UploadChatFile(ctx context.Context, roomID string, file Upload) (string, error) {
	data, err := c.multipart(ctx, "/rooms/"+roomID+"/files",
		map[string]string{"room_id": roomID}, file)
	if err != nil {
		return "", err
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("%w: malformed upload response: %v", ErrNetwork, err)
	}
	return out.URL, nil
}

func (c *Client) multipart(ctx context.Context, path string, fields map[string]string, file Upload) (json.RawMessage, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}

	// hanya nama dasar, tanpa komponen direktori
	name := filepath.Base(strings.TrimSpace(file.Name))
	if name == "" || name == "." {
		name = "file"
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, io.LimitReader(file.Reader, maxUploadBytes)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.send(req)
}
