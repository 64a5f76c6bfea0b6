package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bangunrumah/konsultasi-engine/internal/models"
)

// Client talks to the consultation backend. Every response uses the same
// envelope: {"code": int, "data": ..., "error": "..."} where code 200 means
// success; anything else becomes an *APIError.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	Token   string
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		HTTP:    &http.Client{Timeout: timeout},
		BaseURL: baseURL,
		Token:   token,
	}
}

type envelope struct {
	Code  int             `json:"code"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req)
}

// send executes the request and unwraps the response envelope. Transport
// faults come back wrapped in ErrNetwork so callers can tell them apart
// from an explicit rejection.
func (c *Client) send(req *http.Request) (json.RawMessage, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	var env envelope
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrNetwork, err)
	}

	if env.Code != 200 {
		return nil, &APIError{Code: env.Code, Message: env.Error}
	}
	return env.Data, nil
}

// Consultation fetches one consultation by id.
func (c *Client) Consultation(ctx context.Context, id string) (*models.Consultation, error) {
	data, err := c.do(ctx, http.MethodGet, "/consultations/"+id, nil)
	if err != nil {
		return nil, err
	}
	var out models.Consultation
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: malformed consultation: %v", ErrNetwork, err)
	}
	return &out, nil
}

// RoomHistory fetches the full message history of a room. History is always
// fetched fresh; the engine keeps no cache across sessions.
func (c *Client) RoomHistory(ctx context.Context, roomID string) ([]models.Message, error) {
	data, err := c.do(ctx, http.MethodGet, "/rooms/"+roomID+"/messages", nil)
	if err != nil {
		return nil, err
	}
	var out []models.Message
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: malformed history: %v", ErrNetwork, err)
	}
	return out, nil
}

type CreateConsultationRequest struct {
	ArchitectID         string                  `json:"architect_id"`
	Type                models.ConsultationType `json:"type"`
	Total               int64                   `json:"total"`
	StartDate           time.Time               `json:"start_date"`
	EndDate             time.Time               `json:"end_date"`
	Location            string                  `json:"location,omitempty"`
	LocationDescription string                  `json:"location_description,omitempty"`
}

func (c *Client) CreateConsultation(ctx context.Context, req CreateConsultationRequest) (*models.Consultation, error) {
	data, err := c.do(ctx, http.MethodPost, "/consultations", req)
	if err != nil {
		return nil, err
	}
	var out models.Consultation
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: malformed consultation: %v", ErrNetwork, err)
	}
	return &out, nil
}

// CancelConsultation cancels a booking with the given reason.
func (c *Client) CancelConsultation(ctx context.Context, id, reason string) error {
	_, err := c.do(ctx, http.MethodPost, "/consultations/"+id+"/cancel", map[string]string{"reason": reason})
	return err
}

// MarkExpired tells the backend the payment window lapsed client-side.
func (c *Client) MarkExpired(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPost, "/consultations/"+id+"/expire", nil)
	return err
}

// Repay re-opens payment after an invalid-proof cancellation.
func (c *Client) Repay(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPost, "/consultations/"+id+"/repay", nil)
	return err
}

// Reschedule books new dates on the same architect without a new payment.
func (c *Client) Reschedule(ctx context.Context, id string, start, end time.Time) error {
	_, err := c.do(ctx, http.MethodPost, "/consultations/"+id+"/reschedule", map[string]time.Time{
		"start_date": start,
		"end_date":   end,
	})
	return err
}
