package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trackitnow-backend/internal/types"
)

// Client talks to the notification service over its REST API.
type Client struct {
	httpClient *http.Client
	baseAPI    string
}

func NewClient(baseAPI string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseAPI:    strings.TrimRight(baseAPI, "/"),
	}
}

// ---- Helpers ----

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseAPI+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(method, path, resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(method, path string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e types.ErrorResponse
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return fmt.Errorf("notification api %s %s failed (%d): %s", method, path, resp.StatusCode, e.Error)
	}
	return fmt.Errorf("notification api %s %s failed (%d): %s", method, path, resp.StatusCode, strings.TrimSpace(string(b)))
}

// ---- Operations ----

// NotifyUser sends a parcel status notification to one user.
func (c *Client) NotifyUser(ctx context.Context, userID, message, parcelID string) (types.MessageResponse, error) {
	var out types.MessageResponse
	err := c.do(ctx, http.MethodPost, "/notifications/user", types.NotifyRequest{
		UserID:   userID,
		ParcelID: parcelID,
		Type:     types.NotificationParcelStatus,
		Message:  message,
	}, &out)
	return out, err
}

// NotifyRole sends a mission notification to every user holding role.
func (c *Client) NotifyRole(ctx context.Context, role, message, parcelID string) (types.MessageResponse, error) {
	var out types.MessageResponse
	err := c.do(ctx, http.MethodPost, "/notifications/role", types.NotifyRequest{
		Role:     role,
		ParcelID: parcelID,
		Type:     types.NotificationMission,
		Message:  message,
	}, &out)
	return out, err
}

// NotifySystem broadcasts a system notification to every user.
func (c *Client) NotifySystem(ctx context.Context, message string) (types.MessageResponse, error) {
	var out types.MessageResponse
	err := c.do(ctx, http.MethodPost, "/notifications/system", types.NotifyRequest{
		Type:    types.NotificationSystem,
		Message: message,
	}, &out)
	return out, err
}

// NotifyParcel records a notification attached to a parcel.
func (c *Client) NotifyParcel(ctx context.Context, parcelID, message string) (types.MessageResponse, error) {
	var out types.MessageResponse
	err := c.do(ctx, http.MethodPost, "/notifications/parcel", types.NotifyRequest{
		ParcelID: parcelID,
		Type:     types.NotificationParcelStatus,
		Message:  message,
	}, &out)
	return out, err
}

func (c *Client) ListForUser(ctx context.Context, userID string) ([]types.Notification, error) {
	var out []types.Notification
	err := c.do(ctx, http.MethodGet, "/notifications/"+url.PathEscape(userID), nil, &out)
	return out, err
}

func (c *Client) MarkRead(ctx context.Context, notificationID string) error {
	return c.do(ctx, http.MethodPatch, "/notifications/"+url.PathEscape(notificationID)+"/read", nil, nil)
}
