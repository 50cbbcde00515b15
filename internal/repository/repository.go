// Package repository talks to the activities API, the board's only source
// of truth. It uses net/http directly and keeps the server's key order when
// reading the activities object.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Shivanand-hulikatti/activity-board/internal/model"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// ErrUnreachable is returned when the API could not be reached or answered
// with a body that could not be parsed.
var ErrUnreachable = errors.New("activities api unreachable")

// RejectedError is returned when the API answered with a non-2xx status.
type RejectedError struct {
	Status int
	Detail string
}

func (e *RejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("activities api rejected request: status %d", e.Status)
	}
	return fmt.Sprintf("activities api rejected request: status %d: %s", e.Status, e.Detail)
}

// RequestIDHeader carries the correlation id to the API.
const RequestIDHeader = "X-Request-ID"

const maxBodyBytes = 1 << 20 // 1 MB limit

// ActivityRepository reads and mutates activities over HTTP.
type ActivityRepository struct {
	baseURL string
	client  *http.Client
}

// NewActivityRepository constructs an ActivityRepository. A nil client uses
// http.DefaultClient.
func NewActivityRepository(baseURL string, client *http.Client) *ActivityRepository {
	if client == nil {
		client = http.DefaultClient
	}
	return &ActivityRepository{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// List returns all activities in the order the API sent them.
func (r *ActivityRepository) List(ctx context.Context) ([]model.Activity, error) {
	status, body, err := r.do(ctx, http.MethodGet, "/activities")
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &RejectedError{Status: status, Detail: decodeDetail(body)}
	}
	return decodeActivities(body)
}

// Signup registers email for the named activity.
func (r *ActivityRepository) Signup(ctx context.Context, activity, email string) (*model.MessageResponse, error) {
	return r.mutate(ctx, http.MethodPost, SignupPath(activity, email))
}

// Unregister removes email from the named activity.
func (r *ActivityRepository) Unregister(ctx context.Context, activity, email string) (*model.MessageResponse, error) {
	return r.mutate(ctx, http.MethodDelete, ParticipantsPath(activity, email))
}

// SignupPath builds /activities/{name}/signup?email={email}.
func SignupPath(activity, email string) string {
	return "/activities/" + url.PathEscape(activity) + "/signup?email=" + EscapeComponent(email)
}

// ParticipantsPath builds /activities/{name}/participants?email={email}.
func ParticipantsPath(activity, email string) string {
	return "/activities/" + url.PathEscape(activity) + "/participants?email=" + EscapeComponent(email)
}

// EscapeComponent percent-encodes a query value, writing spaces as %20.
func EscapeComponent(s string) string {
	// QueryEscape has already turned literal '+' into %2B, so every '+' left
	// stands for a space.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func (r *ActivityRepository) mutate(ctx context.Context, method, path string) (*model.MessageResponse, error) {
	status, body, err := r.do(ctx, method, path)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		var envelope struct {
			Detail json.RawMessage `json:"detail"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("%w: decode error body: %v", ErrUnreachable, err)
		}
		return nil, &RejectedError{Status: status, Detail: rawString(envelope.Detail)}
	}

	var msg model.MessageResponse
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnreachable, err)
	}
	return &msg, nil
}

func (r *ActivityRepository) do(ctx context.Context, method, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID(ctx))

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s %s: %v", ErrUnreachable, method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %v", ErrUnreachable, err)
	}
	return resp.StatusCode, body, nil
}

// requestID reuses the inbound chi request id so board and API logs line up.
func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.New().String()
}

func decodeActivities(body []byte) ([]model.Activity, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: activities body is not valid JSON", ErrUnreachable)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: activities body is not an object", ErrUnreachable)
	}

	activities := []model.Activity{}
	// A repeated key keeps its first position and takes the last value.
	seen := make(map[string]int)
	var decodeErr error
	root.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			decodeErr = fmt.Errorf("%w: activity %q is not an object", ErrUnreachable, key.String())
			return false
		}
		var a model.Activity
		if err := json.Unmarshal([]byte(value.Raw), &a); err != nil {
			decodeErr = fmt.Errorf("%w: decode activity %q: %v", ErrUnreachable, key.String(), err)
			return false
		}
		a.Name = key.String()
		if i, ok := seen[a.Name]; ok {
			activities[i] = a
			return true
		}
		seen[a.Name] = len(activities)
		activities = append(activities, a)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return activities, nil
}

func decodeDetail(body []byte) string {
	return gjson.GetBytes(body, "detail").String()
}

// rawString returns the JSON value as a string when it is one. FastAPI sends
// validation failures as an array, which has no single message to show.
func rawString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
