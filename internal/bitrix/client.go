// Package bitrix implements the typed client for the external chat
// provider's webhook API.
package bitrix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aiqa-platform/helpdesk-backend/internal/model"
	"github.com/aiqa-platform/helpdesk-backend/pkg/logger"
)

// Client is the chat provider client. All calls are network round trips and
// must be invoked under a caller-supplied context deadline.
type Client struct {
	httpClient *http.Client
	endpoints  Endpoints
	// activeMarker is the lowercased locale-specific substring that marks a
	// conversation title as open/active.
	activeMarker  string
	retryAttempts int
	retryBackoff  time.Duration
	logger        *logger.Logger
}

// Options configures a Client.
type Options struct {
	Endpoints     Endpoints
	ActiveMarker  string
	RetryAttempts int
	RetryBackoff  time.Duration
	HTTPClient    *http.Client
}

// NewClient creates a provider client.
func NewClient(opts Options, log *logger.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	attempts := opts.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	return &Client{
		httpClient:    httpClient,
		endpoints:     opts.Endpoints,
		activeMarker:  strings.ToLower(opts.ActiveMarker),
		retryAttempts: attempts,
		retryBackoff:  backoff,
		logger:        log,
	}
}

type recentListEnvelope struct {
	Result *struct {
		Items []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"items"`
	} `json:"result"`
}

// ListActiveConversations returns the identifiers of provider conversations
// in the "chat" namespace whose title signals an open/active state. The
// title check is a case-insensitive substring match against the configured
// marker.
func (c *Client) ListActiveConversations(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "im.recent.list", c.endpoints.recentListURL(), nil)
	if err != nil {
		return nil, err
	}

	var envelope recentListEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: im.recent.list: %v", ErrProtocol, err)
	}
	if envelope.Result == nil {
		return nil, fmt.Errorf("%w: im.recent.list", ErrDataMissing)
	}

	seen := make(map[string]struct{})
	for _, item := range envelope.Result.Items {
		if !strings.HasPrefix(item.ID, "chat") {
			continue
		}
		if !strings.Contains(strings.ToLower(item.Title), c.activeMarker) {
			continue
		}
		seen[item.ID] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type dialogEnvelope struct {
	Result *struct {
		ChatID   json.Number `json:"chat_id"`
		Messages []struct {
			ID       int64       `json:"id"`
			AuthorID json.Number `json:"author_id"`
			Date     string      `json:"date"`
			Text     string      `json:"text"`
		} `json:"messages"`
		Users []struct {
			ID   json.Number `json:"id"`
			Name string      `json:"name"`
		} `json:"users"`
	} `json:"result"`
}

// FetchMessages returns up to limit most recent messages of a conversation
// together with its participant roster. A conversation with zero messages is
// a valid result, not an error.
func (c *Client) FetchMessages(ctx context.Context, chatID string, limit int) (*model.Conversation, error) {
	params := url.Values{}
	params.Set("DIALOG_ID", chatID)
	params.Set("LIMIT", strconv.Itoa(limit))

	body, err := c.get(ctx, "im.dialog.messages.get", c.endpoints.dialogFetchURL(), params)
	if err != nil {
		return nil, err
	}

	var envelope dialogEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: im.dialog.messages.get: %v", ErrProtocol, err)
	}
	if envelope.Result == nil {
		return nil, fmt.Errorf("%w: im.dialog.messages.get", ErrDataMissing)
	}

	conv := &model.Conversation{ChatID: chatID}
	for _, m := range envelope.Result.Messages {
		authorID, _ := m.AuthorID.Int64()
		conv.Messages = append(conv.Messages, model.Message{
			ID:        m.ID,
			AuthorID:  int(authorID),
			Timestamp: parseProviderDate(m.Date),
			Text:      m.Text,
		})
	}
	for _, u := range envelope.Result.Users {
		id, _ := u.ID.Int64()
		conv.Participants = append(conv.Participants, model.Participant{
			ID:   int(id),
			Name: u.Name,
		})
	}
	return conv, nil
}

type userGetEnvelope struct {
	Result []model.ExternalUserRecord `json:"result"`
}

// ResolveUserIdentity looks up a provider user by numeric id or email.
// At least one identifier must be supplied.
func (c *Client) ResolveUserIdentity(ctx context.Context, bitrixUserID *int, email string) (*model.ExternalUserRecord, error) {
	if bitrixUserID == nil && email == "" {
		return nil, fmt.Errorf("%w: either bitrix_user_id or email is required", ErrInvalidArgument)
	}

	filter := make(map[string]string)
	if bitrixUserID != nil {
		filter["ID"] = strconv.Itoa(*bitrixUserID)
	}
	if email != "" {
		filter["EMAIL"] = email
	}

	body, err := c.postJSON(ctx, "user.get", c.endpoints.userGetURL(), map[string]any{"filter": filter})
	if err != nil {
		return nil, err
	}

	var envelope userGetEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: user.get: %v", ErrProtocol, err)
	}
	if len(envelope.Result) == 0 {
		return nil, fmt.Errorf("%w: no provider user matches the given filter", ErrNotFound)
	}
	return &envelope.Result[0], nil
}

type openLinesEnvelope struct {
	Result *struct {
		ManagerList []int `json:"manager_list"`
	} `json:"result"`
}

// ResolveResponsibleOperators returns the provider-designated operator ids
// accountable for a conversation. An empty list is a valid result; a
// response without the result envelope is a protocol error.
func (c *Client) ResolveResponsibleOperators(ctx context.Context, chatID string) ([]int, error) {
	params := url.Values{}
	params.Set("DIALOG_ID", chatID)

	body, err := c.get(ctx, "imopenlines.dialog.get", c.endpoints.openLinesURL(), params)
	if err != nil {
		return nil, err
	}

	var envelope openLinesEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: imopenlines.dialog.get: %v", ErrProtocol, err)
	}
	if envelope.Result == nil {
		return nil, fmt.Errorf("%w: imopenlines.dialog.get", ErrProtocol)
	}
	return envelope.Result.ManagerList, nil
}

// Ping performs a lightweight reachability probe, used by the readiness
// endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListActiveConversations(ctx)
	return err
}

func (c *Client) get(ctx context.Context, method, rawURL string, params url.Values) ([]byte, error) {
	return c.do(ctx, method, func() (*http.Request, error) {
		target := rawURL
		if len(params) > 0 {
			target = rawURL + "?" + params.Encode()
		}
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	})
}

func (c *Client) postJSON(ctx context.Context, method, rawURL string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s payload: %v", ErrInvalidArgument, method, err)
	}
	return c.do(ctx, method, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
}

// do executes a request with bounded retry. Transport failures and 5xx
// responses are retried with exponential backoff and jitter; 4xx application
// errors are never retried.
func (c *Client) do(ctx context.Context, method string, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.retryBackoff << (attempt - 1)
			jitter := time.Duration(rand.Int63n(int64(backoff)/2 + 1))
			select {
			case <-time.After(backoff + jitter):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, method, ctx.Err())
			}
		}

		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("%w: build %s request: %v", ErrUnavailable, method, sanitizeTransportError(err))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = sanitizeTransportError(err)
			c.logger.Warn("provider request failed",
				zap.String("method", method),
				zap.String("endpoint", c.endpoints.Redacted()),
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr),
			)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if readErr != nil {
				lastErr = readErr
				continue
			}
			return body, nil
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			c.logger.Warn("provider returned server error",
				zap.String("method", method),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			continue
		default:
			return nil, fmt.Errorf("%w: %s: status %d", ErrUnavailable, method, resp.StatusCode)
		}
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, method, lastErr)
}

// sanitizeTransportError strips the request URL from a transport error. The
// URL carries the secret path segments, so only the operation and the
// underlying cause may reach logs or callers.
func sanitizeTransportError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %v", urlErr.Op, urlErr.Err)
	}
	return err
}

// parseProviderDate parses the provider's timestamp formats. An unparseable
// date yields the zero time; callers treat such messages as oldest.
func parseProviderDate(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
