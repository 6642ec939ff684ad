// Package backend talks to the HomeRenovationHub API, the authority for user
// records. The session manager never calls it directly; the sign-in service
// does, and hands the returned User to the manager.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/apperror"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/auth"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/model"
)

const serviceName = "backend API"

// maxErrorBody caps how much of an error response is read for the message.
const maxErrorBody = 4 << 10

// Client is an HTTP/JSON client for the backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New returns a client for the API at baseURL (e.g. "http://localhost:5000").
// A nil httpClient gets one with the given timeout.
func New(baseURL string, httpClient *http.Client, timeout time.Duration, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// identityRequest is the body of POST /api/auth/firebase.
type identityRequest struct {
	IDToken     string `json:"idToken"`
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// apiError is the error body the backend sends with non-2xx responses.
type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ExchangeIdentity posts a federated identity to the backend, which verifies
// the ID token and returns the canonical User (creating it on first sign-in).
func (c *Client) ExchangeIdentity(ctx context.Context, identity *auth.FederatedIdentity) (*model.User, error) {
	if identity == nil {
		return nil, apperror.ValidationFailed("identity", "identity must not be nil")
	}

	body := identityRequest{
		IDToken:     identity.IDToken,
		UID:         identity.UID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		PhotoURL:    identity.PhotoURL,
	}

	var user model.User
	if err := c.do(ctx, http.MethodPost, "/api/auth/firebase", body, &user); err != nil {
		return nil, fmt.Errorf("backend: exchanging identity (uid=%s): %w", identity.UID, err)
	}

	c.logger.Debug("identity exchanged",
		slog.String("uid", identity.UID),
		slog.Int64("userID", user.ID),
	)
	c.checkUserType(&user)
	return &user, nil
}

// GetUser fetches the current record for a user.
func (c *Client) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/api/users/"+strconv.FormatInt(id, 10), nil, &user); err != nil {
		return nil, fmt.Errorf("backend: fetching user %d: %w", id, err)
	}
	c.checkUserType(&user)
	return &user, nil
}

// checkUserType warns about a userType this client does not know. The user
// is still returned; the backend stays the authority on roles.
func (c *Client) checkUserType(user *model.User) {
	if user.UserType.Valid() {
		return
	}
	c.logger.Warn("backend returned unknown user type",
		slog.Int64("userID", user.ID),
		slog.String("userType", string(user.UserType)),
	)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return apperror.Unavailable(serviceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Unavailable(serviceName, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// statusError maps a non-2xx response to an apperror category.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := ""
	var e apiError
	if json.Unmarshal(raw, &e) == nil {
		msg = e.Message
		if msg == "" {
			msg = e.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperror.Unauthorized(msg)
	case http.StatusNotFound:
		return &apperror.AppError{Err: apperror.ErrNotFound, Message: msg}
	case http.StatusConflict:
		return &apperror.AppError{Err: apperror.ErrConflict, Message: msg}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperror.ValidationFailed("", msg)
	default:
		return apperror.Unavailable(serviceName, fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}
}
