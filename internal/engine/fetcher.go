package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tartampluch/go-addressbook/internal/config"
)

// DirectoryFetcher retrieves the full, unordered list of people.
// Implementations return a *TransportError on failure.
type DirectoryFetcher interface {
	FetchAll(ctx context.Context) ([]Person, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// usersResponse is the remote payload: a JSON object with the records under "items".
type usersResponse struct {
	Items []Person `json:"items"`
}

// HTTPFetcher implements DirectoryFetcher against the directory REST service.
type HTTPFetcher struct {
	Client  *http.Client
	BaseURL string
	Token   string // optional bearer token
}

// NewHTTPFetcher creates a fetcher for baseURL.
// The client has no global timeout: callers bound a fetch through its context.
func NewHTTPFetcher(baseURL, token string) *HTTPFetcher {
	return &HTTPFetcher{
		Client:  &http.Client{},
		BaseURL: baseURL,
		Token:   token,
	}
}

// FetchAll downloads GET {BaseURL}/users and decodes its items.
// It sanitizes the URL for logging purposes to avoid leaking sensitive tokens.
func (f *HTTPFetcher) FetchAll(ctx context.Context) ([]Person, error) {
	const op = "GET " + config.RouteUsers

	if f.BaseURL == "" {
		return nil, &TransportError{Op: op, Err: errors.New(config.ErrWebURLEmpty)}
	}

	u, err := url.Parse(strings.TrimRight(f.BaseURL, "/") + config.RouteUsers)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("%s: %w", config.ErrInvalidURL, err)}
	}

	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)}
	}

	safeURL := u.Scheme + "://" + u.Host + u.Path

	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompFetcher),
		slog.String(config.LogKeyURL, safeURL),
	)

	log.DebugContext(ctx, config.MsgFetchStart)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	req.Header.Set(config.HeaderAccept, config.MimeJSON)
	if f.Token != "" {
		req.Header.Set(config.HeaderAuthorization, config.BearerPrefix+f.Token)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("network error during fetch: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.Warn(config.MsgFetchStatus, slog.Int(config.LogKeyStatus, resp.StatusCode))
		return nil, &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("server returned unexpected status: %s", resp.Status),
		}
	}

	var payload usersResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, config.MaxHTTPResponseSize)).Decode(&payload); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("%s: %w", config.ErrDecode, err)}
	}

	// Only identity is checked here; bad birthdays must surface when sorting.
	for i, p := range payload.Items {
		if err := validate.StructPartial(p, "ID", "FirstName"); err != nil {
			return nil, &TransportError{Op: op, Err: fmt.Errorf("%s: item %d: %w", config.ErrRecordInvalid, i, err)}
		}
	}

	log.Info(config.MsgFetchDone, slog.Int(config.LogKeyCount, len(payload.Items)))
	return payload.Items, nil
}

// ValidatePerson checks a locally edited record before it reaches the cache.
func ValidatePerson(p Person) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%s: %w", config.ErrPersonInvalid, err)
	}
	return nil
}

// NewFetcher picks the fetcher matching the configured source mode.
func NewFetcher(s config.Settings) (DirectoryFetcher, error) {
	switch s.SourceMode {
	case config.SourceModeWeb:
		return NewHTTPFetcher(s.BaseURL, s.Token), nil
	case config.SourceModeLocal:
		return NewVCardFetcher(s.LocalPath), nil
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrModeUnsupport, s.SourceMode)
	}
}
