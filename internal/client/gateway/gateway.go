// Package gateway sends requests to protected endpoints with the stored
// access token and transparently refreshes it once when the server answers
// 401. Concurrent 401s share a single refresh call.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophfeed/internal/client/broadcast"
	"github.com/dmitrijs2005/gophfeed/internal/client/tokens"
	"github.com/dmitrijs2005/gophfeed/internal/common"
	"github.com/dmitrijs2005/gophfeed/internal/logging"
	"golang.org/x/sync/singleflight"
)

const (
	refreshPath = "/user/refresh"
	refreshKey  = "refresh"
)

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Gateway struct {
	baseURL string
	client  Doer
	tokens  *tokens.Manager
	bus     broadcast.Bus
	origin  string
	logger  logging.Logger

	// OnExpired runs after a failed refresh has cleared the session.
	OnExpired func()

	group singleflight.Group
}

// New builds a Gateway. The same client is used for resource requests and
// for the refresh call; the refresh call itself is never retried.
func New(baseURL string, client Doer, tm *tokens.Manager, bus broadcast.Bus, origin string, l logging.Logger) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		tokens:  tm,
		bus:     bus,
		origin:  origin,
		logger:  l.With("module", "gateway"),
	}
}

// Do sends req with the current access token. On the first 401 it refreshes
// the token and replays req exactly once; a second 401 is returned as is.
func (g *Gateway) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		body = b
	}

	pair, err := g.tokens.GetStoredTokens(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := g.send(ctx, req, body, pair.AccessToken)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	drain(resp)

	access, err := g.refresh(ctx, pair.AccessToken)
	if err != nil {
		return nil, err
	}
	return g.send(ctx, req, body, access)
}

func (g *Gateway) send(ctx context.Context, orig *http.Request, body []byte, access string) (*http.Response, error) {
	req := orig.Clone(ctx)
	if body != nil {
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentLength = int64(len(body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	if access != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+access)
	} else {
		req.Header.Del(common.AuthorizationHeader)
	}
	return g.client.Do(req)
}

// EnsureFresh refreshes ahead of time when the stored access token is close
// to expiry. It does nothing when there is no session.
func (g *Gateway) EnsureFresh(ctx context.Context) error {
	pair, err := g.tokens.GetStoredTokens(ctx)
	if err != nil {
		return err
	}
	if pair.RefreshToken == "" || !g.tokens.ShouldRefresh(pair.AccessToken) {
		return nil
	}
	_, err = g.refresh(ctx, pair.AccessToken)
	return err
}

// refresh returns a new access token. stale is the token the caller's
// request was rejected with; if another caller already replaced it, the
// stored token is returned without contacting the server.
func (g *Gateway) refresh(ctx context.Context, stale string) (string, error) {
	ch := g.group.DoChan(refreshKey, func() (any, error) {
		// waiters share this call, so one caller's cancellation must not fail the rest
		ctx := context.WithoutCancel(ctx)

		pair, err := g.tokens.GetStoredTokens(ctx)
		if err != nil {
			return nil, err
		}
		if pair.AccessToken != "" && pair.AccessToken != stale {
			return pair.AccessToken, nil
		}
		access, err := g.callRefresh(ctx, pair.RefreshToken)
		if err != nil {
			g.expire(ctx, err)
			return nil, err
		}
		if err := g.tokens.UpdateAccessToken(ctx, pair.RefreshToken, access); err != nil {
			return nil, err
		}
		g.logger.Debug(ctx, "access token refreshed")
		return access, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			g.logger.Debug(ctx, "joined in-flight refresh")
		}
		return res.Val.(string), nil
	}
}

func (g *Gateway) callRefresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", common.Auth(common.ErrNoRefreshToken, "")
	}

	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+refreshPath, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("refresh response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", common.FromResponse(resp.StatusCode, data)
	}

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(data, &out); err != nil || out.AccessToken == "" {
		return "", common.Auth(common.ErrInvalidToken, "malformed refresh response")
	}
	return out.AccessToken, nil
}

// expire ends the local session after a failed refresh.
func (g *Gateway) expire(ctx context.Context, cause error) {
	g.logger.Info(ctx, "session expired", "error", cause)

	if err := g.tokens.ClearTokens(ctx); err != nil {
		g.logger.Error(ctx, "clear tokens failed", "error", err)
	}
	if g.bus != nil {
		e := broadcast.Event{Type: broadcast.EventSessionExpired, Origin: g.origin, At: time.Now()}
		if err := g.bus.Publish(ctx, e); err != nil {
			g.logger.Warn(ctx, "publish session-expired failed", "error", err)
		}
	}
	if g.OnExpired != nil {
		g.OnExpired()
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
