package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go-voicemaster/internal/logging"

	"github.com/valyala/fasthttp"
)

var (
	ErrRateLimited = errors.New("rate limited")
	// ErrNotConnected is returned when the member is not in voice.
	ErrNotConnected  = errors.New("member is not connected to voice")
	ErrUnknownMember = errors.New("unknown member")
)

const (
	codeUnknownMember      = 10007
	codeTargetNotConnected = 40032
	defaultRequestTimeout  = 5 * time.Second
	routeModifyMember      = "modify_member"
)

// APIError is a non-2xx answer from the REST API.
type APIError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord api status %d (code %d): %s", e.Status, e.Code, e.Message)
}

// MemberClient performs the member-scoped voice actions (move, disconnect,
// server mute) over the fasthttp pool.
type MemberClient struct {
	httpPool    *HTTPPool
	rateLimiter *RateLimitMonitor
	token       string
	baseURL     string
}

func NewMemberClient(httpPool *HTTPPool, rateLimiter *RateLimitMonitor, token, baseURL string) *MemberClient {
	return &MemberClient{
		httpPool:    httpPool,
		rateLimiter: rateLimiter,
		token:       token,
		baseURL:     baseURL,
	}
}

// MoveMember moves a connected member into channelID.
func (mc *MemberClient) MoveMember(ctx context.Context, guildID, memberID, channelID string) error {
	return mc.modifyMember(ctx, guildID, memberID, map[string]interface{}{"channel_id": channelID})
}

// DisconnectMember drops a member from voice.
func (mc *MemberClient) DisconnectMember(ctx context.Context, guildID, memberID string) error {
	return mc.modifyMember(ctx, guildID, memberID, map[string]interface{}{"channel_id": nil})
}

func (mc *MemberClient) SetServerMute(ctx context.Context, guildID, memberID string, mute bool) error {
	return mc.modifyMember(ctx, guildID, memberID, map[string]interface{}{"mute": mute})
}

func (mc *MemberClient) modifyMember(ctx context.Context, guildID, memberID string, payload map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !mc.rateLimiter.CanExecute(routeModifyMember, guildID) {
		return fmt.Errorf("%w: retry in %s", ErrRateLimited, mc.rateLimiter.RetryAfter(routeModifyMember, guildID).Round(time.Millisecond))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/guilds/%s/members/%s", mc.baseURL, url.PathEscape(guildID), url.PathEscape(memberID)))
	req.Header.SetMethod(fasthttp.MethodPatch)
	req.Header.Set("Authorization", "Bot "+mc.token)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	start := time.Now()
	client := mc.httpPool.GetClient()
	if deadline, ok := ctx.Deadline(); ok {
		err = client.DoDeadline(req, resp, deadline)
	} else {
		err = client.DoTimeout(req, resp, defaultRequestTimeout)
	}
	if err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to modify member %s: %w", memberID, err)
	}

	mc.rateLimiter.UpdateFromFastHTTPResponse(resp, routeModifyMember, guildID)

	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		logging.Debug("[DISPATCH] PATCH member %s in guild %s: %d in %s", memberID, guildID, status, time.Since(start))
		return nil
	}
	if status == fasthttp.StatusTooManyRequests {
		return ErrRateLimited
	}

	apiErr := &APIError{Status: status}
	_ = json.Unmarshal(resp.Body(), apiErr)
	switch apiErr.Code {
	case codeTargetNotConnected:
		return fmt.Errorf("%w: %v", ErrNotConnected, apiErr)
	case codeUnknownMember:
		return fmt.Errorf("%w: %v", ErrUnknownMember, apiErr)
	}
	return apiErr
}
