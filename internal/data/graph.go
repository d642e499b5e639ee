package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
)

// GraphConfig configures the Graph API client
type GraphConfig struct {
	BaseURL string // e.g. https://graph.instagram.com
	Version string // e.g. v21.0, may be empty
	Timeout time.Duration
	SendRPS float64 // outbound sends per second, <= 0 disables limiting
}

// GraphClient talks to the Graph API for profile lookups and replies.
// It implements repo.IdentityRepo and repo.OutboundSender.
type GraphClient struct {
	client  *resty.Client
	limiter *rate.Limiter
}

// GraphError is the error envelope returned by the Graph API
type GraphError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph api error (status %d, code %d, %s): %s", e.Status, e.Code, e.Type, e.Message)
}

type graphErrorEnvelope struct {
	Error *GraphError `json:"error"`
}

type graphProfile struct {
	Name           string `json:"name"`
	Username       string `json:"username"`
	ProfilePic     string `json:"profile_pic"`
	FollowersCount int    `json:"followers_count"`
}

// NewGraphClient creates a Graph API client
func NewGraphClient(cfg GraphConfig) *GraphClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Version != "" {
		base += "/" + strings.Trim(cfg.Version, "/")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	limit := rate.Inf
	burst := 1
	if cfg.SendRPS > 0 {
		limit = rate.Limit(cfg.SendRPS)
		burst = max(1, int(cfg.SendRPS))
	}

	return &GraphClient{
		client: resty.New().
			SetBaseURL(base).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json"),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// LookupProfile fetches the display identity of a sender
func (c *GraphClient) LookupProfile(ctx context.Context, senderID, accessToken string) (*domain.SenderProfile, error) {
	if senderID == "" {
		return nil, fmt.Errorf("empty sender id")
	}
	if accessToken == "" {
		return nil, fmt.Errorf("no access token for profile lookup")
	}

	var (
		profile graphProfile
		apiErr  graphErrorEnvelope
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("fields", "name,username,profile_pic,followers_count").
		SetQueryParam("access_token", accessToken).
		SetPathParam("id", senderID).
		SetResult(&profile).
		SetError(&apiErr).
		Get("/{id}")
	if err != nil {
		return nil, fmt.Errorf("profile lookup: %w", err)
	}
	if err := graphFailure(resp, &apiErr); err != nil {
		return nil, err
	}

	return &domain.SenderProfile{
		Name:           profile.Name,
		Username:       profile.Username,
		AvatarURL:      profile.ProfilePic,
		FollowersCount: profile.FollowersCount,
		Source:         domain.ProfileSourceRemote,
	}, nil
}

// SendDM sends a direct message from the account to recipientID
func (c *GraphClient) SendDM(ctx context.Context, account *domain.Account, recipientID, text string) error {
	body := map[string]any{
		"recipient": map[string]string{"id": recipientID},
		"message":   map[string]string{"text": text},
	}
	return c.post(ctx, account, "/{id}/messages", account.PlatformAccountID, body)
}

// ReplyComment replies publicly to a comment
func (c *GraphClient) ReplyComment(ctx context.Context, account *domain.Account, commentID, text string) error {
	return c.post(ctx, account, "/{id}/replies", commentID, map[string]string{"message": text})
}

func (c *GraphClient) post(ctx context.Context, account *domain.Account, path, id string, body any) error {
	if account == nil || account.AccessToken == "" {
		return fmt.Errorf("no access token for outbound send")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("outbound rate limiter: %w", err)
	}

	var apiErr graphErrorEnvelope
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(account.AccessToken).
		SetPathParam("id", id).
		SetBody(body).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return fmt.Errorf("outbound send: %w", err)
	}
	return graphFailure(resp, &apiErr)
}

func graphFailure(resp *resty.Response, env *graphErrorEnvelope) error {
	if !resp.IsError() {
		return nil
	}
	if env.Error != nil {
		env.Error.Status = resp.StatusCode()
		return env.Error
	}
	return &GraphError{Status: resp.StatusCode(), Message: resp.String()}
}
