package authn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gridnet.org/internal/obs"
)

// Clerk authenticates against the Clerk frontend API using the native
// password sign-in flow.
type Clerk struct {
	domain string
	client *http.Client
	logger zerolog.Logger
}

// NewClerk builds a Clerk provider for the given instance domain, e.g.
// "https://example.clerk.accounts.dev".
func NewClerk(domain string, client *http.Client) *Clerk {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Clerk{
		domain: strings.TrimRight(domain, "/"),
		client: client,
		logger: obs.Component("authn.clerk"),
	}
}

type clerkSigninResponse struct {
	Response struct {
		CreatedSessionID string `json:"created_session_id"`
	} `json:"response"`
}

type clerkSessionResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
	Response struct {
		ID   string `json:"id"`
		User struct {
			ID                    string `json:"id"`
			FirstName             string `json:"first_name"`
			LastName              string `json:"last_name"`
			PrimaryEmailAddressID string `json:"primary_email_address_id"`
			EmailAddresses        []struct {
				ID           string `json:"id"`
				EmailAddress string `json:"email_address"`
			} `json:"email_addresses"`
		} `json:"user"`
	} `json:"response"`
}

func (c *Clerk) Signin(ctx context.Context, identifier, secret string) (*SigninResult, error) {
	form := url.Values{
		"strategy":   {"password"},
		"identifier": {identifier},
		"password":   {secret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.domain+"/v1/client/sign_ins?_is_native=true",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("Failed to call Clerk API 'Signin': [status=%d] %s", resp.StatusCode, resp.Status)
	}

	var body clerkSigninResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	result := &SigninResult{
		SessionID:          body.Response.CreatedSessionID,
		AuthorizationToken: resp.Header.Get("Authorization"),
	}
	c.logger.Trace().Str("identifier", identifier).Str("session_id", result.SessionID).Msg("signin ok")
	return result, nil
}

func (c *Clerk) GetSession(ctx context.Context, sessionID, authorizationToken string) (*SessionResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.domain+"/v1/client/sessions/"+url.PathEscape(sessionID)+"?_is_native=true", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", authorizationToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("Failed to call Clerk API 'Session': [%d] %s", resp.StatusCode, resp.Status)
	}

	var body clerkSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Errors) > 0 {
		message := "Session failed."
		for _, e := range body.Errors {
			message += "\n" + e.Message
		}
		return nil, fmt.Errorf("%s", message)
	}
	user := body.Response.User
	if user.ID == "" {
		return nil, fmt.Errorf("Unable to find clerk user with session id [%s].", sessionID)
	}

	email := ""
	for _, addr := range user.EmailAddresses {
		if addr.ID == user.PrimaryEmailAddressID {
			email = strings.ToLower(addr.EmailAddress)
			break
		}
	}
	if email == "" {
		return nil, errors.New("Missing required parameter [email_address].")
	}

	c.logger.Trace().Str("session_id", sessionID).Str("clerk_user_id", user.ID).Msg("get session ok")
	return &SessionResult{
		SessionID: body.Response.ID,
		User: Identity{
			UserID:       user.ID,
			EmailAddress: email,
			FirstName:    user.FirstName,
			LastName:     user.LastName,
		},
	}, nil
}
