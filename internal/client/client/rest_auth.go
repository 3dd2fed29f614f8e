package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/dmitrijs2005/puffpass/internal/common"
)

type credentials struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

func (c *RESTClient) SignIn(ctx context.Context, email, password string) (models.Session, error) {
	const op = "auth.sign_in"

	var resp sessionResponse
	err := c.send(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   authPrefix + "token",
		query:  url.Values{"grant_type": {"password"}},
		body:   credentials{Email: strings.TrimSpace(email), Password: password},
		auth:   true,
	}, &resp)
	if err != nil {
		return models.Session{}, err
	}
	return c.sessionFrom(op, resp)
}

func (c *RESTClient) SignUp(ctx context.Context, email, password, username string) (models.Session, error) {
	const op = "auth.sign_up"

	var data map[string]any
	if username != "" {
		data = map[string]any{"username": username}
	}

	var resp sessionResponse
	err := c.send(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   authPrefix + "signup",
		body:   credentials{Email: strings.TrimSpace(email), Password: password, Data: data},
		auth:   true,
	}, &resp)
	if err != nil {
		return models.Session{}, err
	}
	return c.sessionFrom(op, resp)
}

func (c *RESTClient) Refresh(ctx context.Context, refreshToken string) (models.Session, error) {
	const op = "auth.refresh"
	if refreshToken == "" {
		return models.Session{}, &common.Error{Op: op, Kind: common.KindUnauthorized, Message: "no refresh token"}
	}

	var resp sessionResponse
	err := c.send(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   authPrefix + "token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": refreshToken},
		auth:   true,
	}, &resp)
	if err != nil {
		// A rejected refresh token means the session is over.
		if common.KindOf(err) == common.KindValidation {
			return models.Session{}, &common.Error{Op: op, Kind: common.KindUnauthorized, Message: common.Detail(err), Err: err}
		}
		return models.Session{}, err
	}
	return c.sessionFrom(op, resp)
}

func (c *RESTClient) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return c.send(ctx, request{
		op:     "auth.sign_out",
		method: http.MethodPost,
		path:   authPrefix + "logout",
		auth:   true,
		bearer: accessToken,
	}, nil)
}

func (c *RESTClient) sessionFrom(op string, resp sessionResponse) (models.Session, error) {
	s := resp.session(c.now())
	if s.UserID == "" {
		return models.Session{}, &common.Error{Op: op, Kind: common.KindDecodeFailure, Message: "response carries no user"}
	}
	return s, nil
}
