package client

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/puffpass/internal/common"
)

// apiError is the error body of both PostgREST and GoTrue.
type apiError struct {
	Code             json.RawMessage `json:"code"`
	Message          string          `json:"message"`
	Details          string          `json:"details"`
	Hint             string          `json:"hint"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Msg              string          `json:"msg"`
}

func (e apiError) text() string {
	for _, s := range []string{e.Message, e.ErrorDescription, e.Msg, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// statusKind maps an HTTP status to an error kind. Auth endpoints answer
// bad credentials with 400, which is a validation problem rather than a
// rejected data operation.
func statusKind(status int, auth bool) common.Kind {
	switch {
	case status == http.StatusUnauthorized:
		return common.KindUnauthorized
	case status == http.StatusNotFound:
		return common.KindNotFound
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return common.KindTransportTimeout
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable:
		return common.KindTransportOther
	case auth && (status == http.StatusBadRequest || status == http.StatusUnprocessableEntity):
		return common.KindValidation
	default:
		return common.KindRemoteRejected
	}
}

// responseError builds the error for a non-2xx response.
func responseError(op string, resp *http.Response, auth bool) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var ae apiError
	msg := ""
	if json.Unmarshal(body, &ae) == nil {
		msg = ae.text()
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = resp.Status
	}

	return &common.Error{
		Op:      op,
		Kind:    statusKind(resp.StatusCode, auth),
		Message: msg,
		Err:     &StatusError{Code: resp.StatusCode},
	}
}

// StatusError records the HTTP status of a failed response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return "http status " + strconv.Itoa(e.Code)
}
