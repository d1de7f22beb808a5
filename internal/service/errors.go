package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/slicetally/internal/apperr"
)

// toConnectError maps application errors onto Connect codes. Internal
// details are not sent to the client.
func toConnectError(err error) error {
	switch apperr.CodeOf(err) {
	case apperr.CodeInvalidInput:
		return connect.NewError(connect.CodeInvalidArgument, errors.New(apperr.Message(err)))
	case apperr.CodeNotFound:
		return connect.NewError(connect.CodeNotFound, errors.New(apperr.Message(err)))
	default:
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}
}
