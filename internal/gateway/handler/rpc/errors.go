package rpc

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"wizard/internal/archive"
	"wizard/internal/gateway/repository/filerecord"
)

func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	switch {
	case errors.As(err, &ce):
		return err
	case errors.Is(err, archive.ErrNoFiles), errors.Is(err, filerecord.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
