package handler

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GTD-web/ems-backend-sub024/internal/core/errkind"
)

func toStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch errkind.Of(err) {
	case errkind.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case errkind.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case errkind.KindStateConflict:
		return status.Error(codes.FailedPrecondition, err.Error())
	case errkind.KindConflict:
		return status.Error(codes.Aborted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
