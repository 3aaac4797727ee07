package server

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"google.golang.org/genproto/googleapis/rpc/errdetails"

	"github.com/at-ishikawa/lexipack/internal/languagepack"
	"github.com/at-ishikawa/lexipack/internal/profile"
)

const errorDomain = "lexipack"

var errorReasons = []struct {
	err    error
	code   connect.Code
	reason string
}{
	{languagepack.ErrPackNotFound, connect.CodeNotFound, "PACK_NOT_FOUND"},
	{languagepack.ErrPackNotInstalled, connect.CodeNotFound, "PACK_NOT_INSTALLED"},
	{languagepack.ErrAlreadyInstalled, connect.CodeAlreadyExists, "ALREADY_INSTALLED"},
	{languagepack.ErrInsufficientStorage, connect.CodeResourceExhausted, "INSUFFICIENT_STORAGE"},
	{languagepack.ErrPackInUse, connect.CodeFailedPrecondition, "PACK_IN_USE"},
	{languagepack.ErrMissingLanguagePacks, connect.CodeFailedPrecondition, "MISSING_LANGUAGE_PACKS"},
	{languagepack.ErrVerificationFailed, connect.CodeDataLoss, "VERIFICATION_FAILED"},
	{languagepack.ErrDownloadFailed, connect.CodeUnavailable, "DOWNLOAD_FAILED"},
	{languagepack.ErrManagerClosed, connect.CodeUnavailable, "MANAGER_CLOSED"},
	{profile.ErrInvalidProfile, connect.CodeInvalidArgument, "INVALID_PROFILE"},
	{context.Canceled, connect.CodeCanceled, "CANCELLED"},
	{context.DeadlineExceeded, connect.CodeDeadlineExceeded, "DEADLINE_EXCEEDED"},
}

// connectError maps err to a connect error with an ErrorInfo detail naming
// the failure. Unknown errors become CodeInternal.
func connectError(err error) *connect.Error {
	code, reason := connect.CodeInternal, "INTERNAL"
	for _, known := range errorReasons {
		if errors.Is(err, known.err) {
			code, reason = known.code, known.reason
			break
		}
	}
	connectErr := connect.NewError(code, err)
	if detail, detailErr := connect.NewErrorDetail(&errdetails.ErrorInfo{
		Reason: reason,
		Domain: errorDomain,
	}); detailErr == nil {
		connectErr.AddDetail(detail)
	}
	return connectErr
}

// invalidArgument reports a missing or malformed request field.
func invalidArgument(field, description string) *connect.Error {
	connectErr := connect.NewError(connect.CodeInvalidArgument, errors.New(field+": "+description))
	if detail, detailErr := connect.NewErrorDetail(&errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{
			{Field: field, Description: description},
		},
	}); detailErr == nil {
		connectErr.AddDetail(detail)
	}
	return connectErr
}
