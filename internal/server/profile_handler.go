package server

import (
	"context"

	"connectrpc.com/connect"

	"github.com/at-ishikawa/lexipack/internal/profile"
)

type ProfileService interface {
	Get(ctx context.Context) (profile.Profile, error)
	Update(ctx context.Context, update profile.Update) (profile.Profile, error)
}

// ProfileHandler serves lexipack.v1.ProfileService.
type ProfileHandler struct {
	profiles ProfileService
}

func NewProfileHandler(profiles ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) GetProfile(
	ctx context.Context,
	_ *connect.Request[Empty],
) (*connect.Response[profile.Profile], error) {
	got, err := h.profiles.Get(ctx)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&got), nil
}

func (h *ProfileHandler) UpdateProfile(
	ctx context.Context,
	req *connect.Request[profile.Update],
) (*connect.Response[profile.Profile], error) {
	updated, err := h.profiles.Update(ctx, *req.Msg)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&updated), nil
}
