package server

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/at-ishikawa/lexipack/internal/languagepack"
	"github.com/at-ishikawa/lexipack/internal/manifest"
)

// PackManager is the part of languagepack.Manager the server exposes.
type PackManager interface {
	ListAvailable() []manifest.PackManifest
	ListInstalled(ctx context.Context) ([]languagepack.InstalledLanguagePack, error)
	StorageStats(ctx context.Context) (languagepack.StorageStats, error)
	CheckStorageSpace(ctx context.Context, packID string) (languagepack.SpaceCheck, error)
	StartDownload(ctx context.Context, packID string, onProgress languagepack.ProgressFunc) (*languagepack.DownloadHandle, error)
	CancelDownload(packID string) error
	Download(packID string) *languagepack.DownloadHandle
	InstallState(ctx context.Context, packID string) (languagepack.InstallState, error)
	DeletePack(ctx context.Context, packID string, options languagepack.DeleteOptions) (languagepack.DeleteResult, error)
}

type Empty struct{}

type PackRequest struct {
	PackID string `json:"pack_id"`
}

type DeletePackRequest struct {
	PackID           string `json:"pack_id"`
	IncludeCompanion bool   `json:"include_companion,omitempty"`
}

type ListAvailableResponse struct {
	Packs []manifest.PackManifest `json:"packs"`
}

type ListInstalledResponse struct {
	Packs []languagepack.InstalledLanguagePack `json:"packs"`
}

// DownloadStatusResponse carries the in-flight download of a pack, if any,
// and the install state of the pack and its companion.
type DownloadStatusResponse struct {
	PackID       string                             `json:"pack_id"`
	InstallState languagepack.InstallState          `json:"install_state"`
	Download     *languagepack.LanguagePackDownload `json:"download,omitempty"`
}

// PackHandler serves lexipack.v1.PackService.
type PackHandler struct {
	packs PackManager
}

func NewPackHandler(packs PackManager) *PackHandler {
	return &PackHandler{packs: packs}
}

func packID(id string) (string, *connect.Error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", invalidArgument("pack_id", "must not be empty")
	}
	return id, nil
}

func (h *PackHandler) ListAvailable(
	_ context.Context,
	_ *connect.Request[Empty],
) (*connect.Response[ListAvailableResponse], error) {
	packs := h.packs.ListAvailable()
	if packs == nil {
		packs = []manifest.PackManifest{}
	}
	return connect.NewResponse(&ListAvailableResponse{Packs: packs}), nil
}

func (h *PackHandler) ListInstalled(
	ctx context.Context,
	_ *connect.Request[Empty],
) (*connect.Response[ListInstalledResponse], error) {
	packs, err := h.packs.ListInstalled(ctx)
	if err != nil {
		return nil, connectError(err)
	}
	if packs == nil {
		packs = []languagepack.InstalledLanguagePack{}
	}
	return connect.NewResponse(&ListInstalledResponse{Packs: packs}), nil
}

func (h *PackHandler) StorageStats(
	ctx context.Context,
	_ *connect.Request[Empty],
) (*connect.Response[languagepack.StorageStats], error) {
	stats, err := h.packs.StorageStats(ctx)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&stats), nil
}

func (h *PackHandler) CheckStorage(
	ctx context.Context,
	req *connect.Request[PackRequest],
) (*connect.Response[languagepack.SpaceCheck], error) {
	id, invalid := packID(req.Msg.PackID)
	if invalid != nil {
		return nil, invalid
	}
	check, err := h.packs.CheckStorageSpace(ctx, id)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&check), nil
}

// StartDownload starts the download and returns its first snapshot. Progress
// is polled with DownloadStatus.
func (h *PackHandler) StartDownload(
	ctx context.Context,
	req *connect.Request[PackRequest],
) (*connect.Response[languagepack.LanguagePackDownload], error) {
	id, invalid := packID(req.Msg.PackID)
	if invalid != nil {
		return nil, invalid
	}
	handle, err := h.packs.StartDownload(ctx, id, nil)
	if err != nil {
		return nil, connectError(err)
	}
	snapshot := handle.Snapshot()
	return connect.NewResponse(&snapshot), nil
}

func (h *PackHandler) CancelDownload(
	_ context.Context,
	req *connect.Request[PackRequest],
) (*connect.Response[Empty], error) {
	id, invalid := packID(req.Msg.PackID)
	if invalid != nil {
		return nil, invalid
	}
	if err := h.packs.CancelDownload(id); err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (h *PackHandler) DownloadStatus(
	ctx context.Context,
	req *connect.Request[PackRequest],
) (*connect.Response[DownloadStatusResponse], error) {
	id, invalid := packID(req.Msg.PackID)
	if invalid != nil {
		return nil, invalid
	}
	state, err := h.packs.InstallState(ctx, id)
	if err != nil {
		return nil, connectError(err)
	}
	response := &DownloadStatusResponse{PackID: id, InstallState: state}
	if handle := h.packs.Download(id); handle != nil {
		snapshot := handle.Snapshot()
		response.Download = &snapshot
	}
	return connect.NewResponse(response), nil
}

func (h *PackHandler) DeletePack(
	ctx context.Context,
	req *connect.Request[DeletePackRequest],
) (*connect.Response[languagepack.DeleteResult], error) {
	id, invalid := packID(req.Msg.PackID)
	if invalid != nil {
		return nil, invalid
	}
	result, err := h.packs.DeletePack(ctx, id, languagepack.DeleteOptions{IncludeCompanion: req.Msg.IncludeCompanion})
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&result), nil
}
