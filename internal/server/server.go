package server

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	LookupServiceName  = "lexipack.v1.LookupService"
	PackServiceName    = "lexipack.v1.PackService"
	ProfileServiceName = "lexipack.v1.ProfileService"

	LookupWordProcedure       = "/" + LookupServiceName + "/LookupWord"
	TranslateContextProcedure = "/" + LookupServiceName + "/TranslateContext"
	SuggestProcedure          = "/" + LookupServiceName + "/Suggest"

	ListAvailableProcedure  = "/" + PackServiceName + "/ListAvailable"
	ListInstalledProcedure  = "/" + PackServiceName + "/ListInstalled"
	StorageStatsProcedure   = "/" + PackServiceName + "/StorageStats"
	CheckStorageProcedure   = "/" + PackServiceName + "/CheckStorage"
	StartDownloadProcedure  = "/" + PackServiceName + "/StartDownload"
	CancelDownloadProcedure = "/" + PackServiceName + "/CancelDownload"
	DownloadStatusProcedure = "/" + PackServiceName + "/DownloadStatus"
	DeletePackProcedure     = "/" + PackServiceName + "/DeletePack"

	GetProfileProcedure    = "/" + ProfileServiceName + "/GetProfile"
	UpdateProfileProcedure = "/" + ProfileServiceName + "/UpdateProfile"
)

// CodecOption makes a connect handler or client speak the JSON codec used by
// every procedure.
func CodecOption() connect.Option {
	return connect.WithCodec(jsonCodec{})
}

func handle[Req, Res any](mux *http.ServeMux, procedure string, fn func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error)) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, CodecOption()))
}

// NewMux registers every procedure.
func NewMux(lookups *LookupHandler, packs *PackHandler, profiles *ProfileHandler) *http.ServeMux {
	mux := http.NewServeMux()

	handle(mux, LookupWordProcedure, lookups.LookupWord)
	handle(mux, TranslateContextProcedure, lookups.TranslateContext)
	handle(mux, SuggestProcedure, lookups.Suggest)

	handle(mux, ListAvailableProcedure, packs.ListAvailable)
	handle(mux, ListInstalledProcedure, packs.ListInstalled)
	handle(mux, StorageStatsProcedure, packs.StorageStats)
	handle(mux, CheckStorageProcedure, packs.CheckStorage)
	handle(mux, StartDownloadProcedure, packs.StartDownload)
	handle(mux, CancelDownloadProcedure, packs.CancelDownload)
	handle(mux, DownloadStatusProcedure, packs.DownloadStatus)
	handle(mux, DeletePackProcedure, packs.DeletePack)

	handle(mux, GetProfileProcedure, profiles.GetProfile)
	handle(mux, UpdateProfileProcedure, profiles.UpdateProfile)
	return mux
}

// NewHandler serves mux over h2c behind CORS for allowedOrigins.
func NewHandler(mux http.Handler, allowedOrigins []string) http.Handler {
	return CORSMiddleware(h2c.NewHandler(mux, &http2.Server{}), allowedOrigins)
}

// CORSMiddleware answers preflight requests and echoes allowed origins. The
// origin "*" allows any origin.
func CORSMiddleware(next http.Handler, allowedOrigins []string) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimSuffix(o, "/")] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowed[origin] || allowed["*"]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
