package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wizard/internal/gateway/handler"
	"wizard/internal/gateway/handler/rpc"
	"wizard/internal/gateway/middleware"
)

func NewMux(
	fileHandler *rpc.FileHandler,
	archiveHandler *rpc.ArchiveHandler,
	downloadHandler *handler.DownloadHandler,
	health http.Handler,
) http.Handler {
	mux := http.NewServeMux()

	// RPC Handlers
	mux.Handle(rpc.NewFileServiceHandler(fileHandler))
	mux.Handle(rpc.NewArchiveServiceHandler(archiveHandler))

	// Downloads
	mux.Handle("GET /projects/{projectID}/archive.zip", downloadHandler)

	// Ops
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /healthz", health)

	return middleware.CORS(mux)
}
