package rpc

import (
	"net/http"

	"connectrpc.com/connect"
)

const (
	FileServiceName    = "wizard.v1.FileService"
	ArchiveServiceName = "wizard.v1.ArchiveService"
)

// Procedure paths.
const (
	FileServiceGenerateFilesProcedure    = "/" + FileServiceName + "/GenerateFiles"
	FileServiceListFilesProcedure        = "/" + FileServiceName + "/ListFiles"
	FileServiceDeleteFilesProcedure      = "/" + FileServiceName + "/DeleteFiles"
	FileServiceDeletePhaseFilesProcedure = "/" + FileServiceName + "/DeletePhaseFiles"
	ArchiveServiceCreateArchiveProcedure = "/" + ArchiveServiceName + "/CreateArchive"
)

// CodecOption makes connect speak plain JSON structs. Clients need it too.
func CodecOption() connect.Option {
	return connect.WithCodec(jsonCodec{})
}

// NewFileServiceHandler returns the mount path and handler for FileService.
func NewFileServiceHandler(h *FileHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{CodecOption()}, opts...)
	routes := map[string]http.Handler{
		FileServiceGenerateFilesProcedure:    connect.NewUnaryHandler(FileServiceGenerateFilesProcedure, h.GenerateFiles, opts...),
		FileServiceListFilesProcedure:        connect.NewUnaryHandler(FileServiceListFilesProcedure, h.ListFiles, opts...),
		FileServiceDeleteFilesProcedure:      connect.NewUnaryHandler(FileServiceDeleteFilesProcedure, h.DeleteFiles, opts...),
		FileServiceDeletePhaseFilesProcedure: connect.NewUnaryHandler(FileServiceDeletePhaseFilesProcedure, h.DeletePhaseFiles, opts...),
	}
	return "/" + FileServiceName + "/", dispatch(routes)
}

// NewArchiveServiceHandler returns the mount path and handler for ArchiveService.
func NewArchiveServiceHandler(h *ArchiveHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{CodecOption()}, opts...)
	routes := map[string]http.Handler{
		ArchiveServiceCreateArchiveProcedure: connect.NewUnaryHandler(ArchiveServiceCreateArchiveProcedure, h.CreateArchive, opts...),
	}
	return "/" + ArchiveServiceName + "/", dispatch(routes)
}

func dispatch(routes map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routes[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}
