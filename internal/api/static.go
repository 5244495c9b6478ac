package api

import (
	"net/http"
	"path"
)

// spaFileSystem serves the front-end bundle. Paths that name no file and
// carry no extension are client-side routes and get index.html. Missing
// assets stay 404.
type spaFileSystem struct {
	dir http.Dir
}

func newSPAFileSystem(root string) http.FileSystem {
	return spaFileSystem{dir: http.Dir(root)}
}

func (fs spaFileSystem) Open(name string) (http.File, error) {
	f, err := fs.dir.Open(name)
	if err == nil || path.Ext(name) != "" {
		return f, err
	}
	return fs.dir.Open("/index.html")
}
