package api

import (
	"embed"
	"io/fs"
)

//go:embed static/*
var apiStaticFS embed.FS

// plotFS exposes a sub-filesystem rooted at static/.
var plotFS fs.FS = func() fs.FS { //nolint:gochecknoglobals // embedded assets
	sub, err := fs.Sub(apiStaticFS, "static")
	if err != nil {
		return apiStaticFS
	}
	return sub
}()
