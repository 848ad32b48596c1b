package app

import (
	"path/filepath"
	"strings"

	"github.com/vk/scrollstory/internal/config"
	"github.com/vk/scrollstory/internal/hcladapter"
	"github.com/vk/scrollstory/internal/yamladapter"
)

// loaderForPath picks a manifest loader by file extension. HCL is the
// default format.
func loaderForPath(path string) config.Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamladapter.NewLoader()
	default:
		return hcladapter.NewLoader()
	}
}
