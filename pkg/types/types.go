// Package types provides core types shared by the cherry build packages
package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileType is the tag that routes a source to its handlers
type FileType string

const (
	FileTypeJavaScript FileType = "js"
	FileTypeCSS        FileType = "css"
	FileTypeLess       FileType = "less"
	FileTypeSoy        FileType = "soy"
	FileTypeManifest   FileType = "cherry"
)

// FileTypeFromPath derives the type tag from a path or URL extension.
func FileTypeFromPath(path string) FileType {
	return FileType(strings.TrimPrefix(filepath.Ext(path), "."))
}

// BuildMode describes which kind of artifacts a build produces
type BuildMode string

const (
	BuildModeProduction BuildMode = "production"
	BuildModeDev        BuildMode = "dev"
	BuildModeClean      BuildMode = "clean"
)

// CacheDownload controls how remote files are refreshed in the local cache
type CacheDownload string

const (
	CacheDownloadAuto  CacheDownload = "auto"
	CacheDownloadForce CacheDownload = "force"
	CacheDownloadLocal CacheDownload = "local"
)

// LogLevel is the numeric verbosity threshold given on the command line
type LogLevel int

const (
	LogLevelQuiet   LogLevel = 0
	LogLevelDefault LogLevel = 1
	LogLevelVerbose LogLevel = 2
)

// String returns the logrus level name used for this verbosity
func (l LogLevel) String() string {
	switch l {
	case LogLevelQuiet:
		return "warn"
	case LogLevelVerbose:
		return "debug"
	default:
		return "info"
	}
}

// Validate checks that the level is one of the known values
func (l LogLevel) Validate() error {
	if l < LogLevelQuiet || l > LogLevelVerbose {
		return fmt.Errorf("log level must be between %d and %d, got %d", LogLevelQuiet, LogLevelVerbose, l)
	}
	return nil
}

// BuildStatus represents the outcome of a build
type BuildStatus string

const (
	BuildStatusSucceeded BuildStatus = "succeeded"
	BuildStatusFailed    BuildStatus = "failed"
)
