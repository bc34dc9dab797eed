package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType represents the type of a source file.
type FileType string

const (
	// FileTypeVideo represents a video container.
	FileTypeVideo FileType = "video"
	// FileTypeAudio represents an audio-only file.
	FileTypeAudio FileType = "audio"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// VideoExtensions maps file extensions to whether they are accepted video sources.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpg":  true,
	".mpeg": true,
	".3gp":  true,
	".ts":   true,
	".m2ts": true,
	".vob":  true,
	".ogv":  true,
}

// AudioExtensions maps file extensions to whether they are accepted audio sources.
var AudioExtensions = map[string]bool{
	".mp3":  true,
	".aac":  true,
	".flac": true,
	".wav":  true,
	".ogg":  true,
	".opus": true,
	".m4a":  true,
	".wma":  true,
}

// TypeOf classifies a path by its extension.
func TypeOf(path string) FileType {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case VideoExtensions[ext]:
		return FileTypeVideo
	case AudioExtensions[ext]:
		return FileTypeAudio
	default:
		return FileTypeOther
	}
}

// IsTranscodable reports whether the path looks like something ffmpeg
// can take as a transcode input.
func IsTranscodable(path string) bool {
	t := TypeOf(path)
	return t == FileTypeVideo || t == FileTypeAudio
}
