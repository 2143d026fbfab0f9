package fetch

import (
	"errors"
	"regexp"

	"yt-media-downloader/internal/model"
)

var (
	// ErrInvalidSource marks a source string matching neither supported shape.
	ErrInvalidSource = errors.New("invalid source URL")
	// ErrNoMembers marks a collection that expanded to zero items.
	ErrNoMembers = errors.New("no items found in collection")
)

var (
	singlePattern     = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com/watch\?v=|youtu\.be/)[A-Za-z0-9_-]{11}`)
	collectionPattern = regexp.MustCompile(`^(https?://)?(www\.)?youtube\.com/playlist\?list=[A-Za-z0-9_-]+`)
)

// Classify matches the raw source string against the two supported shapes.
func Classify(source string) (model.Kind, bool) {
	switch {
	case singlePattern.MatchString(source):
		return model.KindSingle, true
	case collectionPattern.MatchString(source):
		return model.KindCollection, true
	default:
		return "", false
	}
}
