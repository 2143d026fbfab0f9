package model

import (
	"fmt"
	"strings"
)

// Quality selects a fixed audio-bitrate / video-resolution pair.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

type qualitySetting struct {
	audioBitrate string
	videoCap     string
}

var qualitySettings = map[Quality]qualitySetting{
	QualityLow:    {audioBitrate: "128k", videoCap: "360p"},
	QualityMedium: {audioBitrate: "192k", videoCap: "480p"},
	QualityHigh:   {audioBitrate: "320k", videoCap: "720p"},
}

// ParseQuality validates a raw quality flag value.
func ParseQuality(raw string) (Quality, error) {
	q := Quality(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := qualitySettings[q]; !ok {
		return "", fmt.Errorf("invalid quality %q (expected low, medium, or high)", raw)
	}
	return q, nil
}

// AudioBitrate returns the ffmpeg-style bitrate for the tier, e.g. "192k".
func (q Quality) AudioBitrate() string {
	return qualitySettings[q].audioBitrate
}

// VideoCap returns the resolution ceiling for the tier, e.g. "480p".
func (q Quality) VideoCap() string {
	return qualitySettings[q].videoCap
}

// VideoHeight returns the numeric height of the tier's resolution ceiling.
func (q Quality) VideoHeight() int {
	switch q {
	case QualityLow:
		return 360
	case QualityHigh:
		return 720
	default:
		return 480
	}
}

var audioFormats = map[string]bool{
	"mp3":  true,
	"wav":  true,
	"opus": true,
	"m4a":  true,
}

// ParseAudioFormat validates a raw audio format flag value.
func ParseAudioFormat(raw string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(raw))
	if !audioFormats[f] {
		return "", fmt.Errorf("invalid audio format %q (expected mp3, wav, opus, or m4a)", raw)
	}
	return f, nil
}
