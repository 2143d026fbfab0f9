package ytdlp

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	rePct   = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)%`)
	reOf    = regexp.MustCompile(`\bof\s+(~\s*)?([0-9.]+[KMGT]?i?B)\b`)
	reSpeed = regexp.MustCompile(`\bat\s+([0-9.]+[KMGT]?i?B/s)`)
)

const (
	downloadPrefix     = "[download]"
	destinationMarker  = "Destination: "
	alreadyDownloaded  = " has already been downloaded"
	mergerPrefix       = "[Merger] Merging formats into \""
	extractAudioPrefix = "[ExtractAudio] Destination: "
)

// parseDestination extracts an output path from yt-dlp's informational
// lines. Later markers win: extraction and merging report the final file.
func parseDestination(line string) (string, bool) {
	l := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(l, extractAudioPrefix):
		return strings.TrimSpace(strings.TrimPrefix(l, extractAudioPrefix)), true
	case strings.HasPrefix(l, mergerPrefix):
		rest := strings.TrimPrefix(l, mergerPrefix)
		if idx := strings.LastIndex(rest, "\""); idx > 0 {
			return rest[:idx], true
		}
		return "", false
	case strings.HasPrefix(l, downloadPrefix):
		rest := strings.TrimSpace(strings.TrimPrefix(l, downloadPrefix))
		if strings.HasPrefix(rest, destinationMarker) {
			return strings.TrimSpace(strings.TrimPrefix(rest, destinationMarker)), true
		}
		if strings.HasSuffix(rest, alreadyDownloaded) {
			return strings.TrimSuffix(rest, alreadyDownloaded), true
		}
	}
	return "", false
}

// parseProgressLine extracts percent / total size / speed from a
// "[download]  42.5% of ~10.00MiB at 1.20MiB/s ETA 00:05" style line.
func parseProgressLine(line string) (ProgressUpdate, bool) {
	l := strings.TrimSpace(line)
	if !strings.HasPrefix(l, downloadPrefix) {
		return ProgressUpdate{}, false
	}
	var u ProgressUpdate
	matched := false

	if m := rePct.FindStringSubmatch(l); len(m) > 1 {
		u.PercentStr = m[1] + "%"
		matched = true
	}
	if m := reOf.FindStringSubmatch(l); len(m) > 2 {
		size := parseByteSize(m[2])
		if strings.TrimSpace(m[1]) == "~" {
			u.TotalEstimateBytes = size
		} else {
			u.TotalBytes = size
		}
		matched = true
	}
	if m := reSpeed.FindStringSubmatch(l); len(m) > 1 {
		u.Speed = m[1]
		matched = true
	}
	return u, matched
}

var byteUnits = map[string]int64{
	"B":   1,
	"KB":  1000,
	"KIB": 1024,
	"MB":  1000 * 1000,
	"MIB": 1024 * 1024,
	"GB":  1000 * 1000 * 1000,
	"GIB": 1024 * 1024 * 1024,
	"TB":  1000 * 1000 * 1000 * 1000,
	"TIB": 1024 * 1024 * 1024 * 1024,
}

func parseByteSize(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	idx := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if idx <= 0 {
		return 0
	}
	value, err := strconv.ParseFloat(s[:idx], 64)
	if err != nil {
		return 0
	}
	mult, ok := byteUnits[s[idx:]]
	if !ok {
		return 0
	}
	return int64(value * float64(mult))
}
