package convert

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

const ffmpegBinary = "ffmpeg"

var (
	durationPattern = regexp.MustCompile(`Duration: (\d{2}):(\d{2}):(\d{2}\.\d{2})`)
	timePattern     = regexp.MustCompile(`time=(\d{2}):(\d{2}):(\d{2}\.\d{2})`)
)

// buildFFmpegArgs assembles the fixed transcoder invocation shape:
// input, target audio bitrate, target container format, optional overwrite,
// output.
func buildFFmpegArgs(inputPath, bitrate, format string, overwrite bool, outputPath string) []string {
	args := []string{
		"-i", inputPath,
		"-b:a", bitrate,
		"-f", format,
	}
	if overwrite {
		args = append(args, "-y")
	}
	return append(args, outputPath)
}

// scanProgress reads ffmpeg's diagnostic stream line by line. The total
// duration is captured once (first match wins); every position match after
// that reports min(100, position/duration*100) to onPercent. Blocks until
// the stream closes, i.e. until the subprocess exits.
func scanProgress(r io.Reader, onPercent func(float64)) {
	scanner := bufio.NewScanner(r)
	scanner.Split(splitByNewlineOrCR)
	totalSeconds := 0.0

	for scanner.Scan() {
		line := scanner.Text()

		if totalSeconds == 0 {
			if m := durationPattern.FindStringSubmatch(line); m != nil {
				totalSeconds = timestampSeconds(m[1], m[2], m[3])
			}
		}
		if totalSeconds <= 0 || onPercent == nil {
			continue
		}
		if m := timePattern.FindStringSubmatch(line); m != nil {
			current := timestampSeconds(m[1], m[2], m[3])
			pct := current / totalSeconds * 100
			if pct > 100 {
				pct = 100
			}
			onPercent(pct)
		}
	}
}

// splitByNewlineOrCR treats carriage returns as line breaks too; ffmpeg
// repaints its status line with bare CRs.
func splitByNewlineOrCR(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func timestampSeconds(h, m, s string) float64 {
	hours, _ := strconv.ParseFloat(h, 64)
	minutes, _ := strconv.ParseFloat(m, 64)
	seconds, _ := strconv.ParseFloat(s, 64)
	return hours*3600 + minutes*60 + seconds
}

// ExitError reports a transcoder subprocess that terminated unsuccessfully.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("ffmpeg conversion failed with exit code %d", e.Code)
}
