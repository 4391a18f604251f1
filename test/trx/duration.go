package trx

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

var (
	// [-][d.]hh:mm[:ss[.fffffff]], the format used by TRX files.
	timeSpanRegexp = regexp.MustCompile(`^([-+])?(?:(\d*)[. ])?(\d+):(\d+)(?::(\d+)(\.\d*)?)?$`)
	isoRegexp      = regexp.MustCompile(`^([-+])?P(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)
)

// parseDuration parses a TRX time span or an ISO 8601 duration.
func parseDuration(value string) (time.Duration, bool) {
	if matches := timeSpanRegexp.FindStringSubmatch(value); matches != nil {
		days := atof(matches[2])
		hours := atof(matches[3])
		minutes := atof(matches[4])
		seconds := atof(matches[5])
		millis := math.Round(atof("0"+matches[6]) * 1000)

		d := time.Duration(days)*24*time.Hour +
			time.Duration(hours)*time.Hour +
			time.Duration(minutes)*time.Minute +
			time.Duration(seconds)*time.Second +
			time.Duration(millis)*time.Millisecond
		if matches[1] == "-" {
			d = -d
		}
		return d, true
	}

	if matches := isoRegexp.FindStringSubmatch(value); matches != nil && value != "P" && value != "PT" {
		seconds := atof(matches[2])*24*3600 + atof(matches[3])*3600 + atof(matches[4])*60 + atof(matches[5])
		d := time.Duration(math.Round(seconds*1000)) * time.Millisecond
		if matches[1] == "-" {
			d = -d
		}
		return d, true
	}

	return 0, false
}

// formatDuration renders a runner duration as mm:ss.SSS, the way the tree and the
// code lenses display it. Minutes wrap at an hour. Unusable values give an empty string.
func formatDuration(value string) string {
	d, ok := parseDuration(value)
	if !ok {
		return ""
	}

	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}

	return fmt.Sprintf("%02d:%02d.%03d", (ms/60000)%60, (ms/1000)%60, ms%1000)
}

func atof(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
