package clip

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dam2452/ranchbot/pkg/types"
)

var episodeCodeRe = regexp.MustCompile(`(?i)^S(\d{1,2})E(\d{1,3})$`)

// ParseEpisodeCode parses the SxxEyy form into season and episode
// numbers.
func ParseEpisodeCode(code string) (season, episode int, err error) {
	m := episodeCodeRe.FindStringSubmatch(strings.TrimSpace(code))
	if m == nil {
		return 0, 0, types.NewError(types.KindValidation,
			fmt.Sprintf("invalid episode code %q, expected SxxEyy", code))
	}
	season, _ = strconv.Atoi(m[1])
	episode, _ = strconv.Atoi(m[2])
	if season == 0 || episode == 0 {
		return 0, 0, types.NewError(types.KindValidation,
			fmt.Sprintf("invalid episode code %q, season and episode start at 1", code))
	}
	return season, episode, nil
}

// ParseTimecode parses MM:SS, MM:SS.ms, HH:MM:SS or HH:MM:SS.ms into
// seconds.
func ParseTimecode(tc string) (float64, error) {
	fields := strings.Split(strings.TrimSpace(tc), ":")
	if len(fields) < 2 || len(fields) > 3 {
		return 0, invalidTimecode(tc)
	}

	var hours int
	if len(fields) == 3 {
		h, err := strconv.Atoi(fields[0])
		if err != nil || h < 0 {
			return 0, invalidTimecode(tc)
		}
		hours = h
		fields = fields[1:]
	}

	minutes, err := strconv.Atoi(fields[0])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, invalidTimecode(tc)
	}

	seconds, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || seconds < 0 || seconds >= 60 {
		return 0, invalidTimecode(tc)
	}

	return float64(hours)*3600 + float64(minutes)*60 + seconds, nil
}

// FormatTimecode renders seconds as MM:SS.d or HH:MM:SS.d.
func FormatTimecode(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := seconds - float64(h*3600+m*60)
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%04.1f", h, m, s)
	}
	return fmt.Sprintf("%02d:%04.1f", m, s)
}

func invalidTimecode(tc string) error {
	return types.NewError(types.KindValidation,
		fmt.Sprintf("invalid timecode %q, expected MM:SS.ms or HH:MM:SS.ms", tc))
}
