package codec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// durationPattern accepts "[-][DD ][[HH:]MM:]ss[.uuuuuu]".
var durationPattern = regexp.MustCompile(`^(?:(?P<sign>-)?(?P<days>\d+) (?:days?, )?)?(?P<neg>-)?(?:(?P<hours>\d+):)??(?:(?P<minutes>\d+):)?(?P<seconds>\d+)(?:[.,](?P<micro>\d{1,6})\d{0,6})?$`)

// Duration returns a codec for durations in "[DD] [HH:[MM:]]ss[.uuuuuu]" form. Go duration
// strings ("1h30m") are accepted on input too.
func Duration() Codec[string, time.Duration] { return durationCodec{} }

type durationCodec struct{}

func (durationCodec) Formats() []string { return []string{"[DD] [HH:[MM:]]ss[.uuuuuu]"} }

func (durationCodec) Decode(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		return 0, ErrFormat
	}
	group := func(name string) string { return m[durationPattern.SubexpIndex(name)] }
	num := func(name string) int64 {
		v := group(name)
		if v == "" {
			return 0
		}
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	var us int64
	if micro := group("micro"); micro != "" {
		us, _ = strconv.ParseInt(micro+strings.Repeat("0", 6-len(micro)), 10, 64)
	}
	clock := time.Duration(num("hours"))*time.Hour +
		time.Duration(num("minutes"))*time.Minute +
		time.Duration(num("seconds"))*time.Second +
		time.Duration(us)*time.Microsecond
	if group("neg") != "" {
		clock = -clock
	}
	days := time.Duration(num("days")) * 24 * time.Hour
	if group("sign") != "" {
		days = -days
	}
	return days + clock, nil
}

// Encode renders "D HH:MM:SS[.uuuuuu]", omitting the day part when it is zero.
func (durationCodec) Encode(d time.Duration) (string, error) {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	sec := d / time.Second
	us := (d - sec*time.Second) / time.Microsecond
	out := fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
	if us > 0 {
		out += fmt.Sprintf(".%06d", us)
	}
	if days > 0 {
		out = fmt.Sprintf("%d %s", days, out)
	}
	return sign + out, nil
}
