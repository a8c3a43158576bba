package rotation

import (
	"time"
	"unicode/utf8"
)

// ExtractTimestamp returns the first date, with optional time of day, embedded
// in name. It accepts layouts such as 20240307, 2024-03-07, 2024_03_07T13:45,
// 2024.03.07-134501 and backup-202403071345.tar: four digits of year followed
// by two of month and two of day, then optionally two digits each of hour and
// minute and an optional two digits of second. Each pair of groups may be
// separated by at most one non-digit character.
//
// Calendar values are checked strictly and never clamped. A candidate with an
// impossible date is rejected and scanning resumes at the next offset. A valid
// date followed by an impossible time of day is rejected together with its
// digits, so no second date is read out of the same run. The returned time is in UTC. The boolean is false when name
// contains no valid timestamp.
func ExtractTimestamp(name string) (time.Time, bool) {
	for offset := 0; offset < len(name); {
		if !isDigit(name[offset]) {
			offset++
			continue
		}
		ts, ok, next := matchTimestampAt(name, offset)
		if ok {
			return ts, true
		}
		offset = next
	}
	return time.Time{}, false
}

// matchTimestampAt tries a timestamp starting at offset. On failure next is
// where scanning continues.
func matchTimestampAt(name string, offset int) (ts time.Time, ok bool, next int) {
	sc := digitScanner{s: name, pos: offset}

	year, ok := sc.number(4)
	if !ok {
		return time.Time{}, false, offset + 1
	}
	sc.delimiter()
	month, ok := sc.number(2)
	if !ok {
		return time.Time{}, false, offset + 1
	}
	sc.delimiter()
	day, ok := sc.number(2)
	if !ok {
		return time.Time{}, false, offset + 1
	}
	if !validDate(year, month, day) {
		return time.Time{}, false, offset + 1
	}

	hour, minute, second, present := sc.timeOfDay()
	if present && (hour > 23 || minute > 59 || second > 59) {
		next = sc.pos
		for next < len(name) && isDigit(name[next]) {
			next++
		}
		return time.Time{}, false, next
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), true, sc.pos
}

type digitScanner struct {
	s   string
	pos int
}

func (sc *digitScanner) number(width int) (int, bool) {
	if sc.pos+width > len(sc.s) {
		return 0, false
	}
	value := 0
	for i := 0; i < width; i++ {
		c := sc.s[sc.pos+i]
		if !isDigit(c) {
			return 0, false
		}
		value = value*10 + int(c-'0')
	}
	sc.pos += width
	return value, true
}

// delimiter consumes a single non-digit character, if one is next.
func (sc *digitScanner) delimiter() {
	if sc.pos >= len(sc.s) || isDigit(sc.s[sc.pos]) {
		return
	}
	_, size := utf8.DecodeRuneInString(sc.s[sc.pos:])
	sc.pos += size
}

// timeOfDay reads the optional hour/minute[/second] block that follows a date.
// Hour and minute must appear together; on a partial match the scanner is
// rewound and present is false.
func (sc *digitScanner) timeOfDay() (hour, minute, second int, present bool) {
	start := sc.pos

	sc.delimiter()
	hour, ok := sc.number(2)
	if !ok {
		sc.pos = start
		return 0, 0, 0, false
	}
	sc.delimiter()
	minute, ok = sc.number(2)
	if !ok {
		sc.pos = start
		return 0, 0, 0, false
	}

	afterMinute := sc.pos
	sc.delimiter()
	second, ok = sc.number(2)
	if !ok {
		sc.pos = afterMinute
		second = 0
	}
	return hour, minute, second, true
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
