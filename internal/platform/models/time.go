package models

import (
	"strconv"
	"time"
)

// ISOFromMillis converts a platform epoch-milliseconds timestamp to the
// ISO-8601 form unified records carry. Zero maps to the empty string so
// storage defaults can fill it.
func ISOFromMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// ISOFromUnixString converts an epoch-seconds string (WhatsApp's timestamp
// encoding) to ISO-8601. Unparsable input maps to the empty string.
func ISOFromUnixString(s string) string {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil || sec == 0 {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
