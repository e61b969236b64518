package http

import (
	"time"

	xutil "PillarCast/pkg/util"
)

// ParseTime accepts RFC3339, a date, or unix seconds/milliseconds and returns UTC.
func ParseTime(s string) (time.Time, bool) { return xutil.ParseTime(s) }
