package domain

import "time"

// AppUsageSession is one foreground session of an app: the poller records a
// row whenever the user switches away from an app. End is never before Start
// and Duration is End minus Start.
type AppUsageSession struct {
	AppID    string
	Start    time.Time
	End      time.Time
	Duration time.Duration
}
