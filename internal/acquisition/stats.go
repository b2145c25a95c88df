package acquisition

import "sync/atomic"

// Stats counts publishing-cycle activity.
type Stats struct {
	Polls           uint64
	Published       uint64
	NoData          uint64
	LastFrame       int64
	LastCaptureTime int64
}

type counters struct {
	polls           atomic.Uint64
	published       atomic.Uint64
	noData          atomic.Uint64
	lastFrame       atomic.Int64
	lastCaptureTime atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Polls:           c.polls.Load(),
		Published:       c.published.Load(),
		NoData:          c.noData.Load(),
		LastFrame:       c.lastFrame.Load(),
		LastCaptureTime: c.lastCaptureTime.Load(),
	}
}
