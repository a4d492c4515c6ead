package cachekit

import "sync/atomic"

// Stats is a point-in-time copy of a cache's counters.
// Sizes are in kilobytes of codec-encoded payload (before compression).
type Stats struct {
	ReadTimes  int64
	WriteTimes int64
	ExecTimes  int64
	ReadSize   float64
	WriteSize  float64
}

// counters only ever grow; a fresh cache starts from zero.
type counters struct {
	readTimes  atomic.Int64
	writeTimes atomic.Int64
	execTimes  atomic.Int64
	readBytes  atomic.Int64
	writeBytes atomic.Int64
}

func (c *counters) recordRead(n int) {
	c.readTimes.Add(1)
	c.execTimes.Add(1)
	c.readBytes.Add(int64(n))
}

func (c *counters) recordWrite(n int) {
	c.writeTimes.Add(1)
	c.execTimes.Add(1)
	c.writeBytes.Add(int64(n))
}

func (c *counters) snapshot() Stats {
	return Stats{
		ReadTimes:  c.readTimes.Load(),
		WriteTimes: c.writeTimes.Load(),
		ExecTimes:  c.execTimes.Load(),
		ReadSize:   float64(c.readBytes.Load()) / 1024,
		WriteSize:  float64(c.writeBytes.Load()) / 1024,
	}
}
