// Package stats implements process CPU and wall-time accounting.
//
// The executive attributes consumption at two grains: per tick for the
// whole process (folded in by the clock on every tick advance), and per
// reactor phase (synchronization vs deliberation, accrued around each
// wrapped call). Both reduce to the same primitive: take a rusage
// snapshot before, subtract after, accrue the delta into a counter.
package stats

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Snapshot is the process's cumulative CPU consumption at a wall instant.
type Snapshot struct {
	User   time.Duration
	System time.Duration
	At     time.Time
}

// Take reads the current process rusage.
func Take() Snapshot {
	var ru unix.Rusage
	// Getrusage only fails on a bad `who` argument; RUSAGE_SELF is valid.
	_ = unix.Getrusage(unix.RUSAGE_SELF, &ru)
	return Snapshot{
		User:   timevalDuration(ru.Utime),
		System: timevalDuration(ru.Stime),
		At:     time.Now(),
	}
}

func timevalDuration(tv unix.Timeval) time.Duration {
	return time.Duration(tv.Sec)*time.Second + time.Duration(tv.Usec)*time.Microsecond
}

// Sub returns the consumption between prev and s.
func (s Snapshot) Sub(prev Snapshot) Usage {
	return Usage{
		User:   s.User - prev.User,
		System: s.System - prev.System,
		Wall:   s.At.Sub(prev.At),
	}
}

// Usage is an accumulated CPU/wall-time delta.
type Usage struct {
	User   time.Duration
	System time.Duration
	Wall   time.Duration
}

// Accrue folds another delta into the counter.
func (u *Usage) Accrue(d Usage) {
	u.User += d.User
	u.System += d.System
	u.Wall += d.Wall
}

// Reset zeroes the counter.
func (u *Usage) Reset() { *u = Usage{} }

// CPU returns combined user+system time.
func (u Usage) CPU() time.Duration { return u.User + u.System }

func (u Usage) String() string {
	return fmt.Sprintf("user=%s sys=%s wall=%s", u.User, u.System, u.Wall)
}

// Lap measures one bounded call and accrues its consumption into a
// counter when stopped.
type Lap struct {
	into  *Usage
	start Snapshot
}

// StartLap begins a measurement that will accrue into `into`.
func StartLap(into *Usage) Lap {
	return Lap{into: into, start: Take()}
}

// Stop ends the measurement and accrues the delta.
func (l Lap) Stop() {
	l.into.Accrue(Take().Sub(l.start))
}
