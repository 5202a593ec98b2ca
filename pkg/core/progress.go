package core

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Progress reports the number of entries processed by a long running operation,
// at most once per interval.
type Progress struct {
	l          *zap.Logger
	inProgress string
	finished   string
	interval   time.Duration
	now        func() time.Time
	start      time.Time
	last       time.Time
	count      int
}

// NewProgress builds a reporter logging e.g. "Archiving... 12 files so far" then "Archived in 1.234s. Number of files: 12"
func NewProgress(l *zap.Logger, inProgress, finished string, interval time.Duration) *Progress {
	return newProgress(l, inProgress, finished, interval, time.Now)
}

func newProgress(l *zap.Logger, inProgress, finished string, interval time.Duration, now func() time.Time) *Progress {
	start := now()
	return &Progress{
		l:          l,
		inProgress: inProgress,
		finished:   finished,
		interval:   interval,
		now:        now,
		start:      start,
		last:       start,
	}
}

// Tick counts one more entry
func (p *Progress) Tick(_ string) {
	p.count++
	if t := p.now(); t.Sub(p.last) > p.interval {
		p.last = t
		p.l.Info(fmt.Sprintf("%s... %d files so far", p.inProgress, p.count))
	}
}

// Finalize reports the elapsed time and the number of entries
func (p *Progress) Finalize() {
	p.l.Info(fmt.Sprintf("%s in %s. Number of files: %d", p.finished, formatElapsed(p.now().Sub(p.start)), p.count))
}

func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}
