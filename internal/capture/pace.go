package capture

import "time"

// pacer spaces frame reads of synthetic cameras at 1/fps so they behave
// like a device instead of spinning the loop.
type pacer struct {
	next time.Time
}

// wait returns how long a read at now must sleep and books the next slot.
// A late read is not made up for.
func (p *pacer) wait(now time.Time, fps int) time.Duration {
	if fps <= 0 {
		fps = DefaultFPS
	}
	interval := time.Second / time.Duration(fps)

	if p.next.IsZero() || !now.Before(p.next) {
		p.next = now.Add(interval)
		return 0
	}
	d := p.next.Sub(now)
	p.next = p.next.Add(interval)
	return d
}

func (p *pacer) reset() {
	p.next = time.Time{}
}
