package renderplan

import (
	"time"

	"github.com/dkotenko/clipcut/internal/ports"
)

// OutputTime maps a clip-local source timestamp onto the final output
// timeline: cuts apply first, then the speed factor divides what remains.
// The boolean is false when t falls inside a removed span.
func OutputTime(cuts []ports.SilenceInterval, speed float64, t time.Duration) (time.Duration, bool) {
	if speed <= 0 {
		speed = 1
	}
	if len(cuts) == 0 {
		return scale(t, 1/speed), true
	}

	var kept time.Duration
	for _, c := range cuts {
		if t < c.Start {
			return 0, false
		}
		if t <= c.End {
			return scale(kept+(t-c.Start), 1/speed), true
		}
		kept += c.End - c.Start
	}
	return 0, false
}

// TimeMap returns a total mapping from clip-local source timestamps to
// output timestamps. Instants inside a removed span snap forward to the
// next kept frame; times past the kept material clamp to the output end.
func (p Plan) TimeMap() func(time.Duration) time.Duration {
	cuts, speed := p.Cuts, p.Speed
	return func(t time.Duration) time.Duration {
		if out, ok := OutputTime(cuts, speed, t); ok {
			return out
		}
		for _, c := range cuts {
			if t <= c.Start {
				out, _ := OutputTime(cuts, speed, c.Start)
				return out
			}
		}
		out, _ := OutputTime(cuts, speed, cuts[len(cuts)-1].End)
		return out
	}
}

// SourceTime is the inverse of OutputTime: it reconstructs the clip-local
// source timestamp a sped output time came from.
func SourceTime(cuts []ports.SilenceInterval, speed float64, out time.Duration) time.Duration {
	if speed <= 0 {
		speed = 1
	}
	keptTarget := scale(out, speed)
	if len(cuts) == 0 {
		return keptTarget
	}

	var kept time.Duration
	for _, c := range cuts {
		span := c.End - c.Start
		if kept+span >= keptTarget {
			return c.Start + (keptTarget - kept)
		}
		kept += span
	}
	last := cuts[len(cuts)-1]
	return last.End
}

func scale(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * f)
}
