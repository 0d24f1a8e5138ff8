package traffic

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Distribution draws the jitter added to a periodic send slot.
type Distribution interface {
	Sample(r *rand.Rand) time.Duration
}

// None adds no jitter.
type None struct{}

func (None) Sample(*rand.Rand) time.Duration { return 0 }

// Constant offsets every slot by the same amount.
type Constant time.Duration

func (c Constant) Sample(*rand.Rand) time.Duration { return time.Duration(c) }

// Uniform draws jitter uniformly from [Min, Max).
type Uniform struct {
	Min time.Duration
	Max time.Duration
}

func (u Uniform) Sample(r *rand.Rand) time.Duration {
	if u.Max <= u.Min {
		return u.Min
	}
	return u.Min + time.Duration(r.Int64N(int64(u.Max-u.Min)))
}

// ParseDistribution maps a config value to a Distribution. Accepted kinds are
// "none", "constant" (uses max) and "uniform".
func ParseDistribution(kind string, min, max time.Duration) (Distribution, error) {
	switch kind {
	case "", "none":
		return None{}, nil
	case "constant":
		return Constant(max), nil
	case "uniform":
		if max < min {
			return nil, fmt.Errorf("uniform jitter: max %s < min %s", max, min)
		}
		return Uniform{Min: min, Max: max}, nil
	}
	return nil, fmt.Errorf("unknown jitter distribution %q", kind)
}

// clamp keeps jitter inside [0, period) so a send never leaves its own slot.
func clamp(j, period time.Duration) time.Duration {
	if j < 0 {
		return 0
	}
	if j >= period {
		return period - 1
	}
	return j
}
