package main

import (
	"math/rand/v2"
	"time"
)

const (
	celebrationHearts   = 50
	celebrationLifetime = 3000 * time.Millisecond
)

// Heart is one decorative element of the completion effect.
type Heart struct {
	Left float64 `json:"left"` // vw
	Top  float64 `json:"top"`  // px
}

// Celebration is launched once when a puzzle gets solved.
type Celebration struct {
	Hearts     []Heart `json:"hearts"`
	LifetimeMS int64   `json:"lifetime_ms"`
	Message    string  `json:"message"`
}

// NewCelebration scatters the hearts across the viewport width, starting
// 300px from the top of the page.
func NewCelebration(rng *rand.Rand, message string) *Celebration {
	hearts := make([]Heart, celebrationHearts)
	for i := range hearts {
		hearts[i] = Heart{
			Left: rng.Float64() * 100,
			Top:  rng.Float64()*100 + 300,
		}
	}
	return &Celebration{
		Hearts:     hearts,
		LifetimeMS: celebrationLifetime.Milliseconds(),
		Message:    message,
	}
}
