package workers

import (
	"context"
	"log"
	"math/rand"
	"time"

	"fitTrackAPI/services"
)

// StepSimulator periodically adds a small step increment to today's record
// for a set of demo users, standing in for the device step counter during
// development. Each tick writes the new absolute count plus its derived
// calorie estimate through the normal merge path.
type StepSimulator struct {
	fitness  *services.FitnessService
	userIDs  []string
	interval time.Duration
}

func NewStepSimulator(fitness *services.FitnessService, userIDs []string, interval time.Duration) *StepSimulator {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &StepSimulator{fitness: fitness, userIDs: userIDs, interval: interval}
}

// Start runs the simulation loop until the context is cancelled.
func (s *StepSimulator) Start(ctx context.Context) {
	if len(s.userIDs) == 0 {
		return
	}

	log.Printf("Step simulator running for %d user(s) every %s", len(s.userIDs), s.interval)

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("Step simulator stopped")
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

func (s *StepSimulator) tick(ctx context.Context) {
	for _, userID := range s.userIDs {
		tickCtx, cancel := context.WithTimeout(ctx, 5*time.Second)

		today := time.Now().Format("2006-01-02")
		current, err := s.fitness.GetDay(tickCtx, userID, today)
		if err != nil {
			log.Printf("Step simulator: failed to read day for %s: %v", userID, err)
			cancel()
			continue
		}

		steps := current.Steps + 10 + rand.Intn(50)
		if _, err := s.fitness.SaveSteps(tickCtx, userID, steps); err != nil {
			log.Printf("Step simulator: failed to save steps for %s: %v", userID, err)
		}
		cancel()
	}
}
