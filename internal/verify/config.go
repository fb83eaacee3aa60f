package verify

import "github.com/pairwise-app/faceverify/internal/domain"

// Config holds the tunable parameters of the verification flow. The
// counts are empirical and meant to be tuned against measured
// false-accept and false-reject rates, not treated as fixed.
type Config struct {
	// RequiredPoses is the fixed capture order.
	RequiredPoses []domain.Pose

	// CapturesPerPose is how many signature-bearing frames each pose
	// needs before it is complete.
	CapturesPerPose int

	// RequiredChallenges is the fixed challenge order.
	RequiredChallenges []domain.Challenge

	// RequiredBlinks completes the blink challenge.
	RequiredBlinks int

	// SmileFrames is how many smiling frames complete the smile
	// challenge.
	SmileFrames int

	// ChallengeFrameBudget is the soft per-challenge timeout, in frames.
	// Hitting it resets the challenge counters and repeats the
	// instruction; it never fails the session.
	ChallengeFrameBudget int
}

// DefaultConfig returns the production flow parameters.
func DefaultConfig() Config {
	return Config{
		RequiredPoses:        domain.DefaultRequiredPoses(),
		CapturesPerPose:      3,
		RequiredChallenges:   domain.DefaultRequiredChallenges(),
		RequiredBlinks:       2,
		SmileFrames:          10,
		ChallengeFrameBudget: 150,
	}
}
