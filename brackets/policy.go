package brackets

const (
	// DefaultMaxRounds is the last round after which a tournament always finishes.
	DefaultMaxRounds = 3
	// DefaultFinalFieldSize finishes a tournament once standings are this short.
	DefaultFinalFieldSize = 2
)

// RoundPolicy decides whether a completed round ends the tournament.
type RoundPolicy struct {
	MaxRounds      int
	FinalFieldSize int
}

func DefaultRoundPolicy() RoundPolicy {
	return RoundPolicy{MaxRounds: DefaultMaxRounds, FinalFieldSize: DefaultFinalFieldSize}
}

// ShouldFinish reports whether completing round with fieldSize standings ends the tournament.
func (p RoundPolicy) ShouldFinish(round, fieldSize int) bool {
	return round >= p.MaxRounds || fieldSize <= p.FinalFieldSize
}
