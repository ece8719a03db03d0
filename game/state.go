package game

// Rand is the random source battles draw from. *math/rand.Rand satisfies it;
// pass a seeded one to replay a battle exactly.
type Rand interface {
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// Event is one thing that happened, sent to clients as-is.
type Event struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Side indexes the two sides of a battle.
type Side int

const (
	Home Side = 0
	Away Side = 1
)

func (s Side) Other() Side { return 1 - s }

func (s Side) String() string {
	if s == Home {
		return "home"
	}
	return "away"
}

// Phase of a battle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseInProgress Phase = "in_progress"
	PhaseOver       Phase = "over"
)

// Outcome from the home side's point of view.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

func errorEvent(msg string) Event {
	return Event{Type: "Error", Data: map[string]interface{}{"message": msg}}
}
