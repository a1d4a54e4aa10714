package ou

// Grade is the result of holding a recommendation against an outcome.
type Grade uint8

const (
	NoBet Grade = iota // recommendation or outcome not gradable
	Pushed
	Win
	Loss
)

func (g Grade) String() string {
	switch g {
	case Pushed:
		return "push"
	case Win:
		return "win"
	case Loss:
		return "loss"
	default:
		return "none"
	}
}

type gradeKey struct {
	rec Recommendation
	out Outcome
}

// gradeTable is the single win/loss matrix used by every system. The side
// named in the label is the side that wins, for Tail and Fade alike.
var gradeTable = map[gradeKey]Grade{
	{TailOver, Over}:   Win,
	{TailOver, Under}:  Loss,
	{TailUnder, Under}: Win,
	{TailUnder, Over}:  Loss,
	{FadeUnder, Under}: Win,
	{FadeUnder, Over}:  Loss,
	{FadeOver, Over}:   Win,
	{FadeOver, Under}:  Loss,
}

// GradeOf grades rec against out.
func GradeOf(rec Recommendation, out Outcome) Grade {
	if !rec.Actionable() || out == Skip {
		return NoBet
	}
	if out == Push {
		return Pushed
	}
	return gradeTable[gradeKey{rec, out}]
}

// IsLoss reports whether rec lost against out.
func IsLoss(rec Recommendation, out Outcome) bool {
	return GradeOf(rec, out) == Loss
}

// IsWin reports whether rec won against out.
func IsWin(rec Recommendation, out Outcome) bool {
	return GradeOf(rec, out) == Win
}

// priorRule maps the previous directional result to the Tails Prior
// recommendation. It is asymmetric: a prior Over is tailed, a prior Under is
// faded.
var priorRule = map[Outcome]Recommendation{
	Over:  TailOver,
	Under: FadeUnder,
}

// FromPrior returns the recommendation reacting to the previous result.
// A non-directional prior yields RecSkip.
func FromPrior(prior Outcome) Recommendation {
	if rec, ok := priorRule[prior]; ok {
		return rec
	}
	return RecSkip
}

type composeKey struct {
	base   Recommendation
	action Action
}

// composeTable applies a Tail/Fade pattern step on top of a Tails Prior
// recommendation.
var composeTable = map[composeKey]Recommendation{
	{TailOver, Tail}:  TailOver,
	{TailOver, Fade}:  FadeUnder,
	{FadeUnder, Tail}: TailUnder,
	{FadeUnder, Fade}: FadeOver,
}

// Compose layers action over base. Bases outside the table yield RecSkip.
func Compose(base Recommendation, action Action) Recommendation {
	if rec, ok := composeTable[composeKey{base, action}]; ok {
		return rec
	}
	return RecSkip
}
