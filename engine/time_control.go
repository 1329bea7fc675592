package engine

import (
	"sync"
	"time"
)

const (
	defaultMovesToGo = 20 // moves-to-go assumed when the GUI doesn't send one
	safetyMargin     = 100 * time.Millisecond
	softStopFraction = 0.60 // fraction of the GameTime slice that triggers the soft stop
)

// SearchMode selects how iterative deepening decides to stop, per
// spec.md's four search modes.
type SearchMode uint8

const (
	// GameTimeMode splits the remaining clock across the expected
	// number of moves left in the game.
	GameTimeMode SearchMode = iota
	// MoveTimeMode searches for a fixed duration, ignoring the clock.
	MoveTimeMode
	// DepthMode stops once a requested depth has completed.
	DepthMode
	// InfiniteMode only stops on an explicit Stop().
	InfiniteMode
)

// atomicFlag is an atomic bool that can only be set.
type atomicFlag struct {
	lock sync.Mutex
	flag bool
}

func (af *atomicFlag) set() {
	af.lock.Lock()
	af.flag = true
	af.lock.Unlock()
}

func (af *atomicFlag) get() bool {
	af.lock.Lock()
	tmp := af.flag
	af.lock.Unlock()
	return tmp
}

// TimeControl decides, for one search, when iterative deepening should
// begin a new depth (NextDepth) and when an in-progress search must
// abort (Stopped).
type TimeControl struct {
	Mode SearchMode

	WTime, WInc time.Duration // time and increment for white
	BTime, BInc time.Duration // time and increment for black
	MovesToGo   int           // moves-to-go; -1 means the GUI didn't send one
	Depth       int           // requested depth, DepthMode only

	numPieces  int
	sideToMove Color
	stopped    atomicFlag // true to stop the search
	ponderhit  atomicFlag // true if ponder was successful

	searchTime     time.Duration // hard budget, GameTime/MoveTime only
	searchDeadline time.Time
	softDeadline   time.Time // GameTime's 60%-of-slice soft stop
	ponderTime     time.Duration
	ponderDeadline time.Time
}

// NewTimeControl returns a GameTimeMode control with no time on the
// clock yet (the caller is expected to set WTime/BTime/etc before
// Start) and no moves-to-go.
func NewTimeControl(pos *Position) *TimeControl {
	return &TimeControl{
		Mode:       GameTimeMode,
		MovesToGo:  -1,
		Depth:      128,
		numPieces:  int((pos.ByColor[White] | pos.ByColor[Black]).Popcnt()),
		sideToMove: pos.SideToMove,
	}
}

// NewFixedDepthTimeControl returns a DepthMode control.
func NewFixedDepthTimeControl(pos *Position, depth int) *TimeControl {
	tc := NewTimeControl(pos)
	tc.Mode = DepthMode
	tc.Depth = depth
	return tc
}

// NewDeadlineTimeControl returns a MoveTimeMode control with deadline
// as the fixed thinking time.
func NewDeadlineTimeControl(pos *Position, deadline time.Duration) *TimeControl {
	tc := NewTimeControl(pos)
	tc.Mode = MoveTimeMode
	tc.WTime, tc.BTime = deadline, deadline
	return tc
}

// NewInfiniteTimeControl returns an InfiniteMode control.
func NewInfiniteTimeControl(pos *Position) *TimeControl {
	tc := NewTimeControl(pos)
	tc.Mode = InfiniteMode
	return tc
}

// gameTimeSlice computes the hard GameTime budget: clock/movesToGo (or
// clock/20 when movesToGo is absent, or the whole clock when movesToGo
// is exactly 0), plus the increment, minus a safety margin, clamped to
// non-negative.
func gameTimeSlice(clock, inc time.Duration, movesToGo int) time.Duration {
	base := clock
	switch {
	case movesToGo > 0:
		base = clock / time.Duration(movesToGo)
	case movesToGo < 0: // absent
		base = clock / defaultMovesToGo
	}
	base += inc
	base -= safetyMargin
	if base < 0 {
		base = 0
	}
	return base
}

// Start starts the timer. Should be called as soon as possible so the
// deadlines are measured from the right instant.
func (tc *TimeControl) Start(ponder bool) {
	var otime, oinc time.Duration // our time, inc
	var ttime, tinc time.Duration // their time, inc
	if tc.sideToMove == White {
		otime, oinc = tc.WTime, tc.WInc
		ttime, tinc = tc.BTime, tc.BInc
	} else {
		otime, oinc = tc.BTime, tc.BInc
		ttime, tinc = tc.WTime, tc.WInc
	}

	tc.stopped = atomicFlag{}
	tc.ponderhit = atomicFlag{flag: !ponder}

	switch tc.Mode {
	case GameTimeMode:
		tc.searchTime = gameTimeSlice(otime, oinc, tc.MovesToGo)
	case MoveTimeMode:
		tc.searchTime = otime
	default:
		// DepthMode and InfiniteMode stop on depth or an explicit Stop(),
		// never on a wall-clock deadline; see Stopped.
	}

	now := time.Now()
	tc.searchDeadline = now.Add(tc.searchTime)
	tc.softDeadline = now.Add(time.Duration(float64(tc.searchTime) * softStopFraction))

	if tc.Mode == GameTimeMode || tc.Mode == MoveTimeMode {
		tc.ponderTime = gameTimeSlice(ttime, tinc, tc.MovesToGo) + tc.searchTime/2
		tc.ponderDeadline = now.Add(tc.ponderTime)
	}
}

// NextDepth reports whether iterative deepening should start searching
// depth, per spec.md's five stop conditions.
func (tc *TimeControl) NextDepth(depth int) bool {
	if depth > 128 {
		return false
	}
	if tc.Stopped() {
		return false
	}
	// Always complete at least a couple of plies: a GUI that sends very
	// little time should still get a move back instead of none. A fixed
	// depth is honoured from depth 2 on.
	if depth == 1 || depth == 2 && tc.Mode != DepthMode {
		return true
	}
	switch tc.Mode {
	case GameTimeMode:
		return !time.Now().After(tc.softDeadline)
	case MoveTimeMode:
		return !time.Now().After(tc.searchDeadline)
	case DepthMode:
		return depth <= tc.Depth
	default: // InfiniteMode
		return true
	}
}

// PonderHit switches to our own time control.
func (tc *TimeControl) PonderHit() {
	if tc.Mode == GameTimeMode || tc.Mode == MoveTimeMode {
		tc.searchDeadline = time.Now().Add(tc.searchTime)
	}
	tc.ponderhit.set()
}

// Aborted returns true if pondering was aborted.
func (tc *TimeControl) Aborted() bool {
	// tc.ponderhit.get() is true if the engine is currently thinking on its own time.
	return !tc.ponderhit.get() && tc.stopped.get()
}

// Stop marks the search as stopped. The result of the search is going
// to be used.
func (tc *TimeControl) Stop() {
	tc.stopped.set()
}

// Stopped returns true if the search must abort now. DepthMode and
// InfiniteMode only stop via an explicit Stop() (a UCI stop/quit); the
// other two modes also enforce their hard wall-clock deadline.
func (tc *TimeControl) Stopped() bool {
	if tc.stopped.get() {
		return true
	}
	if tc.Mode == DepthMode || tc.Mode == InfiniteMode {
		return false
	}
	if tc.ponderhit.get() && time.Now().After(tc.searchDeadline) {
		tc.stopped.set()
		return true
	}
	if !tc.ponderhit.get() && time.Now().After(tc.ponderDeadline) {
		tc.stopped.set()
		return true
	}
	return false
}
