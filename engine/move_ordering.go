// Copyright 2014-2016 The Zurichess Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// move_ordering generates and orders moves for a search node.
//
// Moves are returned in six ranked categories, highest first: the hash
// (TT) move; good captures (SEE >= 0), ordered by descending SEE; killer
// moves; quiet non-captures; losing captures (SEE < 0), ordered by
// descending SEE; under-promotions. Generation is phased so later
// categories are only computed once the earlier ones are exhausted.
package engine

const (
	// Move generation phases, one per move-ordering category plus the
	// two generation steps that populate them.
	msHash = iota
	msGenCaptures
	msReturnGood
	msReturnKiller
	msGenQuiet
	msReturnQuiet
	msReturnBad
	msReturnUnder
	msDone
)

// moveStack holds one ply's worth of move-generation state. Categories
// are kept in separate buffers rather than one combined, scored list
// because the losing-capture and under-promotion buffers are not always
// populated (quiescence only wants good captures, see generateCaptures).
type moveStack struct {
	good    []Move  // captures/queen promotions with SEE >= 0
	goodSEE []int32
	bad     []Move // captures/queen promotions with SEE < 0
	badSEE  []int32
	quiet   []Move // non-captures, non-promotions (including castling)
	under   []Move // promotions to a piece other than queen

	kind      int     // requested move kinds (Quiet|Tactical|Violent)
	state     int     // current generation phase
	hash      Move    // hash move, returned first if pseudo-legal
	killerIdx int     // how many killer slots have been offered this traversal
	killer    [2]Move // two killer slots for this ply, see SaveKiller
}

// stack is a stack of plies (moveStack).
type stack struct {
	position *Position
	moves    []moveStack
}

// Reset clears the stack for a new position.
func (st *stack) Reset(pos *Position) {
	st.position = pos
	st.moves = st.moves[:0]
}

// get returns the moveStack for the current ply, allocating if necessary.
func (st *stack) get() *moveStack {
	for len(st.moves) <= st.position.Ply {
		st.moves = append(st.moves, moveStack{
			good:  make([]Move, 0, 16),
			bad:   make([]Move, 0, 4),
			quiet: make([]Move, 0, 32),
			under: make([]Move, 0, 4),
		})
	}
	return &st.moves[st.position.Ply]
}

// GenerateMoves prepares move generation for kind (some combination of
// Quiet, Tactical and Violent), trying hash first. Killer slots are left
// untouched: they belong to the ply, not to one generation cycle.
func (st *stack) GenerateMoves(kind int, hash Move) {
	ms := st.get()
	ms.good, ms.goodSEE = ms.good[:0], ms.goodSEE[:0]
	ms.bad, ms.badSEE = ms.bad[:0], ms.badSEE[:0]
	ms.quiet = ms.quiet[:0]
	ms.under = ms.under[:0]
	ms.kind = kind
	ms.state = msHash
	ms.hash = hash
	ms.killerIdx = 0
}

// generateCaptures generates captures and queen promotions (position.go's
// Violent kind) and splits them into good and losing by SEE. Quiescence
// calls GenerateMoves with kind == Violent only; per spec.md's
// quiescence rule, losing captures are discarded right here rather than
// returned in a later phase.
func (st *stack) generateCaptures() {
	ms := &st.moves[st.position.Ply]
	if ms.kind&Violent == 0 {
		return
	}
	full := ms.kind&(Quiet|Tactical) != 0

	var moves []Move
	st.position.GenerateMoves(Violent, &moves)
	for _, m := range moves {
		v := see(st.position, m)
		if v >= 0 {
			ms.good = append(ms.good, m)
			ms.goodSEE = append(ms.goodSEE, v)
		} else if full {
			ms.bad = append(ms.bad, m)
			ms.badSEE = append(ms.badSEE, v)
		}
	}
	sortBySEE(ms.good, ms.goodSEE)
	if full {
		sortBySEE(ms.bad, ms.badSEE)
	}
}

// generateQuiet generates the remaining moves: position.go's Quiet kind
// (plain non-captures) plus Tactical (castling and under-promotions,
// including under-promoting captures). Castling joins the quiet bucket;
// non-queen promotions are split into their own under-promotion bucket.
func (st *stack) generateQuiet() {
	ms := &st.moves[st.position.Ply]
	rest := ms.kind & (Quiet | Tactical)
	if rest == 0 {
		return
	}

	var moves []Move
	st.position.GenerateMoves(rest, &moves)
	for _, m := range moves {
		if m.MoveType() == Promotion && m.Promotion().Figure() != Queen {
			ms.under = append(ms.under, m)
		} else {
			ms.quiet = append(ms.quiet, m)
		}
	}
}

// Gaps from Best Increments for the Average Case of Shellsort, Marcin Ciura.
var shellSortGaps = [...]int{132, 57, 23, 10, 4, 1}

// sortBySEE orders moves ascending by SEE value, in place. Popping from
// the end (see popLast) then returns the highest-SEE move first.
func sortBySEE(moves []Move, see []int32) {
	for _, gap := range shellSortGaps {
		for i := gap; i < len(moves); i++ {
			j := i
			tv, tm := see[j], moves[j]
			for ; j >= gap && see[j-gap] > tv; j -= gap {
				see[j] = see[j-gap]
				moves[j] = moves[j-gap]
			}
			see[j], moves[j] = tv, tm
		}
	}
}

// popLast pops the highest-ordered move from an ascending-sorted slice.
func popLast(moves *[]Move) Move {
	n := len(*moves)
	if n == 0 {
		return NullMove
	}
	m := (*moves)[n-1]
	*moves = (*moves)[:n-1]
	return m
}

// PopMove pops the next move, in category order:
//	1. the hash move,
//	2. good captures (SEE >= 0), highest SEE first,
//	3. killer moves,
//	4. quiet non-captures,
//	5. losing captures (SEE < 0), highest (least bad) SEE first,
//	6. under-promotions.
// Returns NullMove once every category is exhausted.
func (st *stack) PopMove() Move {
	ms := &st.moves[st.position.Ply]
	for {
		switch ms.state {
		case msHash:
			ms.state = msGenCaptures
			if st.position.IsPseudoLegal(ms.hash) {
				return ms.hash
			}

		case msGenCaptures:
			ms.state = msReturnGood
			st.generateCaptures()

		case msReturnGood:
			if m := popLast(&ms.good); m == NullMove {
				if ms.kind&(Quiet|Tactical) == 0 {
					// Quiescence: nothing past good captures.
					ms.state = msDone
				} else {
					ms.state = msReturnKiller
				}
			} else if m != ms.hash {
				return m
			}

		case msReturnKiller:
			if ms.killerIdx >= len(ms.killer) {
				ms.state = msGenQuiet
				break
			}
			k := ms.killer[ms.killerIdx]
			ms.killerIdx++
			if k != NullMove && k != ms.hash && st.position.IsPseudoLegal(k) {
				return k
			}

		case msGenQuiet:
			ms.state = msReturnQuiet
			st.generateQuiet()

		case msReturnQuiet:
			if m := popLast(&ms.quiet); m == NullMove {
				ms.state = msReturnBad
			} else if m != ms.hash && !st.IsKiller(m) {
				return m
			}

		case msReturnBad:
			if m := popLast(&ms.bad); m == NullMove {
				ms.state = msReturnUnder
			} else if m != ms.hash {
				return m
			}

		case msReturnUnder:
			if m := popLast(&ms.under); m == NullMove {
				ms.state = msDone
			} else if m != ms.hash {
				return m
			}

		case msDone:
			// Just in case another move is requested.
			return NullMove
		}
	}
}

// IsKiller returns true if m is a killer move for the current ply.
func (st *stack) IsKiller(m Move) bool {
	ms := st.get()
	return m == ms.killer[0] || m == ms.killer[1]
}

// SaveKiller records m as a killer move for the current ply, following a
// beta cutoff from m. Per spec.md's killer-move heuristic: two slots per
// ply, demote-on-insert, captures and promotions are never stored.
func (st *stack) SaveKiller(m Move) {
	if !m.IsQuiet() {
		return
	}
	ms := st.get()
	if m != ms.killer[0] {
		ms.killer[1] = ms.killer[0]
		ms.killer[0] = m
	}
}
