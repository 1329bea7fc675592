// Copyright 2014-2016 The Zurichess Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package engine implements board, move generation and position searching.
//
// The package can be used as a general library for chess tool writing and
// provides the core functionality for the zurichess chess engine.
//
// Position (basic.go, position.go) uses:
//
//   * Bitboards for representation - https://chessprogramming.wikispaces.com/Bitboards
//   * Magic bitboards for sliding move generation - https://chessprogramming.wikispaces.com/Magic+Bitboards
//
// Search (engine.go) is a fail-hard principal variation search:
//
//   * Check extension - https://chessprogramming.wikispaces.com/Check+Extensions
//   * Fail hard, not fail soft: returned scores never fall outside [α, β].
//   * Reverse futility pruning with a fixed 30·depth margin, depth <= 4.
//   * Child-level futility pruning at depth 1 and 2 with fixed margins.
//   * Killer move heuristic, two slots per ply.
//   * Late move reduction (LMR), fixed R=2.
//   * Mate distance pruning.
//   * Principal variation search (PVS) - https://chessprogramming.wikispaces.com/Principal+Variation+Search
//   * Quiescence search - https://chessprogramming.wikispaces.com/Quiescence+Search.
//   * Static Exchange Evaluation - https://chessprogramming.wikispaces.com/Static+Exchange+Evaluation
//   * Zobrist hashing - https://chessprogramming.wikispaces.com/Zobrist+Hashing
//
// Move ordering (move_ordering.go) ranks moves in six categories: hash move,
// good captures by SEE, killer moves, quiet moves, losing captures by SEE,
// under-promotions.
//
// Evaluation (evaluate.go) function is quite basic and consists of:
//
//   * Material and piece square tables for every figure
//   * Pawn structure: doubled and passed pawns
//   * Bishop pair bonus
//   * Phased eval between mid game and end game.
//   * Tempo bonus for the side to move
//
package engine

// nodeType distinguishes a principal-variation node (full window, first
// move of its parent) from the null-window scouts PVS searches afterwards.
// Reverse futility is only attempted at non-PV nodes.
type nodeType uint8

const (
	pvNode nodeType = iota
	nonPVNode
)

const (
	checkDepthExtension int32 = 1 // how much to extend search in case of checks

	reverseFutilityDepthLimit int32 = 4  // maximum depth for reverse futility pruning
	reverseFutilityPerDepth   int32 = 30 // margin per remaining ply

	lmrMinDepth     int32 = 3 // LMR only applies at or above this depth
	lmrMinMoveIndex int32 = 3 // LMR only applies from this move index onwards
	lmrReduction    int32 = 2 // fixed late-move reduction

	checkpointStep = 8192 // poll the clock every this many nodes
)

// childFutilityMargin holds the child-level futility margins, indexed by
// the node's remaining depth. Index 0 is unused: depth 0 is quiescence.
var childFutilityMargin = [3]int32{0, 293, 620}

// Options keeps engine's options.
type Options struct {
	AnalyseMode bool // true to display info strings
}

// Stats stores statistics about the search.
type Stats struct {
	CacheHit  uint64 // number of times the position was found transposition table
	CacheMiss uint64 // number of times the position was not found in the transposition table
	Nodes     uint64 // number of nodes searched
	Depth     int32  // depth search
	SelDepth  int32  // maximum depth reached on PV (doesn't include the hash moves)
}

// CacheHitRatio returns the ratio of transposition table hits over total number of lookups.
func (s *Stats) CacheHitRatio() float32 {
	return float32(s.CacheHit) / float32(s.CacheHit+s.CacheMiss)
}

// Logger logs search progress.
type Logger interface {
	// BeginSearch signals a new search is started.
	BeginSearch()
	// EndSearch signals end of search.
	EndSearch()
	// PrintPV logs the principal variation after
	// iterative deepening completed one depth.
	PrintPV(stats Stats, score int32, pv []Move)
}

// NulLogger is a logger that does nothing.
type NulLogger struct {
}

func (nl *NulLogger) BeginSearch() {
}

func (nl *NulLogger) EndSearch() {
}

func (nl *NulLogger) PrintPV(stats Stats, score int32, pv []Move) {
}

// Engine implements the logic to search for the best move for a position.
type Engine struct {
	Options  Options   // engine options
	Log      Logger    // logger
	Stats    Stats     // search statistics
	Position *Position // current Position

	rootPly int     // position's ply at the start of the search
	moveLog []Move  // moves played since the search root, for UndoMove
	stack   stack   // stack of moves
	pvTable pvTable // principal variation table

	timeControl *TimeControl
	stopped     bool
	checkpoint  uint64
}

// NewEngine creates a new engine to search for pos.
// If pos is nil then the start position is used.
func NewEngine(pos *Position, log Logger, options Options) *Engine {
	if log == nil {
		log = &NulLogger{}
	}
	eng := &Engine{
		Options: options,
		Log:     log,
		pvTable: newPvTable(),
	}
	eng.SetPosition(pos)
	return eng
}

// SetPosition sets current position.
// If pos is nil, the starting position is set.
func (eng *Engine) SetPosition(pos *Position) {
	if pos != nil {
		eng.Position = pos
	} else {
		eng.Position, _ = PositionFromFEN(FENStartPos)
	}
}

// DoMove executes a move.
func (eng *Engine) DoMove(move Move) {
	eng.moveLog = append(eng.moveLog, move)
	eng.Position.DoMove(move)
}

// UndoMove undoes the last move played via DoMove.
func (eng *Engine) UndoMove() {
	last := eng.moveLog[len(eng.moveLog)-1]
	eng.moveLog = eng.moveLog[:len(eng.moveLog)-1]
	eng.Position.UndoMove(last)
}

// Score evaluates current position from current player's POV.
func (eng *Engine) Score() int32 {
	score := Evaluate(eng.Position)
	score *= eng.Position.Us().Multiplier()
	return score
}

// ply returns the ply from the beginning of the search.
func (eng *Engine) ply() int32 {
	return int32(eng.Position.Ply - eng.rootPly)
}

// knownDraw reports whether the current position is an immediate draw: the
// insufficient-material oracle, a repeated position, or the fifty-move
// rule. Checked on the position after a move is made, per the Iteration
// step of negamax, never at a node's own entry.
func (eng *Engine) knownDraw() bool {
	pos := eng.Position
	return pos.InsufficientMaterial() || pos.FiftyMoveRule() || pos.ThreeFoldRepetition() >= 3
}

// pollClock is called every node; every checkpointStep nodes it asks the
// time control whether the search must abort.
func (eng *Engine) pollClock() {
	eng.Stats.Nodes++
	if eng.stopped {
		return
	}
	if eng.Stats.Nodes >= eng.checkpoint {
		eng.checkpoint = eng.Stats.Nodes + checkpointStep
		if eng.timeControl.Stopped() {
			eng.stopped = true
		}
	}
}

// retrieveHash probes the transposition table for the current position.
//
// The returned score is usable only if the stored depth is at least depth:
// an Exact entry yields its (mate-distance-decoded) value directly; an
// UpperBound entry yields α when the decoded value is <= α; a LowerBound
// entry yields β when the decoded value is >= β. The stored best move is
// always returned, for ordering, even when no score is usable.
func (eng *Engine) retrieveHash(depth, ply, α, β int32) (score int32, hasScore bool, move Move) {
	entry := GlobalHashTable.get(eng.Position)
	if entry.kind == noEntry {
		eng.Stats.CacheMiss++
		return 0, false, NullMove
	}
	eng.Stats.CacheHit++

	move = entry.move
	if move != NullMove && !eng.Position.IsPseudoLegal(move) {
		move = NullMove
	}
	if int32(entry.depth) < depth {
		return 0, false, move
	}

	value := int32(entry.score)
	if value > KnownWinScore {
		value -= ply
	} else if value < KnownLossScore {
		value += ply
	}

	switch entry.kind {
	case exact:
		return value, true, move
	case failedLow: // UpperBound
		if value <= α {
			return α, true, move
		}
	case failedHigh: // LowerBound
		if value >= β {
			return β, true, move
		}
	}
	return 0, false, move
}

// storeHash writes an entry for the current position, re-biasing a mate
// score to be relative to the search root (see retrieveHash, which applies
// the inverse bias on read).
func (eng *Engine) storeHash(depth, score int32, kind hashKind, move Move) {
	ply := eng.ply()
	stored := score
	if stored > KnownWinScore {
		stored += ply
	} else if stored < KnownLossScore {
		stored -= ply
	}
	GlobalHashTable.put(eng.Position, hashEntry{
		kind:  kind,
		score: int16(stored),
		depth: int8(depth),
		move:  move,
	})
}

// searchQuiescence resolves captures until the position is quiet.
//
// Only captures pre-filtered to SEE >= 0 are considered (move_ordering.go
// discards losing captures at the generator); there is no transposition
// table interaction here.
func (eng *Engine) searchQuiescence(α, β int32) int32 {
	eng.pollClock()
	if eng.stopped {
		return 0
	}

	standPat := eng.Score()
	if standPat >= β {
		return β
	}
	localα := max(α, standPat)

	pos := eng.Position
	us := pos.Us()
	var bestMove Move

	eng.stack.GenerateMoves(Violent, NullMove)
	for move := eng.stack.PopMove(); move != NullMove; move = eng.stack.PopMove() {
		eng.DoMove(move)
		if pos.IsChecked(us) {
			eng.UndoMove()
			continue
		}
		score := -eng.searchQuiescence(-β, -localα)
		eng.UndoMove()

		if score >= β {
			return β
		}
		if score > localα {
			localα = score
			bestMove = move
		}
	}

	if bestMove != NullMove {
		eng.pvTable.Put(pos, bestMove)
	}
	return localα
}

// negamax is a fail-hard principal variation search: the returned score is
// always clamped to [α, β], never a raw fail-soft value.
//
// α, β represent lower and upper bounds. depth is the remaining depth
// (decreasing). nt tells whether this is a principal-variation node (full
// window) or one of the null-window scouts PVS spawns for later siblings.
func (eng *Engine) negamax(α, β, depth int32, nt nodeType) int32 {
	eng.pollClock()
	if eng.stopped {
		return 0
	}

	pos := eng.Position
	us, them := pos.Us(), pos.Them()
	ply := eng.ply()
	if ply > eng.Stats.SelDepth {
		eng.Stats.SelDepth = ply
	}

	sideIsChecked := pos.IsChecked(us)
	if sideIsChecked {
		depth += checkDepthExtension
	}

	if depth <= 0 {
		return eng.searchQuiescence(α, β)
	}

	score, hasScore, hash := eng.retrieveHash(depth, ply, α, β)
	if hasScore && ply > 0 {
		return score
	}

	// Static eval for pruning always calls the evaluator; a stored TT
	// score is never substituted (see DESIGN.md Open Question 2).
	static := eng.Score()

	if nt != pvNode && ply > 0 && depth <= reverseFutilityDepthLimit {
		margin := reverseFutilityPerDepth * depth
		if static-margin >= β {
			return static - margin
		}
	}

	// Mate distance pruning. Hoisted out of the move loop: ply is
	// invariant across a node's own moves, so clipping once here and
	// clipping identically after each move (as the Iteration step
	// describes) produce the same final bounds; doing it once also
	// avoids searching a move when the window is already infeasible.
	if mateβ := InfinityScore - ply; β > mateβ {
		β = mateβ
		if α >= β {
			return β
		}
	}
	if mateα := ply - InfinityScore; α < mateα {
		α = mateα
		if β <= α {
			return α
		}
	}

	bestMove := NullMove
	localα := α
	raisedα := false
	triedAny := false
	moveIndex := int32(0)

	eng.stack.GenerateMoves(All, hash)
	for move := eng.stack.PopMove(); move != NullMove; move = eng.stack.PopMove() {
		eng.DoMove(move)
		if pos.IsChecked(us) {
			eng.UndoMove()
			continue
		}
		givesCheck := pos.IsChecked(them)
		moveIndex++

		if triedAny && depth <= 2 && move.IsQuiet() && !sideIsChecked && !givesCheck {
			if static+childFutilityMargin[depth] <= localα {
				eng.UndoMove()
				continue
			}
		}

		var childScore int32
		if eng.knownDraw() {
			childScore = 0
		} else {
			newDepth := depth - 1
			if moveIndex == 1 {
				childScore = -eng.negamax(-β, -localα, newDepth, pvNode)
			} else {
				r := int32(0)
				if depth >= lmrMinDepth && moveIndex >= lmrMinMoveIndex &&
					!sideIsChecked && !givesCheck && move.MoveType() != Promotion {
					r = lmrReduction
				}
				childScore = -eng.negamax(-localα-1, -localα, newDepth-r, nonPVNode)
				if childScore > localα {
					childScore = -eng.negamax(-β, -localα, newDepth, pvNode)
				}
			}
		}
		eng.UndoMove()
		triedAny = true

		if childScore >= β {
			eng.storeHash(depth, β, failedHigh, move)
			eng.stack.SaveKiller(move)
			return β
		}
		if childScore > localα {
			localα = childScore
			raisedα = true
			bestMove = move
			eng.pvTable.Put(pos, bestMove)
		}
	}

	if !triedAny {
		if sideIsChecked {
			return -InfinityScore + ply
		}
		return 0
	}

	kind := failedLow
	if raisedα {
		kind = exact
	}
	eng.storeHash(depth, localα, kind, bestMove)
	return localα
}

// firstLegalMove returns the first legal move found in the current
// position, or nil if there is none. Used by Play as a fallback when
// iterative deepening never recorded a principal variation.
func (eng *Engine) firstLegalMove() []Move {
	pos := eng.Position
	us := pos.Us()

	eng.stack.GenerateMoves(All, NullMove)
	for move := eng.stack.PopMove(); move != NullMove; move = eng.stack.PopMove() {
		eng.DoMove(move)
		illegal := pos.IsChecked(us)
		eng.UndoMove()
		if !illegal {
			return []Move{move}
		}
	}
	return nil
}

// Play evaluates current position.
//
// Returns the principal variation, that is
//	moves[0] is the best move found and
//	moves[1] is the pondering move.
//
// If no move was found because the game has finished
// then an empty pv is returned.
//
// Time control, tc, should already be started.
func (eng *Engine) Play(tc *TimeControl) (moves []Move) {
	eng.Log.BeginSearch()
	eng.Stats = Stats{Depth: -1}

	eng.rootPly = eng.Position.Ply
	eng.moveLog = eng.moveLog[:0]
	eng.timeControl = tc
	eng.stopped = false
	eng.checkpoint = checkpointStep
	eng.stack.Reset(eng.Position)
	GlobalHashTable.NewGeneration()

	score := int32(0)
	for depth := int32(1); tc.NextDepth(int(depth)); depth++ {
		eng.Stats.Depth = depth
		score = eng.negamax(-InfinityScore, InfinityScore, depth, pvNode)

		if !eng.stopped {
			// if eng has not been stopped then this is a legit pv.
			moves = eng.pvTable.Get(eng.Position)
			eng.Log.PrintPV(eng.Stats, score, moves)
		}
	}

	if len(moves) == 0 {
		moves = eng.firstLegalMove()
	}

	eng.Log.EndSearch()
	return moves
}
