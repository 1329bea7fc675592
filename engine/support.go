// support.go supplies the small position/move helpers the search
// (engine.go) and move ordering (move_ordering.go) build on top of.

package engine

// Score bounds. InfinityScore is larger than any achievable evaluation.
// A mate delivered p plies from the root scores InfinityScore-p (being
// mated, -InfinityScore+p), so deeper mates score less and the search
// prefers the fastest one. Any score with absolute value above
// KnownWinScore is treated as a forced mate
// for pruning and transposition-table rebiasing purposes.
const (
	InfinityScore  int32 = 30000
	MateScore      int32 = InfinityScore - 64
	MatedScore     int32 = -MateScore
	KnownWinScore  int32 = InfinityScore - 256
	KnownLossScore int32 = -KnownWinScore
)

// Multiplier returns +1 for White and -1 for Black, used to flip a
// side-relative score into White's perspective or back.
func (c Color) Multiplier() int32 {
	if c == White {
		return 1
	}
	return -1
}

// Us returns the side to move.
func (pos *Position) Us() Color {
	return pos.SideToMove
}

// Them returns the side not to move.
func (pos *Position) Them() Color {
	return pos.SideToMove.Opposite()
}

// Color returns the color of the piece that made the move.
func (m Move) Color() Color {
	return m.Piece().Color()
}

// ThreeFoldRepetition returns how many times the current position
// (including the current occurrence) has been seen since the last
// irreversible move.
func (pos *Position) ThreeFoldRepetition() int {
	if pos.Ply-pos.curr.IrreversiblePly < 2 {
		return 1
	}
	c, z := 0, pos.Zobrist()
	for i := pos.Ply; i >= pos.curr.IrreversiblePly; i -= 2 {
		if pos.states[i].Zobrist == z {
			c++
		}
	}
	return c
}

// FiftyMoveRule returns true if the last 100 plies contained no capture or
// pawn move, making the game a claimable draw.
func (pos *Position) FiftyMoveRule() bool {
	return pos.HalfMoveClock >= 100
}

// IsPseudoLegal returns whether m is one of the pseudo-legal moves
// generated from the current position. Used to validate a move recovered
// from the transposition table before playing it blindly.
func (pos *Position) IsPseudoLegal(m Move) bool {
	if m == NullMove {
		return false
	}
	var moves []Move
	pos.GenerateFigureMoves(m.Piece().Figure(), All, &moves)
	for _, pm := range moves {
		if pm == m {
			return true
		}
	}
	return false
}

// ForwardSpan returns bb filled towards the 8th rank (White) or 1st rank
// (Black), inclusive of bb itself.
func ForwardSpan(c Color, bb Bitboard) Bitboard {
	for i := 0; i < 7; i++ {
		bb |= Forward(c, bb)
	}
	return bb
}

// BackwardSpan returns bb filled towards the 1st rank (White) or 8th rank
// (Black), inclusive of bb itself.
func BackwardSpan(c Color, bb Bitboard) Bitboard {
	for i := 0; i < 7; i++ {
		bb |= Backward(c, bb)
	}
	return bb
}

// IsAttackedBy returns whether sq is attacked by any piece of color co.
func (pos *Position) IsAttackedBy(sq Square, co Color) bool {
	return pos.GetAttacker(sq, co) != NoFigure
}

