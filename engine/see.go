// Copyright 2014-2016 The Zurichess Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// see.go implements static exchange evaluation.

package engine

// seeBonus holds the per-figure values used by the exchange evaluator:
// pawn, knight, bishop, rook, queen, king.
var seeBonus = [FigureArraySize]int32{0, 100, 320, 330, 500, 900, 10000}

func seeScore(m Move) int32 {
	score := seeBonus[m.Capture().Figure()]
	if m.MoveType() == Promotion {
		score -= seeBonus[Pawn]
		score += seeBonus[m.Target().Figure()]
	}
	return score
}

// seeSign return true if see(m) < 0.
func seeSign(pos *Position, m Move) bool {
	if m.Piece().Figure() <= m.Capture().Figure() {
		// Even if m.Piece() is captured, we are still positive.
		return false
	}
	return see(pos, m) < 0
}

// see returns the static exchange evaluation for m, which is
// valid for the current position (not yet executed).
//
// The algorithm replays captures on m.To(), square by square, always
// bringing in the least valuable attacker, and keeps a stack of running
// gains. The final score is derived by walking the stack backwards and
// letting each side choose whether or not it would continue the capture
// sequence -- a side never plays a capture that leaves it worse off than
// stopping.
func see(pos *Position, m Move) int32 {
	us := pos.Us()
	sq := m.To()
	bb := sq.Bitboard()
	target := m.Target() // piece that ends up on sq after m
	bb27 := bb &^ (BbRank1 | BbRank8)
	bb18 := bb & (BbRank1 | BbRank8)

	var occ [ColorArraySize]Bitboard
	occ[White] = pos.ByColor[White]
	occ[Black] = pos.ByColor[Black]

	// Occupancy tables as if the move is executed.
	occ[us] &^= m.From().Bitboard()
	occ[us] |= m.To().Bitboard()
	occ[us.Opposite()] &^= m.CaptureSquare().Bitboard()
	us = us.Opposite()

	all := occ[White] | occ[Black]

	// Adjust score for move.
	score := seeScore(m)
	gain := [16]int32{score}
	depth := 1

	for score >= 0 {
		// Try every figure in order of value.
		var fig Figure                  // attacking figure
		var att Bitboard                // attackers
		var pawn, bishop, rook Bitboard // mobilities for our figures

		ours := occ[us]
		mt := Normal

		// Pawn attacks.
		pawn = Backward(us, West(bb27)|East(bb27))
		if att = pawn & ours & pos.ByFigure[Pawn]; att != 0 {
			fig = Pawn
			goto makeMove
		}

		if att = pos.KnightMobility(sq) & ours & pos.ByFigure[Knight]; att != 0 {
			fig = Knight
			goto makeMove
		}

		if bbSuperAttack[sq]&ours == 0 {
			// No other figure can attack sq so we give up early.
			break
		}

		bishop = pos.BishopMobility(sq, all)
		if att = bishop & ours & pos.ByFigure[Bishop]; att != 0 {
			fig = Bishop
			goto makeMove
		}

		rook = pos.RookMobility(sq, all)
		if att = rook & ours & pos.ByFigure[Rook]; att != 0 {
			fig = Rook
			goto makeMove
		}

		// Pawn promotions are considered queens minus the pawn.
		pawn = Backward(us, West(bb18)|East(bb18))
		if att = pawn & ours & pos.ByFigure[Pawn]; att != 0 {
			fig, mt = Queen, Promotion
			goto makeMove
		}

		if att = (rook | bishop) & ours & pos.ByFigure[Queen]; att != 0 {
			fig = Queen
			goto makeMove
		}

		if att = pos.KingMobility(sq) & ours & pos.ByFigure[King]; att != 0 {
			fig = King
			goto makeMove
		}

		// No attack found.
		break

	makeMove:
		// Make a new pseudo-legal move of the smallest attacker.
		from := att.LSB()
		attacker := ColorFigure(us, fig)
		cm := MakeMove(mt, from.AsSquare(), sq, target, attacker)
		target = attacker // attacker becomes the new target

		// Update score.
		score = seeScore(cm) - score
		gain[depth] = score
		depth++

		// Update occupancy tables for executing the move.
		occ[us] = occ[us] &^ from
		all = all &^ from

		// Switch sides.
		us = us.Opposite()
	}

	for i := depth - 2; i >= 0; i-- {
		if -gain[i+1] < gain[i] {
			gain[i] = -gain[i+1]
		}
	}
	return gain[0]
}
