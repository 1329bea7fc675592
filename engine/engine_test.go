// Copyright 2014-2016 The Zurichess Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"strings"
	"testing"
)

func TestGame(t *testing.T) {
	pos, _ := PositionFromFEN(FENStartPos)
	eng := NewEngine(pos, nil, Options{})
	for i := 0; i < 1; i++ {
		tc := NewFixedDepthTimeControl(pos, 3)
		tc.Start(false)
		pv := eng.Play(tc)
		eng.DoMove(pv[0])
	}
}

func TestMateIn1(t *testing.T) {
	for i, d := range mateIn1 {
		pos, _ := PositionFromFEN(d.fen)
		bm, err := pos.UCIToMove(d.bm)
		if err != nil {
			t.Errorf("#%d cannot parse move %s", i, d.bm)
			continue
		}

		tc := NewFixedDepthTimeControl(pos, 2)
		tc.Start(false)
		eng := NewEngine(pos, nil, Options{})
		pv := eng.Play(tc)

		if len(pv) != 1 {
			t.Errorf("#%d Expected exactly one move, got %d", i, len(pv))
			t.Errorf("position is %v", pos)
			continue
		}

		if pv[0] != bm {
			t.Errorf("#%d expected move %v, got %v", i, bm, pv[0])
			t.Errorf("position is %v", pos)
			continue
		}
	}
}

// Test score is the same if we start with the position or move.
func TestScore(t *testing.T) {
	for _, game := range testGames {
		pos, _ := PositionFromFEN(FENStartPos)
		dynamic := NewEngine(pos, nil, Options{})
		static := NewEngine(pos, nil, Options{})

		moves := strings.Fields(game)
		for _, move := range moves {
			m, _ := pos.UCIToMove(move)
			dynamic.DoMove(m)
			static.SetPosition(pos)
			if dynamic.Score() != static.Score() {
				t.Fatalf("expected static score %v, got dynamic score %v", static.Score(), dynamic.Score())
			}
		}
	}
}

func TestEndGamePosition(t *testing.T) {
	pos, _ := PositionFromFEN("6k1/5p1p/4p1p1/3p4/5P1P/8/3r2q1/6K1 w - - 2 55")
	tc := NewFixedDepthTimeControl(pos, 3)
	tc.Start(false)
	eng := NewEngine(pos, nil, Options{})
	pv := eng.Play(tc)
	if pv != nil {
		t.Errorf("got %d moves (nonil, pv), expected nil pv", len(pv))
	}
}

// pvLogger logs the PV reported at each completed iteration.
type pvLog struct {
	depth int32
	score int32
	moves []Move
}

type pvLogger []pvLog

func (l *pvLogger) BeginSearch() {}
func (l *pvLogger) EndSearch()   {}

func (l *pvLogger) PrintPV(stats Stats, score int32, moves []Move) {
	*l = append(*l, pvLog{
		depth: stats.Depth,
		score: score,
		moves: moves,
	})
}

func TestIterativeDeepeningReportsDepthsInOrder(t *testing.T) {
	for _, fen := range testFENs {
		pos, _ := PositionFromFEN(fen)
		tc := NewFixedDepthTimeControl(pos, 4)
		tc.Start(false)
		pvl := pvLogger{}
		eng := NewEngine(pos, &pvl, Options{})
		eng.Play(tc)

		for i := 1; i < len(pvl); i++ {
			if pvl[i-1].depth > pvl[i].depth {
				t.Errorf("%s: depths reported out of order", fen)
			}
		}
	}
}

func BenchmarkGame(b *testing.B) {
	for i := 0; i < b.N; i++ {
		pos, _ := PositionFromFEN(FENStartPos)
		eng := NewEngine(pos, nil, Options{})
		for j := 0; j < 20; j++ {
			tc := NewFixedDepthTimeControl(pos, 4)
			tc.Start(false)
			pv := eng.Play(tc)
			eng.DoMove(pv[0])
		}
	}
}
