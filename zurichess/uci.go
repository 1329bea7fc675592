// Copyright 2014-2016 The Zurichess Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// uci implements the UCI protocol which is described here http://wbec-ridderkerk.nl/html/UCIProtocol.html.
//
// Three long-lived goroutines exchange typed messages over channels
// (buffered for input lines and reports, unbuffered for search commands):
// the reader parses lines from stdin into requests, the
// coordinator owns the position and the transposition table and turns
// requests into search commands, and the search worker runs iterative
// deepening and reports progress back. The board, history and hash table
// are shared state that only the coordinator touches between searches;
// the worker owns them exclusively for the duration of a `go`.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rodent/engine"
)

// ErrQuit signals a clean shutdown requested by the `quit` command.
var ErrQuit = errors.New("quit")

const maxHashMB = 65536

// searchCommand is sent from the coordinator to the search worker.
type searchCommand struct {
	kind startOrQuit
	pos  *engine.Position
	tc   *engine.TimeControl
}

type startOrQuit int

const (
	cmdStart startOrQuit = iota
	cmdQuit
)

// report is sent from the search worker (via the logger) back to the
// coordinator, which is the sole writer of stdout.
type report struct {
	line     string
	bestmove bool
}

// asyncLogger adapts engine.Logger onto a channel so PrintPV calls made from
// the search worker goroutine never race with the coordinator's own writes.
type asyncLogger struct {
	out   chan<- report
	start time.Time
}

func (al *asyncLogger) BeginSearch() { al.start = time.Now() }
func (al *asyncLogger) EndSearch()   {}

func (al *asyncLogger) PrintPV(stats engine.Stats, score int32, pv []engine.Move) {
	var b strings.Builder
	fmt.Fprintf(&b, "info depth %d seldepth %d ", stats.Depth, stats.SelDepth)

	if score > engine.KnownWinScore {
		fmt.Fprintf(&b, "score mate %d ", (engine.InfinityScore-score+1)/2)
	} else if score < engine.KnownLossScore {
		fmt.Fprintf(&b, "score mate %d ", -(engine.InfinityScore+score+1)/2)
	} else {
		fmt.Fprintf(&b, "score cp %d ", score)
	}

	elapsed := time.Since(al.start)
	if elapsed <= 0 {
		elapsed = time.Microsecond
	}
	nps := stats.Nodes * uint64(time.Second) / uint64(elapsed)
	fmt.Fprintf(&b, "nodes %d time %d nps %d hashfull %d ",
		stats.Nodes, uint64(elapsed/time.Millisecond), nps, engine.GlobalHashTable.Hashfull())

	fmt.Fprintf(&b, "pv")
	for _, m := range pv {
		fmt.Fprintf(&b, " %v", m.UCI())
	}

	al.out <- report{line: b.String()}
}

// UCI owns the coordinator side of the protocol: configuration, the
// current position and move history, and the channels to the reader and
// the search worker.
type UCI struct {
	Engine *engine.Engine

	reports chan report      // worker/logger -> coordinator
	search  chan searchCommand // coordinator -> worker

	timeControl *engine.TimeControl
	searching   bool
}

// NewUCI creates a coordinator and starts its search worker goroutine.
func NewUCI() *UCI {
	reports := make(chan report, 64)
	uci := &UCI{
		Engine:  engine.NewEngine(nil, &asyncLogger{out: reports}, engine.Options{}),
		reports: reports,
		search:  make(chan searchCommand),
	}
	go uci.worker()
	return uci
}

// worker is the search thread: it blocks for a command, runs iterative
// deepening while it lasts, and reports the best move. It owns the
// position and the hash table exclusively while a search is in progress.
func (uci *UCI) worker() {
	for cmd := range uci.search {
		switch cmd.kind {
		case cmdQuit:
			return
		case cmdStart:
			moves := uci.Engine.Play(cmd.tc)
			uci.reports <- report{line: formatBestMove(moves), bestmove: true}
		}
	}
}

func formatBestMove(moves []engine.Move) string {
	if len(moves) == 0 {
		return "bestmove 0000"
	}
	if len(moves) == 1 {
		return fmt.Sprintf("bestmove %v", moves[0].UCI())
	}
	return fmt.Sprintf("bestmove %v ponder %v", moves[0].UCI(), moves[1].UCI())
}

var reCmd = regexp.MustCompile(`^[[:word:]]+\b`)

// Execute parses and handles a single line from the host. It must be
// called only from the coordinator goroutine.
func (uci *UCI) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	cmd := reCmd.FindString(line)
	if cmd == "" {
		return fmt.Errorf("invalid command line")
	}

	switch cmd {
	case "isready":
		return uci.isready()
	case "quit":
		uci.stop()
		uci.search <- searchCommand{kind: cmdQuit}
		return ErrQuit
	case "stop":
		return uci.stop()
	case "uci":
		return uci.uci()
	case "ponderhit", "register":
		log.Printf("warning: %s is acknowledged but not implemented", cmd)
		return nil
	case "debug":
		return nil
	}

	if uci.searching {
		return fmt.Errorf("engine is busy searching, cannot handle %s", cmd)
	}

	switch cmd {
	case "ucinewgame":
		return uci.ucinewgame()
	case "position":
		return uci.position(line)
	case "go":
		return uci.go_(line)
	case "setoption":
		return uci.setoption(line)
	case "eval":
		return uci.eval()
	case "board":
		return uci.board()
	case "options":
		return uci.options()
	case "make":
		return uci.make(line)
	case "sleep":
		return uci.sleep(line)
	case "probe":
		return uci.probe()
	default:
		return fmt.Errorf("unhandled command %s", cmd)
	}
}

// eval prints the static evaluation of the current position, an operator
// command useful for poking at the evaluator outside of a search.
func (uci *UCI) eval() error {
	fmt.Println(engine.Evaluate(uci.Engine.Position))
	return nil
}

// board pretty-prints the current position to the diagnostic stream.
func (uci *UCI) board() error {
	uci.Engine.Position.PrettyPrint()
	return nil
}

// options lists the supported setoption names, mirroring the id/option
// block sent in response to `uci`.
func (uci *UCI) options() error {
	fmt.Printf("option name Hash type spin default %d min 1 max %d\n", engine.DefaultHashTableSizeMB, maxHashMB)
	fmt.Printf("option name Threads type spin default 1 min 1 max 1\n")
	return nil
}

// make plays a single UCI move on the current position without starting a
// search, for manual exploration from the operator console.
func (uci *UCI) make(line string) error {
	args := strings.Fields(line)
	if len(args) != 2 {
		return fmt.Errorf("make expects a single uci move")
	}
	move, err := uci.Engine.Position.UCIToMove(args[1])
	if err != nil {
		return fmt.Errorf("make: %v", err)
	}
	uci.Engine.DoMove(move)
	return nil
}

// sleep blocks the coordinator for the given number of milliseconds; it
// exists to script timing-sensitive manual tests from the console.
func (uci *UCI) sleep(line string) error {
	args := strings.Fields(line)
	if len(args) != 2 {
		return fmt.Errorf("sleep expects a millisecond count")
	}
	ms, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("sleep: %v", err)
	}
	time.Sleep(clampDuration(ms))
	return nil
}

// probe reports the transposition table entry for the current position, if
// any, and the table's current hashfull.
func (uci *UCI) probe() error {
	entry, ok := engine.GlobalHashTable.Probe(uci.Engine.Position)
	if !ok {
		fmt.Println("probe: no entry")
	} else {
		fmt.Printf("probe: %s\n", entry)
	}
	fmt.Println("hashfull", engine.GlobalHashTable.Hashfull())
	return nil
}

// Drain forwards reports (info lines, bestmove) produced by the worker to
// stdout, marking the engine idle again once a bestmove is seen. Must run
// on the coordinator goroutine, interleaved with Execute via select in the
// caller's loop.
func (uci *UCI) Drain(rep report) {
	fmt.Println(rep.line)
	if rep.bestmove {
		uci.searching = false
	}
}

func (uci *UCI) uci() error {
	fmt.Printf("id name %s %v\n", engineName, buildVersion)
	fmt.Printf("id author %s\n", engineAuthor)
	fmt.Println()
	fmt.Printf("option name Hash type spin default %d min 1 max %d\n", engine.DefaultHashTableSizeMB, maxHashMB)
	fmt.Printf("option name Threads type spin default 1 min 1 max 1\n")
	fmt.Println("uciok")
	return nil
}

func (uci *UCI) isready() error {
	fmt.Println("readyok")
	return nil
}

func (uci *UCI) ucinewgame() error {
	engine.GlobalHashTable.Clear()
	uci.Engine.SetPosition(nil)
	return nil
}

func (uci *UCI) position(line string) error {
	args := strings.Fields(line)[1:]
	if len(args) == 0 {
		return fmt.Errorf("expected argument for 'position'")
	}

	var pos *engine.Position
	var err error
	i := 0
	switch args[0] {
	case "startpos":
		pos, err = engine.PositionFromFEN(engine.FENStartPos)
		i = 1
	case "fen":
		i = 1
		for i < len(args) && args[i] != "moves" {
			i++
		}
		pos, err = engine.PositionFromFEN(strings.Join(args[1:i], " "))
	default:
		err = fmt.Errorf("unknown position command: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("position: %v", err)
	}

	uci.Engine.SetPosition(pos)

	if i < len(args) {
		if args[i] != "moves" {
			return fmt.Errorf("expected 'moves', got '%s'", args[i])
		}
		for _, m := range args[i+1:] {
			move, err := uci.Engine.Position.UCIToMove(m)
			if err != nil {
				return fmt.Errorf("position: %v", err)
			}
			uci.Engine.DoMove(move)
		}
	}
	return nil
}

var validGoCommands = map[string]bool{
	"searchmoves": true,
	"wtime":       true,
	"btime":       true,
	"winc":        true,
	"binc":        true,
	"movestogo":   true,
	"depth":       true,
	"nodes":       true,
	"mate":        true,
	"movetime":    true,
	"infinite":    true,
}

func (uci *UCI) go_(line string) error {
	tc := engine.NewTimeControl(uci.Engine.Position)

	args := strings.Fields(line)[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "searchmoves":
			// Root move restriction is not implemented; skip the move list.
			for i+1 < len(args) && !validGoCommands[args[i+1]] {
				i++
			}
		case "infinite":
			tc.Mode = engine.InfiniteMode
		case "wtime":
			i++
			t, _ := strconv.Atoi(args[i])
			tc.WTime = clampDuration(t)
		case "winc":
			i++
			t, _ := strconv.Atoi(args[i])
			tc.WInc = clampDuration(t)
		case "btime":
			i++
			t, _ := strconv.Atoi(args[i])
			tc.BTime = clampDuration(t)
		case "binc":
			i++
			t, _ := strconv.Atoi(args[i])
			tc.BInc = clampDuration(t)
		case "movestogo":
			i++
			n, _ := strconv.Atoi(args[i])
			tc.MovesToGo = n
		case "movetime":
			i++
			t, _ := strconv.Atoi(args[i])
			tc.Mode = engine.MoveTimeMode
			tc.WTime, tc.BTime = clampDuration(t), clampDuration(t)
			tc.WInc, tc.BInc = 0, 0
		case "depth":
			i++
			d, _ := strconv.Atoi(args[i])
			tc.Mode = engine.DepthMode
			tc.Depth = d
		case "nodes", "mate":
			i++
			log.Println("warning:", args[i-1], "not implemented, ignoring")
		default:
			return fmt.Errorf("invalid go command %s", args[i])
		}
	}

	tc.Start(false)
	uci.timeControl = tc
	uci.searching = true
	uci.search <- searchCommand{kind: cmdStart, pos: uci.Engine.Position, tc: tc}
	return nil
}

// clampDuration turns a possibly negative or overflowing millisecond count
// into a non-negative duration, per the error-handling policy for time
// parsing.
func clampDuration(ms int) time.Duration {
	if ms < 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func (uci *UCI) stop() error {
	if uci.timeControl != nil {
		uci.timeControl.Stop()
	}
	return nil
}

var reOption = regexp.MustCompile(`^setoption\s+name\s+(.+?)(\s+value\s+(.*))?$`)

func (uci *UCI) setoption(line string) error {
	option := reOption.FindStringSubmatch(line)
	if option == nil {
		return fmt.Errorf("invalid setoption arguments")
	}

	switch option[1] {
	case "Clear Hash":
		engine.GlobalHashTable.Clear()
		return nil
	}

	if len(option) < 3 || option[3] == "" {
		return fmt.Errorf("missing setoption value")
	}
	switch option[1] {
	case "Hash":
		hashSizeMB, err := strconv.Atoi(option[3])
		if err != nil {
			return fmt.Errorf("setoption Hash: %v", err)
		}
		if hashSizeMB < 1 || hashSizeMB > maxHashMB {
			return fmt.Errorf("setoption Hash: must be between 1 and %d", maxHashMB)
		}
		engine.GlobalHashTable = engine.NewHashTable(hashSizeMB)
		return nil
	case "Threads":
		n, err := strconv.Atoi(option[3])
		if err != nil {
			return fmt.Errorf("setoption Threads: %v", err)
		}
		if n != 1 {
			return fmt.Errorf("setoption Threads: only 1 is supported")
		}
		return nil
	default:
		return fmt.Errorf("unhandled option %s", option[1])
	}
}

// reader is the protocol-reader thread: it owns stdin and forwards every
// non-empty line to lines, then closes it at EOF.
func reader(r *bufio.Reader, lines chan<- string) {
	defer close(lines)
	for {
		line, _, err := r.ReadLine()
		if err != nil {
			return
		}
		lines <- string(line)
	}
}
