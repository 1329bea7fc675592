package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
)

const (
	engineName   = "rodent"
	engineAuthor = "the rodent authors"
)

var (
	buildVersion = "(devel)"
	buildTime    = "(just now)"

	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	version    = flag.Bool("version", false, "only print version and exit")
)

func main() {
	fmt.Printf("%s %v, build with %v at %v, running on %v\n",
		engineName, buildVersion, runtime.Version(), buildTime, runtime.GOARCH)

	flag.Parse()
	if *version {
		return
	}
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	log.SetOutput(os.Stderr)
	log.SetPrefix("info string ")
	log.SetFlags(log.Lshortfile)

	lines := make(chan string, 16)
	go reader(bufio.NewReader(os.Stdin), lines)

	uci := NewUCI()

	// The coordinator loop: the sole consumer of both the reader's line
	// queue and the search worker's report queue, and the sole writer of
	// stdout, so replies are always emitted in request order.
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := uci.Execute(line); err != nil {
				if err == ErrQuit {
					return
				}
				log.Println("for line:", line)
				log.Println("error:", err)
			}
		case rep := <-uci.reports:
			uci.Drain(rep)
		}
	}
}
