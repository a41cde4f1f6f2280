package main

import (
	"flag"
	"log"
	"os"

	"caseboard/internal/board"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	var boardFile string
	var tuningFile string
	var slotPath string

	flag.StringVar(&boardFile, "board", "board.json", "board document to load/save (F5 save, F9 load)")
	flag.StringVar(&tuningFile, "tuning", "caseboard.yaml", "tuning config file (defaults apply if missing)")
	flag.StringVar(&slotPath, "db", "caseboard.db", "save-slot database path")
	flag.Parse()

	tuning, err := board.LoadTuning(tuningFile)
	if err != nil {
		log.Fatal(err)
	}

	s := board.NewSession(tuning, 1600, 900, 4096, 2304)
	s.SetBoardFile(boardFile)
	s.SetSlotPath(slotPath)

	if _, err := os.Stat(boardFile); err == nil {
		doc, err := board.LoadDocument(boardFile)
		if err != nil {
			log.Fatal(err)
		}
		for _, msg := range s.RestoreSnapshot(doc) {
			log.Printf("skipped: %s", msg)
		}
	} else {
		seedDemoCase(s)
	}

	ebiten.SetWindowTitle("Case Board")
	ebiten.SetWindowSize(1600, 900)
	if err := ebiten.RunGame(s); err != nil {
		log.Fatal(err)
	}
}

// seedDemoCase lays out a small starter case so an empty board is not a
// blank wall.
func seedDemoCase(s *board.Session) {
	size := board.Vec{X: 150, Y: 150}
	a := s.AddCard("victim: E. Halloway", board.Vec{X: 600, Y: 400}, size)
	b := s.AddCard("witness statement", board.Vec{X: 1100, Y: 350}, size)
	c := s.AddCard("broken watch, 23:14", board.Vec{X: 850, Y: 800}, size)
	s.AddCard("hotel keycard", board.Vec{X: 1400, Y: 750}, size)
	s.Manager().Connect(a, b)
	s.Manager().Connect(a, c)
}
