package main

import (
	"flag"
	"fmt"
	"os"

	"caseboard/internal/board"
)

func main() {
	var boardFile string
	var slotPath string
	var slotName string
	var tuningFile string

	flag.StringVar(&boardFile, "board", "", "board JSON document to check")
	flag.StringVar(&slotPath, "db", "", "save-slot database (used with -slot)")
	flag.StringVar(&slotName, "slot", "", "slot name to load from -db")
	flag.StringVar(&tuningFile, "tuning", "caseboard.yaml", "tuning config file")
	flag.Parse()

	if boardFile == "" && (slotPath == "" || slotName == "") {
		fmt.Println("error: need -board FILE, or -db FILE with -slot NAME")
		os.Exit(1)
	}

	tuning, err := board.LoadTuning(tuningFile)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	var doc board.Document
	switch {
	case boardFile != "":
		doc, err = board.LoadDocument(boardFile)
	default:
		var store *board.SlotStore
		store, err = board.OpenSlotStore(slotPath)
		if err == nil {
			doc, err = store.Load(slotName)
			store.Close()
		}
	}
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	s := board.NewSession(tuning, 1600, 900, 4096, 2304)
	skipped := s.RestoreSnapshot(doc)

	fmt.Printf("=== Board Check ===\n")
	fmt.Printf("cards=%d connections=%d skipped=%d\n\n", len(s.Cards()), len(s.Manager().Connections()), len(skipped))
	for _, msg := range skipped {
		fmt.Printf("skipped: %s\n", msg)
	}

	bad := 0
	for i, c := range s.Manager().Connections() {
		crossed := c.SelfIntersecting()
		if crossed {
			bad++
		}
		fmt.Printf("[%d] %s\n", i+1, c.Label())
		fmt.Printf("    control_points=%d length=%.0f self_intersecting=%v\n",
			len(c.ControlPoints()), c.Length(), crossed)
	}

	fmt.Printf("\n%d connection(s), %d with residual self-intersections\n", len(s.Manager().Connections()), bad)
	if bad > 0 {
		os.Exit(2)
	}
}
