// Command vsengine is the playable entry point: it opens an archive,
// loads one of its modules, and drives the fixed-tick loop either
// through an ebiten window or, in a `-headless` build, with no display
// backend at all (driver.Run), matching the teacher's cmd/ie32to64
// flag-parsed CLI shape.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/vsengine/vsengine/engine"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s -archive <path> [flags]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Runs a Gamos-format game archive through the vsengine interpreter.\n\n")
	flag.PrintDefaults()
}

func main() {
	archivePath := flag.String("archive", "", "path to the game's resource archive (required)")
	moduleID := flag.Uint("module", 0, "directory entry id of the module to load first")
	slot := flag.Int("slot", -1, "save slot to restore on startup (-1 starts a fresh module)")
	fps := flag.Int("fps", 20, "fixed tick rate, clamped to [1,50]")
	gameID := flag.String("game", "game", "save-file family name (saveload.MakeSaveName's game id)")
	saveDir := flag.String("save-dir", "saves", "directory save files are read from and written to")
	headless := flag.Bool("headless", false, "run without an audio device or display window")
	flag.Usage = usage
	flag.Parse()

	if *archivePath == "" {
		fmt.Fprintln(os.Stderr, "vsengine: -archive is required")
		flag.Usage()
		os.Exit(1)
	}

	if *headless {
		log.Printf("vsengine: -headless requested; effective only when built with -tags headless")
	}

	player := newPlayer()

	es, err := engine.New(*archivePath, *gameID, *saveDir, *fps, player)
	if err != nil {
		log.Fatalf("vsengine: %v", err)
	}
	defer es.Close()

	bindPlayerTable(player, es.Sounds)

	if err := es.LoadModule(uint32(*moduleID), *slot); err != nil {
		log.Fatalf("vsengine: %v", err)
	}

	if err := run(es); err != nil {
		log.Fatalf("vsengine: %v", err)
	}
}
