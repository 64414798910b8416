// Command kilter-fixture writes a synthetic Kilter Board snapshot for
// trying the report without an app export.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/kilter.report/internal/db"
)

func main() {
	var (
		out    string
		climbs int
		seed   int64
	)
	flag.StringVar(&out, "out", "fixture/db.sqlite3", "path of the snapshot to create")
	flag.IntVar(&climbs, "climbs", 500, "number of climbs to generate")
	flag.Int64Var(&seed, "seed", 1, "random seed")
	flag.Parse()

	if climbs <= 0 {
		log.Fatalf("-climbs must be positive, got %d", climbs)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		log.Fatalf("create directory: %v", err)
	}

	f := db.SyntheticFixture(seed, climbs)
	if err := db.CreateFixture(context.Background(), out, f); err != nil {
		log.Fatalf("create fixture: %v", err)
	}
	log.Printf("wrote %s: %d holds, %d placements, %d climbs, %d stats rows",
		out, len(f.Holds), len(f.Placements), len(f.Climbs), len(f.Stats))
}
