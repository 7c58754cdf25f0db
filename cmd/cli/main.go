package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/neuralview/spikescope/pkg/logger"
	"github.com/neuralview/spikescope/pkg/spikescope"
)

// Global flags
var (
	dbPath string
)

func init() {
	flag.StringVar(&dbPath, "db", getEnvOrDefault("SPIKESCOPE_DB_PATH", "spikescope.sqlite3"), "Path to the SQLite database file")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func createService() (spikescope.Service, error) {
	return spikescope.NewService(
		spikescope.WithDBPath(dbPath),
	)
}

func main() {
	log := logger.GetLogger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	log.Debugf("Executing command: %s", command)

	switch command {
	case "list":
		handleList()
	case "files":
		handleFiles()
	case "units":
		handleUnits()
	case "spike-train":
		handleSpikeTrain()
	case "rate":
		handleRate()
	case "acg":
		handleACG()
	case "notes":
		handleNotes()
	case "delete":
		handleDelete()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`SpikeScope - spike-sorted recording viewer

Usage:
  spikescope list                                List focus units
  spikescope files                               List recordings
  spikescope units <bin_filename>                List coarse-sorted units of a recording
  spikescope spike-train <focus_unit_id>         Show the assembled spike train
  spikescope rate <focus_unit_id> [-bin 1.0]     Firing-rate (count) series
  spikescope acg <focus_unit_id> [-window 100 -bin 1]
                                                 Autocorrelogram
  spikescope notes <focus_unit_id> <text>        Replace a focus unit's notes
  spikescope delete <focus_unit_id>              Delete a focus unit

Global flags:
  -db <path>     SQLite database path (env: SPIKESCOPE_DB_PATH)`)
}

func mustService() spikescope.Service {
	service, err := createService()
	if err != nil {
		logger.Fatalf("Failed to create service: %v", err)
	}
	return service
}

func handleList() {
	service := mustService()
	defer service.Close()

	ctx := context.Background()
	units, err := service.ListFocusUnits(ctx)
	if err != nil {
		logger.Fatalf("Failed to list focus units: %v", err)
	}
	files, err := service.ListFiles(ctx)
	if err != nil {
		logger.Fatalf("Failed to list recordings: %v", err)
	}

	if len(units) == 0 {
		fmt.Println("No focus units registered.")
		return
	}

	for _, unit := range units {
		stale := ""
		if spikescope.IsMismatched(unit, files) {
			stale = "  [STALE SORTING]"
		}
		fmt.Printf("%s  %s unit %d  (%d matches)%s\n",
			unit.FocusUnitID, unit.BinFilename, unit.UnitID, len(unit.MutualMatches), stale)
		if unit.Notes != "" {
			fmt.Printf("    notes: %s\n", unit.Notes)
		}
		for _, m := range unit.MutualMatches {
			fmt.Printf("    match: %s unit %d (score %.2f)\n", m.BinFilename, m.UnitID, m.OverallScore)
		}
	}
}

func handleFiles() {
	service := mustService()
	defer service.Close()

	files, err := service.ListFiles(context.Background())
	if err != nil {
		logger.Fatalf("Failed to list recordings: %v", err)
	}

	if len(files) == 0 {
		fmt.Println("No recordings registered.")
		return
	}

	for _, f := range files {
		sorted := "unsorted"
		if f.HasCoarseSorting {
			sorted = "sorted"
		}
		fmt.Printf("%s  %.1f s  %s\n", f.BinFilename, f.DurationSec, sorted)
	}
}

func handleUnits() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: spikescope units <bin_filename>")
		os.Exit(1)
	}
	binFilename := os.Args[2]

	service := mustService()
	defer service.Close()

	units, hash, err := service.ListCoarseSortingUnits(context.Background(), binFilename)
	if err != nil {
		logger.Fatalf("Failed to list units: %v", err)
	}

	fmt.Printf("Coarse sorting for %s (hash %s):\n", binFilename, hash)
	for _, u := range units {
		fmt.Printf("  unit %d: %d spikes\n", u.UnitID, u.NumSpikes)
	}
}

func handleSpikeTrain() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: spikescope spike-train <focus_unit_id>")
		os.Exit(1)
	}
	focusUnitID := os.Args[2]

	service := mustService()
	defer service.Close()

	train, err := service.GetSpikeTrain(context.Background(), focusUnitID)
	if err != nil {
		logger.Fatalf("Failed to assemble spike train: %v", err)
	}

	fmt.Printf("Focus unit %s: %d spikes over %.1f s in %d segments\n",
		train.FocusUnitID, train.TotalSpikes, train.TotalDurationSec, len(train.Segments))
	for _, seg := range train.Segments {
		kind := "gap"
		if !seg.IsGap {
			kind = fmt.Sprintf("unit %d", *seg.UnitID)
			if seg.IsFocusUnit {
				kind += " (focus)"
			}
		}
		fmt.Printf("  [%8.1f - %8.1f] %s  %s: %d spikes\n",
			seg.StartTimeOffset, seg.EndTimeOffset, seg.BinFilename, kind, seg.NumSpikes)
	}
}

func handleRate() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: spikescope rate <focus_unit_id> [-bin <sec>]")
		os.Exit(1)
	}
	focusUnitID := os.Args[2]
	binSizeSec := parseFlagFloat(os.Args[3:], "bin", 1.0)

	service := mustService()
	defer service.Close()

	series, err := service.FiringRateSeries(context.Background(), focusUnitID, binSizeSec)
	if err != nil {
		logger.Fatalf("Failed to compute firing-rate series: %v", err)
	}

	fmt.Printf("Firing-rate series for %s (bin %.3g s, counts per bin):\n", focusUnitID, binSizeSec)
	for _, p := range series {
		fmt.Printf("  %10.2f  %d\n", p.TimeSec, p.Count)
	}
}

func handleACG() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: spikescope acg <focus_unit_id> [-window <ms>] [-bin <ms>]")
		os.Exit(1)
	}
	focusUnitID := os.Args[2]
	windowMs := parseFlagFloat(os.Args[3:], "window", 100.0)
	binSizeMs := parseFlagFloat(os.Args[3:], "bin", 1.0)

	service := mustService()
	defer service.Close()

	bins, err := service.Autocorrelogram(context.Background(), focusUnitID, windowMs, binSizeMs)
	if err != nil {
		logger.Fatalf("Failed to compute autocorrelogram: %v", err)
	}

	fmt.Printf("Autocorrelogram for %s (window %g ms, bin %g ms):\n", focusUnitID, windowMs, binSizeMs)
	for _, p := range bins {
		fmt.Printf("  %10.2f  %d\n", p.LagMs, p.Count)
	}
}

func handleNotes() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: spikescope notes <focus_unit_id> <text>")
		os.Exit(1)
	}
	focusUnitID := os.Args[2]
	notes := strings.Join(os.Args[3:], " ")

	service := mustService()
	defer service.Close()

	unit, err := service.UpdateFocusUnitNotes(context.Background(), focusUnitID, notes)
	if err != nil {
		logger.Fatalf("Failed to update notes: %v", err)
	}
	fmt.Printf("Updated notes for %s: %q\n", unit.FocusUnitID, unit.Notes)
}

func handleDelete() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: spikescope delete <focus_unit_id>")
		os.Exit(1)
	}
	focusUnitID := os.Args[2]

	service := mustService()
	defer service.Close()

	if err := service.DeleteFocusUnit(context.Background(), focusUnitID); err != nil {
		logger.Fatalf("Failed to delete focus unit: %v", err)
	}
	fmt.Printf("Deleted focus unit %s\n", focusUnitID)
}

// parseFlagFloat scans args for "-name value" and returns the parsed value,
// falling back to the default.
func parseFlagFloat(args []string, name string, def float64) float64 {
	flagName := "-" + name
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flagName {
			if v, err := strconv.ParseFloat(args[i+1], 64); err == nil {
				return v
			}
		}
	}
	return def
}
