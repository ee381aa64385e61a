// Command tracegen runs the learn-the-topology algorithm on a chosen
// topology and synchrony model, then writes the recorded trace as gob and
// JSON files and stores it in a badger trace store.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dsimlab/dsim"
	"github.com/dsimlab/dsim/algorithms"
	"github.com/dsimlab/dsim/causality"
	"github.com/dsimlab/dsim/sim"
	"github.com/dsimlab/dsim/trace"
)

var (
	topologyName  = flag.String("topology", "ring", "topology: ring, complete, or star")
	size          = flag.Int("size", 5, "number of processes")
	synchronyName = flag.String("synchrony", "async", "synchrony model: sync, async, psync, or stochastic")
	seed          = flag.Int64("seed", 1, "seed for delay sampling")
	stepLimit     = flag.Int("steps", 100000, "step limit (0 = unbounded)")
	outDir        = flag.String("out", "traces", "output directory for encoded traces")
	storeDir      = flag.String("store", "", "badger store directory (empty = skip storing)")
	runID         = flag.String("run", "sample", "run id used for file names and the store key")
)

func buildTopology() (dsim.Topology, error) {
	switch *topologyName {
	case "ring":
		return dsim.RingOfSize(*size, false)
	case "complete":
		return dsim.CompleteGraphOfSize(*size)
	case "star":
		return dsim.StarOfSize(*size)
	default:
		return nil, fmt.Errorf("unknown topology %q", *topologyName)
	}
}

func buildSynchrony() (dsim.SynchronyModel, error) {
	switch *synchronyName {
	case "sync":
		return dsim.NewSynchronous(time.Millisecond)
	case "async":
		return dsim.NewAsynchronous(time.Second)
	case "psync":
		return dsim.NewPartiallySynchronous(time.Millisecond, 5*time.Millisecond)
	case "stochastic":
		return dsim.NewStochasticExponential(time.Millisecond)
	default:
		return nil, fmt.Errorf("unknown synchrony model %q", *synchronyName)
	}
}

func run() error {
	topology, err := buildTopology()
	if err != nil {
		return err
	}
	synchrony, err := buildSynchrony()
	if err != nil {
		return err
	}
	system := dsim.NewSystem(topology, synchrony)
	algorithm := algorithms.LearnGraph{System: system}

	simulator := sim.New(system, algorithm, sim.WithTrace(), sim.WithSeed(*seed))
	if err := simulator.Start(); err != nil {
		return err
	}
	simulator.Schedule(algorithms.Start{Signal: dsim.SignalTo(dsim.Pid(1))}, 0)
	steps, err := simulator.RunToCompletion(*stepLimit)
	if err != nil {
		return err
	}
	record := simulator.Trace()
	log.Printf("simulated %d steps, %d occurrences, %d snapshots",
		steps, record.Len(), len(record.Snapshots()))

	history, err := causality.Build(record)
	if err != nil {
		return err
	}
	minL, maxL := history.LogicalTimeRange()
	log.Printf("causality: %d atomic events, lamport range [%d, %d]",
		history.Len(), minL, maxL)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}
	gobData, err := trace.EncodeGob(record)
	if err != nil {
		return err
	}
	gobPath := filepath.Join(*outDir, *runID+".gob")
	if err := os.WriteFile(gobPath, gobData, 0o644); err != nil {
		return err
	}
	jsonData, err := trace.EncodeJSON(record)
	if err != nil {
		return err
	}
	jsonPath := filepath.Join(*outDir, *runID+".json")
	if err := os.WriteFile(jsonPath, jsonData, 0o644); err != nil {
		return err
	}
	log.Printf("wrote %s and %s", gobPath, jsonPath)

	if *storeDir != "" {
		store, err := trace.OpenStore(*storeDir)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := store.Close(); cerr != nil {
				log.Printf("closing store: %v", cerr)
			}
		}()
		if err := store.Put(*runID, record); err != nil {
			return err
		}
		log.Printf("stored trace %q in %s", *runID, *storeDir)
	}
	return nil
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
