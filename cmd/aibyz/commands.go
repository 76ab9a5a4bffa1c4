package main

import (
	"github.com/byzantron-research/aibyz-dataset/cmd"
	"github.com/byzantron-research/aibyz-dataset/collector"
	"github.com/byzantron-research/aibyz-dataset/db/kv"
	"github.com/byzantron-research/aibyz-dataset/enricher"
	"github.com/byzantron-research/aibyz-dataset/finalizer"
	"github.com/byzantron-research/aibyz-dataset/node"
	"github.com/byzantron-research/aibyz-dataset/simulator"
	"github.com/dustin/go-humanize"
	"github.com/manifoldco/promptui"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// openStore opens the intermediate database under --datadir.
func openStore(cliCtx *cli.Context) (*kv.Store, error) {
	dataDir := cliCtx.String(cmd.DataDirFlag.Name)
	if dataDir == "" {
		return nil, errors.New("could not determine a data directory, please set --datadir")
	}
	return kv.NewKVStore(dataDir, &kv.Config{})
}

func closeStore(store *kv.Store) {
	if err := store.Close(); err != nil {
		log.WithError(err).Error("Could not close database")
	}
}

var collectCommand = &cli.Command{
	Name:  "collect",
	Usage: "collect raw validator telemetry from the configured chain endpoints",
	Action: func(cliCtx *cli.Context) error {
		if err := node.ConfigureParams(cliCtx); err != nil {
			return err
		}
		store, err := openStore(cliCtx)
		if err != nil {
			return err
		}
		defer closeStore(store)
		return runCollect(cliCtx, store)
	},
}

func runCollect(cliCtx *cli.Context, store *kv.Store) error {
	chains, err := node.BuildChains(cliCtx)
	if err != nil {
		return err
	}
	if len(chains) == 0 {
		return errors.New("no chain endpoints configured, set --eth2-endpoint or --cosmos-endpoint")
	}
	perf, err := node.BuildPerformanceClient(cliCtx)
	if err != nil {
		return err
	}
	svc, err := collector.NewService(cliCtx.Context, &collector.Config{
		Database:        store,
		Chains:          chains,
		Performance:     perf,
		DatasetRoot:     cliCtx.String(cmd.DatasetDirFlag.Name),
		TrackedFile:     cliCtx.String(cmd.TrackedValidatorsFileFlag.Name),
		DisableProgress: cliCtx.Bool(cmd.DisableProgressFlag.Name),
	})
	if err != nil {
		return err
	}
	return svc.Collect(cliCtx.Context)
}

var simulateCommand = &cli.Command{
	Name:  "simulate",
	Usage: "generate synthetic validator behavior with the agent-based simulator",
	Action: func(cliCtx *cli.Context) error {
		if err := node.ConfigureParams(cliCtx); err != nil {
			return err
		}
		store, err := openStore(cliCtx)
		if err != nil {
			return err
		}
		defer closeStore(store)
		return runSimulate(cliCtx, store)
	},
}

func runSimulate(cliCtx *cli.Context, store *kv.Store) error {
	p, err := node.SimulatorParams(cliCtx)
	if err != nil {
		return err
	}
	sim, err := simulator.New(store, p)
	if err != nil {
		return err
	}
	rows, err := sim.Generate(cliCtx.Context, cliCtx.String(cmd.DatasetDirFlag.Name))
	if err != nil {
		return err
	}
	log.WithField("rows", len(rows)).Info("Synthetic generation complete")
	return nil
}

var enrichCommand = &cli.Command{
	Name:  "enrich",
	Usage: "join raw and synthetic rows into unified records with derived features",
	Action: func(cliCtx *cli.Context) error {
		if err := node.ConfigureParams(cliCtx); err != nil {
			return err
		}
		store, err := openStore(cliCtx)
		if err != nil {
			return err
		}
		defer closeStore(store)
		return runEnrich(cliCtx, store)
	},
}

func runEnrich(cliCtx *cli.Context, store *kv.Store) error {
	e := enricher.New(store, cliCtx.String(cmd.DatasetDirFlag.Name), node.EnrichmentChains(cliCtx))
	_, err := e.Enrich(cliCtx.Context)
	return err
}

var exportCommand = &cli.Command{
	Name:  "export",
	Usage: "validate the enriched records and export the final dataset with its manifest",
	Action: func(cliCtx *cli.Context) error {
		if err := node.ConfigureParams(cliCtx); err != nil {
			return err
		}
		store, err := openStore(cliCtx)
		if err != nil {
			return err
		}
		defer closeStore(store)
		return runExport(cliCtx, store)
	},
}

func runExport(cliCtx *cli.Context, store *kv.Store) error {
	f := finalizer.New(&finalizer.Config{
		Database:        store,
		DatasetRoot:     cliCtx.String(cmd.DatasetDirFlag.Name),
		JSONLines:       cliCtx.Bool(cmd.JSONLinesFlag.Name),
		DisableProgress: cliCtx.Bool(cmd.DisableProgressFlag.Name),
	})
	_, err := f.Finalize(cliCtx.Context)
	return err
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "run all four stages in order: collect, simulate, enrich, export",
	Action: func(cliCtx *cli.Context) error {
		if err := node.ConfigureParams(cliCtx); err != nil {
			return err
		}
		store, err := openStore(cliCtx)
		if err != nil {
			return err
		}
		defer closeStore(store)
		if err := runCollect(cliCtx, store); err != nil {
			return errors.Wrap(err, "collection stage failed")
		}
		if err := runSimulate(cliCtx, store); err != nil {
			return errors.Wrap(err, "simulation stage failed")
		}
		if err := runEnrich(cliCtx, store); err != nil {
			return errors.Wrap(err, "enrichment stage failed")
		}
		if err := runExport(cliCtx, store); err != nil {
			return errors.Wrap(err, "export stage failed")
		}
		return nil
	},
}

var watchCommand = &cli.Command{
	Name:  "watch",
	Usage: "run as a daemon, collecting incrementally and enriching on a cadence",
	Action: func(cliCtx *cli.Context) error {
		n, err := node.New(cliCtx)
		if err != nil {
			return err
		}
		n.Start()
		return nil
	},
}

var dbCommand = &cli.Command{
	Name:  "db",
	Usage: "inspect and manage the intermediate database",
	Subcommands: []*cli.Command{
		{
			Name:  "size",
			Usage: "print the database size",
			Action: func(cliCtx *cli.Context) error {
				store, err := openStore(cliCtx)
				if err != nil {
					return err
				}
				defer closeStore(store)
				size, err := store.Size()
				if err != nil {
					return err
				}
				log.WithField("path", store.DatabasePath()).
					WithField("size", humanize.Bytes(uint64(size))).
					Info("Database size")
				return nil
			},
		},
		{
			Name:  "clear",
			Usage: "remove all previously stored data",
			Action: func(cliCtx *cli.Context) error {
				store, err := openStore(cliCtx)
				if err != nil {
					return err
				}
				defer closeStore(store)
				if !cliCtx.Bool(cmd.ForceClearDB.Name) {
					prompt := promptui.Prompt{
						Label:     "This will delete all collected data. Continue",
						IsConfirm: true,
					}
					if _, err := prompt.Run(); err != nil {
						log.Info("Clear DB aborted")
						return nil
					}
				}
				log.Warning("Removing database")
				return store.ClearDB()
			},
		},
	},
}
