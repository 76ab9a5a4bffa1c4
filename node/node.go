// Package node is the main process which handles the lifecycle of the
// runtime services in a watch-mode dataset pipeline, gracefully shutting
// everything down upon close.
package node

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/byzantron-research/aibyz-dataset/api/client"
	"github.com/byzantron-research/aibyz-dataset/async"
	"github.com/byzantron-research/aibyz-dataset/cmd"
	"github.com/byzantron-research/aibyz-dataset/collector"
	"github.com/byzantron-research/aibyz-dataset/collector/beaconchain"
	"github.com/byzantron-research/aibyz-dataset/collector/cosmos"
	"github.com/byzantron-research/aibyz-dataset/collector/eth2"
	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/db"
	"github.com/byzantron-research/aibyz-dataset/db/kv"
	"github.com/byzantron-research/aibyz-dataset/enricher"
	"github.com/byzantron-research/aibyz-dataset/monitoring/prometheus"
	"github.com/byzantron-research/aibyz-dataset/monitoring/tracing"
	"github.com/byzantron-research/aibyz-dataset/runtime"
	"github.com/byzantron-research/aibyz-dataset/runtime/version"
	"github.com/byzantron-research/aibyz-dataset/simulator"
	"github.com/byzantron-research/aibyz-dataset/time/epochs"
	"github.com/manifoldco/promptui"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("prefix", "node")

// DatasetNode manages the lifecycle of every watch-mode service: the kv
// store, the collector, the optional simulator, periodic enrichment, and the
// monitoring endpoint.
type DatasetNode struct {
	cliCtx   *cli.Context
	ctx      context.Context
	cancel   context.CancelFunc
	services *runtime.ServiceRegistry
	lock     sync.RWMutex
	stop     chan struct{}
	db       db.Database
}

// New creates a dataset node from cli flags.
func New(cliCtx *cli.Context) (*DatasetNode, error) {
	if err := tracing.Setup(
		"aibyz-dataset",
		cliCtx.String(cmd.TracingProcessNameFlag.Name),
		cliCtx.String(cmd.TracingEndpointFlag.Name),
		cliCtx.Float64(cmd.TraceSampleFractionFlag.Name),
		cliCtx.Bool(cmd.EnableTracingFlag.Name),
	); err != nil {
		return nil, err
	}
	if err := ConfigureParams(cliCtx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(cliCtx.Context)
	node := &DatasetNode{
		cliCtx:   cliCtx,
		ctx:      ctx,
		cancel:   cancel,
		services: runtime.NewServiceRegistry(),
		stop:     make(chan struct{}),
	}

	dataDir := cliCtx.String(cmd.DataDirFlag.Name)
	if dataDir == "" {
		cancel()
		return nil, errors.New("could not determine a data directory, please set --datadir")
	}
	if cliCtx.Bool(cmd.ClearDB.Name) || cliCtx.Bool(cmd.ForceClearDB.Name) {
		if err := clearDB(dataDir, cliCtx.Bool(cmd.ForceClearDB.Name)); err != nil {
			cancel()
			return nil, err
		}
	}
	store, err := kv.NewKVStore(dataDir, &kv.Config{})
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "could not open database")
	}
	node.db = store
	log.WithField("databasePath", store.DatabasePath()).Info("Opened intermediate store")

	if err := node.registerServices(); err != nil {
		// A half-built node must not hold the bolt file lock.
		cancel()
		if cerr := store.Close(); cerr != nil {
			log.WithError(cerr).Error("Could not close database")
		}
		return nil, err
	}
	return node, nil
}

func (n *DatasetNode) registerServices() error {
	if !n.cliCtx.Bool(cmd.DisableMonitoringFlag.Name) {
		if err := n.registerPrometheusService(); err != nil {
			return err
		}
	}
	if err := n.registerCollectorService(); err != nil {
		return err
	}
	if n.cliCtx.Bool(cmd.WithSimulatorFlag.Name) {
		if err := n.registerSimulatorService(); err != nil {
			return err
		}
	}
	return nil
}

// ConfigureParams applies the minimal-config flag and any parameter override
// file to the active config.
func ConfigureParams(cliCtx *cli.Context) error {
	if cliCtx.Bool(cmd.MinimalConfigFlag.Name) {
		log.Warn("Using minimal config")
		params.UseMinimalConfig()
	}
	if cliCtx.IsSet(cmd.ChainConfigFileFlag.Name) {
		if err := params.LoadConfigFile(cliCtx.String(cmd.ChainConfigFileFlag.Name)); err != nil {
			return errors.Wrap(err, "could not load parameter overrides")
		}
	}
	return nil
}

// BuildChains constructs the chain clients selected by cli flags.
func BuildChains(cliCtx *cli.Context) ([]collector.Chain, error) {
	chains := make([]collector.Chain, 0, 2)
	if endpoint := cliCtx.String(cmd.Eth2EndpointFlag.Name); endpoint != "" {
		c, err := eth2.NewClient(endpoint, cliCtx.String(cmd.Eth2NetworkFlag.Name))
		if err != nil {
			return nil, errors.Wrap(err, "could not build eth2 client")
		}
		chains = append(chains, c)
	}
	if endpoint := cliCtx.String(cmd.CosmosEndpointFlag.Name); endpoint != "" {
		c, err := cosmos.NewClient(
			endpoint,
			cliCtx.String(cmd.CosmosChainIDFlag.Name),
			cliCtx.String(cmd.CosmosNetworkFlag.Name),
		)
		if err != nil {
			return nil, errors.Wrap(err, "could not build cosmos client")
		}
		chains = append(chains, c)
	}
	return chains, nil
}

// BuildPerformanceClient constructs the explorer client when an endpoint is
// configured.
func BuildPerformanceClient(cliCtx *cli.Context) (collector.PerformanceClient, error) {
	endpoint := cliCtx.String(cmd.BeaconchainEndpointFlag.Name)
	if endpoint == "" {
		return nil, nil
	}
	c, err := beaconchain.NewClient(
		endpoint,
		cliCtx.String(cmd.Eth2NetworkFlag.Name),
		cliCtx.String(cmd.BeaconchainAPIKeyFlag.Name),
		client.WithTimeout(params.DatasetSpec().HTTPTimeout),
	)
	if err != nil {
		return nil, errors.Wrap(err, "could not build beaconchain client")
	}
	return c, nil
}

// SimulatorParams resolves simulation parameters: defaults, then an optional
// scenario file, then explicit flag overrides on top.
func SimulatorParams(cliCtx *cli.Context) (*simulator.Parameters, error) {
	p := simulator.DefaultParams()
	if cliCtx.IsSet(cmd.ScenarioFileFlag.Name) {
		loaded, err := simulator.LoadScenarioFile(cliCtx.String(cmd.ScenarioFileFlag.Name))
		if err != nil {
			return nil, err
		}
		p = loaded
	}
	if cliCtx.IsSet(cmd.SimulatorSeedFlag.Name) {
		p.Seed = int64(cliCtx.Int(cmd.SimulatorSeedFlag.Name))
	}
	if cliCtx.IsSet(cmd.NumValidatorsFlag.Name) {
		p.NumValidators = uint64(cliCtx.Int(cmd.NumValidatorsFlag.Name))
	}
	if cliCtx.IsSet(cmd.NumEpochsFlag.Name) {
		p.NumEpochs = uint64(cliCtx.Int(cmd.NumEpochsFlag.Name))
	}
	return p, nil
}

// EnrichmentChains lists the chain identities enrichment should read, as
// derived from the collection flags.
func EnrichmentChains(cliCtx *cli.Context) []enricher.Chain {
	chains := make([]enricher.Chain, 0, 2)
	if cliCtx.String(cmd.Eth2EndpointFlag.Name) != "" {
		chains = append(chains, enricher.Chain{
			ID:      "eth2",
			Network: cliCtx.String(cmd.Eth2NetworkFlag.Name),
		})
	}
	if cliCtx.String(cmd.CosmosEndpointFlag.Name) != "" {
		chains = append(chains, enricher.Chain{
			ID:      cliCtx.String(cmd.CosmosChainIDFlag.Name),
			Network: cliCtx.String(cmd.CosmosNetworkFlag.Name),
		})
	}
	return chains
}

// Start every service and block until a shutdown signal arrives.
func (n *DatasetNode) Start() {
	n.lock.Lock()
	log.WithField("version", version.GetVersion()).Info("Starting dataset node")
	n.services.StartAll()
	n.startEnrichmentLoop()
	stop := n.stop
	n.lock.Unlock()

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down...")
		go n.Close()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.WithField("times", i-1).Info("Already shutting down, interrupt more to panic.")
			}
		}
		panic("Panic closing the dataset node")
	}()

	// Wait for stop channel to be closed.
	<-stop
}

// Close handles graceful shutdown of the system.
func (n *DatasetNode) Close() {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.services.StopAll()
	n.cancel()
	if err := n.db.Close(); err != nil {
		log.WithError(err).Error("Could not close database")
	}
	log.Info("Stopping dataset node")
	close(n.stop)
}

// startEnrichmentLoop re-runs enrichment over the store on a fixed cadence
// so the curated view keeps pace with watch-mode collection.
func (n *DatasetNode) startEnrichmentLoop() {
	interval := n.cliCtx.Duration(cmd.EnrichIntervalFlag.Name)
	if interval <= 0 {
		return
	}
	e := enricher.New(n.db, n.cliCtx.String(cmd.DatasetDirFlag.Name), EnrichmentChains(n.cliCtx))
	async.RunEvery(n.ctx, interval, func() {
		if _, err := e.Enrich(n.ctx); err != nil && n.ctx.Err() == nil {
			log.WithError(err).Error("Periodic enrichment failed")
		}
	})
}

func (n *DatasetNode) registerPrometheusService() error {
	service := prometheus.NewService(
		fmt.Sprintf("%s:%d", n.cliCtx.String(cmd.MonitoringHostFlag.Name), n.cliCtx.Int(cmd.MonitoringPortFlag.Name)),
		n.services,
	)
	logrus.AddHook(prometheus.NewLogrusCollector())
	return n.services.RegisterService(service)
}

func (n *DatasetNode) registerCollectorService() error {
	chains, err := BuildChains(n.cliCtx)
	if err != nil {
		return err
	}
	if len(chains) == 0 {
		log.Warn("No chain endpoints configured; collecting nothing")
	}
	perf, err := BuildPerformanceClient(n.cliCtx)
	if err != nil {
		return err
	}
	genesis := time.Now().UTC()
	svc, err := collector.NewService(n.ctx, &collector.Config{
		Database:        n.db,
		Chains:          chains,
		Performance:     perf,
		DatasetRoot:     n.cliCtx.String(cmd.DatasetDirFlag.Name),
		TrackedFile:     n.cliCtx.String(cmd.TrackedValidatorsFileFlag.Name),
		Ticker:          epochs.NewEpochTicker(genesis, params.DatasetSpec().SecondsPerEpoch()),
		DisableProgress: true,
	})
	if err != nil {
		return errors.Wrap(err, "could not initialize collector service")
	}
	return n.services.RegisterService(svc)
}

func (n *DatasetNode) registerSimulatorService() error {
	p, err := SimulatorParams(n.cliCtx)
	if err != nil {
		return err
	}
	genesis := time.Now().UTC()
	svc, err := simulator.NewService(n.ctx, &simulator.ServiceConfig{
		Params:      p,
		Database:    n.db,
		DatasetRoot: n.cliCtx.String(cmd.DatasetDirFlag.Name),
		Ticker:      epochs.NewEpochTicker(genesis, params.DatasetSpec().SecondsPerEpoch()),
	})
	if err != nil {
		return errors.Wrap(err, "could not initialize simulator service")
	}
	return n.services.RegisterService(svc)
}

// clearDB removes the stored data under dataDir, prompting for confirmation
// unless forced.
func clearDB(dataDir string, force bool) error {
	if !force {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("This will delete the collected data at %s. Continue", dataDir),
			IsConfirm: true,
		}
		if _, err := prompt.Run(); err != nil {
			log.Info("Clear DB aborted")
			return nil
		}
	}
	store, err := kv.NewKVStore(dataDir, &kv.Config{})
	if err != nil {
		return errors.Wrap(err, "could not open database for clearing")
	}
	log.Warning("Removing database")
	if err := store.ClearDB(); err != nil {
		return errors.Wrap(err, "could not clear database")
	}
	return store.Close()
}
