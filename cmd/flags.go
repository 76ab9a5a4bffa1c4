// Package cmd defines the command line flags shared by the dataset tooling.
package cmd

import (
	"time"

	"github.com/urfave/cli/v2"
)

var (
	// VerbosityFlag defines the logrus configuration.
	VerbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity (trace, debug, info=default, warn, error, fatal, panic)",
		Value: "info",
	}
	// DataDirFlag defines a path on disk for the intermediate store.
	DataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the intermediate database",
		Value: DefaultDataDir(),
	}
	// DatasetDirFlag defines the root directory of the exported dataset.
	DatasetDirFlag = &cli.StringFlag{
		Name:  "dataset-dir",
		Usage: "Root directory for the partitioned dataset output",
		Value: DefaultDatasetDir(),
	}
	// ConfigFileFlag specifies the filepath to load flag values.
	ConfigFileFlag = &cli.StringFlag{
		Name:  "config-file",
		Usage: "The filepath to a yaml file with flag values",
	}
	// ChainConfigFileFlag specifies a yaml file overriding pipeline parameters.
	ChainConfigFileFlag = &cli.StringFlag{
		Name:  "chain-config-file",
		Usage: "The path to a yaml file with pipeline parameter overrides",
	}
	// MinimalConfigFlag enables the minimal, test-sized parameter set.
	MinimalConfigFlag = &cli.BoolFlag{
		Name:  "minimal-config",
		Usage: "Use minimal config with shrunk parameters, for local experiments",
	}
	// LogFormat specifies the log output format.
	LogFormat = &cli.StringFlag{
		Name:  "log-format",
		Usage: "Specify log formatting. Supports: text, json, fluentd.",
		Value: "text",
	}
	// LogFileName specifies the log output file name.
	LogFileName = &cli.StringFlag{
		Name:  "log-file",
		Usage: "Specify log file name, relative or absolute",
	}
	// ClearDB removes the intermediate database after confirmation.
	ClearDB = &cli.BoolFlag{
		Name:  "clear-db",
		Usage: "Clears any previously stored data at the data directory",
	}
	// ForceClearDB removes the intermediate database without confirmation.
	ForceClearDB = &cli.BoolFlag{
		Name:  "force-clear-db",
		Usage: "Clears any previously stored data at the data directory without prompting",
	}
	// EnableTracingFlag defines a flag to enable request tracing.
	EnableTracingFlag = &cli.BoolFlag{
		Name:  "enable-tracing",
		Usage: "Enable request tracing.",
	}
	// TracingProcessNameFlag defines a flag to specify a process name.
	TracingProcessNameFlag = &cli.StringFlag{
		Name:  "tracing-process-name",
		Usage: "The name to apply to tracing tag \"process_name\"",
	}
	// TracingEndpointFlag defines the http endpoint for serving traces to Jaeger.
	TracingEndpointFlag = &cli.StringFlag{
		Name:  "tracing-endpoint",
		Usage: "Tracing endpoint defines where collection traces are exposed to Jaeger.",
		Value: "http://127.0.0.1:14268/api/traces",
	}
	// TraceSampleFractionFlag defines what fraction of requests are sampled for tracing.
	TraceSampleFractionFlag = &cli.Float64Flag{
		Name:  "trace-sample-fraction",
		Usage: "Indicate what fraction of requests are sampled for tracing.",
		Value: 0.20,
	}
	// DisableMonitoringFlag disables the metrics endpoint.
	DisableMonitoringFlag = &cli.BoolFlag{
		Name:  "disable-monitoring",
		Usage: "Disable monitoring service.",
	}
	// MonitoringHostFlag defines the host the metrics endpoint binds to.
	MonitoringHostFlag = &cli.StringFlag{
		Name:  "monitoring-host",
		Usage: "Host used for listening and responding metrics for prometheus.",
		Value: "127.0.0.1",
	}
	// MonitoringPortFlag defines the port of the metrics endpoint.
	MonitoringPortFlag = &cli.IntFlag{
		Name:  "monitoring-port",
		Usage: "Port used to listening and respond metrics for prometheus.",
		Value: 8081,
	}
	// Eth2EndpointFlag points at a Beacon API node.
	Eth2EndpointFlag = &cli.StringFlag{
		Name:  "eth2-endpoint",
		Usage: "Beacon API endpoint to collect from, like http://localhost:3500. Empty disables eth2 collection.",
	}
	// Eth2NetworkFlag names the eth2 network being collected.
	Eth2NetworkFlag = &cli.StringFlag{
		Name:  "eth2-network",
		Usage: "Name of the eth2 network behind --eth2-endpoint",
		Value: "mainnet",
	}
	// CosmosEndpointFlag points at a Cosmos SDK REST endpoint.
	CosmosEndpointFlag = &cli.StringFlag{
		Name:  "cosmos-endpoint",
		Usage: "Cosmos REST endpoint to collect from. Empty disables cosmos collection.",
	}
	// CosmosChainIDFlag names the cosmos chain being collected.
	CosmosChainIDFlag = &cli.StringFlag{
		Name:  "cosmos-chain-id",
		Usage: "Chain ID of the network behind --cosmos-endpoint",
		Value: "cosmos",
	}
	// CosmosNetworkFlag names the cosmos network being collected.
	CosmosNetworkFlag = &cli.StringFlag{
		Name:  "cosmos-network",
		Usage: "Name of the network behind --cosmos-endpoint",
		Value: "cosmoshub-4",
	}
	// BeaconchainEndpointFlag points at a beaconcha.in style explorer.
	BeaconchainEndpointFlag = &cli.StringFlag{
		Name:  "beaconchain-endpoint",
		Usage: "beaconcha.in API endpoint for per-validator performance snapshots. Empty disables it.",
	}
	// BeaconchainAPIKeyFlag carries the explorer API key.
	BeaconchainAPIKeyFlag = &cli.StringFlag{
		Name:  "beaconchain-api-key",
		Usage: "API key for the beaconcha.in endpoint",
	}
	// TrackedValidatorsFileFlag points at the validator allowlist.
	TrackedValidatorsFileFlag = &cli.StringFlag{
		Name:  "tracked-validators-file",
		Usage: "Path to a file with one tracked validator ID per line. Empty tracks everything.",
	}
	// ScenarioFileFlag points at a simulation scenario yaml file.
	ScenarioFileFlag = &cli.StringFlag{
		Name:  "scenario-file",
		Usage: "Path to a yaml scenario overriding the simulation parameters",
	}
	// SimulatorSeedFlag overrides the simulation seed.
	SimulatorSeedFlag = &cli.IntFlag{
		Name:  "seed",
		Usage: "Deterministic seed for synthetic generation",
		Value: 42,
	}
	// NumValidatorsFlag overrides the synthetic population size.
	NumValidatorsFlag = &cli.IntFlag{
		Name:  "num-validators",
		Usage: "Number of synthetic validators to simulate",
		Value: 128,
	}
	// NumEpochsFlag overrides the number of simulated epochs.
	NumEpochsFlag = &cli.IntFlag{
		Name:  "num-epochs",
		Usage: "Number of epochs to simulate in one batch run",
		Value: 16,
	}
	// WithSimulatorFlag also runs the simulator in watch mode.
	WithSimulatorFlag = &cli.BoolFlag{
		Name:  "with-simulator",
		Usage: "Generate synthetic validator behavior alongside watch-mode collection",
	}
	// EnrichIntervalFlag sets the watch-mode enrichment cadence.
	EnrichIntervalFlag = &cli.DurationFlag{
		Name:  "enrich-interval",
		Usage: "How often watch mode re-runs enrichment over the store",
		Value: 10 * time.Minute,
	}
	// JSONLinesFlag switches the JSON export to one object per line.
	JSONLinesFlag = &cli.BoolFlag{
		Name:  "jsonl",
		Usage: "Export JSON as one record per line instead of a single array",
	}
	// DisableProgressFlag silences terminal progress bars.
	DisableProgressFlag = &cli.BoolFlag{
		Name:  "disable-progress",
		Usage: "Disable terminal progress bars, for non-interactive runs",
	}
)
