// Package main defines the aibyz command line tool, which builds labeled
// validator-behavior datasets from proof-of-stake networks: collection from
// live APIs, agent-based synthetic generation, enrichment, and export.
package main

import (
	"fmt"
	"os"

	"github.com/byzantron-research/aibyz-dataset/cmd"
	"github.com/byzantron-research/aibyz-dataset/io/logs"
	"github.com/byzantron-research/aibyz-dataset/runtime/version"
	joonix "github.com/joonix/log"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	_ "go.uber.org/automaxprocs"
)

var log = logrus.WithField("prefix", "main")

var appFlags = []cli.Flag{
	cmd.VerbosityFlag,
	cmd.DataDirFlag,
	cmd.DatasetDirFlag,
	cmd.ConfigFileFlag,
	cmd.ChainConfigFileFlag,
	cmd.MinimalConfigFlag,
	cmd.LogFormat,
	cmd.LogFileName,
	cmd.ClearDB,
	cmd.ForceClearDB,
	cmd.EnableTracingFlag,
	cmd.TracingProcessNameFlag,
	cmd.TracingEndpointFlag,
	cmd.TraceSampleFractionFlag,
	cmd.DisableMonitoringFlag,
	cmd.MonitoringHostFlag,
	cmd.MonitoringPortFlag,
	cmd.Eth2EndpointFlag,
	cmd.Eth2NetworkFlag,
	cmd.CosmosEndpointFlag,
	cmd.CosmosChainIDFlag,
	cmd.CosmosNetworkFlag,
	cmd.BeaconchainEndpointFlag,
	cmd.BeaconchainAPIKeyFlag,
	cmd.TrackedValidatorsFileFlag,
	cmd.ScenarioFileFlag,
	cmd.SimulatorSeedFlag,
	cmd.NumValidatorsFlag,
	cmd.NumEpochsFlag,
	cmd.WithSimulatorFlag,
	cmd.EnrichIntervalFlag,
	cmd.JSONLinesFlag,
	cmd.DisableProgressFlag,
}

func init() {
	appFlags = cmd.WrapFlags(appFlags)
}

func main() {
	app := cli.App{
		Name:    "aibyz",
		Usage:   "builds labeled validator-behavior datasets from proof-of-stake networks",
		Version: version.GetVersion(),
		Flags:   appFlags,
		Commands: []*cli.Command{
			collectCommand,
			simulateCommand,
			enrichCommand,
			exportCommand,
			runCommand,
			watchCommand,
			dbCommand,
		},
		Before: func(ctx *cli.Context) error {
			// Load any flags from file, if specified.
			if ctx.IsSet(cmd.ConfigFileFlag.Name) {
				if err := altsrc.InitInputSourceWithContext(
					appFlags,
					altsrc.NewYamlSourceFromFlagFunc(cmd.ConfigFileFlag.Name))(ctx); err != nil {
					return err
				}
			}
			level, err := logrus.ParseLevel(ctx.String(cmd.VerbosityFlag.Name))
			if err != nil {
				return err
			}
			logrus.SetLevel(level)

			switch format := ctx.String(cmd.LogFormat.Name); format {
			case "text":
				formatter := new(prefixed.TextFormatter)
				formatter.TimestampFormat = "2006-01-02 15:04:05"
				formatter.FullTimestamp = true
				// Persistent log files carry no ANSI colors.
				formatter.DisableColors = ctx.String(cmd.LogFileName.Name) != ""
				logrus.SetFormatter(formatter)
			case "fluentd":
				logrus.SetFormatter(joonix.NewFormatter())
			case "json":
				logrus.SetFormatter(&logrus.JSONFormatter{})
			default:
				return fmt.Errorf("unknown log format %s", format)
			}

			if logFileName := ctx.String(cmd.LogFileName.Name); logFileName != "" {
				if err := logs.ConfigurePersistentLogging(logFileName); err != nil {
					log.WithError(err).Error("Failed to configure logging to disk.")
				}
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
