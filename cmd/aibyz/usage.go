// This code was adapted from https://github.com/ethereum/go-ethereum/blob/master/cmd/geth/usage.go
package main

import (
	"io"
	"sort"

	"github.com/byzantron-research/aibyz-dataset/cmd"
	"github.com/urfave/cli/v2"
)

var appHelpTemplate = `NAME:
   {{.App.Name}} - {{.App.Usage}}
USAGE:
   {{.App.HelpName}} [options]{{if .App.Commands}} command [command options]{{end}} {{if .App.ArgsUsage}}{{.App.ArgsUsage}}{{else}}[arguments...]{{end}}
   {{if .App.Version}}
AUTHOR:
   {{range .App.Authors}}{{ . }}{{end}}
   {{end}}{{if .App.Commands}}
COMMANDS:
   {{range .App.Commands}}{{join .Names ", "}}{{ "\t" }}{{.Usage}}
   {{end}}{{end}}{{if .FlagGroups}}
{{range .FlagGroups}}{{.Name}} OPTIONS:
   {{range .Flags}}{{.}}
   {{end}}
{{end}}{{end}}{{if .App.Copyright }}
COPYRIGHT:
   {{.App.Copyright}}
VERSION:
   {{.App.Version}}
   {{end}}
`

type flagGroup struct {
	Name  string
	Flags []cli.Flag
}

var appHelpFlagGroups = []flagGroup{
	{
		Name: "cmd",
		Flags: []cli.Flag{
			cmd.VerbosityFlag,
			cmd.DataDirFlag,
			cmd.DatasetDirFlag,
			cmd.ConfigFileFlag,
			cmd.ChainConfigFileFlag,
			cmd.MinimalConfigFlag,
			cmd.ClearDB,
			cmd.ForceClearDB,
			cmd.EnableTracingFlag,
			cmd.TracingProcessNameFlag,
			cmd.TracingEndpointFlag,
			cmd.TraceSampleFractionFlag,
			cmd.DisableMonitoringFlag,
			cmd.MonitoringHostFlag,
			cmd.MonitoringPortFlag,
			cmd.DisableProgressFlag,
		},
	},
	{
		Name: "collector",
		Flags: []cli.Flag{
			cmd.Eth2EndpointFlag,
			cmd.Eth2NetworkFlag,
			cmd.CosmosEndpointFlag,
			cmd.CosmosChainIDFlag,
			cmd.CosmosNetworkFlag,
			cmd.BeaconchainEndpointFlag,
			cmd.BeaconchainAPIKeyFlag,
			cmd.TrackedValidatorsFileFlag,
		},
	},
	{
		Name: "simulator",
		Flags: []cli.Flag{
			cmd.ScenarioFileFlag,
			cmd.SimulatorSeedFlag,
			cmd.NumValidatorsFlag,
			cmd.NumEpochsFlag,
			cmd.WithSimulatorFlag,
		},
	},
	{
		Name: "export",
		Flags: []cli.Flag{
			cmd.EnrichIntervalFlag,
			cmd.JSONLinesFlag,
		},
	},
	{
		Name: "log",
		Flags: []cli.Flag{
			cmd.LogFormat,
			cmd.LogFileName,
		},
	},
}

func init() {
	cli.AppHelpTemplate = appHelpTemplate

	type helpData struct {
		App        interface{}
		FlagGroups []flagGroup
	}

	originalHelpPrinter := cli.HelpPrinter
	cli.HelpPrinter = func(w io.Writer, tmpl string, data interface{}) {
		if tmpl == appHelpTemplate {
			for _, group := range appHelpFlagGroups {
				sort.Sort(cli.FlagsByName(group.Flags))
			}
			originalHelpPrinter(w, tmpl, helpData{data, appHelpFlagGroups})
		} else {
			originalHelpPrinter(w, tmpl, data)
		}
	}
}
