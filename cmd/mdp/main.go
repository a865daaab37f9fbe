package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`
	Solve   SolveCmd         `cmd:"" help:"Solve a maze and print its utilities and policy"`
	Check   CheckCmd         `cmd:"" help:"Cross-check value, policy and Q iteration against each other"`
	Render  RenderCmd        `cmd:"" help:"Print the grids of a saved solution"`
	Play    PlayCmd          `cmd:"" help:"Simulate episodes of the optimal policy"`
	View    ViewCmd          `cmd:"" help:"Watch episodes of the optimal policy in the terminal"`
	Mazes   MazesCmd         `cmd:"" help:"List the available mazes"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("mdp"),
		kong.Description("Dynamic-programming solver for grid-world Markov decision processes"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
