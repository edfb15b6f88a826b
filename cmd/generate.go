package cmd

import (
	"fmt"

	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"

	"github.com/apparentlymart/rvtablegen/wrangle"
)

func Generate(ctx *cli.Context) error {
	if ctx.Bool(PProfCPUFlag.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}
	gen, _, _, err := generatorFromCLI(ctx)
	if err != nil {
		return err
	}
	tables, err := gen.Run(ctx.Context)
	if err != nil {
		return err
	}
	if ctx.Bool(SummaryFlag.Name) {
		fmt.Fprint(ctx.App.Writer, wrangle.Summary(tables))
	}
	return nil
}

var GenerateCommand = &cli.Command{
	Name:        "generate",
	Usage:       "Generate the constants and decode tables",
	Description: "Parse the instruction tables of a RISC-V manual repository and write the constants file and the instruction decode table.",
	ArgsUsage:   "<manual-repo>",
	Action:      Generate,
	Flags:       append([]cli.Flag{SummaryFlag}, GeneratorFlags...),
}
