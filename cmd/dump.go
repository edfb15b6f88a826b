package cmd

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"

	"github.com/apparentlymart/rvtablegen/wrangle"
)

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisableMethods:          true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Dump prints what the parser and format clustering made of the sources,
// without building or writing any tables.
func Dump(ctx *cli.Context) error {
	gen, _, l, err := generatorFromCLI(ctx)
	if err != nil {
		return err
	}
	_, docs, err := gen.Parse(ctx.Context)
	if err != nil {
		return err
	}
	w := ctx.App.Writer
	if ctx.Bool(DumpParsedFlag.Name) {
		for _, doc := range docs {
			dumpConfig.Fdump(w, doc)
		}
		return nil
	}
	reg, err := wrangle.Normalize(docs, l)
	if err != nil {
		return err
	}
	dumpConfig.Fdump(w, reg.Formats)
	dumpConfig.Fdump(w, reg.Specs)
	return nil
}

var DumpParsedFlag = &cli.BoolFlag{
	Name:  "parsed",
	Usage: "dump the parsed documents instead of the normalized registry",
}

var DumpCommand = &cli.Command{
	Name:        "dump",
	Usage:       "Dump the parsed instruction specs",
	Description: "Parse the manual repository and print the instruction specs and formats found in it, for debugging the parsers.",
	ArgsUsage:   "<manual-repo>",
	Action:      Dump,
	Flags:       append([]cli.Flag{DumpParsedFlag}, GeneratorFlags...),
}
