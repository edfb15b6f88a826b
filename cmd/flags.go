package cmd

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/apparentlymart/rvtablegen/wrangle"
)

const envPrefix = "RVTABLEGEN_"

func envVar(name string) []string {
	return []string{envPrefix + name}
}

var (
	OutDirFlag = &cli.PathFlag{
		Name:    "out-dir",
		Usage:   "directory the generated files are written to",
		Value:   ".",
		EnvVars: envVar("OUT_DIR"),
	}
	PackageFlag = &cli.StringFlag{
		Name:    "package",
		Usage:   "package clause of the generated Go files",
		Value:   "riscv",
		EnvVars: envVar("PACKAGE"),
	}
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Usage:   "output format, go or json",
		Value:   string(wrangle.FormatGo),
		EnvVars: envVar("FORMAT"),
	}
	ConstFileFlag = &cli.StringFlag{
		Name:    "const-file",
		Usage:   "name of the constants file (default depends on --format)",
		EnvVars: envVar("CONST_FILE"),
	}
	TableFileFlag = &cli.StringFlag{
		Name:    "table-file",
		Usage:   "name of the instruction table file (default depends on --format)",
		EnvVars: envVar("TABLE_FILE"),
	}
	JobsFlag = &cli.IntFlag{
		Name:    "jobs",
		Usage:   "documents parsed in parallel, 0 for one per CPU",
		EnvVars: envVar("JOBS"),
	}
	OptionalFlag = &cli.StringSliceFlag{
		Name:    "optional",
		Usage:   "document, relative to the repository, skipped with a warning when malformed",
		EnvVars: envVar("OPTIONAL"),
	}
	SummaryFlag = &cli.BoolFlag{
		Name:  "summary",
		Usage: "print an overview of the generated tables",
	}
	LogLevelFlag = &cli.StringFlag{
		Name:    "log.level",
		Usage:   "lowest level logged: trace, debug, info, warn, error or crit",
		Value:   "info",
		EnvVars: envVar("LOG_LEVEL"),
	}
	PProfCPUFlag = &cli.BoolFlag{
		Name:  "pprof.cpu",
		Usage: "enable pprof cpu profiling",
	}
)

// GeneratorFlags are accepted by every command that runs the pipeline.
var GeneratorFlags = []cli.Flag{
	OutDirFlag,
	PackageFlag,
	FormatFlag,
	ConstFileFlag,
	TableFileFlag,
	JobsFlag,
	OptionalFlag,
	LogLevelFlag,
	PProfCPUFlag,
}

func configFromCLI(ctx *cli.Context) (*wrangle.Config, error) {
	if ctx.NArg() != 1 {
		return nil, fmt.Errorf("expected exactly one manual repository path, got %d arguments", ctx.NArg())
	}
	return &wrangle.Config{
		SourceRoot: ctx.Args().First(),
		OutDir:     ctx.Path(OutDirFlag.Name),
		Package:    ctx.String(PackageFlag.Name),
		Format:     wrangle.OutputFormat(ctx.String(FormatFlag.Name)),
		ConstFile:  ctx.String(ConstFileFlag.Name),
		TableFile:  ctx.String(TableFileFlag.Name),
		Jobs:       ctx.Int(JobsFlag.Name),
		Optional:   ctx.StringSlice(OptionalFlag.Name),
	}, nil
}

func loggerFromCLI(ctx *cli.Context, w io.Writer) (log.Logger, error) {
	lvl, err := ParseLevel(ctx.String(LogLevelFlag.Name))
	if err != nil {
		return nil, err
	}
	return Logger(w, lvl), nil
}

func generatorFromCLI(ctx *cli.Context) (*wrangle.Generator, *wrangle.Config, log.Logger, error) {
	l, err := loggerFromCLI(ctx, ctx.App.ErrWriter)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, err := configFromCLI(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	gen, err := wrangle.NewGenerator(cfg, l)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return gen, cfg, l, nil
}
