package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/apparentlymart/rvtablegen/cmd"
)

func main() {
	app := cli.NewApp()
	app.Name = "rvtablegen"
	app.Usage = "RISC-V instruction table generator"
	app.Description = "Compiles the instruction tables of a RISC-V manual repository into a constants file and an instruction decode table."
	app.ArgsUsage = "<manual-repo>"
	app.Action = cmd.Generate
	app.Flags = append([]cli.Flag{cmd.SummaryFlag}, cmd.GeneratorFlags...)
	app.Commands = []*cli.Command{
		cmd.GenerateCommand,
		cmd.CheckCommand,
		cmd.DumpCommand,
	}
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for {
			<-c
			cancel()
			fmt.Fprintln(os.Stderr, "\r\nExiting...")
		}
	}()

	err := app.RunContext(ctx, os.Args)
	if err != nil {
		if errors.Is(err, ctx.Err()) {
			_, _ = fmt.Fprintln(os.Stderr, "command interrupted")
			os.Exit(130)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}
