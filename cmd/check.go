package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/apparentlymart/rvtablegen/wrangle"
)

// StaleError reports generated files that differ from a fresh run.
type StaleError struct {
	Files []string
}

func (e *StaleError) Error() string {
	if len(e.Files) == 1 {
		return fmt.Sprintf("%s is out of date", e.Files[0])
	}
	return fmt.Sprintf("%d generated files are out of date", len(e.Files))
}

func Check(ctx *cli.Context) error {
	if ctx.Bool(PProfCPUFlag.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}
	gen, cfg, l, err := generatorFromCLI(ctx)
	if err != nil {
		return err
	}
	tables, err := gen.Compile(ctx.Context)
	if err != nil {
		return err
	}
	outs, err := gen.Render(tables)
	if err != nil {
		return err
	}
	return compareOutputs(ctx.App.Writer, l, cfg, outs)
}

func compareOutputs(w io.Writer, l log.Logger, cfg *wrangle.Config, outs []wrangle.Output) error {
	var stale []string
	for _, out := range outs {
		path := filepath.Join(cfg.OutDir, out.Name)
		have, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			l.Error("Generated file is missing", "file", path)
			stale = append(stale, path)
			continue
		} else if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if bytes.Equal(have, out.Data) {
			l.Debug("Generated file is up to date", "file", path)
			continue
		}
		stale = append(stale, path)
		if cfg.Format == wrangle.FormatJSON {
			if diff, err := jsonDiff(have, out.Data); err == nil && diff != "" {
				l.Error("Generated file is out of date", "file", path)
				fmt.Fprintln(w, diff)
				continue
			}
		}
		line, haveLine, wantLine := firstDifference(have, out.Data)
		l.Error("Generated file is out of date", "file", path, "line", line, "have", haveLine, "want", wantLine)
	}
	if len(stale) > 0 {
		return &StaleError{Files: stale}
	}
	return nil
}

func jsonDiff(have, want []byte) (string, error) {
	delta, err := gojsondiff.New().Compare(have, want)
	if err != nil {
		return "", err
	}
	if !delta.Modified() {
		return "", nil
	}
	var left interface{}
	if err := json.Unmarshal(have, &left); err != nil {
		return "", err
	}
	f := formatter.NewAsciiFormatter(left, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
	})
	return f.Format(delta)
}

// firstDifference returns the 1-based number of the first line that
// differs, along with that line from each input.
func firstDifference(have, want []byte) (int, string, string) {
	a := bytes.Split(have, []byte("\n"))
	b := bytes.Split(want, []byte("\n"))
	for i := 0; ; i++ {
		var la, lb []byte
		if i < len(a) {
			la = a[i]
		}
		if i < len(b) {
			lb = b[i]
		}
		if i >= len(a) && i >= len(b) {
			return i + 1, "", ""
		}
		if i >= len(a) || i >= len(b) || !bytes.Equal(la, lb) {
			return i + 1, string(la), string(lb)
		}
	}
}

var CheckCommand = &cli.Command{
	Name:        "check",
	Usage:       "Check that generated files are up to date",
	Description: "Regenerate the tables in memory and compare them with the files in --out-dir. Fails when any file is missing or differs.",
	ArgsUsage:   "<manual-repo>",
	Action:      Check,
	Flags:       GeneratorFlags,
}
