package wrangle

import (
	"os"
	"path/filepath"
)

// WriteOutputs writes every output into dir. Each file is first written in
// full to a temporary file in dir; the temporaries are renamed into place
// only once all of them are complete, so a failure never leaves a
// truncated output behind.
func WriteOutputs(dir string, outs []Output) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteError{Path: dir, Err: err}
	}

	temps := make([]string, 0, len(outs))
	cleanup := func() {
		for _, tmp := range temps {
			_ = os.Remove(tmp)
		}
	}

	for _, out := range outs {
		target := filepath.Join(dir, out.Name)
		tmp, err := writeTemp(dir, out)
		if tmp != "" {
			temps = append(temps, tmp)
		}
		if err != nil {
			cleanup()
			return &WriteError{Path: target, Err: err}
		}
	}

	for i, out := range outs {
		target := filepath.Join(dir, out.Name)
		if err := os.Rename(temps[i], target); err != nil {
			cleanup()
			return &WriteError{Path: target, Err: err}
		}
	}
	return nil
}

func writeTemp(dir string, out Output) (string, error) {
	f, err := os.CreateTemp(dir, "."+out.Name+".tmp*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	if _, err := f.Write(out.Data); err != nil {
		f.Close()
		return name, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return name, err
	}
	if err := f.Close(); err != nil {
		return name, err
	}
	return name, os.Chmod(name, 0o644)
}
