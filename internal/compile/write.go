package compile

import (
	"os"
	"path/filepath"
)

// File is one generated file, named relative to the output directory.
type File struct {
	Name string
	Data []byte
}

// Files is the complete output set in the order it is written.
func (r *Result) Files() ([]File, error) {
	facts, err := r.FlowFacts()
	if err != nil {
		return nil, err
	}
	return []File{
		{r.Name + ".h", r.H},
		{r.Name + ".c", r.C},
		{r.Name + "_globals.c", r.G},
		{r.Name + "_flowfacts.json", facts},
		{r.Name + ".mk", r.Build.Makefile()},
	}, nil
}

// WriteFiles writes every file of the set into dir. Each is written to a
// temporary name first and renamed into place only after all writes
// succeed. On failure nothing from this call is left in dir.
func (r *Result) WriteFiles(dir string) ([]File, error) {
	files, err := r.Files()
	if err != nil {
		return nil, err
	}
	var temps []string
	cleanup := func() {
		for _, t := range temps {
			_ = os.Remove(t)
		}
	}
	for _, f := range files {
		t, err := writeTemp(dir, f)
		if err != nil {
			cleanup()
			return nil, err
		}
		temps = append(temps, t)
	}
	for i, f := range files {
		if err := os.Rename(temps[i], filepath.Join(dir, f.Name)); err != nil {
			for _, g := range files[:i] {
				_ = os.Remove(filepath.Join(dir, g.Name))
			}
			temps = temps[i:]
			cleanup()
			return nil, err
		}
	}
	return files, nil
}

func writeTemp(dir string, f File) (name string, err error) {
	tmp, err := os.CreateTemp(dir, "."+f.Name+".*")
	if err != nil {
		return "", err
	}
	name = tmp.Name()
	defer func() {
		if cerr := tmp.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(name)
		}
	}()
	if err = tmp.Chmod(0o644); err != nil {
		return name, err
	}
	_, err = tmp.Write(f.Data)
	return name, err
}
