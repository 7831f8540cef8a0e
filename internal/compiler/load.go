package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadViews loads a .cue file, or every .cue file of the package in a
// directory, and compiles each entry under "view".
//
// Compilation continues past bad views so every problem is reported; the
// returned views are the ones that compiled.
func LoadViews(path string) ([]*View, []error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, []error{fmt.Errorf("view path: %w", err)}
	}

	cfg := &load.Config{Dir: path}
	args := []string{"."}
	if !info.IsDir() {
		cfg.Dir = filepath.Dir(path)
		args = []string{filepath.Base(path)}
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return nil, []error{fmt.Errorf("no CUE instances loaded from %s", path)}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{formatCUEError(inst.Err)}
	}

	ctx := cuecontext.New()
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}
	return compileViews(value)
}

// CompileSource compiles view definitions from CUE source text.
func CompileSource(filename, src string) ([]*View, []error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}
	return compileViews(value)
}

func compileViews(value cue.Value) ([]*View, []error) {
	viewsVal := value.LookupPath(cue.ParsePath("view"))
	if !viewsVal.Exists() {
		return nil, []error{&CompileError{Field: "view", Message: "no views defined", Pos: value.Pos()}}
	}

	iter, err := viewsVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var (
		views []*View
		errs  []error
	)
	for iter.Next() {
		view, err := CompileView(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("view %s: %w", iter.Label(), err))
			continue
		}
		views = append(views, view)
	}
	if len(views) == 0 && len(errs) == 0 {
		errs = append(errs, &CompileError{Field: "view", Message: "no views defined", Pos: viewsVal.Pos()})
	}
	return views, errs
}

// FindView returns the view with the given name.
func FindView(views []*View, name string) (*View, bool) {
	for _, v := range views {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}
