package schema

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

//go:embed model.cue
var modelConstraints string

//go:embed northwind.cue
var northwindModel []byte

// LoadError reports an invalid model definition with its CUE position.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &LoadError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}

// Default returns the built-in model.
func Default() (*Model, error) {
	return Parse("northwind.cue", northwindModel)
}

// Parse compiles a single CUE source into a Model.
func Parse(filename string, src []byte) (*Model, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return build(ctx, v)
}

// LoadDir loads every CUE file in dir as one model.
func LoadDir(dir string) (*Model, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("model directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("model directory: not a directory: %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", formatCUEError(inst.Err))
	}
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return build(ctx, v)
}

// LoadPath loads a model from a .cue file or a directory of them.
func LoadPath(path string) (*Model, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	return Parse(path, src)
}

type entitySpec struct {
	name     string
	base     string
	key      string
	abstract bool
	fields   []fieldSpec
	pos      token.Pos
}

type fieldSpec struct {
	name string
	typ  string
}

// build checks v against the model constraints and converts it.
func build(ctx *cue.Context, v cue.Value) (*Model, error) {
	constraints := ctx.CompileString(modelConstraints, cue.Filename("model.cue"))
	if err := constraints.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	v = constraints.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	specs, err := parseEntities(v.LookupPath(cue.ParsePath("entity")))
	if err != nil {
		return nil, err
	}
	sets, err := parseSets(v.LookupPath(cue.ParsePath("entitySet")))
	if err != nil {
		return nil, err
	}
	return newModel(specs, sets)
}

func parseEntities(v cue.Value) ([]entitySpec, error) {
	if !v.Exists() {
		return nil, &LoadError{Field: "entity", Message: "at least one entity is required"}
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []entitySpec
	for iter.Next() {
		ev := iter.Value()
		spec := entitySpec{name: iter.Selector().Unquoted(), pos: ev.Pos()}

		if s, ok, err := optionalString(ev, "base"); err != nil {
			return nil, err
		} else if ok {
			spec.base = s
		}
		if s, ok, err := optionalString(ev, "key"); err != nil {
			return nil, err
		} else if ok {
			spec.key = s
		}
		if av := ev.LookupPath(cue.ParsePath("abstract")); av.Exists() {
			b, err := av.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			spec.abstract = b
		}

		fields, err := ev.LookupPath(cue.ParsePath("fields")).Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for fields.Next() {
			typ, err := fields.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			spec.fields = append(spec.fields, fieldSpec{name: fields.Selector().Unquoted(), typ: typ})
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, &LoadError{Field: "entity", Message: "at least one entity is required"}
	}
	return specs, nil
}

func parseSets(v cue.Value) (map[string]string, error) {
	sets := make(map[string]string)
	if !v.Exists() {
		return sets, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		target, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		sets[iter.Selector().Unquoted()] = target
	}
	return sets, nil
}

func optionalString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}
