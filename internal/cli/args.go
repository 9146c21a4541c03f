package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/pdf-toolbox/internal/raster"
)

// pathParams are resolved against the working directory, the tools only
// accept absolute paths
var pathParams = []string{"file_path", "file_paths", "output_dir"}

// param is one tool parameter as seen from the command line
type param struct {
	name     string
	flag     string
	kind     string
	choices  []string
	required bool
	desc     string
}

// argSpec maps command line arguments onto a tool's input schema. Bare
// arguments are PDF paths and go to file_paths, or to file_path for tools
// that take a single document.
type argSpec struct {
	tool     string
	params   map[string]param
	byFlag   map[string]string
	files    string
	multiple bool
}

func newArgSpec(def mcp.Tool) argSpec {
	spec := argSpec{
		tool:   def.Name,
		params: make(map[string]param, len(def.InputSchema.Properties)),
		byFlag: make(map[string]string, 2*len(def.InputSchema.Properties)),
	}

	for name, raw := range def.InputSchema.Properties {
		schema, _ := raw.(map[string]any)
		p := param{name: name, flag: toFlagName(name), required: slices.Contains(def.InputSchema.Required, name)}
		p.kind, _ = schema["type"].(string)
		p.desc, _ = schema["description"].(string)
		p.choices = enumValues(schema["enum"])
		if items, ok := schema["items"].(map[string]any); ok && p.choices == nil {
			p.choices = enumValues(items["enum"])
		}

		spec.params[name] = p
		spec.byFlag[p.flag] = name
		spec.byFlag[name] = name
	}

	if p, ok := spec.params["file_paths"]; ok && p.kind == "array" {
		spec.files, spec.multiple = "file_paths", true
	} else if _, ok := spec.params["file_path"]; ok {
		spec.files = "file_path"
	}
	return spec
}

// sorted returns the parameters in flag order, the file parameters last
func (s argSpec) sorted() []param {
	out := make([]param, 0, len(s.params))
	for _, p := range s.params {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		fi, fj := slices.Contains(pathParams[:2], out[i].name), slices.Contains(pathParams[:2], out[j].name)
		if fi != fj {
			return fj
		}
		return out[i].flag < out[j].flag
	})
	return out
}

// parse converts arguments into tool parameters. Flags win over values from
// a JSON object argument.
func (s argSpec) parse(args []string) (map[string]any, error) {
	params := make(map[string]any)
	fromJSON := make(map[string]any)
	var files []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			files = append(files, args[i+1:]...)
			i = len(args)

		case strings.HasPrefix(arg, "{"):
			var obj map[string]any
			if err := json.Unmarshal([]byte(arg), &obj); err != nil {
				return nil, fmt.Errorf("invalid JSON argument: %w", err)
			}
			for k, v := range obj {
				fromJSON[k] = v
			}

		case strings.HasPrefix(arg, "--"):
			name, raw, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
			p, negated, err := s.lookup(name)
			if err != nil {
				return nil, err
			}
			switch {
			case negated:
				params[p.name] = false
				continue
			case p.kind == "boolean" && !hasValue:
				raw = "true"
			case !hasValue:
				i++
				if i >= len(args) {
					return nil, fmt.Errorf("flag --%s requires a value", p.flag)
				}
				raw = args[i]
			}

			v, err := s.convert(p, raw)
			if err != nil {
				return nil, err
			}
			if list, ok := v.([]string); ok {
				prev, _ := params[p.name].([]string)
				v = append(prev, list...)
			}
			params[p.name] = v

		default:
			files = append(files, arg)
		}
	}

	if err := s.addFiles(params, files); err != nil {
		return nil, err
	}
	for k, v := range fromJSON {
		if _, set := params[k]; !set {
			params[k] = v
		}
	}
	for _, p := range s.params {
		if _, set := params[p.name]; p.required && !set {
			if p.name == s.files {
				return nil, fmt.Errorf("%s needs a PDF file argument", s.tool)
			}
			return nil, fmt.Errorf("missing required flag --%s", p.flag)
		}
	}
	return params, nil
}

// lookup resolves a flag name; --no-<flag> negates a boolean
func (s argSpec) lookup(name string) (param, bool, error) {
	if pname, ok := s.byFlag[name]; ok {
		return s.params[pname], false, nil
	}
	if base, ok := strings.CutPrefix(name, "no-"); ok {
		if pname, ok := s.byFlag[base]; ok && s.params[pname].kind == "boolean" {
			return s.params[pname], true, nil
		}
	}
	return param{}, false, fmt.Errorf("unknown flag --%s for %s (run 'pdf-toolbox cli help %s')", name, s.tool, s.tool)
}

func (s argSpec) addFiles(params map[string]any, files []string) error {
	if len(files) == 0 {
		return nil
	}
	if s.files == "" {
		return fmt.Errorf("%s takes no file arguments, got %q", s.tool, files[0])
	}

	abs := make([]string, len(files))
	for i, f := range files {
		a, err := absPath(f)
		if err != nil {
			return err
		}
		abs[i] = a
	}

	if s.multiple {
		prev, _ := params[s.files].([]string)
		params[s.files] = append(prev, abs...)
		return nil
	}
	if _, set := params[s.files]; set || len(abs) > 1 {
		return fmt.Errorf("%s takes a single PDF file", s.tool)
	}
	params[s.files] = abs[0]
	return nil
}

// convert parses a raw flag value according to the parameter's schema type
func (s argSpec) convert(p param, raw string) (any, error) {
	switch p.kind {
	case "number", "integer":
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("--%s expects a number, got %q", p.flag, raw)
		}
		return f, nil

	case "boolean":
		switch strings.ToLower(raw) {
		case "yes", "y", "on":
			return true, nil
		case "no", "n", "off":
			return false, nil
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("--%s expects true or false, got %q", p.flag, raw)
		}
		return b, nil

	case "array":
		var items []string
		if strings.HasPrefix(strings.TrimSpace(raw), "[") {
			if err := json.Unmarshal([]byte(raw), &items); err != nil {
				return nil, fmt.Errorf("--%s: invalid JSON array: %w", p.flag, err)
			}
		} else {
			for item := range strings.SplitSeq(raw, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
		}
		for i, item := range items {
			v, err := choose(p, item)
			if err != nil {
				return nil, err
			}
			if slices.Contains(pathParams, p.name) {
				if v, err = absPath(v); err != nil {
					return nil, err
				}
			}
			items[i] = v
		}
		return items, nil

	case "object":
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			return nil, fmt.Errorf("--%s expects a JSON object: %w", p.flag, err)
		}
		return obj, nil

	default:
		v, err := choose(p, raw)
		if err != nil {
			return nil, err
		}
		if slices.Contains(pathParams, p.name) {
			return absPath(v)
		}
		return v, nil
	}
}

// choose checks value against the parameter's choices, ignoring case.
// Compression levels also accept their aliases.
func choose(p param, value string) (string, error) {
	if len(p.choices) == 0 {
		return value, nil
	}
	if p.name == "level" {
		if preset, err := raster.ParseCompressionPreset(value); err == nil {
			value = string(preset)
		}
	}
	for _, c := range p.choices {
		if strings.EqualFold(c, value) {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid value %q for --%s (choose one of %s)", value, p.flag, strings.Join(p.choices, ", "))
}

func absPath(path string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return path, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve %s: %w", path, err)
	}
	return abs, nil
}

// enumValues reads an enum from a schema built in process ([]string) or
// decoded from JSON ([]any)
func enumValues(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, fmt.Sprint(e))
		}
		return out
	}
	return nil
}

// toFlagName converts camelCase or snake_case to kebab-case
func toFlagName(s string) string {
	var out strings.Builder
	for i, r := range strings.ReplaceAll(s, "_", "-") {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				out.WriteByte('-')
			}
			r += 'a' - 'A'
		}
		out.WriteRune(r)
	}
	return out.String()
}
