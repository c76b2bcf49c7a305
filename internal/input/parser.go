package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Parser reads input decks into Configs.
type Parser struct {
	log *zap.Logger
}

// NewParser returns a Parser that logs duplicate-row and other advisory
// events to log. A nil logger disables the advisories.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log}
}

// ParseFile reads and parses the deck at path.
func (p *Parser) ParseFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input deck: %w", err)
	}
	defer f.Close()
	cfg, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads a deck from r. The returned Config is validated.
func (p *Parser) Parse(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	sc := bufio.NewScanner(r)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := p.parseLine(cfg, line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input deck: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *Parser) parseLine(cfg *Config, line string) error {
	if isRow(line) {
		return p.parseRow(cfg, line)
	}
	key, val, ok := strings.Cut(line, "=")
	if !ok {
		return fmt.Errorf("expected 'key = value', got %q", line)
	}
	return p.assign(cfg, strings.TrimSpace(key), strings.TrimSpace(val))
}

// isRow reports whether a line is a boundary, profile, or axis row. Rows
// are the only lines whose first token is an index key ending in ':'.
func isRow(line string) bool {
	tok := strings.Fields(normalizeRow(line))
	if len(tok) == 0 {
		return false
	}
	switch tok[0] {
	case "l:", "m:", "n:":
		return true
	}
	return false
}

// normalizeRow pads ':' and '=' so that glued forms like "m:0" and
// "R1=1.0" tokenize the same as the spaced forms.
func normalizeRow(line string) string {
	line = strings.ReplaceAll(line, ":", ": ")
	line = strings.ReplaceAll(line, "=", " = ")
	return line
}

// parseRow dispatches on the value keys present in the row:
// R1/Z1 -> boundary, R0/Z0 -> axis, p/i/c -> profile.
func (p *Parser) parseRow(cfg *Config, line string) error {
	fields, err := rowFields(normalizeRow(line))
	if err != nil {
		return err
	}

	has := func(keys ...string) bool {
		for _, k := range keys {
			if _, ok := fields[k]; ok {
				return true
			}
		}
		return false
	}
	geti := func(k string) (int, error) {
		v, ok := fields[k]
		if !ok {
			return 0, fmt.Errorf("row is missing %q", k)
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %q: %q", k, v)
		}
		return i, nil
	}
	getf := func(k string) (float64, error) {
		v, ok := fields[k]
		if !ok {
			return 0, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %q: %q", k, v)
		}
		return f, nil
	}

	switch {
	case has("R1", "Z1"):
		m, err := geti("m")
		if err != nil {
			return err
		}
		n, err := geti("n")
		if err != nil {
			return err
		}
		r, err := getf("R1")
		if err != nil {
			return err
		}
		z, err := getf("Z1")
		if err != nil {
			return err
		}
		p.setBoundary(cfg, BoundaryCoeff{M: m, N: n, R: r, Z: z})
		return nil

	case has("R0", "Z0"):
		n, err := geti("n")
		if err != nil {
			return err
		}
		r, err := getf("R0")
		if err != nil {
			return err
		}
		z, err := getf("Z0")
		if err != nil {
			return err
		}
		cfg.Axis = append(cfg.Axis, AxisCoeff{N: n, R: r, Z: z})
		return nil

	case has("p", "i", "c"):
		l, err := geti("l")
		if err != nil {
			return err
		}
		if has("p") {
			v, err := getf("p")
			if err != nil {
				return err
			}
			cfg.Pressure = append(cfg.Pressure, ProfileCoeff{L: l, Value: v})
		}
		if has("i") {
			v, err := getf("i")
			if err != nil {
				return err
			}
			cfg.Iota = append(cfg.Iota, ProfileCoeff{L: l, Value: v})
		}
		if has("c") {
			v, err := getf("c")
			if err != nil {
				return err
			}
			cfg.Current = append(cfg.Current, ProfileCoeff{L: l, Value: v})
		}
		return nil
	}
	return fmt.Errorf("unrecognized row %q", line)
}

// rowFields tokenizes a normalized row into key -> raw value. Index keys
// appear as "k:" tokens, value keys as "k = v" triples.
func rowFields(line string) (map[string]string, error) {
	tok := strings.Fields(line)
	fields := make(map[string]string)
	for i := 0; i < len(tok); i++ {
		t := tok[i]
		switch {
		case strings.HasSuffix(t, ":"):
			if i+1 >= len(tok) {
				return nil, fmt.Errorf("missing value after %q", t)
			}
			fields[strings.TrimSuffix(t, ":")] = tok[i+1]
			i++
		case i+1 < len(tok) && tok[i+1] == "=":
			if i+2 >= len(tok) {
				return nil, fmt.Errorf("missing value after %q =", t)
			}
			fields[t] = tok[i+2]
			i += 2
		default:
			return nil, fmt.Errorf("unexpected token %q", t)
		}
	}
	return fields, nil
}

// setBoundary applies last-write-wins semantics on the (m, n) key.
func (p *Parser) setBoundary(cfg *Config, b BoundaryCoeff) {
	for i := range cfg.Boundary {
		if cfg.Boundary[i].M == b.M && cfg.Boundary[i].N == b.N {
			p.log.Debug("duplicate boundary mode, keeping last value",
				zap.Int("m", b.M), zap.Int("n", b.N))
			cfg.Boundary[i] = b
			return
		}
	}
	cfg.Boundary = append(cfg.Boundary, b)
}

func (p *Parser) assign(cfg *Config, key, val string) error {
	if val == "" {
		return fmt.Errorf("missing value for key %q", key)
	}
	switch key {
	case "sym":
		b, err := parseBool(val)
		if err != nil {
			return fmt.Errorf("sym: %w", err)
		}
		cfg.Sym = b
	case "NFP":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("NFP: invalid integer %q", val)
		}
		cfg.NFP = n
	case "Psi":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("Psi: invalid number %q", val)
		}
		cfg.Psi = f
	case "L_rad":
		return assignInts(&cfg.LRad, key, val)
	case "M_pol":
		return assignInts(&cfg.MPol, key, val)
	case "N_tor":
		return assignInts(&cfg.NTor, key, val)
	case "L_grid":
		return assignInts(&cfg.LGrid, key, val)
	case "M_grid":
		return assignInts(&cfg.MGrid, key, val)
	case "N_grid":
		return assignInts(&cfg.NGrid, key, val)
	case "bdry_ratio":
		return assignFloats(&cfg.BdryRatio, key, val)
	case "pres_ratio":
		return assignFloats(&cfg.PresRatio, key, val)
	case "curr_ratio":
		return assignFloats(&cfg.CurrRatio, key, val)
	case "pert_order":
		return assignInts(&cfg.PertOrder, key, val)
	case "maxiter":
		return assignInts(&cfg.MaxIter, key, val)
	case "ftol":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("ftol: invalid number %q", val)
		}
		cfg.FTol = f
	case "xtol":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("xtol: invalid number %q", val)
		}
		cfg.XTol = f
	case "gtol":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("gtol: invalid number %q", val)
		}
		cfg.GTol = f
	case "optimizer":
		cfg.Optimizer = val
	case "objective":
		cfg.Objective = val
	case "spectral_indexing":
		cfg.SpectralIndexing = val
	case "node_pattern":
		cfg.NodePattern = val
	case "bdry_mode":
		cfg.BdryMode = val
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

func parseBool(val string) (bool, error) {
	switch val {
	case "1", "true", "True", "T":
		return true, nil
	case "0", "false", "False", "F":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", val)
}

func assignInts(dst *[]int, key, val string) error {
	vals, err := ExpandInts(val)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = vals
	return nil
}

func assignFloats(dst *[]float64, key, val string) error {
	parts := splitList(val)
	out := make([]float64, 0, len(parts))
	for _, s := range parts {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid number %q", key, s)
		}
		out = append(out, f)
	}
	*dst = out
	return nil
}

// ExpandInts parses an integer list that may use either comma separation
// ("6, 12, 12") or the range shorthand "start:step:end" (inclusive).
func ExpandInts(val string) ([]int, error) {
	if strings.Contains(val, ":") {
		return expandRange(val)
	}
	parts := splitList(val)
	out := make([]int, 0, len(parts))
	for _, s := range parts {
		// Decks sometimes write integer arrays with a trailing ".0".
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != float64(int(f)) {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		out = append(out, int(f))
	}
	return out, nil
}

func expandRange(val string) ([]int, error) {
	parts := strings.Split(val, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("range shorthand must be start:step:end, got %q", val)
	}
	nums := make([]int, 3)
	for i, s := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q in range", s)
		}
		nums[i] = n
	}
	start, step, end := nums[0], nums[1], nums[2]
	if step == 0 {
		return nil, fmt.Errorf("range step must be nonzero")
	}
	if (end-start)*step < 0 {
		return nil, fmt.Errorf("range %q never reaches its end", val)
	}
	var out []int
	if step > 0 {
		for v := start; v <= end; v += step {
			out = append(out, v)
		}
	} else {
		for v := start; v >= end; v += step {
			out = append(out, v)
		}
	}
	return out, nil
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
