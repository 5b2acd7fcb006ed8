package poseidon

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blockberries/mina-signer-go/field"
)

// table is the on-disk layout of an exported constant set. Both the
// snake_case and camelCase spellings of the round-constant key are accepted.
type table struct {
	MDS                 [][]string `yaml:"mds" json:"mds"`
	RoundConstants      [][]string `yaml:"round_constants" json:"round_constants"`
	RoundConstantsCamel [][]string `yaml:"roundConstants" json:"-"`
}

// LoadParams reads a constant set in JSON or YAML. Entries are decimal or
// 0x-prefixed big-endian hex strings; unquoted integers are accepted too. The
// MDS matrix must be 3x3 and every round-constant row must have 3 entries.
func LoadParams(r io.Reader) (*Params, error) {
	var t table
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty table", ErrInvalidParams)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	rcs := t.RoundConstants
	if len(rcs) == 0 {
		rcs = t.RoundConstantsCamel
	} else if len(t.RoundConstantsCamel) > 0 {
		return nil, fmt.Errorf("%w: both round_constants and roundConstants are set", ErrInvalidParams)
	}

	if len(t.MDS) != Width {
		return nil, fmt.Errorf("%w: mds has %d rows, want %d", ErrInvalidParams, len(t.MDS), Width)
	}
	p := &Params{RoundConstants: make([][Width]field.Element, len(rcs))}
	for i, row := range t.MDS {
		if len(row) != Width {
			return nil, fmt.Errorf("%w: mds row %d has %d entries, want %d", ErrInvalidParams, i, len(row), Width)
		}
		for j, s := range row {
			x, err := parseConstant(s)
			if err != nil {
				return nil, fmt.Errorf("mds[%d][%d]: %w", i, j, err)
			}
			p.MDS[i][j] = x
		}
	}
	for r, row := range rcs {
		if len(row) != Width {
			return nil, fmt.Errorf("%w: round constant row %d has %d entries, want %d", ErrInvalidParams, r, len(row), Width)
		}
		for i, s := range row {
			x, err := parseConstant(s)
			if err != nil {
				return nil, fmt.Errorf("rc[%d][%d]: %w", r, i, err)
			}
			p.RoundConstants[r][i] = x
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadLegacyParamsFile reads a table from path and checks that it has the
// legacy shape: 63 full rounds plus the initial row.
func LoadLegacyParamsFile(path string) (*Params, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	p, err := LoadParams(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.Rounds() != LegacyFullRounds {
		return nil, fmt.Errorf("%w: %s has %d rounds, want %d", ErrInvalidParams, path, p.Rounds(), LegacyFullRounds)
	}
	return p, nil
}

// WriteParams writes p as JSON with decimal entries, in the layout LoadParams
// reads.
func WriteParams(w io.Writer, p *Params) error {
	t := table{
		MDS:            make([][]string, Width),
		RoundConstants: make([][]string, len(p.RoundConstants)),
	}
	for i := range p.MDS {
		t.MDS[i] = decimalRow(p.MDS[i])
	}
	for r := range p.RoundConstants {
		t.RoundConstants[r] = decimalRow(p.RoundConstants[r])
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

func decimalRow(row [Width]field.Element) []string {
	out := make([]string, Width)
	for i := range row {
		out[i] = field.Decimal(row[i])
	}
	return out
}

func parseConstant(s string) (field.Element, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "0x") {
		x, err := field.Fp.FromDecimal(s)
		if err != nil {
			return field.Element{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		return x, nil
	}

	digits := lower[2:]
	if len(digits) == 0 || len(digits) > 64 {
		return field.Element{}, fmt.Errorf("%w: hex constant %q", ErrInvalidParams, s)
	}
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	raw, err := hex.DecodeString(digits)
	if err != nil {
		return field.Element{}, fmt.Errorf("%w: hex constant %q: %v", ErrInvalidParams, s, err)
	}
	var be [32]byte
	copy(be[32-len(raw):], raw)
	x, err := field.Fp.FromBytesBE(be[:])
	if err != nil {
		return field.Element{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return x, nil
}
