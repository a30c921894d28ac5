package pipeline

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/vidnarr-cli/internal/observe"
	"github.com/KaramelBytes/vidnarr-cli/internal/table"
)

// ErrSourceNotFound is returned when the input export does not exist.
var ErrSourceNotFound = errors.New("source file not found")

// Block identifies one repeated measurement unit (a presented video) by the
// index text that prefixes its columns, kept verbatim so "01" stays "01".
type Block string

// Index is the numeric value of the identifier, used for ordering.
func (b Block) Index() int {
	n, _ := strconv.Atoi(string(b))
	return n
}

// Prefix is the column-name prefix shared by the block's columns.
func (b Block) Prefix() string { return string(b) + "_" }

// Column is the raw column name for a field suffix within this block.
func (b Block) Column(suffix string) string { return b.Prefix() + suffix }

// Label renders the block for the long table's block column.
func (b Block) Label(prefix string) string { return prefix + string(b) }

// BlockPattern describes how block identifiers are recognized in a header.
type BlockPattern struct {
	// Marker is the field suffix every block carries, e.g. "Reso_clip".
	Marker string
	// Reserved lists suffixes that, directly after Marker, belong to a
	// different field and must not be read as the marker ("_end").
	Reserved []string
}

func (p BlockPattern) regexp() *regexp.Regexp {
	return regexp.MustCompile(`^(\d+)_` + regexp.QuoteMeta(p.Marker) + `(.*)$`)
}

// Inspect returns the sorted, de-duplicated block identifiers referenced by
// a header. A column counts when it is "<index>_<Marker>" optionally
// followed by text that does not start with a reserved suffix.
func Inspect(header []string, p BlockPattern) []Block {
	if p.Marker == "" {
		return nil
	}
	re := p.regexp()
	seen := map[Block]struct{}{}
	var out []Block
	for _, h := range header {
		m := re.FindStringSubmatch(strings.TrimSpace(h))
		if m == nil || p.reserved(m[2]) {
			continue
		}
		b := Block(m[1])
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Index() != out[j].Index() {
			return out[i].Index() < out[j].Index()
		}
		return out[i] < out[j]
	})
	return out
}

func (p BlockPattern) reserved(rest string) bool {
	for _, r := range p.Reserved {
		if r != "" && strings.HasPrefix(rest, r) {
			return true
		}
	}
	return false
}

// InspectFile reads only the header line of path and inspects it. A missing
// file is logged at error level and yields no blocks plus ErrSourceNotFound.
func InspectFile(path string, delim rune, p BlockPattern, log observe.Logger) ([]Block, error) {
	if log == nil {
		log = observe.Nop()
	}
	header, err := table.ReadHeader(path, delim)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Error("source file not found", "path", path)
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		log.Error("read header failed", "path", path, "error", err)
		return nil, fmt.Errorf("inspect header: %w", err)
	}
	blocks := Inspect(header, p)
	log.Info("blocks discovered", "count", len(blocks), "marker", p.Marker)
	return blocks, nil
}
