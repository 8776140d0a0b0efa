package pipeline

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"mitcircs/internal"
	"mitcircs/internal/layout"
	"mitcircs/internal/logging"
)

var blockKeyPattern = regexp.MustCompile(`^([0-9]+)_`)

// BlockLayout is the set of response blocks found in a table, ordered by
// block number.
type BlockLayout []internal.ResponseBlock

func (bl BlockLayout) Get(key string) (internal.ResponseBlock, bool) {
	for _, b := range bl {
		if b.Key == key {
			return b, true
		}
	}
	return internal.ResponseBlock{}, false
}

type roleSuffix struct {
	role   internal.FieldRole
	suffix string
}

// suffixOrder lists role suffixes longest first so "_1_TEXT" is tried before "_1".
func suffixOrder(lay layout.Layout) []roleSuffix {
	out := make([]roleSuffix, 0, internal.RoleCount)
	for _, role := range internal.AllRoles() {
		out = append(out, roleSuffix{role: role, suffix: lay.Suffix(role)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].suffix) > len(out[j].suffix)
	})
	return out
}

// LocateBlocks groups columns named "<n>_..." with 1 <= n < maxBlockNumber
// into response blocks and maps each recognised suffix to its column index.
// Blocks without a single recognised column are left out.
func LocateBlocks(columns []string, lay layout.Layout, maxBlockNumber int, logger *zap.Logger) BlockLayout {
	logger = logging.OrNop(logger)
	suffixes := suffixOrder(lay)
	blocks := map[int]*internal.ResponseBlock{}

	for idx, name := range columns {
		m := blockKeyPattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		number, err := strconv.Atoi(m[1])
		if err != nil || number < 1 || number >= maxBlockNumber {
			continue
		}
		key := strconv.Itoa(number)
		rest := name[len(m[1]):]

		role, ok := matchRole(rest, suffixes)
		if !ok {
			logger.Debug("unrecognised response column", zap.String("column", name), zap.Int("index", idx))
			continue
		}

		b := blocks[number]
		if b == nil {
			nb := internal.NewResponseBlock(key, number)
			b = &nb
			blocks[number] = b
		}
		if !b.SetIndex(role, idx) {
			first, _ := b.Index(role)
			logger.Warn("duplicate response column ignored",
				zap.String("block", key),
				zap.String("role", role.String()),
				zap.String("column", name),
				zap.Int("index", idx),
				zap.Int("kept", first),
			)
			continue
		}
		logger.Debug("response column", zap.String("column", name), zap.Int("index", idx))
	}

	out := make(BlockLayout, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })

	for _, b := range out {
		indices := make([]int, 0, b.Len())
		for _, role := range b.Roles() {
			i, _ := b.Index(role)
			indices = append(indices, i)
		}
		logger.Debug("response block", zap.String("block", b.Key), zap.Ints("indices", indices))
	}
	logger.Info("located response blocks", zap.Int("blocks", len(out)))
	return out
}

func matchRole(rest string, suffixes []roleSuffix) (internal.FieldRole, bool) {
	for _, rs := range suffixes {
		if rs.suffix != "" && strings.HasSuffix(rest, rs.suffix) {
			return rs.role, true
		}
	}
	return 0, false
}
