// Package catalog holds the fixed brand, style and type lists used to
// validate guided product entry.
package catalog

import (
	"strings"

	"github.com/google/btree"
	"github.com/talkincode/toughstock/pkg/common"
)

// PrefixLen is the number of leading characters used by the fallback match.
const PrefixLen = 3

type entry struct {
	key  string // folded name
	name string
}

func lessEntry(a, b entry) bool {
	return a.key < b.key
}

// Catalog is an immutable, ordered category list. Lookups are
// case and accent insensitive.
type Catalog struct {
	name  string
	names []string
	tree  *btree.BTreeG[entry]
}

func New(name string, names []string) *Catalog {
	c := &Catalog{
		name:  name,
		names: append([]string(nil), names...),
		tree:  btree.NewG[entry](8, lessEntry),
	}
	for _, n := range names {
		c.tree.ReplaceOrInsert(entry{key: common.Fold(n), name: n})
	}
	return c
}

func (c *Catalog) Name() string {
	return c.name
}

// Names returns the categories in declaration order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

func (c *Catalog) Len() int {
	return len(c.names)
}

func (c *Catalog) Contains(s string) bool {
	_, ok := c.tree.Get(entry{key: common.Fold(s)})
	return ok
}

// Match resolves input to a canonical category name. An exact folded match
// wins. Otherwise the first PrefixLen characters are compared and the lookup
// succeeds only when exactly one category shares that prefix; the candidates
// are returned so the caller can ask the user to disambiguate.
func (c *Catalog) Match(input string) (name string, candidates []string, ok bool) {
	key := common.Fold(input)
	if key == "" {
		return "", nil, false
	}
	if e, found := c.tree.Get(entry{key: key}); found {
		return e.name, nil, true
	}
	candidates = c.WithPrefix(prefixOf(key))
	if len(candidates) == 1 {
		return candidates[0], candidates, true
	}
	return "", candidates, false
}

// WithPrefix lists categories whose folded name starts with prefix, in
// alphabetical order.
func (c *Catalog) WithPrefix(prefix string) []string {
	prefix = common.Fold(prefix)
	var out []string
	c.tree.AscendGreaterOrEqual(entry{key: prefix}, func(e entry) bool {
		if !strings.HasPrefix(e.key, prefix) {
			return false
		}
		out = append(out, e.name)
		return true
	})
	return out
}

func prefixOf(key string) string {
	return common.Truncate(key, PrefixLen)
}

var (
	BrandCatalog = New("marca", Brands)
	StyleCatalog = New("estilo", Styles)
	TypeCatalog  = New("tipo", Types)
)
