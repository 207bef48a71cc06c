package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchExact(t *testing.T) {
	name, _, ok := BrandCatalog.Match("natura")
	assert.True(t, ok)
	assert.Equal(t, "Natura", name)

	name, _, ok = BrandCatalog.Match("O BOTICARIO")
	assert.True(t, ok)
	assert.Equal(t, "O Boticário", name)

	name, _, ok = StyleCatalog.Match("lancamentos")
	assert.True(t, ok)
	assert.Equal(t, "Lançamentos", name)
}

func TestMatchExactBeatsPrefix(t *testing.T) {
	// "Perfumaria" is also a prefix of other entries in the type list.
	name, _, ok := StyleCatalog.Match("Perfumaria")
	assert.True(t, ok)
	assert.Equal(t, "Perfumaria", name)

	name, _, ok = TypeCatalog.Match("protetor solar")
	assert.True(t, ok)
	assert.Equal(t, "Protetor solar", name)
}

func TestMatchUniquePrefix(t *testing.T) {
	name, candidates, ok := BrandCatalog.Match("nat")
	assert.True(t, ok)
	assert.Equal(t, "Natura", name)
	assert.Equal(t, []string{"Natura"}, candidates)

	name, _, ok = BrandCatalog.Match("Tupper")
	assert.True(t, ok)
	assert.Equal(t, "Tupperware", name)
}

func TestMatchAmbiguousPrefix(t *testing.T) {
	_, candidates, ok := BrandCatalog.Match("ou")
	assert.False(t, ok)
	assert.Equal(t, []string{"Oui-Original-Unique-Individuel", "Outra"}, candidates)

	_, candidates, ok = StyleCatalog.Match("cas")
	assert.True(t, ok)
	assert.Equal(t, []string{"Casa"}, candidates)

	_, candidates, ok = TypeCatalog.Match("sha")
	assert.False(t, ok)
	assert.Equal(t, []string{"Shampoo", "Shampoo 2 em 1", "Shampoo e Condicionador"}, candidates)
}

func TestMatchUnknown(t *testing.T) {
	_, candidates, ok := BrandCatalog.Match("xyz")
	assert.False(t, ok)
	assert.Empty(t, candidates)

	_, _, ok = BrandCatalog.Match("   ")
	assert.False(t, ok)
}

func TestNamesAndContains(t *testing.T) {
	assert.Equal(t, 10, BrandCatalog.Len())
	assert.Equal(t, "Eudora", BrandCatalog.Names()[0])
	assert.Equal(t, 18, StyleCatalog.Len())
	assert.True(t, TypeCatalog.Contains("ÓLEO CORPORAL"))
	assert.False(t, TypeCatalog.Contains("Óleo"))
	assert.Equal(t, "marca", BrandCatalog.Name())
}

func TestWithPrefix(t *testing.T) {
	assert.Equal(t, []string{"Mary Kay"}, BrandCatalog.WithPrefix("ma"))
	assert.Equal(t, []string{"Creme bisnaga", "Creme hidratante para as mãos", "Creme hidratante para os pés", "Creme para Pentear"},
		TypeCatalog.WithPrefix("creme"))
}
