package geotree

import (
	"testing"

	"addr-geo/internal/geodata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kandal() *geodata.Dataset {
	return &geodata.Dataset{
		Provinces: []geodata.Province{{Code: "P1", NameEN: "Kandal", NameKM: "កណ្ដាល"}},
		Districts: []geodata.District{{Code: "D1", ProvinceCode: "P1", NameEN: "Ang Snuol", NameKM: "អង្គស្នួល"}},
		Communes:  []geodata.Commune{{Code: "C1", DistrictCode: "D1", NameEN: "Kokir", NameKM: "កកីរ"}},
		Villages:  []geodata.Village{{CommuneCode: "C1", NameEN: "Prek Thmei", NameKM: "ព្រែកថ្មី"}},
	}
}

func TestBuild_Example(t *testing.T) {
	tree, sum := Build(kandal())

	assert.Equal(t, map[string]map[string]map[string][]string{
		"Kandal": {"Ang Snuol": {"Kokir": {"Prek Thmei"}}},
	}, tree.Map())
	assert.Equal(t, Stats{Provinces: 1, Districts: 1, Communes: 1, Villages: 1}, sum.Tree)
	assert.Equal(t, Dropped{}, sum.Dropped)

	b, err := tree.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"Kandal":{"Ang Snuol":{"Kokir":["Prek Thmei"]}}}`, string(b))

	c := tree.Province("Kandal").District("Ang Snuol").Commune("Kokir")
	require.NotNil(t, c)
	assert.Equal(t, geodata.Code("C1"), c.Code)
	assert.Equal(t, "កកីរ", c.NameKM)
}

func TestBuild_EveryProvincePresent(t *testing.T) {
	ds := kandal()
	ds.Provinces = append(ds.Provinces,
		geodata.Province{Code: "P2", NameEN: "Pailin"},
		geodata.Province{Code: "P3", NameEN: "Kep"},
	)
	ds.Districts = append(ds.Districts, geodata.District{Code: "D2", ProvinceCode: "P3", NameEN: "Damnak Chang'aeur"})

	tree, _ := Build(ds)
	m := tree.Map()

	require.Contains(t, m, "Pailin")
	assert.Empty(t, m["Pailin"])
	require.Contains(t, m, "Kep")
	require.Contains(t, m["Kep"], "Damnak Chang'aeur")
	assert.Empty(t, m["Kep"]["Damnak Chang'aeur"])

	b, err := Encode(tree)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"Pailin": {}`)
}

func TestBuild_EmptyCommuneHasEmptyList(t *testing.T) {
	ds := kandal()
	ds.Villages = nil

	tree, _ := Build(ds)
	vs := tree.Villages("Kandal", "Ang Snuol", "Kokir")
	require.NotNil(t, vs)
	assert.Empty(t, vs)

	b, err := tree.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"Kandal":{"Ang Snuol":{"Kokir":[]}}}`, string(b))
}

func TestBuild_SortsWithEnglishCollation(t *testing.T) {
	ds := &geodata.Dataset{
		Provinces: []geodata.Province{
			{Code: "P1", NameEN: "Tboung Khmum"},
			{Code: "P2", NameEN: "banteay Meanchey"},
			{Code: "P3", NameEN: "Kampot"},
		},
		Districts: []geodata.District{
			{Code: "D1", ProvinceCode: "P3", NameEN: "Tuek Chhou"},
			{Code: "D2", ProvinceCode: "P3", NameEN: "chhuk"},
			{Code: "D3", ProvinceCode: "P3", NameEN: "Angkor Chey"},
		},
		Communes: []geodata.Commune{
			{Code: "C1", DistrictCode: "D3", NameEN: "Trapeang Pring"},
			{Code: "C2", DistrictCode: "D3", NameEN: "dambouk Khpos"},
		},
		Villages: []geodata.Village{
			{CommuneCode: "C2", NameEN: "Thmei"},
			{CommuneCode: "C2", NameEN: "ang"},
			{CommuneCode: "C2", NameEN: "Boeng"},
		},
	}

	tree, _ := Build(ds)

	assert.Equal(t, []string{"banteay Meanchey", "Kampot", "Tboung Khmum"}, tree.Names())
	p := tree.Province("Kampot")
	assert.Equal(t, []string{"Angkor Chey", "chhuk", "Tuek Chhou"}, p.Names())
	d := p.District("Angkor Chey")
	assert.Equal(t, []string{"dambouk Khpos", "Trapeang Pring"}, d.Names())
	assert.Equal(t, []string{"ang", "Boeng", "Thmei"}, tree.Villages("Kampot", "Angkor Chey", "dambouk Khpos"))

	assertSorted(t, tree)
}

func assertSorted(t *testing.T, tree *Tree) {
	t.Helper()
	nondecreasing := func(xs []string) {
		for i := 1; i < len(xs); i++ {
			assert.False(t, Less(xs[i], xs[i-1]), "%q before %q", xs[i-1], xs[i])
		}
	}
	nondecreasing(tree.Names())
	for _, p := range tree.Provinces {
		nondecreasing(p.Names())
		for _, d := range p.Districts {
			nondecreasing(d.Names())
			for _, c := range d.Communes {
				nondecreasing(c.Villages)
			}
		}
	}
}

func TestBuild_DanglingReferencesDropped(t *testing.T) {
	ds := kandal()
	ds.Districts = append(ds.Districts,
		geodata.District{Code: "D9", ProvinceCode: "P404", NameEN: "Orphan District"},
		geodata.District{Code: "D8", NameEN: "No Parent"},
	)
	ds.Communes = append(ds.Communes,
		geodata.Commune{Code: "C9", DistrictCode: "D9", NameEN: "Under Orphan"},
		geodata.Commune{Code: "C8", DistrictCode: "D404", NameEN: "Nowhere"},
	)
	ds.Villages = append(ds.Villages,
		geodata.Village{CommuneCode: "C9", NameEN: "Deep Orphan"},
		geodata.Village{NameEN: "Unreferenced"},
	)

	tree, sum := Build(ds)

	b, err := tree.MarshalJSON()
	require.NoError(t, err)
	for _, name := range []string{"Orphan District", "No Parent", "Under Orphan", "Nowhere", "Deep Orphan", "Unreferenced"} {
		assert.NotContains(t, string(b), name)
	}
	assert.Equal(t, 2, sum.Dropped.Districts)
	assert.Equal(t, 2, sum.Dropped.Communes)
	assert.Equal(t, 2, sum.Dropped.Villages)
}

func TestBuild_UnnamedRecords(t *testing.T) {
	ds := kandal()
	ds.Provinces = append(ds.Provinces, geodata.Province{Code: "P2"})
	ds.Villages = append(ds.Villages,
		geodata.Village{CommuneCode: "C1"},
		geodata.Village{CommuneCode: "C1", NameEN: "Chrey"},
	)

	tree, sum := Build(ds)

	assert.Equal(t, []string{"Kandal"}, tree.Names())
	assert.Equal(t, []string{"Chrey", "Prek Thmei"}, tree.Villages("Kandal", "Ang Snuol", "Kokir"))
	assert.Equal(t, 2, sum.Dropped.Unnamed)
}

func TestBuild_DuplicateVillageNamesKept(t *testing.T) {
	ds := kandal()
	ds.Villages = append(ds.Villages, geodata.Village{CommuneCode: "C1", NameEN: "Prek Thmei"})

	tree, _ := Build(ds)
	assert.Equal(t, []string{"Prek Thmei", "Prek Thmei"}, tree.Villages("Kandal", "Ang Snuol", "Kokir"))
}

func TestBuild_DuplicateSiblingNamesLastWins(t *testing.T) {
	ds := kandal()
	ds.Districts = append(ds.Districts, geodata.District{Code: "D2", ProvinceCode: "P1", NameEN: "Ang Snuol", NameKM: "second"})
	ds.Communes = append(ds.Communes, geodata.Commune{Code: "C2", DistrictCode: "D2", NameEN: "Snuol"})

	tree, sum := Build(ds)

	d := tree.Province("Kandal").District("Ang Snuol")
	require.NotNil(t, d)
	assert.Equal(t, geodata.Code("D2"), d.Code)
	assert.Equal(t, []string{"Snuol"}, d.Names())
	assert.Equal(t, []string{"Ang Snuol"}, tree.Province("Kandal").Names())
	assert.Equal(t, 1, sum.Duplicates)
}

func TestBuild_SourceOrderIndependent(t *testing.T) {
	a := kandal()
	a.Villages = append(a.Villages,
		geodata.Village{CommuneCode: "C1", NameEN: "Ampil"},
		geodata.Village{CommuneCode: "C1", NameEN: "Svay"},
	)
	b := kandal()
	b.Villages = []geodata.Village{
		{CommuneCode: "C1", NameEN: "Svay"},
		{CommuneCode: "C1", NameEN: "Prek Thmei"},
		{CommuneCode: "C1", NameEN: "Ampil"},
	}

	ta, _ := Build(a)
	tb, _ := Build(b)
	ea, err := Encode(ta)
	require.NoError(t, err)
	eb, err := Encode(tb)
	require.NoError(t, err)
	assert.Equal(t, string(ea), string(eb))
}

func TestBuild_EmptyCommuneReferenceDropsVillage(t *testing.T) {
	files := map[geodata.Kind][]byte{
		geodata.KindProvinces: []byte(`{"provinces":[{"code":"P1","name_en":"Kandal"}]}`),
		geodata.KindDistricts: []byte(`{"districts":[{"code":"D1","province_code":"P1","name_en":"Ang Snuol"}]}`),
		geodata.KindCommunes:  []byte(`{"communes":[{"code":"C1","district_code":"D1","name_en":"Kokir"}]}`),
		geodata.KindVillages:  []byte(`{"villages":[{"commune_code":"","communeId":"C1","name_en":"Ghost"},{"communeId":"C1","name_en":"Prek Thmei"}]}`),
	}
	ds, err := geodata.Parse(files)
	require.NoError(t, err)

	tree, sum := Build(ds)
	assert.Equal(t, []string{"Prek Thmei"}, tree.Villages("Kandal", "Ang Snuol", "Kokir"))
	assert.Equal(t, 1, sum.Dropped.Villages)
}
