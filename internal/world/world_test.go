package world

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/talgya/hexboard/internal/geom"
)

// sharedCorner is the corner shared by tile 0 (row 0) and tiles 3, 4 (row 1)
// on the default board.
var sharedCorner = geom.Pt(189.9, 110)

func newTestBoard(t *testing.T) *Board {
	t.Helper()
	b, err := Generate(DefaultGenConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return b
}

func TestGenerateSilhouette(t *testing.T) {
	b := newTestBoard(t)
	if b.TileCount() != 30 {
		t.Fatalf("expected 30 tiles, got %d", b.TileCount())
	}
	perRow := make(map[int]int)
	for i, tile := range b.Tiles {
		if tile.ID != i {
			t.Errorf("tile %d has ID %d", i, tile.ID)
		}
		perRow[tile.Row]++
	}
	want := []int{3, 4, 5, 6, 5, 4, 3}
	for row, n := range want {
		if perRow[row] != n {
			t.Errorf("row %d: %d tiles, want %d", row, perRow[row], n)
		}
	}
	if len(b.Vertices()) != 80 {
		t.Errorf("expected 80 distinct corners, got %d", len(b.Vertices()))
	}
}

func TestGenerateDefaults(t *testing.T) {
	b := newTestBoard(t)
	for _, tile := range b.Tiles {
		if tile.Material != MaterialNone || tile.FillColor != DefaultFillColor {
			t.Errorf("tile %d: material %q color %q", tile.ID, tile.Material, tile.FillColor)
		}
		if tile.HasNumber() {
			t.Errorf("tile %d should start without a number", tile.ID)
		}
		if tile.Center != geom.MidPoint(tile.Polygon[0], tile.Polygon[3]) {
			t.Errorf("tile %d center %+v", tile.ID, tile.Center)
		}
	}
	if b.Revision != 0 {
		t.Errorf("fresh board revision %d", b.Revision)
	}
}

func TestGenerateRejectsBadLayout(t *testing.T) {
	cases := []GenConfig{
		{MinRowWidth: 0, MaxRowWidth: 3, Radius: 50},
		{MinRowWidth: 4, MaxRowWidth: 3, Radius: 50},
		{MinRowWidth: 3, MaxRowWidth: 5, Radius: 0},
	}
	for _, cfg := range cases {
		if _, err := Generate(cfg); !errors.Is(err, ErrInvalidLayout) {
			t.Errorf("Generate(%+v): expected ErrInvalidLayout, got %v", cfg, err)
		}
	}
}

func TestAdjacentTilesShareCorners(t *testing.T) {
	b := newTestBoard(t)
	shared := func(a, c *Tile) int {
		n := 0
		for _, p := range a.Polygon {
			for _, q := range c.Polygon {
				if geom.Same(p, q) {
					n++
				}
			}
		}
		return n
	}
	// Same-row neighbours.
	for i := 0; i+1 < len(b.Tiles); i++ {
		a, c := b.Tiles[i], b.Tiles[i+1]
		if a.Row != c.Row {
			continue
		}
		if n := shared(a, c); n < 2 {
			t.Errorf("tiles %d and %d share %d corners", a.ID, c.ID, n)
		}
	}
	if n := shared(b.Tile(0), b.Tile(3)); n != 2 {
		t.Errorf("tiles 0 and 3 share %d corners, want 2", n)
	}
}

func TestTilesAtSharedCorner(t *testing.T) {
	b := newTestBoard(t)
	tiles := b.TilesAt(sharedCorner)
	if len(tiles) != 3 {
		t.Fatalf("expected 3 tiles at shared corner, got %d", len(tiles))
	}
	ids := map[int]bool{}
	for _, tile := range tiles {
		ids[tile.ID] = true
	}
	for _, id := range []int{0, 3, 4} {
		if !ids[id] {
			t.Errorf("tile %d missing from corner lookup", id)
		}
	}
	if got := b.TilesAt(geom.Pt(-100, -100)); len(got) != 0 {
		t.Errorf("expected no tiles off-board, got %d", len(got))
	}
}

func TestSetNumber(t *testing.T) {
	b := newTestBoard(t)
	tile := b.Tile(0)

	for _, n := range []int{1, 13, 0, -5} {
		if err := b.SetNumber(tile, n); !errors.Is(err, ErrInvalidNumber) {
			t.Errorf("SetNumber(%d): expected ErrInvalidNumber, got %v", n, err)
		}
	}
	if tile.HasNumber() || b.Revision != 0 {
		t.Fatal("failed SetNumber must leave the board unchanged")
	}

	if err := b.SetNumber(tile, 7); err != nil {
		t.Fatalf("SetNumber(7): %v", err)
	}
	if tile.Number != 7 {
		t.Errorf("expected number 7, got %d", tile.Number)
	}

	b.ClearNumber(tile)
	if tile.HasNumber() {
		t.Error("ClearNumber left a number")
	}
}

func TestSetMaterialDefaults(t *testing.T) {
	b := newTestBoard(t)
	tile := b.Tile(2)
	b.SetMaterial(tile, MaterialWood, "green")
	if tile.Material != MaterialWood || tile.FillColor != "green" {
		t.Errorf("got %q/%q", tile.Material, tile.FillColor)
	}
	b.SetMaterial(tile, "", "")
	if tile.Material != MaterialNone || tile.FillColor != DefaultFillColor {
		t.Errorf("empty paint should reset to defaults, got %q/%q", tile.Material, tile.FillColor)
	}
}

func TestAttachAndDetachStructure(t *testing.T) {
	b := newTestBoard(t)
	s := Structure{ID: uuid.New(), Position: sharedCorner, Tier: TierCity, Owner: "red"}

	tiles := b.AttachStructure(s)
	if len(tiles) != 3 {
		t.Fatalf("expected structure on 3 tiles, got %d", len(tiles))
	}
	for _, tile := range tiles {
		if len(tile.Cities) != 1 || tile.Cities[0].ID != s.ID {
			t.Errorf("tile %d cities: %+v", tile.ID, tile.Cities)
		}
	}
	got, ok := b.StructureAt(sharedCorner)
	if !ok || got.Owner != "red" {
		t.Fatalf("StructureAt: %+v %v", got, ok)
	}

	removed := b.DetachStructuresAt(sharedCorner)
	if len(removed) != 3 {
		t.Errorf("expected 3 copies removed, got %d", len(removed))
	}
	if _, ok := b.StructureAt(sharedCorner); ok {
		t.Error("corner still occupied after detach")
	}
}

func TestParseTier(t *testing.T) {
	cases := map[string]Tier{
		"city":       TierCity,
		"Cities":     TierCity,
		"building":   TierBuilding,
		" buildings": TierBuilding,
	}
	for in, want := range cases {
		got, err := ParseTier(in)
		if err != nil || got != want {
			t.Errorf("ParseTier(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseTier("castle"); !errors.Is(err, ErrUnknownTier) {
		t.Errorf("expected ErrUnknownTier, got %v", err)
	}
	if TierCity.Weight() != 1 || TierBuilding.Weight() != 2 {
		t.Error("unexpected tier weights")
	}
}

func TestScatterIsDeterministic(t *testing.T) {
	a := newTestBoard(t)
	c := newTestBoard(t)
	Scatter(a, 42)
	Scatter(c, 42)

	for i := range a.Tiles {
		ta, tc := a.Tiles[i], c.Tiles[i]
		if ta.Material != tc.Material || ta.Number != tc.Number {
			t.Fatalf("tile %d differs: %s/%d vs %s/%d", i, ta.Material, ta.Number, tc.Material, tc.Number)
		}
		if ta.Material == MaterialNone {
			t.Errorf("tile %d left unpainted", i)
		}
		if ta.Material == MaterialDesert {
			if ta.HasNumber() {
				t.Errorf("desert tile %d has number %d", i, ta.Number)
			}
			continue
		}
		if err := ValidateNumber(ta.Number); err != nil {
			t.Errorf("tile %d: %v", i, err)
		}
		if ta.Number == 7 {
			t.Errorf("tile %d dealt a 7", i)
		}
	}

	total := 0
	for _, n := range MaterialCounts(a) {
		total += n
	}
	if total != a.TileCount() {
		t.Errorf("material counts sum to %d", total)
	}
}

func TestRankSites(t *testing.T) {
	b := newTestBoard(t)
	if sites := RankSites(b); len(sites) != 0 {
		t.Fatalf("blank board should have no productive sites, got %d", len(sites))
	}

	for i, m := range []Material{MaterialWood, MaterialBrick} {
		tile := b.Tile([]int{0, 3}[i])
		b.SetMaterial(tile, m, MaterialColors[m])
		if err := b.SetNumber(tile, 6); err != nil {
			t.Fatal(err)
		}
	}
	tile4 := b.Tile(4)
	b.SetMaterial(tile4, MaterialOre, MaterialColors[MaterialOre])
	if err := b.SetNumber(tile4, 8); err != nil {
		t.Fatal(err)
	}

	sites := RankSites(b)
	if len(sites) == 0 {
		t.Fatal("expected ranked sites")
	}
	best := sites[0]
	if !geom.Same(best.Position, sharedCorner) {
		t.Errorf("best site %+v, want %+v", best.Position, sharedCorner)
	}
	if best.Pips != 15 || best.Materials != 3 {
		t.Errorf("best site pips=%d materials=%d", best.Pips, best.Materials)
	}

	b.AttachStructure(Structure{ID: uuid.New(), Position: sharedCorner, Tier: TierCity, Owner: "red"})
	for _, s := range RankSites(b) {
		if geom.Same(s.Position, sharedCorner) {
			t.Error("occupied corner should not be ranked")
		}
	}
}

func TestPips(t *testing.T) {
	want := map[int]int{0: 0, 2: 1, 6: 5, 7: 6, 8: 5, 12: 1, 13: 0}
	for n, p := range want {
		if Pips(n) != p {
			t.Errorf("Pips(%d) = %d, want %d", n, Pips(n), p)
		}
	}
}
