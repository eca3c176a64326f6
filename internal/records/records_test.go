package records

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadEdges(t *testing.T) {
	in := `x,y,weight,episode
Aang,Katara,3,1
Katara,Aang,,1
"Sokka", Toph ,2.5,2

`
	cols := DefaultEdgeColumns()
	cols.Section = "Episode"
	rs, err := ReadEdges(strings.NewReader(in), cols)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(rs))
	}
	if rs[0].Source != "Aang" || rs[0].Target != "Katara" || rs[0].Weight != 3 || rs[0].Section != "1" {
		t.Errorf("unexpected first record: %+v", rs[0])
	}
	if rs[1].Weight != 0 {
		t.Errorf("empty weight should stay 0 (one occurrence), got %v", rs[1].Weight)
	}
	if rs[2].Target != "Toph" || rs[2].Weight != 2.5 {
		t.Errorf("unexpected third record: %+v", rs[2])
	}
}

func TestReadEdges_NoWeightColumn(t *testing.T) {
	rs, err := ReadEdges(strings.NewReader("x,y\na,b\na,b\n"), DefaultEdgeColumns())
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 2 || rs[0].Weight != 0 {
		t.Errorf("unexpected records: %+v", rs)
	}
}

func TestReadEdges_Errors(t *testing.T) {
	_, err := ReadEdges(strings.NewReader("from,to\na,b\n"), DefaultEdgeColumns())
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}

	_, err = ReadEdges(strings.NewReader("x,y,weight\na,b,lots\n"), DefaultEdgeColumns())
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line-numbered weight error, got %v", err)
	}

	cols := DefaultEdgeColumns()
	cols.Section = "book"
	_, err = ReadEdges(strings.NewReader("x,y\na,b\n"), cols)
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn for section, got %v", err)
	}
}

func TestReadEdges_Empty(t *testing.T) {
	rs, err := ReadEdges(strings.NewReader(""), DefaultEdgeColumns())
	if err != nil || len(rs) != 0 {
		t.Errorf("expected no records and no error, got %v %v", rs, err)
	}
}

func TestReadCharacters(t *testing.T) {
	in := `name,gender,bending,origin
Aang,male,air,Air Nomads
 Katara ,female,water,Water Tribe
Sokka,male,,Water Tribe
aang,male,air,duplicate
`
	c, err := ReadCharacters(strings.NewReader(in), "name")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"aang", "katara", "sokka"}
	if strings.Join(c.Names, ",") != strings.Join(want, ",") {
		t.Errorf("names = %v, want %v", c.Names, want)
	}
	if got := c.Attribute("Origin")["katara"]; got != "Water Tribe" {
		t.Errorf("origin[katara] = %q", got)
	}
	if _, ok := c.Attribute("bending")["sokka"]; ok {
		t.Error("empty attribute values should be left out")
	}
	if got := c.Attribute("origin")["aang"]; got != "Air Nomads" {
		t.Errorf("duplicate row overwrote first: %q", got)
	}
	if c.Attribute("height") != nil {
		t.Error("unknown attribute should be nil")
	}
}

func TestReadCharactersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "characters.csv")
	if err := os.WriteFile(path, []byte("Name\nZuko\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := ReadCharactersFile(path, "name")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Names) != 1 || c.Names[0] != "zuko" {
		t.Errorf("unexpected names: %v", c.Names)
	}

	if _, err := ReadCharactersFile(filepath.Join(t.TempDir(), "missing.csv"), "name"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSections(t *testing.T) {
	in := "x,y,book\na,b,2\nb,c,1\nc,a,2\nd,e,\n"
	cols := DefaultEdgeColumns()
	cols.Section = "book"
	rs, err := ReadEdges(strings.NewReader(in), cols)
	if err != nil {
		t.Fatal(err)
	}
	sections := Sections(rs)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].Name != "2" || len(sections[0].Records) != 2 {
		t.Errorf("first section should be book 2 with 2 records, got %+v", sections[0])
	}
	if sections[1].Name != "1" || len(sections[1].Records) != 1 {
		t.Errorf("second section should be book 1, got %+v", sections[1])
	}
}
