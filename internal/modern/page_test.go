package modern

import "testing"

func TestAddSectionAndControls(t *testing.T) {
	t.Parallel()

	p := NewPage("Foo.aspx")
	p.Folder = "news/"
	if p.Path() != "news/Foo.aspx" {
		t.Fatalf("Path: %q", p.Path())
	}

	i := p.AddSection(SectionTwoColumnLeft)
	if len(p.Sections[i].Columns) != 2 || p.Sections[i].Columns[0].Factor != 8 {
		t.Fatalf("unexpected columns: %#v", p.Sections[i].Columns)
	}
	if !p.Sections[i].Empty() {
		t.Fatalf("new section should be empty")
	}
	p.Sections[i].Columns[1].Controls = append(p.Sections[i].Columns[1].Controls, Control{Type: "Text"})
	j := p.AddSection(SectionOneColumn)
	p.Sections[j].Columns[0].Controls = append(p.Sections[j].Columns[0].Controls, Control{Type: "Image"})

	got := p.Controls()
	if len(got) != 2 || !got[0].IsText() || got[1].Type != "Image" {
		t.Fatalf("Controls: %#v", got)
	}
}

func TestLayoutForColumns(t *testing.T) {
	t.Parallel()

	cases := map[int]SectionLayout{0: SectionOneColumn, 1: SectionOneColumn, 2: SectionTwoColumn, 3: SectionThreeColumn, 5: SectionThreeColumn}
	for n, want := range cases {
		if got := LayoutForColumns(n); got != want {
			t.Fatalf("LayoutForColumns(%d)=%s want %s", n, got, want)
		}
	}
}
