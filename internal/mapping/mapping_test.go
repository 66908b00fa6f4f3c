package mapping

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pagetransform/internal/model"
)

func loadTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := Load(File(filepath.Join("testdata", "mapping.xml")))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func TestLoad_XML(t *testing.T) {
	t.Parallel()

	m := loadTestModel(t)
	if got := len(m.Types()); got != 4 {
		t.Fatalf("expected 4 types, got %d", got)
	}

	// Passing the parsed model back in must not re-parse.
	again, err := Load(m)
	if err != nil || again != m {
		t.Fatalf("Load(*Model) should return the same instance, got %p err=%v", again, err)
	}

	pl, ok := m.PageLayout("articleleft")
	if !ok || pl.Layout != model.LayoutTwoColumns || len(pl.Fields) != 2 || len(pl.PageProperties) != 2 {
		t.Fatalf("unexpected page layout: %#v", pl)
	}
}

func TestLookup_ShortAndQualifiedNames(t *testing.T) {
	t.Parallel()

	m := loadTestModel(t)
	for _, name := range []string{
		"Microsoft.SharePoint.WebPartPages.ContentEditorWebPart, Microsoft.SharePoint",
		"microsoft.sharepoint.webpartpages.contenteditorwebpart",
		"ContentEditorWebPart",
	} {
		if _, ok := m.Lookup(name); !ok {
			t.Fatalf("Lookup(%q) failed", name)
		}
	}
	if _, ok := m.Lookup("Unknown"); ok {
		t.Fatalf("unexpected match for unknown type")
	}
	var nilModel *Model
	if _, ok := nilModel.Lookup("Text"); ok {
		t.Fatalf("nil model must not match")
	}
}

func TestSelect_SelectorThenDefault(t *testing.T) {
	t.Parallel()

	wp, _ := loadTestModel(t).Lookup("ContentEditorWebPart")

	linked := model.ContentBlock{Properties: map[string]string{"ContentLink": "/sites/a/x.html"}}
	if got := wp.Select(linked); got == nil || got.Name != "linked" {
		t.Fatalf("expected linked mapping, got %#v", got)
	}

	inline := model.ContentBlock{Properties: map[string]string{"Content": "<p>hi</p>", "ContentLink": " "}}
	got := wp.Select(inline)
	if got == nil || got.Name != "inline" {
		t.Fatalf("expected default mapping, got %#v", got)
	}

	vals := got.Apply(inline)
	if len(vals) != 2 || vals[0].Name != "Text" || vals[0].Kind != KindHTML || vals[1].Value != "cewp" {
		t.Fatalf("unexpected values: %#v", vals)
	}
}

func TestApply_Rules(t *testing.T) {
	t.Parallel()

	wp, _ := loadTestModel(t).Lookup("XsltListViewWebPart")
	mp := wp.Select(model.ContentBlock{})

	b := model.ContentBlock{Properties: map[string]string{
		"ListId":  "{6F1E1F7C-3A57-4E7E-9D1A-3E1B2A9C6D11}",
		"Url":     "/sites/A/Lists/Tasks",
		"ViewXml": `<View Name="{ABC}" Type="HTML"/>`,
		"Owner":   `CONTOSO\jdoe`,
	}}
	got := map[string]Value{}
	for _, v := range mp.Apply(b) {
		got[v.Name] = v
	}

	if got["ListId"].Value != "6f1e1f7c-3a57-4e7e-9d1a-3e1b2a9c6d11" {
		t.Fatalf("guid coercion: %q", got["ListId"].Value)
	}
	if got["MaxItems"].Value != "30" {
		t.Fatalf("default for absent property: %q", got["MaxItems"].Value)
	}
	if got["WebRelative"].Value != "/Lists/Tasks" {
		t.Fatalf("regex capture: %q", got["WebRelative"].Value)
	}
	if got["ViewName"].Value != `<View Name="All" Type="HTML"/>` {
		t.Fatalf("regex replace: %q", got["ViewName"].Value)
	}
	if got["Owner"].Kind != KindPrincipal {
		t.Fatalf("kind not carried: %#v", got["Owner"])
	}
}

func TestApply_FailedCoercionKeepsValue(t *testing.T) {
	t.Parallel()

	wp, _ := loadTestModel(t).Lookup("XsltListViewWebPart")
	mp := wp.Select(model.ContentBlock{})
	vals := mp.Apply(model.ContentBlock{Properties: map[string]string{"ListId": "not-a-guid", "ItemLimit": "many"}})

	got := map[string]string{}
	for _, v := range vals {
		got[v.Name] = v.Value
	}
	if got["ListId"] != "not-a-guid" || got["MaxItems"] != "many" {
		t.Fatalf("failed coercion should keep raw value: %#v", got)
	}
}

func TestLoad_JSON(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "m.json")
	body := `{"namespace":"` + Namespace + `","web_parts":[{"type":"Text","mappings":[{"target_type":"Text","properties":[{"name":"@Payload","target":"Text","kind":"html"}]}]}]}`
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := Load(File(p))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := m.Lookup("text"); !ok {
		t.Fatalf("Text mapping missing")
	}
}

func TestLookup_SharedShortNameFirstDefinedWins(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "m.json")
	body := `{"namespace":"` + Namespace + `","web_parts":[` +
		`{"type":"Contoso.Parts.Banner","mappings":[{"target_type":"First"}]},` +
		`{"type":"Fabrikam.Parts.Banner","mappings":[{"target_type":"Second"}]}]}`
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := Load(File(p))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i := 0; i < 20; i++ {
		wp, ok := m.Lookup("Banner")
		if !ok || wp.Type != "Contoso.Parts.Banner" {
			t.Fatalf("Lookup(Banner)=%+v ok=%v, want the first defined type", wp, ok)
		}
	}
}

func TestLoad_SchemaErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "wrong namespace",
			body: `<PageTransformation xmlns="urn:other"><WebParts><WebPart Type="Text"><Mappings><Mapping TargetType="Text"/></Mappings></WebPart></WebParts></PageTransformation>`,
			want: "namespace",
		},
		{
			name: "malformed xml",
			body: `<PageTransformation xmlns="` + Namespace + `"><WebParts>`,
			want: "decode xml",
		},
		{
			name: "bad regex",
			body: `<PageTransformation xmlns="` + Namespace + `"><WebParts><WebPart Type="Text"><Mappings><Mapping TargetType="Text"><Property Name="a" Target="b" Rule="regex" Pattern="(" /></Mapping></Mappings></WebPart></WebParts></PageTransformation>`,
			want: "invalid regex",
		},
		{
			name: "duplicate type and unknown rule",
			body: `<PageTransformation xmlns="` + Namespace + `"><WebParts><WebPart Type="Text"><Mappings><Mapping TargetType="Text"><Property Name="a" Target="b" Rule="explode"/></Mapping></Mappings></WebPart><WebPart Type="text"><Mappings><Mapping TargetType="Text"/></Mappings></WebPart></WebParts></PageTransformation>`,
			want: "duplicate type",
		},
		{
			name: "missing target type",
			body: `<PageTransformation xmlns="` + Namespace + `"><WebParts><WebPart Type="Text"><Mappings><Mapping/></Mappings></WebPart></WebParts></PageTransformation>`,
			want: "target_type is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "m.xml")
			if err := os.WriteFile(p, []byte(tt.body), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			_, err := Load(File(p))
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("expected SchemaError, got %v", err)
			}
			if se.Path != p {
				t.Fatalf("SchemaError.Path=%q want %q", se.Path, p)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(File(filepath.Join(t.TempDir(), "none.xml")))
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if _, err := Load(nil); err == nil {
		t.Fatalf("expected error for nil source")
	}
}
