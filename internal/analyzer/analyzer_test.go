package analyzer

import (
	"errors"
	"strings"
	"testing"

	"pagetransform/internal/diag"
	"pagetransform/internal/mapping"
	"pagetransform/internal/model"
	"pagetransform/internal/source"
)

const boxID = "6B3F7C9A-1D2E-4F50-8A6B-7C8D9E0F1A2B"

func page(fields map[string]any, parts ...source.WebPart) *source.Page {
	return &source.Page{Name: "p.aspx", Fields: fields, Parts: parts}
}

func TestDetect_FirstMatchWins(t *testing.T) {
	t.Parallel()

	wp := source.WebPart{ID: "1", Type: "ContentEditorWebPart"}
	tests := []struct {
		name string
		rec  source.Record
		want model.PageType
	}{
		{name: "modern beats everything", rec: page(map[string]any{FieldClientSideApplicationID: "{" + strings.ToUpper(ModernApplicationID) + "}", FieldWikiField: "x", FieldPublishingPageLayout: "/a.aspx, A"}), want: model.PageTypeAlreadyModern},
		{name: "publishing beats wiki", rec: page(map[string]any{FieldPublishingPageLayout: "/a.aspx, A", FieldWikiField: "x"}), want: model.PageTypePublishing},
		{name: "empty layout is not publishing", rec: page(map[string]any{FieldPublishingPageLayout: " ", FieldWikiField: "x"}), want: model.PageTypeWiki},
		{name: "blog beats wiki", rec: page(map[string]any{FieldPostCategory: "", FieldWikiField: "x"}), want: model.PageTypeBlog},
		{name: "empty wiki field is still wiki", rec: page(map[string]any{FieldWikiField: ""}, wp), want: model.PageTypeWiki},
		{name: "other client side app", rec: page(map[string]any{FieldClientSideApplicationID: "00000000-0000-0000-0000-000000000000"}, wp), want: model.PageTypeWebPart},
		{name: "nothing", rec: page(map[string]any{"Title": "x"}), want: model.PageTypePlainASPX},
		{name: "nil", rec: nil, want: model.PageTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.rec); got != tt.want {
				t.Fatalf("Detect=%q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnalyze_Rejected(t *testing.T) {
	t.Parallel()

	for _, rec := range []source.Record{
		page(map[string]any{FieldClientSideApplicationID: ModernApplicationID}),
		page(nil),
	} {
		_, err := Analyze(rec, Options{})
		var re *RejectedError
		if !errors.As(err, &re) || !re.Type.Rejected() {
			t.Fatalf("expected RejectedError, got %v", err)
		}
		if diag.Classify(err) != diag.CodeValidation {
			t.Fatalf("rejection should classify as validation, got %s", diag.Classify(err))
		}
	}
}

const wikiHTML = `<div class="ExternalClass1"><table id="layoutsTable" style="width:100%"><tbody>` +
	`<tr style="vertical-align:top"><td colspan="2"><div class="ms-rte-layoutszone-outer"><div class="ms-rte-layoutszone-inner"><h1>Welcome</h1></div></div></td></tr>` +
	`<tr style="vertical-align:top"><td style="width:49.95%"><div class="ms-rte-layoutszone-outer"><div class="ms-rte-layoutszone-inner">` +
	`<p>Left text</p><div class="ms-rte-wpbox" contenteditable="false"><div class="ms-rtestate-notify ms-rtestate-read" id="div_{` + boxID + `}"></div><div id="vid_` + boxID + `" style="display:none"></div></div><p>After</p>` +
	`</div></div></td><td style="width:49.95%"><div class="ms-rte-layoutszone-outer"><div class="ms-rte-layoutszone-inner">` +
	`<p>Right</p><div class="ms-rte-wpbox"><div id="div_11111111-2222-3333-4444-555555555555"></div></div>` +
	`</div></div></td></tr></tbody></table><span id="layoutsData" style="display:none">true,false,2</span></div>`

func TestAnalyze_WikiLayoutTable(t *testing.T) {
	t.Parallel()

	rec := page(map[string]any{FieldWikiField: wikiHTML, FieldTitle: "Home", FieldAuthor: `i:0#.w|contoso\jdoe`},
		source.WebPart{ID: strings.ToLower(boxID), Type: "XsltListViewWebPart", Title: "Tasks", Zone: "wpz"},
		source.WebPart{ID: "99999999-2222-3333-4444-555555555555", Type: "Unreferenced", Zone: "wpz"},
	)
	a, err := Analyze(rec, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Type != model.PageTypeWiki || a.Layout != model.LayoutTwoColumnsHeader {
		t.Fatalf("type=%s layout=%s", a.Type, a.Layout)
	}

	type pos struct {
		typ, payload  string
		row, col, ord int
	}
	want := []pos{
		{"Text", "<h1>Welcome</h1>", 1, 1, 1},
		{"Text", "<p>Left text</p>", 2, 1, 1},
		{"XsltListViewWebPart", "", 2, 1, 2},
		{"Text", "<p>After</p>", 2, 1, 3},
		{"Text", "<p>Right</p>", 2, 2, 1},
	}
	if len(a.Blocks) != len(want) {
		t.Fatalf("blocks=%d, want %d: %#v", len(a.Blocks), len(want), a.Blocks)
	}
	for i, w := range want {
		b := a.Blocks[i]
		if b.Type != w.typ || b.Payload != w.payload || b.Row != w.row || b.Column != w.col || b.Order != w.ord {
			t.Fatalf("block %d=%+v, want %+v", i, b, w)
		}
	}

	if v, _ := a.Property(FieldTitle); v != "Home" {
		t.Fatalf("title property=%q", v)
	}
	if a.PageProperties[1].Name != FieldAuthor || a.PageProperties[1].Kind != string(mapping.KindPrincipal) {
		t.Fatalf("author property=%#v", a.PageProperties[1])
	}
}

func TestAnalyze_WikiWithoutLayoutTable(t *testing.T) {
	t.Parallel()

	rec := page(map[string]any{FieldWikiField: `<div class="ExternalClassX"><p>Hello</p><p>World</p></div>`})
	a, err := Analyze(rec, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Layout != model.LayoutOneColumn || len(a.Blocks) != 1 {
		t.Fatalf("layout=%s blocks=%#v", a.Layout, a.Blocks)
	}
	if a.Blocks[0].Payload != "<p>Hello</p><p>World</p>" {
		t.Fatalf("payload=%q", a.Blocks[0].Payload)
	}

	empty, err := Analyze(page(map[string]any{FieldWikiField: "   "}), Options{})
	if err != nil || len(empty.Blocks) != 0 {
		t.Fatalf("empty wiki: %v %#v", err, empty.Blocks)
	}
}

func TestAnalyze_WikiImagesAndVideos(t *testing.T) {
	t.Parallel()

	html := `<p><a href="/x"><img src="/sites/A/i.png" alt="pic"/></a></p><p>text</p><iframe src="https://video/1"></iframe>`
	rec := page(map[string]any{FieldWikiField: html})

	a, err := Analyze(rec, Options{HandleWikiImagesAndVideos: true})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(a.Blocks) != 3 {
		t.Fatalf("blocks=%#v", a.Blocks)
	}
	img, txt, vid := a.Blocks[0], a.Blocks[1], a.Blocks[2]
	if img.Type != model.BlockImage || img.Property("ImageUrl") != "/sites/A/i.png" || img.Property("AlternativeText") != "pic" || img.Property("LinkUrl") != "/x" {
		t.Fatalf("image=%#v", img)
	}
	if txt.Type != model.BlockText || txt.Payload != "<p>text</p>" {
		t.Fatalf("text=%#v", txt)
	}
	if vid.Type != model.BlockVideo || vid.Property("VideoUrl") != "https://video/1" {
		t.Fatalf("video=%#v", vid)
	}

	plain, _ := Analyze(rec, Options{})
	if len(plain.Blocks) != 1 || plain.Blocks[0].Type != model.BlockText {
		t.Fatalf("without media handling=%#v", plain.Blocks)
	}
}

func TestAnalyze_WebPartPageVisualOrder(t *testing.T) {
	t.Parallel()

	rec := page(map[string]any{"Title": "Dash"},
		source.WebPart{ID: "3", Type: "X", Zone: "Right", ZoneIndex: 1},
		source.WebPart{ID: "1", Type: "X", Zone: "Header"},
		source.WebPart{ID: "2", Type: "X", Zone: "Left", ZoneIndex: 2},
		source.WebPart{ID: "2b", Type: "X", Zone: "Left", ZoneIndex: 1, Closed: true},
		source.WebPart{ID: "m", Type: "X", Zone: "Middle"},
		source.WebPart{ID: "f", Type: "X", Zone: "Footer"},
		source.WebPart{ID: "notype", Zone: "Left"},
	)
	a, err := Analyze(rec, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Type != model.PageTypeWebPart || a.Layout != model.LayoutWebPartHeaderFooter3Col {
		t.Fatalf("type=%s layout=%s", a.Type, a.Layout)
	}
	var ids []string
	for _, b := range a.Blocks {
		ids = append(ids, b.ID)
	}
	if got := strings.Join(ids, ","); got != "1,2b,2,m,3,f" {
		t.Fatalf("order=%s", got)
	}
	if !a.Blocks[1].Closed {
		t.Fatalf("closed flag lost")
	}
	assertVisualOrder(t, a.Blocks)
}

func TestWebPartLayout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header, footer bool
		cols           map[int]bool
		want           model.PageLayout
	}{
		{cols: map[int]bool{1: true}, want: model.LayoutWebPartFullPageVertical},
		{header: true, cols: map[int]bool{1: true, 2: true}, want: model.LayoutWebPartHeaderLeftColumn},
		{header: true, footer: true, cols: map[int]bool{1: true, 2: true}, want: model.LayoutWebPartLeftColumnHeader},
		{cols: map[int]bool{2: true, 3: true}, want: model.LayoutWebPartHeaderRightColumn},
	}
	for _, tt := range tests {
		if got := webPartLayout(tt.header, tt.footer, tt.cols); got != tt.want {
			t.Fatalf("webPartLayout(%v,%v,%v)=%s, want %s", tt.header, tt.footer, tt.cols, got, tt.want)
		}
	}
}

const publishingModel = `<PageTransformation xmlns="urn:pagetransform:mapping:2024">
<WebParts><WebPart Type="Text"><Mappings><Mapping TargetType="Text"><Property Name="@Payload" Target="Text" Kind="html"/></Mapping></Mappings></WebPart></WebParts>
<PageLayouts><PageLayout Name="ArticleLeft" Layout="TwoColumns">
<Field Name="PublishingPageImage" TargetType="Image" Row="1" Column="1" Order="1"/>
<Field Name="PublishingPageContent" TargetType="Text" Row="1" Column="2" Order="1"/>
<PageProperty Field="ArticleByLine" Target="Description"/>
<PageProperty Field="TaxKeyword" Target="Keywords" Kind="taxonomy"/>
</PageLayout></PageLayouts></PageTransformation>`

func TestAnalyze_Publishing(t *testing.T) {
	t.Parallel()

	m, err := mapping.Parse([]byte(publishingModel), ".xml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rec := page(map[string]any{
		FieldPublishingPageLayout: "/_catalogs/masterpage/ArticleLeft.aspx, Article page with image on left",
		FieldPublishingPageImage:  `<img src="/sites/A/PublishingImages/a.jpg" alt="A" />`,
		"TaxKeyword":              "News|c2b6a7d1-0d3c-4a53-9b1f-7a0b2f6d8e41",
		FieldPublishingStartDate:  "2024-01-02T00:00:00Z",
	})

	a, err := Analyze(rec, Options{Model: m})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Type != model.PageTypePublishing || a.Layout != model.LayoutTwoColumns {
		t.Fatalf("type=%s layout=%s", a.Type, a.Layout)
	}
	if len(a.Blocks) != 1 || a.Blocks[0].Type != model.BlockImage || a.Blocks[0].Property("ImageUrl") != "/sites/A/PublishingImages/a.jpg" {
		t.Fatalf("blocks=%#v", a.Blocks)
	}
	if _, ok := a.Property("Description"); ok {
		t.Fatalf("absent field should not produce a page property")
	}
	var kw model.PageProperty
	for _, p := range a.PageProperties {
		if p.Name == "Keywords" {
			kw = p
		}
	}
	if kw.Kind != string(mapping.KindTaxonomy) || !strings.HasPrefix(kw.Value, "News|") {
		t.Fatalf("keywords=%#v", kw)
	}
	if v, _ := a.Property(FieldPublishingStartDate); v == "" {
		t.Fatalf("publishing start date missing")
	}

	// A layout the model does not know uses the default field mapping.
	rec.Fields[FieldPublishingPageLayout] = "/_catalogs/masterpage/Custom.aspx, Custom"
	rec.Fields[FieldPublishingPageContent] = "<p>Body</p>"
	a, err = Analyze(rec, Options{Model: m})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Layout != model.LayoutOneColumn || len(a.Blocks) != 2 || a.Blocks[0].Type != model.BlockImage || a.Blocks[1].Payload != "<p>Body</p>" {
		t.Fatalf("default mapping=%s %#v", a.Layout, a.Blocks)
	}
}

func TestAnalyze_Blog(t *testing.T) {
	t.Parallel()

	a, err := Analyze(page(map[string]any{FieldPostCategory: "1;#News", FieldBody: "<p>post</p>", "PublishedDate": "2023-05-01"}), Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.Type != model.PageTypeBlog || len(a.Blocks) != 1 || a.Blocks[0].Payload != "<p>post</p>" {
		t.Fatalf("analysis=%#v", a)
	}

	noBody, err := Analyze(page(map[string]any{FieldPostCategory: ""}), Options{})
	if err != nil || len(noBody.Blocks) != 0 {
		t.Fatalf("blog without body: %v %#v", err, noBody.Blocks)
	}
}

func TestPageLayoutName(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"/_catalogs/masterpage/ArticleLeft.aspx, Article", "ArticleLeft"},
		{"https://h/_catalogs/masterpage/WelcomeLinks.aspx", "WelcomeLinks"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := PageLayoutName(tt.in); got != tt.want {
			t.Fatalf("PageLayoutName(%q)=%q, want %q", tt.in, got, tt.want)
		}
	}
}

func assertVisualOrder(t *testing.T, blocks []model.ContentBlock) {
	t.Helper()
	for i := 1; i < len(blocks); i++ {
		a, b := blocks[i-1], blocks[i]
		if a.Row > b.Row || a.Row == b.Row && (a.Column > b.Column || a.Column == b.Column && a.Order > b.Order) {
			t.Fatalf("blocks %d and %d out of visual order: %+v %+v", i-1, i, a, b)
		}
	}
}
