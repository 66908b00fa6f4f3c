package pipeline

import (
	"testing"

	"pagetransform/internal/config"
	"pagetransform/internal/source"
)

func TestTargetNaming(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		req        config.Request
		page       source.Page
		wantName   string
		wantFolder string
		wantPath   string
	}{
		{
			name:       "source_leaf_and_folder",
			page:       source.Page{Name: "Home.aspx", Folder: "Pages/news/2019"},
			wantName:   "Home.aspx",
			wantFolder: "news/2019",
			wantPath:   "sitepages/news/2019/Home.aspx",
		},
		{
			name:       "root_of_pages_library",
			page:       source.Page{Name: "Home.aspx", Folder: "pages"},
			wantName:   "Home.aspx",
			wantFolder: "",
			wantPath:   "sitepages/Home.aspx",
		},
		{
			name:       "prefix_and_extension",
			req:        config.Request{TargetPagePrefix: "Migrated_"},
			page:       source.Page{Name: "Pages/About", Folder: "Other"},
			wantName:   "Migrated_About.aspx",
			wantFolder: "Other",
			wantPath:   "sitepages/Other/Migrated_About.aspx",
		},
		{
			name:       "overrides",
			req:        config.Request{TargetPageName: "Start.aspx", TargetPageFolder: "/archive/"},
			page:       source.Page{Name: "Home.aspx", Folder: "SitePages/x"},
			wantName:   "Start.aspx",
			wantFolder: "archive",
			wantPath:   "sitepages/archive/Start.aspx",
		},
		{
			name:       "custom_pages_library",
			req:        config.Request{SourcePagesLibrary: "Seiten"},
			page:       source.Page{Name: "a.ASPX", Folder: "seiten/team"},
			wantName:   "a.ASPX",
			wantFolder: "team",
			wantPath:   "sitepages/team/a.ASPX",
		},
		{
			name:       "library_prefix_only_as_segment",
			page:       source.Page{Name: "a.aspx", Folder: "pagesarchive/x"},
			wantName:   "a.aspx",
			wantFolder: "pagesarchive/x",
			wantPath:   "sitepages/pagesarchive/x/a.aspx",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			name := targetName(tc.req, &tc.page)
			folder := targetFolder(tc.req, &tc.page)
			if name != tc.wantName || folder != tc.wantFolder {
				t.Fatalf("name=%q folder=%q, want %q %q", name, folder, tc.wantName, tc.wantFolder)
			}
			if got := targetPath(folder, name); got != tc.wantPath {
				t.Fatalf("path=%q, want %q", got, tc.wantPath)
			}
		})
	}
}

func TestTrimExt(t *testing.T) {
	t.Parallel()
	if trimExt("Home.aspx") != "Home" || trimExt(".aspx") != ".aspx" || trimExt("x") != "x" {
		t.Fatalf("trimExt mismatch")
	}
}
