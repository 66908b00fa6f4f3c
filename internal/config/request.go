package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Request is the per-page transformation configuration.
//
// Everything except the computed fields is treated as immutable input; the
// pipeline works on a copy and only fills ResolvedFolder and GeneratedName.
type Request struct {
	// PageID identifies the source page in logs and results.
	PageID string `json:"page_id" mapstructure:"page_id"`

	// SourceSite is the absolute URL of the source site collection.
	SourceSite string `json:"source_site" mapstructure:"source_site"`
	// SourceWeb is the absolute URL of the source web (may equal SourceSite).
	SourceWeb string `json:"source_web" mapstructure:"source_web"`
	// TargetWeb is the absolute URL of the target web.
	TargetWeb string `json:"target_web" mapstructure:"target_web"`

	// SourcePagesLibrary is the legacy pages library segment ("pages" for
	// publishing portals, "sitepages" for wiki sites).
	SourcePagesLibrary string `json:"source_pages_library" mapstructure:"source_pages_library"`

	// TargetPageName overrides the generated file name.
	TargetPageName string `json:"target_page_name" mapstructure:"target_page_name"`
	// TargetPagePrefix is prepended to the generated file name.
	TargetPagePrefix string `json:"target_page_prefix" mapstructure:"target_page_prefix"`
	// TargetPageFolder overrides the folder derived from the source page.
	TargetPageFolder string `json:"target_page_folder" mapstructure:"target_page_folder"`

	Overwrite                    bool `json:"overwrite" mapstructure:"overwrite"`
	KeepPermissions              bool `json:"keep_permissions" mapstructure:"keep_permissions"`
	SkipTermMapping              bool `json:"skip_term_mapping" mapstructure:"skip_term_mapping"`
	SkipUserMapping              bool `json:"skip_user_mapping" mapstructure:"skip_user_mapping"`
	SkipURLRewrite               bool `json:"skip_url_rewrite" mapstructure:"skip_url_rewrite"`
	PostAsNews                   bool `json:"post_as_news" mapstructure:"post_as_news"`
	PublishCreatedPage           bool `json:"publish_created_page" mapstructure:"publish_created_page"`
	KeepPageCreationModification bool `json:"keep_page_creation_modification" mapstructure:"keep_page_creation_modification"`
	SetAuthorInPageHeader        bool `json:"set_author_in_page_header" mapstructure:"set_author_in_page_header"`
	HandleWikiImagesAndVideos    bool `json:"handle_wiki_images_and_videos" mapstructure:"handle_wiki_images_and_videos"`
	KeepEmptySectionsAndColumns  bool `json:"keep_empty_sections_and_columns" mapstructure:"keep_empty_sections_and_columns"`
	SkipHiddenWebParts           bool `json:"skip_hidden_web_parts" mapstructure:"skip_hidden_web_parts"`
	DisablePageComments          bool `json:"disable_page_comments" mapstructure:"disable_page_comments"`

	// Mapping files. Empty means "not configured".
	MappingModelFile string `json:"mapping_model_file" mapstructure:"mapping_model_file"`
	TermMappingFile  string `json:"term_mapping_file" mapstructure:"term_mapping_file"`
	UserMappingFile  string `json:"user_mapping_file" mapstructure:"user_mapping_file"`
	URLMappingFile   string `json:"url_mapping_file" mapstructure:"url_mapping_file"`

	// Properties carries free-form settings for custom strategies.
	Properties Options `json:"properties,omitempty" mapstructure:"properties"`

	// Computed by the pipeline.
	ResolvedFolder string `json:"resolved_folder,omitempty" mapstructure:"-"`
	GeneratedName  string `json:"generated_name,omitempty" mapstructure:"-"`
}

// Setting is one (name, value) pair in a settings dump.
type Setting struct {
	Name  string
	Value string
}

// Settings enumerates the request configuration for logging. The list is
// explicit so that adding a field means adding a line here.
func (r Request) Settings() []Setting {
	b := strconv.FormatBool
	out := []Setting{
		{"PageID", r.PageID},
		{"SourceSite", r.SourceSite},
		{"SourceWeb", r.SourceWeb},
		{"TargetWeb", r.TargetWeb},
		{"SourcePagesLibrary", r.SourcePagesLibrary},
		{"TargetPageName", r.TargetPageName},
		{"TargetPagePrefix", r.TargetPagePrefix},
		{"TargetPageFolder", r.TargetPageFolder},
		{"Overwrite", b(r.Overwrite)},
		{"KeepPermissions", b(r.KeepPermissions)},
		{"SkipTermMapping", b(r.SkipTermMapping)},
		{"SkipUserMapping", b(r.SkipUserMapping)},
		{"SkipURLRewrite", b(r.SkipURLRewrite)},
		{"PostAsNews", b(r.PostAsNews)},
		{"PublishCreatedPage", b(r.PublishCreatedPage)},
		{"KeepPageCreationModification", b(r.KeepPageCreationModification)},
		{"SetAuthorInPageHeader", b(r.SetAuthorInPageHeader)},
		{"HandleWikiImagesAndVideos", b(r.HandleWikiImagesAndVideos)},
		{"KeepEmptySectionsAndColumns", b(r.KeepEmptySectionsAndColumns)},
		{"SkipHiddenWebParts", b(r.SkipHiddenWebParts)},
		{"DisablePageComments", b(r.DisablePageComments)},
		{"MappingModelFile", r.MappingModelFile},
		{"TermMappingFile", r.TermMappingFile},
		{"UserMappingFile", r.UserMappingFile},
		{"URLMappingFile", r.URLMappingFile},
	}
	for _, k := range sortedKeys(r.Properties) {
		out = append(out, Setting{Name: "Properties." + k, Value: fmt.Sprint(r.Properties[k])})
	}
	return out
}

// Validate checks the fields every transformation needs.
func (r Request) Validate() error {
	var missing []string
	if strings.TrimSpace(r.SourceWeb) == "" {
		missing = append(missing, "source_web")
	}
	if strings.TrimSpace(r.TargetWeb) == "" {
		missing = append(missing, "target_web")
	}
	if len(missing) > 0 {
		return fmt.Errorf("request: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// EffectiveSourceSite returns SourceSite, defaulting to SourceWeb.
func (r Request) EffectiveSourceSite() string {
	if strings.TrimSpace(r.SourceSite) != "" {
		return r.SourceSite
	}
	return r.SourceWeb
}

// EffectivePagesLibrary returns the legacy pages library segment, defaulting
// to "pages".
func (r Request) EffectivePagesLibrary() string {
	if s := strings.Trim(strings.TrimSpace(r.SourcePagesLibrary), "/"); s != "" {
		return s
	}
	return "pages"
}
