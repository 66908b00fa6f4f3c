package pipeline

import (
	"path"
	"strings"

	"pagetransform/internal/config"
	"pagetransform/internal/source"
	"pagetransform/internal/urlrewrite"
)

const pageExt = ".aspx"

// targetName returns the file name of the produced page: the override or
// the source leaf, with the prefix prepended and an .aspx extension.
func targetName(req config.Request, page *source.Page) string {
	name := strings.TrimSpace(req.TargetPageName)
	if name == "" {
		name = path.Base(strings.ReplaceAll(page.Name, "\\", "/"))
	}
	if name == "." || name == "/" {
		name = ""
	}
	if !strings.EqualFold(path.Ext(name), pageExt) {
		name += pageExt
	}
	return req.TargetPagePrefix + name
}

// targetFolder returns the folder below the modern pages library: the
// override, or the source folder with the legacy pages library removed.
func targetFolder(req config.Request, page *source.Page) string {
	if f := strings.Trim(strings.TrimSpace(req.TargetPageFolder), "/"); f != "" {
		return f
	}
	folder := strings.Trim(strings.ReplaceAll(page.Folder, "\\", "/"), "/")
	lib := req.EffectivePagesLibrary()
	for _, l := range []string{lib, urlrewrite.ModernPagesLibrary} {
		switch {
		case strings.EqualFold(folder, l):
			return ""
		case len(folder) > len(l) && strings.EqualFold(folder[:len(l)+1], l+"/"):
			return folder[len(l)+1:]
		}
	}
	return folder
}

// targetPath joins the modern pages library, folder and name.
func targetPath(folder, name string) string {
	if folder == "" {
		return urlrewrite.ModernPagesLibrary + "/" + name
	}
	return urlrewrite.ModernPagesLibrary + "/" + folder + "/" + name
}
