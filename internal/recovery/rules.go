package recovery

import (
	"fmt"
	"html"
	"strings"

	"github.com/edvin/sitebuilder/internal/model"
)

// Rule names, also used as metric labels.
const (
	RuleMissingEntryFile = "missing_entry_file"
	RuleStrayConfigFile  = "stray_config_file"
	RuleInvalidPaths     = "invalid_paths"
	RuleEmptyFiles       = "empty_files"
)

// MissingEntryFile adds a default entry page when no path ends in EntryFile.
type MissingEntryFile struct{}

func (MissingEntryFile) Name() string { return RuleMissingEntryFile }

func (r MissingEntryFile) Check(title string, files []File) ([]Issue, []Fix) {
	for _, f := range files {
		if strings.HasSuffix(f.Path, EntryFile) {
			return nil, nil
		}
	}
	issue := Issue{
		Rule:    r.Name(),
		Message: "no " + EntryFile + " entry file found",
	}
	fix := Fix{
		Kind:        FixAddFile,
		Rule:        r.Name(),
		Path:        EntryFile,
		Content:     DefaultPage(title),
		Type:        model.FileTypeHTML,
		Description: "add default " + EntryFile,
	}
	return []Issue{issue}, []Fix{fix}
}

// StrayConfigFile removes a provider configuration file the static build
// does not need.
type StrayConfigFile struct {
	Path string
}

func (StrayConfigFile) Name() string { return RuleStrayConfigFile }

func (r StrayConfigFile) Check(_ string, files []File) ([]Issue, []Fix) {
	var issues []Issue
	var fixes []Fix
	for _, f := range files {
		if strings.TrimLeft(f.Path, "/") != r.Path {
			continue
		}
		issues = append(issues, Issue{
			Rule:    r.Name(),
			Path:    f.Path,
			Message: "provider configuration file is not needed for a static site",
		})
		fixes = append(fixes, Fix{
			Kind:        FixRemoveFile,
			Rule:        r.Name(),
			Path:        f.Path,
			Description: "remove " + f.Path,
		})
	}
	return issues, fixes
}

// InvalidPaths rewrites paths with traversal segments or a leading slash
// into plain relative paths. "/index.html" is accepted as is. A path whose
// rewrite would land on an existing file is reported without a fix.
type InvalidPaths struct{}

func (InvalidPaths) Name() string { return RuleInvalidPaths }

func (r InvalidPaths) Check(_ string, files []File) ([]Issue, []Fix) {
	var issues []Issue
	var fixes []Fix
	taken := make(map[string]bool, len(files))
	for _, f := range files {
		taken[f.Path] = true
	}
	for _, f := range files {
		if !invalidPath(f.Path) {
			continue
		}
		cleaned := SanitizePath(f.Path)
		if taken[cleaned] {
			issues = append(issues, Issue{
				Rule:    r.Name(),
				Path:    f.Path,
				Message: fmt.Sprintf("path must be relative and must not contain .., and %s is already taken", cleaned),
			})
			continue
		}
		issues = append(issues, Issue{
			Rule:    r.Name(),
			Path:    f.Path,
			Message: "path must be relative and must not contain ..",
		})
		if cleaned == "" {
			continue
		}
		taken[cleaned] = true
		fixes = append(fixes, Fix{
			Kind:        FixModifyFile,
			Rule:        r.Name(),
			Path:        f.Path,
			NewPath:     cleaned,
			Description: fmt.Sprintf("rename %s to %s", f.Path, cleaned),
		})
	}
	return issues, fixes
}

func invalidPath(p string) bool {
	if p == "/"+EntryFile {
		return false
	}
	if strings.HasPrefix(p, "/") {
		return true
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// SanitizePath strips leading slashes and traversal segments from p.
func SanitizePath(p string) string {
	var parts []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".", "..":
			continue
		}
		parts = append(parts, seg)
	}
	return strings.Join(parts, "/")
}

// EmptyFiles fills blank HTML and CSS files with defaults. Other blank files
// are reported without a fix.
type EmptyFiles struct{}

func (EmptyFiles) Name() string { return RuleEmptyFiles }

func (r EmptyFiles) Check(title string, files []File) ([]Issue, []Fix) {
	var issues []Issue
	var fixes []Fix
	for _, f := range files {
		if strings.TrimSpace(f.Content) != "" {
			continue
		}
		issues = append(issues, Issue{Rule: r.Name(), Path: f.Path, Message: "file is empty"})

		typ := f.Type
		if typ == "" || typ == model.FileTypeOther {
			typ = FileTypeForPath(f.Path)
		}
		switch typ {
		case model.FileTypeHTML:
			fixes = append(fixes, Fix{
				Kind:        FixModifyFile,
				Rule:        r.Name(),
				Path:        f.Path,
				Content:     DefaultPage(title),
				Description: "replace empty " + f.Path + " with a default page",
			})
		case model.FileTypeCSS:
			fixes = append(fixes, Fix{
				Kind:        FixModifyFile,
				Rule:        r.Name(),
				Path:        f.Path,
				Content:     ResetStylesheet,
				Description: "replace empty " + f.Path + " with a reset stylesheet",
			})
		}
	}
	return issues, fixes
}

// DefaultPage renders a minimal entry page for a project title.
func DefaultPage(title string) string {
	if strings.TrimSpace(title) == "" {
		title = "My Site"
	}
	t := html.EscapeString(title)
	return `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>` + t + `</title>
</head>
<body>
  <main>
    <h1>` + t + `</h1>
    <p>This site is being built.</p>
  </main>
</body>
</html>
`
}

// ResetStylesheet is written into empty CSS files.
const ResetStylesheet = `*, *::before, *::after {
  box-sizing: border-box;
}

body {
  margin: 0;
  font-family: system-ui, -apple-system, sans-serif;
  line-height: 1.5;
}

img {
  max-width: 100%;
  display: block;
}
`
