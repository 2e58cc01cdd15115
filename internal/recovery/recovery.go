// Package recovery diagnoses known defects in a project's file set after a
// failed deployment and produces the file edits that repair them.
package recovery

import (
	"fmt"
	"strings"

	"github.com/edvin/sitebuilder/internal/model"
)

// EntryFile is the canonical entry file of a static site.
const EntryFile = "index.html"

// Fix kinds.
const (
	FixAddFile    = "add_file"
	FixModifyFile = "modify_file"
	FixRemoveFile = "remove_file"
)

// File is the part of a project file the rules inspect and rewrite.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

// Issue is a defect found by a rule.
type Issue struct {
	Rule    string `json:"rule"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// Fix is a single file edit. NewPath is only used by modify_file and renames
// the file before its content is replaced.
type Fix struct {
	Kind        string `json:"kind"`
	Rule        string `json:"rule"`
	Path        string `json:"path"`
	NewPath     string `json:"new_path,omitempty"`
	Content     string `json:"content,omitempty"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description"`
}

// Diagnosis is the combined output of every rule in a chain.
type Diagnosis struct {
	Issues []Issue `json:"issues"`
	Fixes  []Fix   `json:"fixes"`
}

// CanFix reports whether the diagnosis found issues and at least one fix.
func (d Diagnosis) CanFix() bool {
	return len(d.Issues) > 0 && len(d.Fixes) > 0
}

// Summary lists every issue on its own line, for the attempt log.
func (d Diagnosis) Summary() []string {
	lines := make([]string, 0, len(d.Issues))
	for _, issue := range d.Issues {
		if issue.Path != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", issue.Path, issue.Message))
		} else {
			lines = append(lines, "- "+issue.Message)
		}
	}
	return lines
}

// Rule inspects a file set and reports issues with optional fixes.
type Rule interface {
	Name() string
	Check(title string, files []File) ([]Issue, []Fix)
}

// Engine runs an ordered chain of rules.
type Engine struct {
	rules []Rule
}

func NewEngine(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// DefaultRules returns the built-in rule chain in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		MissingEntryFile{},
		StrayConfigFile{Path: "vercel.json"},
		InvalidPaths{},
		EmptyFiles{},
	}
}

// Diagnose runs every rule against files. Rules see the original file set,
// not the output of earlier rules.
func (e *Engine) Diagnose(title string, files []File) Diagnosis {
	var d Diagnosis
	for _, r := range e.rules {
		issues, fixes := r.Check(title, files)
		d.Issues = append(d.Issues, issues...)
		d.Fixes = append(d.Fixes, fixes...)
	}
	return d
}

// Apply returns a new file set with fixes applied in order. A rename made by
// an earlier fix is followed by later fixes that still refer to the old path.
// Apply never drops a file to make room for a rename.
func Apply(files []File, fixes []Fix) []File {
	out := make([]File, len(files))
	copy(out, files)
	renamed := make(map[string]string)

	resolve := func(path string) string {
		for i := 0; i < len(renamed); i++ {
			next, ok := renamed[path]
			if !ok {
				break
			}
			path = next
		}
		return path
	}
	indexOf := func(path string) int {
		for i, f := range out {
			if f.Path == path {
				return i
			}
		}
		return -1
	}

	for _, fix := range fixes {
		switch fix.Kind {
		case FixAddFile:
			if i := indexOf(fix.Path); i >= 0 {
				out[i].Content = fix.Content
				out[i].Type = fix.Type
				continue
			}
			out = append(out, File{Path: fix.Path, Content: fix.Content, Type: fix.Type})
		case FixModifyFile:
			path := resolve(fix.Path)
			i := indexOf(path)
			if i < 0 {
				continue
			}
			// A rename onto an existing file is skipped; both files are kept.
			if fix.NewPath != "" && fix.NewPath != path && indexOf(fix.NewPath) < 0 {
				renamed[path] = fix.NewPath
				out[i].Path = fix.NewPath
			}
			if fix.Content != "" {
				out[i].Content = fix.Content
			}
		case FixRemoveFile:
			if i := indexOf(resolve(fix.Path)); i >= 0 {
				out = append(out[:i], out[i+1:]...)
			}
		}
	}
	return out
}

// FileTypeForPath infers the stored type tag from a path's extension.
func FileTypeForPath(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"):
		return model.FileTypeHTML
	case strings.HasSuffix(lower, ".css"):
		return model.FileTypeCSS
	case strings.HasSuffix(lower, ".js"), strings.HasSuffix(lower, ".mjs"):
		return model.FileTypeJavaScript
	case strings.HasSuffix(lower, ".json"):
		return model.FileTypeJSON
	default:
		return model.FileTypeOther
	}
}
