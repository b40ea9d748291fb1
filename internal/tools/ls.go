package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Directories pruned from recursive descent. They still appear in their
// parent's listing; their contents do not.
var recursionBlacklist = map[string]bool{
	"node_modules": true, ".git": true, "venv": true, ".venv": true,
	"__pycache__": true, "bin": true, "obj": true, ".vs": true,
	"dist": true, "build": true, ".idea": true, "target": true,
	"vendor": true, ".next": true, ".nuxt": true, "coverage": true,
	".nyc_output": true, ".cache": true, ".parcel-cache": true,
	".webpack": true, ".rollup.cache": true,
}

// ListFilesTool lists directory entries, optionally recursively.
type ListFilesTool struct {
	guard *Guard
}

func NewListFilesTool(guard *Guard) *ListFilesTool {
	return &ListFilesTool{guard: guard}
}

func (t *ListFilesTool) Name() string { return "list_files" }

func (t *ListFilesTool) Description() string {
	return "List files and directories under a path relative to the working root. Recursive listing prunes dependency and build directories."
}

func (t *ListFilesTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Directory path relative to the working root (\".\" for the root)",
			},
			"recursive": map[string]any{
				"type":        "boolean",
				"description": "Recurse into subdirectories",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ListFilesTool) Execute(ctx context.Context, args map[string]any) *Response {
	path, _ := args["path"].(string)
	if strings.TrimSpace(path) == "" {
		return Failed(t.Name(), "BadArgument: path is required")
	}
	recursive, _ := args["recursive"].(bool)

	resolved, err := t.guard.Resolve(path)
	if err != nil {
		return FailedErr(t.Name(), err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return Failed(t.Name(), "NotFound: %s", path)
		}
		return Failed(t.Name(), "IO: %v", err)
	}
	if !info.IsDir() {
		return Failed(t.Name(), "BadArgument: %s is not a directory", path)
	}

	type entry struct {
		rel   string
		isDir bool
		size  int64
		mtime string
	}
	var entries []entry

	add := func(full string, d fs.DirEntry) error {
		info, err := d.Info()
		if err != nil {
			return nil // entry vanished mid-walk
		}
		rel, err := filepath.Rel(resolved, full)
		if err != nil {
			return nil
		}
		entries = append(entries, entry{
			rel:   filepath.ToSlash(rel),
			isDir: d.IsDir(),
			size:  info.Size(),
			mtime: info.ModTime().Format("2006-01-02 15:04:05"),
		})
		return nil
	}

	if recursive {
		err = filepath.WalkDir(resolved, func(full string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return nil
			}
			if full == resolved {
				return nil
			}
			if err := add(full, d); err != nil {
				return err
			}
			// Blacklisted directories are listed but never descended into.
			if d.IsDir() && recursionBlacklist[strings.ToLower(d.Name())] {
				return filepath.SkipDir
			}
			return nil
		})
	} else {
		var dirEntries []fs.DirEntry
		dirEntries, err = os.ReadDir(resolved)
		if err == nil {
			for _, d := range dirEntries {
				_ = add(filepath.Join(resolved, d.Name()), d)
			}
		}
	}
	if err != nil {
		return Failed(t.Name(), "IO: %v", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })

	var b strings.Builder
	files, dirs := 0, 0
	for _, e := range entries {
		size := fmt.Sprintf("%d", e.size)
		name := e.rel
		if e.isDir {
			size = "<DIR>"
			name += "/"
			dirs++
		} else {
			files++
		}
		fmt.Fprintf(&b, "%s  %10s  %s\n", e.mtime, size, name)
	}

	return Success(t.Name()).
		WithPath(resolved).
		Note("%d director%s, %d file%s", dirs, plural(dirs, "y", "ies"), files, plural(files, "", "s")).
		WithContent(strings.TrimRight(b.String(), "\n"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
