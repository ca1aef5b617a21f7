package router

import (
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"time"

	"studybud/internal/utils"
	"studybud/web"

	"github.com/gin-contrib/multitemplate"
)

const (
	layoutFile = "templates/layouts/base.html"
	viewsDir   = "templates/views"
)

var funcMap = template.FuncMap{
	"dict": func(values ...interface{}) (map[string]interface{}, error) {
		if len(values)%2 != 0 {
			return nil, fmt.Errorf("invalid dict call")
		}
		dict := make(map[string]interface{}, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict keys must be strings")
			}
			dict[key] = values[i+1]
		}
		return dict, nil
	},
	"add": func(a, b int) int {
		return a + b
	},
	"timeAgo":  timeAgo,
	"truncate": truncate,
	"markdown": utils.RenderMarkdown,
	"safeHTML": func(s string) template.HTML {
		return template.HTML(s)
	},
}

func timeAgo(t time.Time) string {
	seconds := int(time.Since(t).Seconds())
	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s ago", unit)
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return plural(seconds/60, "minute")
	case seconds < 86400:
		return plural(seconds/3600, "hour")
	case seconds < 2592000:
		return plural(seconds/86400, "day")
	case seconds < 31536000:
		return plural(seconds/2592000, "month")
	}
	return plural(seconds/31536000, "year")
}

func truncate(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}

// LoadTemplates pairs the base layout with every view under
// templates/views. A view is registered under its path relative to that
// directory, e.g. "room/detail.html".
func LoadTemplates() (multitemplate.Render, error) {
	r := multitemplate.New()

	err := fs.WalkDir(web.FS, viewsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".html" {
			return nil
		}
		tmpl, err := template.New(path.Base(layoutFile)).Funcs(funcMap).ParseFS(web.FS, layoutFile, p)
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		r.Add(strings.TrimPrefix(p, viewsDir+"/"), tmpl)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}
