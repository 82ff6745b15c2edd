package dashboard

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/nao1215/socaudit/internal/model"
	"github.com/nao1215/socaudit/internal/scoring"
)

//go:embed templates/dashboard.html.tmpl
var templateFS embed.FS

// GeneratedLayout is the layout of the build time shown in the sidebar.
const GeneratedLayout = "2006-01-02 15:04:05 MST"

var pageTemplate = template.Must(
	template.New("dashboard.html.tmpl").
		Funcs(sprig.HtmlFuncMap()).
		ParseFS(templateFS, "templates/dashboard.html.tmpl"),
)

// pageData is the template input.
type pageData struct {
	Title     string
	Generated string
	Count     int
	Data      template.JS

	GoodThreshold float64
	FairThreshold float64
	PoorThreshold float64
}

// Render writes the dashboard page for items.
func Render(w io.Writer, items []model.ReportItem, title string) error {
	return render(w, items, title, time.Now())
}

func render(w io.Writer, items []model.ReportItem, title string, now time.Time) error {
	if items == nil {
		items = []model.ReportItem{}
	}

	// json.Marshal escapes '<', '>' and '&', so the payload cannot close
	// the script element.
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode reports: %w", err)
	}

	page := pageData{
		Title:         title,
		Generated:     now.Local().Format(GeneratedLayout),
		Count:         len(items),
		Data:          template.JS(data),
		GoodThreshold: scoring.GoodThreshold,
		FairThreshold: scoring.FairThreshold,
		PoorThreshold: scoring.PoorThreshold,
	}

	if err := pageTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	return nil
}
