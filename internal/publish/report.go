package publish

import (
	"fmt"
	"io"
	"strconv"

	"github.com/yourorg/confluencectl/internal/render"
)

// WriteReport renders r in the requested format.
func WriteReport(w io.Writer, r Report, format render.Format) error {
	switch format {
	case render.FormatJSON:
		return render.JSON(w, r)
	case render.FormatTable:
		rows := make([][]string, 0, len(r.Attachments)+len(r.Missing))
		for _, a := range r.Attachments {
			rows = append(rows, []string{a.Name, a.Action, a.ID, a.Path, a.Error})
		}
		for _, name := range r.Missing {
			rows = append(rows, []string{name, "missing", "", "", ""})
		}
		if err := render.Table(w, []string{"NAME", "ACTION", "ID", "PATH", "ERROR"}, rows); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "\nPage URL: %s\n", r.PageURL)
		return err
	default:
		if len(r.Missing) > 0 {
			if err := render.List(w, "Attachments not found locally:", r.Missing, 0); err != nil {
				return err
			}
		}
		return render.Summary(w, []render.Field{
			{Label: "Page", Value: fmt.Sprintf("%s (%s, v%d)", r.PageID, r.Action, r.Version)},
			{Label: "Uploaded", Value: strconv.Itoa(r.Uploaded)},
			{Label: "Updated", Value: strconv.Itoa(r.Updated)},
			{Label: "Missing", Value: strconv.Itoa(len(r.Missing))},
			{Label: "Failed", Value: strconv.Itoa(r.Failed)},
			{Label: "Page URL", Value: r.PageURL},
		})
	}
}
