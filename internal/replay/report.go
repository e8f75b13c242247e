package replay

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/terrasketch/drawtool/internal/annotation"
	"github.com/terrasketch/drawtool/internal/scene/memory"
)

// WriteReport lists every annotation in the store with its geometry as WKT.
func WriteReport(w io.Writer, store *annotation.Store, host *memory.Host) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tID\tTEXT\tTARGET\tGEOMETRY")
	for _, a := range store.List() {
		wkt := ""
		if e, ok := host.Entity(a.ID); ok {
			wkt = e.Geometry.AsText()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.Kind, a.ID, a.Text, a.Target, wkt)
	}
	return tw.Flush()
}
