package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/kailas-cloud/xraysearch/internal/domain/search/filter"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/result"
	searchuc "github.com/kailas-cloud/xraysearch/internal/usecase/search"
)

// filterFlags maps CLI flags onto filter fields.
var filterFlags = []struct {
	flag  string
	field filter.Field
}{
	{"q", filter.FieldSearch},
	{"body-part", filter.FieldBodyPart},
	{"diagnosis", filter.FieldDiagnosis},
	{"institution", filter.FieldInstitution},
	{"from", filter.FieldDateFrom},
	{"to", filter.FieldDateTo},
	{"tags", filter.FieldTags},
}

func searchCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.IntFlag{Name: "page", Usage: "Structured result page"},
		&cli.BoolFlag{Name: "json", Usage: "Print the outcome as JSON"},
	}
	for _, f := range filterFlags {
		flags = append(flags, &cli.StringFlag{
			Name:  f.flag,
			Usage: "Filter by " + strings.ToLower(f.field.Label()),
		})
	}

	return &cli.Command{
		Name:      "search",
		Usage:     "Run one search from a location string and optional filter flags",
		ArgsUsage: "[location]",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()

			cat, err := rt.catalog()
			if err != nil {
				return err
			}
			orch := searchuc.New(cat, cat, nil,
				searchuc.WithTimeout(rt.cfg.Catalog.SearchTimeout()),
				searchuc.WithLogger(rt.logger),
			)
			defer orch.Close()

			var p filter.Partial
			for _, f := range filterFlags {
				if cmd.IsSet(f.flag) {
					p = p.Set(f.field, cmd.String(f.flag))
				}
			}
			if cmd.IsSet("page") {
				p = p.WithPage(cmd.Int("page"))
			}

			out, err := runSearch(ctx, orch, cmd.Args().First(), p, rt.cfg.Catalog.SearchTimeout()+time.Second)
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return printJSON(os.Stdout, map[string]any{
					"location": orch.Location(),
					"outcome":  out,
				})
			}
			printOutcome(os.Stdout, orch.Location(), out)
			if out.Status == result.StatusFailed {
				return cli.Exit("", 2)
			}
			return nil
		},
	}
}

// runSearch starts a session at location with p applied and waits for the
// first settled outcome.
func runSearch(
	ctx context.Context, orch *searchuc.Orchestrator, location string, p filter.Partial, wait time.Duration,
) (result.Outcome, error) {
	ch, unsubscribe := orch.Subscribe()
	defer unsubscribe()

	tok := orch.StartWith(ctx, location, p)

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	for {
		select {
		case out, ok := <-ch:
			if !ok {
				return result.Outcome{}, fmt.Errorf("session closed")
			}
			if out.Status != result.StatusLoading && out.Token == uint64(tok) {
				return out, nil
			}
		case <-ctx.Done():
			return result.Outcome{}, fmt.Errorf("waiting for search: %w", ctx.Err())
		}
	}
}

func printOutcome(w io.Writer, location string, out result.Outcome) {
	fmt.Fprintf(w, "location: ?%s\n", location)
	switch out.Status {
	case result.StatusFailed:
		fmt.Fprintf(w, "search failed (%s via %s): %s\n", out.Error, out.Source, out.Message)
		return
	case result.StatusLoading:
		fmt.Fprintln(w, "still loading")
		return
	}

	elapsed := ""
	if out.ElapsedMs != nil {
		elapsed = fmt.Sprintf(" in %dms", *out.ElapsedMs)
	}
	fmt.Fprintf(w, "%d result(s) from %s%s\n\n", out.TotalCount, out.Source, elapsed)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATIENT\tBODY PART\tSCAN DATE\tINSTITUTION\tDIAGNOSIS\tTAGS")
	for _, it := range out.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.PatientID, it.BodyPart, it.ScanDate, it.Institution, it.Diagnosis,
			strings.Join(it.Tags, ","))
	}
	_ = tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
