package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	recorduc "github.com/kailas-cloud/xraysearch/internal/usecase/record"
)

func recordService(cmd *cli.Command) (*recorduc.Service, func(), error) {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return nil, nil, err
	}
	cat, err := rt.catalog()
	if err != nil {
		return nil, nil, err
	}
	return recorduc.New(cat, nil, nil), func() { _ = rt.logger.Sync() }, nil
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one record",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return cli.Exit("usage: xraysearch show <id>", 1)
			}
			svc, done, err := recordService(cmd)
			if err != nil {
				return err
			}
			defer done()

			item, err := svc.Get(ctx, cmd.Args().First())
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, item)
		},
	}
}

func optionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "options",
		Usage: "List body parts, institutions and diagnoses known to the catalog",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, done, err := recordService(cmd)
			if err != nil {
				return err
			}
			defer done()

			opts, err := svc.Options(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Body parts:   %s\n", strings.Join(opts.BodyParts, ", "))
			fmt.Printf("Institutions: %s\n", strings.Join(opts.Institutions, ", "))
			fmt.Printf("Diagnoses:    %s\n", strings.Join(opts.Diagnoses, ", "))
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print catalog statistics",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, done, err := recordService(cmd)
			if err != nil {
				return err
			}
			defer done()

			st, err := svc.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Total scans: %d (last 30 days: %d)\n", st.TotalScans, st.RecentScans30Days)
			printDistribution("By body part", st.BodyPartDistribution)
			printDistribution("By institution", st.InstitutionDistribution)
			return nil
		},
	}
}

func printDistribution(title string, dist map[string]int) {
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if dist[keys[i]] != dist[keys[j]] {
			return dist[keys[i]] > dist[keys[j]]
		}
		return keys[i] < keys[j]
	})
	fmt.Println(title + ":")
	for _, k := range keys {
		fmt.Printf("  %-24s %d\n", k, dist[k])
	}
}
