package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/quoriumlabs/grainfsm/adminpb"
	"github.com/quoriumlabs/grainfsm/internal/fancy"
)

var serverFlag = &cli.StringFlag{
	Name:     "server",
	Usage:    "Admin server address (tcp://host:port or unix:///path/to/socket)",
	Aliases:  []string{"s"},
	Required: true,
	Value:    "localhost:9191",
}

var adminCmd = &cli.Command{
	Name:  "admin",
	Usage: "Query the admin surface for versions, compatibility, migration paths, and saga status",
	Commands: []*cli.Command{
		adminVersionsCmd,
		adminCompatCmd,
		adminPathCmd,
		adminSagaCmd,
	},
}

func formatWireVersion(v adminpb.Version) string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.PreRelease != "" {
		s += "-" + v.PreRelease
	}
	return s
}

// parseWireVersion accepts "MAJOR.MINOR.PATCH" or
// "MAJOR.MINOR.PATCH-PRERELEASE".
func parseWireVersion(s string) (adminpb.Version, error) {
	base, pre, _ := strings.Cut(s, "-")
	parts := strings.Split(base, ".")
	if len(parts) != 3 {
		return adminpb.Version{}, fmt.Errorf("version %q must be MAJOR.MINOR.PATCH", s)
	}
	var nums [3]uint64
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return adminpb.Version{}, fmt.Errorf("version %q: %w", s, err)
		}
		nums[i] = n
	}
	return adminpb.Version{Major: nums[0], Minor: nums[1], Patch: nums[2], PreRelease: pre}, nil
}

var adminVersionsCmd = &cli.Command{
	Name:  "versions",
	Usage: "List every registered version of an entity type",
	Flags: []cli.Flag{
		serverFlag,
		&cli.StringFlag{Name: "entity-type", Aliases: []string{"e"}, Required: true},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		client, conn, err := dialAdmin(cmd.String("server"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer conn.Close()

		entityType := cmd.String("entity-type")
		resp, err := client.GetAvailableVersions(ctx, &adminpb.GetAvailableVersionsRequest{EntityType: entityType})
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		tree := fancy.VersionTree(entityType)
		for _, v := range resp.Versions {
			tree.AddChild(formatWireVersion(v))
		}
		fmt.Println(tree.Tree())
		return nil
	},
}

var adminCompatCmd = &cli.Command{
	Name:  "compat",
	Usage: "Check compatibility between two versions of an entity type",
	Flags: []cli.Flag{
		serverFlag,
		&cli.StringFlag{Name: "entity-type", Aliases: []string{"e"}, Required: true},
		&cli.StringFlag{Name: "from", Required: true},
		&cli.StringFlag{Name: "to", Required: true},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		client, conn, err := dialAdmin(cmd.String("server"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer conn.Close()

		from, err := parseWireVersion(cmd.String("from"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		to, err := parseWireVersion(cmd.String("to"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		entityType := cmd.String("entity-type")
		resp, err := client.CheckCompatibility(ctx, &adminpb.CheckCompatibilityRequest{
			EntityType: entityType,
			From:       from,
			To:         to,
		})
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		summary := fmt.Sprintf("%s -> %s: %s", formatWireVersion(from), formatWireVersion(to), resp.Level)
		tree := fancy.CompatibilityTree(summary)
		for _, reason := range resp.BreakingChangeReasons {
			tree.AddChild(reason)
		}
		fmt.Println(tree.Tree())
		if !resp.Compatible {
			return cli.Exit("versions are not compatible", 1)
		}
		return nil
	},
}

var adminPathCmd = &cli.Command{
	Name:  "path",
	Usage: "Resolve the migration step sequence between two versions",
	Flags: []cli.Flag{
		serverFlag,
		&cli.StringFlag{Name: "entity-type", Aliases: []string{"e"}, Required: true},
		&cli.StringFlag{Name: "from", Required: true},
		&cli.StringFlag{Name: "to", Required: true},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		client, conn, err := dialAdmin(cmd.String("server"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer conn.Close()

		from, err := parseWireVersion(cmd.String("from"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		to, err := parseWireVersion(cmd.String("to"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		entityType := cmd.String("entity-type")
		resp, err := client.GetMigrationPath(ctx, &adminpb.GetMigrationPathRequest{
			EntityType: entityType,
			From:       from,
			To:         to,
		})
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		if !resp.Found {
			return cli.Exit(fmt.Sprintf("no migration path from %s to %s", cmd.String("from"), cmd.String("to")), 1)
		}

		summary := fmt.Sprintf("%s -> %s (%dms)", cmd.String("from"), cmd.String("to"), resp.EstimatedDurationMs)
		tree := fancy.CompatibilityTree(summary)
		for _, name := range resp.StepNames {
			tree.AddChild(name)
		}
		fmt.Println(tree.Tree())
		return nil
	},
}

var adminSagaCmd = &cli.Command{
	Name:  "saga",
	Usage: "Show a tracked saga's current status and step history",
	Flags: []cli.Flag{
		serverFlag,
		&cli.StringFlag{Name: "saga-id", Aliases: []string{"i"}, Required: true},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		client, conn, err := dialAdmin(cmd.String("server"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer conn.Close()

		sagaID := cmd.String("saga-id")
		resp, err := client.GetSagaStatus(ctx, &adminpb.GetSagaStatusRequest{SagaID: sagaID})
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		tree := fancy.SagaTree(fmt.Sprintf("%s [%s] step %d", resp.SagaID, resp.Status, resp.CurrentIndex))
		for _, h := range resp.History {
			tree.AddChild(fmt.Sprintf("%s attempt %d: %s", h.StepName, h.Attempt, h.Result))
		}
		fmt.Println(tree.Tree())
		return nil
	},
}
