// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Command pbadmin is an operator console for the portal database. It
// talks to the same storage backends as the server, so it works
// whether the portal runs on SQLite or PostgreSQL.
//
// Usage:
//
//	pbadmin create-admin <email> [password] [flags]
//	pbadmin list-apps [area] [flags]
//	pbadmin results [area] [flags]
//
// Flags and environment variables are the server's own (-t, -d, -f).
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"github.com/danielhkuo/pb-portal/auth"
	"github.com/danielhkuo/pb-portal/cliparse"
	"github.com/danielhkuo/pb-portal/models"
	"github.com/danielhkuo/pb-portal/rubric"
	"github.com/danielhkuo/pb-portal/store"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  pbadmin create-admin <email> [password] [flags]")
	fmt.Fprintln(os.Stderr, "  pbadmin list-apps [area] [flags]")
	fmt.Fprintln(os.Stderr, "  pbadmin results [area] [flags]")
	os.Exit(1)
}

func main() {
	// Optional .env, same as the server.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	// Positional arguments come before the shared server flags.
	var positional []string
	for len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		positional = append(positional, args[0])
		args = args[1:]
	}

	// The console never issues session cookies.
	if os.Getenv("SESSION_SECRET") == "" {
		args = append(args, "--session-secret", "pbadmin")
	}

	cfg, err := cliparse.ParseFlags(args)
	if err != nil {
		color.Red("Configuration error: %v", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg)
	if err != nil {
		color.Red("Failed to open %s backend: %v", cfg.DatabaseType, err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()

	switch cmd {
	case "create-admin":
		if len(positional) < 1 {
			usage()
		}
		password := ""
		if len(positional) > 1 {
			password = positional[1]
		}
		createAdmin(ctx, st, positional[0], password)
	case "list-apps":
		area := ""
		if len(positional) > 0 {
			area = positional[0]
		}
		listApps(ctx, st, area)
	case "results":
		area := ""
		if len(positional) > 0 {
			area = positional[0]
		}
		results(ctx, st, area)
	default:
		color.Red("Unknown command %q", cmd)
		usage()
	}
}

func createAdmin(ctx context.Context, st store.Store, email, password string) {
	generated := password == ""
	if generated {
		var err error
		password, err = auth.GenerateID(12)
		if err != nil {
			color.Red("Failed to generate password: %v", err)
			os.Exit(1)
		}
	}

	u, err := st.AdminCreateUser(ctx, models.User{
		Email:       email,
		Role:        models.RoleAdmin,
		DisplayName: "Administrator",
	}, password)
	if err != nil {
		color.Red("Failed to create admin: %v", err)
		os.Exit(1)
	}

	color.Green("Admin account created")
	fmt.Printf("  Email: %s\n", u.Email)
	fmt.Printf("  ID:    %s\n", u.ID)
	if generated {
		fmt.Printf("  Password: %s\n", password)
	}
	color.Yellow("Store the password somewhere safe; it is not shown again.")
}

func listApps(ctx context.Context, st store.Store, area string) {
	apps, err := st.GetApplications(ctx, area)
	if err != nil {
		color.Red("Failed to list applications: %v", err)
		os.Exit(1)
	}

	if area != "" {
		color.Cyan("\nApplications — %s", area)
	} else {
		color.Cyan("\nApplications — all areas")
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Ref", "Project", "Area", "Status", "Requested", "Submitted"})

	for _, app := range apps {
		table.Append([]string{
			app.Ref,
			app.ProjectTitle,
			app.Area,
			app.Status,
			"£" + humanize.CommafWithDigits(app.AmountRequested, 2),
			humanize.Time(app.CreatedAt),
		})
	}
	table.Render()
	fmt.Printf("%d application(s)\n", len(apps))
}

func results(ctx context.Context, st store.Store, area string) {
	apps, err := st.GetApplications(ctx, area)
	if err != nil {
		color.Red("Failed to list applications: %v", err)
		os.Exit(1)
	}
	scores, err := st.GetScores(ctx)
	if err != nil {
		color.Red("Failed to list scores: %v", err)
		os.Exit(1)
	}

	byApp := make(map[string][]models.Score)
	for _, s := range scores {
		byApp[s.AppID] = append(byApp[s.AppID], s)
	}

	type row struct {
		app     models.Application
		average float64
		count   int
	}
	rows := make([]row, 0, len(apps))
	for _, app := range apps {
		var sum float64
		for _, s := range byApp[app.ID] {
			sum += s.Total
		}
		r := row{app: app, count: len(byApp[app.ID])}
		if r.count > 0 {
			r.average = sum / float64(r.count)
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].average > rows[j].average })

	color.Yellow("\nScoring Results (threshold %d)", rubric.DefaultThreshold)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Ref", "Project", "Area", "Scorers", "Average", "Band"})

	for _, r := range rows {
		band := rubric.Band(r.average, rubric.DefaultThreshold)
		table.Append([]string{
			r.app.Ref,
			r.app.ProjectTitle,
			r.app.Area,
			strconv.Itoa(r.count),
			strconv.FormatFloat(r.average, 'f', 1, 64),
			band,
		})
	}
	table.Render()
}
