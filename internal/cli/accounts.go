package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/spinner/internal/control"
	"github.com/vietddude/spinner/internal/core/domain"
	"github.com/vietddude/spinner/internal/infra/storage/file"
)

var checkIP bool

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List accounts with their proxy and egress IP",
	Run:   runAccounts,
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import initData lines from a file into the configured account source",
	Args:  cobra.ExactArgs(1),
	Run:   runImport,
}

func init() {
	accountsCmd.Flags().BoolVar(&checkIP, "check-ip", true, "resolve each proxy's egress IP")
	accountsCmd.AddCommand(importCmd)
	rootCmd.AddCommand(accountsCmd)
}

func runAccounts(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	app, err := control.NewFromConfig(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = app.Close()
	}()

	infos, err := app.Inspect(ctx, checkIP)
	if err != nil {
		slog.Error("Failed to list accounts", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "#\tNAME\tKEY\tPROXY\tIP")

	for _, info := range infos {
		ip := info.IP
		if info.Err != nil {
			ip = "error: " + info.Err.Error()
		} else if !checkIP {
			ip = "-"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", info.Index+1, info.Name, info.Key, info.Proxy, ip)
	}
	_ = w.Flush()
}

func runImport(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	lines, err := file.ReadLines(args[0])
	if err != nil {
		slog.Error("Failed to read accounts", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	repo, _, closeRepo, err := control.OpenAccounts(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open account source", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = closeRepo()
	}()

	imported := 0
	for i, line := range lines {
		account := &domain.Account{Index: i, InitData: line}
		if err := repo.Save(ctx, account); err != nil {
			slog.Error("Failed to import account", "line", i+1, "error", err)
			continue
		}
		imported++
	}

	fmt.Printf("Imported %d of %d accounts into %s source\n", imported, len(lines), cfg.Accounts.Source)
}
