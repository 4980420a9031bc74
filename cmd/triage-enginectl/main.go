// Command triage-enginectl runs and drives the hospitality security
// triage engine.
//
// Usage:
//
//	triage-enginectl serve --config triage.yaml
//	triage-enginectl submit --title "..." --description "..."
//	triage-enginectl status <incident-id>
//	triage-enginectl resolve <incident-id> <request-id> --approve
//	triage-enginectl search --category guest_access --status resolved
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"
)

// CLI defines the command-line interface, mirroring the teacher's
// single-binary-many-subcommands shape (cmd/hector's CLI struct).
type CLI struct {
	Serve   ServeCmd   `cmd:"" help:"Run the triage engine, accepting incidents until stopped."`
	Submit  SubmitCmd  `cmd:"" help:"Submit one incident to a running engine and wait for a terminal state."`
	Status  StatusCmd  `cmd:"" help:"Show an incident's current status."`
	Resolve ResolveCmd `cmd:"" help:"Approve or reject a pending human-intervention request."`
	Search  SearchCmd  `cmd:"" help:"Search resolved/failed incidents in the persistent store."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("triage-enginectl version %s\n", version)
	return nil
}

func main() {
	var cli CLI
	parser := kong.Parse(&cli,
		kong.Name("triage-enginectl"),
		kong.Description("Hospitality security incident triage engine."),
		kong.UsageOnError(),
	)

	ctx := &runContext{cli: &cli}
	if err := parser.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
