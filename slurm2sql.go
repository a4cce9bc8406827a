// `slurm2sql` -- Import Slurm accounting data into a SQL database
//
// Run `slurm2sql help` for brief help.

package main

import (
	"flag"
	"fmt"
	"os"

	"slurm2sql/cmd"
	"slurm2sql/cmd/daemon"
	"slurm2sql/cmd/sync"
)

// v0.1.0 - sync and daemon verbs, sqlite and postgres backends

const Slurm2sqlVersion = "0.1.0"

func main() {
	command := commandLine()
	err := command.Perform(os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func commandLine() cmd.Command {
	out := os.Stderr

	if len(os.Args) < 2 {
		fmt.Fprintf(out, "Required operation missing, try `slurm2sql help`\n")
		os.Exit(2)
	}

	var command cmd.Command
	switch verb := os.Args[1]; verb {
	case "help", "-h":
		fmt.Fprintf(out, "Usage: %s command [options]\n", os.Args[0])
		fmt.Fprintf(out, "Commands:\n")
		fmt.Fprintf(out, "  sync    - load accounting records into the database, once\n")
		fmt.Fprintf(out, "  daemon  - run continuous ingestion, from sacct or Kafka\n")
		fmt.Fprintf(out, "  version - print information about the program\n")
		fmt.Fprintf(out, "  help    - print this message\n")
		fmt.Fprintf(out, "Each command accepts -h to further explain options.\n")
		os.Exit(0)
	case "sync":
		command = new(sync.SyncCommand)
	case "daemon":
		command = new(daemon.DaemonCommand)
	case "version":
		fmt.Printf("slurm2sql version(%s)\n", Slurm2sqlVersion)
		os.Exit(0)
	default:
		fmt.Fprintf(out, "Unknown operation `%s`, try `slurm2sql help`\n", verb)
		os.Exit(2)
	}

	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	command.Add(fs)
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: %s %s [options]\n\n", os.Args[0], os.Args[1])
		for _, s := range command.Summary() {
			fmt.Fprintln(out, " ", s)
		}
		fmt.Fprintln(out, "\nOptions:")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[2:])

	err := command.Validate()
	if err != nil {
		fmt.Fprintf(out, "Bad arguments, try -h\n%v\n", err.Error())
		os.Exit(2)
	}

	return command
}
