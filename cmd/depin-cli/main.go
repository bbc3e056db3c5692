package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// cliNow is swapped by tests.
var cliNow = time.Now

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "period":
		return runPeriod(args[1:], stdout, stderr)
	case "reward":
		return runReward(args[1:], stdout, stderr)
	case "brand":
		return runBrand(args[1:], stdout, stderr)
	case "asset":
		return runAsset(args[1:], stdout, stderr)
	case "penalty":
		return runPenalty(args[1:], stdout, stderr)
	case "keygen":
		return runKeygen(args[1:], stdout, stderr)
	case "sign":
		return runSign(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	builder := &strings.Builder{}
	fmt.Fprintln(builder, "Usage: depin-cli <command> [options]")
	fmt.Fprintln(builder, "Commands:")
	fmt.Fprintln(builder, "  period   Convert between timestamps and period numbers")
	fmt.Fprintln(builder, "  reward   Show the per-checker reward for a period")
	fmt.Fprintln(builder, "  brand    Recompute the checker indices sampled for a submission")
	fmt.Fprintln(builder, "  asset    Derive a license asset id from its tree and nonce")
	fmt.Fprintln(builder, "  penalty  Preview the early unlock penalty of a lock")
	fmt.Fprintln(builder, "  keygen   Generate a signing key")
	fmt.Fprintln(builder, "  sign     Sign a request payload and optionally post it to depind")
	return builder.String()
}
