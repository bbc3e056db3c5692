package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"depinledger/core/license"
	"depinledger/core/period"
	"depinledger/native/rewards"
	"depinledger/native/vesting"
)

func writeResult(stdout, stderr io.Writer, v interface{}) int {
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(stderr, "Error: encode output: %v\n", err)
		return 1
	}
	return 0
}

func runPeriod(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("period", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		at    string
		unix  int64
		start int
	)
	fs.StringVar(&at, "at", "", "RFC3339 timestamp to convert (default now)")
	fs.Int64Var(&unix, "unix", 0, "unix timestamp to convert")
	fs.IntVar(&start, "start", -1, "print the start of this period instead")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if start >= 0 {
		if start > 0xFFFF {
			fmt.Fprintln(stderr, "Error: period exceeds 65535")
			return 1
		}
		begin := period.Start(uint16(start))
		return writeResult(stdout, stderr, map[string]interface{}{
			"period":     start,
			"start":      begin.Format(time.RFC3339),
			"startUnix":  begin.Unix(),
			"monthIndex": period.MonthIndex(uint16(start)),
		})
	}

	ts := cliNow().UTC()
	switch {
	case strings.TrimSpace(at) != "":
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(at))
		if err != nil {
			fmt.Fprintf(stderr, "Error: invalid --at: %v\n", err)
			return 1
		}
		ts = parsed
	case unix != 0:
		ts = time.Unix(unix, 0).UTC()
	}
	p, err := period.FromTime(ts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return writeResult(stdout, stderr, map[string]interface{}{
		"time":       ts.Format(time.RFC3339),
		"period":     p,
		"monthIndex": period.MonthIndex(p),
	})
}

func runReward(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("reward", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var p uint
	fs.UintVar(&p, "period", 0, "period number")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if p > 0xFFFF {
		fmt.Fprintln(stderr, "Error: period exceeds 65535")
		return 1
	}
	return writeResult(stdout, stderr, map[string]interface{}{
		"period":           p,
		"monthIndex":       period.MonthIndex(uint16(p)),
		"rewardPerChecker": rewards.RewardPerChecker(uint16(p)),
	})
}

func runBrand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("brand", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		asset    string
		tree     string
		nonce    uint64
		p        uint
		checkers uint
	)
	fs.StringVar(&asset, "asset", "", "worker license asset id (base58)")
	fs.StringVar(&tree, "tree", "", "worker tree, used with --nonce instead of --asset")
	fs.Uint64Var(&nonce, "nonce", 0, "worker license nonce")
	fs.UintVar(&p, "period", 0, "settled period")
	fs.UintVar(&checkers, "checkers", 0, "active checker count for the period")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if p > 0xFFFF {
		fmt.Fprintln(stderr, "Error: period exceeds 65535")
		return 1
	}
	if checkers == 0 || checkers > 0xFFFF_FFFF {
		fmt.Fprintln(stderr, "Error: --checkers must be between 1 and 4294967295")
		return 1
	}
	key, err := resolveAsset(asset, tree, nonce)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	indices, err := rewards.Assignment(key[:], uint16(p), uint32(checkers))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return writeResult(stdout, stderr, map[string]interface{}{
		"asset":   key.String(),
		"period":  p,
		"slots":   len(indices),
		"indices": indices,
	})
}

func resolveAsset(asset, tree string, nonce uint64) (solana.PublicKey, error) {
	if strings.TrimSpace(asset) != "" {
		key, err := solana.PublicKeyFromBase58(strings.TrimSpace(asset))
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("invalid --asset: %w", err)
		}
		return key, nil
	}
	if strings.TrimSpace(tree) == "" {
		return solana.PublicKey{}, fmt.Errorf("--asset or --tree is required")
	}
	treeKey, err := solana.PublicKeyFromBase58(strings.TrimSpace(tree))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid --tree: %w", err)
	}
	return license.AssetID(treeKey, nonce)
}

func runAsset(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("asset", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		tree  string
		nonce uint64
	)
	fs.StringVar(&tree, "tree", "", "license tree (base58)")
	fs.Uint64Var(&nonce, "nonce", 0, "leaf nonce")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(tree) == "" {
		fmt.Fprintln(stderr, "Error: --tree is required")
		return 1
	}
	key, err := resolveAsset("", tree, nonce)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return writeResult(stdout, stderr, map[string]interface{}{
		"tree":  tree,
		"nonce": nonce,
		"asset": key.String(),
	})
}

func runPenalty(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("penalty", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		lockPeriod   uint
		unlockPeriod uint
		current      int
		amount       uint64
	)
	fs.UintVar(&lockPeriod, "lock", 0, "lock period")
	fs.UintVar(&unlockPeriod, "unlock", 0, "unlock period")
	fs.IntVar(&current, "current", -1, "current period (default: now)")
	fs.Uint64Var(&amount, "amount", 0, "locked amount")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if lockPeriod > 0xFFFF || unlockPeriod > 0xFFFF || current > 0xFFFF {
		fmt.Fprintln(stderr, "Error: periods must not exceed 65535")
		return 1
	}
	now := current
	if now < 0 {
		p, err := period.FromTime(cliNow())
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		now = int(p)
	}
	rate := vesting.PenaltyRateBps(uint16(lockPeriod), uint16(now), uint16(unlockPeriod))
	penalty := vesting.PenaltyAmount(amount, rate)
	return writeResult(stdout, stderr, map[string]interface{}{
		"lockPeriod":   lockPeriod,
		"unlockPeriod": unlockPeriod,
		"current":      now,
		"penaltyBps":   rate,
		"penalty":      penalty,
		"payout":       amount - penalty,
	})
}
