package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/nogbrian/agentloop/internal/agentic"
	"github.com/nogbrian/agentloop/internal/config"
	"github.com/nogbrian/agentloop/internal/providers"
	"github.com/nogbrian/agentloop/internal/runstore"
	"github.com/nogbrian/agentloop/internal/tools"
)

func main() {
	// Load .env if present; the provider factory reads the environment.
	_ = godotenv.Load()

	ctx := context.Background()

	args := os.Args[1:]
	if len(args) > 0 && args[0] == "runs" {
		if err := runListCommand(ctx, args[1:]); err != nil {
			log.Fatalf("runs command failed: %v", err)
		}
		return
	}

	if err := runGoalCommand(ctx, args); err != nil {
		log.Fatalf("run failed: %v", err)
	}
}

func runGoalCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("agentloop", flag.ExitOnError)
	goal := fs.String("goal", "", "The goal the agent should accomplish (required)")
	tier := fs.String("tier", "", "Capability tier: fast, smart, creative")
	stream := fs.Bool("stream", false, "Print intermediate events while the run progresses")
	maxTurns := fs.Int("max-turns", 0, "Override the maximum number of model queries")
	maxCost := fs.Float64("max-cost", 0, "Override the spend ceiling in USD")
	timeout := fs.Duration("timeout", 0, "Override the wall-clock budget (e.g. 2m)")
	fsRoot := fs.String("fs-root", "", "Enable filesystem tools rooted at this directory")
	noArchive := fs.Bool("no-archive", false, "Skip persisting the run to the local archive")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *goal == "" {
		fs.Usage()
		return fmt.Errorf("-goal is required")
	}

	mgr, err := config.NewManager()
	if err != nil {
		return err
	}
	userCfg, err := mgr.Load()
	if err != nil {
		return err
	}
	userCfg.ApplyEnv()

	model, err := providers.NewClientFromEnv()
	if err != nil {
		return err
	}

	set := tools.DefaultToolSet()
	if *fsRoot != "" {
		set.Filesystem = true
	}
	registry := tools.NewToolRegistry(*fsRoot, set)

	cfg := agentic.DefaultConfig()
	cfg.Hooks = agentic.DefaultHooks()
	if *tier != "" {
		cfg.Tier = agentic.Tier(*tier)
	} else if userCfg.Tier != "" {
		cfg.Tier = agentic.Tier(userCfg.Tier)
	}
	if *maxTurns > 0 {
		cfg.MaxTurns = *maxTurns
	}
	if *maxCost > 0 {
		cfg.MaxCostUSD = *maxCost
	} else if userCfg.MaxCostUSD > 0 {
		cfg.MaxCostUSD = userCfg.MaxCostUSD
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}

	loop, err := agentic.New(model, registry, cfg)
	if err != nil {
		return err
	}

	var res *agentic.Result
	if *stream {
		res = runStreaming(ctx, loop, *goal)
	} else {
		res, err = loop.Run(ctx, *goal)
		if err != nil {
			return err
		}
	}

	printResult(res)

	if !*noArchive && userCfg.ArchiveRuns {
		if err := archiveRun(ctx, mgr, res); err != nil {
			// The run itself succeeded; archiving is best-effort.
			log.Printf("warning: failed to archive run: %v", err)
		}
	}

	if res.Reason != agentic.ReasonCompleted {
		os.Exit(1)
	}
	return nil
}

func runStreaming(ctx context.Context, loop *agentic.Loop, goal string) *agentic.Result {
	var res *agentic.Result
	for ev := range loop.RunStream(ctx, goal) {
		switch ev.Kind {
		case agentic.EventTurnStart:
			fmt.Printf("--- turn %d ---\n", ev.Turn+1)
		case agentic.EventAssistant:
			fmt.Printf("assistant: %s\n", ev.Text)
		case agentic.EventToolStart:
			fmt.Printf("tool> %s ...\n", ev.ToolName)
		case agentic.EventToolEnd:
			if ev.ToolErr != "" {
				fmt.Printf("tool> %s failed: %s\n", ev.ToolName, ev.ToolErr)
			} else {
				fmt.Printf("tool> %s done\n", ev.ToolName)
			}
		case agentic.EventCompaction:
			fmt.Println("(compacting context)")
		case agentic.EventResult:
			res = ev.Result
		}
	}
	return res
}

func printResult(res *agentic.Result) {
	fmt.Println()
	switch res.Reason {
	case agentic.ReasonCompleted:
		fmt.Println(res.FinalText)
	default:
		fmt.Printf("run ended without an answer: %s\n", res.Reason)
		if res.Err != nil {
			fmt.Printf("error: %v\n", res.Err)
		}
	}
	fmt.Printf("\n[%s] turns=%d tokens=%d cost=$%.4f elapsed=%s\n",
		res.RunID, res.Turns, res.Totals.TotalTokens, res.Totals.CostUSD,
		res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
}

func archiveRun(ctx context.Context, mgr *config.Manager, res *agentic.Result) error {
	store, err := runstore.NewStore(ctx, mgr.GetDataPath("runs.db"))
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(ctx, res)
}

func runListCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum number of runs to list")
	show := fs.String("show", "", "Print the full transcript of one run by ID")

	if err := fs.Parse(args); err != nil {
		return err
	}

	mgr, err := config.NewManager()
	if err != nil {
		return err
	}

	store, err := runstore.NewStore(ctx, mgr.GetDataPath("runs.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	if *show != "" {
		res, err := store.Load(ctx, *show)
		if err != nil {
			return err
		}
		fmt.Printf("run %s (%s)\ngoal: %s\n\n", res.RunID, res.Reason, res.Goal)
		for _, t := range res.Transcript {
			switch t.Kind {
			case agentic.TurnToolCall:
				fmt.Printf("[%s] %s %v\n", t.Kind, t.Name, t.Args)
			default:
				fmt.Printf("[%s] %s\n", t.Kind, t.Content)
			}
		}
		return nil
	}

	runs, err := store.List(ctx, *limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no archived runs")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %-20s  turns=%-3d  $%.4f  %s\n",
			r.StartedAt.Format("2006-01-02 15:04"), r.Reason, r.Turns, r.CostUSD, r.Goal)
	}
	return nil
}
