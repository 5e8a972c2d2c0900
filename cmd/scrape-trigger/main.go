package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mengeric/scrape-trigger-go/client"
	"github.com/mengeric/scrape-trigger-go/config"
	"github.com/mengeric/scrape-trigger-go/logging"
	"github.com/mengeric/scrape-trigger-go/scheduler"
	"github.com/mengeric/scrape-trigger-go/server"
	"github.com/mengeric/scrape-trigger-go/trigger"
)

const usage = `usage: scrape-trigger [-config file] <command>

commands:
  run     trigger the remote scraper once and record the outcome
  status  print the last recorded run
  serve   run the daily schedule and the HTTP API until interrupted
`

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	token := flag.String("token", os.Getenv("SCRAPE_TRIGGER_TOKEN"), "bearer token required by POST /run (serve only)")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage); flag.PrintDefaults() }
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, flag.Arg(0), cfg, *token, os.Stdout); err != nil {
		logging.L().Error(ctx, "command failed", "command", flag.Arg(0), "err", err)
		os.Exit(1)
	}
}

// execute 按子命令分派。
func execute(ctx context.Context, cmd string, cfg config.Config, token string, out io.Writer) error {
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	orch := trigger.New(
		trigger.WithJobName(cfg.Job.Name),
		trigger.WithEndpoint(cfg.Trigger.Endpoint),
		trigger.WithCredential(cfg.Trigger.APIKey),
		trigger.WithStore(st),
		trigger.WithClient(client.NewHTTPTriggerClient(cfg.Trigger.Timeout, cfg.Trigger.Header)),
	)

	switch cmd {
	case "run":
		if err := orch.Run(ctx); err != nil {
			return err
		}
		return printStatus(ctx, orch, out)
	case "status":
		return printStatus(ctx, orch, out)
	case "serve":
		return serve(ctx, cfg, orch, token)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printStatus(ctx context.Context, orch *trigger.Orchestrator, out io.Writer) error {
	s, err := orch.Status(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, s.Summary())
	return err
}

// serve 同时运行定时调度与 HTTP 服务，任一退出或收到信号即整体关闭。
func serve(ctx context.Context, cfg config.Config, orch *trigger.Orchestrator, token string) error {
	sched := scheduler.New()
	if cfg.Schedule.Enabled {
		if err := installDaily(sched, cfg, orch); err != nil {
			return err
		}
	}
	srv := server.New(orch, server.Options{Token: token})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		sched.Stop()
		return nil
	})
	g.Go(func() error {
		logging.L().Info(gctx, "http listening", "addr", cfg.ListenAddr())
		return srv.Listen(cfg.ListenAddr())
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// installDaily 以任务名注册每日调度；重复执行只会保留一份。
func installDaily(sched *scheduler.Scheduler, cfg config.Config, orch *trigger.Orchestrator) error {
	daily, err := cfg.DailySchedule()
	if err != nil {
		return err
	}
	err = sched.Register(orch.JobName(), daily, func(ctx context.Context) {
		client.SafeLogErr(orch.Run(ctx), "scheduled run")
	})
	if err != nil {
		return err
	}
	next, _ := sched.NextRun(orch.JobName())
	logging.L().Info(context.Background(), "daily trigger installed",
		"job", orch.JobName(), "hour", daily.Hour, "interval_days", daily.IntervalDays, "next_run", next)
	return nil
}
