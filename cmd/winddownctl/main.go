// Package main is the winddownctl maintenance CLI. It opens the app's
// local database and lets you inspect or set the sleep onset preference,
// seed and list tasks, and wipe all local data.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/winddown-app/winddown"
	"github.com/winddown-app/winddown/cache"
	"github.com/winddown-app/winddown/internal/config"
	"github.com/winddown-app/winddown/storage"
)

const usage = `usage: winddownctl [-config FILE] COMMAND [ARGS]

Commands:
  show                      print the sleep onset preference
  set-onset MINUTES         set the sleep onset preference (clamped to 1..60)
  add-task TITLE [DUE]      add a task, DUE in YYYY-MM-DD
  tasks                     list tasks
  due [DATE]                list incomplete tasks due by DATE (default today)
  clear-all                 wipe settings, tasks and recurring tasks
`

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fatalf("loading config: %v", err)
		}
		cfg = loaded
	}

	logger := winddown.NewDefaultLogger()
	logger.SetLevel(logLevel(cfg.Logging.Level))

	store, err := openStorage(cfg)
	if err != nil {
		fatalf("opening storage: %v", err)
	}

	opts := []winddown.Option{
		winddown.WithStorage(store),
		winddown.WithLogger(logger),
	}
	if cacher, err := openCache(cfg); err != nil {
		fatalf("opening cache: %v", err)
	} else if cacher != nil {
		opts = append(opts, winddown.WithCache(cacher))
	}

	mgr := winddown.New(opts...)
	ctx := context.Background()

	if err := mgr.Init(ctx); err != nil {
		fatalf("initializing: %v", err)
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: close: %v\n", err)
		}
	}()

	if err := run(ctx, mgr, store, flag.Args()); err != nil {
		fatalf("%v", err)
	}
}

func run(ctx context.Context, mgr *winddown.Manager, store winddown.Storage, args []string) error {
	switch cmd := args[0]; cmd {
	case "show":
		minutes := mgr.Prefs().SleepOnsetMinutes()
		fmt.Printf("sleep onset: %s minutes\n", color.New(color.Bold).Sprint(minutes))
		return nil

	case "set-onset":
		if len(args) < 2 {
			return fmt.Errorf("set-onset requires MINUTES")
		}
		minutes, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid minutes %q", args[1])
		}
		mgr.Prefs().SetSleepOnsetMinutes(minutes)
		mgr.Prefs().Flush()
		fmt.Printf("sleep onset: %s minutes\n", color.New(color.Bold).Sprint(mgr.Prefs().SleepOnsetMinutes()))
		return nil

	case "add-task":
		if len(args) < 2 {
			return fmt.Errorf("add-task requires TITLE")
		}
		task := &winddown.Task{
			ID:        uuid.NewString(),
			Title:     args[1],
			CreatedAt: time.Now(),
		}
		if len(args) > 2 {
			due, err := time.ParseInLocation("2006-01-02", args[2], time.Local)
			if err != nil {
				return fmt.Errorf("invalid due date %q (want YYYY-MM-DD)", args[2])
			}
			task.DueAt = due
		}
		if err := store.PutTask(ctx, task); err != nil {
			return err
		}
		fmt.Printf("added task %s\n", task.ID)
		return nil

	case "tasks":
		tasks, err := store.ListTasks(ctx)
		if err != nil {
			return err
		}
		printTasks(tasks)
		return nil

	case "due":
		due := time.Now()
		if len(args) > 1 {
			parsed, err := time.ParseInLocation("2006-01-02", args[1], time.Local)
			if err != nil {
				return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", args[1])
			}
			due = parsed.Add(24*time.Hour - time.Nanosecond)
		}
		tasks, err := store.ListTasksDueBy(ctx, due)
		if err != nil {
			return err
		}
		printTasks(tasks)
		return nil

	case "clear-all":
		if err := mgr.ClearAllData(ctx); err != nil {
			return err
		}
		color.Green("all local data cleared")
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printTasks(tasks []*winddown.Task) {
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return
	}
	for _, task := range tasks {
		marker := " "
		if task.Completed {
			marker = color.GreenString("x")
		}
		line := fmt.Sprintf("[%s] %s", marker, task.Title)
		if !task.DueAt.IsZero() {
			line += color.New(color.Faint).Sprintf("  (due %s)", task.DueAt.Format("2006-01-02"))
		}
		fmt.Println(line)
	}
}

func openStorage(cfg *config.Config) (winddown.Storage, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		return storage.NewSQLiteStore(cfg.Storage.Path)
	case "postgres":
		return storage.NewPostgresStore(cfg.Storage.DSN)
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func openCache(cfg *config.Config) (winddown.Cache, error) {
	switch cfg.Cache.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return cache.NewMemoryCache(), nil
	case "redis":
		return cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

func logLevel(level string) winddown.LogLevel {
	switch level {
	case "debug":
		return winddown.LogLevelDebug
	case "warn":
		return winddown.LogLevelWarn
	case "error":
		return winddown.LogLevelError
	default:
		return winddown.LogLevelInfo
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("error:"), fmt.Sprintf(format, args...))
	os.Exit(1)
}
