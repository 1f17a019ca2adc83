// Command gurgler publishes frontend build artifacts to object storage
// and switches which published build an environment serves by writing a
// release pointer to the parameter store.
//
// Usage:
//
//	gurgler [-config gurgler.toml] configure <commitId> <branchName>
//	gurgler [-config gurgler.toml] deploy [-dry-run]
//	gurgler [-config gurgler.toml] release [-environment key] [-commit partialId]
//	gurgler [-config gurgler.toml] delete-old-deploys
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/DripEmail/gurgler/internal/build"
	"github.com/DripEmail/gurgler/internal/catalog"
	"github.com/DripEmail/gurgler/internal/config"
	"github.com/DripEmail/gurgler/internal/gitmeta"
	"github.com/DripEmail/gurgler/internal/notify"
	"github.com/DripEmail/gurgler/internal/params"
	"github.com/DripEmail/gurgler/internal/publish"
	"github.com/DripEmail/gurgler/internal/release"
	"github.com/DripEmail/gurgler/internal/storage"
	"github.com/DripEmail/gurgler/internal/sweep"
	"github.com/DripEmail/gurgler/internal/ui"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("gurgler", flag.ExitOnError)
	configPath := flags.String("config", "gurgler.toml", "path to the configuration file")
	flags.Usage = usage(flags)
	_ = flags.Parse(args)

	if flags.NArg() == 0 {
		flags.Usage()
		return 1
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("cannot load configuration", "error", err)
		return 1
	}
	if violations := cfg.Validate(); len(violations) > 0 {
		for _, v := range violations {
			log.Error("invalid configuration", "field", v.Field, "problem", v.Message)
		}
		return 1
	}

	ctx := context.Background()
	cmd, rest := flags.Arg(0), flags.Args()[1:]

	switch cmd {
	case "configure":
		return runConfigure(cfg, rest, log)
	case "deploy":
		return runDeploy(ctx, cfg, rest, log)
	case "release":
		return runRelease(ctx, cfg, rest, log)
	case "delete-old-deploys":
		return runSweep(ctx, cfg, log)
	default:
		fmt.Fprintf(os.Stderr, "gurgler: unknown command %q\n\n", cmd)
		flags.Usage()
		return 1
	}
}

func usage(flags *flag.FlagSet) func() {
	return func() {
		fmt.Fprintln(os.Stderr, "usage: gurgler [flags] <command> [command flags]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "commands:")
		fmt.Fprintln(os.Stderr, "  configure <commitId> <branchName>   derive and save the build manifest")
		fmt.Fprintln(os.Stderr, "  deploy [-dry-run]                   upload build output to all buckets")
		fmt.Fprintln(os.Stderr, "  release [-environment] [-commit]    point an environment at a published build")
		fmt.Fprintln(os.Stderr, "  delete-old-deploys                  remove stale, unreferenced artifacts")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "flags:")
		flags.PrintDefaults()
	}
}

func runConfigure(cfg *config.Config, args []string, log *slog.Logger) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: gurgler configure <commitId> <branchName>")
		return 1
	}
	commitID, branchName := args[0], args[1]
	if commitID == "" || branchName == "" {
		log.Error("commit id and branch name must be non-empty")
		return 1
	}

	m := build.New(commitID, branchName, cfg.BasePath)
	if err := m.Save(build.ManifestFileName); err != nil {
		log.Error("cannot write build manifest", "error", err)
		return 1
	}

	fmt.Printf("Configured build %s (%s on %s), prefix %s.\n",
		m.ShortHash(), build.Short(commitID), branchName, m.StoragePrefix)
	return 0
}

func runDeploy(ctx context.Context, cfg *config.Config, args []string, log *slog.Logger) int {
	flags := flag.NewFlagSet("deploy", flag.ExitOnError)
	dryRun := flags.Bool("dry-run", false, "report what would be uploaded without writing")
	_ = flags.Parse(args)

	m, err := build.Load(build.ManifestFileName)
	if err != nil {
		log.Error("cannot load build manifest", "error", err)
		return 1
	}

	files, err := cfg.ExpandGlobs()
	if err != nil {
		log.Error("cannot expand file globs", "error", err)
		return 1
	}
	if len(files) == 0 {
		log.Error("file globs matched nothing; is the build output present?")
		return 1
	}

	store, err := storage.NewFromDefaults(ctx)
	if err != nil {
		log.Error("cannot initialize storage client", "error", err)
		return 1
	}

	report, err := publish.New(store, log).Publish(ctx, bucketList(cfg), m, files, *dryRun)
	if err != nil {
		log.Error("publish failed", "error", err)
		return 1
	}

	if report.DryRun {
		fmt.Printf("Dry run: %d objects would be uploaded for build %s.\n", len(report.Uploads), m.ShortHash())
		return 0
	}
	fmt.Printf("Uploaded %d objects for build %s.\n", len(report.Uploads), m.ShortHash())
	if !report.OK() {
		for _, f := range report.Failures {
			log.Error("upload failed", "bucket", f.Bucket, "key", f.Key, "error", f.Err)
		}
		return 1
	}
	return 0
}

func runRelease(ctx context.Context, cfg *config.Config, args []string, log *slog.Logger) int {
	flags := flag.NewFlagSet("release", flag.ExitOnError)
	envKey := flags.String("environment", "", "environment key to release to")
	partial := flags.String("commit", "", "partial revision id of the artifact to release")
	_ = flags.Parse(args)

	store, err := storage.NewFromDefaults(ctx)
	if err != nil {
		log.Error("cannot initialize storage client", "error", err)
		return 1
	}
	paramStore, err := params.NewSSMFromDefaults(ctx)
	if err != nil {
		log.Error("cannot initialize parameter store client", "error", err)
		return 1
	}

	var invoker release.Invoker
	if len(cfg.ActivationFunctions) > 0 {
		lambdaInvoker, err := release.NewLambdaInvokerFromDefaults(ctx)
		if err != nil {
			log.Error("cannot initialize activation client", "error", err)
			return 1
		}
		invoker = lambdaInvoker
	}

	var notifier notify.Notifier
	if cfg.NotifyEnabled() {
		notifier = notify.NewWebhook(cfg.Notify.WebhookURL)
	}

	// Commit lookups degrade gracefully when the tool runs outside a
	// checkout of the repository.
	var git gitmeta.Resolver
	if repo, err := gitmeta.Open("."); err != nil {
		log.Warn("git repository unavailable, listings will be degraded", "error", err)
	} else {
		git = repo
	}

	term := ui.New(os.Stdin, os.Stdout)
	cat := catalog.New(store, git, log)
	selector := release.NewSelector(cfg, paramStore, term)
	activator := release.NewActivator(cfg, paramStore, invoker, notifier, operator(), os.Stdout, log)
	flow := release.NewFlow(cfg, cat, selector, activator, os.Stdout)

	if err := flow.Run(ctx, *envKey, *partial); err != nil {
		if release.IsCancelled(err) {
			fmt.Println("No release performed.")
			return 0
		}
		log.Error("release failed", "error", err)
		return 1
	}
	return 0
}

func runSweep(ctx context.Context, cfg *config.Config, log *slog.Logger) int {
	store, err := storage.NewFromDefaults(ctx)
	if err != nil {
		log.Error("cannot initialize storage client", "error", err)
		return 1
	}
	paramStore, err := params.NewSSMFromDefaults(ctx)
	if err != nil {
		log.Error("cannot initialize parameter store client", "error", err)
		return 1
	}

	var git gitmeta.Resolver
	if repo, err := gitmeta.Open("."); err != nil {
		log.Warn("git repository unavailable, listings will be degraded", "error", err)
	} else {
		git = repo
	}

	term := ui.New(os.Stdin, os.Stdout)
	cat := catalog.New(store, git, log)
	sweeper := sweep.New(cfg, cat, store, paramStore, term, log)

	failed := false
	for _, serverClass := range sweepClasses(cfg) {
		report, err := sweeper.Sweep(ctx, serverClass)
		if err != nil {
			log.Error("sweep failed", "serverClass", serverClass, "error", err)
			failed = true
			continue
		}
		if report.Skipped {
			fmt.Printf("Skipped %q.\n", serverClass)
			continue
		}
		fmt.Printf("Swept %q: %d artifacts scanned, %d objects deleted.\n",
			serverClass, report.Total, report.DeletedObjects)
	}
	if failed {
		return 1
	}
	return 0
}

// sweepClasses returns one server class per distinct bucket, in server
// class order, so classes sharing a bucket are not scanned (and the
// operator not prompted) twice.
func sweepClasses(cfg *config.Config) []string {
	seen := map[string]bool{}
	var classes []string
	for _, class := range cfg.ServerClasses() {
		bucket := cfg.Buckets[class]
		if !seen[bucket] {
			seen[bucket] = true
			classes = append(classes, class)
		}
	}
	return classes
}

// bucketList returns the configured buckets, deduplicated, in server
// class order.
func bucketList(cfg *config.Config) []string {
	seen := map[string]bool{}
	var buckets []string
	for _, class := range cfg.ServerClasses() {
		bucket := cfg.Buckets[class]
		if !seen[bucket] {
			seen[bucket] = true
			buckets = append(buckets, bucket)
		}
	}
	return buckets
}

// operator returns the identity shown in release notifications. CI sets
// GURGLER_OPERATOR; interactive use falls back to the login name.
func operator() string {
	if op := os.Getenv("GURGLER_OPERATOR"); op != "" {
		return op
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "unknown operator"
}
