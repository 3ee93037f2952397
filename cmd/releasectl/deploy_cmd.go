package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/haatos/simple-release/internal/release"
	"github.com/haatos/simple-release/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type releaser interface {
	Run(ctx context.Context, t release.Trigger, reporter release.Reporter) (*release.RevisionRecord, error)
}

type deployOpts struct {
	*rootOpts
	repository   string
	tag          string
	path         string
	manifest     string
	appsDir      string
	keyFile      string
	keyUser      string
	maxWait      time.Duration
	pollInterval time.Duration
}

func newDeploy(parent *rootOpts) *deployOpts {
	return &deployOpts{rootOpts: parent}
}

func (opts *deployOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Check out a tag, verify it in a shadow environment and promote it",
		Example: "  releasectl deploy --repo acme/shop --tag v1.2.0 --path apps/shop\n" +
			"  releasectl deploy --repo acme/shop --tag v1.2.0 --path /srv/shop --manifest compose.prod.yml --key ~/.ssh/deploy",
		RunE: opts.RunE,
	}
	cmd.Flags().StringVarP(&opts.repository, "repo", "r", "", "repository as owner/name or a clone URL")
	cmd.Flags().StringVarP(&opts.tag, "tag", "t", "", "semantic version tag to release")
	cmd.Flags().StringVarP(&opts.path, "path", "p", "", "working directory of the deployment; apps/ is resolved under --apps-dir")
	cmd.Flags().StringVarP(&opts.manifest, "manifest", "f", release.DefaultManifestFile, "compose manifest relative to --path")
	cmd.Flags().StringVar(&opts.appsDir, "apps-dir", "./apps", "directory the apps/ prefix resolves to")
	cmd.Flags().StringVar(&opts.keyFile, "key", "", "SSH private key used when the anonymous clone fails")
	cmd.Flags().StringVar(&opts.keyUser, "key-user", "git", "SSH user for --key")
	cmd.Flags().DurationVar(&opts.maxWait, "max-wait", release.DefaultMaxWait, "how long to wait for the shadow environment to become healthy")
	cmd.Flags().DurationVar(&opts.pollInterval, "poll", release.DefaultPollInterval, "interval between health checks")
	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("tag")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func (opts *deployOpts) RunE(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return errorWantedNoArgs
	}
	tag, err := service.ValidateTag(opts.tag)
	if err != nil {
		return newUsageError(fmt.Sprintf("--tag %q: %v", opts.tag, err))
	}
	config, err := release.ReleaseConfig{
		WorkingPath:  opts.path,
		ManifestFile: opts.manifest,
	}.Normalize(opts.appsDir)
	if err != nil {
		return newUsageError(err.Error())
	}

	trigger := release.Trigger{Repository: opts.repository, Tag: tag, Config: config}
	if opts.keyFile != "" {
		key, err := os.ReadFile(opts.keyFile)
		if err != nil {
			return err
		}
		trigger.Auth = &release.Auth{Username: opts.keyUser, SSHPrivateKey: key}
	}

	reporter := &consoleReporter{out: opts.out, color: opts.color}
	// the run is never cancelled so that a failure can always be rolled back
	rec, err := opts.newReleaser(opts).Run(context.Background(), trigger, reporter)
	if err != nil {
		return errors.New(release.Message(err))
	}
	if rec != nil && rec.PreviousVersionTag != "" {
		fmt.Fprintf(opts.out, "released %s %s (was %s)\n", opts.repository, tag, rec.PreviousVersionTag)
	} else {
		fmt.Fprintf(opts.out, "released %s %s\n", opts.repository, tag)
	}
	return nil
}

func newPipeline(opts *deployOpts) releaser {
	log := opts.log
	runner := release.NewExecRunner(log.Named("exec"), nil)
	envs := release.NewEnvironments(runner, log.Named("compose"))
	return release.NewPipeline(
		release.NewRevisions(runner, release.GoGitCloner{}, release.DefaultVersion(), log.Named("git")),
		envs,
		release.NewMonitor(envs, log.Named("health")),
		release.NewGate(),
		release.PipelineOptions{MaxWait: opts.maxWait, PollInterval: opts.pollInterval},
		log.With(zap.String("source", "releasectl")),
	)
}
