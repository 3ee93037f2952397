package main

import (
	"io"
	"os"
	"strings"

	"github.com/haatos/simple-release/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

type rootOpts struct {
	debug bool
	color bool
	out   io.Writer
	log   *zap.Logger

	newReleaser func(opts *deployOpts) releaser
}

func newRoot() *rootOpts {
	return &rootOpts{newReleaser: newPipeline}
}

var rootLongHelp = strings.TrimSpace(`
releasectl deploys a tagged release of a repository into a running docker
compose service on this host, without the simple-release server.

Workflow:
  releasectl shadow --manifest apps/shop/docker-compose.yml          # Preview the shadow manifest.
  releasectl deploy --repo acme/shop --tag v1.2.0 --path apps/shop   # Release v1.2.0.
`)

func (opts *rootOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "releasectl",
		Long:              rootLongHelp,
		SilenceUsage:      true,
		PersistentPreRunE: opts.PersistentPreRunE,
	}
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log every command that is run")

	cmd.AddCommand(
		newDeploy(opts).Command(),
		newShadow(opts).Command(),
	)
	return cmd
}

func (opts *rootOpts) PersistentPreRunE(cmd *cobra.Command, _ []string) error {
	opts.out = cmd.OutOrStdout()
	if f, ok := opts.out.(*os.File); ok {
		opts.color = term.IsTerminal(int(f.Fd()))
	}
	if opts.log != nil {
		return nil
	}
	if !opts.debug {
		opts.log = zap.NewNop()
		return nil
	}
	log, err := logging.New(true)
	if err != nil {
		return err
	}
	opts.log = log
	return nil
}
