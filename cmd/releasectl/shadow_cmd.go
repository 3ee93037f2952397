package main

import (
	"os"

	"github.com/haatos/simple-release/internal/release"
	"github.com/spf13/cobra"
)

type shadowOpts struct {
	*rootOpts
	manifest string
}

func newShadow(parent *rootOpts) *shadowOpts {
	return &shadowOpts{rootOpts: parent}
}

func (opts *shadowOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "shadow",
		Short:   "Print the shadow rewrite of a compose manifest",
		Example: "  releasectl shadow --manifest apps/shop/docker-compose.yml",
		RunE:    opts.RunE,
	}
	cmd.Flags().StringVarP(&opts.manifest, "manifest", "f", "", "compose manifest to rewrite")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

func (opts *shadowOpts) RunE(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return errorWantedNoArgs
	}
	b, err := os.ReadFile(opts.manifest)
	if err != nil {
		return err
	}
	_, err = opts.out.Write(release.DisableRestarts(b))
	return err
}
