package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-vmdk-inspect/internal/chain"
	"github.com/deploymenttheory/go-vmdk-inspect/internal/config"
	"github.com/deploymenttheory/go-vmdk-inspect/internal/logger"
	"github.com/deploymenttheory/go-vmdk-inspect/internal/render"
)

// chainCmd resolves and prints a snapshot parent chain
var chainCmd = &cobra.Command{
	Use:   "chain <file>",
	Short: "Resolve the snapshot parent chain of a VMDK file",
	Long: `Chain follows parentCID links from the given disk up to its base
disk, locating each parent through the descriptor's parentFileNameHint
or, failing that, by scanning the disk's directory for a matching CID.
A broken link still prints the healthy part of the chain.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := render.ParseFormat(config.Instance.Output.Format)
		if err != nil {
			return err
		}

		resolver := chain.NewResolver(config.Instance.Chain.CacheSize)
		defer resolver.Close()

		links, resolveErr := resolver.Resolve(args[0])
		if resolveErr != nil {
			logger.LogError("Chain resolution incomplete", resolveErr, map[string]interface{}{
				"path":     args[0],
				"resolved": len(links),
			})
		}

		if format == render.FormatText {
			printChainText(links)
		} else if err := render.Value(os.Stdout, links, format); err != nil {
			return err
		}
		return resolveErr
	},
}

func printChainText(links []chain.Link) {
	for i, link := range links {
		fmt.Fprintf(os.Stdout, "%*d : %s", 4, i, link.Path)
		if link.CreateType != "" {
			fmt.Fprintf(os.Stdout, " (%s)", link.CreateType)
		}
		if link.CID != nil {
			fmt.Fprintf(os.Stdout, " cid=%08x", *link.CID)
		}
		fmt.Fprintln(os.Stdout)
	}
}

func init() {
	rootCmd.AddCommand(chainCmd)
}
