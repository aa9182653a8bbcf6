package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-vmdk-inspect/internal/config"
	"github.com/deploymenttheory/go-vmdk-inspect/internal/cryptoutil"
	"github.com/deploymenttheory/go-vmdk-inspect/internal/fsutil"
	"github.com/deploymenttheory/go-vmdk-inspect/internal/logger"
	"github.com/deploymenttheory/go-vmdk-inspect/internal/render"
	"github.com/deploymenttheory/go-vmdk-inspect/internal/vmdk"
)

var withDigest bool

// inspectCmd decodes and prints the metadata of one or more VMDK files
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>...",
	Short: "Decode the header and descriptor of VMDK files",
	Long: `Inspect probes each file, decodes the sparse extent header when one
is present, parses the embedded or standalone descriptor, and prints
the result. Files matching neither signature are reported as unknown;
with --strict they fail the command instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := render.ParseFormat(config.Instance.Output.Format)
		if err != nil {
			return err
		}

		var failed int
		for _, path := range args {
			if err := inspectOne(path, format); err != nil {
				logger.LogError("Inspection failed", err, map[string]interface{}{
					"path": path,
				})
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

func inspectOne(path string, format render.Format) error {
	if !fsutil.FileExists(path) {
		return fmt.Errorf("%s: no such file", path)
	}

	rd, err := vmdk.Open(path)
	if err != nil {
		return err
	}
	defer rd.Close()

	desc, err := rd.Describe()
	if err != nil {
		return err
	}

	if desc.Format == vmdk.FormatUnknown {
		if config.Instance.Output.Strict {
			return fmt.Errorf("%s: not a recognized VMDK file", path)
		}
		logger.LogWarn("File matched no VMDK signature", map[string]interface{}{
			"path": path,
		})
	}

	if err := render.Description(os.Stdout, desc, format); err != nil {
		return err
	}

	if withDigest {
		return printDigests(path, desc, format)
	}
	return nil
}

// printDigests hashes the extent data files named by the descriptor,
// resolved against the inspected file's directory. A descriptor with no
// extents falls back to hashing the inspected file itself.
func printDigests(path string, desc *vmdk.DiskDescription, format render.Format) error {
	targets := []string{path}
	if desc.Descriptor != nil && len(desc.Descriptor.Extents) > 0 {
		dir := filepath.Dir(path)
		targets = targets[:0]
		for _, ext := range desc.Descriptor.Extents {
			targets = append(targets, filepath.Join(dir, ext.Filename))
		}
	}

	digests := make(map[string]string, len(targets))
	for _, target := range targets {
		digest, err := cryptoutil.HashFile(cryptoutil.SHA256, target)
		if err != nil {
			return err
		}
		digests[target] = digest
	}

	if format == render.FormatText {
		fmt.Fprintln(os.Stdout)
		for _, target := range targets {
			fmt.Fprintf(os.Stdout, "%*s : %s  %s\n", 18, "sha256", digests[target], target)
		}
		return nil
	}
	return render.Value(os.Stdout, digests, format)
}

func init() {
	inspectCmd.Flags().BoolVar(&withDigest, "digest", false, "Print SHA-256 digests of the referenced extent files")
	rootCmd.AddCommand(inspectCmd)
}
