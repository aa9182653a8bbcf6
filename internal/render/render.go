// Package render turns decoded disk descriptions into text, JSON or
// YAML on a writer. The core decoder only produces structured values;
// everything presentation-related lives here.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/deploymenttheory/go-vmdk-inspect/internal/vmdk"
	"sigs.k8s.io/yaml"
)

// Format selects the output rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name from a flag or config value.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", name)
	}
}

// Description writes one disk description in the chosen format.
func Description(w io.Writer, desc *vmdk.DiskDescription, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(desc)
	case FormatYAML:
		out, err := yaml.Marshal(desc)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		return describeText(w, desc)
	}
}

// Value writes any marshalable value (chain links, digest tables) in the
// chosen format; text falls back to YAML, which reads well for small
// nested values.
func Value(w io.Writer, value interface{}, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	}
	out, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// labelWidth is the fixed width of the label column in text output.
const labelWidth = 18

func field(w io.Writer, label string, value interface{}) {
	fmt.Fprintf(w, "%*s : %v\n", labelWidth, label, value)
}

func describeText(w io.Writer, desc *vmdk.DiskDescription) error {
	if desc.Path != "" {
		field(w, "path", desc.Path)
	}
	field(w, "format", desc.Format)

	if h := desc.Header; h != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "sparse extent header:")
		field(w, "version", h.Version)
		field(w, "byte order", h.ByteOrder)
		field(w, "flags", fmt.Sprintf("0x%08x", h.Flags))
		field(w, "capacity", fmt.Sprintf("%d sectors", h.Capacity))
		field(w, "grain size", fmt.Sprintf("%d sectors", h.GrainSize))
		field(w, "descriptor offset", h.DescriptorOffset)
		field(w, "descriptor size", h.DescriptorSize)
		field(w, "GTEs per GT", h.NumGTEsPerGT)
		field(w, "rgd offset", h.RgdOffset)
		field(w, "gd offset", h.GdOffset)
		field(w, "overhead", fmt.Sprintf("%d sectors", h.OverHead))
		field(w, "unclean shutdown", h.UncleanShutdown)
		field(w, "compressed", h.Compressed())
		field(w, "compression", compressionName(h.CompressAlgorithm))
	}

	if d := desc.Descriptor; d != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "descriptor:")
		if d.CID != nil {
			field(w, "CID", fmt.Sprintf("%d (0x%08x)", *d.CID, *d.CID))
		}
		if d.ParentCID != nil {
			field(w, "parentCID", fmt.Sprintf("%d (0x%08x)", *d.ParentCID, *d.ParentCID))
		}
		for _, key := range sortedKeys(d.Attributes) {
			field(w, key, d.Attributes[key])
		}

		if len(d.Extents) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "extents:")
			for _, ext := range d.Extents {
				line := fmt.Sprintf("%s %d %s %q", ext.Access, ext.Sectors, ext.Type, ext.Filename)
				if ext.Offset != nil {
					line = fmt.Sprintf("%s %d", line, *ext.Offset)
				}
				fmt.Fprintf(w, "    %s\n", line)
			}
			field(w, "total size", fmt.Sprintf("%d sectors", d.TotalSectors()))
		}

		if d.DDB != nil && d.DDB.Len() > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "disk database:")
			d.DDB.Walk(func(path []string, value string) {
				fmt.Fprintf(w, "    %s = %q\n", strings.Join(path, "."), value)
			})
		}
	}
	return nil
}

func compressionName(algorithm uint16) string {
	switch algorithm {
	case vmdk.CompressNone:
		return "none"
	case vmdk.CompressDeflate:
		return "deflate"
	default:
		return fmt.Sprintf("unknown (%d)", algorithm)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
