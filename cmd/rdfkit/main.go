package main

import (
	"fmt"
	"io"
	"os"

	"github.com/deiu/rdfkit"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "rdfkit",
		Short:   "Convert RDF documents between Turtle, N-Triples and JSON-LD",
		Version: version,
	}

	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(sniffCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func convertCmd() *cobra.Command {
	var from, to, baseURI, out, relativize string
	var noPrefixes bool

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Decode a document and re-encode it in another format",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args)
			if err != nil {
				return err
			}
			graph, err := rdfkit.Decode(text, from, baseURI)
			if err != nil {
				return err
			}
			opts := rdfkit.NewSerializerOptions()
			opts.GenerateMissingPrefixes = !noPrefixes
			switch relativize {
			case "none":
				opts.Relativization = rdfkit.NoRelativization()
			case "local":
				opts.Relativization = rdfkit.LocalRelativization()
			case "full":
				opts.Relativization = rdfkit.FullRelativization()
			default:
				return fmt.Errorf("unknown relativization mode %q", relativize)
			}
			codec := &rdfkit.TurtleCodec{SerializerOptions: opts}
			var output string
			if to == "" || to == "text/turtle" {
				output, err = codec.Encode(graph, baseURI)
			} else {
				output, err = rdfkit.Encode(graph, to, baseURI)
			}
			if err != nil {
				return err
			}
			return writeOutput(out, output)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "source MIME type (default: detect)")
	cmd.Flags().StringVar(&to, "to", "text/turtle", "target MIME type")
	cmd.Flags().StringVar(&baseURI, "base", "", "base URI for resolution and relativization")
	cmd.Flags().StringVar(&out, "out", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&relativize, "relativize", "full", "IRI relativization: none, local or full")
	cmd.Flags().BoolVar(&noPrefixes, "no-prefixes", false, "disable prefix generation")
	return cmd
}

func sniffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sniff [file]",
		Short: "Detect the RDF format of a document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args)
			if err != nil {
				return err
			}
			codec, ok := rdfkit.DetectFormat(text)
			if !ok {
				return fmt.Errorf("unable to detect the RDF format of the input")
			}
			fmt.Println(codec.MimeTypes()[0])
			return nil
		},
	}
}

func readInput(args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(args[0])
	return string(data), err
}

func writeOutput(out string, text string) error {
	if out == "" {
		fmt.Print(text)
		return nil
	}
	return os.WriteFile(out, []byte(text), 0644)
}
