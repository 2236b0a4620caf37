package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	pptxhtml "github.com/VantageDataChat/GoPPTHTML"
)

const htmlHead = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body>
`

const htmlTail = "\n</body>\n</html>\n"

func newHTMLCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "html <in.pptx>",
		Short: "Render a presentation as editable HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd)
			store, err := a.openImages(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := a.toHTML(ctx, store, args[0])
			if err != nil {
				return err
			}
			reportDiagnostics(ctx, res.Diagnostics)

			title := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			doc := fmt.Sprintf(htmlHead, title) + res.Markup() + htmlTail
			return writeOutput(cmd.OutOrStdout(), out, []byte(doc))
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func newPPTXCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "pptx <in.html>",
		Short: "Rebuild a presentation from edited HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd)
			store, err := a.openImages(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := a.fromHTML(ctx, store, args[0])
			if err != nil {
				return err
			}
			reportDiagnostics(ctx, res.Diagnostics)

			writer := pptxhtml.NewPPTXWriter(pptxhtml.WithWriterImageStore(store, a.cfg.Images.URLPrefix))
			diags, err := writer.Save(ctx, out, res.Document)
			if err != nil {
				return err
			}
			reportDiagnostics(ctx, diags)
			zerolog.Ctx(ctx).Info().Str("output", out).Int("slides", len(res.Document.Slides)).Msg("Presentation written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output .pptx file")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

// inspection is the YAML dump of a converted document.
type inspection struct {
	Source      string                      `yaml:"source"`
	Document    *pptxhtml.CanonicalDocument `yaml:"document"`
	Diagnostics []pptxhtml.Diagnostic       `yaml:"diagnostics,omitempty"`
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <in.pptx|in.html>",
		Short: "Dump the canonical document as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd)
			store, err := a.openImages(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			dump := inspection{Source: args[0]}
			if strings.EqualFold(filepath.Ext(args[0]), ".pptx") {
				res, err := a.toHTML(ctx, store, args[0])
				if err != nil {
					return err
				}
				dump.Document, dump.Diagnostics = res.Document, res.Diagnostics
			} else {
				res, err := a.fromHTML(ctx, store, args[0])
				if err != nil {
					return err
				}
				dump.Document, dump.Diagnostics = res.Document, res.Diagnostics
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(dump); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func (a *app) toHTML(ctx context.Context, store pptxhtml.ImageStore, path string) (*pptxhtml.ForwardResult, error) {
	pkg, err := pptxhtml.OpenPackage(path)
	if err != nil {
		return nil, err
	}
	return a.assembler(store).Convert(ctx, pkg)
}

func (a *app) fromHTML(ctx context.Context, store pptxhtml.ImageStore, path string) (*pptxhtml.ReverseResult, error) {
	markup, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markup: %w", err)
	}
	var oracle pptxhtml.StyleOracle
	if r := a.oracle(); r != nil {
		defer r.Close()
		oracle = r
	}
	return a.decomposer(store, oracle).Decompose(ctx, string(markup))
}

func reportDiagnostics(ctx context.Context, diags []pptxhtml.Diagnostic) {
	logger := zerolog.Ctx(ctx)
	for _, d := range diags {
		logger.Warn().
			Int("slide", d.Slide).
			Str("kind", string(d.Kind)).
			Str("subject", d.Subject).
			Msg(d.Message)
	}
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := io.Copy(stdout, bytes.NewReader(data))
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
