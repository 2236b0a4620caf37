package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	pptxhtml "github.com/VantageDataChat/GoPPTHTML"
	"github.com/VantageDataChat/GoPPTHTML/imagestore"
	"github.com/VantageDataChat/GoPPTHTML/internal/config"
	"github.com/VantageDataChat/GoPPTHTML/styleoracle"
)

type globalFlags struct {
	configFile string
	logLevel   string
	images     string
	oracle     bool
}

// app holds what every command needs once flags are parsed.
type app struct {
	flags globalFlags
	cfg   *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "slidekit",
		Short:         "Convert .pptx presentations to editable HTML and back",
		Version:       pptxhtml.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configFile, "config", "", "YAML config file")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.flags.images, "images", "", "Image store backend (memory or sqlite)")
	pf.BoolVar(&a.flags.oracle, "oracle", false, "Use a headless browser for computed slide backgrounds")

	root.AddCommand(
		newHTMLCmd(a),
		newPPTXCmd(a),
		newInspectCmd(a),
		newServeCmd(a),
		newPruneCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	overrides := map[string]any{}
	if a.flags.logLevel != "" {
		overrides[config.KeyLogLevel] = a.flags.logLevel
	}
	if a.flags.images != "" {
		overrides[config.KeyImagesBackend] = a.flags.images
	}
	if cmd.Flags().Changed("oracle") {
		overrides[config.KeyOracleEnabled] = a.flags.oracle
	}

	opts := []config.Option{config.WithOverrides(overrides)}
	if a.flags.configFile != "" {
		opts = append(opts, config.WithConfigFile(a.flags.configFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	a.cfg = cfg
	setupLogger(cfg.Environment, cfg.LogLevel)
	return nil
}

// context returns a command context carrying the global logger.
func (a *app) context(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return log.Logger.WithContext(ctx)
}

func (a *app) openImages(ctx context.Context) (imagestore.Store, error) {
	return imagestore.Open(ctx, a.cfg.Images.Backend, a.cfg.Images.SQLitePath)
}

// oracle returns the configured style oracle, or nil when disabled.
func (a *app) oracle() *styleoracle.Rod {
	if !a.cfg.Oracle.Enabled {
		return nil
	}
	return styleoracle.NewRod(a.cfg.Oracle.ControlURL)
}

// assembler builds the forward converter. Images are embedded inline unless
// a persistent store is configured, so standalone output stays viewable.
func (a *app) assembler(store imagestore.Store) *pptxhtml.Assembler {
	opts := []pptxhtml.AssemblerOption{pptxhtml.WithWorkers(a.cfg.Workers)}
	if a.cfg.Images.Backend == "sqlite" {
		opts = append(opts, pptxhtml.WithImageResolver(pptxhtml.StoreImages{Store: store, URLPrefix: a.cfg.Images.URLPrefix}))
	}
	return pptxhtml.NewAssembler(opts...)
}

func (a *app) decomposer(store imagestore.Store, oracle pptxhtml.StyleOracle) *pptxhtml.Decomposer {
	opts := []pptxhtml.DecomposerOption{
		pptxhtml.WithImageStore(store, a.cfg.Images.URLPrefix),
		pptxhtml.WithDecomposeWorkers(a.cfg.Workers),
		pptxhtml.WithSlideSize(float64(a.cfg.Render.SlideWidthPx), float64(a.cfg.Render.SlideHeightPx)),
	}
	if oracle != nil {
		opts = append(opts, pptxhtml.WithStyleOracle(oracle))
	}
	return pptxhtml.NewDecomposer(opts...)
}
