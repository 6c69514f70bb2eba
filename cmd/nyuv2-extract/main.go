// Command nyuv2-extract converts the labeled NYU Depth v2 release into
// per-sample PNG files split into train and test, plus gzip tar archives of
// the 40-class label maps.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/nyuv2/internal/config"
	"github.com/banshee-data/nyuv2/internal/extract"
	"github.com/banshee-data/nyuv2/internal/materialize"
	"github.com/banshee-data/nyuv2/internal/version"
)

type options struct {
	configPath  string
	showVersion bool
	overrides   *config.Config
}

// parseFlags reads the command line. Only flags given explicitly override
// values from the -config file.
func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("nyuv2-extract", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		opts         options
		mat          = fs.String("mat", config.DefaultMatPath, "labeled NYUv2 MAT-file (downloaded when missing)")
		dataRoot     = fs.String("data-root", config.DefaultDataRoot, "output directory")
		saveColored  = fs.Bool("save-colored", false, "also write colorized label and depth maps")
		coloredRoot  = fs.String("colored-root", ".", "directory for the colored_* side outputs")
		normalZip    = fs.String("normal-zip", config.DefaultNormalZipPath, "surface normal metadata zip, extracted into <data-root>/normal")
		splits       = fs.String("splits", config.DefaultSplitsPath, "train/test split MAT-file")
		mapping40    = fs.String("mapping40", config.DefaultMapping40Path, "raw to 40-class mapping MAT-file")
		mapping13    = fs.String("mapping13", config.DefaultMapping13Path, "40 to 13-class mapping MAT-file")
		workers      = fs.Int("workers", 0, "parallel PNG writers (default one per CPU)")
		skipDownload = fs.Bool("skip-download", false, "fail instead of downloading missing inputs")
		skipExtract  = fs.Bool("skip-extract", false, "only rebuild the label archives from <data-root>")
		manifestPath = fs.String("manifest", "", "record the run in this SQLite database")
		reportPath   = fs.String("report", "", "write an HTML class distribution report")
	)
	fs.StringVar(&opts.configPath, "config", "", "JSON configuration file")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	o := &config.Config{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mat":
			o.MatPath = mat
		case "data-root":
			o.DataRoot = dataRoot
		case "save-colored":
			o.SaveColored = saveColored
		case "colored-root":
			o.ColoredRoot = coloredRoot
		case "normal-zip":
			o.NormalZipPath = normalZip
		case "splits":
			o.SplitsPath = splits
		case "mapping40":
			o.Mapping40Path = mapping40
		case "mapping13":
			o.Mapping13Path = mapping13
		case "workers":
			o.Workers = workers
		case "skip-download":
			o.SkipDownload = skipDownload
		case "skip-extract":
			o.SkipExtract = skipExtract
		case "manifest":
			o.ManifestPath = manifestPath
		case "report":
			o.ReportPath = reportPath
		}
	})
	opts.overrides = o
	return opts, nil
}

// loadConfig merges the optional config file with the flag overrides.
func loadConfig(opts options) (*config.Config, error) {
	cfg := &config.Config{}
	if opts.configPath != "" {
		fileCfg, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	cfg.Merge(opts.overrides)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err == flag.ErrHelp {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("nyuv2-extract: %v", err)
	}
	if opts.showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		log.Fatalf("nyuv2-extract: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := extract.New(cfg).Run(ctx)
	if err != nil {
		stop()
		log.Fatalf("nyuv2-extract: %v", err)
	}
	for _, c := range materialize.Categories {
		if n, ok := sum.Written[c]; ok {
			log.Printf("%s: %d files", c, n)
		}
	}
	for _, a := range sum.Archives {
		log.Printf("archive %s: %d entries", a.Path, len(a.Entries))
	}
	if sum.RunID != "" {
		log.Printf("manifest run %s", sum.RunID)
	}
}
