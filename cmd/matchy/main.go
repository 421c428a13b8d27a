package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nxadm/tail"
	"go.uber.org/zap"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/matchylabs/matchy-go"
)

func main() {
	var (
		dbPath      = flag.String("db", "", "Path to database file")
		query       = flag.String("query", "", "Query an IP, literal, or pattern")
		jsonOut     = flag.Bool("json", false, "Print the raw match payload as JSON")
		getPath     = flag.String("get", "", "Print a single payload field (gjson path, e.g. threat.level)")
		stats       = flag.Bool("stats", false, "Print query and cache statistics")
		metadata    = flag.Bool("metadata", false, "Print database metadata")
		info        = flag.Bool("info", false, "Print database format and capabilities")
		buildSpec   = flag.String("build", "", "Build a database from a YAML spec file")
		outPath     = flag.String("out", "", "Output path for -build")
		validate    = flag.String("validate", "", "Validate a database file and exit")
		strict      = flag.Bool("strict", false, "Walk every entry during -validate")
		extractFile = flag.String("extract", "", "Extract indicators from a file")
		follow      = flag.Bool("follow", false, "Follow the -extract file like tail -f")
		types       = flag.String("types", "", "Indicator types for -extract (ipv4,ipv6,domains,emails,hashes,wallets)")
		watch       = flag.Bool("watch", false, "Auto-reload the database and report reload events")
		configPath  = flag.String("config", "", "YAML config file with open options")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
		version     = flag.Bool("version", false, "Print engine version and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		matchy.SetLogger(logger)
	}

	if err := run(&options{
		dbPath:      *dbPath,
		query:       *query,
		jsonOut:     *jsonOut,
		getPath:     *getPath,
		stats:       *stats,
		metadata:    *metadata,
		info:        *info,
		buildSpec:   *buildSpec,
		outPath:     *outPath,
		validate:    *validate,
		strict:      *strict,
		extractFile: *extractFile,
		follow:      *follow,
		types:       *types,
		watch:       *watch,
		configPath:  *configPath,
		version:     *version,
		interactive: *interactive,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	dbPath      string
	query       string
	jsonOut     bool
	getPath     string
	stats       bool
	metadata    bool
	info        bool
	buildSpec   string
	outPath     string
	validate    string
	strict      bool
	extractFile string
	follow      bool
	types       string
	watch       bool
	configPath  string
	version     bool
	interactive bool
}

func run(o *options) error {
	switch {
	case o.version:
		return printVersion()
	case o.validate != "":
		return runValidate(o.validate, o.strict)
	case o.buildSpec != "":
		return runBuild(o.buildSpec, o.outPath)
	case o.extractFile != "":
		return runExtract(o.extractFile, o.types, o.follow)
	}

	if o.dbPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: matchy -db <file.mxy> -query <ip|string> [-json] [-stats]")
		fmt.Fprintln(os.Stderr, "       matchy -db <file.mxy> -i  (interactive mode)")
		fmt.Fprintln(os.Stderr, "       matchy -build <spec.yaml> -out <file.mxy>")
		fmt.Fprintln(os.Stderr, "       matchy -validate <file.mxy> [-strict]")
		fmt.Fprintln(os.Stderr, "       matchy -extract <file> [-follow] [-types ipv4,domains,...]")
		os.Exit(1)
	}

	opts, err := openOptions(o)
	if err != nil {
		return err
	}

	if o.interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		return runInteractive(o.dbPath, opts)
	}

	db, err := matchy.OpenWithOptions(o.dbPath, opts)
	if err != nil {
		return err
	}
	defer db.Close()

	if o.info {
		if err := printInfo(db, o.dbPath); err != nil {
			return err
		}
	}
	if o.metadata {
		meta, err := db.Metadata()
		if err != nil {
			return err
		}
		fmt.Println(meta)
	}

	if o.query != "" {
		if err := runQuery(db, o.query, o.jsonOut, o.getPath); err != nil {
			return err
		}
	}

	if o.stats {
		s, err := db.Stats()
		if err != nil {
			return err
		}
		fmt.Println(s)
	}

	if o.watch && o.query == "" && !o.stats && !o.info && !o.metadata {
		// Watch-only invocation: stay up and report reload events until
		// interrupted.
		fmt.Printf("Watching %s (ctrl+c to stop)\n", o.dbPath)
		select {}
	}
	return nil
}

// cliConfig is the YAML shape accepted by -config.
type cliConfig struct {
	CacheCapacity  int    `yaml:"cache_capacity"`
	AutoReload     bool   `yaml:"auto_reload"`
	AutoUpdate     bool   `yaml:"auto_update"`
	UpdateInterval string `yaml:"update_interval"` // time.ParseDuration syntax
	CacheDir       string `yaml:"cache_dir"`
}

func openOptions(o *options) (*matchy.OpenOptions, error) {
	opts := matchy.DefaultOpenOptions()
	if o.configPath != "" {
		data, err := os.ReadFile(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		var cfg cliConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		if cfg.CacheCapacity != 0 {
			opts.CacheCapacity = cfg.CacheCapacity
		}
		opts.AutoReload = cfg.AutoReload
		opts.AutoUpdate = cfg.AutoUpdate
		if cfg.UpdateInterval != "" {
			d, err := time.ParseDuration(cfg.UpdateInterval)
			if err != nil {
				return nil, fmt.Errorf("parse update_interval: %w", err)
			}
			opts.UpdateInterval = d
		}
		opts.CacheDir = cfg.CacheDir
	}
	if o.watch {
		opts.AutoReload = true
		opts.OnReload = func(evt matchy.ReloadEvent) {
			if evt.Success {
				fmt.Printf("reloaded %s (generation %d)\n", evt.Path, evt.Generation)
			} else {
				fmt.Fprintf(os.Stderr, "reload of %s failed: %s\n", evt.Path, evt.Err)
			}
		}
	}
	return opts, nil
}

func printVersion() error {
	v, err := matchy.Version()
	if err != nil {
		return err
	}
	auto, err := matchy.HasAutoUpdate()
	if err != nil {
		return err
	}
	fmt.Printf("matchy engine %s (auto-update: %v)\n", v, auto)
	return nil
}

func runValidate(path string, strict bool) error {
	level := matchy.ValidationStandard
	if strict {
		level = matchy.ValidationStrict
	}
	if err := matchy.Validate(path, level); err != nil {
		return err
	}
	fmt.Printf("%s: OK\n", path)
	return nil
}

func runQuery(db *matchy.Database, query string, jsonOut bool, getPath string) error {
	res, err := db.Query(query)
	if err != nil {
		return err
	}
	if !res.Found() {
		fmt.Println("no match")
		return nil
	}
	if getPath != "" {
		fmt.Println(res.Get(getPath).String())
		return nil
	}
	if jsonOut {
		fmt.Println(res.Raw())
		return nil
	}
	fmt.Printf("match (prefix length %d)\n", res.PrefixLen())
	for k, v := range res.Data() {
		fmt.Printf("  %s: %v\n", k, v)
	}
	return nil
}

func printInfo(db *matchy.Database, path string) error {
	format, err := db.Format()
	if err != nil {
		return err
	}
	fmt.Printf("Database: %s\n", path)
	fmt.Printf("Format: %s\n", format)

	caps := []struct {
		name string
		fn   func() (bool, error)
	}{
		{"ip", db.HasIPData},
		{"string", db.HasStringData},
		{"literal", db.HasLiteralData},
		{"glob", db.HasGlobData},
	}
	var have []string
	for _, c := range caps {
		ok, err := c.fn()
		if err != nil {
			return err
		}
		if ok {
			have = append(have, c.name)
		}
	}
	fmt.Printf("Data kinds: %s\n", strings.Join(have, ", "))

	n, err := db.PatternCount()
	if err != nil {
		return err
	}
	fmt.Printf("Patterns: %d\n", n)

	if url, err := db.UpdateURL(); err == nil && url != "" {
		fmt.Printf("Update URL: %s\n", url)
	}
	return nil
}

// dbSpec is the YAML shape accepted by -build.
type dbSpec struct {
	Description     string `yaml:"description"`
	CaseInsensitive bool   `yaml:"case_insensitive"`
	Schema          string `yaml:"schema"`
	UpdateURL       string `yaml:"update_url"`
	Entries         []struct {
		Key  string         `yaml:"key"`
		Data map[string]any `yaml:"data"`
	} `yaml:"entries"`
}

func runBuild(specPath, outPath string) error {
	if outPath == "" {
		return fmt.Errorf("-build requires -out")
	}
	data, err := os.ReadFile(specPath)
	if err != nil {
		return fmt.Errorf("read spec: %w", err)
	}
	var spec dbSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return fmt.Errorf("parse spec: %w", err)
	}

	b, err := matchy.NewBuilder()
	if err != nil {
		return err
	}
	defer b.Close()

	if spec.Description != "" {
		if err := b.SetDescription(spec.Description); err != nil {
			return err
		}
	}
	if spec.CaseInsensitive {
		if err := b.SetCaseInsensitive(true); err != nil {
			return err
		}
	}
	if spec.Schema != "" {
		if err := b.SetSchema(spec.Schema); err != nil {
			return err
		}
	}
	if spec.UpdateURL != "" {
		if err := b.SetUpdateURL(spec.UpdateURL); err != nil {
			return err
		}
	}
	for _, ent := range spec.Entries {
		if err := b.Add(ent.Key, ent.Data); err != nil {
			return err
		}
	}
	if err := b.Save(outPath); err != nil {
		return err
	}
	fmt.Printf("Built %s with %d entries\n", outPath, len(spec.Entries))
	return nil
}

var extractTypeFlags = map[string]matchy.ExtractFlags{
	"domains": matchy.ExtractDomains,
	"emails":  matchy.ExtractEmails,
	"ipv4":    matchy.ExtractIPv4,
	"ipv6":    matchy.ExtractIPv6,
	"hashes":  matchy.ExtractHashes,
	"wallets": matchy.ExtractBitcoin | matchy.ExtractEthereum | matchy.ExtractMonero,
}

func parseExtractFlags(types string) (matchy.ExtractFlags, error) {
	if types == "" {
		return matchy.ExtractAll, nil
	}
	var flags matchy.ExtractFlags
	for _, name := range strings.Split(types, ",") {
		f, ok := extractTypeFlags[strings.TrimSpace(name)]
		if !ok {
			return 0, fmt.Errorf("unknown indicator type %q", name)
		}
		flags |= f
	}
	return flags, nil
}

func runExtract(path, types string, follow bool) error {
	flags, err := parseExtractFlags(types)
	if err != nil {
		return err
	}
	ex, err := matchy.NewExtractorFlags(flags)
	if err != nil {
		return err
	}
	defer ex.Close()

	if follow {
		return followExtract(ex, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	matches, err := ex.ExtractBytes(data)
	if err != nil {
		return err
	}
	for _, m := range matches {
		fmt.Printf("%s\t%s\t[%d:%d]\n", m.Type, m.Value, m.Start, m.End)
	}
	return nil
}

// followExtract scans lines as they are appended, surviving rotation the
// way tail -F does.
func followExtract(ex *matchy.Extractor, path string) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
	})
	if err != nil {
		return err
	}
	defer t.Cleanup()

	for line := range t.Lines {
		if line.Err != nil {
			return line.Err
		}
		matches, err := ex.Extract(line.Text)
		if err != nil {
			return err
		}
		for _, m := range matches {
			fmt.Printf("%s\t%s\n", m.Type, m.Value)
		}
	}
	return nil
}
