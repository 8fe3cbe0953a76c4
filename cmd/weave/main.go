// Weave CLI - weaves aspect advice into proxy host classes
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/aspectweave/manifest"
	bc "github.com/chazu/aspectweave/pkg/bytecode"
	"github.com/chazu/aspectweave/store"
)

var log = commonlog.GetLogger("aspectweave.cli")

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// verbosity counts repeated -v flags.
type verbosity int

func (v *verbosity) String() string   { return strconv.Itoa(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }

func (v *verbosity) Set(s string) error {
	on, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if on {
		*v++
	}
	return nil
}

type options struct {
	dir     string
	disasm  bool
	output  string
	run     string
	args    stringList
	cache   string
	noCache bool
	verbose verbosity
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("weave", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.dir, "C", ".", "Project directory (weave.toml is searched upwards from here)")
	fs.BoolVar(&opts.disasm, "S", false, "Print the disassembly of woven host classes")
	fs.StringVar(&opts.output, "o", "", "Output file (default from [source] output)")
	fs.StringVar(&opts.run, "run", "", "Run a method after weaving (e.g. 'demo/Service$$Proxy.greet')")
	fs.Var(&opts.args, "arg", "Argument for -run (repeatable)")
	fs.StringVar(&opts.cache, "cache", "", "Weave cache database (default from [cache] path)")
	fs.BoolVar(&opts.noCache, "no-cache", false, "Disable the weave cache")
	fs.Var(&opts.verbose, "v", "Verbose output (repeat for more)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: weave [options]\n\n")
		fmt.Fprintf(stderr, "Assembles the project's sources and weaves the aspects bound in weave.toml.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  weave                              # Weave ./weave.toml\n")
		fmt.Fprintf(stderr, "  weave -C app -S                    # Weave app/ and print host classes\n")
		fmt.Fprintf(stderr, "  weave -run 'demo/Service$$Proxy.greet' -arg sam\n")
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "Error: unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return 2
	}

	m, err := manifest.FindAndLoad(opts.dir)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading manifest: %v\n", err)
		return 1
	}
	if m == nil {
		fmt.Fprintf(stderr, "Error: no %s found\n", manifest.FileName)
		return 1
	}
	configureLogging(m, int(opts.verbose))

	p, err := loadProject(m)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	var cache *store.Store
	if !opts.noCache && !m.Cache.Disabled {
		path := opts.cache
		if path == "" {
			path = m.CachePath()
		}
		cache, err = store.Open(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error opening cache: %v\n", err)
			return 1
		}
		defer cache.Close()
	}

	report, err := p.weave(context.Background(), cache)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if opts.verbose > 0 {
		fmt.Fprintf(stdout, "Wove %d target(s) into %d host(s) (%d from cache)\n",
			report.targets, len(p.hosts), report.cached)
	}

	output := opts.output
	if output == "" {
		output = m.OutputPath()
	}
	if err := p.writeOutput(output); err != nil {
		fmt.Fprintf(stderr, "Error writing %s: %v\n", output, err)
		return 1
	}
	if err := manifest.WriteLock(m.LockFilePath(), report.lock); err != nil {
		fmt.Fprintf(stderr, "Error writing lock file: %v\n", err)
		return 1
	}

	if opts.disasm {
		for _, h := range p.hosts {
			fmt.Fprint(stdout, h.Disassemble())
		}
	}

	if opts.run != "" {
		result, err := p.runEntry(opts.run, opts.args, stdout)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if result != nil {
			fmt.Fprintln(stdout, bc.ToString(result))
		}
	}
	return 0
}

// configureLogging applies the manifest [log] section, raised by -v flags.
func configureLogging(m *manifest.Manifest, verbose int) {
	var path *string
	if m.Log.File != "" {
		file := m.Log.File
		path = &file
	}
	commonlog.Configure(m.Log.Verbosity+verbose, path)
}
