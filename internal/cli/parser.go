package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"qpdiff/internal/config"
)

const Usage = `usage:
  qpdiff compare <left> <right> [flags]   compare two quality profiles
  qpdiff profiles [flags]                 list saved profiles
  qpdiff save <file> [--name n] [flags]   save a profile document
  qpdiff delete <name> [flags]            delete a saved profile
  qpdiff export <profile> [flags]         print a profile as a document

A profile is a database key when --db is set, a document when the argument
names an existing file, and a saved profile name otherwise.

flags:
`

var (
	// ErrNoSubcommand is returned when no subcommand is provided
	ErrNoSubcommand = errors.New("missing subcommand: usage: qpdiff <compare|profiles|save|delete|export> [flags] [args...]")

	// ErrUnknownSubcommand is returned for anything but the known subcommands
	ErrUnknownSubcommand = errors.New("unknown subcommand")

	// ErrWrongArgCount is returned when a subcommand gets the wrong number of operands
	ErrWrongArgCount = errors.New("wrong number of arguments")

	// ErrInvalidFlag wraps flag parsing failures, such as a flag missing its value
	ErrInvalidFlag = errors.New("invalid flag")

	// ErrHelp is returned when -h or --help is given
	ErrHelp = pflag.ErrHelp
)

// Subcommand represents the CLI subcommand
type Subcommand string

const (
	SubcommandCompare  Subcommand = "compare"
	SubcommandProfiles Subcommand = "profiles"
	SubcommandSave     Subcommand = "save"
	SubcommandDelete   Subcommand = "delete"
	SubcommandExport   Subcommand = "export"
)

// operands is the number of positional arguments each subcommand takes.
var operands = map[Subcommand]int{
	SubcommandCompare:  2,
	SubcommandProfiles: 0,
	SubcommandSave:     1,
	SubcommandDelete:   1,
	SubcommandExport:   1,
}

// Command represents the parsed CLI input
type Command struct {
	Subcommand Subcommand
	Args       []string // Positional operands

	ConfigPath string // --config <path>
	Catalog    string // --catalog <path>
	DBDSN      string // --db <dsn>
	StoreDir   string // --store-dir <dir>
	Strategy   string // --strategy merge|index
	Format     string // --format text|json|ci|unified
	ExitCode   bool   // --exit-code
	LogLevel   string // --log-level
	LogFormat  string // --log-format
	Name       string // --name, for save

	set map[string]bool
}

// Changed reports whether the named flag was given on the command line.
func (c Command) Changed(flag string) bool {
	return c.set[flag]
}

// ParseArgs parses CLI arguments into a Command.
// It expects args to be os.Args[1:] (excluding the program name).
// Flags and operands may be interleaved; "--" ends flag parsing.
func ParseArgs(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, ErrNoSubcommand
	}

	cmd := Command{Subcommand: Subcommand(args[0])}
	want, ok := operands[cmd.Subcommand]
	if !ok {
		if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
			return Command{}, ErrHelp
		}
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownSubcommand, args[0])
	}

	fs := NewFlagSet(&cmd)
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return Command{}, ErrHelp
		}
		return Command{}, fmt.Errorf("%w: %w", ErrInvalidFlag, err)
	}

	cmd.Args = fs.Args()
	if len(cmd.Args) != want {
		return Command{}, fmt.Errorf("%w: %s takes %d, got %d", ErrWrongArgCount, cmd.Subcommand, want, len(cmd.Args))
	}

	cmd.set = make(map[string]bool)
	fs.Visit(func(f *pflag.Flag) {
		cmd.set[f.Name] = true
	})

	return cmd, nil
}

// NewFlagSet defines the qpdiff flags, bound to the fields of cmd.
func NewFlagSet(cmd *Command) *pflag.FlagSet {
	fs := pflag.NewFlagSet("qpdiff", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	fs.StringVarP(&cmd.ConfigPath, "config", "c", "", "config file ($"+config.EnvConfig+")")
	fs.StringVar(&cmd.Catalog, "catalog", "", "rule catalog YAML for profile documents ($"+config.EnvCatalog+")")
	fs.StringVar(&cmd.DBDSN, "db", "", "SQLite profile database ($"+config.EnvDBDSN+")")
	fs.StringVar(&cmd.StoreDir, "store-dir", "", "saved profile directory ($"+config.EnvStoreDir+")")
	fs.StringVarP(&cmd.Strategy, "strategy", "s", "", "comparison strategy: merge|index ($"+config.EnvStrategy+")")
	fs.StringVarP(&cmd.Format, "format", "f", "", "output format: "+strings.Join(config.AllFormats, "|")+" ($"+config.EnvFormat+")")
	fs.BoolVar(&cmd.ExitCode, "exit-code", false, "exit with 3 when the profiles differ")
	fs.StringVar(&cmd.LogLevel, "log-level", "", "log level: error|warn|info|debug ($"+config.EnvLogLevel+")")
	fs.StringVar(&cmd.LogFormat, "log-format", "", "log format: text|logfmt|json ($"+config.EnvLogFormat+")")
	fs.StringVarP(&cmd.Name, "name", "n", "", "name to save the profile under (default: the profile key)")

	return fs
}

// FlagUsages returns the help text of every flag.
func FlagUsages() string {
	return NewFlagSet(&Command{}).FlagUsages()
}

// Apply overlays the flags given on the command line onto cfg.
func (c Command) Apply(cfg config.Config) config.Config {
	for flag, v := range map[string]struct {
		dst *string
		src string
	}{
		"catalog":    {&cfg.Catalog, c.Catalog},
		"db":         {&cfg.Database.DSN, c.DBDSN},
		"store-dir":  {&cfg.Store.Dir, c.StoreDir},
		"strategy":   {&cfg.Compare.Strategy, c.Strategy},
		"format":     {&cfg.Compare.Format, c.Format},
		"log-level":  {&cfg.Logging.Level, c.LogLevel},
		"log-format": {&cfg.Logging.Format, c.LogFormat},
	} {
		if c.Changed(flag) {
			*v.dst = v.src
		}
	}
	return cfg
}
