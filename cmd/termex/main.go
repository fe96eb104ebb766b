// Command termex extracts terms from a document corpus and queries
// stored runs.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

const version = "0.1.0"

// Globals are flags shared by every command.
type Globals struct {
	Config    string `short:"c" help:"YAML config file." type:"path" env:"TERMEX_CONFIG"`
	LogLevel  string `name:"log-level" help:"Override logging.level (debug, info, warn, error)."`
	LogFormat string `name:"log-format" help:"Override logging.format (text, json)."`

	Out io.Writer `kong:"-"`
}

// CLI is the command tree.
type CLI struct {
	Globals

	Extract ExtractCmd `cmd:"" help:"Extract terms from a corpus file."`
	Top     TopCmd     `cmd:"" help:"Print the top terms of a stored run."`
	Doc     DocCmd     `cmd:"" help:"Print the terms of one document in a stored run."`
	Runs    RunsCmd    `cmd:"" help:"List stored runs, newest first."`
	Version VersionCmd `cmd:"" help:"Print version information."`
}

func newParser(cli *CLI, ctx context.Context, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("termex"),
		kong.Description("Corpus term extraction: n-grams, named entities and noun chunks."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Bind(&cli.Globals),
		kong.BindTo(ctx, (*context.Context)(nil)),
	}, options...)
	return kong.New(cli, options...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := CLI{Globals: Globals{Out: os.Stdout}}
	parser, err := newParser(&cli, ctx)
	if err != nil {
		panic(err)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	err = kctx.Run()
	kctx.FatalIfErrorf(err)
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	_, err := io.WriteString(g.Out, "termex "+version+"\n")
	return err
}
