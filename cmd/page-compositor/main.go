// Command page-compositor consolidates detected text boxes on a page,
// removes the original text and draws translations in its place.
package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Globals are flags shared by every command.
type Globals struct {
	Config    string `name:"config" short:"c" help:"Config file (yaml, json or toml)" type:"existingfile"`
	LogLevel  string `name:"log-level" help:"Override logging.level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" help:"Override logging.format (console or json)"`
}

// CLI defines the command-line interface.
var CLI struct {
	Globals

	Render      RenderCmd      `cmd:"" help:"Consolidate, clean and draw translations onto a page"`
	Consolidate ConsolidateCmd `cmd:"" help:"Merge raw text boxes into regions and print them as JSON"`
	Clean       CleanCmd       `cmd:"" help:"Remove text from regions without drawing"`
	Serve       ServeCmd       `cmd:"" help:"Run the MCP server on stdin/stdout"`
	Version     VersionCmd     `cmd:"" help:"Print version information"`
}

func main() {
	// A missing .env is normal; anything else is worth a warning.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	ctx := kong.Parse(&CLI,
		kong.Name("page-compositor"),
		kong.Description("Replace text in page images with translated text"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(&CLI.Globals)
	ctx.FatalIfErrorf(err)
}
