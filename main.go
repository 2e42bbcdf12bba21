package main

import (
	"github.com/alecthomas/kong"
)

var (
	GitCommit string
	GitTag    string
	BuildTime string
)

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("bookshelf"),
		kong.Description("Book cataloging and review service."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
