package main

import (
	"context"

	"baikalctl/cmd/bcc/commands"
	"baikalctl/lib/osutil"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
