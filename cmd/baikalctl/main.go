package main

import (
	"context"

	"baikalctl/cmd/baikalctl/commands"
	"baikalctl/lib/osutil"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
