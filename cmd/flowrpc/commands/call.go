package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowrpc/flowrpc/client"
	greeterclient "github.com/flowrpc/flowrpc/examples/greeter/client"
	"github.com/flowrpc/flowrpc/examples/greeter/proto"
)

// NewCallCommand builds the "call" subcommand: a one-shot SayHello
// invocation against a running server, useful for smoke-testing the
// wire protocol from the command line.
func NewCallCommand() *cobra.Command {
	var target, name string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "call",
		Short: "Invoke Greeter.SayHello against a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := client.Dial(target)
			if err != nil {
				return err
			}
			gc := greeterclient.New(ch)

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			resp, err := gc.SayHello(ctx, &proto.HelloRequest{Name: name}, nil)
			if err != nil {
				return err
			}
			fmt.Println(resp.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "127.0.0.1:8080", "server address")
	cmd.Flags().StringVar(&name, "name", "world", "name to greet")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "call timeout")

	return cmd
}
