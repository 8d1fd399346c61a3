package cmd

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/seijimatsuda/session-planner-beta/client/mediaclient"
	"github.com/spf13/cobra"
)

var (
	getOutput      string
	getChunkSize   int64
	getParallelism int
)

// getCmd downloads an object through the server's range interface.
var getCmd = &cobra.Command{
	Use:   "get [path]",
	Short: "Download a stored object to a local file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		objectPath := args[0]
		output := getOutput
		if output == "" {
			output = path.Base(objectPath)
		}
		f, err := os.Create(output)
		if err != nil {
			bailf("error creating output file: %s", err)
		}
		defer f.Close()
		client := mediaclient.NewClient(serverURL, serverToken,
			mediaclient.WithChunkSize(getChunkSize),
			mediaclient.WithParallelism(getParallelism),
		)
		n, err := client.Download(context.Background(), objectPath, f)
		if err != nil {
			bailf("error downloading object: %s", err)
		}
		fmt.Printf("wrote %d bytes to %s\n", n, output)
	},
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8089", "Server URL")
	getCmd.PersistentFlags().StringVarP(&serverToken, "token", "t", "", "Bearer token")
	getCmd.PersistentFlags().StringVarP(&getOutput, "output", "o", "", "Output file (defaults to the object's basename)")
	getCmd.PersistentFlags().Int64Var(&getChunkSize, "chunk-size", 1000000, "Range request size in bytes")
	getCmd.PersistentFlags().IntVar(&getParallelism, "parallelism", 4, "Concurrent range requests")
}
