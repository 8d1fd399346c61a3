package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/seijimatsuda/session-planner-beta/client/mediaclient"
	"github.com/spf13/cobra"
)

var (
	serverURL   string
	serverToken string
)

// fetchCmd asks a running server to acquire a video from a supported host.
var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "Acquire a video from a supported host into storage",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := mediaclient.NewClient(serverURL, serverToken)
		result, err := client.AcquireVideo(context.Background(), args[0])
		if err != nil {
			bailf("error acquiring video: %s", err)
		}
		fmt.Printf("%s (%d bytes)\n", result.Path, result.Size)
	},
}

// downloadsCmd lists the caller's acquisition history.
var downloadsCmd = &cobra.Command{
	Use:   "downloads",
	Short: "List acquired videos",
	Run: func(cmd *cobra.Command, args []string) {
		client := mediaclient.NewClient(serverURL, serverToken)
		entries, err := client.ListDownloads(context.Background())
		if err != nil {
			bailf("error listing downloads: %s", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "PATH\tSIZE\tSOURCE\tCREATED")
		for _, entry := range entries {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
				entry.Path, entry.Size, entry.SourceURL,
				entry.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		if err := w.Flush(); err != nil {
			bailf("error writing output: %s", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(downloadsCmd)

	for _, cmd := range []*cobra.Command{fetchCmd, downloadsCmd} {
		cmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8089", "Server URL")
		cmd.PersistentFlags().StringVarP(&serverToken, "token", "t", "", "Bearer token")
	}
}
