package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"support-chat/internal/archive"
	"support-chat/internal/logging"
	"support-chat/internal/records"
)

var dbPath string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy all records into an SQLite database",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := archive.Open(dbPath)
		if err != nil {
			return err
		}
		defer a.Close()

		counts, err := a.Export(cmd.Context(), openStore())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d messages, %d sessions, %d survey responses to %s\n",
			counts.Messages, counts.Sessions, counts.Surveys, dbPath)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print chat and survey statistics as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printStats(cmd, openStore(), cmd.OutOrStdout())
	},
}

func init() {
	exportCmd.Flags().StringVar(&dbPath, "db", "records.db", "SQLite database file")
}

func openStore() *records.Store {
	return records.NewStore(dataDir,
		records.WithLogger(logging.Discard()),
		records.WithStrictLoad(strict),
	)
}

func printStats(cmd *cobra.Command, store *records.Store, w io.Writer) error {
	chat, err := store.GetChatStats(cmd.Context())
	if err != nil {
		return err
	}
	survey, err := store.GetSurveyStats(cmd.Context())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Chat   records.ChatStats   `json:"chat"`
		Survey records.SurveyStats `json:"survey"`
	}{chat, survey})
}
