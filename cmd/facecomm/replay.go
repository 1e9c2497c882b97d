package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/facecomm/internal/app"
)

func newReplayCmd(e *env) *cobra.Command {
	var (
		save        bool
		useSettings bool
	)

	cmd := &cobra.Command{
		Use:   "replay <session-id>",
		Short: "Re-run a recorded session through a fresh classifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			opts := app.ReplayOptions{Persist: save, Logger: e.logger}
			if useSettings {
				opts.Thresholds = e.config.Thresholds
			}
			res, err := app.Replay(st, args[0], opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session %s: %d frames, %d events (recorded %d)\n",
				res.SourceID, res.Frames, len(res.Events), len(res.Original))
			if res.SessionID != "" {
				fmt.Fprintf(out, "saved as session %s\n", res.SessionID)
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tREPLAY\tRECORDED")
			n := max(len(res.Events), len(res.Original))
			for i := 0; i < n; i++ {
				var at, got, want string
				if i < len(res.Events) {
					at = res.Events[i].Time.Format("15:04:05.000")
					got = res.Events[i].Kind.String()
				}
				if i < len(res.Original) {
					if at == "" {
						at = res.Original[i].OccurredAt.Format("15:04:05.000")
					}
					want = res.Original[i].Gesture.String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", at, orDash(got), orDash(want))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if res.Matches() {
				fmt.Fprintln(out, "replay matches the recording")
			} else {
				fmt.Fprintln(out, "replay differs from the recording")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "store the replay as a new session")
	cmd.Flags().BoolVar(&useSettings, "thresholds", false, "use thresholds.yaml instead of the session's profile")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
