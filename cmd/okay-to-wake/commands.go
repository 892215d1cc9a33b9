package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sweeney/okay-to-wake/internal/logic"
	"github.com/sweeney/okay-to-wake/internal/parse"
	"github.com/sweeney/okay-to-wake/internal/schedule"
	"github.com/sweeney/okay-to-wake/internal/source"
	"github.com/sweeney/okay-to-wake/internal/store"
)

var errCorrupted = errors.New("stored schedule is corrupted")

var (
	validateKind string
	validateCmd  = cobra.Command{
		Use:   "validate <file>",
		Short: "Parse a schedule file and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			kind := source.KindForPath(args[0])
			if validateKind != "" {
				if kind, err = parse.ParseKind(validateKind); err != nil {
					return err
				}
			}
			return validate(cmd.OutOrStdout(), payload, kind)
		},
	}

	showCmd = cobra.Command{
		Use:   "show",
		Short: "Print the persisted schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, _ := openStore(viper.GetViper())
			return show(cmd.OutOrStdout(), st)
		},
	}

	printStateCmd = cobra.Command{
		Use:   "print-state",
		Short: "Print the current light state and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := time.LoadLocation(viper.GetString("clock.timezone"))
			if err != nil {
				return fmt.Errorf("load timezone: %w", err)
			}
			st, _ := openStore(viper.GetViper())
			return printState(cmd.OutOrStdout(), st, time.Now().In(loc))
		},
	}
)

func init() {
	validateCmd.Flags().StringVar(&validateKind, "kind", "", "Payload kind (text, json, yaml); default from the file extension")
}

func validate(out io.Writer, payload []byte, kind parse.Kind) error {
	w, err := parse.Parse(kind, payload)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%schecksum: %08x\n", schedule.Format(w), w.Checksum)
	return nil
}

func show(out io.Writer, st store.RecordStore) error {
	rec, err := st.ReadRecord()
	if err != nil {
		return err
	}
	w, corrupted := schedule.Load(rec)
	if corrupted {
		return errCorrupted
	}
	fmt.Fprintf(out, "%schecksum: %08x\n", schedule.Format(w), w.Checksum)
	return nil
}

// printState classifies now against the stored schedule, falling back to
// the defaults the daemon would use. It never writes to the store.
func printState(out io.Writer, st store.RecordStore, now time.Time) error {
	w := schedule.DefaultWeek()
	rec, err := st.ReadRecord()
	if err != nil {
		return err
	}
	if stored, corrupted := schedule.Load(rec); !corrupted {
		w = stored
	}
	weekday := logic.WeekdayIndex(now)
	minute := logic.MinuteOfDay(now)
	state := logic.Classify(minute, w.Day(weekday))
	fmt.Fprintf(out, "%s %s: %s\n", schedule.WeekdayName(weekday), schedule.FromMinutes(minute), logic.StateLabel(state))
	return nil
}
