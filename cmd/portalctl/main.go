package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stealthcompany.com/clinicportal/internal/backend"
	"stealthcompany.com/clinicportal/internal/config"
	"stealthcompany.com/clinicportal/internal/orchestrator"
	"stealthcompany.com/clinicportal/internal/store"
	"stealthcompany.com/clinicportal/internal/views"
)

// session is the connected state shared by every subcommand.
type session struct {
	cfg    *config.Config
	log    zerolog.Logger
	opened *backend.Opened
	store  *store.Store
	views  *views.Synthesizer
}

func main() {
	s := &session{}

	rootCmd := &cobra.Command{
		Use:           "portalctl",
		Short:         "Inspect clinic portal data straight from the configured store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return s.close()
		},
	}

	rootCmd.AddCommand(getCmd(s))
	rootCmd.AddCommand(appointmentsCmd(s))
	rootCmd.AddCommand(rosterCmd(s))
	rootCmd.AddCommand(dashboardCmd(s))
	rootCmd.AddCommand(attendanceCmd(s))
	rootCmd.AddCommand(ingestCmd(s))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (s *session) open(ctx context.Context) error {
	cfg, logger, err := orchestrator.Bootstrap("ctl", os.Stderr)
	if err != nil {
		return err
	}
	opened, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}

	s.cfg = cfg
	s.log = logger
	s.opened = opened
	s.store = store.New(opened.Backend, logger)
	s.views = views.NewSynthesizer(s.store, logger)
	return nil
}

func (s *session) close() error {
	if s.opened == nil {
		return nil
	}
	return s.opened.Close()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func getCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "get <resourceType> <id>",
		Short: "Print one stored resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := s.store.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func appointmentsCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appointments",
		Short: "List enriched appointments",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "patient <patientId>",
		Short: "A patient's appointments, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := s.views.ListAppointmentsForPatient(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(list)
		},
	})

	practitionerCmd := &cobra.Command{
		Use:   "practitioner <practitionerId>",
		Short: "A practitioner's appointments, earliest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			list, err := s.views.ListAppointmentsForPractitioner(cmd.Context(), args[0], date)
			if err != nil {
				return err
			}
			return printJSON(list)
		},
	}
	practitionerCmd.Flags().String("date", "", "Only appointments starting on this day (YYYY-MM-DD)")
	cmd.AddCommand(practitionerCmd)

	return cmd
}

func rosterCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "roster <practitionerId>",
		Short: "Patients a practitioner has seen, with visit counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := s.views.SynthesizePatientRoster(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(roster)
		},
	}
}

func dashboardCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard <practitionerId>",
		Short: "A practitioner's dashboard counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			today, _ := cmd.Flags().GetString("today")
			if today == "" {
				today = time.Now().Format(time.DateOnly)
			}
			stats, err := s.views.DashboardStats(cmd.Context(), args[0], today)
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
	cmd.Flags().String("today", "", "Day to count as today (YYYY-MM-DD), defaults to the local date")
	return cmd
}

func attendanceCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "attendance <practitionerId> <appointmentId>",
		Short: "Everything a practitioner sees while attending an appointment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := s.views.AttendanceContext(cmd.Context(), args[1], args[0])
			if err != nil {
				return err
			}
			return printJSON(bundle)
		},
	}
}

func ingestCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Pull the upstream FHIR server into the store once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return orchestrator.NewIngestService(s.cfg, s.opened, s.log).Run(cmd.Context())
		},
	}
}
