package main

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"sorso/internal/client"
	"sorso/internal/packages"
	"sorso/internal/report"
	"sorso/internal/staff"

	"github.com/spf13/cobra"
)

func newStaffCmd(a *app) *cobra.Command {
	var console *staff.Console

	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Staff area: nights, inventory and reservations",
		// every subcommand but login starts from the saved session
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			console = staff.NewConsole(a.api, a.bus,
				staff.WithLogger(a.log),
				staff.WithBucket(a.cfg.Bucket),
				staff.WithRedirect(func() {
					fmt.Fprintln(a.errOut, "Sessione terminata: esegui `sorsoctl staff login`")
				}),
			)
			if cmd.Name() == "login" {
				return nil
			}
			return a.mount(cmd, console)
		},
	}

	get := func() *staff.Console { return console }

	cmd.AddCommand(
		newStaffLoginCmd(a, get),
		newStaffLogoutCmd(a, get),
		newStaffEventsCmd(a, get),
		newStaffCreateEventCmd(a, get),
		newStaffTotalsCmd(a, get),
		newStaffToggleCmd(a, get),
		newStaffReservationsCmd(a, get),
		newStaffExportCmd(a, get),
		newStaffUploadPosterCmd(a, get),
	)
	return cmd
}

// mount restores the saved session, refreshing it when the access token has expired
func (a *app) mount(cmd *cobra.Command, console *staff.Console) error {
	ctx := cmd.Context()

	saved, err := a.session.Load()
	if err != nil {
		a.log.Warn("ignoring unreadable session file", "error", err.Error())
	}
	if saved == nil {
		return fail(staff.Message(staff.ErrSessionRequired), staff.ErrSessionRequired)
	}
	a.api.RestoreSession(saved)

	if !saved.ExpiresAt.IsZero() && saved.ExpiresAt.Before(timeNow()) {
		refreshed, err := a.api.RefreshSession(ctx).Unwrap()
		if err != nil {
			_ = a.session.Remove()
			return fail(staff.Message(staff.ErrSessionRequired), err)
		}
		if err := a.session.Save(&refreshed); err != nil {
			a.log.Warn("could not save refreshed session", "error", err.Error())
		}
	}

	if err := console.Mount(ctx); err != nil {
		return fail(staff.Message(err), err)
	}
	return nil
}

func staffFail(err error) error {
	return fail(staff.Message(err), err)
}

func newStaffLoginCmd(a *app, console func() *staff.Console) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as staff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("SORSO_STAFF_PASSWORD")
			}
			if err := console().SignIn(cmd.Context(), email, password); err != nil {
				return staffFail(err)
			}
			fmt.Fprintln(a.out, "Accesso effettuato")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "staff e-mail")
	cmd.Flags().StringVar(&password, "password", "", "password (or SORSO_STAFF_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newStaffLogoutCmd(a *app, console func() *staff.Console) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := console().Logout(cmd.Context())
			// the local session is gone either way
			_ = a.session.Remove()
			if err != nil {
				return staffFail(err)
			}
			fmt.Fprintln(a.out, "Disconnesso")
			return nil
		},
	}
}

func newStaffEventsCmd(a *app, console func() *staff.Console) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List every night, hidden ones included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, err := console().LoadEvents(cmd.Context())
			if err != nil {
				return staffFail(err)
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATA\tEVENTO\tSTATO\tID")
			for _, e := range events {
				state := "attivo"
				if !e.Active {
					state = "nascosto"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", report.DateLabel(e.Night()), e.Title, state, e.ID)
			}
			return tw.Flush()
		},
	}
}

// totalsFlags registers --base/--premium/--elite and reports only the ones given
func totalsFlags(cmd *cobra.Command) func() client.Totals {
	values := make(map[packages.Code]*int, len(packages.Order))
	for _, code := range packages.Order {
		values[code] = cmd.Flags().Int(string(code), 0, fmt.Sprintf("%s tables", code))
	}
	return func() client.Totals {
		out := client.Totals{}
		for _, code := range packages.Order {
			if cmd.Flags().Changed(string(code)) {
				out[code] = *values[code]
			}
		}
		return out
	}
}

func newStaffCreateEventCmd(a *app, console func() *staff.Console) *cobra.Command {
	var draft staff.EventDraft
	var hidden bool

	cmd := &cobra.Command{
		Use:     "create-event",
		Short:   "Create a night with its table inventory",
		Example: `  sorsoctl staff create-event --title "Venerdì Italiano" --date 2026-10-23 --premium 20 --elite 10`,
		Args:    cobra.NoArgs,
	}
	totals := totalsFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		draft.Active = !hidden
		draft.Totals = totals()

		event, err := console().CreateEvent(cmd.Context(), draft)
		if err != nil {
			var partial *staff.PartialEventError
			if errors.As(err, &partial) {
				fmt.Fprintf(a.out, "Evento creato: %s\n", partial.EventID)
			}
			return staffFail(err)
		}
		fmt.Fprintln(a.out, "Evento creato ✅")
		fmt.Fprintf(a.out, "%s  %s  %s\n", report.DateLabel(event.Night()), event.Title, event.ID)
		return nil
	}

	cmd.Flags().StringVar(&draft.Title, "title", "", "title of the night")
	cmd.Flags().StringVar(&draft.Date, "date", "", "date as YYYY-MM-DD")
	cmd.Flags().StringVar(&draft.PosterURL, "poster", "", "poster URL")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "create the night without showing it")
	return cmd
}

func newStaffTotalsCmd(a *app, console func() *staff.Console) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "totals EVENT_ID",
		Short: "Change the number of tables per package",
		Args:  cobra.ExactArgs(1),
	}
	totals := totalsFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		rows, err := console().UpdateAvailabilityTotals(cmd.Context(), args[0], totals())
		if err != nil {
			return staffFail(err)
		}
		fmt.Fprintln(a.out, "Disponibilità aggiornata ✅")
		printRows(a, rows)
		return nil
	}
	return cmd
}

func printRows(a *app, rows []client.PackageAvailability) {
	catalog := packages.Default()
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PACCHETTO\tTOTALE\tPRENOTATI\tLIBERI")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", catalog.Label(r.Package), r.TotalTables, r.BookedTables, r.TotalTables-r.BookedTables)
	}
	_ = tw.Flush()
}

func newStaffToggleCmd(a *app, console func() *staff.Console) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle EVENT_ID",
		Short: "Show or hide a night",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := console().ToggleEventActive(cmd.Context(), args[0])
			if err != nil {
				return staffFail(err)
			}
			if event.Active {
				fmt.Fprintln(a.out, "Evento attivato ✅")
			} else {
				fmt.Fprintln(a.out, "Evento disattivato ✅")
			}
			return nil
		},
	}
}

func newStaffReservationsCmd(a *app, console func() *staff.Console) *cobra.Command {
	return &cobra.Command{
		Use:   "reservations EVENT_ID",
		Short: "List a night's reservations, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := console().ListReservations(cmd.Context(), args[0])
			if err != nil {
				return staffFail(err)
			}
			printReport(a, rep)
			return nil
		},
	}
}

func printReport(a *app, rep *staff.Report) {
	catalog := packages.Default()
	fmt.Fprintf(a.out, "%s  %s\n\n", report.DateLabel(rep.Event.Night()), rep.Event.Title)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATA\tNOME\tTELEFONO\tPACCHETTO\tTAVOLI\tTOTALE\tNOTE")
	for _, r := range rep.Reservations {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			report.Timestamp(r.CreatedAt), r.Name, r.Phone, catalog.Label(r.Package), r.Tables, report.Euro(r.Total), r.Notes)
	}
	_ = tw.Flush()

	fmt.Fprintln(a.out)
	for _, code := range packages.Order {
		s := rep.ByPackage[code]
		fmt.Fprintf(a.out, "%-8s %3d tavoli  %s  (%d prenotazioni)\n", catalog.Label(code), s.Tables, report.Euro(s.Revenue), s.Count)
	}
	fmt.Fprintf(a.out, "Totale   %3d tavoli  %s  (%d prenotazioni)\n", rep.TotalTables, report.Euro(rep.TotalRevenue), rep.Count)
}

func newStaffExportCmd(a *app, console func() *staff.Console) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export EVENT_ID",
		Short: "Save a night's reservations as PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := console()
			if _, err := c.ListReservations(cmd.Context(), args[0]); err != nil {
				return staffFail(err)
			}

			tmp, err := os.CreateTemp(dir, "prenotazioni-*.pdf")
			if err != nil {
				return fail("Impossibile scrivere il file", err)
			}
			defer os.Remove(tmp.Name())

			name, err := c.ExportReservations(tmp, args[0])
			if cerr := tmp.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return staffFail(err)
			}

			target := filepath.Join(dir, name)
			if err := os.Rename(tmp.Name(), target); err != nil {
				return fail("Impossibile scrivere il file", err)
			}
			fmt.Fprintln(a.out, target)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to write the PDF to")
	return cmd
}

func newStaffUploadPosterCmd(a *app, console func() *staff.Console) *cobra.Command {
	return &cobra.Command{
		Use:   "upload-poster EVENT_ID FILE",
		Short: "Upload a poster image and use it for the night",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return fail("Impossibile leggere il file", err)
			}
			defer f.Close()

			contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(args[1])))
			event, err := console().UploadPoster(cmd.Context(), args[0], filepath.Base(args[1]), f, contentType)
			if err != nil {
				return staffFail(err)
			}
			fmt.Fprintln(a.out, "Copertina aggiornata ✅")
			if event.PosterURL != nil {
				fmt.Fprintln(a.out, *event.PosterURL)
			}
			return nil
		},
	}
}
