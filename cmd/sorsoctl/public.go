package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"sorso/internal/booking"
	"sorso/internal/packages"
	"sorso/internal/report"

	"github.com/spf13/cobra"
)

func newEventsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List the nights open for reservations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, err := a.api.ListActiveEvents(cmd.Context()).Unwrap()
			if err != nil {
				return fail("Errore nel caricamento degli eventi", err)
			}
			if len(events) == 0 {
				fmt.Fprintln(a.out, "Nessun evento disponibile al momento")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATA\tEVENTO\tID")
			for _, e := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", report.DateLabel(e.Night()), e.Title, e.ID)
			}
			return tw.Flush()
		},
	}
}

func newPackagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "packages",
		Short: "Show the table packages and their prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := a.api.ListPackages(cmd.Context()).Unwrap()
			if err != nil {
				return fail("Errore nel caricamento dei pacchetti", err)
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PACCHETTO\tPREZZO/TAVOLO\tZONA\tBOTTIGLIE")
			for _, p := range catalog.Packages {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Label, report.Euro(p.PricePerTable), p.Area, strings.Join(p.Bottles, ", "))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "\n%d persone per tavolo\n", catalog.PeoplePerTable)
			return nil
		},
	}
}

type bookFlags struct {
	event  string
	pkg    string
	tables int
	name   string
	phone  string
	notes  string
}

func newBookCmd(a *app) *cobra.Command {
	var f bookFlags

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Reserve tables for a night",
		Example: `  sorsoctl book --event 3f1c... --package premium --tables 2 \
    --name "Giulia Rossi" --phone "333 1234567" --notes compleanno`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.book(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.event, "event", "", "event id (defaults to the next night)")
	cmd.Flags().StringVar(&f.pkg, "package", "", "base, premium or elite")
	cmd.Flags().IntVar(&f.tables, "tables", 1, "number of tables")
	cmd.Flags().StringVar(&f.name, "name", "", "guest name")
	cmd.Flags().StringVar(&f.phone, "phone", "", "guest phone number")
	cmd.Flags().StringVar(&f.notes, "notes", "", "notes for the staff")
	return cmd
}

func (a *app) book(cmd *cobra.Command, f bookFlags) error {
	ctx := cmd.Context()
	catalog := packages.Default()
	wizard := booking.NewController(a.api, catalog, a.bus, a.log)

	events, err := wizard.LoadActiveEvents(ctx)
	if err != nil {
		return fail(booking.Message(err), err)
	}
	if len(events) == 0 {
		return fail(booking.Message(booking.ErrNoActiveEvents), booking.ErrNoActiveEvents)
	}

	if f.event != "" {
		if _, err := wizard.SelectEvent(ctx, f.event); err != nil {
			return fail(booking.Message(err), err)
		}
	}

	if f.pkg != "" {
		code, err := packages.ParseCode(strings.ToLower(f.pkg))
		if err != nil {
			return fail(booking.Message(err), err)
		}
		if err := wizard.SelectPackage(code); err != nil {
			return fail(booking.Message(err), err)
		}
	}

	if err := wizard.SetTables(f.tables); err != nil {
		return fail(booking.Message(err), err)
	}
	wizard.SetContact(f.name, f.phone, f.notes)

	res, err := wizard.Submit(ctx)
	if err != nil {
		return fail(booking.Message(err), err)
	}

	st := wizard.State()
	fmt.Fprintln(a.out, "Prenotazione inviata ✅")
	fmt.Fprintf(a.out, "Codice:    %s\n", res.Ref)
	fmt.Fprintf(a.out, "Pacchetto: %s, %d tavoli (%d persone)\n", catalog.Label(res.Package), res.Tables, catalog.People(res.Tables))
	fmt.Fprintf(a.out, "Totale:    %s\n", report.Euro(res.Total))
	fmt.Fprintf(a.out, "Tavoli ancora liberi: %d\n", st.Remaining[res.Package])
	return nil
}
