package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/jlynch25/railid/account"
	"github.com/jlynch25/railid/gate"
	"github.com/jlynch25/railid/nearby"
	"github.com/jlynch25/railid/ticketing"
	"github.com/spf13/cobra"
	"gopkg.in/vrecan/death.v3"
)

func (a *app) signupCommand() *cobra.Command {
	var s account.SignUp

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a traveller account",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&s.UserID, "id", "", "user id")
	cmd.Flags().StringVar(&s.Name, "name", "", "full name")
	cmd.Flags().StringVar(&s.Number, "number", "", "phone number")
	cmd.Flags().StringVar(&s.Email, "email", "", "email address")
	cmd.Flags().StringVar(&s.DOB, "dob", "", "date of birth, dd/mm/yyyy")

	cmd.RunE = a.withStore(func(cmd *cobra.Command, args []string) error {
		var err error
		if s.Password, err = a.readSecret("Password: "); err != nil {
			return err
		}
		if s.ConfirmPassword, err = a.readSecret("Confirm password: "); err != nil {
			return err
		}

		if err := a.accounts.Register(s); err != nil {
			return err
		}
		a.notice("Sign up successful")
		return nil
	})
	return cmd
}

func (a *app) loginCommand() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as a traveller",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&id, "id", "", "user id")

	cmd.RunE = a.withStore(func(cmd *cobra.Command, args []string) error {
		password, err := a.readSecret("Password: ")
		if err != nil {
			return err
		}

		p, err := a.accounts.Login(id, password)
		if err != nil {
			return err
		}
		a.notice("Welcome, " + p.Name)
		return nil
	})
	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign the current traveller out",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			if err := a.accounts.Logout(); err != nil {
				return err
			}
			a.notice("Logged out")
			return nil
		}),
	}
}

func (a *app) profileCommand() *cobra.Command {
	var (
		name           string
		changePassword bool
	)

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the signed-in traveller's profile",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().BoolVar(&changePassword, "change-password", false, "prompt for a new password")

	cmd.RunE = a.withStore(func(cmd *cobra.Command, args []string) error {
		var password string
		if changePassword {
			var err error
			if password, err = a.readSecret("New password: "); err != nil {
				return err
			}
		}
		if name != "" || password != "" {
			if err := a.accounts.UpdateProfile(name, password); err != nil {
				return err
			}
			a.notice("Profile updated")
		}

		id, p, err := a.accounts.Current()
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s\t%s\t%s\t%s\t%s\n", id, p.Name, p.Number, p.Email, p.DOB)
		return nil
	})
	return cmd
}

// parsePassenger reads "name:age[:gender]".
func parsePassenger(s string) (ticketing.Passenger, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return ticketing.Passenger{}, fmt.Errorf("%w: passenger %q is not name:age[:gender]", ticketing.ErrValidation, s)
	}

	age, err := strconv.Atoi(parts[1])
	if err != nil {
		return ticketing.Passenger{}, fmt.Errorf("%w: passenger age %q", ticketing.ErrValidation, parts[1])
	}
	var gender string
	if len(parts) == 3 {
		gender = strings.ToUpper(parts[2])
	}
	return ticketing.NewPassenger(parts[0], age, gender)
}

func parseAuthMethod(s string) (ticketing.AuthMethod, error) {
	switch m := ticketing.AuthMethod(strings.ToUpper(s)); m {
	case ticketing.AuthFingerprint, ticketing.AuthFace, ticketing.AuthNone:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown auth method %q", ticketing.ErrValidation, s)
}

func (a *app) bookCommand() *cobra.Command {
	var (
		train      ticketing.Train
		passengers []string
		seats      []string
		auth       string
	)

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book a ticket for the signed-in traveller",
		Args:  cobra.NoArgs,
	}
	f := cmd.Flags()
	f.StringVar(&train.Name, "train-name", "", "train name")
	f.StringVar(&train.Number, "train-number", "", "train number")
	f.StringVar(&train.Time, "time", "", "departure time, HH:mm")
	f.StringVar(&train.Date, "date", "", "travel date, yyyy-mm-dd")
	f.StringVar(&train.Source, "from", "", "source station")
	f.StringVar(&train.Destination, "to", "", "destination station")
	f.StringVar(&train.TravelClass, "class", "Sleeper", "travel class")
	f.IntVar(&train.Seats, "seats-available", 0, "seats available on the train")
	f.Float64Var(&train.Fare, "fare", 0, "fare per passenger")
	f.StringArrayVar(&passengers, "passenger", nil, "passenger as name:age[:gender], repeatable")
	f.StringSliceVar(&seats, "seat", nil, "seat numbers, one per passenger")
	f.StringVar(&auth, "auth", "fingerprint", "fingerprint, face or none")

	cmd.RunE = a.withStore(func(cmd *cobra.Command, args []string) error {
		if _, _, err := a.accounts.Current(); err != nil {
			return err
		}

		method, err := parseAuthMethod(auth)
		if err != nil {
			return err
		}

		var list []ticketing.Passenger
		for _, p := range passengers {
			passenger, err := parsePassenger(p)
			if err != nil {
				return err
			}
			list = append(list, passenger)
		}

		var opts []ticketing.BookingOption
		if len(seats) > 0 {
			opts = append(opts, ticketing.WithSeats(seats...))
		}
		b, err := ticketing.NewBooking(train, list, method, opts...)
		if err != nil {
			return err
		}

		var t ticketing.Ticket
		if method == ticketing.AuthFingerprint {
			t, err = a.manager.Issue(contextOf(cmd), b, a.authenticator())
		} else {
			t, err = a.manager.Create(b, method)
		}
		if err != nil {
			return err
		}

		a.notice("Booked " + t.TicketID)
		a.printTicket(t)
		return nil
	})
	return cmd
}

func (a *app) printTicket(t ticketing.Ticket) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Ticket\t%s\n", t.TicketID)
	fmt.Fprintf(w, "Train\t%s (%s)\n", t.TrainName, t.TrainNumber)
	fmt.Fprintf(w, "Route\t%s -> %s\n", t.Source, t.Destination)
	fmt.Fprintf(w, "Departs\t%s %s\n", t.FormattedDate(), t.FormattedTime())
	fmt.Fprintf(w, "Arrives\t%s (%s)\n", t.ArrivalTime, t.JourneyDuration())
	fmt.Fprintf(w, "Class\t%s\n", t.TravelClass)
	for i, p := range t.Passengers {
		fmt.Fprintf(w, "Passenger\t%s, %d, %s, seat %s\n", p.Name, p.Age, p.Gender, t.SeatNumbers[i])
	}
	fmt.Fprintf(w, "Fare\t%.2f\n", t.TotalFare)
	fmt.Fprintf(w, "Status\t%s\n", t.Status)
	w.Flush()
}

func (a *app) ticketsCommand() *cobra.Command {
	var (
		status string
		sorted bool
	)

	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "List tickets in the local store",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&status, "status", "ACTIVE", "ACTIVE, CANCELLED, COMPLETED, EXPIRED or all")
	cmd.Flags().BoolVar(&sorted, "by-date", false, "sort active tickets by travel date")

	cmd.RunE = a.withStore(func(cmd *cobra.Command, args []string) error {
		var (
			list []ticketing.Ticket
			err  error
		)
		switch {
		case strings.EqualFold(status, "all"):
			list, err = a.tickets.All()
		case sorted:
			list, err = a.tickets.Active()
		default:
			st, perr := ticketing.ParseStatus(status)
			if perr != nil {
				return perr
			}
			list, err = a.tickets.ListByStatus(st)
		}
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTRAIN\tROUTE\tDATE\tPAX\tSTATUS\tUPCOMING")
		for _, t := range list {
			fmt.Fprintf(w, "%s\t%s\t%s-%s\t%s\t%d\t%s\t%v\n",
				t.TicketID, t.TrainNumber, t.Source, t.Destination, t.Date, len(t.Passengers), t.Status, a.manager.IsFutureTicket(t))
		}
		return w.Flush()
	})
	return cmd
}

func (a *app) cancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <ticket-id>",
		Short: "Cancel a ticket after a captcha check",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			t, err := a.tickets.FindByID(args[0])
			if err != nil {
				return err
			}
			a.printTicket(t)

			captcha, err := gate.NewCaptcha()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Captcha: %s\n", captcha.Code())
			input, err := a.readLine("Enter captcha: ")
			if err != nil {
				return err
			}
			pass, err := captcha.Solve(strings.TrimSpace(input))
			if err != nil {
				return err
			}

			if err := a.manager.Cancel(t.TicketID, pass); err != nil {
				return err
			}
			a.notice("Ticket cancelled")
			return nil
		}),
	}
}

func (a *app) qrCommand() *cobra.Command {
	var parse bool

	cmd := &cobra.Command{
		Use:   "qr <ticket-id | payload>",
		Short: "Print a ticket's QR payload, or decode one with --parse",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&parse, "parse", false, "decode a scanned payload")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if parse {
			qr, err := ticketing.ParseQRPayload(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Ticket %s, train %s, %s -> %s\n", qr.TicketID, qr.TrainNumber, qr.Source, qr.Destination)
			return nil
		}

		return a.withStore(func(cmd *cobra.Command, args []string) error {
			t, err := a.tickets.FindByID(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, t.QRPayload())
			return nil
		})(cmd, args)
	}
	return cmd
}

func (a *app) advertiseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "advertise <ticket-id>",
		Short: "Show a ticket and answer conductor verification requests until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}

			t, err := a.tickets.FindByID(args[0])
			if err != nil {
				a.close()
				return err
			}
			a.printTicket(t)

			transport, err := nearby.NewNoiseTransport(a.noiseConfig(), a.log)
			if err != nil {
				a.close()
				return err
			}
			session := nearby.NewSession(transport, nearby.WithLogger(a.log))
			responder := nearby.NewResponder(session, a.tickets, a.authenticator(), nearby.NotifierFunc(a.notice), a.log)
			responder.Show(t.TicketID)

			ctx, cancel := context.WithCancel(contextOf(cmd))
			defer cancel()

			if err := responder.Start(ctx); err != nil {
				session.Close()
				a.close()
				return err
			}
			if len(a.cfg.Peers) > 0 {
				transport.Bootstrap(ctx, a.cfg.Peers)
			}
			fmt.Fprintf(a.out, "Conductors can verify at %s\n", transport.Addr())

			d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
			go func() {
				<-ctx.Done()
				d.FallOnSword()
			}()
			return d.WaitForDeath(session, a.kv)
		},
	}
}

func (a *app) noiseConfig() nearby.NoiseConfig {
	return nearby.NoiseConfig{
		Host:        a.cfg.BindHost,
		Port:        a.cfg.BindPort,
		Address:     a.cfg.AdvertiseAddress,
		SendTimeout: a.cfg.SendTimeout,
	}
}
