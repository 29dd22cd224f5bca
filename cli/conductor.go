package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jlynch25/railid/account"
	"github.com/jlynch25/railid/nearby"
	"github.com/jlynch25/railid/ticketing"
	"github.com/spf13/cobra"
)

func (a *app) conductor() account.Conductor {
	return account.Conductor{User: a.cfg.ConductorUser, Password: a.cfg.ConductorPassword}
}

// conductorLogin checks the conductor credential, prompting for the password.
func (a *app) conductorLogin(user string) error {
	password, err := a.readSecret("Conductor password: ")
	if err != nil {
		return err
	}
	return a.conductor().Login(user, password)
}

func (a *app) conductorLoginCommand() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "conductor-login",
		Short: "Check conductor credentials",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&user, "user", "", "conductor user name")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := a.setup(); err != nil {
			return err
		}
		if err := a.conductorLogin(user); err != nil {
			return err
		}
		a.notice("Conductor signed in")
		return nil
	}
	return cmd
}

// errNoAdvertiser is returned by verify when no address is given and there are
// no peers to discover devices through.
var errNoAdvertiser = errors.New("no advertiser address given and RAILID_PEERS is empty")

func (a *app) verifyCommand() *cobra.Command {
	var (
		user        string
		timeout     time.Duration
		peerTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "verify [advertiser-addr] <ticket-id | qr-payload>",
		Short: "Ask a traveller's device to prove it holds a ticket",
		Long: "Ask a traveller's device to prove it holds a ticket. Without an address the\n" +
			"devices reachable through RAILID_PEERS are discovered and asked in turn.",
		Args: cobra.RangeArgs(1, 2),
	}
	cmd.Flags().StringVar(&user, "user", "", "conductor user name")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to wait for the traveller")
	cmd.Flags().DurationVar(&peerTimeout, "peer-timeout", 5*time.Second, "how long each discovered device gets to answer")

	cmd.RunE = a.withStore(func(cmd *cobra.Command, args []string) error {
		if err := a.conductorLogin(user); err != nil {
			return err
		}

		addrs := args[:len(args)-1]
		if len(addrs) == 0 && len(a.cfg.Peers) == 0 {
			return errNoAdvertiser
		}

		ticketID := args[len(args)-1]
		if qr, err := ticketing.ParseQRPayload(ticketID); err == nil {
			ticketID = qr.TicketID
		}

		ctx, cancel := context.WithTimeout(contextOf(cmd), timeout)
		defer cancel()

		conductor, err := nearby.NewInitiator(a.noiseConfig(), a.log)
		if err != nil {
			return err
		}
		defer conductor.Close()

		perPeer := time.Duration(0)
		if len(addrs) == 0 {
			addrs = conductor.Discover(ctx, a.cfg.Peers)
			perPeer = peerTimeout
			fmt.Fprintf(a.out, "Discovered %d devices\n", len(addrs))
		}

		hash, err := a.requestProof(ctx, conductor, addrs, ticketID, perPeer)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "VERIFIED %s\n", hash)

		t, err := a.tickets.FindByID(ticketID)
		switch {
		case errors.Is(err, ticketing.ErrNotFound):
			a.notice("Ticket not in local records; hash not checked")
		case err != nil:
			return err
		case nearby.MatchesTicket(t, hash):
			a.notice("Hash matches ticket " + t.TicketID)
		default:
			return fmt.Errorf("hash does not match ticket %s", t.TicketID)
		}
		return nil
	})
	return cmd
}

// requestProof asks each address in turn until one answers. A perPeer of zero
// gives every address the whole of ctx.
func (a *app) requestProof(ctx context.Context, conductor *nearby.Initiator, addrs []string, ticketID string, perPeer time.Duration) (string, error) {
	lastErr := fmt.Errorf("%w: no device to ask about %s", nearby.ErrNoReply, ticketID)

	for _, addr := range addrs {
		if err := conductor.Connect(ctx, addr); err != nil {
			a.log.WithError(err).WithField("addr", addr).Debug("skipping unreachable device")
			lastErr = err
			continue
		}
		fmt.Fprintf(a.out, "Waiting for %s to confirm %s\n", addr, ticketID)

		vctx, cancel := ctx, context.CancelFunc(func() {})
		if perPeer > 0 {
			vctx, cancel = context.WithTimeout(ctx, perPeer)
		}
		hash, err := conductor.Verify(vctx, ticketID)
		cancel()
		if err == nil {
			return hash, nil
		}
		lastErr = err
	}
	return "", lastErr
}
