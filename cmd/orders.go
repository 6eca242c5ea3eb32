package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sabarim/starmf/internal/audit"
	"github.com/sabarim/starmf/internal/order"
	"github.com/sabarim/starmf/internal/schemes"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate and report the session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(true, func(ctx context.Context, a *app) error {
				snap := a.auth.Snapshot()
				fmt.Printf("state: %s\nvalid_until: %s\n", snap.State, snap.ValidUntil.Format(time.RFC3339))
				return nil
			})
		},
	}
}

func newLumpsumCmd() *cobra.Command {
	var (
		r              order.Lumpsum
		amount, qty    string
		modify, redeem bool
	)
	cmd := &cobra.Command{
		Use:   "lumpsum",
		Short: "Place a lumpsum purchase or redemption",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if r.Amount, err = parseAmount("amount", amount); err != nil {
				return err
			}
			if r.Quantity, err = parseAmount("qty", qty); err != nil {
				return err
			}
			r.BuySell = "P"
			if redeem {
				r.BuySell = "R"
			}
			if modify {
				r.TransCode = "MOD"
			}
			return run(true, func(ctx context.Context, a *app) error {
				res, err := a.client.PlaceLumpsum(ctx, r)
				return printResult(res, err)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&r.TransNo, "ref", "", "Unique reference number")
	f.StringVar(&r.OrderID, "order-id", "", "Order to modify")
	f.BoolVar(&modify, "modify", false, "Modify an existing order")
	f.StringVar(&r.ClientCode, "client", "", "Client code")
	f.StringVar(&r.SchemeCode, "scheme", "", "Scheme code")
	f.BoolVar(&redeem, "redeem", false, "Redeem instead of purchase")
	f.StringVar(&r.BuySellType, "type", "", "FRESH or ADDITIONAL")
	f.StringVar(&r.DPTxn, "dp-txn", "P", "DP transaction mode (C, N or P)")
	f.StringVar(&amount, "amount", "", "Order amount")
	f.StringVar(&qty, "qty", "", "Units to redeem")
	f.StringVar(&r.AllRedeem, "all-units", "", "Redeem all units (Y/N)")
	f.StringVar(&r.FolioNo, "folio", "", "Folio number")
	f.StringVar(&r.EUIN, "euin", "", "Employee unique id")
	f.StringVar(&r.SubBrokerARN, "sub-broker", "", "Sub-broker ARN")
	f.StringVar(&r.Remarks, "remarks", "", "Remarks")
	return cmd
}

// sipFlags binds the flags shared by the sip and xsip commands.
func sipFlags(cmd *cobra.Command, r *order.SIP, amount, start *string) {
	f := cmd.Flags()
	f.StringVar(&r.TransNo, "ref", "", "Unique reference number")
	f.StringVar(&r.ClientCode, "client", "", "Client code")
	f.StringVar(&r.SchemeCode, "scheme", "", "Scheme code")
	f.StringVar(&r.DPTxn, "dp-txn", "P", "DP transaction mode (C, N or P)")
	f.StringVar(start, "start", "", "Start date (DD/MM/YYYY)")
	f.StringVar(&r.Frequency, "frequency", "MONTHLY", "MONTHLY, QUARTERLY, WEEKLY or DAILY")
	f.StringVar(amount, "amount", "", "Installment amount")
	f.IntVar(&r.Installments, "installments", 12, "Number of installments")
	f.StringVar(&r.FirstOrderToday, "first-order-today", "", "Place the first installment today (Y/N)")
	f.StringVar(&r.FolioNo, "folio", "", "Folio number")
	f.StringVar(&r.EUIN, "euin", "", "Employee unique id")
	f.StringVar(&r.Remarks, "remarks", "", "Remarks")
}

type sipInput struct {
	sip           order.SIP
	amount, start string
}

func (r *sipInput) parse() error {
	var err error
	if r.sip.InstallmentAmount, err = parseAmount("amount", r.amount); err != nil {
		return err
	}
	r.sip.StartDate, err = parseDate("start", r.start)
	return err
}

func newSIPCmd() *cobra.Command {
	var in sipInput
	var regID, cancel string
	cmd := &cobra.Command{
		Use:   "sip",
		Short: "Register, or with --cancel withdraw, a SIP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cancel != "" {
				return run(true, func(ctx context.Context, a *app) error {
					res, err := a.client.CancelSIP(ctx, order.SIPCancel{RegID: cancel, ClientCode: in.sip.ClientCode})
					return printResult(res, err)
				})
			}
			if regID != "" {
				mod := order.SIPModify{TransNo: in.sip.TransNo, RegID: regID, ClientCode: in.sip.ClientCode}
				var err error
				if mod.Amount, err = parseAmount("amount", in.amount); err != nil {
					return err
				}
				if cmd.Flags().Changed("installments") {
					mod.Installments = in.sip.Installments
				}
				return run(true, func(ctx context.Context, a *app) error {
					res, err := a.client.ModifySIP(ctx, mod)
					return printResult(res, err)
				})
			}
			if err := in.parse(); err != nil {
				return err
			}
			return run(true, func(ctx context.Context, a *app) error {
				res, err := a.client.PlaceSIP(ctx, in.sip)
				return printResult(res, err)
			})
		},
	}
	sipFlags(cmd, &in.sip, &in.amount, &in.start)
	cmd.Flags().StringVar(&regID, "modify", "", "Registration id to modify")
	cmd.Flags().StringVar(&cancel, "cancel", "", "Registration id to cancel")
	return cmd
}

func newXSIPCmd() *cobra.Command {
	var in sipInput
	var r order.XSIP
	var regID, cancel string
	cmd := &cobra.Command{
		Use:   "xsip",
		Short: "Register, modify or cancel a mandate backed XSIP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cancel != "" {
				return run(true, func(ctx context.Context, a *app) error {
					res, err := a.client.CancelXSIP(ctx, order.XSIPCancel{RegID: cancel, ClientCode: in.sip.ClientCode})
					return printResult(res, err)
				})
			}
			if regID != "" {
				mod := order.XSIPModify{TransNo: in.sip.TransNo, RegID: regID, ClientCode: in.sip.ClientCode}
				var err error
				if mod.Amount, err = parseAmount("amount", in.amount); err != nil {
					return err
				}
				if cmd.Flags().Changed("installments") {
					mod.Installments = in.sip.Installments
				}
				return run(true, func(ctx context.Context, a *app) error {
					res, err := a.client.ModifyXSIP(ctx, mod)
					return printResult(res, err)
				})
			}
			if err := in.parse(); err != nil {
				return err
			}
			r.SIP = in.sip
			return run(true, func(ctx context.Context, a *app) error {
				res, err := a.client.PlaceXSIP(ctx, r)
				return printResult(res, err)
			})
		},
	}
	sipFlags(cmd, &in.sip, &in.amount, &in.start)
	cmd.Flags().StringVar(&r.MandateID, "mandate", "", "Mandate id")
	cmd.Flags().StringVar(&regID, "modify", "", "Registration id to modify")
	cmd.Flags().StringVar(&cancel, "cancel", "", "Registration id to cancel")
	return cmd
}

func newSwitchCmd() *cobra.Command {
	var (
		r             order.Switch
		amount, units string
	)
	cmd := &cobra.Command{
		Use:   "switch",
		Short: "Switch holdings between two schemes",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if r.Amount, err = parseAmount("amount", amount); err != nil {
				return err
			}
			if r.Units, err = parseAmount("units", units); err != nil {
				return err
			}
			return run(true, func(ctx context.Context, a *app) error {
				res, err := a.client.PlaceSwitch(ctx, r)
				return printResult(res, err)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&r.TransNo, "ref", "", "Unique reference number")
	f.StringVar(&r.ClientCode, "client", "", "Client code")
	f.StringVar(&r.FromSchemeCode, "from", "", "Source scheme code")
	f.StringVar(&r.ToSchemeCode, "to", "", "Target scheme code")
	f.StringVar(&r.FolioNo, "folio", "", "Folio number")
	f.StringVar(&r.DPTxn, "dp-txn", "P", "DP transaction mode (C, N or P)")
	f.StringVar(&amount, "amount", "", "Amount to switch")
	f.StringVar(&units, "units", "", "Units to switch")
	f.StringVar(&r.EUIN, "euin", "", "Employee unique id")
	return cmd
}

func newCancelCmd() *cobra.Command {
	var clientCode string
	cmd := &cobra.Command{
		Use:   "cancel ORDER_ID",
		Short: "Cancel an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(true, func(ctx context.Context, a *app) error {
				res, err := a.client.Cancel(ctx, args[0], clientCode)
				return printResult(res, err)
			})
		},
	}
	cmd.Flags().StringVar(&clientCode, "client", "", "Client code")
	return cmd
}

func newStatusCmd() *cobra.Command {
	var (
		q         order.StatusQuery
		from, to  string
		orderID   string
		statement string
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query order status by date range, or one order with --order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if orderID != "" {
				return run(true, func(ctx context.Context, a *app) error {
					res, err := a.client.OrderStatus(ctx, orderID)
					return printResult(res, err)
				})
			}
			var err error
			if q.From, err = parseDate("from", from); err != nil {
				return err
			}
			if q.To, err = parseDate("to", to); err != nil {
				return err
			}
			if statement != "" {
				st := order.Statement{From: q.From, To: q.To, ClientCode: q.ClientCode, OrderType: q.OrderType}
				return run(true, func(ctx context.Context, a *app) error {
					switch statement {
					case "allotment":
						return printResult(a.client.AllotmentStatement(ctx, st))
					case "redemption":
						return printResult(a.client.RedemptionStatement(ctx, st))
					}
					return errors.Newf("invalid --statement %q, want allotment or redemption", statement)
				})
			}
			return run(true, func(ctx context.Context, a *app) error {
				res, err := a.client.QueryStatus(ctx, q)
				return printResult(res, err)
			})
		},
	}
	today := time.Now().Format(order.DateLayout)
	f := cmd.Flags()
	f.StringVar(&from, "from", today, "From date (DD/MM/YYYY)")
	f.StringVar(&to, "to", today, "To date (DD/MM/YYYY)")
	f.StringVar(&q.ClientCode, "client", "", "Client code")
	f.StringVar(&q.TransactionType, "side", "", "P or R")
	f.StringVar(&q.OrderType, "order-type", "", "ALL, MFD, SIP, XSIP, STP or SWP")
	f.StringVar(&orderID, "order", "", "Fetch the detail record of one order")
	f.StringVar(&statement, "statement", "", "Fetch the allotment or redemption statement instead")
	return cmd
}

func newSchemesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemes",
		Short: "Manage the local scheme master",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Download the scheme master and refresh it from Kite",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(false, func(ctx context.Context, a *app) error {
				s := a.cfg.Schemes
				if s.MasterURL != "" {
					if err := a.schemes.Download(ctx, s.MasterURL); err != nil {
						return err
					}
				} else if err := a.schemes.Load(); err != nil {
					return err
				}
				if s.KiteAPIKey != "" && s.KiteAccessToken != "" {
					n, err := a.schemes.SyncFromKite(schemes.NewKiteSource(s.KiteAPIKey, s.KiteAccessToken))
					if err != nil {
						return err
					}
					a.logger.Info("refreshed schemes from kite", zap.Int("updated", n))
					if err := a.schemes.Save(); err != nil {
						return err
					}
				}
				fmt.Printf("%d schemes in %s\n", a.schemes.Len(), s.Path)
				return nil
			})
		},
	})
	return cmd
}

func newAuditCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the exchange journal",
	}
	export := &cobra.Command{
		Use:   "export",
		Short: "Export the journal to daily parquet files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(false, func(ctx context.Context, a *app) error {
				dir := outDir
				if dir == "" {
					dir = filepath.Join(a.cfg.Audit.Dir, "parquet")
				}
				files, err := audit.ExportParquet(a.journal.Path(), dir)
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Println(f)
				}
				return nil
			})
		},
	}
	export.Flags().StringVar(&outDir, "out", "", "Output directory")
	cmd.AddCommand(export)
	return cmd
}

func parseAmount(flag, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "invalid --%s", flag)
	}
	return d, nil
}

func parseDate(flag, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(order.DateLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid --%s", flag)
	}
	return t, nil
}

func printResult(res order.Result, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "success: %t\norder_id: %s\nstatus: %s\nmessage: %s\n", res.Success, res.OrderID, res.StatusCode, res.Message)
	keys := make([]string, 0, len(res.Extra))
	for k := range res.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(os.Stdout, "%s: %s\n", k, res.Extra[k])
	}
	if rec := res.Record; rec != nil {
		fmt.Fprintf(os.Stdout, "order_status: %s\nscheme: %s\namount: %s\nunits: %s\n",
			rec.OrderStatus, rec.SchemeCode, rec.Amount.Decimal, rec.AllottedUnits.Decimal)
	}
	return nil
}
