package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/loyalty-service/internal/domain"
	"github.com/spec-kit/loyalty-service/internal/lifecycle"
)

func evaluateCmd() *cobra.Command {
	var (
		birthDay   int
		birthMonth int
		signup     string
		date       string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Show what the daily run would do for a customer on a given date",
		Long: `Evaluate the voucher lifecycle for one customer without touching any
store or sending anything. Useful to check reminder timing for a birthday.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			signupDate, err := domain.ParseDate(signup)
			if err != nil {
				return fmt.Errorf("invalid --signup: %w", err)
			}
			today := domain.DateOf(time.Now())
			if date != "" {
				if today, err = domain.ParseDate(date); err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
			}

			decision, err := lifecycle.Evaluate(today, domain.Customer{
				BirthDay:   birthDay,
				BirthMonth: time.Month(birthMonth),
				SignupDate: signupDate,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "date:           %s\n", today.Format(time.DateOnly))
			fmt.Fprintf(out, "first birthday: %s\n", lifecycle.FirstBirthday(signupDate, time.Month(birthMonth), birthDay).Format(time.DateOnly))
			fmt.Fprintf(out, "voucher due:    %t\n", decision.VoucherDue)
			if len(decision.DueReminders) == 0 {
				fmt.Fprintln(out, "reminders:      none")
			}
			for _, r := range decision.DueReminders {
				fmt.Fprintf(out, "reminder:       %s (%s)\n", r.Kind, domain.TemplateKeyFor(r))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&birthDay, "birth-day", 0, "Birth day of month")
	cmd.Flags().IntVar(&birthMonth, "birth-month", 0, "Birth month (1-12)")
	cmd.Flags().StringVar(&signup, "signup", "", "Signup date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&date, "date", "", "Evaluation date (YYYY-MM-DD), defaults to today")
	_ = cmd.MarkFlagRequired("birth-day")
	_ = cmd.MarkFlagRequired("birth-month")
	_ = cmd.MarkFlagRequired("signup")
	return cmd
}
