package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	appbook "github.com/xiebiao/library/internal/application/book"
	applibrarian "github.com/xiebiao/library/internal/application/librarian"
	apploan "github.com/xiebiao/library/internal/application/loan"
	apppayment "github.com/xiebiao/library/internal/application/payment"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/librarian"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
)

// render --json时输出结构体, 否则输出提示文案
func (c *cli) render(cmd *cobra.Command, message string, v interface{}) error {
	out := cmd.OutOrStdout()
	if c.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	if message != "" {
		printf(out, "%s\n", message)
	}
	return nil
}

func parseBookID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("book id must be a positive integer: %q", arg)
	}
	return uint(id), nil
}

func (c *cli) bookService() book.Service {
	return book.NewService(mysql.NewBookRepository(c.db))
}

func newAddBookCmd(c *cli) *cobra.Command {
	var req appbook.AddBookRequest
	cmd := &cobra.Command{
		Use:   "add-book",
		Short: "图书入库",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := appbook.NewAddBookUseCase(c.bookService()).Execute(cmd.Context(), req)
			if err != nil {
				return failure(err)
			}
			return c.render(cmd, resp.Message, resp)
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "书名")
	cmd.Flags().StringVar(&req.Author, "author", "", "作者")
	cmd.Flags().StringVar(&req.ISBN, "isbn", "", "13位ISBN")
	cmd.Flags().IntVar(&req.TotalCopies, "copies", 1, "总册数")
	return cmd
}

func printBooks(w io.Writer, items []appbook.BookItem) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	printf(tw, "ID\tTITLE\tAUTHOR\tISBN\tAVAILABLE\n")
	for _, b := range items {
		printf(tw, "%d\t%s\t%s\t%s\t%d/%d\n", b.ID, b.Title, b.Author, b.ISBN, b.AvailableCopies, b.TotalCopies)
	}
	_ = tw.Flush()
}

func newBooksCmd(c *cli) *cobra.Command {
	var req appbook.ListBooksRequest
	cmd := &cobra.Command{
		Use:   "books",
		Short: "馆藏列表",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := appbook.NewListBooksUseCase(c.bookService()).Execute(cmd.Context(), req)
			if err != nil {
				return failure(err)
			}
			if c.asJSON {
				return c.render(cmd, "", resp)
			}
			printBooks(cmd.OutOrStdout(), resp.List)
			printf(cmd.OutOrStdout(), "page %d/%d, %d books\n", resp.Page, resp.TotalPages, resp.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&req.Page, "page", 1, "页码")
	cmd.Flags().IntVar(&req.PageSize, "page-size", 20, "每页数量")
	return cmd
}

func newSearchCmd(c *cli) *cobra.Command {
	var searchType string
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "检索图书",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := appbook.NewSearchBooksUseCase(c.bookService()).Execute(cmd.Context(), appbook.SearchBooksRequest{
				Term: args[0],
				Type: searchType,
			})
			if err != nil {
				return failure(err)
			}
			if c.asJSON {
				return c.render(cmd, "", resp)
			}
			printBooks(cmd.OutOrStdout(), resp.List)
			return nil
		},
	}
	cmd.Flags().StringVarP(&searchType, "type", "t", string(book.SearchByTitle), "title | author | isbn")
	return cmd
}

func newBorrowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <patron_id> <book_id>",
		Short: "借书",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseBookID(args[1])
			if err != nil {
				return err
			}
			uc := apploan.NewBorrowBookUseCase(mysql.NewBookRepository(c.db), mysql.NewLoanRepository(c.db), mysql.NewTxManager(c.db), c.publisher)
			resp, err := uc.Execute(cmd.Context(), apploan.BorrowBookRequest{PatronID: args[0], BookID: bookID})
			if err != nil {
				return failure(err)
			}
			return c.render(cmd, resp.Message, resp)
		},
	}
}

func newReturnCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "return <patron_id> <book_id>",
		Short: "还书",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseBookID(args[1])
			if err != nil {
				return err
			}
			uc := apploan.NewReturnBookUseCase(mysql.NewBookRepository(c.db), mysql.NewLoanRepository(c.db), mysql.NewTxManager(c.db), c.publisher)
			resp, err := uc.Execute(cmd.Context(), apploan.ReturnBookRequest{PatronID: args[0], BookID: bookID})
			if err != nil {
				return failure(err)
			}
			return c.render(cmd, resp.Message, resp)
		},
	}
}

func newFeeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "fee <patron_id> <book_id>",
		Short: "查询滞纳金",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseBookID(args[1])
			if err != nil {
				return err
			}
			uc := apploan.NewCalculateLateFeeUseCase(mysql.NewBookRepository(c.db), mysql.NewLoanRepository(c.db))
			resp, err := uc.Execute(cmd.Context(), apploan.LateFeeRequest{PatronID: args[0], BookID: bookID})
			if err != nil {
				return failure(err)
			}
			return c.render(cmd, fmt.Sprintf("%s Fee: $%s (%d days overdue)", resp.Message, resp.FeeAmount, resp.DaysOverdue), resp)
		},
	}
}

func newReportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "report <patron_id>",
		Short: "读者借阅报表",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := apploan.NewPatronReportUseCase(mysql.NewLoanRepository(c.db)).Execute(cmd.Context(), args[0])
			if err != nil {
				return failure(err)
			}
			if c.asJSON {
				return c.render(cmd, "", report)
			}

			out := cmd.OutOrStdout()
			printf(out, "Patron %s: %d borrowed, late fees $%s\n", report.PatronID, report.BooksBorrowedCount, report.TotalLateFees)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			printf(tw, "BOOK\tTITLE\tBORROWED\tDUE\tRETURNED\n")
			for _, h := range report.BorrowingHistory {
				returned := "-"
				if h.ReturnDate != nil {
					returned = *h.ReturnDate
				}
				printf(tw, "%d\t%s\t%s\t%s\t%s\n", h.BookID, h.Title, h.BorrowDate, h.DueDate, returned)
			}
			return tw.Flush()
		},
	}
}

func newPayCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "pay <patron_id> <book_id>",
		Short: "缴纳滞纳金",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseBookID(args[1])
			if err != nil {
				return err
			}
			gateway, err := c.paymentGateway()
			if err != nil {
				return err
			}
			uc := apppayment.NewPayLateFeesUseCase(
				mysql.NewBookRepository(c.db),
				mysql.NewLoanRepository(c.db),
				mysql.NewPaymentRepository(c.db),
				gateway,
				c.publisher,
				3*c.cfg.Payment.Timeout,
			)
			resp, err := uc.Execute(cmd.Context(), apppayment.PayLateFeesRequest{PatronID: args[0], BookID: bookID})
			if err != nil {
				return failure(err)
			}
			return c.render(cmd, fmt.Sprintf("%s (transaction %s)", resp.Message, resp.TransactionID), resp)
		},
	}
}

func newRefundCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "refund <transaction_id> <amount>",
		Short: "滞纳金退款",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount: %q", args[1])
			}
			gateway, err := c.paymentGateway()
			if err != nil {
				return err
			}
			uc := apppayment.NewRefundLateFeeUseCase(mysql.NewPaymentRepository(c.db), gateway, c.publisher)
			resp, err := uc.Execute(cmd.Context(), apppayment.RefundLateFeeRequest{TransactionID: args[0], Amount: amount})
			if err != nil {
				return failure(err)
			}
			return c.render(cmd, resp.Message, resp)
		},
	}
}

func newStaffCmd(c *cli) *cobra.Command {
	staff := &cobra.Command{
		Use:   "staff",
		Short: "馆员账号管理",
	}

	var email, name string
	register := &cobra.Command{
		Use:   "register",
		Short: "注册馆员账号",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd, "Password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}

			svc := librarian.NewService(mysql.NewLibrarianRepository(c.db))
			info, err := applibrarian.NewRegisterUseCase(svc).Execute(cmd.Context(), applibrarian.RegisterRequest{
				Email:    email,
				Password: password,
				Name:     name,
			})
			if err != nil {
				return failure(err)
			}
			return c.render(cmd, fmt.Sprintf("Librarian %s <%s> registered with id %d.", info.Name, info.Email, info.ID), info)
		},
	}
	register.Flags().StringVar(&email, "email", "", "登录邮箱")
	register.Flags().StringVar(&name, "name", "", "姓名")
	_ = register.MarkFlagRequired("email")
	_ = register.MarkFlagRequired("name")

	staff.AddCommand(register)
	return staff
}

// readPassword 终端下不回显; 管道输入时读取第一行
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	if in, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(in.Fd())) {
		printf(cmd.ErrOrStderr(), "%s", prompt)
		b, err := term.ReadPassword(int(in.Fd()))
		printf(cmd.ErrOrStderr(), "\n")
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
